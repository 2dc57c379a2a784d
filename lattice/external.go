package lattice

import "github.com/cpmech/voxelyze/vecmath"

// DofComponent identifies one of a voxel's six degrees of freedom.
type DofComponent uint8

const (
	XTranslate DofComponent = 1 << iota
	YTranslate
	ZTranslate
	XRotate
	YRotate
	ZRotate
)

const allDofMask = XTranslate | YTranslate | ZTranslate | XRotate | YRotate | ZRotate

// External holds every externally-imposed influence on a voxel: fixed
// degrees of freedom (with prescribed translation/rotation) and applied
// force/moment. Ported from CVX_External.
type External struct {
	dofFixed DofComponent

	Force, Moment           vecmath.Vec3
	translation, rotation   vecmath.Vec3
	rotationQuat            vecmath.Quat
	rotationQuatValid       bool
}

// NewExternal returns a fresh External with no fixed DOFs and no applied loads.
func NewExternal() *External { return &External{} }

// IsEmpty reports whether this External has no effect at all on a voxel.
func (e *External) IsEmpty() bool {
	return e.dofFixed == 0 && e.Force.IsZero() && e.Moment.IsZero()
}

func (e *External) IsFixed(dof DofComponent) bool      { return e.dofFixed&dof != 0 }
func (e *External) IsFixedAll() bool                    { return e.dofFixed&allDofMask == allDofMask }
func (e *External) IsFixedAny() bool                    { return e.dofFixed != 0 }
func (e *External) IsFixedAllTranslation() bool {
	return e.IsFixed(XTranslate) && e.IsFixed(YTranslate) && e.IsFixed(ZTranslate)
}
func (e *External) IsFixedAllRotation() bool {
	return e.IsFixed(XRotate) && e.IsFixed(YRotate) && e.IsFixed(ZRotate)
}
func (e *External) IsFixedAnyTranslation() bool {
	return e.IsFixed(XTranslate) || e.IsFixed(YTranslate) || e.IsFixed(ZTranslate)
}
func (e *External) IsFixedAnyRotation() bool {
	return e.IsFixed(XRotate) || e.IsFixed(YRotate) || e.IsFixed(ZRotate)
}

func (e *External) Translation() vecmath.Vec3 { return e.translation }
func (e *External) Rotation() vecmath.Vec3    { return e.rotation }

// RotationQuat returns the cached quaternion equivalent of Rotation(),
// computed lazily.
func (e *External) RotationQuat() vecmath.Quat {
	if !e.rotationQuatValid {
		e.rotationQuat = vecmath.FromRotationVector(e.rotation)
		e.rotationQuatValid = true
	}
	return e.rotationQuat
}

func (e *External) rotationChanged() { e.rotationQuatValid = false }

// SetFixed fixes or frees the six DOFs individually; fixing implies zeroing
// the corresponding displacement.
func (e *External) SetFixed(tx, ty, tz, rx, ry, rz bool) {
	e.setFixedOne(XTranslate, tx)
	e.setFixedOne(YTranslate, ty)
	e.setFixedOne(ZTranslate, tz)
	e.setFixedOne(XRotate, rx)
	e.setFixedOne(YRotate, ry)
	e.setFixedOne(ZRotate, rz)
}

func (e *External) setFixedOne(dof DofComponent, fixed bool) {
	if fixed {
		e.SetDisplacement(dof, 0)
	} else {
		e.ClearDisplacement(dof)
	}
}

// SetFixedAll fixes (or frees) all six DOFs at their current pose (zero displacement).
func (e *External) SetFixedAll(fixed bool) {
	if fixed {
		e.SetDisplacementAll(vecmath.Vec3{}, vecmath.Vec3{})
	} else {
		e.ClearDisplacementAll()
	}
}

// SetDisplacement fixes the given DOF at the given prescribed value (meters
// for translation, radians for rotation).
func (e *External) SetDisplacement(dof DofComponent, displacement float64) {
	e.dofFixed |= dof
	switch dof {
	case XTranslate:
		e.translation.X = displacement
	case YTranslate:
		e.translation.Y = displacement
	case ZTranslate:
		e.translation.Z = displacement
	case XRotate:
		e.rotation.X = displacement
		e.rotationChanged()
	case YRotate:
		e.rotation.Y = displacement
		e.rotationChanged()
	case ZRotate:
		e.rotation.Z = displacement
		e.rotationChanged()
	}
}

// SetDisplacementAll fixes all six DOFs at the given translation/rotation.
func (e *External) SetDisplacementAll(translation, rotation vecmath.Vec3) {
	e.dofFixed |= allDofMask
	e.translation = translation
	e.rotation = rotation
	e.rotationChanged()
}

// ClearDisplacement frees the given DOF and clears its prescribed value.
func (e *External) ClearDisplacement(dof DofComponent) {
	e.dofFixed &^= dof
	switch dof {
	case XTranslate:
		e.translation.X = 0
	case YTranslate:
		e.translation.Y = 0
	case ZTranslate:
		e.translation.Z = 0
	case XRotate:
		e.rotation.X = 0
		e.rotationChanged()
	case YRotate:
		e.rotation.Y = 0
		e.rotationChanged()
	case ZRotate:
		e.rotation.Z = 0
		e.rotationChanged()
	}
}

// ClearDisplacementAll frees every DOF and clears all prescribed values.
func (e *External) ClearDisplacementAll() {
	e.dofFixed = 0
	e.translation = vecmath.Vec3{}
	e.rotation = vecmath.Vec3{}
	e.rotationChanged()
}

func (e *External) SetForce(f vecmath.Vec3)  { e.Force = f }
func (e *External) AddForce(f vecmath.Vec3)  { e.Force = e.Force.Add(f) }
func (e *External) ClearForce()              { e.Force = vecmath.Vec3{} }
func (e *External) SetMoment(m vecmath.Vec3) { e.Moment = m }
func (e *External) AddMoment(m vecmath.Vec3) { e.Moment = e.Moment.Add(m) }
func (e *External) ClearMoment()             { e.Moment = vecmath.Vec3{} }
