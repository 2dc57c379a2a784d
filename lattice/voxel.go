package lattice

import (
	"github.com/cpmech/voxelyze/material"
	"github.com/cpmech/voxelyze/vecmath"
)

// voxelFlags is the boolean state word described in SPEC_FULL.md §3.
type voxelFlags uint8

const (
	flagFloorEnabled voxelFlags = 1 << iota
	flagFloorStaticFriction
	flagCollisionsEnabled
)

// Voxel is one lattice-cell rigid body: position, orientation, momenta,
// up to six link back-pointers, optional External loading, and (when
// collisions are enabled) collision watch-list bookkeeping.
//
// Ported from CVX_Voxel.
type Voxel struct {
	Index Index3D
	Mat   *material.VoxelMaterial

	Pos, OriginalPos vecmath.Vec3
	Orient           vecmath.Quat
	LinMom, AngMom   vecmath.Vec3

	Temperature float64
	previousDt  float64

	links [6]*Link
	Ext   *External

	flags voxelFlags

	poissonStrain      [3]float64 // cached per-axis strain used for transverse coupling
	poissonStrainValid bool

	floorForceCache vecmath.Vec3

	// collision bookkeeping
	lastColWatchPos vecmath.Vec3
	collisions      []*Collision
	nearby          map[*Voxel]bool
}

// NewVoxel constructs a voxel of the given material at the given lattice
// index and nominal position, at ambient temperature, with floor contact and
// collisions enabled by default.
func NewVoxel(mat *material.VoxelMaterial, index Index3D, nominalPos vecmath.Vec3, ambientTemp float64) *Voxel {
	v := &Voxel{
		Index:        index,
		Mat:          mat,
		Pos:          nominalPos,
		OriginalPos:  nominalPos,
		Orient:       vecmath.IdentityQuat,
		Temperature:  ambientTemp,
		flags:        flagFloorEnabled | flagCollisionsEnabled,
		previousDt:   0,
	}
	return v
}

func (v *Voxel) Link(d Direction) *Link { return v.links[d] }

func (v *Voxel) setLink(d Direction, l *Link) { v.links[d] = l }

func (v *Voxel) LinkCount() int {
	n := 0
	for _, l := range v.links {
		if l != nil {
			n++
		}
	}
	return n
}

// IsSurface reports whether any of the six link slots is empty.
func (v *Voxel) IsSurface() bool {
	for _, l := range v.links {
		if l == nil {
			return true
		}
	}
	return false
}

func (v *Voxel) IsInterior() bool { return !v.IsSurface() }

func (v *Voxel) EnableFloor(enable bool) {
	if enable {
		v.flags |= flagFloorEnabled
	} else {
		v.flags &^= flagFloorEnabled
		v.flags &^= flagFloorStaticFriction
	}
}
func (v *Voxel) IsFloorEnabled() bool { return v.flags&flagFloorEnabled != 0 }

func (v *Voxel) EnableCollisions(enable bool) {
	if enable {
		v.flags |= flagCollisionsEnabled
	} else {
		v.flags &^= flagCollisionsEnabled
	}
}
func (v *Voxel) IsCollisionsEnabled() bool { return v.flags&flagCollisionsEnabled != 0 }

func (v *Voxel) hasStaticFriction() bool { return v.flags&flagFloorStaticFriction != 0 }

func (v *Voxel) Displacement() vecmath.Vec3 { return v.Pos.Sub(v.OriginalPos) }

func (v *Voxel) Velocity() vecmath.Vec3 { return v.LinMom.Scale(v.Mat.MassInverse()) }

func (v *Voxel) AngularVelocity() vecmath.Vec3 { return v.AngMom.Scale(v.Mat.MomentInertiaInverse()) }

func (v *Voxel) KineticEnergy() float64 {
	lin := 0.5 * v.Mat.MassInverse() * v.LinMom.Length2()
	ang := 0.5 * v.Mat.MomentInertiaInverse() * v.AngMom.Length2()
	return lin + ang
}

// BaseSize returns the voxel's current size along each axis, incorporating
// thermal expansion but not link strain (used as the undeformed reference
// for floor-contact penetration depth).
func (v *Voxel) BaseSize() vecmath.Vec3 {
	s := v.Mat.NominalSize * (1 + v.Mat.CTE*v.Temperature)
	return vecmath.Vec3{X: s * v.Mat.ExternalScaleFactor[0], Y: s * v.Mat.ExternalScaleFactor[1], Z: s * v.Mat.ExternalScaleFactor[2]}
}

// axisStrain returns the average axial strain of the (up to two) links
// along the given axis, 0 if none are present.
func (v *Voxel) axisStrain(axis Axis) float64 {
	pos, neg := v.links[axis*2], v.links[axis*2+1]
	sum, n := 0.0, 0
	if pos != nil {
		sum += pos.AxialStrain(v == pos.pos)
		n++
	}
	if neg != nil {
		sum += neg.AxialStrain(v == neg.pos)
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// PoissonStrain returns the cached transverse-coupling strain for the two
// axes other than excludeAxis (the strain sum used in the link volumetric
// term), recomputing it from adjacent link strains if invalidated.
func (v *Voxel) PoissonStrain(excludeAxis Axis) float64 {
	if !v.poissonStrainValid {
		for a := Axis(0); a < 3; a++ {
			v.poissonStrain[a] = v.axisStrain(a)
		}
		v.poissonStrainValid = true
	}
	sum := 0.0
	for a := Axis(0); a < 3; a++ {
		if a != excludeAxis {
			sum += v.poissonStrain[a]
		}
	}
	return sum
}

func (v *Voxel) invalidatePoissonStrain() { v.poissonStrainValid = false }

// VolumetricStrain is the sum of strain across all three axes.
func (v *Voxel) VolumetricStrain() float64 {
	return v.axisStrain(AxisX) + v.axisStrain(AxisY) + v.axisStrain(AxisZ)
}

// Pressure approximates -eHat * volumetricStrain / 3.
func (v *Voxel) Pressure() float64 {
	return -v.Mat.EHat() * v.VolumetricStrain() / 3
}

func (v *Voxel) IsYielded() bool {
	for _, l := range v.links {
		if l != nil && l.IsYielded() {
			return true
		}
	}
	return false
}

func (v *Voxel) IsFailed() bool {
	for _, l := range v.links {
		if l != nil && l.IsFailed() {
			return true
		}
	}
	return false
}

// CornerOffset returns how far the voxel's rotation moves the corner
// identified by a 3-bit code (bit0=+X, bit1=+Y, bit2=+Z): the rotated
// centre-to-corner offset minus the unrotated one. The voxel's translation
// is not included.
func (v *Voxel) CornerOffset(corner int) vecmath.Vec3 {
	half := v.Mat.NominalSize / 2
	base := vecmath.Vec3{X: half, Y: half, Z: half}
	if corner&1 == 0 {
		base.X = -half
	}
	if corner&2 == 0 {
		base.Y = -half
	}
	if corner&4 == 0 {
		base.Z = -half
	}
	rotated := v.Orient.RotateVec3D(base)
	return rotated.Sub(base)
}

// CornerPosition returns the current global position of the voxel corner.
func (v *Voxel) CornerPosition(corner int) vecmath.Vec3 {
	half := v.Mat.NominalSize / 2
	base := vecmath.Vec3{X: half, Y: half, Z: half}
	if corner&1 == 0 {
		base.X = -half
	}
	if corner&2 == 0 {
		base.Y = -half
	}
	if corner&4 == 0 {
		base.Z = -half
	}
	return v.Pos.Add(v.Orient.RotateVec3D(base))
}

// ExternalForce returns the reaction force a fully- or partially-fixed
// voxel exerts on its constraint (for query purposes), computed by summing
// internal forces that would otherwise accelerate it.
func (v *Voxel) ExternalForce() vecmath.Vec3 {
	if v.Ext == nil || !v.Ext.IsFixedAny() {
		return vecmath.Vec3{}
	}
	return v.sumLinkForces().Neg()
}

func (v *Voxel) ExternalMoment() vecmath.Vec3 {
	if v.Ext == nil || !v.Ext.IsFixedAny() {
		return vecmath.Vec3{}
	}
	return v.sumLinkMoments().Neg()
}

func (v *Voxel) sumLinkForces() vecmath.Vec3 {
	sum := vecmath.Vec3{}
	for _, l := range v.links {
		if l != nil {
			sum = sum.Add(l.ForceOn(v))
		}
	}
	return sum
}

func (v *Voxel) sumLinkMoments() vecmath.Vec3 {
	sum := vecmath.Vec3{}
	for _, l := range v.links {
		if l != nil {
			sum = sum.Add(l.MomentOn(v))
		}
	}
	return sum
}

// Force computes the total force on this voxel for the current step: link
// forces, external force, global damping, gravity and collision forces.
func (v *Voxel) Force() vecmath.Vec3 {
	f := v.sumLinkForces()
	if v.Ext != nil {
		f = f.Add(v.Ext.Force)
	}
	f = f.Sub(v.Velocity().Scale(v.Mat.GlobalDampingTranslateC()))
	f.Z += v.Mat.GravityForce()
	for _, c := range v.collisions {
		f = f.Sub(c.ContactForce(v))
	}
	return f
}

// Moment computes the total moment on this voxel for the current step.
func (v *Voxel) Moment() vecmath.Vec3 {
	m := v.sumLinkMoments()
	if v.Ext != nil {
		m = m.Add(v.Ext.Moment)
	}
	m = m.Sub(v.AngularVelocity().Scale(v.Mat.GlobalDampingRotateC()))
	return m
}

// FloorPenetration returns how far below the floor plane (z=0) the voxel's
// lower face currently extends (positive = penetrating).
func (v *Voxel) FloorPenetration() float64 {
	return 0.5*v.BaseSize().Z - v.Pos.Z
}

// floorForceAndFriction implements SPEC_FULL.md §4.5: computes the floor
// normal+friction contribution to force, mutating staticFriction state, and
// returns the (possibly modified) total force. The floor's own contribution
// is kept in floorForceCache for query purposes.
func (v *Voxel) floorForceAndFriction(dt float64, totalForce vecmath.Vec3) vecmath.Vec3 {
	if !v.IsFloorEnabled() {
		v.flags &^= flagFloorStaticFriction
		v.floorForceCache = vecmath.Vec3{}
		return totalForce
	}
	pen := v.FloorPenetration()
	if pen <= 0 {
		v.flags &^= flagFloorStaticFriction
		v.floorForceCache = vecmath.Vec3{}
		return totalForce
	}

	k := v.Mat.PenetrationStiffness()
	c := v.Mat.CollisionDampingTranslateC()
	normalForce := k*pen - c*v.Velocity().Z
	if normalForce < 0 {
		normalForce = 0
	}

	out := totalForce
	out.Z = totalForce.Z + normalForce

	horizontal := vecmath.Vec3{X: out.X, Y: out.Y}

	if v.hasStaticFriction() {
		maxStatic := v.Mat.MuStatic * normalForce
		if horizontal.Length() > maxStatic {
			v.flags &^= flagFloorStaticFriction
		} else {
			vHoriz := vecmath.Vec3{X: v.Velocity().X, Y: v.Velocity().Y}
			ke := 0.5 * v.Mat.Mass() * vHoriz.Length2()
			work := horizontal.Dot(vHoriz) * dt
			if ke+work <= 0 {
				v.flags |= flagFloorStaticFriction
			}
		}
	} else {
		vHoriz := vecmath.Vec3{X: v.Velocity().X, Y: v.Velocity().Y}
		if vHoriz.Length() < 1e-9 {
			maxStatic := v.Mat.MuStatic * normalForce
			if horizontal.Length() <= maxStatic {
				v.flags |= flagFloorStaticFriction
			}
		}
	}

	if v.hasStaticFriction() {
		out.X, out.Y = 0, 0
	} else {
		vHoriz := vecmath.Vec3{X: v.Velocity().X, Y: v.Velocity().Y}
		speed := vHoriz.Length()
		if speed > 1e-12 {
			kineticMag := v.Mat.MuKinetic * normalForce
			dir := vHoriz.Scale(1 / speed)
			out.X -= dir.X * kineticMag
			out.Y -= dir.Y * kineticMag
		}
	}

	v.floorForceCache = vecmath.Vec3{X: out.X - totalForce.X, Y: out.Y - totalForce.Y, Z: normalForce}
	return out
}



// TimeStep advances this voxel's pose and momenta by dt, per SPEC_FULL.md §4.4.
func (v *Voxel) TimeStep(dt float64) {
	if dt <= 0 {
		return
	}
	if v.Ext != nil && v.Ext.IsFixedAll() {
		v.Pos = v.OriginalPos.Add(v.Ext.Translation())
		v.Orient = v.Ext.RotationQuat()
		v.LinMom = vecmath.Vec3{}
		v.AngMom = vecmath.Vec3{}
		v.previousDt = dt
		v.invalidatePoissonStrain()
		return
	}

	force := v.Force()
	force = v.floorForceAndFriction(dt, force)

	v.LinMom = v.LinMom.Add(force.Scale(dt))
	translate := v.LinMom.Scale(dt * v.Mat.MassInverse())
	if v.hasStaticFriction() {
		v.LinMom.X, v.LinMom.Y = 0, 0
		translate.X, translate.Y = 0, 0
	}
	v.Pos = v.Pos.Add(translate)

	moment := v.Moment()
	v.AngMom = v.AngMom.Add(moment.Scale(dt))
	angVel := v.AngularVelocity()
	dq := vecmath.FromRotationVector(angVel.Scale(dt))
	v.Orient = dq.Mul(v.Orient).Normalized()

	if v.Ext != nil {
		v.enforceExternalDofs()
	}

	v.previousDt = dt
	v.invalidatePoissonStrain()
}

// enforceExternalDofs snaps fixed translational/rotational DOFs to their
// prescribed values after the free integration step.
func (v *Voxel) enforceExternalDofs() {
	e := v.Ext
	if e.IsFixed(XTranslate) {
		v.Pos.X = v.OriginalPos.X + e.Translation().X
		v.LinMom.X = 0
	}
	if e.IsFixed(YTranslate) {
		v.Pos.Y = v.OriginalPos.Y + e.Translation().Y
		v.LinMom.Y = 0
	}
	if e.IsFixed(ZTranslate) {
		v.Pos.Z = v.OriginalPos.Z + e.Translation().Z
		v.LinMom.Z = 0
	}
	if e.IsFixedAllRotation() {
		v.Orient = e.RotationQuat()
		v.AngMom = vecmath.Vec3{}
	} else if e.IsFixedAnyRotation() {
		rv := v.Orient.ToRotationVector()
		prescribed := e.Rotation()
		if e.IsFixed(XRotate) {
			rv.X = prescribed.X
		}
		if e.IsFixed(YRotate) {
			rv.Y = prescribed.Y
		}
		if e.IsFixed(ZRotate) {
			rv.Z = prescribed.Z
		}
		v.Orient = vecmath.FromRotationVector(rv)
		av := v.AngularVelocity()
		if e.IsFixed(XRotate) {
			av.X = 0
		}
		if e.IsFixed(YRotate) {
			av.Y = 0
		}
		if e.IsFixed(ZRotate) {
			av.Z = 0
		}
		v.AngMom = av.Scale(v.Mat.MomentInertia())
	}
}

// Reset returns the voxel to its nominal pose with zero momenta and clears
// transient strain-coupling caches. Does not touch link state; the lattice
// resets links separately.
func (v *Voxel) Reset() {
	v.Pos = v.OriginalPos
	v.Orient = vecmath.IdentityQuat
	v.LinMom = vecmath.Vec3{}
	v.AngMom = vecmath.Vec3{}
	v.previousDt = 0
	v.flags &^= flagFloorStaticFriction
	v.invalidatePoissonStrain()
}
