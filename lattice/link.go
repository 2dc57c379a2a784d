package lattice

import (
	"math"

	"github.com/cpmech/voxelyze/material"
	"github.com/cpmech/voxelyze/vecmath"
)

const (
	smallAngleThetaRad   = 0.05
	smallAngleStretch    = 0.5
	smallAngleHysteresis = 1.2
	divergentStrain      = 100
)

// Link is the beam element connecting two adjacent voxels along one axis.
// It tracks its own local deformed frame (current rest length, transverse
// displacement and end-rotation angles) and converts that into forces and
// moments applied to its two end voxels, following the 7-step process of
// SPEC_FULL.md §4.3 (transverse info, orient-to-+X, small-angle branch,
// strain tracking, elastic beam forces, local damping, inverse transform).
//
// Ported from CVX_Link.
type Link struct {
	Axis     Axis
	Mat      *material.LinkMaterial
	neg, pos *Voxel

	currentRestLength          float64
	currentTransverseArea      float64
	currentTransverseStrainSum float64

	strain       float64
	maxStrain    float64
	strainOffset float64
	axialStress  float64
	strainRatio  float64 // posMat.E / negMat.E, set in NewLink and Lattice.tryLink

	smallAngle bool

	toLocal vecmath.Quat // global -> link-local-+X-axis permutation

	deltaPos   vecmath.Vec3 // Δp in the local +X frame, after small/large-angle reduction
	angle1     vecmath.Quat // neg-end local orientation: identity in small-angle mode, the align rotation in large-angle mode
	angle2     vecmath.Quat // pos-end local orientation, canonicalized against angle1
	theta1     vecmath.Vec3 // rotation vector of angle1
	theta2     vecmath.Vec3 // rotation vector of angle2

	prevDeltaPos vecmath.Vec3
	prevTheta1   vecmath.Vec3
	prevTheta2   vecmath.Vec3
	localVelocityValid bool

	forceNeg, forcePos   vecmath.Vec3
	momentNeg, momentPos vecmath.Vec3
}

// NewLink creates a link along axis between neg (negative-direction voxel)
// and pos (positive-direction voxel), deriving its combined material and
// initial rest length immediately.
func NewLink(axis Axis, neg, pos *Voxel) *Link {
	l := &Link{Axis: axis, neg: neg, pos: pos}
	l.Mat = material.CombineMaterials(neg.Mat, pos.Mat)
	l.strainRatio = pos.Mat.E / neg.Mat.E
	l.smallAngle = true
	l.updateRestLength()
	l.updateTransverseInfo()
	return l
}

// voxelPos reports whether v is this link's positive-direction endpoint.
func (l *Link) voxelPos(v *Voxel) bool { return v == l.pos }

// NegVoxel and PosVoxel return this link's two endpoints.
func (l *Link) NegVoxel() *Voxel { return l.neg }
func (l *Link) PosVoxel() *Voxel { return l.pos }

// RestLength returns the link's current undeformed length.
func (l *Link) RestLength() float64 { return l.currentRestLength }

// LocalFrame returns the quaternion permuting the global frame so this
// link's axis lies along +X, the frame used throughout UpdateForces and by
// the static solver's tangent stiffness assembly.
func (l *Link) LocalFrame() vecmath.Quat { return vecmath.FromAngleToPosX(l.axisUnitVector()) }

// ForceOn returns the force this link currently applies to endpoint v.
func (l *Link) ForceOn(v *Voxel) vecmath.Vec3 {
	if v == l.pos {
		return l.forcePos
	}
	return l.forceNeg
}

// MomentOn returns the moment this link currently applies to endpoint v.
func (l *Link) MomentOn(v *Voxel) vecmath.Vec3 {
	if v == l.pos {
		return l.momentPos
	}
	return l.momentNeg
}

// AxialStrain returns the half-bond strain at the requested end, scaled by
// the asymmetry between the two end materials' stiffness (strainRatio =
// posMat.E/negMat.E, set once when the link is created).
func (l *Link) AxialStrain(atPosEnd bool) float64 {
	if atPosEnd {
		return 2 * l.strain * l.strainRatio / (1 + l.strainRatio)
	}
	return 2 * l.strain / (1 + l.strainRatio)
}

func (l *Link) AxialStress() float64 { return l.axialStress }

func (l *Link) IsYielded() bool { return l.Mat.IsYielded(l.maxStrain) }
func (l *Link) IsFailed() bool  { return l.Mat.IsFailed(l.maxStrain) }

// Diverged reports whether this link's strain has exceeded the divergence
// threshold, per SPEC_FULL.md §4.10.
func (l *Link) Diverged() bool { return math.Abs(l.strain) > divergentStrain }

// StrainEnergy returns the elastic energy currently stored in this link:
// axial + torsion + the two bending modes, from the end forces/moments
// already computed by UpdateForces.
func (l *Link) StrainEnergy() float64 {
	a1, a2, b3 := l.Mat.A1, l.Mat.A2, l.Mat.B3
	if a1 <= 0 || a2 <= 0 || b3 <= 0 {
		return 0
	}
	mnz, mpz := l.momentNeg.Z, l.momentPos.Z
	mny, mpy := l.momentNeg.Y, l.momentPos.Y
	return l.forceNeg.X*l.forceNeg.X/(2*a1) +
		l.momentNeg.X*l.momentNeg.X/(2*a2) +
		(mnz*mnz-mnz*mpz+mpz*mpz)/(3*b3) +
		(mny*mny-mny*mpy+mpy*mpy)/(3*b3)
}

// AxialStiffness returns the current tangent axial stiffness E(strain)*A/L.
func (l *Link) AxialStiffness() float64 {
	if l.currentRestLength <= 0 {
		return 0
	}
	return l.Mat.ModulusAt(l.strain) * l.currentTransverseArea / l.currentRestLength
}

// updateRestLength recomputes the link's undeformed length from the two
// end voxels' current thermally-expanded sizes along this axis.
func (l *Link) updateRestLength() {
	l.currentRestLength = 0.5 * (l.axisSize(l.neg) + l.axisSize(l.pos))
}

func (l *Link) axisSize(v *Voxel) float64 {
	b := v.BaseSize()
	switch l.Axis {
	case AxisX:
		return b.X
	case AxisY:
		return b.Y
	default:
		return b.Z
	}
}

// updateTransverseInfo implements step 1 of SPEC_FULL.md §4.3: the
// cross-sectional area and transverse strain sum used for Poisson coupling,
// and (if thermal expansion is active) the rest length.
func (l *Link) updateTransverseInfo() {
	negSize := l.axisSize(l.neg)
	posSize := l.axisSize(l.pos)
	avg := 0.5 * (negSize + posSize)
	l.currentTransverseArea = avg * avg
	l.currentTransverseStrainSum = 0.5 * (l.neg.PoissonStrain(l.Axis) + l.pos.PoissonStrain(l.Axis))
	if l.Mat.CTE != 0 {
		l.updateRestLength()
	}
}

// axisUnitVector returns the undeformed unit vector pointing from neg to
// pos along this link's axis.
func (l *Link) axisUnitVector() vecmath.Vec3 {
	switch l.Axis {
	case AxisX:
		return vecmath.Vec3{X: 1}
	case AxisY:
		return vecmath.Vec3{Y: 1}
	default:
		return vecmath.Vec3{Z: 1}
	}
}

// orientAndStrain implements steps 2-4 of SPEC_FULL.md §4.3: permute the
// global offset and end orientations into the link's local +X frame, decide
// small-angle vs large-angle mode with hysteresis, and derive axial strain
// and stress.
func (l *Link) orientAndStrain() {
	l.toLocal = vecmath.FromAngleToPosX(l.axisUnitVector())

	deltaPosGlobal := l.pos.Pos.Sub(l.neg.Pos)
	deltaPosLocal := l.toLocal.RotateVec3D(deltaPosGlobal)

	angle1 := l.toLocal.Mul(l.neg.Orient)
	angle2 := l.toLocal.Mul(l.pos.Orient)

	// Canonicalize: left-multiply by angle1's inverse so the neg end is the
	// reference frame (operate in small-angle mode: treat q1 as identity).
	totalRot := angle1.Conjugate()
	deltaPosLocal = totalRot.RotateVec3D(deltaPosLocal)
	angle2 = totalRot.Mul(angle2)
	angle1 = vecmath.IdentityQuat

	restLength := l.currentRestLength
	var bend, stretch float64
	if deltaPosLocal.X != 0 {
		bend = (math.Abs(deltaPosLocal.Y) + math.Abs(deltaPosLocal.Z)) / math.Abs(deltaPosLocal.X)
	} else {
		bend = math.Inf(1)
	}
	if restLength > 0 {
		stretch = math.Abs(1 - deltaPosLocal.X/restLength)
	}

	thetaBound, stretchBound := smallAngleThetaRad, smallAngleStretch
	if l.smallAngle {
		thetaBound *= smallAngleHysteresis
		stretchBound *= smallAngleHysteresis
	} else {
		thetaBound /= smallAngleHysteresis
		stretchBound /= smallAngleHysteresis
	}
	wasSmallAngle := l.smallAngle
	l.smallAngle = bend < thetaBound && stretch < stretchBound

	if l.smallAngle {
		l.deltaPos = vecmath.Vec3{X: deltaPosLocal.X - restLength}
	} else {
		// Large angle: align so deltaPosLocal.Y, deltaPosLocal.Z are zero.
		align := vecmath.FromAngleToPosX(deltaPosLocal)
		angle1 = align
		angle2 = align.Mul(angle2)
		l.deltaPos = vecmath.Vec3{X: deltaPosLocal.Length() - restLength}
	}

	if l.smallAngle != wasSmallAngle {
		l.localVelocityValid = false
	}

	l.angle1, l.angle2 = angle1, angle2
	l.theta1 = angle1.ToRotationVector()
	l.theta2 = angle2.ToRotationVector()

	l.strain = l.deltaPos.X / restLength
}

// UpdateForces recomputes this link's strain, stress and the force/moment
// it applies to each endpoint, from the endpoints' current pose and
// velocity. Steps 2-7 of SPEC_FULL.md §4.3.
func (l *Link) UpdateForces() {
	l.updateTransverseInfo()

	restLength := l.currentRestLength
	if restLength <= 0 {
		return
	}

	l.orientAndStrain()

	if math.Abs(l.strain) > l.maxStrain {
		l.maxStrain = math.Abs(l.strain)
	}

	if l.Mat.IsFailed(l.maxStrain) {
		l.forceNeg, l.forcePos = vecmath.Vec3{}, vecmath.Vec3{}
		l.momentNeg, l.momentPos = vecmath.Vec3{}, vecmath.Vec3{}
		return
	}

	if math.Abs(l.strain) > l.maxStrain-1e-15 {
		l.axialStress = l.Mat.StressAt(l.strain, l.currentTransverseStrainSum, false)
	} else {
		// unloaded past the peak: return along a line of slope E through (maxStrain, stress(maxStrain))
		peakStress := l.Mat.StressAt(l.maxStrain*sign(l.strain), l.currentTransverseStrainSum, false)
		l.axialStress = peakStress + l.Mat.E*(l.strain-l.maxStrain*sign(l.strain))
	}

	a2, b1, b2, b3 := l.Mat.A2, l.Mat.B1, l.Mat.B2, l.Mat.B3
	dp, t1, t2 := l.deltaPos, l.theta1, l.theta2

	forceNegLocal := vecmath.Vec3{
		X: l.axialStress * l.currentTransverseArea,
		Y: b1*dp.Y - b2*(t1.Z+t2.Z),
		Z: b1*dp.Z + b2*(t1.Y+t2.Y),
	}
	forcePosLocal := forceNegLocal.Neg()

	momentNegLocal := vecmath.Vec3{
		X: a2 * (t2.X - t1.X),
		Y: -b2*dp.Z - b3*(2*t1.Y+t2.Y),
		Z: b2*dp.Y - b3*(2*t1.Z+t2.Z),
	}
	momentPosLocal := vecmath.Vec3{
		X: a2 * (t1.X - t2.X),
		Y: -b2*dp.Z - b3*(t1.Y+2*t2.Y),
		Z: b2*dp.Y - b3*(t1.Z+2*t2.Z),
	}

	if l.localVelocityValid && l.neg.previousDt > 0 {
		dDeltaPos := dp.Sub(l.prevDeltaPos).Scale(0.5)
		dTheta1 := t1.Sub(l.prevTheta1).Scale(0.5)
		dTheta2 := t2.Sub(l.prevTheta2).Scale(0.5)

		zeta := l.Mat.ZetaInternal
		if zeta > 0 {
			dtPrev := l.neg.previousDt
			cNeg := zeta * 2 * l.neg.Mat.SqrtMass() / dtPrev
			cPos := zeta * 2 * l.pos.Mat.SqrtMass() / dtPrev

			// posCalc is the shared shear/axial damping vector; each end
			// applies it scaled by its own damping multiplier, following
			// the same b1/b2 cross-coupling as the elastic force terms.
			posCalcY := l.Mat.SqB1*dDeltaPos.Y - l.Mat.SqB2xFMp*(dTheta1.Z+dTheta2.Z)
			posCalcZ := l.Mat.SqB1*dDeltaPos.Z + l.Mat.SqB2xFMp*(dTheta1.Y+dTheta2.Y)

			forceNegLocal.X += l.Mat.SqA1 * dDeltaPos.X * cNeg
			forceNegLocal.Y += posCalcY * cNeg
			forceNegLocal.Z += posCalcZ * cNeg
			forcePosLocal.X -= l.Mat.SqA1 * dDeltaPos.X * cPos
			forcePosLocal.Y -= posCalcY * cPos
			forcePosLocal.Z -= posCalcZ * cPos

			momentNegLocal.X -= -l.Mat.SqA2xIp * (dTheta2.X - dTheta1.X) * 0.5 * cNeg
			momentNegLocal.Y -= (l.Mat.SqB2xFMp*dDeltaPos.Z + l.Mat.SqB3xIp*(2*dTheta1.Y+dTheta2.Y)) * 0.5 * cNeg
			momentNegLocal.Z -= (-l.Mat.SqB2xFMp*dDeltaPos.Y + l.Mat.SqB3xIp*(2*dTheta1.Z+dTheta2.Z)) * 0.5 * cNeg

			momentPosLocal.X -= l.Mat.SqA2xIp * (dTheta2.X - dTheta1.X) * 0.5 * cPos
			momentPosLocal.Y -= (l.Mat.SqB2xFMp*dDeltaPos.Z + l.Mat.SqB3xIp*(dTheta1.Y+2*dTheta2.Y)) * 0.5 * cPos
			momentPosLocal.Z -= (-l.Mat.SqB2xFMp*dDeltaPos.Y + l.Mat.SqB3xIp*(dTheta1.Z+2*dTheta2.Z)) * 0.5 * cPos
		}
	}
	l.prevDeltaPos, l.prevTheta1, l.prevTheta2 = dp, t1, t2
	l.localVelocityValid = true

	// Transform forces/moments back to each voxel's own frame (skipped for
	// the neg end in small-angle mode, where angle1 is the identity), then
	// un-permute the link-axis alignment back to global.
	if !l.smallAngle {
		forceNegLocal = l.angle1.RotateVec3DInv(forceNegLocal)
		momentNegLocal = l.angle1.RotateVec3DInv(momentNegLocal)
	}
	forcePosLocal = l.angle2.RotateVec3DInv(forcePosLocal)
	momentPosLocal = l.angle2.RotateVec3DInv(momentPosLocal)

	inv := l.toLocal.Inverse()
	l.forceNeg = inv.RotateVec3D(forceNegLocal)
	l.forcePos = inv.RotateVec3D(forcePosLocal)
	l.momentNeg = inv.RotateVec3D(momentNegLocal)
	l.momentPos = inv.RotateVec3D(momentPosLocal)
}

func sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}
