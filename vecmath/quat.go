package vecmath

import "math"

// Numeric constants governing small-angle mode switching, ported verbatim
// from the original engine's Quat3D.h so that link hysteresis (lattice
// package) and the rotation-vector round trip (invariant 4) match exactly.
const (
	DiscardAngleRad   = 1e-7
	SmallAngleRad     = 1.732e-2
	SmallAngleW       = 0.9999625
	WThreshAcos2Sqrt  = 0.9988
	SqLenThreshAcos2  = 2.4e-3
	dblEpsilonx24     = 5.328e-15
)

// Quat is a unit quaternion (w,x,y,z) representing a rigid-body orientation
// or an incremental rotation.
type Quat struct {
	W, X, Y, Z float64
}

// IdentityQuat is the no-rotation orientation.
var IdentityQuat = Quat{W: 1}

func NewQuat(w, x, y, z float64) Quat { return Quat{w, x, y, z} }

func (q Quat) Add(o Quat) Quat { return Quat{q.W + o.W, q.X + o.X, q.Y + o.Y, q.Z + o.Z} }
func (q Quat) Sub(o Quat) Quat { return Quat{q.W - o.W, q.X - o.X, q.Y - o.Y, q.Z - o.Z} }
func (q Quat) Scale(s float64) Quat { return Quat{q.W * s, q.X * s, q.Y * s, q.Z * s} }

// Mul is Hamilton quaternion product q*o (applies o first, then q).
func (q Quat) Mul(o Quat) Quat {
	return Quat{
		W: q.W*o.W - q.X*o.X - q.Y*o.Y - q.Z*o.Z,
		X: q.W*o.X + q.X*o.W + q.Y*o.Z - q.Z*o.Y,
		Y: q.W*o.Y - q.X*o.Z + q.Y*o.W + q.Z*o.X,
		Z: q.W*o.Z + q.X*o.Y - q.Y*o.X + q.Z*o.W,
	}
}

func (q Quat) Length2() float64 { return q.W*q.W + q.X*q.X + q.Y*q.Y + q.Z*q.Z }
func (q Quat) Length() float64  { return math.Sqrt(q.Length2()) }

// Normalized returns q scaled to unit length. If q is (numerically) the
// identity already (w>=1), returns the exact identity, matching the
// original's NormalizeFast clamp.
func (q Quat) Normalized() Quat {
	if q.W >= 1 {
		return IdentityQuat
	}
	l := q.Length()
	if l == 0 {
		return IdentityQuat
	}
	return q.Scale(1 / l)
}

// Conjugate negates the vector part; for a unit quaternion this equals Inverse.
func (q Quat) Conjugate() Quat { return Quat{q.W, -q.X, -q.Y, -q.Z} }

// Inverse returns the multiplicative inverse (for a unit quaternion, the conjugate).
func (q Quat) Inverse() Quat {
	l2 := q.Length2()
	if l2 == 0 {
		return IdentityQuat
	}
	return Quat{q.W / l2, -q.X / l2, -q.Y / l2, -q.Z / l2}
}

func (q Quat) ToVec() Vec3 { return Vec3{q.X, q.Y, q.Z} }

// Angle returns the rotation angle in radians represented by q (2*acos(w)).
func (q Quat) Angle() float64 {
	w := q.W
	if w > 1 {
		w = 1
	} else if w < -1 {
		w = -1
	}
	return 2 * math.Acos(w)
}

// IsSmallAngle reports whether this quaternion's rotation is below the
// small-angle threshold (used to decide whether link geometry may skip an
// explicit rotation in the link-local frame).
func (q Quat) IsSmallAngle() bool { return q.W > SmallAngleW }

// IsNegligibleAngle reports whether q represents essentially no rotation.
func (q Quat) IsNegligibleAngle() bool { return q.W > math.Cos(DiscardAngleRad/2) }

// Axis returns the (normalized) rotation axis of q, or +X if the angle is
// degenerate (square length of the vector part is non-positive).
func (q Quat) Axis() Vec3 {
	sqLen := 1 - q.W*q.W
	if sqLen <= 0 {
		return Vec3{1, 0, 0}
	}
	inv := 1 / math.Sqrt(sqLen)
	return Vec3{q.X * inv, q.Y * inv, q.Z * inv}
}

// ToRotationVector converts q to its equivalent rotation vector (axis scaled
// by angle), using the numerically stable dual-branch formula from the
// original engine: a sqrt-based approximation very close to +/-1 (where
// acos loses precision) and the exact acos-based formula otherwise. When w
// has rounded to exactly 1, twice the vector part (the small-angle limit)
// is returned, so rotations too small to move w still round-trip.
func (q Quat) ToRotationVector() Vec3 {
	w := q.W
	if w >= 1 {
		return Vec3{q.X * 2, q.Y * 2, q.Z * 2}
	}
	if w <= -1 {
		return Vec3{}
	}
	sqLen := 1 - w*w
	var angleOverSqLen float64
	if sqLen < SqLenThreshAcos2 {
		angleOverSqLen = 2 * math.Sqrt((2-2*w)/sqLen)
	} else {
		angleOverSqLen = 2 * math.Acos(w) / math.Sqrt(sqLen)
	}
	return Vec3{q.X * angleOverSqLen, q.Y * angleOverSqLen, q.Z * angleOverSqLen}
}

// FromRotationVector builds the unit quaternion equivalent to rotation
// vector v (direction = axis, length = angle in radians), using a second-order
// Taylor expansion very close to zero to avoid catastrophic cancellation in
// w, and the exact sin/cos formula otherwise.
func FromRotationVector(v Vec3) Quat {
	theta := v.Scale(0.5)
	thetaMag2 := theta.Length2()
	var w, s float64
	if thetaMag2*thetaMag2 < dblEpsilonx24 {
		w = 1 - 0.5*thetaMag2
		s = 1 - thetaMag2/6
	} else {
		thetaMag := math.Sqrt(thetaMag2)
		w = math.Cos(thetaMag)
		s = math.Sin(thetaMag) / thetaMag
	}
	return Quat{W: w, X: theta.X * s, Y: theta.Y * s, Z: theta.Z * s}
}

// FromAngleAxis builds a unit quaternion rotating by angle radians about axis.
func FromAngleAxis(angle float64, axis Vec3) Quat {
	n := axis.Normalized()
	half := angle / 2
	s := math.Sin(half)
	return Quat{W: math.Cos(half), X: n.X * s, Y: n.Y * s, Z: n.Z * s}
}

// FromAngleToPosX returns the minimum rotation that maps rotateFrom onto the
// +X axis. This is the specialized alignment routine used when a link
// leaves small-angle mode (lattice.Link.orientLink): it has dedicated
// branches near zero (small-angle Taylor, avoiding cancellation in w) and
// near pi (substituting a pure rotation about +Y), matching the original
// engine's Quat3D::FromAngleToPosX.
func FromAngleToPosX(rotateFrom Vec3) Quat {
	if rotateFrom.IsZero() {
		return IdentityQuat
	}

	if rotateFrom.Y == 0 && rotateFrom.Z == 0 {
		if rotateFrom.X >= 0 {
			return IdentityQuat
		}
		// 180 degrees about Y
		return Quat{W: 0, X: 0, Y: 1, Z: 0}
	}

	yOverX := rotateFrom.Y / rotateFrom.X
	zOverX := rotateFrom.Z / rotateFrom.X
	if math.Abs(yOverX) < SmallAngleRad && math.Abs(zOverX) < SmallAngleRad {
		y := 0.5 * zOverX
		z := -0.5 * yOverX
		w := 1 + 0.5*(-y*y-z*z)
		return Quat{W: w, X: 0, Y: y, Z: z}
	}

	n := rotateFrom.Normalized()
	theta := math.Acos(n.X)
	if theta > math.Pi-DiscardAngleRad {
		return Quat{W: 0, X: 0, Y: 1, Z: 0}
	}

	axisMagInv := 1 / math.Sqrt(n.Z*n.Z+n.Y*n.Y)
	half := theta / 2
	s := math.Sin(half) * axisMagInv
	return Quat{
		W: math.Cos(half),
		X: 0,
		Y: n.Z * s,
		Z: -n.Y * s,
	}
}

// RotateVec3D rotates v by q (sandwich product q*v*q^-1, expanded
// algebraically rather than via two Mul calls).
func (q Quat) RotateVec3D(v Vec3) Vec3 {
	x, y, z := v.X, v.Y, v.Z
	qw, qx, qy, qz := q.W, q.X, q.Y, q.Z

	// t = 2 * cross(q.xyz, v)
	tx := 2 * (qy*z - qz*y)
	ty := 2 * (qz*x - qx*z)
	tz := 2 * (qx*y - qy*x)

	return Vec3{
		X: x + qw*tx + (qy*tz - qz*ty),
		Y: y + qw*ty + (qz*tx - qx*tz),
		Z: z + qw*tz + (qx*ty - qy*tx),
	}
}

// RotateVec3DInv rotates v by the inverse of q.
func (q Quat) RotateVec3DInv(v Vec3) Vec3 {
	return q.Conjugate().RotateVec3D(v)
}
