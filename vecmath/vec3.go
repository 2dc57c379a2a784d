// Package vecmath provides the 3-vector and unit-quaternion kernel that every
// other package in this module builds on: positions, forces, moments, and
// rigid-body orientations all flow through Vec3 and Quat.
package vecmath

import "math"

// Vec3 is a 3-component vector used for positions, forces, moments, momenta
// and rotation vectors throughout the lattice.
type Vec3 struct {
	X, Y, Z float64
}

// Zero3 is the additive identity. Comparisons against it may use exact
// equality (see Vec3.IsZero) since it is a literal constant, never the
// result of two independently-accumulated floating point computations.
var Zero3 = Vec3{}

func NewVec3(x, y, z float64) Vec3 { return Vec3{x, y, z} }

func (v Vec3) Add(o Vec3) Vec3 { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }
func (v Vec3) Sub(o Vec3) Vec3 { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }
func (v Vec3) Scale(s float64) Vec3 { return Vec3{v.X * s, v.Y * s, v.Z * s} }
func (v Vec3) Neg() Vec3 { return Vec3{-v.X, -v.Y, -v.Z} }

// IsZero tests exact (bitwise) equality against the zero vector. Valid only
// when comparing against the literal zero sentinel, per the open-question
// resolution in SPEC_FULL.md §9 — never use this to compare two
// independently-computed vectors.
func (v Vec3) IsZero() bool { return v.X == 0 && v.Y == 0 && v.Z == 0 }

func (v Vec3) Dot(o Vec3) float64 { return v.X*o.X + v.Y*o.Y + v.Z*o.Z }

func (v Vec3) Cross(o Vec3) Vec3 {
	return Vec3{
		v.Y*o.Z - v.Z*o.Y,
		v.Z*o.X - v.X*o.Z,
		v.X*o.Y - v.Y*o.X,
	}
}

func (v Vec3) Length2() float64 { return v.Dot(v) }
func (v Vec3) Length() float64  { return math.Sqrt(v.Length2()) }

func (v Vec3) Dist(o Vec3) float64  { return v.Sub(o).Length() }
func (v Vec3) Dist2(o Vec3) float64 { return v.Sub(o).Length2() }

// Normalized returns v scaled to unit length, or the zero vector if v is
// (numerically) zero length.
func (v Vec3) Normalized() Vec3 {
	l := v.Length()
	if l == 0 {
		return Vec3{}
	}
	return v.Scale(1 / l)
}

// ArbitraryNormal returns some unit vector perpendicular to v, used when v
// is degenerate (zero-length) and an axis is still needed.
func (v Vec3) ArbitraryNormal() Vec3 {
	n := v.Normalized()
	if n.IsZero() {
		return Vec3{1, 0, 0}
	}
	var candidate Vec3
	// pick the coordinate axis least aligned with n to cross against
	if math.Abs(n.X) <= math.Abs(n.Y) && math.Abs(n.X) <= math.Abs(n.Z) {
		candidate = Vec3{1, 0, 0}
	} else if math.Abs(n.Y) <= math.Abs(n.Z) {
		candidate = Vec3{0, 1, 0}
	} else {
		candidate = Vec3{0, 0, 1}
	}
	return n.Cross(candidate).Normalized()
}

// AlignWith returns the angle (radians) and rotation axis that would rotate
// v onto target (both need not be normalized; only directions matter).
func (v Vec3) AlignWith(target Vec3) (angle float64, axis Vec3) {
	vn, tn := v.Normalized(), target.Normalized()
	d := vn.Dot(tn)
	if d > 1 {
		d = 1
	} else if d < -1 {
		d = -1
	}
	angle = math.Acos(d)
	axis = vn.Cross(tn)
	if axis.IsZero() {
		axis = vn.ArbitraryNormal()
	} else {
		axis = axis.Normalized()
	}
	return
}

// Rot rotates v about axis (need not be normalized) by angle radians using
// Rodrigues' rotation formula.
func (v Vec3) Rot(axis Vec3, angle float64) Vec3 {
	if angle == 0 {
		return v
	}
	k := axis.Normalized()
	if k.IsZero() {
		return v
	}
	s, c := math.Sin(angle), math.Cos(angle)
	return v.Scale(c).Add(k.Cross(v).Scale(s)).Add(k.Scale(k.Dot(v) * (1 - c)))
}
