package vecmath

import (
	"math"
	"testing"

	"github.com/cpmech/gosl/chk"
)

func TestVec3Basics(tst *testing.T) {
	a := NewVec3(1, 2, 3)
	b := NewVec3(4, -5, 6)

	chk.Scalar(tst, "dot", 1e-15, a.Dot(b), 4-10+18)

	c := a.Cross(b)
	chk.Scalar(tst, "cross.x", 1e-15, c.X, 2*6-3*(-5))
	chk.Scalar(tst, "cross.y", 1e-15, c.Y, 3*4-1*6)
	chk.Scalar(tst, "cross.z", 1e-15, c.Z, 1*(-5)-2*4)

	if !Zero3.IsZero() {
		tst.Fatal("Zero3 must be its own zero sentinel")
	}
	if a.Sub(a).IsZero() == false {
		tst.Fatal("a-a must be exactly zero")
	}
}

func TestVec3Normalized(tst *testing.T) {
	v := NewVec3(3, 0, 4)
	n := v.Normalized()
	chk.Scalar(tst, "|n|", 1e-15, n.Length(), 1)
	chk.Scalar(tst, "n.x", 1e-15, n.X, 0.6)
	chk.Scalar(tst, "n.y", 1e-15, n.Y, 0)
	chk.Scalar(tst, "n.z", 1e-15, n.Z, 0.8)

	if !(Vec3{}).Normalized().IsZero() {
		tst.Fatal("normalizing the zero vector must return zero, not NaN")
	}
}

func TestVec3Rot(tst *testing.T) {
	v := NewVec3(1, 0, 0)
	r := v.Rot(NewVec3(0, 0, 1), math.Pi/2)
	chk.Scalar(tst, "rot.x", 1e-12, r.X, 0)
	chk.Scalar(tst, "rot.y", 1e-12, r.Y, 1)
	chk.Scalar(tst, "rot.z", 1e-12, r.Z, 0)
}

func TestVec3AlignWith(tst *testing.T) {
	angle, axis := NewVec3(1, 0, 0).AlignWith(NewVec3(0, 1, 0))
	chk.Scalar(tst, "angle", 1e-12, angle, math.Pi/2)
	chk.Scalar(tst, "axis.z", 1e-12, axis.Z, 1)
}
