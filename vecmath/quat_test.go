package vecmath

import (
	"math"
	"testing"

	"github.com/cpmech/gosl/chk"
)

func TestRotationVectorRoundTrip(tst *testing.T) {
	axes := []Vec3{
		NewVec3(1, 0, 0),
		NewVec3(0, 1, 0),
		NewVec3(0, 0, 1),
		NewVec3(1, 1, 1).Normalized(),
		NewVec3(1, -2, 3).Normalized(),
	}
	magnitudes := []float64{0, 1e-8, 1e-6, 1e-3, 1e-2, 0.1, 1, 2, 3, math.Pi - 1e-6}

	for _, axis := range axes {
		for _, mag := range magnitudes {
			rv := axis.Scale(mag)
			q := FromRotationVector(rv)
			chk.Scalar(tst, "|q|", 1e-10, q.Length(), 1)

			back := q.ToRotationVector()
			if mag < 1e-9 {
				if back.Length() > 1e-6 {
					tst.Fatalf("near-zero rotation vector %v round-tripped to %v", rv, back)
				}
				continue
			}
			relErr := back.Sub(rv).Length() / mag
			if relErr > 1e-4 {
				tst.Fatalf("round trip of %v (mag=%g) gave %v, relative error %g > 1e-4", rv, mag, back, relErr)
			}
		}
	}
}

func TestFromAngleToPosX(tst *testing.T) {
	q := FromAngleToPosX(NewVec3(1, 0, 0))
	chk.Scalar(tst, "identity.w", 1e-15, q.W, 1)

	q2 := FromAngleToPosX(NewVec3(-1, 0, 0))
	rotated := q2.RotateVec3D(NewVec3(-1, 0, 0))
	chk.Scalar(tst, "180deg.x", 1e-10, rotated.X, 1)

	for _, v := range []Vec3{NewVec3(1, 0.01, -0.02), NewVec3(0.5, 1, 1), NewVec3(-0.3, 0.9, -0.4)} {
		q3 := FromAngleToPosX(v)
		got := q3.RotateVec3D(v.Normalized())
		chk.Scalar(tst, "aligned.x", 1e-9, got.X, 1)
		chk.Scalar(tst, "aligned.y", 1e-9, got.Y, 0)
		chk.Scalar(tst, "aligned.z", 1e-9, got.Z, 0)
	}
}

func TestQuatMulInverse(tst *testing.T) {
	q := FromRotationVector(NewVec3(0.3, -0.2, 0.5))
	id := q.Mul(q.Inverse())
	chk.Scalar(tst, "q*q^-1.w", 1e-12, id.W, 1)
	chk.Scalar(tst, "q*q^-1.x", 1e-12, id.X, 0)
	chk.Scalar(tst, "q*q^-1.y", 1e-12, id.Y, 0)
	chk.Scalar(tst, "q*q^-1.z", 1e-12, id.Z, 0)
}
