package lattice

import (
	"testing"

	"github.com/cpmech/gosl/chk"

	"github.com/cpmech/voxelyze/vecmath"
)

func newTestLattice(tst *testing.T) (*Lattice, int) {
	lat, err := New(0.001)
	if err != nil {
		tst.Fatal(err)
	}
	h, err := lat.AddMaterial(1e6, 1000)
	if err != nil {
		tst.Fatal(err)
	}
	return lat, h
}

// Invariant 1 & 2: link/voxel index and back-reference agreement.
func TestLinkIndexAndBackrefInvariants(tst *testing.T) {
	lat, h := newTestLattice(tst)
	for i := 0; i < 3; i++ {
		for j := 0; j < 2; j++ {
			for k := 0; k < 2; k++ {
				if _, err := lat.SetVoxel(h, i, j, k); err != nil {
					tst.Fatal(err)
				}
			}
		}
	}

	for _, axis := range []Axis{AxisX, AxisY, AxisZ} {
		lat.links[axis].ForEach(func(_ Index3D, l *Link) {
			neg, pos := l.NegVoxel(), l.PosVoxel()
			var negIdx, posIdx [3]int
			negIdx = [3]int{neg.Index.X, neg.Index.Y, neg.Index.Z}
			posIdx = [3]int{pos.Index.X, pos.Index.Y, pos.Index.Z}
			if posIdx[axis]-negIdx[axis] != 1 {
				tst.Fatalf("link along axis %d: pos index %v is not one step ahead of neg index %v", axis, posIdx, negIdx)
			}
			for d := 0; d < 3; d++ {
				if d == int(axis) {
					continue
				}
				if negIdx[d] != posIdx[d] {
					tst.Fatalf("link along axis %d: endpoints disagree on axis %d (%v vs %v)", axis, d, negIdx, posIdx)
				}
			}
		})
	}

	lat.voxels.ForEach(func(_ Index3D, v *Voxel) {
		for _, d := range allDirections {
			l := v.Link(d)
			if l == nil {
				continue
			}
			expectPos := !d.IsNegative()
			if l.voxelPos(v) != expectPos {
				tst.Fatalf("voxel %v direction %v: link does not back-reference this voxel consistently", v.Index, d)
			}
		}
	})
}

// Invariant 3: SURFACE(v) iff any of the six link slots is empty.
func TestSurfaceInvariant(tst *testing.T) {
	lat, h := newTestLattice(tst)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			for k := 0; k < 3; k++ {
				if _, err := lat.SetVoxel(h, i, j, k); err != nil {
					tst.Fatal(err)
				}
			}
		}
	}
	center, err := lat.SetVoxel(h, 1, 1, 1)
	if err != nil {
		tst.Fatal(err)
	}
	if center.IsSurface() {
		tst.Fatal("fully surrounded voxel must not be reported as surface")
	}

	corner, err := lat.SetVoxel(h, 0, 0, 0)
	if err != nil {
		tst.Fatal(err)
	}
	if !corner.IsSurface() {
		tst.Fatal("corner voxel must be reported as surface")
	}

	lat.voxels.ForEach(func(_ Index3D, v *Voxel) {
		anyEmpty := false
		for _, d := range allDirections {
			if v.Link(d) == nil {
				anyEmpty = true
				break
			}
		}
		if anyEmpty != v.IsSurface() {
			tst.Fatalf("voxel %v: IsSurface()=%v disagrees with direct link-slot scan", v.Index, v.IsSurface())
		}
	})
}

// Invariant 7: ResetTime zeroes every voxel's pose/momenta and every
// link's force/moment/strain.
func TestResetTime(tst *testing.T) {
	lat, h := newTestLattice(tst)
	lat.SetVoxel(h, 0, 0, 0)
	v1, _ := lat.SetVoxel(h, 1, 0, 0)
	lat.External(0, 0, 0).SetFixedAll(true)
	lat.External(1, 0, 0).SetForce(vecmath.NewVec3(1e-3, 0, 0))

	for i := 0; i < 50; i++ {
		if err := lat.DoTimeStep(-1); err != nil {
			tst.Fatalf("step %d: %v", i, err)
		}
	}
	if v1.Pos == v1.OriginalPos {
		tst.Fatal("voxel should have moved before reset")
	}

	lat.ResetTime()
	lat.voxels.ForEach(func(_ Index3D, v *Voxel) {
		if v.Pos != v.OriginalPos {
			tst.Fatalf("voxel %v: position not reset", v.Index)
		}
		if !v.LinMom.IsZero() || !v.AngMom.IsZero() {
			tst.Fatalf("voxel %v: momenta not reset", v.Index)
		}
	})
	for axis := Axis(0); axis < 3; axis++ {
		lat.links[axis].ForEach(func(_ Index3D, l *Link) {
			if l.AxialStrain(true) != 0 || l.AxialStress() != 0 {
				tst.Fatal("link strain/stress not reset")
			}
			if !l.ForceOn(l.PosVoxel()).IsZero() {
				tst.Fatal("link force not reset")
			}
		})
	}
	chk.Scalar(tst, "currentTime after reset", 0, lat.CurrentTime(), 0)
}

// Invariant 8: recommended time step yields no amplitude growth in a
// 3-voxel undamped cantilever over many steps.
func TestRecommendedTimeStepStability(tst *testing.T) {
	lat, err := New(0.01)
	if err != nil {
		tst.Fatal(err)
	}
	h, err := lat.AddMaterialConfig(MaterialConfig{YoungsModulus: 1e6, Density: 1000, InternalDamping: 0, GlobalDamping: 0})
	if err != nil {
		tst.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if _, err := lat.SetVoxel(h, i, 0, 0); err != nil {
			tst.Fatal(err)
		}
	}
	lat.EnableFloor(false)
	lat.EnableCollisions(false)
	lat.SetGravity(0)
	lat.External(0, 0, 0).SetFixedAll(true)
	lat.External(2, 0, 0).SetFixed(false, false, true, false, false, false)
	lat.External(2, 0, 0).SetDisplacement(ZTranslate, 1e-5)

	dt := lat.RecommendedTimeStep()
	if dt <= 0 {
		tst.Fatal("recommended time step must be positive")
	}

	maxDisp := 0.0
	for i := 0; i < 10000; i++ {
		if err := lat.DoTimeStep(dt); err != nil {
			tst.Fatalf("step %d: diverged: %v", i, err)
		}
		d := lat.StateInfo(QuantityDisplacement, ReductionMax)
		if d > maxDisp {
			maxDisp = d
		}
		if d > 1e-2 {
			tst.Fatalf("step %d: displacement %g blew up, recommended dt is not stable", i, d)
		}
	}
}
