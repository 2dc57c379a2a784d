package solve

import (
	"context"
	"testing"

	"github.com/cpmech/gosl/chk"

	"github.com/cpmech/voxelyze/lattice"
	"github.com/cpmech/voxelyze/vecmath"
)

func twoVoxelBar(tst *testing.T) *lattice.Lattice {
	lat, err := lattice.New(0.01)
	if err != nil {
		tst.Fatal(err)
	}
	h, err := lat.AddMaterial(1e6, 1000)
	if err != nil {
		tst.Fatal(err)
	}
	if _, err := lat.SetVoxel(h, 0, 0, 0); err != nil {
		tst.Fatal(err)
	}
	if _, err := lat.SetVoxel(h, 1, 0, 0); err != nil {
		tst.Fatal(err)
	}
	lat.EnableFloor(false)
	lat.EnableCollisions(false)
	lat.SetGravity(0)
	return lat
}

func TestAssembleSizesSystemByVoxelCount(tst *testing.T) {
	lat := twoVoxelBar(tst)
	sys, err := Assemble(lat)
	if err != nil {
		tst.Fatal(err)
	}
	if sys.NDof() != 2*dofPerVoxel {
		tst.Fatalf("NDof() = %d, want %d", sys.NDof(), 2*dofPerVoxel)
	}
}

func TestAssembleRejectsEmptyLattice(tst *testing.T) {
	lat, err := lattice.New(0.01)
	if err != nil {
		tst.Fatal(err)
	}
	if _, err := Assemble(lat); err == nil {
		tst.Fatal("assembling an empty lattice must fail")
	}
}

// S1: two voxels joined by one axial link, voxel 0 fully fixed, voxel 1
// pulled by a pure axial force. The static solution must match the
// elementary bar formula x = F/k, k = E*A/L, exactly (within solver
// tolerance), since the system is linear-elastic at this strain level.
func TestSolveAxialPull(tst *testing.T) {
	lat := twoVoxelBar(tst)
	lat.External(0, 0, 0).SetFixedAll(true)

	links := lat.Links()
	if len(links) != 1 {
		tst.Fatalf("expected exactly one link, got %d", len(links))
	}
	link := links[0]
	link.UpdateForces()
	k := link.AxialStiffness()
	if k <= 0 {
		tst.Fatal("axial stiffness must be positive at zero strain")
	}

	const forceX = 10.0
	lat.External(1, 0, 0).SetForce(vecmath.NewVec3(forceX, 0, 0))

	if err := Solve(context.Background(), lat, nil); err != nil {
		tst.Fatal(err)
	}

	v1 := voxelAt(tst, lat, 1, 0, 0)
	want := forceX / k
	chk.Scalar(tst, "axial displacement", 1e-6*want, v1.Displacement().X, want)
	chk.Scalar(tst, "no transverse displacement", 1e-9, v1.Displacement().Y, 0)
	chk.Scalar(tst, "no transverse displacement", 1e-9, v1.Displacement().Z, 0)

	v0 := voxelAt(tst, lat, 0, 0, 0)
	if v0.Displacement().Length() != 0 {
		tst.Fatal("fixed voxel must not move")
	}
}

// Solve must reproduce a prescribed (non-zero) displacement exactly on a
// fixed DOF, per the elimination scheme's identity-row/column construction.
func TestSolveHonorsPrescribedDisplacement(tst *testing.T) {
	lat := twoVoxelBar(tst)
	lat.External(0, 0, 0).SetFixedAll(true)
	e1 := lat.External(1, 0, 0)
	e1.SetFixed(true, true, true, true, true, true)
	e1.SetDisplacement(lattice.XTranslate, 2e-4)

	if err := Solve(context.Background(), lat, nil); err != nil {
		tst.Fatal(err)
	}
	v1 := voxelAt(tst, lat, 1, 0, 0)
	chk.Scalar(tst, "prescribed displacement honored", 1e-12, v1.Displacement().X, 2e-4)
}

func TestSolveRespectsCancelledContext(tst *testing.T) {
	lat := twoVoxelBar(tst)
	lat.External(0, 0, 0).SetFixedAll(true)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Solve(ctx, lat, nil); err == nil {
		tst.Fatal("Solve must report the cancelled context instead of running the factorization")
	}
}

func voxelAt(tst *testing.T, lat *lattice.Lattice, i, j, k int) *lattice.Voxel {
	for _, v := range lat.Voxels() {
		if v.Index.X == i && v.Index.Y == j && v.Index.Z == k {
			return v
		}
	}
	tst.Fatalf("no voxel at (%d,%d,%d)", i, j, k)
	return nil
}
