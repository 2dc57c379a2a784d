package lattice

import (
	"testing"

	"github.com/cpmech/gosl/chk"
)

func TestWriteReadJSONRoundTrip(tst *testing.T) {
	lat, err := New(0.02)
	if err != nil {
		tst.Fatal(err)
	}
	lat.SetAmbientTemperature(5, false)
	lat.SetGravity(0.5)
	lat.EnableFloor(true)
	lat.EnableCollisions(true)

	soft, err := lat.AddMaterial(1e5, 1000)
	if err != nil {
		tst.Fatal(err)
	}
	stiff, err := lat.AddMaterial(1e7, 2500)
	if err != nil {
		tst.Fatal(err)
	}

	if _, err := lat.SetVoxel(soft, 0, 0, 0); err != nil {
		tst.Fatal(err)
	}
	if _, err := lat.SetVoxel(stiff, 1, 0, 0); err != nil {
		tst.Fatal(err)
	}
	if _, err := lat.SetVoxel(soft, 2, 0, 0); err != nil {
		tst.Fatal(err)
	}

	lat.External(0, 0, 0).SetFixedAll(true)
	lat.External(2, 0, 0).SetFixedAll(true)

	data, err := lat.WriteJSON()
	if err != nil {
		tst.Fatal(err)
	}

	back, err := ReadJSON(data)
	if err != nil {
		tst.Fatalf("ReadJSON: %v\n--- document ---\n%s", err, data)
	}

	chk.Scalar(tst, "voxelSize", 1e-15, back.VoxelSize, lat.VoxelSize)
	chk.Scalar(tst, "ambientTemp", 1e-15, back.ambientTemp, lat.ambientTemp)
	chk.Scalar(tst, "gravityMult", 1e-15, back.gravityMult, lat.gravityMult)
	if back.floorEnabled != lat.floorEnabled {
		tst.Fatal("floorEnabled not preserved")
	}
	if back.collisionsEnabled != lat.collisionsEnabled {
		tst.Fatal("collisionsEnabled not preserved")
	}

	origVoxels, gotVoxels := lat.Voxels(), back.Voxels()
	if len(origVoxels) != len(gotVoxels) {
		tst.Fatalf("round-tripped %d voxels, want %d", len(gotVoxels), len(origVoxels))
	}

	for _, ov := range origVoxels {
		gv := findVoxel(tst, back, ov.Index.X, ov.Index.Y, ov.Index.Z)
		chk.Scalar(tst, "material E", 1e-6, gv.Mat.E, ov.Mat.E)
		chk.Scalar(tst, "material rho", 1e-9, gv.Mat.Rho, ov.Mat.Rho)

		wantFixed := ov.Ext != nil && ov.Ext.IsFixedAll()
		gotFixed := gv.Ext != nil && gv.Ext.IsFixedAll()
		if wantFixed != gotFixed {
			tst.Fatalf("voxel %v: fixed state not preserved (want %v, got %v)", ov.Index, wantFixed, gotFixed)
		}
	}
}

func TestReadJSONRejectsBadVoxelArrayLength(tst *testing.T) {
	bad := []byte(`{"voxelSize":0.01,"materials":[],"voxels":[0,0,0]}`)
	if _, err := ReadJSON(bad); err == nil {
		tst.Fatal("a voxels array whose length is not a multiple of 4 must be rejected")
	}
}

func TestReadJSONRejectsOutOfRangeMaterialIndex(tst *testing.T) {
	bad := []byte(`{"voxelSize":0.01,"materials":[],"voxels":[0,0,0,3]}`)
	if _, err := ReadJSON(bad); err == nil {
		tst.Fatal("a voxel referencing an out-of-range material index must be rejected")
	}
}

func findVoxel(tst *testing.T, lat *Lattice, i, j, k int) *Voxel {
	for _, v := range lat.Voxels() {
		if v.Index.X == i && v.Index.Y == j && v.Index.Z == k {
			return v
		}
	}
	tst.Fatalf("no voxel at (%d,%d,%d)", i, j, k)
	return nil
}
