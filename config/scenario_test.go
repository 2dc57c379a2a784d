package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/cpmech/gosl/chk"
)

func TestVoxelIndexCompactJSON(tst *testing.T) {
	vi := VoxelIndex{I: 2, J: -1, K: 5}
	b, err := json.Marshal(vi)
	if err != nil {
		tst.Fatal(err)
	}
	if string(b) != "[2,-1,5]" {
		tst.Fatalf("VoxelIndex marshaled as %s, want [2,-1,5]", b)
	}
	var back VoxelIndex
	if err := json.Unmarshal(b, &back); err != nil {
		tst.Fatal(err)
	}
	if back != vi {
		tst.Fatalf("round trip gave %v, want %v", back, vi)
	}
}

func TestFuncsDataGetZeroAndMissing(tst *testing.T) {
	var fs FuncsData
	zero, err := fs.Get("")
	if err != nil {
		tst.Fatal(err)
	}
	if zero.F(5, nil) != 0 {
		tst.Fatal("empty function name must resolve to the zero function")
	}
	zero2, err := fs.Get("zero")
	if err != nil {
		tst.Fatal(err)
	}
	if zero2.F(123, nil) != 0 {
		tst.Fatal("\"zero\" must resolve to the zero function")
	}
	if _, err := fs.Get("nope"); err == nil {
		tst.Fatal("looking up an undefined function name must fail")
	}
}

func TestMaterialDataToMaterialConfig(tst *testing.T) {
	md := MaterialData{Name: "rubber", YoungsModulus: 2e6, Density: 1100, PoissonsRatio: 0.3}
	cfg := md.ToMaterialConfig()
	chk.Scalar(tst, "youngsModulus", 1e-12, cfg.YoungsModulus, md.YoungsModulus)
	chk.Scalar(tst, "density", 1e-12, cfg.Density, md.Density)
	chk.Scalar(tst, "poissonsRatio", 1e-12, cfg.PoissonsRatio, md.PoissonsRatio)
	if cfg.Name != md.Name {
		tst.Fatalf("Name = %q, want %q", cfg.Name, md.Name)
	}
}

func twoMaterialScenario() *Scenario {
	return &Scenario{
		VoxelSize: 0.01,
		Gravity:   0,
		Materials: []MaterialData{
			{Name: "soft", YoungsModulus: 1e5, Density: 1000},
			{Name: "stiff", YoungsModulus: 1e7, Density: 2000},
		},
		Voxels: []VoxelPlacement{
			{Index: VoxelIndex{I: 0, J: 0, K: 0}, Material: 0},
			{Index: VoxelIndex{I: 1, J: 0, K: 0}, Material: 1},
		},
		Stages: []StageData{
			{
				Duration: 1,
				DtOut:    0.5,
				Externals: []ExternalData{
					{
						Voxels: []VoxelIndex{{I: 0, J: 0, K: 0}},
						Fixed:  [6]bool{true, true, true, true, true, true},
					},
				},
			},
		},
	}
}

func TestScenarioBuild(tst *testing.T) {
	sc := twoMaterialScenario()
	lat, stages, err := sc.Build()
	if err != nil {
		tst.Fatal(err)
	}
	if len(lat.Voxels()) != 2 {
		tst.Fatalf("built lattice has %d voxels, want 2", len(lat.Voxels()))
	}
	if len(stages) != 1 {
		tst.Fatalf("resolved %d stages, want 1", len(stages))
	}
	st := stages[0]
	chk.Scalar(tst, "stage duration", 1e-12, st.Duration, 1)
	chk.Scalar(tst, "stage dtOut", 1e-12, st.DtOut, 0.5)
	if len(st.Externals) != 1 {
		tst.Fatalf("stage has %d externals, want 1", len(st.Externals))
	}
	ext := st.Externals[0]
	if len(ext.Voxels) != 1 || ext.Voxels[0].X != 0 || ext.Voxels[0].Y != 0 || ext.Voxels[0].Z != 0 {
		tst.Fatalf("unexpected resolved external voxel list: %v", ext.Voxels)
	}
	force, moment := ext.ValueAt(0.3)
	if !force.IsZero() || !moment.IsZero() {
		tst.Fatal("an external with no forceFunc/momentFunc must resolve to the zero function on every axis")
	}

	if err := ext.ApplyFixedBcs(lat); err != nil {
		tst.Fatal(err)
	}
	fixedVoxel := lat.External(0, 0, 0)
	if !fixedVoxel.IsFixedAll() {
		tst.Fatal("ApplyFixedBcs must fix every DOF named by the external")
	}
}

func TestScenarioBuildRejectsOutOfRangeMaterial(tst *testing.T) {
	sc := twoMaterialScenario()
	sc.Voxels = append(sc.Voxels, VoxelPlacement{Index: VoxelIndex{I: 2, J: 0, K: 0}, Material: 7})
	if _, _, err := sc.Build(); err == nil {
		tst.Fatal("a voxel referencing an out-of-range material index must be rejected")
	}
}

func TestLoadRoundTrip(tst *testing.T) {
	sc := twoMaterialScenario()
	b, err := json.Marshal(sc)
	if err != nil {
		tst.Fatal(err)
	}
	dir := tst.TempDir()
	fn := filepath.Join(dir, "scenario.json")
	if err := os.WriteFile(fn, b, 0644); err != nil {
		tst.Fatal(err)
	}

	loaded, err := Load(fn)
	if err != nil {
		tst.Fatal(err)
	}
	chk.Scalar(tst, "voxelSize", 1e-12, loaded.VoxelSize, sc.VoxelSize)
	if len(loaded.Materials) != len(sc.Materials) {
		tst.Fatalf("loaded %d materials, want %d", len(loaded.Materials), len(sc.Materials))
	}
	if len(loaded.Voxels) != len(sc.Voxels) {
		tst.Fatalf("loaded %d voxels, want %d", len(loaded.Voxels), len(sc.Voxels))
	}
}

func TestLoadMissingFile(tst *testing.T) {
	if _, err := Load(filepath.Join(tst.TempDir(), "does-not-exist.json")); err == nil {
		tst.Fatal("loading a nonexistent scenario file must fail")
	}
}
