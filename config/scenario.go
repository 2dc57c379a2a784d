package config

import (
	"encoding/json"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"

	"github.com/cpmech/voxelyze/lattice"
)

// VoxelIndex is a lattice coordinate as it appears in a scenario document.
type VoxelIndex struct {
	I, J, K int
}

// UnmarshalJSON accepts the document's compact [i,j,k] array encoding.
func (vi *VoxelIndex) UnmarshalJSON(b []byte) error {
	var a [3]int
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	vi.I, vi.J, vi.K = a[0], a[1], a[2]
	return nil
}

// MarshalJSON writes the compact [i,j,k] array encoding.
func (vi VoxelIndex) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]int{vi.I, vi.J, vi.K})
}

// VoxelPlacement is one entry of the scenario document's "voxels" array: a
// lattice coordinate and an index into the document's Materials array.
type VoxelPlacement struct {
	Index    VoxelIndex `json:"index"`
	Material int        `json:"material"`
}

// Scenario is the parsed form of a scenario document: a material catalog,
// an initial voxel placement, and a stage list of applied loads/boundary
// conditions, mirroring the teacher's Sim/Mat/function-definition split.
type Scenario struct {
	VoxelSize          float64 `json:"voxelSize"`
	AmbientTemperature float64 `json:"ambientTemperature"`
	Gravity            float64 `json:"gravity"`
	FloorEnabled       bool    `json:"floorEnabled"`
	CollisionsEnabled  bool    `json:"collisionsEnabled"`

	Functions FuncsData        `json:"functions"`
	Materials []MaterialData   `json:"materials"`
	Voxels    []VoxelPlacement `json:"voxels"`
	Stages    []StageData      `json:"stages"`
}

// Load reads and parses a scenario document from fn.
func Load(fn string) (*Scenario, error) {
	b, err := io.ReadFile(fn)
	if err != nil {
		return nil, chk.Err("config: cannot open scenario file %s: %v", fn, err)
	}
	var sc Scenario
	if err := json.Unmarshal(b, &sc); err != nil {
		return nil, chk.Err("config: cannot parse scenario file %s: %v", fn, err)
	}
	return &sc, nil
}

// Build constructs a Lattice from the scenario's material catalog and
// voxel placement, and resolves the stage list's named time functions
// into live fun.Func values ready for the sim orchestrator to drive.
func (sc *Scenario) Build() (*lattice.Lattice, []Stage, error) {
	lat, err := lattice.New(sc.VoxelSize)
	if err != nil {
		return nil, nil, err
	}
	lat.SetAmbientTemperature(sc.AmbientTemperature, false)
	lat.SetGravity(sc.Gravity)
	lat.EnableFloor(sc.FloorEnabled)
	lat.EnableCollisions(sc.CollisionsEnabled)

	handles := make([]int, len(sc.Materials))
	for i, md := range sc.Materials {
		h, err := lat.AddMaterialConfig(md.ToMaterialConfig())
		if err != nil {
			return nil, nil, chk.Err("config: material %q (index %d): %v", md.Name, i, err)
		}
		handles[i] = h
	}

	for _, vp := range sc.Voxels {
		if vp.Material < 0 || vp.Material >= len(handles) {
			return nil, nil, chk.Err("config: voxel %v references out-of-range material index %d", vp.Index, vp.Material)
		}
		if _, err := lat.SetVoxel(handles[vp.Material], vp.Index.I, vp.Index.J, vp.Index.K); err != nil {
			return nil, nil, chk.Err("config: voxel %v: %v", vp.Index, err)
		}
	}

	stages := make([]Stage, len(sc.Stages))
	for i, sd := range sc.Stages {
		st := Stage{Duration: sd.Duration, DtOut: sd.DtOut, Static: sd.Static}
		for _, ed := range sd.Externals {
			se, err := ed.resolve(sc.Functions)
			if err != nil {
				return nil, nil, chk.Err("config: stage %d: %v", i, err)
			}
			st.Externals = append(st.Externals, se)
		}
		stages[i] = st
	}

	return lat, stages, nil
}

// ApplyFixedBcs sets the fixed-DOF mask and prescribed translation/rotation
// for every voxel named by this external, leaving force/moment to be
// driven per-step from ForceFunc/MomentFunc by the caller.
func (se StageExternal) ApplyFixedBcs(lat *lattice.Lattice) error {
	for _, idx := range se.Voxels {
		ext := lat.External(idx.X, idx.Y, idx.Z)
		if ext == nil {
			return chk.Err("config: external references voxel %v which does not exist", idx)
		}
		ext.SetFixed(se.Fixed[0], se.Fixed[1], se.Fixed[2], se.Fixed[3], se.Fixed[4], se.Fixed[5])
		if se.Fixed[0] {
			ext.SetDisplacement(lattice.XTranslate, se.Translate.X)
		}
		if se.Fixed[1] {
			ext.SetDisplacement(lattice.YTranslate, se.Translate.Y)
		}
		if se.Fixed[2] {
			ext.SetDisplacement(lattice.ZTranslate, se.Translate.Z)
		}
		if se.Fixed[3] {
			ext.SetDisplacement(lattice.XRotate, se.Rotate.X)
		}
		if se.Fixed[4] {
			ext.SetDisplacement(lattice.YRotate, se.Rotate.Y)
		}
		if se.Fixed[5] {
			ext.SetDisplacement(lattice.ZRotate, se.Rotate.Z)
		}
	}
	return nil
}
