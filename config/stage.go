package config

import (
	"github.com/cpmech/gosl/fun"

	"github.com/cpmech/voxelyze/lattice"
	"github.com/cpmech/voxelyze/vecmath"
)

// ExternalData is one entry of a stage's "externals" array: a boundary
// condition shared by every voxel listed in Voxels, whose force/moment
// components may each be driven by a named time function.
type ExternalData struct {
	Voxels []VoxelIndex `json:"voxels"`

	Fixed     [6]bool    `json:"fixed"`
	Translate [3]float64 `json:"translate"`
	Rotate    [3]float64 `json:"rotate"`

	ForceFunc  [3]string `json:"forceFunc"`
	MomentFunc [3]string `json:"momentFunc"`
}

// StageData is one entry of the scenario document's "stages" array: a
// duration, an output interval, and the externals applied during it. A
// stage with Static set skips time-stepping: its externals' force/moment
// functions are evaluated once at t=0 and handed to the direct linear
// solver instead (the scenario-level surface for DoLinearSolve, §4.9).
type StageData struct {
	Duration  float64        `json:"duration"`
	DtOut     float64        `json:"dtOut"`
	Static    bool           `json:"static"`
	Externals []ExternalData `json:"externals"`
}

// StageExternal is a resolved ExternalData: function names have been
// looked up into live fun.Func values, ready to be evaluated at the
// stage-local time each step.
type StageExternal struct {
	Voxels []lattice.Index3D

	Fixed     [6]bool
	Translate vecmath.Vec3
	Rotate    vecmath.Vec3

	ForceFunc  [3]fun.Func
	MomentFunc [3]fun.Func
}

// Stage is a resolved StageData, ready for the sim orchestrator to drive.
type Stage struct {
	Duration  float64
	DtOut     float64
	Static    bool
	Externals []StageExternal
}

// ValueAt evaluates this external's prescribed force and moment at
// stage-local time t.
func (se StageExternal) ValueAt(t float64) (force, moment vecmath.Vec3) {
	force = vecmath.Vec3{
		X: se.ForceFunc[0].F(t, nil),
		Y: se.ForceFunc[1].F(t, nil),
		Z: se.ForceFunc[2].F(t, nil),
	}
	moment = vecmath.Vec3{
		X: se.MomentFunc[0].F(t, nil),
		Y: se.MomentFunc[1].F(t, nil),
		Z: se.MomentFunc[2].F(t, nil),
	}
	return
}

// resolve looks up this external's named functions in the scenario's
// function table and converts its plain-array fields to vecmath types.
func (ed ExternalData) resolve(funcs FuncsData) (StageExternal, error) {
	se := StageExternal{
		Fixed:     ed.Fixed,
		Translate: vecmath.NewVec3(ed.Translate[0], ed.Translate[1], ed.Translate[2]),
		Rotate:    vecmath.NewVec3(ed.Rotate[0], ed.Rotate[1], ed.Rotate[2]),
	}
	for _, vi := range ed.Voxels {
		se.Voxels = append(se.Voxels, lattice.NewIndex3D(vi.I, vi.J, vi.K))
	}
	for axis := 0; axis < 3; axis++ {
		ff, err := funcs.Get(ed.ForceFunc[axis])
		if err != nil {
			return StageExternal{}, err
		}
		se.ForceFunc[axis] = ff
		mf, err := funcs.Get(ed.MomentFunc[axis])
		if err != nil {
			return StageExternal{}, err
		}
		se.MomentFunc[axis] = mf
	}
	return se, nil
}
