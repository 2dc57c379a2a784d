// Package config parses a scenario document (material catalog, initial
// voxel placement, and stage list of applied loads/boundary conditions)
// into a lattice.Lattice plus a resolved stage plan, mirroring the
// teacher's inp package's Sim/Mat/function-definition split.
package config

import (
	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/fun"
	"github.com/cpmech/gosl/utl"
)

// FuncData names one reusable time function, evaluated as f(t) during a
// stage: a constant, linear ramp, or sine, per the recognized fun.New
// type strings ("cte", "rmp", "sin", ...).
type FuncData struct {
	Name string   `json:"name"`
	Type string   `json:"type"`
	Prms fun.Prms `json:"prms"`
}

// FuncsData is the scenario's function table, looked up by name from
// stage external prescriptions.
type FuncsData []*FuncData

// Get resolves a function name to a fun.Func, special-casing "zero" and
// "" (absent) to the zero function exactly as the teacher's
// FuncsData.GetOrPanic does, but returning an error instead of panicking
// since a malformed scenario document is bad input, not a caller bug.
func (fs FuncsData) Get(name string) (fun.Func, error) {
	if name == "" || name == "zero" {
		return &fun.Zero, nil
	}
	names := make([]string, len(fs))
	for i, f := range fs {
		names[i] = f.Name
	}
	idx := utl.StrIndexSmall(names, name)
	if idx < 0 {
		return nil, chk.Err("config: no function named %q in functions table", name)
	}
	f := fs[idx]
	fn := fun.New(f.Type, f.Prms)
	if fn == nil {
		return nil, chk.Err("config: function %q has unrecognized type %q", f.Name, f.Type)
	}
	return fn, nil
}
