// Package sim is the batch-run orchestrator: it loads a scenario document,
// builds the lattice it describes, and drives it stage by stage, mirroring
// the teacher's fem.Start/fem.Run split (fem/solver.go).
package sim

import (
	"context"
	"time"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"

	"github.com/cpmech/voxelyze/config"
	"github.com/cpmech/voxelyze/lattice"
	"github.com/cpmech/voxelyze/solve"
)

// Options controls a Run invocation.
type Options struct {
	Verbose bool
}

// Summary is returned by Run on success: the final simulated time and
// step count, for the CLI driver's closing message.
type Summary struct {
	Stages    int
	Steps     int
	FinalTime float64
}

// Run loads the scenario at scenarioPath, builds its lattice, and advances
// it stage by stage to completion, applying each stage's fixed-DOF/
// prescribed-pose boundary conditions once at stage entry and re-evaluating
// its force/moment time functions every step. A stage marked Static instead
// evaluates its externals once and runs the direct linear solver (the
// scenario-level surface for DoLinearSolve, §4.9). Returns on the first
// DoTimeStep divergence, the first solver failure, or on ctx cancellation.
func Run(ctx context.Context, scenarioPath string, opts Options) (Summary, error) {
	sc, err := config.Load(scenarioPath)
	if err != nil {
		return Summary{}, err
	}

	lat, stages, err := sc.Build()
	if err != nil {
		return Summary{}, err
	}

	if opts.Verbose {
		io.Pf("voxelyze: loaded %q (%d materials, %d voxels, %d stages)\n",
			scenarioPath, len(sc.Materials), len(sc.Voxels), len(stages))
	}

	var steps int
	start := time.Now()
	for stgIdx, stage := range stages {
		if err := ctx.Err(); err != nil {
			return Summary{}, err
		}
		if opts.Verbose {
			io.PfYel("stage %d/%d: duration=%g dtOut=%g\n", stgIdx+1, len(stages), stage.Duration, stage.DtOut)
		}
		for _, ext := range stage.Externals {
			if err := ext.ApplyFixedBcs(lat); err != nil {
				return Summary{}, err
			}
		}

		if stage.Static {
			for _, ext := range stage.Externals {
				force, moment := ext.ValueAt(0)
				for _, idx := range ext.Voxels {
					e := lat.External(idx.X, idx.Y, idx.Z)
					if e == nil {
						return Summary{}, chk.Err("stage %d: external references voxel %v which does not exist", stgIdx, idx)
					}
					e.SetForce(force)
					e.SetMoment(moment)
				}
			}
			if err := solve.Solve(ctx, lat, nil); err != nil {
				return Summary{}, err
			}
			continue
		}

		stageTime := 0.0
		nextOut := stage.DtOut
		for stageTime < stage.Duration {
			if err := ctx.Err(); err != nil {
				return Summary{}, err
			}

			dt := lat.RecommendedTimeStep()
			if dt <= 0 {
				return Summary{}, chk.Err("stage %d: recommended time step is non-positive; lattice has no mass to integrate", stgIdx)
			}
			if stageTime+dt > stage.Duration {
				dt = stage.Duration - stageTime
			}

			for _, ext := range stage.Externals {
				force, moment := ext.ValueAt(stageTime)
				for _, idx := range ext.Voxels {
					e := lat.External(idx.X, idx.Y, idx.Z)
					if e == nil {
						return Summary{}, chk.Err("stage %d: external references voxel %v which does not exist", stgIdx, idx)
					}
					e.SetForce(force)
					e.SetMoment(moment)
				}
			}

			if err := lat.DoTimeStep(dt); err != nil {
				return Summary{}, err
			}
			stageTime += dt
			steps++

			if opts.Verbose && stageTime >= nextOut {
				io.Pf("  t=%-10.6g maxLinkStrain=%-10.6g kinetic=%-10.6g\n",
					stageTime,
					lat.StateInfo(lattice.QuantityLinkAxialStrain, lattice.ReductionMax),
					lat.StateInfo(lattice.QuantityKineticEnergy, lattice.ReductionTotal))
				nextOut += stage.DtOut
			}
		}
	}

	if opts.Verbose {
		io.PfGreen("voxelyze: completed %d stage(s), %d step(s) in %v\n", len(stages), steps, time.Since(start))
	}

	return Summary{Stages: len(stages), Steps: steps, FinalTime: lat.CurrentTime()}, nil
}
