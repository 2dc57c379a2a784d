// Command voxelyze-run loads a scenario document and drives it to
// completion, printing a colored progress trace and a final summary line.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"

	"github.com/cpmech/gosl/io"

	"github.com/cpmech/voxelyze/sim"
)

func main() {
	defer func() {
		if err := recover(); err != nil {
			io.PfRed("ERROR: %v\n", err)
			os.Exit(1)
		}
	}()

	quiet := flag.Bool("quiet", false, "suppress progress output")
	flag.Parse()

	if flag.NArg() < 1 {
		io.PfRed("usage: voxelyze-run [-quiet] <scenario.json>\n")
		os.Exit(1)
	}
	scenarioPath := flag.Arg(0)

	io.PfWhite("\nvoxelyze -- deformable cubic-lattice physics engine\n\n")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	summary, err := sim.Run(ctx, scenarioPath, sim.Options{Verbose: !*quiet})
	if err != nil {
		io.PfRed("ERROR: %v\n", err)
		os.Exit(1)
	}

	io.PfGreen("\ndone: %d stage(s), %d step(s), final time=%g\n", summary.Stages, summary.Steps, summary.FinalTime)
}
