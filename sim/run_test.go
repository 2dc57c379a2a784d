package sim

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/cpmech/gosl/chk"
)

const twoVoxelScenario = `{
  "voxelSize": 0.01,
  "gravity": 0,
  "materials": [
    {"name": "soft", "youngsModulus": 1e6, "density": 1000}
  ],
  "voxels": [
    {"index": [0,0,0], "material": 0},
    {"index": [1,0,0], "material": 0}
  ],
  "stages": [
    {
      "duration": 0.01,
      "dtOut": 0.005,
      "externals": [
        {"voxels": [[0,0,0]], "fixed": [true,true,true,true,true,true]}
      ]
    }
  ]
}`

func writeScenario(tst *testing.T, contents string) string {
	dir := tst.TempDir()
	fn := filepath.Join(dir, "scenario.json")
	if err := os.WriteFile(fn, []byte(contents), 0644); err != nil {
		tst.Fatal(err)
	}
	return fn
}

func TestRunCompletesStagesAndReportsSummary(tst *testing.T) {
	fn := writeScenario(tst, twoVoxelScenario)
	summary, err := Run(context.Background(), fn, Options{})
	if err != nil {
		tst.Fatal(err)
	}
	if summary.Stages != 1 {
		tst.Fatalf("Stages = %d, want 1", summary.Stages)
	}
	if summary.Steps <= 0 {
		tst.Fatal("Steps must be positive for a nonzero-duration stage")
	}
	chk.Scalar(tst, "finalTime", 1e-9, summary.FinalTime, 0.01)
}

const staticAxialScenario = `{
  "voxelSize": 0.01,
  "gravity": 0,
  "materials": [
    {"name": "soft", "youngsModulus": 1e6, "density": 1000}
  ],
  "voxels": [
    {"index": [0,0,0], "material": 0},
    {"index": [1,0,0], "material": 0}
  ],
  "stages": [
    {
      "static": true,
      "externals": [
        {"voxels": [[0,0,0]], "fixed": [true,true,true,true,true,true]}
      ]
    }
  ]
}`

func TestRunStaticStageSolvesInOneShot(tst *testing.T) {
	fn := writeScenario(tst, staticAxialScenario)
	summary, err := Run(context.Background(), fn, Options{})
	if err != nil {
		tst.Fatal(err)
	}
	if summary.Stages != 1 {
		tst.Fatalf("Stages = %d, want 1", summary.Stages)
	}
	if summary.Steps != 0 {
		tst.Fatalf("a static stage must not advance the time-stepping step counter, got %d", summary.Steps)
	}
}

func TestRunRejectsMissingScenarioFile(tst *testing.T) {
	if _, err := Run(context.Background(), filepath.Join(tst.TempDir(), "nope.json"), Options{}); err == nil {
		tst.Fatal("Run must fail for a nonexistent scenario file")
	}
}

func TestRunHonorsCancelledContext(tst *testing.T) {
	fn := writeScenario(tst, twoVoxelScenario)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Run(ctx, fn, Options{}); err == nil {
		tst.Fatal("Run must report the cancelled context instead of running any stage")
	}
}
