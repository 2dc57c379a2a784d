package material

import (
	"testing"

	"github.com/cpmech/gosl/chk"
)

func TestCombinedMaterialSeriesModulus(tst *testing.T) {
	m1, err := NewVoxelMaterial(1e6, 1000, 0.01)
	if err != nil {
		tst.Fatal(err)
	}
	m2, err := NewVoxelMaterial(3e6, 1000, 0.01)
	if err != nil {
		tst.Fatal(err)
	}
	lm := CombineMaterials(m1, m2)

	wantInvE := 1/m1.E + 1/m2.E
	chk.Scalar(tst, "2/Ecombined", 1e-9, 2/lm.E, wantInvE)
}

func TestCombinedMaterialIdenticalInputs(tst *testing.T) {
	m, err := NewVoxelMaterial(2e6, 900, 0.005)
	if err != nil {
		tst.Fatal(err)
	}
	lm := CombineMaterials(m, m)
	chk.Scalar(tst, "E combined of identical materials", 1e-9, lm.E, m.E)
	chk.Scalar(tst, "rho averaged", 1e-12, lm.Rho, m.Rho)
}

func TestCombinedMaterialUpdatesOnParentChange(tst *testing.T) {
	m1, _ := NewVoxelMaterial(1e6, 1000, 0.01)
	m2, _ := NewVoxelMaterial(1e6, 1000, 0.01)
	lm := CombineMaterials(m1, m2)
	before := lm.E

	if err := m1.SetModelLinear(4e6); err != nil {
		tst.Fatal(err)
	}
	if lm.E == before {
		tst.Fatal("combined material must re-derive when a parent material changes")
	}
	chk.Scalar(tst, "2/Ecombined after change", 1e-9, 2/lm.E, 1/4e6+1/1e6)
}
