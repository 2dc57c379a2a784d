package material

import (
	"testing"

	"github.com/cpmech/gosl/chk"
)

func TestLinearMaterialStress(tst *testing.T) {
	m, err := NewLinear(2.5e6, 1200)
	if err != nil {
		tst.Fatal(err)
	}
	chk.Scalar(tst, "stress(0)", 1e-15, m.StressAt(0, 0, true), 0)
	for _, eps := range []float64{0, 0.001, 0.01, 0.1, 0.5} {
		chk.Scalar(tst, "stress(eps)", 1e-9, m.StressAt(eps, 0, true), m.E*eps)
	}
	chk.Scalar(tst, "E", 1e-15, m.E, 2.5e6)
}

func TestBilinearMaterial(tst *testing.T) {
	m, err := NewLinear(1, 1000)
	if err != nil {
		tst.Fatal(err)
	}
	if err := m.SetModelBilinear(1, 1, 0.5, 1.5); err != nil {
		tst.Fatal(err)
	}
	chk.Scalar(tst, "stress(yield)", 1e-12, m.StressAt(1, 0, false), 1)
	chk.Scalar(tst, "stress(1.5)", 1e-12, m.StressAt(1.5, 0, false), 1+0.5*0.5)
	if !m.IsYielded(1.2) {
		tst.Fatal("strain 1.2 should be past yield")
	}
	if m.IsYielded(0.5) {
		tst.Fatal("strain 0.5 should not be past yield")
	}
}

func TestRejectsInvalidModel(tst *testing.T) {
	m, err := NewLinear(1, 1000)
	if err != nil {
		tst.Fatal(err)
	}
	if err := m.SetModel([]float64{0, 1, 0.5}, []float64{0, 1, 2}); err == nil {
		tst.Fatal("non-monotone strain data must be rejected")
	}
	if _, err := NewLinear(0, 1000); err == nil {
		tst.Fatal("non-positive youngsModulus must be rejected")
	}
	if _, err := NewLinear(1, -1); err == nil {
		tst.Fatal("negative density must be rejected")
	}
}
