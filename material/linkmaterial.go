package material

import (
	"math"
	"sort"
)

// LinkMaterial is the synthetic material of a beam link joining two
// voxels made of (possibly different) VoxelMaterials: it combines their
// Young's moduli as springs in series, averages the remaining physical
// fields, and caches the beam stiffness constants a1/a2/b1/b2/b3 and their
// damping-coefficient roots.
//
// Ported from VX_MaterialLink.
type LinkMaterial struct {
	VoxelMaterial

	Mat1, Mat2 *VoxelMaterial

	A1, A2, B1, B2, B3 float64
	SqA1               float64
	SqA2xIp            float64
	SqB1               float64
	SqB2xFMp           float64
	SqB3xIp            float64
}

// CombineMaterials derives a LinkMaterial from two voxel materials,
// following the springs-in-series / averaging rules in SPEC_FULL.md §3.
func CombineMaterials(mat1, mat2 *VoxelMaterial) *LinkMaterial {
	lm := &LinkMaterial{Mat1: mat1, Mat2: mat2}
	lm.clear()
	mat1.AddDependent(lm)
	mat2.AddDependent(lm)
	lm.updateAll()
	return lm
}

// NotifyMaterialChanged re-derives this link material when either parent
// voxel material changes.
func (lm *LinkMaterial) NotifyMaterialChanged() { lm.updateAll() }

// updateAll recombines every field from Mat1/Mat2, following
// CVX_MaterialLink::updateAll.
func (lm *LinkMaterial) updateAll() {
	m1, m2 := lm.Mat1, lm.Mat2

	lm.Rho = 0.5 * (m1.Rho + m2.Rho)
	lm.CTE = 0.5 * (m1.CTE + m2.CTE)
	lm.MuStatic = 0.5 * (m1.MuStatic + m2.MuStatic)
	lm.MuKinetic = 0.5 * (m1.MuKinetic + m2.MuKinetic)
	lm.ZetaInternal = 0.5 * (m1.ZetaInternal + m2.ZetaInternal)
	lm.ZetaGlobal = 0.5 * (m1.ZetaGlobal + m2.ZetaGlobal)
	lm.ZetaCollision = 0.5 * (m1.ZetaCollision + m2.ZetaCollision)
	lm.NominalSize = 0.5 * (m1.NominalSize + m2.NominalSize)

	strain, stress := seriesCombine(m1, m2)
	lm.Strain = strain
	lm.Stress = stress
	lm.E = stress[1] / strain[1]

	failStrain := math.Min(failureOrInf(m1), failureOrInf(m2))
	if !math.IsInf(failStrain, 1) {
		lm.FailureStrain = failStrain
		lm.FailureDefined = true
	} else {
		lm.FailureDefined = false
	}
	lm.extractYield()

	// back-solve nu from the series-composed eHat: eHatSeries = 2*eHat1*eHat2/(eHat1+eHat2)
	eHat1, eHat2 := m1.EHat(), m2.EHat()
	var eHatSeries float64
	if eHat1+eHat2 > 0 {
		eHatSeries = 2 * eHat1 * eHat2 / (eHat1 + eHat2)
	}
	lm.Nu = solveNuFromEHat(lm.E, eHatSeries)
	lm.updateDerived()        // Material.eHat
	lm.updateDerivedVoxel()   // mass/inertia caches (rarely used on a link but kept consistent)
	lm.updateDerivedLink()
}

func failureOrInf(m *VoxelMaterial) float64 {
	if m.FailureDefined {
		return m.FailureStrain
	}
	return math.Inf(1)
}

// seriesCombine builds the piecewise E_eff(strain) = 2*E1(strain)*E2(strain)/(E1(strain)+E2(strain))
// curve sampled at the union of both materials' strain breakpoints.
func seriesCombine(m1, m2 *VoxelMaterial) (strain, stress []float64) {
	set := map[float64]bool{0: true}
	for _, s := range m1.Strain {
		set[s] = true
	}
	for _, s := range m2.Strain {
		set[s] = true
	}
	pts := make([]float64, 0, len(set))
	for s := range set {
		pts = append(pts, s)
	}
	sort.Float64s(pts)

	strain = make([]float64, 0, len(pts))
	stress = make([]float64, 0, len(pts))
	strain = append(strain, 0)
	stress = append(stress, 0)
	for _, eps := range pts {
		if eps == 0 {
			continue
		}
		e1 := m1.ModulusAt(eps)
		e2 := m2.ModulusAt(eps)
		var eEff float64
		if e1+e2 > 0 {
			eEff = 2 * e1 * e2 / (e1 + e2)
		}
		prevStrain := strain[len(strain)-1]
		prevStress := stress[len(stress)-1]
		strain = append(strain, eps)
		stress = append(stress, prevStress+eEff*(eps-prevStrain))
	}
	if len(strain) < 2 {
		strain = []float64{0, 1}
		stress = []float64{0, 0}
	}
	return
}

// solveNuFromEHat inverts eHat = E/((1-2nu)(1+nu)) for nu given E and the
// target eHat, via the quadratic 2*nu^2 + nu - (1 - E/eHat) = 0.
func solveNuFromEHat(e, eHat float64) float64 {
	if eHat <= 0 || e <= 0 {
		return 0
	}
	c := 1 - e/eHat
	// 2*nu^2 + nu - c = 0
	disc := 1 + 8*c
	if disc < 0 {
		return 0
	}
	nu := (-1 + math.Sqrt(disc)) / 4
	if nu < 0 {
		nu = 0
	}
	if nu >= 0.5 {
		nu = 0.5 - epsMachine2
	}
	return nu
}

// updateDerivedLink recomputes the beam stiffness constants a1/a2/b1/b2/b3
// and their damping-coefficient roots for a unit-cross-section cubic beam
// of length L = NominalSize, modulus E, Poisson's ratio Nu.
func (lm *LinkMaterial) updateDerivedLink() {
	l := lm.NominalSize
	e := lm.E
	nu := lm.Nu

	lm.A1 = e * l
	lm.A2 = e * l * l * l / (12 * (1 + nu))
	lm.B1 = e * l
	lm.B2 = e * l * l / 2
	lm.B3 = e * l * l * l / 6

	lm.SqA1 = math.Sqrt(math.Max(lm.A1, 0))
	lm.SqA2xIp = math.Sqrt(math.Max(lm.A2*l*l/6, 0))
	lm.SqB1 = math.Sqrt(math.Max(lm.B1, 0))
	lm.SqB2xFMp = math.Sqrt(math.Max(lm.B2*l/2, 0))
	lm.SqB3xIp = math.Sqrt(math.Max(lm.B3*l*l/6, 0))
}
