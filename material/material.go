// Package material implements the constitutive model of a voxel material: a
// piecewise-linear stress/strain curve with optional yield and failure
// points, plus the damping, friction, thermal and volumetric-coupling
// parameters shared by every voxel made of it.
//
// Ported from the original engine's VX_Material (CVX_Material): the stress,
// strain, modulus and yield-extraction algorithms below reproduce that
// class's behavior segment-for-segment.
package material

import (
	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/fun"
)

// epsMachine2 is twice the float64 machine epsilon, used to clamp Poisson's
// ratio strictly below 0.5 the way the original engine does.
const epsMachine2 = 2 * 2.220446049250313e-16

// Color is an optional RGBA tag on a material, purely descriptive.
type Color struct {
	R, G, B, A float64
}

// Material is the constitutive model and thermal/friction/damping
// parameters of a voxel (or, once combined, of a link — see
// material.LinkMaterial).
type Material struct {
	Name string

	HasColor bool
	Color    Color

	// Strain and Stress hold the piecewise stress/strain curve. Strain[0]
	// and Stress[0] are always exactly (0,0). E is the first-segment
	// (elastic) slope, i.e. E = Stress[1]/Strain[1].
	Strain []float64
	Stress []float64
	E      float64

	YieldStrain   float64
	YieldDefined  bool
	FailureStrain float64
	FailureDefined bool

	Nu  float64 // Poisson's ratio, in [0, 0.5)
	Rho float64 // density, kg/m^3
	CTE float64 // coefficient of thermal expansion

	MuStatic  float64
	MuKinetic float64

	ZetaInternal  float64
	ZetaGlobal    float64
	ZetaCollision float64

	ExternalScaleFactor [3]float64 // per-axis scale, default (1,1,1)

	// eHat is the cached effective modulus E/((1-2nu)(1+nu)) used by the
	// volumetric (Poisson) stress term.
	eHat float64

	dependents []Notifiable
}

// Notifiable is implemented by derived materials (LinkMaterial) that must
// recompute their cached values whenever a parent Material changes.
type Notifiable interface {
	NotifyMaterialChanged()
}

// NewLinear constructs a material with a purely linear elastic model,
// density rho, and default friction/damping/Poisson parameters.
func NewLinear(youngsModulus, density float64) (*Material, error) {
	m := &Material{}
	m.clear()
	if err := m.SetModelLinear(youngsModulus); err != nil {
		return nil, err
	}
	if err := m.SetDensity(density); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Material) clear() {
	m.Name = ""
	m.HasColor = false
	m.Strain = []float64{0, 1}
	m.Stress = []float64{0, 1}
	m.E = 1
	m.YieldDefined = false
	m.FailureDefined = false
	m.Nu = 0
	m.Rho = 1e3
	m.CTE = 0
	m.MuStatic = 0
	m.MuKinetic = 0
	m.ZetaInternal = 1
	m.ZetaGlobal = 0
	m.ZetaCollision = 1
	m.ExternalScaleFactor = [3]float64{1, 1, 1}
	m.updateDerived()
}

// Params exposes the material's physical parameters as a gosl/fun.Prms
// table, following the msolid convention (every constitutive model in the
// teacher corpus exposes GetPrms() []*fun.Prm / accepts Init(..., fun.Prms)).
func (m *Material) Params() fun.Prms {
	return fun.Prms{
		&fun.Prm{N: "E", V: m.E},
		&fun.Prm{N: "rho", V: m.Rho},
		&fun.Prm{N: "nu", V: m.Nu},
		&fun.Prm{N: "cte", V: m.CTE},
		&fun.Prm{N: "muStatic", V: m.MuStatic},
		&fun.Prm{N: "muKinetic", V: m.MuKinetic},
		&fun.Prm{N: "zetaInternal", V: m.ZetaInternal},
		&fun.Prm{N: "zetaGlobal", V: m.ZetaGlobal},
		&fun.Prm{N: "zetaCollision", V: m.ZetaCollision},
	}
}

func (m *Material) notifyDependents() {
	for _, d := range m.dependents {
		d.NotifyMaterialChanged()
	}
}

// AddDependent registers a LinkMaterial (or other Notifiable) so it is
// informed whenever this material's physical fields change.
func (m *Material) AddDependent(n Notifiable) {
	m.dependents = append(m.dependents, n)
}

// SetModelLinear sets a purely linear (single-segment) elastic model.
func (m *Material) SetModelLinear(youngsModulus float64) error {
	if youngsModulus <= 0 {
		return chk.Err("youngsModulus must be positive, got %v", youngsModulus)
	}
	m.Strain = []float64{0, 1}
	m.Stress = []float64{0, youngsModulus}
	m.E = youngsModulus
	m.YieldDefined = false
	m.FailureDefined = false
	m.updateDerived()
	m.notifyDependents()
	return nil
}

// SetModelBilinear sets an elastic-then-plastic bilinear model: linear to
// (yieldStrain, E*yieldStrain), then slope plasticModulus to failure.
func (m *Material) SetModelBilinear(youngsModulus, yieldStrain, plasticModulus, failureStrain float64) error {
	if youngsModulus <= 0 {
		return chk.Err("youngsModulus must be positive")
	}
	if yieldStrain <= 0 {
		return chk.Err("yieldStrain must be positive")
	}
	if plasticModulus > youngsModulus {
		return chk.Err("plastic modulus %v must not exceed E %v", plasticModulus, youngsModulus)
	}
	yieldStress := youngsModulus * yieldStrain
	strain := []float64{0, yieldStrain}
	stress := []float64{0, yieldStress}
	if failureStrain > yieldStrain {
		failStress := yieldStress + plasticModulus*(failureStrain-yieldStrain)
		strain = append(strain, failureStrain)
		stress = append(stress, failStress)
	}
	if err := m.SetModel(strain, stress); err != nil {
		return err
	}
	m.YieldStrain = yieldStrain
	m.YieldDefined = true
	if failureStrain > yieldStrain {
		m.FailureStrain = failureStrain
		m.FailureDefined = true
	}
	return nil
}

// SetModel sets an arbitrary piecewise-linear stress/strain model. strain[0]
// and stress[0] must be (0,0) or will be prepended; strain must be strictly
// increasing, stress non-decreasing, and each segment's slope must not
// exceed the slope of the segment before it (the first slope is
// E = stress[1]/strain[1]).
func (m *Material) SetModel(strain, stress []float64) error {
	if len(strain) < 2 || len(strain) != len(stress) {
		return chk.Err("strain/stress data must have matching length >= 2")
	}
	if strain[0] != 0 || stress[0] != 0 {
		s2 := append([]float64{0}, strain...)
		t2 := append([]float64{0}, stress...)
		strain, stress = s2, t2
	}
	e := stress[1] / strain[1]
	if e <= 0 {
		return chk.Err("first segment slope (E) must be positive")
	}
	prevSlope := e
	for i := 2; i < len(strain); i++ {
		if strain[i] <= strain[i-1] {
			return chk.Err("strain data must be strictly increasing")
		}
		if stress[i] < stress[i-1] {
			return chk.Err("stress data must be non-decreasing")
		}
		slope := (stress[i] - stress[i-1]) / (strain[i] - strain[i-1])
		if slope > prevSlope*(1+1e-9) {
			return chk.Err("segment slope must not exceed the previous segment's slope (E=%v)", e)
		}
		prevSlope = slope
	}
	m.Strain = strain
	m.Stress = stress
	m.E = e
	m.YieldDefined = false
	m.FailureStrain = strain[len(strain)-1]
	m.FailureDefined = true
	m.extractYield()
	m.updateDerived()
	m.notifyDependents()
	return nil
}

// extractYield implements the 0.2%-offset method: find where the line
// y = E*(x - 0.002) crosses the piecewise stress/strain curve.
func (m *Material) extractYield() {
	if len(m.Strain) < 3 {
		return
	}
	const offset = 0.002
	for i := 1; i < len(m.Strain); i++ {
		x0, x1 := m.Strain[i-1], m.Strain[i]
		y0, y1 := m.Stress[i-1], m.Stress[i]
		o0 := m.E * (x0 - offset)
		o1 := m.E * (x1 - offset)
		d0 := y0 - o0
		d1 := y1 - o1
		if d0 >= 0 && d1 < 0 || d0 <= 0 && d1 > 0 {
			if d1 == d0 {
				continue
			}
			t := d0 / (d0 - d1)
			m.YieldStrain = x0 + t*(x1-x0)
			m.YieldDefined = true
			return
		}
	}
}

// SetPoissonsRatio sets nu, clamped strictly below 0.5.
func (m *Material) SetPoissonsRatio(nu float64) error {
	if nu < 0 {
		return chk.Err("poisson's ratio must be >= 0")
	}
	if nu >= 0.5 {
		nu = 0.5 - epsMachine2
	}
	m.Nu = nu
	m.updateDerived()
	m.notifyDependents()
	return nil
}

// SetDensity sets the material density (kg/m^3), must be positive.
func (m *Material) SetDensity(rho float64) error {
	if rho <= 0 {
		return chk.Err("density must be positive")
	}
	m.Rho = rho
	m.notifyDependents()
	return nil
}

func (m *Material) SetStaticFriction(mu float64) error {
	if mu < 0 {
		return chk.Err("static friction must be >= 0")
	}
	m.MuStatic = mu
	return nil
}

func (m *Material) SetKineticFriction(mu float64) error {
	if mu < 0 {
		return chk.Err("kinetic friction must be >= 0")
	}
	m.MuKinetic = mu
	return nil
}

func (m *Material) SetInternalDamping(zeta float64) error {
	if zeta < 0 {
		return chk.Err("damping ratio must be >= 0")
	}
	m.ZetaInternal = zeta
	return nil
}

func (m *Material) SetGlobalDamping(zeta float64) error {
	if zeta < 0 {
		return chk.Err("damping ratio must be >= 0")
	}
	m.ZetaGlobal = zeta
	return nil
}

func (m *Material) SetCollisionDamping(zeta float64) error {
	if zeta < 0 {
		return chk.Err("damping ratio must be >= 0")
	}
	m.ZetaCollision = zeta
	return nil
}

func (m *Material) SetCTE(cte float64) { m.CTE = cte; m.notifyDependents() }

func (m *Material) SetExternalScaleFactor(x, y, z float64) error {
	if x <= 0 || y <= 0 || z <= 0 {
		return chk.Err("external scale factors must be positive")
	}
	m.ExternalScaleFactor = [3]float64{x, y, z}
	return nil
}

// updateDerived recomputes eHat = E/((1-2nu)(1+nu)).
func (m *Material) updateDerived() {
	m.eHat = m.E / ((1 - 2*m.Nu) * (1 + m.Nu))
}

// EHat returns the cached volumetric-coupling modulus.
func (m *Material) EHat() float64 { return m.eHat }

// segmentIndex returns the index i such that strain is within
// [Strain[i-1], Strain[i]] (clamped to the last segment beyond the table).
func (m *Material) segmentIndex(strain float64) int {
	for i := 1; i < len(m.Strain); i++ {
		if strain <= m.Strain[i] {
			return i
		}
	}
	return len(m.Strain) - 1
}

// StressAt returns the stress at the given axial strain, accounting for the
// transverse (Poisson) strain sum sigmaTrans. If forceLinear is set, or the
// strain lies in the first segment, the model is always evaluated as purely
// linear with the volumetric coupling term. Past the failure strain, returns
// 0 (see Link for the latching-failure behavior built on top of this).
func (m *Material) StressAt(strain, sigmaTrans float64, forceLinear bool) float64 {
	if m.FailureDefined && strain > m.FailureStrain {
		return 0
	}
	isLinear := len(m.Strain) == 2
	if forceLinear || isLinear || strain <= m.Strain[1] {
		if m.Nu == 0 {
			return m.E * strain
		}
		return m.eHat * ((1-m.Nu)*strain + m.Nu*sigmaTrans)
	}
	seg := m.segmentIndex(strain)
	x0, x1 := m.Strain[seg-1], m.Strain[seg]
	y0, y1 := m.Stress[seg-1], m.Stress[seg]
	t := (strain - x0) / (x1 - x0)
	basicStress := y0 + t*(y1-y0)
	if m.Nu == 0 {
		return basicStress
	}
	modulus := (y1 - y0) / (x1 - x0)
	if modulus <= 0 || strain == 0 {
		return basicStress
	}
	effStrain := basicStress / modulus
	scaledSigmaTrans := sigmaTrans * effStrain / strain
	return m.eHat * ((1-m.Nu)*effStrain + m.Nu*scaledSigmaTrans)
}

// ModulusAt returns the secant modulus of the segment containing strain (E
// in the first segment), or 0 past failure.
func (m *Material) ModulusAt(strain float64) float64 {
	if m.FailureDefined && strain > m.FailureStrain {
		return 0
	}
	if strain <= m.Strain[1] {
		return m.E
	}
	seg := m.segmentIndex(strain)
	x0, x1 := m.Strain[seg-1], m.Strain[seg]
	y0, y1 := m.Stress[seg-1], m.Stress[seg]
	return (y1 - y0) / (x1 - x0)
}

// StrainAt is the inverse lookup of StressAt for the (nu=0) basic curve: the
// strain that produces the given stress.
func (m *Material) StrainAt(stress float64) float64 {
	if stress <= m.Stress[1] {
		if m.E == 0 {
			return 0
		}
		return stress / m.E
	}
	for i := 2; i < len(m.Stress); i++ {
		if stress <= m.Stress[i] {
			x0, x1 := m.Strain[i-1], m.Strain[i]
			y0, y1 := m.Stress[i-1], m.Stress[i]
			if y1 == y0 {
				return x0
			}
			t := (stress - y0) / (y1 - y0)
			return x0 + t*(x1-x0)
		}
	}
	return m.Strain[len(m.Strain)-1]
}

// IsFailed reports whether strain exceeds the defined failure point.
func (m *Material) IsFailed(strain float64) bool {
	return m.FailureDefined && strain > m.FailureStrain
}

// IsYielded reports whether strain exceeds the (extracted or explicit) yield point.
func (m *Material) IsYielded(strain float64) bool {
	return m.YieldDefined && strain > m.YieldStrain
}
