// Package solve assembles and solves the static-equilibrium linear system
// described in SPEC_FULL.md §4.9: a tangent beam stiffness matrix over
// 6 degrees of freedom per voxel, with prescribed-displacement rows and
// columns eliminated to identity, handed off to a pluggable factorizer.
package solve

import (
	"context"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/la"

	"github.com/cpmech/voxelyze/lattice"
	"github.com/cpmech/voxelyze/vecmath"
)

// dofPerVoxel is the number of degrees of freedom (3 translation + 3
// rotation, in that order) assigned to every voxel in the assembled system.
const dofPerVoxel = 6

// System is one assembled static-equilibrium linear system A*x = b over
// 6*N degrees of freedom (N = voxel count), with fixed DOFs eliminated.
type System struct {
	voxels  []*lattice.Voxel
	index   map[*lattice.Voxel]int
	ndof    int
	b       []float64
	entries map[[2]int]float64
}

// NDof returns the size of the assembled system (6 * voxel count).
func (sys *System) NDof() int { return sys.ndof }

// Assemble builds the static linear system for lat's current configuration:
// one closed-form beam stiffness contribution per link (the tangent of the
// §4.3 force/moment equations, linearized about the current pose), summed
// into a global matrix, with every voxel's applied force/moment and
// material weight folded into the right-hand side, and every fixed DOF
// eliminated to an identity row/column (§4.9).
func Assemble(lat *lattice.Lattice) (*System, error) {
	voxels := lat.Voxels()
	if len(voxels) == 0 {
		return nil, chk.Err("cannot assemble a linear system for an empty lattice")
	}

	sys := &System{
		voxels: voxels,
		index:  make(map[*lattice.Voxel]int, len(voxels)),
		ndof:   len(voxels) * dofPerVoxel,
	}
	for i, v := range voxels {
		sys.index[v] = i
	}
	sys.b = make([]float64, sys.ndof)

	entries := make(map[[2]int]float64)
	add := func(i, j int, v float64) {
		if v == 0 {
			return
		}
		entries[[2]int{i, j}] += v
	}

	for _, l := range lat.Links() {
		addLinkStiffness(l, sys.index, add)
	}

	for i, v := range voxels {
		base := i * dofPerVoxel
		sys.b[base+2] += v.Mat.GravityForce()
		if v.Ext != nil {
			sys.b[base+0] += v.Ext.Force.X
			sys.b[base+1] += v.Ext.Force.Y
			sys.b[base+2] += v.Ext.Force.Z
			sys.b[base+3] += v.Ext.Moment.X
			sys.b[base+4] += v.Ext.Moment.Y
			sys.b[base+5] += v.Ext.Moment.Z
		}
	}

	eliminateFixedDofs(entries, sys.b, sys.fixedDofs())
	sys.entries = entries
	return sys, nil
}

// fixedDofs returns the global equation index -> prescribed value map for
// every DOF fixed by a voxel's External.
func (sys *System) fixedDofs() map[int]float64 {
	fixed := make(map[int]float64)
	for i, v := range sys.voxels {
		if v.Ext == nil || !v.Ext.IsFixedAny() {
			continue
		}
		base := i * dofPerVoxel
		t, r := v.Ext.Translation(), v.Ext.Rotation()
		if v.Ext.IsFixed(lattice.XTranslate) {
			fixed[base+0] = t.X
		}
		if v.Ext.IsFixed(lattice.YTranslate) {
			fixed[base+1] = t.Y
		}
		if v.Ext.IsFixed(lattice.ZTranslate) {
			fixed[base+2] = t.Z
		}
		if v.Ext.IsFixed(lattice.XRotate) {
			fixed[base+3] = r.X
		}
		if v.Ext.IsFixed(lattice.YRotate) {
			fixed[base+4] = r.Y
		}
		if v.Ext.IsFixed(lattice.ZRotate) {
			fixed[base+5] = r.Z
		}
	}
	return fixed
}

// eliminateFixedDofs implements §4.9's elimination: for each fixed DOF d
// with prescribed value x_d, subtract x_d*A[:,d] from b, then replace row
// and column d with the identity and set b[d] = x_d.
func eliminateFixedDofs(entries map[[2]int]float64, b []float64, fixed map[int]float64) {
	for d, xd := range fixed {
		if xd != 0 {
			for key, v := range entries {
				if key[1] == d && key[0] != d {
					b[key[0]] -= v * xd
				}
			}
		}
	}
	for d := range fixed {
		for key := range entries {
			if key[0] == d || key[1] == d {
				delete(entries, key)
			}
		}
	}
	for d, xd := range fixed {
		entries[[2]int{d, d}] = 1
		b[d] = xd
	}
}

// addLinkStiffness scatters one link's 12x12 tangent stiffness (6 DOF at
// each of its two endpoints, in global coordinates) into the global system
// via add(globalRow, globalCol, value).
func addLinkStiffness(l *lattice.Link, index map[*lattice.Voxel]int, add func(i, j int, v float64)) {
	if l.RestLength() <= 0 {
		return
	}
	neg, pos := l.NegVoxel(), l.PosVoxel()
	ni, ok := index[neg]
	if !ok {
		return
	}
	pi, ok := index[pos]
	if !ok {
		return
	}

	k9 := localBeamStiffness(l)
	r := rotationMatrix(l.LocalFrame())

	// T (9x12) maps the global DOF vector [du_neg, dtheta_neg, du_pos, dtheta_pos]
	// to the local generalized coordinates [dp, theta1, theta2] this link's
	// force law (§4.3) is linear in: dp = R*(du_pos-du_neg), theta1 = R*dtheta_neg,
	// theta2 = R*dtheta_pos.
	var t [9][12]float64
	for a := 0; a < 3; a++ {
		for c := 0; c < 3; c++ {
			t[a][c] = -r[a][c]
			t[a][6+c] = r[a][c]
			t[3+a][3+c] = r[a][c]
			t[6+a][9+c] = r[a][c]
		}
	}

	// global = T^T * k9 * T, the tangent stiffness expressed over the two
	// endpoints' 6-DOF global coordinates.
	var tk [9][12]float64
	for a := 0; a < 9; a++ {
		for c := 0; c < 12; c++ {
			sum := 0.0
			for m := 0; m < 9; m++ {
				sum += k9[a][m] * t[m][c]
			}
			tk[a][c] = sum
		}
	}
	var kGlobal [12][12]float64
	for a := 0; a < 12; a++ {
		for c := 0; c < 12; c++ {
			sum := 0.0
			for m := 0; m < 9; m++ {
				sum += t[m][a] * tk[m][c]
			}
			kGlobal[a][c] = sum
		}
	}

	base := [12]int{
		ni*dofPerVoxel + 0, ni*dofPerVoxel + 1, ni*dofPerVoxel + 2,
		ni*dofPerVoxel + 3, ni*dofPerVoxel + 4, ni*dofPerVoxel + 5,
		pi*dofPerVoxel + 0, pi*dofPerVoxel + 1, pi*dofPerVoxel + 2,
		pi*dofPerVoxel + 3, pi*dofPerVoxel + 4, pi*dofPerVoxel + 5,
	}
	// localBeamStiffness is the Jacobian of [F_pos, M_neg, M_pos] (the force
	// law's own output convention) w.r.t. [dp, theta1, theta2], so kGlobal
	// works out to the negative of the conventional positive-definite
	// element stiffness; flip it here so entries holds K with b's applied
	// loads solving the ordinary K*u=F equilibrium.
	for a := 0; a < 12; a++ {
		for c := 0; c < 12; c++ {
			add(base[a], base[c], -kGlobal[a][c])
		}
	}
}

// localBeamStiffness returns the symmetric 9x9 tangent stiffness relating
// the local generalized coordinates [dp(3), theta1(3), theta2(3)] to their
// conjugate generalized forces [F_pos(3), M_neg(3), M_pos(3)], linearizing
// UpdateForces' elastic force law (§4.3 step 5) about the link's current
// strain.
func localBeamStiffness(l *lattice.Link) [9][9]float64 {
	axial := l.AxialStiffness()
	a2, b1, b2, b3 := l.Mat.A2, l.Mat.B1, l.Mat.B2, l.Mat.B3

	var k [9][9]float64
	k[0][0] = -axial

	k[1][1] = -b1
	k[1][5], k[5][1] = b2, b2
	k[1][8], k[8][1] = b2, b2

	k[2][2] = -b1
	k[2][4], k[4][2] = -b2, -b2
	k[2][7], k[7][2] = -b2, -b2

	k[3][3] = -a2
	k[3][6], k[6][3] = a2, a2
	k[6][6] = -a2

	k[4][4] = -2 * b3
	k[4][7], k[7][4] = -b3, -b3
	k[7][7] = -2 * b3

	k[5][5] = -2 * b3
	k[5][8], k[8][5] = -b3, -b3
	k[8][8] = -2 * b3

	return k
}

// rotationMatrix returns the 3x3 matrix R such that R*v == q.RotateVec3D(v).
func rotationMatrix(q vecmath.Quat) [3][3]float64 {
	ex := q.RotateVec3D(vecmath.Vec3{X: 1})
	ey := q.RotateVec3D(vecmath.Vec3{Y: 1})
	ez := q.RotateVec3D(vecmath.Vec3{Z: 1})
	return [3][3]float64{
		{ex.X, ey.X, ez.X},
		{ex.Y, ey.Y, ez.Y},
		{ex.Z, ey.Z, ez.Z},
	}
}

// SparseSolver factors and solves a real sparse linear system, mirroring the
// InitR/Fact/SolveR/Clean lifecycle of gosl/la's registered backends
// (Umfpack, Mumps): the factorization itself is a documented external
// collaborator, out of scope for this package (§1). entries is keyed by
// (row, col) equation index, following the accumulator Assemble builds.
type SparseSolver interface {
	Init(ndof int, entries map[[2]int]float64, symmetric bool) error
	Fact() error
	Solve(x, b []float64) error
	Clean()
}

// GoslSolver adapts one of gosl/la's registered direct solvers (looked up by
// name, e.g. "umfpack" or "mumps") to SparseSolver, converting the
// coordinate-format accumulator into an la.Triplet exactly as the teacher's
// element loop accumulates into its global Jacobian (fem/domain.go's
// Kb *la.Triplet convention).
type GoslSolver struct {
	name string
	ls   la.LinSol
}

// NewGoslSolver returns a SparseSolver backed by gosl/la's named registered solver.
func NewGoslSolver(name string) *GoslSolver { return &GoslSolver{name: name} }

func (s *GoslSolver) Init(ndof int, entries map[[2]int]float64, symmetric bool) error {
	var tri la.Triplet
	tri.Init(ndof, ndof, len(entries))
	for key, v := range entries {
		tri.Put(key[0], key[1], v)
	}
	s.ls = la.GetSolver(s.name)
	return s.ls.InitR(&tri, symmetric, false, false)
}

func (s *GoslSolver) Fact() error { return s.ls.Fact() }

func (s *GoslSolver) Solve(x, b []float64) error { return s.ls.SolveR(x, b, false) }

func (s *GoslSolver) Clean() {
	if s.ls != nil {
		s.ls.Clean()
	}
}

// Solve assembles lat's static linear system, factors and solves it with
// solver (a dense Gaussian-elimination fallback is used when solver is nil,
// adequate only for the small fixtures this package's own tests exercise),
// and writes the resulting displacement/rotation back into every voxel,
// zeroing momenta per §4.9. ctx is checked once before factorization and
// once before the write-back, so a long-running external factorizer can be
// cancelled between those phases.
func Solve(ctx context.Context, lat *lattice.Lattice, solver SparseSolver) error {
	sys, err := Assemble(lat)
	if err != nil {
		return err
	}
	if solver == nil {
		solver = &DenseSolver{}
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := solver.Init(sys.ndof, sys.entries, true); err != nil {
		return chk.Err("linear solver init failed: %v", err)
	}
	defer solver.Clean()
	if err := solver.Fact(); err != nil {
		return chk.Err("linear solver factorization failed: %v", err)
	}

	x := make([]float64, sys.ndof)
	if err := solver.Solve(x, sys.b); err != nil {
		return chk.Err("linear solve failed: %v", err)
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	for i, v := range sys.voxels {
		base := i * dofPerVoxel
		disp := vecmath.Vec3{X: x[base+0], Y: x[base+1], Z: x[base+2]}
		rot := vecmath.Vec3{X: x[base+3], Y: x[base+4], Z: x[base+5]}
		v.Pos = v.OriginalPos.Add(disp)
		v.Orient = vecmath.FromRotationVector(rot)
		v.LinMom = vecmath.Vec3{}
		v.AngMom = vecmath.Vec3{}
	}
	return nil
}
