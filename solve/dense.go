package solve

import "github.com/cpmech/gosl/chk"

// DenseSolver is the in-tree SparseSolver fallback: dense Gaussian
// elimination with partial pivoting, good only for the small fixtures this
// package's own tests exercise (§4.9 describes it as existing so the solver
// path is exercisable without an external factorizer dependency).
type DenseSolver struct {
	n int
	a [][]float64
}

func (s *DenseSolver) Init(ndof int, entries map[[2]int]float64, symmetric bool) error {
	s.n = ndof
	s.a = make([][]float64, ndof)
	for i := range s.a {
		s.a[i] = make([]float64, ndof)
	}
	for key, v := range entries {
		s.a[key[0]][key[1]] = v
	}
	return nil
}

// Fact is a no-op for DenseSolver: factorization and solve happen together
// in Solve, since partial-pivoting Gaussian elimination on the augmented
// system is cheap at the sizes this fallback targets.
func (s *DenseSolver) Fact() error { return nil }

func (s *DenseSolver) Solve(x, b []float64) error {
	n := s.n
	a := make([][]float64, n)
	for i := range a {
		a[i] = append([]float64(nil), s.a[i]...)
	}
	rhs := append([]float64(nil), b...)

	for col := 0; col < n; col++ {
		pivot := col
		best := abs(a[col][col])
		for r := col + 1; r < n; r++ {
			if v := abs(a[r][col]); v > best {
				pivot, best = r, v
			}
		}
		if best == 0 {
			return chk.Err("dense solve: singular system at equation %d", col)
		}
		if pivot != col {
			a[col], a[pivot] = a[pivot], a[col]
			rhs[col], rhs[pivot] = rhs[pivot], rhs[col]
		}
		for r := col + 1; r < n; r++ {
			factor := a[r][col] / a[col][col]
			if factor == 0 {
				continue
			}
			for c := col; c < n; c++ {
				a[r][c] -= factor * a[col][c]
			}
			rhs[r] -= factor * rhs[col]
		}
	}

	for i := n - 1; i >= 0; i-- {
		sum := rhs[i]
		for j := i + 1; j < n; j++ {
			sum -= a[i][j] * x[j]
		}
		x[i] = sum / a[i][i]
	}
	return nil
}

func (s *DenseSolver) Clean() { s.a = nil }

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
