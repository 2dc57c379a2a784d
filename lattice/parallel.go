package lattice

import (
	"runtime"
	"sync"
)

// parallelFor runs fn(i) for i in [0,n) across a worker pool sized to
// runtime.GOMAXPROCS(0), blocking until every call has returned. Each call
// writes only to its own disjoint target (a link's, collision's or voxel's
// own state), so no synchronization is needed between calls.
//
// This is the Go-idiomatic realization of SPEC_FULL.md §5's "candidate for
// data-parallel fan-out" per-step loops, generalized from the teacher's
// single-goroutine-per-MPI-rank element loop to a bounded intra-process
// worker pool.
func parallelFor(n int, fn func(i int)) {
	if n <= 0 {
		return
	}
	workers := runtime.GOMAXPROCS(0)
	if workers > n {
		workers = n
	}
	if workers <= 1 {
		for i := 0; i < n; i++ {
			fn(i)
		}
		return
	}

	var next int64Counter
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for {
				i := next.next(n)
				if i < 0 {
					return
				}
				fn(i)
			}
		}()
	}
	wg.Wait()
}

// int64Counter hands out sequential indices below n to competing workers.
type int64Counter struct {
	mu  sync.Mutex
	cur int
}

func (c *int64Counter) next(n int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cur >= n {
		return -1
	}
	i := c.cur
	c.cur++
	return i
}
