package lattice

// SparseArray3D is a generic sparse 3D array keyed by Index3D with a single
// default value. It supports O(1) access within an allocated bounding
// window, grows the window automatically on insertion (doubling policy on
// whichever face was exceeded), can shrink to the minimal bounding box of
// occupied elements, and tracks the min/max occupied indices.
//
// Ported from CArray3D (Array3D.h): comparable[T] stands in for the
// original's T==defaultValue removal-detection, so T must be a comparable
// type (handles/pointers, small value structs).
type SparseArray3D[T comparable] struct {
	defaultValue T
	data         []T
	size, off    Index3D
	cMin, cMax   Index3D
}

// NewSparseArray3D constructs an empty sparse array with the given default value.
func NewSparseArray3D[T comparable](defaultValue T) *SparseArray3D[T] {
	a := &SparseArray3D[T]{defaultValue: defaultValue}
	a.Clear()
	return a
}

// Clear discards all data and frees the backing store.
func (a *SparseArray3D[T]) Clear() {
	a.size, a.off = Index3D{}, Index3D{}
	a.cMin = Index3D{1 << 30, 1 << 30, 1 << 30}
	a.cMax = Index3D{-(1 << 30), -(1 << 30), -(1 << 30)}
	a.data = nil
}

// MinIndex and MaxIndex return the minimum/maximum occupied coordinate in
// each dimension across all currently non-default elements.
func (a *SparseArray3D[T]) MinIndex() Index3D { return a.cMin }
func (a *SparseArray3D[T]) MaxIndex() Index3D { return a.cMax }

func (a *SparseArray3D[T]) linearIndex(i Index3D) int {
	if i.X < a.off.X || i.X >= a.off.X+a.size.X ||
		i.Y < a.off.Y || i.Y >= a.off.Y+a.size.Y ||
		i.Z < a.off.Z || i.Z >= a.off.Z+a.size.Z {
		return -1
	}
	return (i.X - a.off.X) + a.size.X*(i.Y-a.off.Y) + a.size.X*a.size.Y*(i.Z-a.off.Z)
}

// Get returns the value at i, or the default value if i is unallocated or unset.
func (a *SparseArray3D[T]) Get(i Index3D) T {
	li := a.linearIndex(i)
	if li == -1 {
		return a.defaultValue
	}
	return a.data[li]
}

// Set stores value at i, growing the backing window if necessary. Setting
// the default value is equivalent to Remove. Returns false only if the
// required reallocation could not be satisfied.
func (a *SparseArray3D[T]) Set(i Index3D, value T) bool {
	if value == a.defaultValue {
		a.Remove(i)
		return true
	}
	li := a.linearIndex(i)
	if li != -1 {
		a.data[li] = value
	} else {
		if !a.growToInclude(i) {
			return false
		}
		li = a.linearIndex(i)
		if li == -1 {
			return false
		}
		a.data[li] = value
	}
	if i.X < a.cMin.X {
		a.cMin.X = i.X
	}
	if i.X > a.cMax.X {
		a.cMax.X = i.X
	}
	if i.Y < a.cMin.Y {
		a.cMin.Y = i.Y
	}
	if i.Y > a.cMax.Y {
		a.cMax.Y = i.Y
	}
	if i.Z < a.cMin.Z {
		a.cMin.Z = i.Z
	}
	if i.Z > a.cMax.Z {
		a.cMax.Z = i.Z
	}
	return true
}

// Remove resets the element at i back to the default value. Never shrinks
// the backing window; call ShrinkToFit to reclaim memory.
func (a *SparseArray3D[T]) Remove(i Index3D) {
	li := a.linearIndex(i)
	if li == -1 || a.data[li] == a.defaultValue {
		return
	}
	a.data[li] = a.defaultValue
	a.recomputeMinMax()
}

// ShrinkToFit collapses the allocated window to the minimal bounding box of
// currently-occupied elements.
func (a *SparseArray3D[T]) ShrinkToFit() bool {
	if a.cMin.X > a.cMax.X {
		a.Clear()
		return true
	}
	newSize := a.cMax.Sub(a.cMin).Add(Index3D{1, 1, 1})
	return a.resize(newSize, a.cMin)
}

// resize reallocates the backing store to the given size/offset, preserving
// overlapping data.
func (a *SparseArray3D[T]) resize(newSize, newOff Index3D) bool {
	if newSize == a.size && newOff == a.off {
		return true
	}
	n := newSize.X * newSize.Y * newSize.Z
	if n <= 0 {
		a.Clear()
		return true
	}
	newData := make([]T, n)

	oldMin, oldMax := a.off, a.off.Add(a.size)
	newMin, newMax := newOff, newOff.Add(newSize)
	minOverlap := Index3D{imax(oldMin.X, newMin.X), imax(oldMin.Y, newMin.Y), imax(oldMin.Z, newMin.Z)}
	maxOverlap := Index3D{imin(oldMax.X, newMax.X), imin(oldMax.Y, newMax.Y), imin(oldMax.Z, newMax.Z)}

	for k := minOverlap.Z; k < maxOverlap.Z; k++ {
		for j := minOverlap.Y; j < maxOverlap.Y; j++ {
			for i := minOverlap.X; i < maxOverlap.X; i++ {
				oldLi := (i - a.off.X) + a.size.X*(j-a.off.Y) + a.size.X*a.size.Y*(k-a.off.Z)
				newLi := (i - newOff.X) + newSize.X*(j-newOff.Y) + newSize.X*newSize.Y*(k-newOff.Z)
				newData[newLi] = a.data[oldLi]
			}
		}
	}

	a.data = newData
	a.size = newSize
	a.off = newOff

	if a.cMin.X < a.off.X {
		a.cMin.X = a.off.X
	}
	if a.cMax.X > a.size.X+a.off.X {
		a.cMax.X = a.size.X + a.off.X
	}
	if a.cMin.Y < a.off.Y {
		a.cMin.Y = a.off.Y
	}
	if a.cMax.Y > a.size.Y+a.off.Y {
		a.cMax.Y = a.size.Y + a.off.Y
	}
	if a.cMin.Z < a.off.Z {
		a.cMin.Z = a.off.Z
	}
	if a.cMax.Z > a.size.Z+a.off.Z {
		a.cMax.Z = a.size.Z + a.off.Z
	}
	return true
}

// growToInclude expands the window (doubling the exceeded dimension, or
// seeding +/-2 around index if currently empty) until it contains index.
func (a *SparseArray3D[T]) growToInclude(index Index3D) bool {
	scaleDivisor := 1
	for attempt := 1; ; attempt++ {
		switch attempt {
		case 2:
			if !a.ShrinkToFit() {
				return false
			}
		case 3:
			scaleDivisor = 2
		case 4:
			scaleDivisor = 4
		case 5:
			scaleDivisor = 8
		case 6:
			return false
		}

		newMin := a.off
		newMax := a.off.Add(a.size)

		if newMin == newMax {
			newMin = index.Sub(Index3D{2, 2, 2})
			newMax = index.Add(Index3D{2, 2, 2})
		} else {
			step := func(cur, sz int) int {
				if sz/scaleDivisor > 0 {
					return sz / scaleDivisor
				}
				return 1
			}
			for index.X <= newMin.X {
				newMin.X -= step(newMin.X, a.size.X)
			}
			for index.X >= newMax.X {
				newMax.X += step(newMax.X, a.size.X)
			}
			for index.Y <= newMin.Y {
				newMin.Y -= step(newMin.Y, a.size.Y)
			}
			for index.Y >= newMax.Y {
				newMax.Y += step(newMax.Y, a.size.Y)
			}
			for index.Z <= newMin.Z {
				newMin.Z -= step(newMin.Z, a.size.Z)
			}
			for index.Z >= newMax.Z {
				newMax.Z += step(newMax.Z, a.size.Z)
			}
		}

		if a.resize(newMax.Sub(newMin), newMin) {
			return true
		}
	}
}

// ForEach calls fn for every non-default element currently stored, in
// scanline (Z, then Y, then X) order. fn must not mutate the array.
func (a *SparseArray3D[T]) ForEach(fn func(i Index3D, v T)) {
	for k := a.off.Z; k < a.size.Z+a.off.Z; k++ {
		for j := a.off.Y; j < a.size.Y+a.off.Y; j++ {
			for i := a.off.X; i < a.size.X+a.off.X; i++ {
				idx := Index3D{i, j, k}
				li := a.linearIndex(idx)
				if li == -1 {
					continue
				}
				if v := a.data[li]; v != a.defaultValue {
					fn(idx, v)
				}
			}
		}
	}
}

// Len returns the number of currently non-default elements (an O(window) scan).
func (a *SparseArray3D[T]) Len() int {
	n := 0
	a.ForEach(func(Index3D, T) { n++ })
	return n
}

func (a *SparseArray3D[T]) recomputeMinMax() {
	a.cMin = Index3D{1 << 30, 1 << 30, 1 << 30}
	a.cMax = Index3D{-(1 << 30), -(1 << 30), -(1 << 30)}
	for k := a.off.Z; k < a.size.Z+a.off.Z; k++ {
		for j := a.off.Y; j < a.size.Y+a.off.Y; j++ {
			for i := a.off.X; i < a.size.X+a.off.X; i++ {
				li := (i - a.off.X) + a.size.X*(j-a.off.Y) + a.size.X*a.size.Y*(k-a.off.Z)
				if a.data[li] != a.defaultValue {
					if i < a.cMin.X {
						a.cMin.X = i
					}
					if i > a.cMax.X {
						a.cMax.X = i
					}
					if j < a.cMin.Y {
						a.cMin.Y = j
					}
					if j > a.cMax.Y {
						a.cMax.Y = j
					}
					if k < a.cMin.Z {
						a.cMin.Z = k
					}
					if k > a.cMax.Z {
						a.cMax.Z = k
					}
				}
			}
		}
	}
}
