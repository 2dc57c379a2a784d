// Package lattice implements the voxel/link/collision data model and the
// per-step physics orchestration described in SPEC_FULL.md §3-§5: a
// deformable cubic-lattice structure advanced through explicit symplectic
// integration.
package lattice

import (
	"fmt"
	"math"

	"github.com/cpmech/gosl/chk"

	"github.com/cpmech/voxelyze/material"
	"github.com/cpmech/voxelyze/vecmath"
)

// DivergenceError reports that a time step was aborted because a link's
// strain exceeded the stability threshold.
type DivergenceError struct {
	LinkAxis Axis
	Strain   float64
}

func (e *DivergenceError) Error() string {
	return fmt.Sprintf("lattice diverged: link strain %.3f exceeds stability threshold", e.Strain)
}

// MaterialConfig enumerates the recognized material options accepted by
// AddMaterialConfig, mirroring SPEC_FULL.md §6's construction API.
type MaterialConfig struct {
	YoungsModulus float64
	Density       float64
	Name          string
	HasColor      bool
	R, G, B, A    float64

	PoissonsRatio    float64
	CTE              float64
	StaticFriction   float64
	KineticFriction  float64
	InternalDamping  float64
	GlobalDamping    float64
	CollisionDamping float64
	ExternalScaleX   float64
	ExternalScaleY   float64
	ExternalScaleZ   float64

	// StrainData/StressData, if both non-empty, select a piecewise model
	// instead of the linear one implied by YoungsModulus.
	StrainData []float64
	StressData []float64
}

type materialHandle struct {
	mat     *material.VoxelMaterial
	removed bool
}

type linkMatKey struct{ a, b *material.VoxelMaterial }

// Lattice owns the entire physics world: the sparse voxel grid, the three
// per-axis sparse link grids, the material catalog, global parameters, and
// the collision watchlist. It is the sole writer of all physics state; the
// three per-step loops it orchestrates make disjoint writes and are
// internally fanned out across a worker pool (parallel.go).
//
// Ported from CVoxelyze.
type Lattice struct {
	VoxelSize float64

	ambientTemp      float64
	gravityMult      float64
	floorEnabled     bool
	collisionsEnabled bool

	currentTime float64

	voxels *SparseArray3D[*Voxel]
	links  [3]*SparseArray3D[*Link]

	materials   []*materialHandle
	linkMatCache map[linkMatKey]*material.LinkMaterial

	collisions       []*Collision
	collisionsStale  bool
	watchDistance    float64
}

// New creates an empty lattice with the given nominal voxel edge length
// (meters, must be positive and finite).
func New(voxelSize float64) (*Lattice, error) {
	if !(voxelSize > 0) || math.IsInf(voxelSize, 0) {
		return nil, chk.Err("voxel size must be positive and finite, got %v", voxelSize)
	}
	lat := &Lattice{
		VoxelSize:     voxelSize,
		gravityMult:   1,
		floorEnabled:  true,
		collisionsEnabled: true,
		watchDistance: 1.0,
		voxels:        NewSparseArray3D[*Voxel](nil),
		linkMatCache:  make(map[linkMatKey]*material.LinkMaterial),
	}
	lat.links[AxisX] = NewSparseArray3D[*Link](nil)
	lat.links[AxisY] = NewSparseArray3D[*Link](nil)
	lat.links[AxisZ] = NewSparseArray3D[*Link](nil)
	return lat, nil
}

// AddMaterial registers a new linear-elastic material and returns its handle.
func (lat *Lattice) AddMaterial(youngsModulus, density float64) (int, error) {
	return lat.AddMaterialConfig(MaterialConfig{YoungsModulus: youngsModulus, Density: density, PoissonsRatio: 0})
}

// AddMaterialConfig registers a new material from the full recognized option
// set, returning its stable handle (an append-only index into the catalog).
func (lat *Lattice) AddMaterialConfig(cfg MaterialConfig) (int, error) {
	initialE := cfg.YoungsModulus
	if initialE <= 0 && len(cfg.StrainData) == len(cfg.StressData) {
		// NewVoxelMaterial always starts from a linear model; a piecewise
		// config's nominal E is recovered from its own first non-origin
		// segment so the placeholder construction below never rejects a
		// valid piecewise material for lacking a separate youngsModulus field.
		for i := range cfg.StrainData {
			if cfg.StrainData[i] > 0 {
				initialE = cfg.StressData[i] / cfg.StrainData[i]
				break
			}
		}
	}
	vm, err := material.NewVoxelMaterial(initialE, cfg.Density, lat.VoxelSize)
	if err != nil {
		return 0, err
	}
	vm.Name = cfg.Name
	vm.GravityMult = lat.gravityMult
	if len(cfg.StrainData) > 0 && len(cfg.StressData) > 0 {
		if err := vm.SetModel(cfg.StrainData, cfg.StressData); err != nil {
			return 0, err
		}
	}
	if cfg.HasColor {
		vm.HasColor = true
		vm.Color = material.Color{R: cfg.R, G: cfg.G, B: cfg.B, A: cfg.A}
	}
	if cfg.PoissonsRatio != 0 {
		if err := vm.SetPoissonsRatio(cfg.PoissonsRatio); err != nil {
			return 0, err
		}
	}
	vm.SetCTE(cfg.CTE)
	if err := vm.SetStaticFriction(cfg.StaticFriction); err != nil {
		return 0, err
	}
	if err := vm.SetKineticFriction(cfg.KineticFriction); err != nil {
		return 0, err
	}
	if err := vm.SetInternalDamping(cfg.InternalDamping); err != nil {
		return 0, err
	}
	if err := vm.SetGlobalDamping(cfg.GlobalDamping); err != nil {
		return 0, err
	}
	if err := vm.SetCollisionDamping(cfg.CollisionDamping); err != nil {
		return 0, err
	}
	if cfg.ExternalScaleX != 0 || cfg.ExternalScaleY != 0 || cfg.ExternalScaleZ != 0 {
		if err := vm.SetExternalScaleFactor(cfg.ExternalScaleX, cfg.ExternalScaleY, cfg.ExternalScaleZ); err != nil {
			return 0, err
		}
	}
	lat.materials = append(lat.materials, &materialHandle{mat: vm})
	return len(lat.materials) - 1, nil
}

func (lat *Lattice) materialByHandle(h int) (*material.VoxelMaterial, error) {
	if h < 0 || h >= len(lat.materials) || lat.materials[h].removed {
		return nil, chk.Err("invalid material handle %d", h)
	}
	return lat.materials[h].mat, nil
}

// MaterialHandles returns every live (non-removed) material handle, in
// catalog order, suitable for serializing the material table.
func (lat *Lattice) MaterialHandles() []int {
	var out []int
	for h, entry := range lat.materials {
		if !entry.removed {
			out = append(out, h)
		}
	}
	return out
}

// MaterialByHandle returns the material registered under handle h.
func (lat *Lattice) MaterialByHandle(h int) (*material.VoxelMaterial, error) {
	return lat.materialByHandle(h)
}

// MaterialHandleOf returns the catalog handle of a voxel's material, for
// code (e.g. JSON persistence) that must record the index rather than the
// pointer.
func (lat *Lattice) MaterialHandleOf(mat *material.VoxelMaterial) (int, bool) {
	for h, entry := range lat.materials {
		if !entry.removed && entry.mat == mat {
			return h, true
		}
	}
	return 0, false
}

// RemoveMaterial removes a material and every voxel currently using it.
func (lat *Lattice) RemoveMaterial(handle int) error {
	mat, err := lat.materialByHandle(handle)
	if err != nil {
		return err
	}
	var toRemove []Index3D
	lat.voxels.ForEach(func(idx Index3D, v *Voxel) {
		if v.Mat == mat {
			toRemove = append(toRemove, idx)
		}
	})
	for _, idx := range toRemove {
		lat.RemoveVoxel(idx.X, idx.Y, idx.Z)
	}
	lat.materials[handle].removed = true
	return nil
}

// ReplaceMaterial swaps every voxel using oldHandle's material for
// newHandle's material, preserving motion per SPEC_FULL.md §9 (momenta
// scaled by the mass/inertia ratio).
func (lat *Lattice) ReplaceMaterial(oldHandle, newHandle int) error {
	oldMat, err := lat.materialByHandle(oldHandle)
	if err != nil {
		return err
	}
	newMat, err := lat.materialByHandle(newHandle)
	if err != nil {
		return err
	}
	lat.voxels.ForEach(func(idx Index3D, v *Voxel) {
		if v.Mat == oldMat {
			lat.replaceVoxelMaterial(v, newMat)
		}
	})
	return nil
}

func (lat *Lattice) replaceVoxelMaterial(v *Voxel, newMat *material.VoxelMaterial) {
	oldMat := v.Mat
	if oldMat.Mass() > 0 {
		v.LinMom = v.LinMom.Scale(newMat.Mass() / oldMat.Mass())
	}
	if oldMat.MomentInertia() > 0 {
		v.AngMom = v.AngMom.Scale(newMat.MomentInertia() / oldMat.MomentInertia())
	}
	v.Mat = newMat
	v.invalidatePoissonStrain()
	lat.invalidateAdjacentLinkMaterials(v, oldMat)
	lat.collisionsStale = true
}

// invalidateAdjacentLinkMaterials drops the stale combinedMaterial cache
// entries for v's links (keyed on v's old material) and re-derives each
// link's material against v's current one.
func (lat *Lattice) invalidateAdjacentLinkMaterials(v *Voxel, oldMat *material.VoxelMaterial) {
	for _, d := range allDirections {
		l := v.Link(d)
		if l == nil {
			continue
		}
		if v == l.neg {
			lat.removeLinkMaterialCache(oldMat, l.pos.Mat)
		} else {
			lat.removeLinkMaterialCache(l.neg.Mat, oldMat)
		}
		l.Mat = lat.combinedMaterial(l.neg.Mat, l.pos.Mat)
	}
}

// combinedMaterial returns the cached LinkMaterial for this exact pointer
// pair, creating and caching it on first use (SPEC_FULL.md §4.6).
func (lat *Lattice) combinedMaterial(m1, m2 *material.VoxelMaterial) *material.LinkMaterial {
	key := linkMatKey{m1, m2}
	if lm, ok := lat.linkMatCache[key]; ok {
		return lm
	}
	lm := material.CombineMaterials(m1, m2)
	lat.linkMatCache[key] = lm
	return lm
}

func (lat *Lattice) removeLinkMaterialCache(m1, m2 *material.VoxelMaterial) {
	delete(lat.linkMatCache, linkMatKey{m1, m2})
}

// SetVoxel creates a voxel of the given material at lattice index (i,j,k),
// replacing the existing voxel's material in place if one is already
// present there.
func (lat *Lattice) SetVoxel(matHandle int, i, j, k int) (*Voxel, error) {
	mat, err := lat.materialByHandle(matHandle)
	if err != nil {
		return nil, err
	}
	idx := Index3D{i, j, k}
	if existing := lat.voxels.Get(idx); existing != nil {
		lat.replaceVoxelMaterial(existing, mat)
		return existing, nil
	}

	pos := vecmath.Vec3{X: float64(i) * lat.VoxelSize, Y: float64(j) * lat.VoxelSize, Z: float64(k) * lat.VoxelSize}
	v := NewVoxel(mat, idx, pos, lat.ambientTemp)
	v.EnableFloor(lat.floorEnabled)
	v.EnableCollisions(lat.collisionsEnabled)
	if !lat.voxels.Set(idx, v) {
		return nil, chk.Err("voxel grid allocation exhausted at %v", idx)
	}
	for _, d := range allDirections {
		lat.tryLink(v, d)
	}
	lat.collisionsStale = true
	return v, nil
}

// tryLink creates the link between v and its neighbour in direction d, if
// the neighbour exists and the slot is not already filled.
func (lat *Lattice) tryLink(v *Voxel, d Direction) {
	if v.Link(d) != nil {
		return
	}
	neighborIdx := v.Index.Add(directionOffset(d))
	neighbor := lat.voxels.Get(neighborIdx)
	if neighbor == nil {
		return
	}
	axis := d.Axis()
	var neg, pos *Voxel
	var key Index3D
	if d.IsNegative() {
		neg, pos = neighbor, v
		key = neighborIdx
	} else {
		neg, pos = v, neighbor
		key = v.Index
	}
	link := &Link{Axis: axis, neg: neg, pos: pos, smallAngle: true}
	link.Mat = lat.combinedMaterial(neg.Mat, pos.Mat)
	link.strainRatio = pos.Mat.E / neg.Mat.E
	link.updateRestLength()
	link.updateTransverseInfo()

	lat.links[axis].Set(key, link)
	negDir, posDir := Direction(axis*2), Direction(axis*2+1)
	neg.setLink(negDir, link)
	pos.setLink(posDir, link)
}

// RemoveVoxel deletes the voxel at (i,j,k), if any, removing its six
// surrounding links first and clearing the back-references in its
// neighbours.
func (lat *Lattice) RemoveVoxel(i, j, k int) {
	idx := Index3D{i, j, k}
	v := lat.voxels.Get(idx)
	if v == nil {
		return
	}
	for _, d := range allDirections {
		l := v.Link(d)
		if l == nil {
			continue
		}
		axis := d.Axis()
		var key Index3D
		if d.IsNegative() {
			key = idx.Add(directionOffset(d))
		} else {
			key = idx
		}
		lat.links[axis].Remove(key)
		l.other(v).setLink(d.Opposite(), nil)
		v.setLink(d, nil)
	}
	lat.voxels.Remove(idx)
	lat.collisionsStale = true
}

func (l *Link) other(v *Voxel) *Voxel {
	if v == l.pos {
		return l.neg
	}
	return l.pos
}

func (lat *Lattice) EnableFloor(enable bool) {
	lat.floorEnabled = enable
	lat.voxels.ForEach(func(_ Index3D, v *Voxel) { v.EnableFloor(enable) })
}

// SetGravity sets the lattice-wide gravity multiplier (1 = standard Earth
// gravity, 0 = disabled), applying it to every material currently in the
// catalog as well as every material added afterwards.
func (lat *Lattice) SetGravity(multiplier float64) {
	lat.gravityMult = multiplier
	for _, h := range lat.materials {
		h.mat.GravityMult = multiplier
	}
}

func (lat *Lattice) SetAmbientTemperature(t float64, applyImmediately bool) {
	lat.ambientTemp = t
	if applyImmediately {
		lat.voxels.ForEach(func(_ Index3D, v *Voxel) { v.Temperature = t })
	}
}

func (lat *Lattice) EnableCollisions(enable bool) {
	lat.collisionsEnabled = enable
	lat.voxels.ForEach(func(_ Index3D, v *Voxel) { v.EnableCollisions(enable) })
	if !enable {
		lat.collisions = nil
		lat.voxels.ForEach(func(_ Index3D, v *Voxel) { v.collisions = nil })
	}
}

// External lazily allocates and returns the External for the voxel at
// (i,j,k), or nil if no voxel exists there.
func (lat *Lattice) External(i, j, k int) *External {
	v := lat.voxels.Get(Index3D{i, j, k})
	if v == nil {
		return nil
	}
	if v.Ext == nil {
		v.Ext = NewExternal()
	}
	return v.Ext
}

// ResetTime returns every voxel to its nominal pose and momentum and every
// link to its unstressed state, per SPEC_FULL.md §6.
func (lat *Lattice) ResetTime() {
	lat.currentTime = 0
	lat.voxels.ForEach(func(_ Index3D, v *Voxel) { v.Reset() })
	for axis := Axis(0); axis < 3; axis++ {
		lat.links[axis].ForEach(func(_ Index3D, l *Link) {
			l.strain, l.maxStrain, l.axialStress = 0, 0, 0
			l.forceNeg, l.forcePos = vecmath.Vec3{}, vecmath.Vec3{}
			l.momentNeg, l.momentPos = vecmath.Vec3{}, vecmath.Vec3{}
			l.localVelocityValid = false
			l.smallAngle = true
		})
	}
	lat.collisions = nil
	lat.collisionsStale = true
}

// CurrentTime returns the total simulated time accumulated by DoTimeStep.
func (lat *Lattice) CurrentTime() float64 { return lat.currentTime }

// allLinks returns every link currently in the lattice, across all three axes.
func (lat *Lattice) allLinks() []*Link {
	var out []*Link
	for axis := Axis(0); axis < 3; axis++ {
		lat.links[axis].ForEach(func(_ Index3D, l *Link) { out = append(out, l) })
	}
	return out
}

func (lat *Lattice) allVoxels() []*Voxel {
	var out []*Voxel
	lat.voxels.ForEach(func(_ Index3D, v *Voxel) { out = append(out, v) })
	return out
}

// RecommendedTimeStep returns the largest dt under which explicit
// integration is expected to remain stable: one radian of the lattice's
// highest natural frequency, per SPEC_FULL.md §4.8.
func (lat *Lattice) RecommendedTimeStep() float64 {
	links := lat.allLinks()
	maxFreq2 := 0.0
	for _, l := range links {
		mMin := math.Min(l.neg.Mat.Mass(), l.pos.Mat.Mass())
		if mMin <= 0 {
			continue
		}
		freq2 := l.AxialStiffness() / mMin
		if freq2 > maxFreq2 {
			maxFreq2 = freq2
		}
	}
	if maxFreq2 == 0 {
		lat.voxels.ForEach(func(_ Index3D, v *Voxel) {
			if v.Mat.Mass() <= 0 {
				return
			}
			freq2 := v.Mat.E * v.Mat.NominalSize / v.Mat.Mass()
			if freq2 > maxFreq2 {
				maxFreq2 = freq2
			}
		})
	}
	if maxFreq2 <= 0 {
		return 0
	}
	return 1 / (2 * math.Pi * math.Sqrt(maxFreq2))
}

// DoTimeStep advances the lattice by dt (or RecommendedTimeStep() if dt<=0):
// link force update, then collision refresh and force update, then voxel
// integration, each loop fanned out across a worker pool, strictly
// sequenced per SPEC_FULL.md §5.
func (lat *Lattice) DoTimeStep(dt float64) error {
	if dt <= 0 {
		dt = lat.RecommendedTimeStep()
		if dt <= 0 {
			return nil
		}
	}

	links := lat.allLinks()
	parallelFor(len(links), func(i int) { links[i].UpdateForces() })

	for _, l := range links {
		if l.Diverged() {
			return &DivergenceError{LinkAxis: l.Axis, Strain: l.strain}
		}
	}

	if lat.collisionsEnabled {
		lat.refreshCollisions()
		cols := lat.collisions
		parallelFor(len(cols), func(i int) { cols[i].UpdateContactForce() })
	}

	voxels := lat.allVoxels()
	parallelFor(len(voxels), func(i int) { voxels[i].TimeStep(dt) })

	lat.currentTime += dt
	return nil
}

// refreshCollisions regenerates the collision watchlist when any surface
// voxel has moved more than half a watch-distance since the last snapshot,
// per SPEC_FULL.md §4.7.
func (lat *Lattice) refreshCollisions() {
	var surface []*Voxel
	lat.voxels.ForEach(func(_ Index3D, v *Voxel) {
		if v.IsSurface() && v.IsCollisionsEnabled() {
			surface = append(surface, v)
		}
	})

	needsRegen := lat.collisionsStale
	threshold := 0.5 * lat.watchDistance * lat.VoxelSize
	if !needsRegen {
		for _, v := range surface {
			if v.Pos.Dist(v.lastColWatchPos) > threshold {
				needsRegen = true
				break
			}
		}
	}
	if !needsRegen {
		return
	}

	for _, v := range surface {
		v.nearby = lat.nearbySet(v)
	}

	lat.collisions = nil
	for _, v := range surface {
		v.collisions = nil
		v.lastColWatchPos = v.Pos
	}

	envelope := EnvelopeRadius * lat.VoxelSize
	watchRadius := 2*envelope + lat.watchDistance*lat.VoxelSize
	for a := 0; a < len(surface); a++ {
		for b := a + 1; b < len(surface); b++ {
			v1, v2 := surface[a], surface[b]
			if v1.nearby[v2] {
				continue
			}
			if v1.Pos.Dist(v2.Pos) > watchRadius {
				continue
			}
			c := NewCollision(v1, v2)
			lat.collisions = append(lat.collisions, c)
			v1.collisions = append(v1.collisions, c)
			v2.collisions = append(v2.collisions, c)
		}
	}
	lat.collisionsStale = false
}

// nearbySet computes the set of voxels reachable from v through at most
// 2*(1+watchDistance) link hops (a small integer, independent of voxel
// size), used to exclude lattice-connected pairs from collision.
func (lat *Lattice) nearbySet(v *Voxel) map[*Voxel]bool {
	maxHops := int(2 * (1 + lat.watchDistance))
	visited := map[*Voxel]bool{v: true}
	frontier := []*Voxel{v}
	for hop := 0; hop < maxHops; hop++ {
		var next []*Voxel
		for _, cur := range frontier {
			for _, d := range allDirections {
				l := cur.Link(d)
				if l == nil {
					continue
				}
				n := l.other(cur)
				if !visited[n] {
					visited[n] = true
					next = append(next, n)
				}
			}
		}
		frontier = next
		if len(frontier) == 0 {
			break
		}
	}
	return visited
}

// Reduction selects the aggregation StateInfo applies across the lattice.
type Reduction int

const (
	ReductionMin Reduction = iota
	ReductionMax
	ReductionTotal
	ReductionAverage
)

// Quantity selects the per-voxel or per-link scalar StateInfo reduces.
type Quantity int

const (
	QuantityDisplacement Quantity = iota
	QuantityVelocity
	QuantityKineticEnergy
	QuantityPressure
	QuantityVolumetricStrain
	QuantityLinkAxialStrain
	QuantityLinkAxialStress
	QuantityLinkStrainEnergy
)

// StateInfo reduces a named quantity across every voxel (or every link, for
// the Link* quantities) in the lattice, mirroring the original engine's
// unified reduction routine (SPEC_FULL.md §6 Query API).
func (lat *Lattice) StateInfo(q Quantity, r Reduction) float64 {
	var values []float64
	switch q {
	case QuantityDisplacement:
		lat.voxels.ForEach(func(_ Index3D, v *Voxel) { values = append(values, v.Displacement().Length()) })
	case QuantityVelocity:
		lat.voxels.ForEach(func(_ Index3D, v *Voxel) { values = append(values, v.Velocity().Length()) })
	case QuantityKineticEnergy:
		lat.voxels.ForEach(func(_ Index3D, v *Voxel) { values = append(values, v.KineticEnergy()) })
	case QuantityPressure:
		lat.voxels.ForEach(func(_ Index3D, v *Voxel) { values = append(values, v.Pressure()) })
	case QuantityVolumetricStrain:
		lat.voxels.ForEach(func(_ Index3D, v *Voxel) { values = append(values, v.VolumetricStrain()) })
	case QuantityLinkAxialStrain:
		for _, l := range lat.allLinks() {
			values = append(values, l.strain)
		}
	case QuantityLinkAxialStress:
		for _, l := range lat.allLinks() {
			values = append(values, l.axialStress)
		}
	case QuantityLinkStrainEnergy:
		for _, l := range lat.allLinks() {
			values = append(values, l.StrainEnergy())
		}
	}
	return reduce(values, r)
}

func reduce(values []float64, r Reduction) float64 {
	if len(values) == 0 {
		return 0
	}
	switch r {
	case ReductionMin:
		m := values[0]
		for _, v := range values[1:] {
			if v < m {
				m = v
			}
		}
		return m
	case ReductionMax:
		m := values[0]
		for _, v := range values[1:] {
			if v > m {
				m = v
			}
		}
		return m
	case ReductionTotal:
		sum := 0.0
		for _, v := range values {
			sum += v
		}
		return sum
	default: // ReductionAverage
		sum := 0.0
		for _, v := range values {
			sum += v
		}
		return sum / float64(len(values))
	}
}

// Voxels returns every voxel currently in the lattice, in a stable scanline
// order, suitable for assigning linear-solver equation numbers.
func (lat *Lattice) Voxels() []*Voxel { return lat.allVoxels() }

// Links returns every link currently in the lattice, across all three axes,
// in a stable scanline order.
func (lat *Lattice) Links() []*Link { return lat.allLinks() }

// VoxelAt returns the voxel handle at (i,j,k), or nil if none exists.
func (lat *Lattice) VoxelAt(i, j, k int) *Voxel { return lat.voxels.Get(Index3D{i, j, k}) }

// LinkAt returns the link along axis whose negative-direction end is at
// (i,j,k), or nil if none exists.
func (lat *Lattice) LinkAt(axis Axis, i, j, k int) *Link { return lat.links[axis].Get(Index3D{i, j, k}) }

// VoxelCount and LinkCount report the current population sizes.
func (lat *Lattice) VoxelCount() int { return lat.voxels.Len() }
func (lat *Lattice) LinkCount() int {
	n := 0
	for axis := Axis(0); axis < 3; axis++ {
		n += lat.links[axis].Len()
	}
	return n
}
