package lattice

import (
	"encoding/json"

	"github.com/cpmech/gosl/chk"

	"github.com/cpmech/voxelyze/material"
	"github.com/cpmech/voxelyze/vecmath"
)

// jsonMaterial mirrors one entry of the persisted-state document's
// "materials" array, field-for-field with the original engine's
// CVX_Material::writeJSON/readJSON.
type jsonMaterial struct {
	YoungsModulus *float64  `json:"youngsModulus,omitempty"`
	StrainData    []float64 `json:"strainData,omitempty"`
	StressData    []float64 `json:"stressData,omitempty"`

	Density *float64 `json:"density,omitempty"`
	Name    string   `json:"name,omitempty"`

	Red   *float64 `json:"red,omitempty"`
	Green *float64 `json:"green,omitempty"`
	Blue  *float64 `json:"blue,omitempty"`
	Alpha *float64 `json:"alpha,omitempty"`

	PoissonsRatio       *float64   `json:"poissonsRatio,omitempty"`
	CTE                 *float64   `json:"CTE,omitempty"`
	StaticFriction      *float64   `json:"staticFriction,omitempty"`
	KineticFriction     *float64   `json:"kineticFriction,omitempty"`
	InternalDamping     *float64   `json:"internalDamping,omitempty"`
	GlobalDamping       *float64   `json:"globalDamping,omitempty"`
	CollisionDamping    *float64   `json:"collisionDamping,omitempty"`
	ExternalScaleFactor []float64  `json:"externalScaleFactor,omitempty"`
}

// jsonExternal mirrors one entry of the "externals" array: a boundary
// condition shared by every voxel in VoxelIndices, grouped by identical
// (fixed, translate, rotate, force, moment) tuples, as the original
// engine's writeJSON groups them.
type jsonExternal struct {
	Fixed        []bool    `json:"fixed,omitempty"`
	Translate    []float64 `json:"translate,omitempty"`
	Rotate       []float64 `json:"rotate,omitempty"`
	Force        []float64 `json:"force,omitempty"`
	Moment       []float64 `json:"moment,omitempty"`
	VoxelIndices []int     `json:"voxelIndices"`
}

type jsonDoc struct {
	VoxelSize                  float64        `json:"voxelSize"`
	RelativeAmbientTemperature float64        `json:"relativeAmbientTemperature,omitempty"`
	GravityAcceleration        float64        `json:"gravityAcceleration,omitempty"`
	FloorEnabled               bool           `json:"floorEnabled,omitempty"`
	CollisionsEnabled          bool           `json:"collisionsEnabled,omitempty"`
	Materials                  []jsonMaterial `json:"materials"`
	Voxels                     []int          `json:"voxels"`
	Externals                  []jsonExternal `json:"externals,omitempty"`
}

func f64p(v float64) *float64 { return &v }

// WriteJSON serializes the lattice to the persisted-state document format
// (SPEC_FULL.md §6): voxel size, global parameters, material catalog, a
// flat (x,y,z,materialIndex) quadruple per voxel, and externals grouped by
// identical tuple so voxels sharing one boundary condition serialize once.
func (lat *Lattice) WriteJSON() ([]byte, error) {
	doc := jsonDoc{
		VoxelSize:                  lat.VoxelSize,
		RelativeAmbientTemperature: lat.ambientTemp,
		GravityAcceleration:        lat.gravityMult,
		FloorEnabled:               lat.floorEnabled,
		CollisionsEnabled:          lat.collisionsEnabled,
	}

	handles := lat.MaterialHandles()
	indexOf := make(map[int]int, len(handles))
	for i, h := range handles {
		indexOf[h] = i
		mat, _ := lat.MaterialByHandle(h)
		doc.Materials = append(doc.Materials, materialToJSON(mat))
	}

	voxels := lat.allVoxels()
	type extGroup struct {
		ext     jsonExternal
		indices []int
	}
	var groups []extGroup
	for i, v := range voxels {
		h, _ := lat.MaterialHandleOf(v.Mat)
		doc.Voxels = append(doc.Voxels, v.Index.X, v.Index.Y, v.Index.Z, indexOf[h])

		if v.Ext == nil || v.Ext.IsEmpty() {
			continue
		}
		je := externalToJSON(v.Ext)
		matched := false
		for g := range groups {
			if sameExternal(groups[g].ext, je) {
				groups[g].indices = append(groups[g].indices, i)
				matched = true
				break
			}
		}
		if !matched {
			groups = append(groups, extGroup{ext: je, indices: []int{i}})
		}
	}
	for _, g := range groups {
		g.ext.VoxelIndices = g.indices
		doc.Externals = append(doc.Externals, g.ext)
	}

	return json.MarshalIndent(&doc, "", "  ")
}

func materialToJSON(m *material.VoxelMaterial) jsonMaterial {
	jm := jsonMaterial{Name: m.Name}
	if len(m.Strain) == 2 {
		jm.YoungsModulus = f64p(m.E)
	} else {
		jm.StrainData = m.Strain
		jm.StressData = m.Stress
	}
	if m.Rho != 1 {
		jm.Density = f64p(m.Rho)
	}
	if m.HasColor {
		jm.Red, jm.Green, jm.Blue, jm.Alpha = f64p(m.Color.R), f64p(m.Color.G), f64p(m.Color.B), f64p(m.Color.A)
	}
	if m.Nu != 0 {
		jm.PoissonsRatio = f64p(m.Nu)
	}
	if m.CTE != 0 {
		jm.CTE = f64p(m.CTE)
	}
	if m.MuStatic != 0 {
		jm.StaticFriction = f64p(m.MuStatic)
	}
	if m.MuKinetic != 0 {
		jm.KineticFriction = f64p(m.MuKinetic)
	}
	if m.ZetaInternal != 1 {
		jm.InternalDamping = f64p(m.ZetaInternal)
	}
	if m.ZetaGlobal != 0 {
		jm.GlobalDamping = f64p(m.ZetaGlobal)
	}
	if m.ZetaCollision != 1 {
		jm.CollisionDamping = f64p(m.ZetaCollision)
	}
	if m.ExternalScaleFactor != [3]float64{1, 1, 1} {
		jm.ExternalScaleFactor = m.ExternalScaleFactor[:]
	}
	return jm
}

func externalToJSON(e *External) jsonExternal {
	var je jsonExternal
	if e.IsFixedAny() {
		je.Fixed = []bool{
			e.IsFixed(XTranslate), e.IsFixed(YTranslate), e.IsFixed(ZTranslate),
			e.IsFixed(XRotate), e.IsFixed(YRotate), e.IsFixed(ZRotate),
		}
	}
	if e.IsFixedAnyTranslation() && !e.Translation().IsZero() {
		t := e.Translation()
		je.Translate = []float64{t.X, t.Y, t.Z}
	}
	if e.IsFixedAnyRotation() && !e.Rotation().IsZero() {
		r := e.Rotation()
		je.Rotate = []float64{r.X, r.Y, r.Z}
	}
	if !e.IsFixedAllTranslation() && !e.Force.IsZero() {
		je.Force = []float64{e.Force.X, e.Force.Y, e.Force.Z}
	}
	if !e.IsFixedAllRotation() && !e.Moment.IsZero() {
		je.Moment = []float64{e.Moment.X, e.Moment.Y, e.Moment.Z}
	}
	return je
}

func sameExternal(a, b jsonExternal) bool {
	return boolsEq(a.Fixed, b.Fixed) && floatsEq(a.Translate, b.Translate) &&
		floatsEq(a.Rotate, b.Rotate) && floatsEq(a.Force, b.Force) && floatsEq(a.Moment, b.Moment)
}

func boolsEq(a, b []bool) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func floatsEq(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// ReadJSON parses the persisted-state document format and builds a fresh
// Lattice from it, mirroring CVoxelyze::readJSON.
func ReadJSON(data []byte) (*Lattice, error) {
	var doc jsonDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, chk.Err("lattice: cannot parse persisted state: %v", err)
	}
	lat, err := New(doc.VoxelSize)
	if err != nil {
		return nil, err
	}
	lat.SetAmbientTemperature(doc.RelativeAmbientTemperature, false)
	lat.SetGravity(doc.GravityAcceleration)
	lat.EnableFloor(doc.FloorEnabled)
	lat.EnableCollisions(doc.CollisionsEnabled)

	handles := make([]int, len(doc.Materials))
	for i, jm := range doc.Materials {
		cfg := materialFromJSON(jm)
		h, err := lat.AddMaterialConfig(cfg)
		if err != nil {
			return nil, chk.Err("lattice: material %d: %v", i, err)
		}
		handles[i] = h
	}

	if len(doc.Voxels)%4 != 0 {
		return nil, chk.Err("lattice: voxels array length %d is not a multiple of 4", len(doc.Voxels))
	}
	n := len(doc.Voxels) / 4
	voxelList := make([]*Voxel, n)
	for i := 0; i < n; i++ {
		x, y, z, mi := doc.Voxels[4*i], doc.Voxels[4*i+1], doc.Voxels[4*i+2], doc.Voxels[4*i+3]
		if mi < 0 || mi >= len(handles) {
			return nil, chk.Err("lattice: voxel %d references out-of-range material index %d", i, mi)
		}
		v, err := lat.SetVoxel(handles[mi], x, y, z)
		if err != nil {
			return nil, chk.Err("lattice: voxel %d: %v", i, err)
		}
		voxelList[i] = v
	}

	for _, je := range doc.Externals {
		for _, vi := range je.VoxelIndices {
			if vi < 0 || vi >= len(voxelList) {
				return nil, chk.Err("lattice: external references out-of-range voxel index %d", vi)
			}
			v := voxelList[vi]
			if v.Ext == nil {
				v.Ext = NewExternal()
			}
			applyExternalJSON(v.Ext, je)
		}
	}

	return lat, nil
}

func materialFromJSON(jm jsonMaterial) MaterialConfig {
	cfg := MaterialConfig{Name: jm.Name, Density: 1}
	if jm.YoungsModulus != nil {
		cfg.YoungsModulus = *jm.YoungsModulus
	}
	cfg.StrainData = jm.StrainData
	cfg.StressData = jm.StressData
	if jm.Density != nil {
		cfg.Density = *jm.Density
	}
	if jm.Red != nil || jm.Green != nil || jm.Blue != nil || jm.Alpha != nil {
		cfg.HasColor = true
		cfg.R, cfg.G, cfg.B, cfg.A = derefOr(jm.Red, 0), derefOr(jm.Green, 0), derefOr(jm.Blue, 0), derefOr(jm.Alpha, 1)
	}
	cfg.PoissonsRatio = derefOr(jm.PoissonsRatio, 0)
	cfg.CTE = derefOr(jm.CTE, 0)
	cfg.StaticFriction = derefOr(jm.StaticFriction, 0)
	cfg.KineticFriction = derefOr(jm.KineticFriction, 0)
	cfg.InternalDamping = derefOr(jm.InternalDamping, 1)
	cfg.GlobalDamping = derefOr(jm.GlobalDamping, 0)
	cfg.CollisionDamping = derefOr(jm.CollisionDamping, 1)
	if len(jm.ExternalScaleFactor) == 3 {
		cfg.ExternalScaleX, cfg.ExternalScaleY, cfg.ExternalScaleZ = jm.ExternalScaleFactor[0], jm.ExternalScaleFactor[1], jm.ExternalScaleFactor[2]
	}
	return cfg
}

func derefOr(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}

func applyExternalJSON(e *External, je jsonExternal) {
	if len(je.Fixed) == 6 {
		for k := 0; k < 6; k++ {
			if je.Fixed[k] {
				dof := DofComponent(1 << uint(k))
				e.dofFixed |= dof
			}
		}
	}
	if len(je.Translate) == 3 {
		e.translation = vecmath.NewVec3(je.Translate[0], je.Translate[1], je.Translate[2])
		e.rotationChanged()
	}
	if len(je.Rotate) == 3 {
		e.rotation = vecmath.NewVec3(je.Rotate[0], je.Rotate[1], je.Rotate[2])
		e.rotationChanged()
	}
	if len(je.Force) == 3 {
		e.AddForce(vecmath.NewVec3(je.Force[0], je.Force[1], je.Force[2]))
	}
	if len(je.Moment) == 3 {
		e.AddMoment(vecmath.NewVec3(je.Moment[0], je.Moment[1], je.Moment[2]))
	}
}
