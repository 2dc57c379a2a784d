package config

import (
	"github.com/cpmech/voxelyze/lattice"
)

// MaterialData is one entry of the scenario document's "materials" array,
// enumerating the recognized options named in the voxel lattice
// construction API: either {youngsModulus, density, ...} for a linear
// material, or {strainData, stressData} for a piecewise one.
type MaterialData struct {
	Name string `json:"name"`

	YoungsModulus float64 `json:"youngsModulus"`
	Density       float64 `json:"density"`

	HasColor bool    `json:"hasColor"`
	R        float64 `json:"r"`
	G        float64 `json:"g"`
	B        float64 `json:"b"`
	A        float64 `json:"alpha"`

	PoissonsRatio    float64 `json:"poissonsRatio"`
	CTE              float64 `json:"cte"`
	StaticFriction   float64 `json:"staticFriction"`
	KineticFriction  float64 `json:"kineticFriction"`
	InternalDamping  float64 `json:"internalDamping"`
	GlobalDamping    float64 `json:"globalDamping"`
	CollisionDamping float64 `json:"collisionDamping"`

	ExternalScaleX float64 `json:"externalScaleX"`
	ExternalScaleY float64 `json:"externalScaleY"`
	ExternalScaleZ float64 `json:"externalScaleZ"`

	StrainData []float64 `json:"strainData"`
	StressData []float64 `json:"stressData"`
}

// ToMaterialConfig converts the document entry into the lattice package's
// construction-time option set.
func (m MaterialData) ToMaterialConfig() lattice.MaterialConfig {
	return lattice.MaterialConfig{
		YoungsModulus:    m.YoungsModulus,
		Density:          m.Density,
		Name:             m.Name,
		HasColor:         m.HasColor,
		R:                m.R,
		G:                m.G,
		B:                m.B,
		A:                m.A,
		PoissonsRatio:    m.PoissonsRatio,
		CTE:              m.CTE,
		StaticFriction:   m.StaticFriction,
		KineticFriction:  m.KineticFriction,
		InternalDamping:  m.InternalDamping,
		GlobalDamping:    m.GlobalDamping,
		CollisionDamping: m.CollisionDamping,
		ExternalScaleX:   m.ExternalScaleX,
		ExternalScaleY:   m.ExternalScaleY,
		ExternalScaleZ:   m.ExternalScaleZ,
		StrainData:       m.StrainData,
		StressData:       m.StressData,
	}
}
