package material

import (
	"math"

	"github.com/cpmech/gosl/chk"
)

// GravityAccel is standard gravity in m/s^2, used by VoxelMaterial.GravityForce.
const GravityAccel = 9.80665

// VoxelMaterial is a Material specialized by a nominal cubic edge length: it
// caches mass, moment of inertia, and the precomputed damping-coefficient
// roots every voxel of this material reuses every step.
//
// Ported from VX_MaterialVoxel.
type VoxelMaterial struct {
	Material

	NominalSize float64 // m
	GravityMult float64 // multiple of standard gravity

	mass          float64
	massInverse   float64
	sqrtMass      float64
	firstMoment   float64
	momentInertia float64
	momentInertiaInverse float64

	// damping roots: 2*sqrt(m*E*L) and 2*sqrt(I*E*L^3)
	twoSqMxExS     float64
	twoSqIxExSxSxS float64
}

// NewVoxelMaterial constructs a linear-elastic voxel material of the given
// Young's modulus, density and nominal cubic edge length.
func NewVoxelMaterial(youngsModulus, density, nominalSize float64) (*VoxelMaterial, error) {
	vm := &VoxelMaterial{GravityMult: 1}
	vm.clear()
	if err := vm.SetModelLinear(youngsModulus); err != nil {
		return nil, err
	}
	if err := vm.SetDensity(density); err != nil {
		return nil, err
	}
	if err := vm.SetNominalSize(nominalSize); err != nil {
		return nil, err
	}
	return vm, nil
}

// SetNominalSize sets the cubic voxel edge length and recomputes all cached
// mass/inertia/damping quantities.
func (vm *VoxelMaterial) SetNominalSize(size float64) error {
	if size <= 0 {
		return chk.Err("nominal voxel size must be positive")
	}
	vm.NominalSize = size
	vm.updateDerivedVoxel()
	return nil
}

// NotifyMaterialChanged implements Notifiable so that a VoxelMaterial
// recomputes its cached quantities if it is also used as an embedded base
// (LinkMaterial overrides this with its own combination logic).
func (vm *VoxelMaterial) NotifyMaterialChanged() { vm.updateDerivedVoxel() }

func (vm *VoxelMaterial) updateDerivedVoxel() {
	if vm.NominalSize <= 0 {
		return
	}
	volume := vm.NominalSize * vm.NominalSize * vm.NominalSize
	vm.mass = vm.Rho * volume
	if vm.mass <= 0 {
		vm.mass, vm.massInverse, vm.sqrtMass = 0, 0, 0
		vm.firstMoment, vm.momentInertia, vm.momentInertiaInverse = 0, 0, 0
		vm.twoSqMxExS, vm.twoSqIxExSxSxS = 0, 0
		return
	}
	vm.massInverse = 1 / vm.mass
	vm.sqrtMass = math.Sqrt(vm.mass)
	vm.firstMoment = vm.mass * vm.NominalSize / 2
	vm.momentInertia = vm.mass * vm.NominalSize * vm.NominalSize / 6
	if vm.momentInertia > 0 {
		vm.momentInertiaInverse = 1 / vm.momentInertia
	}
	vm.twoSqMxExS = 2 * math.Sqrt(vm.mass*vm.E*vm.NominalSize)
	vm.twoSqIxExSxSxS = 2 * math.Sqrt(vm.momentInertia*vm.E*vm.NominalSize*vm.NominalSize*vm.NominalSize)
}

func (vm *VoxelMaterial) Mass() float64                 { return vm.mass }
func (vm *VoxelMaterial) MassInverse() float64          { return vm.massInverse }
func (vm *VoxelMaterial) SqrtMass() float64             { return vm.sqrtMass }
func (vm *VoxelMaterial) FirstMoment() float64          { return vm.firstMoment }
func (vm *VoxelMaterial) MomentInertia() float64        { return vm.momentInertia }
func (vm *VoxelMaterial) MomentInertiaInverse() float64 { return vm.momentInertiaInverse }

// InternalDampingTranslateC returns the internal (material) translational damping coefficient.
func (vm *VoxelMaterial) InternalDampingTranslateC() float64 { return vm.ZetaInternal * vm.twoSqMxExS }

// InternalDampingRotateC returns the internal (material) rotational damping coefficient.
func (vm *VoxelMaterial) InternalDampingRotateC() float64 { return vm.ZetaInternal * vm.twoSqIxExSxSxS }

func (vm *VoxelMaterial) GlobalDampingTranslateC() float64 { return vm.ZetaGlobal * vm.twoSqMxExS }
func (vm *VoxelMaterial) GlobalDampingRotateC() float64    { return vm.ZetaGlobal * vm.twoSqIxExSxSxS }

func (vm *VoxelMaterial) CollisionDampingTranslateC() float64 {
	return vm.ZetaCollision * vm.twoSqMxExS
}
func (vm *VoxelMaterial) CollisionDampingRotateC() float64 {
	return vm.ZetaCollision * vm.twoSqIxExSxSxS
}

// PenetrationStiffness returns the stiffness with which a voxel of this
// material resists penetration (floor or collision contact): 2*E*L.
func (vm *VoxelMaterial) PenetrationStiffness() float64 { return 2 * vm.E * vm.NominalSize }

// GravityForce returns the (negative-Z) gravitational force on a voxel of
// this material: -mass*g*gravityMult.
func (vm *VoxelMaterial) GravityForce() float64 {
	return -vm.mass * GravityAccel * vm.GravityMult
}
