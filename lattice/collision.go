package lattice

import "github.com/cpmech/voxelyze/vecmath"

// EnvelopeRadius is the collision envelope radius in units of voxel edge
// length; values less than 0.5 or greater than 0.866 are of limited use.
// Matches SPEC_FULL.md §6 (0.625 default, chosen over the original source's
// 0.75 per this spec's authority).
var EnvelopeRadius = 0.625

// Collision is a potential contact spring between two nearby surface
// voxels. Ported from CVX_Collision.
type Collision struct {
	V1, V2 *Voxel

	penetrationStiffness float64
	dampingC             float64
	force                vecmath.Vec3
}

// NewCollision creates a watched collision pair and precomputes its combined
// stiffness and damping.
func NewCollision(v1, v2 *Voxel) *Collision {
	c := &Collision{V1: v1, V2: v2}
	k1, k2 := v1.Mat.PenetrationStiffness(), v2.Mat.PenetrationStiffness()
	if k1+k2 > 0 {
		c.penetrationStiffness = 2 / (1/k1 + 1/k2)
	}
	c.dampingC = 0.5 * (v1.Mat.CollisionDampingTranslateC() + v2.Mat.CollisionDampingTranslateC())
	return c
}

// ContactForce returns the contact force for voxel (must be V1 or V2),
// directed toward the other voxel and accurate since the last
// UpdateContactForce call. The repelling force on voxel is its negation,
// which is why Voxel.Force subtracts it.
func (c *Collision) ContactForce(voxel *Voxel) vecmath.Vec3 {
	if voxel == c.V1 {
		return c.force
	}
	if voxel == c.V2 {
		return c.force.Neg()
	}
	return vecmath.Vec3{}
}

// UpdateContactForce recomputes the spring force from the current positions
// and velocities of V1 and V2.
func (c *Collision) UpdateContactForce() {
	diff := c.V2.Pos.Sub(c.V1.Pos)
	dist := diff.Length()
	if dist == 0 {
		c.force = vecmath.Vec3{}
		return
	}
	u := diff.Scale(1 / dist)
	r1 := c.V1.Mat.NominalSize * EnvelopeRadius
	r2 := c.V2.Mat.NominalSize * EnvelopeRadius
	overlap := (r1 + r2) - dist
	if overlap <= 0 {
		c.force = vecmath.Vec3{}
		return
	}
	v1 := c.V1.Velocity()
	v2 := c.V2.Velocity()
	closingSpeed := v1.Dot(u) - v2.Dot(u)
	mag := c.penetrationStiffness*overlap + c.dampingC*closingSpeed
	c.force = u.Scale(mag)
}
