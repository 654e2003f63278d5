package field

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"terramesh.dev/internal/world"
)

// RigidBlock is an axis-aligned box that must keep its exact shape in the
// output mesh: trees, posts, structures. It contributes its own signed
// distance instead of passing through the smoothing kernel.
type RigidBlock struct {
	Center   r3.Vec
	Extents  r3.Vec // half-sizes along each axis
	Material world.Material
}

// UnitBlock is a rigid block with the footprint of a single world block
// centered at p.
func UnitBlock(center r3.Vec, m world.Material) RigidBlock {
	return RigidBlock{Center: center, Extents: r3.Vec{X: 0.5, Y: 0.5, Z: 0.5}, Material: m}
}

// Distance is the exact box SDF: negative inside, zero on the surface,
// Euclidean distance outside.
func (b RigidBlock) Distance(p r3.Vec) float64 {
	// Mirror into the positive octant relative to the center.
	q := r3.Vec{
		X: math.Abs(p.X-b.Center.X) - b.Extents.X,
		Y: math.Abs(p.Y-b.Center.Y) - b.Extents.Y,
		Z: math.Abs(p.Z-b.Center.Z) - b.Extents.Z,
	}
	outside := r3.Norm(r3.Vec{
		X: math.Max(q.X, 0),
		Y: math.Max(q.Y, 0),
		Z: math.Max(q.Z, 0),
	})
	inside := math.Min(math.Max(q.X, math.Max(q.Y, q.Z)), 0)
	return outside + inside
}

// WithinMargin reports whether p lies inside the box expanded by margin along
// every axis. Outside it the box's SDF exceeds margin, so callers can skip
// the block entirely when margin covers the smoothing transition width.
func (b RigidBlock) WithinMargin(p r3.Vec, margin float64) bool {
	return math.Abs(p.X-b.Center.X) <= b.Extents.X+margin &&
		math.Abs(p.Y-b.Center.Y) <= b.Extents.Y+margin &&
		math.Abs(p.Z-b.Center.Z) <= b.Extents.Z+margin
}
