package mesh

import (
	"errors"

	"gonum.org/v1/gonum/spatial/r3"

	"terramesh.dev/internal/field"
)

var (
	// ErrMalformedSupport reports a degenerate support volume. Rejected
	// before any sampling work happens.
	ErrMalformedSupport = errors.New("mesh: support volume has non-positive size")

	// ErrBadCellSize reports a non-positive lattice cell size.
	ErrBadCellSize = errors.New("mesh: cell size must be positive")
)

// Vertex carries everything the renderer needs per surface point: position,
// outward unit normal and the material mix to texture it with.
type Vertex struct {
	Position r3.Vec
	Normal   r3.Vec
	Blend    field.Blend
}

// Mesh is a plain indexed triangle list. Indices come in groups of three; no
// adjacency structure beyond that is maintained.
type Mesh struct {
	Vertices []Vertex
	Indices  []uint32
}

// TriangleCount is the number of emitted triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// Box is an axis-aligned support volume.
type Box struct {
	Min  r3.Vec
	Size r3.Vec
}

func (b Box) valid() bool {
	return b.Size.X > 0 && b.Size.Y > 0 && b.Size.Z > 0
}

// DensityFunc evaluates the implicit field at a point. It fails with an
// Unavailable error when the underlying chunk data is not resident.
type DensityFunc func(r3.Vec) (float64, error)

// MaterialFunc evaluates the material blend at a point.
type MaterialFunc func(r3.Vec) (field.Blend, error)

// Polygonizer turns an implicit field over a support volume into a triangle
// mesh. Marching cubes is one implementation; anything honoring this contract
// can replace it.
type Polygonizer interface {
	Polygonize(support Box, density DensityFunc, material MaterialFunc) (Mesh, error)
}
