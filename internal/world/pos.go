package world

import "terramesh.dev/internal/mathx"

// Horizontal chunk footprint in blocks and the vertical block range covered by
// every column. Both ends of the Y range follow the save format the block
// sources read.
const (
	ChunkSize = 16
	MinY      = -64
	MaxY      = 320
)

// BlockPos is an integer block coordinate. X and Z may be negative; the world
// is unbounded in the horizontal plane.
type BlockPos struct {
	X, Y, Z int
}

// ChunkPos identifies a chunk by its horizontal grid coordinate.
type ChunkPos struct {
	CX, CZ int
}

// ChunkPosAt maps a block coordinate to its owning chunk. Floor division, not
// truncation: block -1 belongs to chunk -1, not chunk 0.
func ChunkPosAt(x, z int) ChunkPos {
	return ChunkPos{
		CX: mathx.FloorDiv(x, ChunkSize),
		CZ: mathx.FloorDiv(z, ChunkSize),
	}
}

// Local returns the column indices of a block coordinate within its chunk.
func Local(x, z int) (lx, lz int) {
	return mathx.Mod(x, ChunkSize), mathx.Mod(z, ChunkSize)
}

// Rect is an axis-aligned rectangle in the XZ plane, in block units.
type Rect struct {
	X, Z          float64 // min corner
	Width, Height float64
}

func Square(x, z, size float64) Rect {
	return Rect{X: x, Z: z, Width: size, Height: size}
}

func (r Rect) Left() float64   { return r.X }
func (r Rect) Right() float64  { return r.X + r.Width }
func (r Rect) Bottom() float64 { return r.Z }
func (r Rect) Top() float64    { return r.Z + r.Height }

const rectEpsilon = 1e-9

// Intersect returns the overlap of two rectangles, if any.
func (r Rect) Intersect(other Rect) (Rect, bool) {
	x := max(r.Left(), other.Left())
	z := max(r.Bottom(), other.Bottom())
	w := min(r.Right(), other.Right()) - x
	h := min(r.Top(), other.Top()) - z
	if w < rectEpsilon || h < rectEpsilon {
		return Rect{}, false
	}
	return Rect{X: x, Z: z, Width: w, Height: h}, true
}

// Offset translates the rectangle's origin.
func (r Rect) Offset(dx, dz float64) Rect {
	return Rect{X: r.X + dx, Z: r.Z + dz, Width: r.Width, Height: r.Height}
}
