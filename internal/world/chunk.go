package world

import (
	"fmt"
	"math"
)

// Chunk owns one MaterialTower per column of a 16x16 block footprint spanning
// the full world height. Chunks are immutable once built; the store swaps
// whole chunks in and out instead of mutating them.
type Chunk struct {
	Pos    ChunkPos
	towers [ChunkSize * ChunkSize]Tower
}

// NewChunk builds a chunk from per-column towers indexed [lz*ChunkSize+lx].
// Every tower is checked against the full-height-coverage invariant.
func NewChunk(pos ChunkPos, towers [ChunkSize * ChunkSize]Tower) (*Chunk, error) {
	for i := range towers {
		if err := towers[i].validate(); err != nil {
			return nil, fmt.Errorf("chunk %d,%d column %d,%d: %w", pos.CX, pos.CZ, i%ChunkSize, i/ChunkSize, err)
		}
	}
	return &Chunk{Pos: pos, towers: towers}, nil
}

// Tower returns the column at local coordinates lx, lz.
func (c *Chunk) Tower(lx, lz int) Tower {
	return c.towers[lz*ChunkSize+lx]
}

// MaterialAt resolves a world block coordinate that must lie inside this chunk.
func (c *Chunk) MaterialAt(pos BlockPos) Material {
	lx, lz := Local(pos.X, pos.Z)
	return c.Tower(lx, lz).MaterialAt(pos.Y)
}

// Bounds is the chunk's XZ footprint in world block coordinates.
func (c *Chunk) Bounds() Rect {
	return Square(float64(c.Pos.CX*ChunkSize), float64(c.Pos.CZ*ChunkSize), ChunkSize)
}

// columnPortion is the length of [colStart, colStart+1) covered by
// [lo, hi), where colStart is a column's lower edge in local coordinates.
func columnPortion(colStart int, lo, hi float64) float64 {
	start := math.Max(float64(colStart), lo)
	end := math.Min(float64(colStart+1), hi)
	if end <= start {
		return 0
	}
	return end - start
}

// SweepVolumes accumulates, for every column the local rectangle overlaps,
// each material's contribution (XZ overlap area x Y height) into vols. The
// rectangle is in chunk-local coordinates and must fit inside the chunk.
func (c *Chunk) SweepVolumes(local Rect, yLo, yHi float64, vols *Volumes) {
	xStart := int(math.Floor(local.Left()))
	zStart := int(math.Floor(local.Bottom()))
	xEnd := int(math.Ceil(local.Right() - rectEpsilon))
	zEnd := int(math.Ceil(local.Top() - rectEpsilon))
	if xStart < 0 {
		xStart = 0
	}
	if zStart < 0 {
		zStart = 0
	}
	if xEnd > ChunkSize {
		xEnd = ChunkSize
	}
	if zEnd > ChunkSize {
		zEnd = ChunkSize
	}

	for z := zStart; z < zEnd; z++ {
		zScale := columnPortion(z, local.Bottom(), local.Top())
		for x := xStart; x < xEnd; x++ {
			area := columnPortion(x, local.Left(), local.Right()) * zScale
			if area == 0 {
				continue
			}
			c.Tower(x, z).Intersect(yLo, yHi, func(m Material, height float64) {
				vols.Add(m, area*height)
			})
		}
	}
}
