// Package worldgen builds deterministic procedural terrain columns. The same
// seed always yields the same world, so tests and seeded databases stay
// reproducible across runs.
package worldgen

import (
	"fmt"

	"terramesh.dev/internal/mathx"
	"terramesh.dev/internal/world"
)

// Biome names returned by BiomeAt.
const (
	BiomePlains = "PLAINS"
	BiomeHills  = "HILLS"
	BiomeDesert = "DESERT"
)

// Params controls the generator. Zero values are replaced by defaults in
// NewGenerator.
type Params struct {
	Seed int64

	// BaseHeight is the mean terrain surface; Amplitude bounds how far the
	// heightmap wanders from it.
	BaseHeight int
	Amplitude  int

	// HeightGrid is the lattice spacing of the value noise driving the
	// heightmap; BiomeRegionSize is the side of the square biome cells.
	HeightGrid      int
	BiomeRegionSize int

	// Material palette. All must be non-air and distinct from each other.
	Stone world.Material
	Dirt  world.Material
	Grass world.Material
	Sand  world.Material
	Wood  world.Material
}

// Generator produces chunks on demand. It implements world.Source.
type Generator struct {
	p Params
}

func NewGenerator(p Params) (*Generator, error) {
	if p.BaseHeight == 0 {
		p.BaseHeight = 64
	}
	if p.Amplitude == 0 {
		p.Amplitude = 12
	}
	if p.HeightGrid <= 0 {
		p.HeightGrid = 32
	}
	if p.BiomeRegionSize <= 0 {
		p.BiomeRegionSize = 96
	}
	for _, m := range []world.Material{p.Stone, p.Dirt, p.Grass, p.Sand, p.Wood} {
		if m == world.Air || m >= world.MaxMaterials {
			return nil, fmt.Errorf("worldgen: palette material %d out of range", m)
		}
	}
	if p.BaseHeight-p.Amplitude <= world.MinY || p.BaseHeight+p.Amplitude >= world.MaxY {
		return nil, fmt.Errorf("worldgen: height range [%d,%d] escapes world bounds",
			p.BaseHeight-p.Amplitude, p.BaseHeight+p.Amplitude)
	}
	return &Generator{p: p}, nil
}

// BiomeAt returns the biome of the region cell containing (x, z).
func (g *Generator) BiomeAt(x, z int) string {
	rx := mathx.FloorDiv(x, g.p.BiomeRegionSize)
	rz := mathx.FloorDiv(z, g.p.BiomeRegionSize)
	switch mathx.Hash2(g.p.Seed+7, rx, rz) % 3 {
	case 0:
		return BiomePlains
	case 1:
		return BiomeHills
	default:
		return BiomeDesert
	}
}

// gridNoise hashes a height-grid corner into [0, 1).
func (g *Generator) gridNoise(gx, gz int) float64 {
	return float64(mathx.Hash2(g.p.Seed, gx, gz)%4096) / 4096.0
}

// HeightAt is the surface height (first air Y) of column (x, z). Bilinear
// interpolation of hashed grid corners keeps neighboring columns continuous,
// unlike per-column hashing which would produce single-block spikes that
// smooth terrain handles poorly.
func (g *Generator) HeightAt(x, z int) int {
	grid := g.p.HeightGrid
	gx := mathx.FloorDiv(x, grid)
	gz := mathx.FloorDiv(z, grid)
	fx := float64(mathx.Mod(x, grid)) / float64(grid)
	fz := float64(mathx.Mod(z, grid)) / float64(grid)

	n00 := g.gridNoise(gx, gz)
	n10 := g.gridNoise(gx+1, gz)
	n01 := g.gridNoise(gx, gz+1)
	n11 := g.gridNoise(gx+1, gz+1)
	n := n00*(1-fx)*(1-fz) + n10*fx*(1-fz) + n01*(1-fx)*fz + n11*fx*fz

	amp := float64(g.p.Amplitude)
	if g.BiomeAt(x, z) == BiomeHills {
		amp *= 2
		// Re-check bounds under the doubled amplitude.
		if float64(g.p.BaseHeight)+amp >= float64(world.MaxY-1) {
			amp = float64(world.MaxY-2) - float64(g.p.BaseHeight)
		}
	}
	return g.p.BaseHeight + int((n-0.5)*2*amp)
}

// Column fills a full-height material column for (x, z), bottom to top.
func (g *Generator) Column(x, z int, col []world.Material) {
	h := g.HeightAt(x, z)
	biome := g.BiomeAt(x, z)
	for i := range col {
		y := world.MinY + i
		switch {
		case y >= h:
			col[i] = world.Air
		case biome == BiomeDesert && y >= h-4:
			col[i] = g.p.Sand
		case y == h-1:
			col[i] = g.p.Grass
		case y >= h-4:
			col[i] = g.p.Dirt
		default:
			col[i] = g.p.Stone
		}
	}

	// Sparse tree trunks in the plains, planted on the surface.
	if biome == BiomePlains && mathx.Hash2(g.p.Seed+31, x, z)%1000 < 4 {
		for y := h; y < h+5 && y < world.MaxY; y++ {
			col[y-world.MinY] = g.p.Wood
		}
	}
}

// LoadChunk generates the chunk at pos. It never fails; the error return
// satisfies world.Source.
func (g *Generator) LoadChunk(pos world.ChunkPos) (*world.Chunk, error) {
	col := make([]world.Material, world.MaxY-world.MinY)
	var towers [world.ChunkSize * world.ChunkSize]world.Tower
	for lz := 0; lz < world.ChunkSize; lz++ {
		for lx := 0; lx < world.ChunkSize; lx++ {
			g.Column(pos.CX*world.ChunkSize+lx, pos.CZ*world.ChunkSize+lz, col)
			tw, err := world.BuildTower(col)
			if err != nil {
				return nil, fmt.Errorf("worldgen: column %d,%d: %w", lx, lz, err)
			}
			towers[lz*world.ChunkSize+lx] = tw
		}
	}
	return world.NewChunk(pos, towers)
}
