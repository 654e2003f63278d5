package worldgen

import (
	"testing"

	"terramesh.dev/internal/world"
)

func testParams() Params {
	return Params{
		Seed:  42,
		Stone: 3,
		Dirt:  1,
		Grass: 2,
		Sand:  5,
		Wood:  4,
	}
}

func TestGeneratorDeterministic(t *testing.T) {
	a, err := NewGenerator(testParams())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	b, err := NewGenerator(testParams())
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	for _, pos := range []world.ChunkPos{{CX: 0, CZ: 0}, {CX: -3, CZ: 7}, {CX: 100, CZ: -100}} {
		ca, err := a.LoadChunk(pos)
		if err != nil {
			t.Fatalf("load %v: %v", pos, err)
		}
		cb, err := b.LoadChunk(pos)
		if err != nil {
			t.Fatalf("load %v: %v", pos, err)
		}
		for y := world.MinY; y < world.MaxY; y += 17 {
			for lx := 0; lx < world.ChunkSize; lx += 5 {
				for lz := 0; lz < world.ChunkSize; lz += 5 {
					bp := world.BlockPos{X: pos.CX*world.ChunkSize + lx, Y: y, Z: pos.CZ*world.ChunkSize + lz}
					if ca.MaterialAt(bp) != cb.MaterialAt(bp) {
						t.Fatalf("chunk %v diverges at %v", pos, bp)
					}
				}
			}
		}
	}
}

func TestGeneratorSurfaceShape(t *testing.T) {
	g, err := NewGenerator(testParams())
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	for _, c := range []struct{ x, z int }{{0, 0}, {-17, 33}, {500, -500}, {31, 31}} {
		h := g.HeightAt(c.x, c.z)
		if h <= world.MinY || h >= world.MaxY {
			t.Fatalf("column %d,%d: height %d out of world range", c.x, c.z, h)
		}

		pos := world.ChunkPosAt(c.x, c.z)
		ch, err := g.LoadChunk(pos)
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		below := ch.MaterialAt(world.BlockPos{X: c.x, Y: h - 1, Z: c.z})
		if below == world.Air {
			t.Fatalf("column %d,%d: air just below surface height %d", c.x, c.z, h)
		}
		// A tree trunk may stand on the surface; everything else is air there.
		above := ch.MaterialAt(world.BlockPos{X: c.x, Y: h, Z: c.z})
		if above != world.Air && above != testParams().Wood {
			t.Fatalf("column %d,%d: solid %d above surface height %d", c.x, c.z, above, h)
		}
		deep := ch.MaterialAt(world.BlockPos{X: c.x, Y: world.MinY + 1, Z: c.z})
		if deep != testParams().Stone {
			t.Fatalf("column %d,%d: deep block is %d, want stone", c.x, c.z, deep)
		}
	}
}

func TestGeneratorHeightContinuity(t *testing.T) {
	g, err := NewGenerator(testParams())
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	// Inside one biome cell the interpolated heightmap moves at most a couple
	// of blocks per step.
	biome := g.BiomeAt(0, 0)
	prev := g.HeightAt(0, 0)
	for x := 1; x < 64; x++ {
		if g.BiomeAt(x, 0) != biome {
			break
		}
		h := g.HeightAt(x, 0)
		if d := h - prev; d < -3 || d > 3 {
			t.Fatalf("height jumps by %d between x=%d and x=%d", d, x-1, x)
		}
		prev = h
	}
}

func TestGeneratorRejectsBadPalette(t *testing.T) {
	p := testParams()
	p.Grass = world.Air
	if _, err := NewGenerator(p); err == nil {
		t.Fatalf("expected error for air palette entry")
	}

	p = testParams()
	p.BaseHeight = world.MaxY - 2
	if _, err := NewGenerator(p); err == nil {
		t.Fatalf("expected error for height range escaping world bounds")
	}
}
