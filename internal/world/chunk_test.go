package world

import (
	"math"
	"testing"
)

func TestChunkSweepVolumes_FullCoverage(t *testing.T) {
	c, err := flatChunk(ChunkPos{0, 0}, 64, 3)
	if err != nil {
		t.Fatalf("flat chunk: %v", err)
	}

	// A 2x2 block footprint entirely below the surface: 2*2*1 stone.
	var vols Volumes
	c.SweepVolumes(Rect{X: 4, Z: 4, Width: 2, Height: 2}, 10, 11, &vols)
	if math.Abs(vols[3]-4) > 1e-12 {
		t.Fatalf("stone volume = %v, want 4", vols[3])
	}
	if vols[Air] != 0 {
		t.Fatalf("air volume = %v, want 0", vols[Air])
	}
}

func TestChunkSweepVolumes_FractionalFootprint(t *testing.T) {
	c, err := flatChunk(ChunkPos{0, 0}, 64, 3)
	if err != nil {
		t.Fatalf("flat chunk: %v", err)
	}

	// Quarter coverage of a single column in XZ, half a block in Y.
	var vols Volumes
	c.SweepVolumes(Rect{X: 4.5, Z: 4.5, Width: 0.5, Height: 0.5}, 10, 10.5, &vols)
	want := 0.5 * 0.5 * 0.5
	if math.Abs(vols[3]-want) > 1e-12 {
		t.Fatalf("stone volume = %v, want %v", vols[3], want)
	}
}

func TestChunkSweepVolumes_ConservesTotal(t *testing.T) {
	c, err := flatChunk(ChunkPos{-1, -2}, 64, 2)
	if err != nil {
		t.Fatalf("flat chunk: %v", err)
	}

	local := Rect{X: 0.3, Z: 7.1, Width: 3.8, Height: 2.4}
	yLo, yHi := 62.2, 66.9
	var vols Volumes
	c.SweepVolumes(local, yLo, yHi, &vols)

	want := local.Width * local.Height * (yHi - yLo)
	if math.Abs(vols.Total()-want) > 1e-9 {
		t.Fatalf("total volume = %v, want %v", vols.Total(), want)
	}
	if vols.SolidTotal() >= vols.Total() {
		t.Fatal("interval straddling the surface must include some air")
	}
}

func TestChunkMaterialAt_NegativeChunk(t *testing.T) {
	c, err := flatChunk(ChunkPos{-1, -2}, 64, 5)
	if err != nil {
		t.Fatalf("flat chunk: %v", err)
	}
	if m := c.MaterialAt(BlockPos{X: -5, Y: 10, Z: -20}); m != 5 {
		t.Fatalf("material = %d, want 5", m)
	}
	if m := c.MaterialAt(BlockPos{X: -5, Y: 200, Z: -20}); m != Air {
		t.Fatalf("material above surface = %d, want air", m)
	}
}
