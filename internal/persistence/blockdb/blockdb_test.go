package blockdb

import (
	"errors"
	"path/filepath"
	"testing"

	"terramesh.dev/internal/world"
	"terramesh.dev/internal/worldgen"
)

func testGenerator(t *testing.T) *worldgen.Generator {
	t.Helper()
	g, err := worldgen.NewGenerator(worldgen.Params{
		Seed: 7, Stone: 3, Dirt: 1, Grass: 2, Sand: 5, Wood: 4,
	})
	if err != nil {
		t.Fatalf("generator: %v", err)
	}
	return g
}

func TestChunkRoundTrip(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "world.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	g := testGenerator(t)
	for _, pos := range []world.ChunkPos{{CX: 0, CZ: 0}, {CX: -2, CZ: 3}} {
		ch, err := g.LoadChunk(pos)
		if err != nil {
			t.Fatalf("generate %v: %v", pos, err)
		}
		if err := db.WriteChunk(ch); err != nil {
			t.Fatalf("write %v: %v", pos, err)
		}

		got, err := db.LoadChunk(pos)
		if err != nil {
			t.Fatalf("load %v: %v", pos, err)
		}
		for lx := 0; lx < world.ChunkSize; lx++ {
			for lz := 0; lz < world.ChunkSize; lz++ {
				for _, y := range []int{world.MinY, -1, 50, 63, 64, 80, world.MaxY - 1} {
					bp := world.BlockPos{X: pos.CX*world.ChunkSize + lx, Y: y, Z: pos.CZ*world.ChunkSize + lz}
					if got.MaterialAt(bp) != ch.MaterialAt(bp) {
						t.Fatalf("chunk %v block %v changed through storage", pos, bp)
					}
				}
			}
		}
	}

	positions, err := db.ChunkPositions()
	if err != nil {
		t.Fatalf("positions: %v", err)
	}
	if len(positions) != 2 {
		t.Fatalf("got %d chunk positions, want 2", len(positions))
	}
}

func TestWriteChunkReplaces(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "world.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	pos := world.ChunkPos{CX: 1, CZ: 1}
	g := testGenerator(t)
	ch, err := g.LoadChunk(pos)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if err := db.WriteChunk(ch); err != nil {
		t.Fatalf("first write: %v", err)
	}

	// Overwrite with an all-air chunk and make sure the old columns are gone.
	var towers [world.ChunkSize * world.ChunkSize]world.Tower
	for i := range towers {
		towers[i] = world.AirTower()
	}
	empty, err := world.NewChunk(pos, towers)
	if err != nil {
		t.Fatalf("empty chunk: %v", err)
	}
	if err := db.WriteChunk(empty); err != nil {
		t.Fatalf("second write: %v", err)
	}

	got, err := db.LoadChunk(pos)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	bp := world.BlockPos{X: pos.CX * world.ChunkSize, Y: 0, Z: pos.CZ * world.ChunkSize}
	if m := got.MaterialAt(bp); m != world.Air {
		t.Fatalf("block %v is %d after overwrite, want air", bp, m)
	}
}

func TestLoadMissingChunk(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "world.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	if _, err := db.LoadChunk(world.ChunkPos{CX: 9, CZ: 9}); !errors.Is(err, ErrNoChunk) {
		t.Fatalf("got %v, want ErrNoChunk", err)
	}
}

func TestDecodeRejectsBadBlob(t *testing.T) {
	if _, err := decodeRuns(nil); err == nil {
		t.Fatalf("empty blob accepted")
	}
	if _, err := decodeRuns([]byte{1, 0}); err == nil {
		t.Fatalf("ragged blob accepted")
	}
	// A single run must top out at MaxY exactly.
	if _, err := decodeRuns([]byte{0, 0, 100}); err == nil {
		t.Fatalf("short tower accepted")
	}
}

func TestMemorySource(t *testing.T) {
	mem := NewMemory()
	g := testGenerator(t)
	pos := world.ChunkPos{CX: 0, CZ: 0}
	ch, err := g.LoadChunk(pos)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	mem.Put(ch)

	got, err := mem.LoadChunk(pos)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got != ch {
		t.Fatalf("memory source returned a different chunk")
	}
	if _, err := mem.LoadChunk(world.ChunkPos{CX: 5, CZ: 5}); !errors.Is(err, ErrNoChunk) {
		t.Fatalf("got %v, want ErrNoChunk", err)
	}
}
