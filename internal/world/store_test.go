package world

import (
	"errors"
	"fmt"
	"sync"
	"testing"
)

// flatSource builds chunks with stone up to y=64 and air above, and records
// every load so tests can assert on load traffic.
type flatSource struct {
	mu     sync.Mutex
	loaded []ChunkPos
	fail   map[ChunkPos]bool
}

func (s *flatSource) LoadChunk(pos ChunkPos) (*Chunk, error) {
	s.mu.Lock()
	s.loaded = append(s.loaded, pos)
	fail := s.fail[pos]
	s.mu.Unlock()
	if fail {
		return nil, fmt.Errorf("synthetic load failure")
	}
	return flatChunk(pos, 64, 3)
}

func flatChunk(pos ChunkPos, surface int, m Material) (*Chunk, error) {
	tw, err := BuildTower(denseColumn(func(y int) Material {
		if y < surface {
			return m
		}
		return Air
	}))
	if err != nil {
		return nil, err
	}
	var towers [ChunkSize * ChunkSize]Tower
	for i := range towers {
		towers[i] = tw
	}
	return NewChunk(pos, towers)
}

func wantWindow(t *testing.T, s *Store, center ChunkPos, n int) {
	t.Helper()
	resident := s.ResidentChunks()
	if len(resident) != n*n {
		t.Fatalf("resident count = %d, want %d", len(resident), n*n)
	}
	half := n / 2
	for dz := -half; dz <= half; dz++ {
		for dx := -half; dx <= half; dx++ {
			pos := ChunkPos{CX: center.CX + dx, CZ: center.CZ + dz}
			if !s.Resident(pos) {
				t.Fatalf("chunk %v missing from window centered on %v", pos, center)
			}
		}
	}
}

func TestStore_WindowInvariant(t *testing.T) {
	src := &flatSource{}
	s, err := NewStore(src, 3)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	moves := []ChunkPos{{0, 0}, {1, 0}, {1, 1}, {-3, 7}, {-3, 7}, {100, -100}}
	for _, center := range moves {
		if err := s.SetReference(center); err != nil {
			t.Fatalf("set reference %v: %v", center, err)
		}
		wantWindow(t, s, center, 3)
	}
}

func TestStore_RecenterReusesOverlap(t *testing.T) {
	src := &flatSource{}
	s, err := NewStore(src, 3)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if err := s.SetReference(ChunkPos{0, 0}); err != nil {
		t.Fatalf("set reference: %v", err)
	}
	if got := len(src.loaded); got != 9 {
		t.Fatalf("initial loads = %d, want 9", got)
	}
	// Moving one chunk over shares a 2x3 slab with the old window.
	if err := s.SetReference(ChunkPos{1, 0}); err != nil {
		t.Fatalf("set reference: %v", err)
	}
	if got := len(src.loaded); got != 12 {
		t.Fatalf("loads after shift = %d, want 12 (3 new)", got)
	}
}

func TestStore_MaterialAtOutsideWindow(t *testing.T) {
	s, err := NewStore(&flatSource{}, 3)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if err := s.SetReference(ChunkPos{0, 0}); err != nil {
		t.Fatalf("set reference: %v", err)
	}

	if m, err := s.MaterialAt(BlockPos{X: 5, Y: 10, Z: 5}); err != nil || m != 3 {
		t.Fatalf("in-window query = %d, %v; want 3, nil", m, err)
	}
	// Chunk (10,10) is far outside the 3x3 window.
	if _, err := s.MaterialAt(BlockPos{X: 165, Y: 10, Z: 165}); !errors.Is(err, ErrNotLoaded) {
		t.Fatalf("out-of-window query error = %v, want ErrNotLoaded", err)
	}
}

func TestStore_LoadFailureLeavesHole(t *testing.T) {
	src := &flatSource{fail: map[ChunkPos]bool{{1, 1}: true}}
	s, err := NewStore(src, 3)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if err := s.SetReference(ChunkPos{0, 0}); err == nil {
		t.Fatal("expected load error to propagate")
	}
	// The failed chunk must answer NotLoaded, never air.
	if _, err := s.MaterialAt(BlockPos{X: 20, Y: 0, Z: 20}); !errors.Is(err, ErrNotLoaded) {
		t.Fatalf("query against failed chunk = %v, want ErrNotLoaded", err)
	}
}

func TestStore_SnapshotSurvivesRecenter(t *testing.T) {
	s, err := NewStore(&flatSource{}, 3)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if err := s.SetReference(ChunkPos{0, 0}); err != nil {
		t.Fatalf("set reference: %v", err)
	}
	view := s.Snapshot()

	if err := s.SetReference(ChunkPos{50, 50}); err != nil {
		t.Fatalf("recenter: %v", err)
	}
	// The old view still resolves chunks evicted from the store.
	if _, err := view.ChunkAt(ChunkPos{0, 0}); err != nil {
		t.Fatalf("snapshot lost chunk after recenter: %v", err)
	}
	if m, err := view.MaterialAt(BlockPos{X: 0, Y: 0, Z: 0}); err != nil || m != 3 {
		t.Fatalf("snapshot material = %d, %v; want 3, nil", m, err)
	}
	if _, err := view.ChunkAt(ChunkPos{50, 50}); !errors.Is(err, ErrNotLoaded) {
		t.Fatalf("snapshot must not see chunks loaded after it was taken: %v", err)
	}
}

func TestNewStore_RejectsEvenWindow(t *testing.T) {
	if _, err := NewStore(&flatSource{}, 4); err == nil {
		t.Fatal("even window must be rejected")
	}
	if _, err := NewStore(&flatSource{}, 0); err == nil {
		t.Fatal("zero window must be rejected")
	}
}
