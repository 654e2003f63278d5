package world

import (
	"errors"
	"fmt"
	"sync"
)

// ErrNotLoaded reports a query against a chunk outside the resident window or
// one whose load has not completed. Callers defer or retry; the store never
// fabricates air for absent chunks.
var ErrNotLoaded = errors.New("world: chunk not loaded")

// Store keeps an NxN window of resident chunks centered on a reference chunk.
// Mutation is limited to SetReference; everything else is a read-only view.
type Store struct {
	src    Source
	window int

	mu      sync.RWMutex
	center  ChunkPos
	centred bool
	chunks  map[ChunkPos]*Chunk
}

// NewStore creates a store with an odd window size of at least 1. No chunks
// are resident until the first SetReference call.
func NewStore(src Source, window int) (*Store, error) {
	if window < 1 || window%2 == 0 {
		return nil, fmt.Errorf("world: window size must be odd and positive, got %d", window)
	}
	return &Store{
		src:    src,
		window: window,
		chunks: make(map[ChunkPos]*Chunk),
	}, nil
}

// SetReference re-centers the resident window on center. The new window is
// computed from scratch, so the reference may jump arbitrarily far between
// calls. Chunks leaving the window are discarded; chunks entering it are
// loaded before SetReference returns, keeping the window consistent for
// synchronous sampling. On a load failure the store is left with the chunks
// loaded so far; queries against the missing ones report ErrNotLoaded.
func (s *Store) SetReference(center ChunkPos) error {
	half := s.window / 2

	wanted := make(map[ChunkPos]*Chunk, s.window*s.window)
	for dz := -half; dz <= half; dz++ {
		for dx := -half; dx <= half; dx++ {
			wanted[ChunkPos{CX: center.CX + dx, CZ: center.CZ + dz}] = nil
		}
	}

	s.mu.RLock()
	for pos := range wanted {
		if c, ok := s.chunks[pos]; ok {
			wanted[pos] = c
		}
	}
	s.mu.RUnlock()

	// Load outside the lock; a fresh chunk becomes visible only when fully
	// built. Loading order across the window is unspecified.
	var firstErr error
	for pos, c := range wanted {
		if c != nil {
			continue
		}
		loaded, err := s.src.LoadChunk(pos)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("load chunk %d,%d: %w", pos.CX, pos.CZ, err)
			}
			delete(wanted, pos)
			continue
		}
		wanted[pos] = loaded
	}

	s.mu.Lock()
	s.center = center
	s.centred = true
	s.chunks = wanted
	s.mu.Unlock()
	return firstErr
}

// Reference returns the current window center.
func (s *Store) Reference() (ChunkPos, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.center, s.centred
}

// MaterialAt answers "material at integer block coordinate" against the
// current resident set.
func (s *Store) MaterialAt(pos BlockPos) (Material, error) {
	s.mu.RLock()
	c, ok := s.chunks[ChunkPosAt(pos.X, pos.Z)]
	s.mu.RUnlock()
	if !ok {
		return Air, ErrNotLoaded
	}
	return c.MaterialAt(pos), nil
}

// Resident reports whether the chunk at pos is fully loaded.
func (s *Store) Resident(pos ChunkPos) bool {
	s.mu.RLock()
	_, ok := s.chunks[pos]
	s.mu.RUnlock()
	return ok
}

// ResidentChunks returns the resident coordinates in unspecified order.
func (s *Store) ResidentChunks() []ChunkPos {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ChunkPos, 0, len(s.chunks))
	for pos := range s.chunks {
		out = append(out, pos)
	}
	return out
}

// Snapshot captures the resident set as an immutable View. One full pipeline
// pass (sample sweep plus polygonize) runs against a single View, so a
// concurrent SetReference can never expose a half-evicted chunk to it.
func (s *Store) Snapshot() *View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chunks := make(map[ChunkPos]*Chunk, len(s.chunks))
	for pos, c := range s.chunks {
		chunks[pos] = c
	}
	return &View{chunks: chunks}
}

// View is a frozen resident set. Chunks are immutable, so views are safe for
// concurrent readers and stay valid after the store re-centers.
type View struct {
	chunks map[ChunkPos]*Chunk
}

// ChunkAt returns the resident chunk at pos or ErrNotLoaded.
func (v *View) ChunkAt(pos ChunkPos) (*Chunk, error) {
	c, ok := v.chunks[pos]
	if !ok {
		return nil, ErrNotLoaded
	}
	return c, nil
}

// MaterialAt resolves a block coordinate against the view.
func (v *View) MaterialAt(pos BlockPos) (Material, error) {
	c, ok := v.chunks[ChunkPosAt(pos.X, pos.Z)]
	if !ok {
		return Air, ErrNotLoaded
	}
	return c.MaterialAt(pos), nil
}
