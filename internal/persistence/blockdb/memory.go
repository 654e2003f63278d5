package blockdb

import (
	"fmt"
	"sync"

	"terramesh.dev/internal/world"
)

// Memory is an in-process world.Source backed by a map. Tests and seeding
// pipelines use it where a database file is overkill.
type Memory struct {
	mu     sync.RWMutex
	chunks map[world.ChunkPos]*world.Chunk
}

func NewMemory() *Memory {
	return &Memory{chunks: make(map[world.ChunkPos]*world.Chunk)}
}

func (m *Memory) Put(ch *world.Chunk) {
	m.mu.Lock()
	m.chunks[ch.Pos] = ch
	m.mu.Unlock()
}

func (m *Memory) LoadChunk(pos world.ChunkPos) (*world.Chunk, error) {
	m.mu.RLock()
	ch, ok := m.chunks[pos]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %d,%d", ErrNoChunk, pos.CX, pos.CZ)
	}
	return ch, nil
}
