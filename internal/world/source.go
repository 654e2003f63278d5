package world

// Source is the external world-data loader: it materializes full chunks on
// demand. Loading may be slow (disk, database); the Store only exposes chunks
// once a load has fully completed.
type Source interface {
	LoadChunk(pos ChunkPos) (*Chunk, error)
}
