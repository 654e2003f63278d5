// Package meshcache persists polygonized chunk meshes on disk so a restart
// does not have to re-run the field convolution for unchanged terrain. Files
// are keyed by chunk position and a digest of the meshing parameters; a
// parameter change simply misses the cache.
package meshcache

import (
	"bufio"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
	"gonum.org/v1/gonum/spatial/r3"

	"terramesh.dev/internal/field"
	"terramesh.dev/internal/mesh"
	"terramesh.dev/internal/world"
)

// ErrMiss reports that no cached mesh exists for the requested key.
var ErrMiss = errors.New("meshcache: miss")

const formatVersion = 1

// Header is the uncompressed-readable JSON first line of a cache file, enough
// to identify it without decoding the body.
type Header struct {
	Version      int    `json:"version"`
	CX           int    `json:"cx"`
	CZ           int    `json:"cz"`
	ParamsDigest string `json:"params_digest"`
	Vertices     int    `json:"vertices"`
	Triangles    int    `json:"triangles"`
}

type vertexV1 struct {
	Position  [3]float64
	Normal    [3]float64
	Weights   [4]float32
	Materials [4]uint8
}

type payloadV1 struct {
	Vertices []vertexV1
	Indices  []uint32
}

// ParamsDigest hashes an arbitrary parameter struct into a short stable key.
// Any JSON-encodable value works; the digest changes whenever any field does.
func ParamsDigest(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("meshcache: digest params: %w", err)
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:6]), nil
}

// Store is a directory of zstd-compressed mesh files.
type Store struct {
	dir string
}

func Open(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("meshcache: empty cache dir")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Store{dir: dir}, nil
}

// Path is the cache file location for a chunk under a parameter digest.
func (s *Store) Path(pos world.ChunkPos, digest string) string {
	return filepath.Join(s.dir, fmt.Sprintf("%d_%d_%s.mesh.zst", pos.CX, pos.CZ, digest))
}

// Write stores m atomically: a temp file is renamed over the final path so
// readers never observe a half-written mesh.
func (s *Store) Write(pos world.ChunkPos, digest string, m *mesh.Mesh) error {
	final := s.Path(pos, digest)
	f, err := os.CreateTemp(s.dir, ".tmp-mesh-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer os.Remove(tmp)

	if err := writeTo(f, pos, digest, m); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, final)
}

func writeTo(f *os.File, pos world.ChunkPos, digest string, m *mesh.Mesh) error {
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	defer enc.Close()

	bw := bufio.NewWriterSize(enc, 256*1024)
	defer bw.Flush()

	hb, _ := json.Marshal(Header{
		Version:      formatVersion,
		CX:           pos.CX,
		CZ:           pos.CZ,
		ParamsDigest: digest,
		Vertices:     len(m.Vertices),
		Triangles:    m.TriangleCount(),
	})
	if _, err := bw.Write(hb); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}

	p := payloadV1{
		Vertices: make([]vertexV1, len(m.Vertices)),
		Indices:  m.Indices,
	}
	for i, v := range m.Vertices {
		weights, materials := v.Blend.Dominant()
		p.Vertices[i] = vertexV1{
			Position:  [3]float64{v.Position.X, v.Position.Y, v.Position.Z},
			Normal:    [3]float64{v.Normal.X, v.Normal.Y, v.Normal.Z},
			Weights:   weights,
			Materials: materials,
		}
	}
	if err := gob.NewEncoder(bw).Encode(&p); err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}
	return nil
}

// Read loads the cached mesh for a chunk under a parameter digest. Vertex
// blends come back in their reduced four-material form.
func (s *Store) Read(pos world.ChunkPos, digest string) (mesh.Mesh, Header, error) {
	f, err := os.Open(s.Path(pos, digest))
	if err != nil {
		if os.IsNotExist(err) {
			return mesh.Mesh{}, Header{}, fmt.Errorf("%w: chunk %d,%d", ErrMiss, pos.CX, pos.CZ)
		}
		return mesh.Mesh{}, Header{}, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return mesh.Mesh{}, Header{}, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)
	line, err := br.ReadBytes('\n')
	if err != nil {
		return mesh.Mesh{}, Header{}, fmt.Errorf("meshcache: read header: %w", err)
	}
	var hdr Header
	if err := json.Unmarshal(line, &hdr); err != nil {
		return mesh.Mesh{}, Header{}, fmt.Errorf("meshcache: parse header: %w", err)
	}
	if hdr.Version != formatVersion {
		return mesh.Mesh{}, Header{}, fmt.Errorf("meshcache: unsupported version %d", hdr.Version)
	}
	if hdr.CX != pos.CX || hdr.CZ != pos.CZ || hdr.ParamsDigest != digest {
		return mesh.Mesh{}, Header{}, fmt.Errorf("meshcache: header %d,%d/%s does not match key %d,%d/%s",
			hdr.CX, hdr.CZ, hdr.ParamsDigest, pos.CX, pos.CZ, digest)
	}

	var p payloadV1
	if err := gob.NewDecoder(br).Decode(&p); err != nil {
		return mesh.Mesh{}, Header{}, fmt.Errorf("gob decode: %w", err)
	}

	out := mesh.Mesh{
		Vertices: make([]mesh.Vertex, len(p.Vertices)),
		Indices:  p.Indices,
	}
	for i, v := range p.Vertices {
		out.Vertices[i] = mesh.Vertex{
			Position: vec3(v.Position),
			Normal:   vec3(v.Normal),
			Blend:    field.FromDominant(v.Weights, v.Materials),
		}
	}
	return out, hdr, nil
}

func vec3(a [3]float64) r3.Vec {
	return r3.Vec{X: a[0], Y: a[1], Z: a[2]}
}
