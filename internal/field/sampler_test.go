package field

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"terramesh.dev/internal/world"
)

// columnFill describes a test world as a function from block coordinate to
// material.
type columnFill func(x, y, z int) world.Material

type fillSource struct {
	fill    columnFill
	missing map[world.ChunkPos]bool
}

func (s *fillSource) LoadChunk(pos world.ChunkPos) (*world.Chunk, error) {
	if s.missing[pos] {
		return nil, fmt.Errorf("chunk withheld for test")
	}
	var towers [world.ChunkSize * world.ChunkSize]world.Tower
	for lz := 0; lz < world.ChunkSize; lz++ {
		for lx := 0; lx < world.ChunkSize; lx++ {
			x := pos.CX*world.ChunkSize + lx
			z := pos.CZ*world.ChunkSize + lz
			col := make([]world.Material, world.MaxY-world.MinY)
			for i := range col {
				col[i] = s.fill(x, world.MinY+i, z)
			}
			tw, err := world.BuildTower(col)
			if err != nil {
				return nil, err
			}
			towers[lz*world.ChunkSize+lx] = tw
		}
	}
	return world.NewChunk(pos, towers)
}

func viewOf(t *testing.T, fill columnFill, missing ...world.ChunkPos) *world.View {
	t.Helper()
	src := &fillSource{fill: fill, missing: map[world.ChunkPos]bool{}}
	for _, pos := range missing {
		src.missing[pos] = true
	}
	store, err := world.NewStore(src, 5)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	err = store.SetReference(world.ChunkPos{CX: 0, CZ: 0})
	if err != nil && len(missing) == 0 {
		t.Fatalf("set reference: %v", err)
	}
	return store.Snapshot()
}

func flatFill(surface int, m world.Material) columnFill {
	return func(_, y, _ int) world.Material {
		if y < surface {
			return m
		}
		return world.Air
	}
}

func newTestSampler(t *testing.T, view *world.View, radius float64) *Sampler {
	t.Helper()
	s, err := NewSampler(view, radius, radius)
	if err != nil {
		t.Fatalf("new sampler: %v", err)
	}
	return s
}

// A single solid block surrounded by air, sampled with a half-block kernel at
// the block's exact center, is fully solid: density -1, blend {A: 1}.
func TestSampler_SingleBlockScenario(t *testing.T) {
	const a world.Material = 4
	view := viewOf(t, func(x, y, z int) world.Material {
		if x == 8 && y == 64 && z == 8 {
			return a
		}
		return world.Air
	})
	s := newTestSampler(t, view, 0.5)
	center := r3.Vec{X: 8.5, Y: 64.5, Z: 8.5}

	d, err := s.Density(center)
	if err != nil {
		t.Fatalf("density: %v", err)
	}
	if math.Abs(d-(-1)) > 1e-9 {
		t.Fatalf("density at block center = %v, want -1", d)
	}

	blend, err := s.Materials(center)
	if err != nil {
		t.Fatalf("materials: %v", err)
	}
	w := blend.Weights()
	if math.Abs(w[a]-1) > 1e-9 {
		t.Fatalf("blend weight for block material = %v, want 1", w[a])
	}
}

func TestSampler_DensityEndpointsAndMonotonicity(t *testing.T) {
	view := viewOf(t, flatFill(64, 3))
	s := newTestSampler(t, view, 0.9)

	deep, err := s.Density(r3.Vec{X: 8, Y: 20, Z: 8})
	if err != nil {
		t.Fatalf("density: %v", err)
	}
	if deep != -1 {
		t.Fatalf("density deep underground = %v, want -1", deep)
	}
	sky, err := s.Density(r3.Vec{X: 8, Y: 200, Z: 8})
	if err != nil {
		t.Fatalf("density: %v", err)
	}
	if sky != 1 {
		t.Fatalf("density high in the air = %v, want 1", sky)
	}

	// Rising through the surface the solid fraction shrinks, so density must
	// be non-decreasing.
	prev := math.Inf(-1)
	for y := 62.0; y <= 66.0; y += 0.125 {
		d, err := s.Density(r3.Vec{X: 8, Y: y, Z: 8})
		if err != nil {
			t.Fatalf("density at y=%v: %v", y, err)
		}
		if d < prev-1e-12 {
			t.Fatalf("density decreased while leaving the ground: %v -> %v at y=%v", prev, d, y)
		}
		prev = d
	}

	// The zero crossing sits at the flat surface.
	at, err := s.Density(r3.Vec{X: 8, Y: 64, Z: 8})
	if err != nil {
		t.Fatalf("density: %v", err)
	}
	if math.Abs(at) > 1e-9 {
		t.Fatalf("density exactly at surface = %v, want 0", at)
	}
}

func TestSampler_BlendNormalization(t *testing.T) {
	// Dirt west of x=8, stone east of it.
	view := viewOf(t, func(x, y, _ int) world.Material {
		if y >= 64 {
			return world.Air
		}
		if x < 8 {
			return 1
		}
		return 3
	})
	s := newTestSampler(t, view, 0.9)

	blend, err := s.Materials(r3.Vec{X: 8, Y: 63.5, Z: 4})
	if err != nil {
		t.Fatalf("materials: %v", err)
	}
	w := blend.Weights()
	var sum float64
	for _, v := range w {
		sum += v
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Fatalf("blend weights sum to %v, want 1", sum)
	}
	if w[1] == 0 || w[3] == 0 {
		t.Fatalf("kernel straddling the material boundary must mix both, got %v", w)
	}

	// Pure air: empty blend, weights all zero.
	empty, err := s.Materials(r3.Vec{X: 8, Y: 250, Z: 8})
	if err != nil {
		t.Fatalf("materials: %v", err)
	}
	if !empty.Empty() {
		t.Fatalf("blend above the world should be empty")
	}
}

func TestSampler_UnavailableNearMissingChunk(t *testing.T) {
	hole := world.ChunkPos{CX: 1, CZ: 0}
	view := viewOf(t, flatFill(64, 3), hole)
	s := newTestSampler(t, view, 0.9)

	// Kernel reaching across x=16 needs the withheld chunk.
	_, err := s.Density(r3.Vec{X: 15.8, Y: 64, Z: 8})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable near missing chunk, got %v", err)
	}

	// Far from the hole sampling works.
	if _, err := s.Density(r3.Vec{X: 8, Y: 64, Z: 8}); err != nil {
		t.Fatalf("density away from hole: %v", err)
	}
}

func TestNewSampler_RejectsBadRadii(t *testing.T) {
	view := viewOf(t, flatFill(64, 3))
	if _, err := NewSampler(view, 0, 0.5); err == nil {
		t.Fatal("zero density radius must be rejected")
	}
	if _, err := NewSampler(view, 0.5, -1); err == nil {
		t.Fatal("negative material radius must be rejected")
	}
}
