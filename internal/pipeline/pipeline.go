// Package pipeline drives one chunk rebuild end to end: snapshot the resident
// window, compose the smooth field over it, polygonize the chunk's support
// volume. A rebuild runs entirely against one immutable view, so the store may
// recenter concurrently without corrupting an in-flight mesh.
package pipeline

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"terramesh.dev/internal/field"
	"terramesh.dev/internal/mesh"
	"terramesh.dev/internal/world"
)

// Params are the meshing knobs, hashed into the mesh cache key.
type Params struct {
	KernelRadius   float64 `json:"kernel_radius"`
	MaterialRadius float64 `json:"material_radius"`
	CellSize       float64 `json:"cell_size"`
	SmoothWidth    float64 `json:"smooth_width"`
}

func (p Params) validate() error {
	if p.KernelRadius <= 0 || p.MaterialRadius <= 0 {
		return fmt.Errorf("pipeline: kernel radii must be positive, got %g/%g", p.KernelRadius, p.MaterialRadius)
	}
	if p.CellSize <= 0 {
		return fmt.Errorf("pipeline: cell size must be positive, got %g", p.CellSize)
	}
	if p.SmoothWidth < 0 {
		return fmt.Errorf("pipeline: smooth width must be >= 0, got %g", p.SmoothWidth)
	}
	return nil
}

// Builder rebuilds chunk meshes against a Store.
type Builder struct {
	store  *world.Store
	params Params
	rigid  []field.RigidBlock
	poly   mesh.MarchingCubes
}

func New(store *world.Store, params Params, rigid []field.RigidBlock) (*Builder, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	return &Builder{
		store:  store,
		params: params,
		rigid:  rigid,
		poly:   mesh.MarchingCubes{CellSize: params.CellSize},
	}, nil
}

// Params returns the meshing knobs the builder runs with.
func (b *Builder) Params() Params { return b.params }

// RebuildChunk polygonizes the support volume of the chunk at pos against a
// fresh snapshot of the store. The volume extends one kernel radius beyond
// the chunk footprint so surface crossing the boundary lands where the
// neighbor chunk's mesh will also put it. Missing coverage surfaces as
// field.ErrUnavailable; ctx cancellation aborts between field evaluations.
func (b *Builder) RebuildChunk(ctx context.Context, pos world.ChunkPos) (mesh.Mesh, error) {
	view := b.store.Snapshot()
	return b.rebuildAgainst(ctx, view, pos)
}

func (b *Builder) rebuildAgainst(ctx context.Context, view *world.View, pos world.ChunkPos) (mesh.Mesh, error) {
	sampler, err := field.NewSampler(view, b.params.KernelRadius, b.params.MaterialRadius)
	if err != nil {
		return mesh.Mesh{}, err
	}
	surface := field.NewSurface(sampler, b.rigid, b.params.SmoothWidth)

	support, err := b.supportBox(view, pos)
	if err != nil {
		return mesh.Mesh{}, err
	}

	density := func(p r3.Vec) (float64, error) {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		return surface.Distance(p)
	}
	material := func(p r3.Vec) (field.Blend, error) {
		if err := ctx.Err(); err != nil {
			return field.Blend{}, err
		}
		return surface.Material(p)
	}
	return b.poly.Polygonize(support, density, material)
}

// supportBox bounds the volume that can contain surface for this chunk: the
// padded footprint horizontally, and vertically the band around every
// solid/air boundary of the covered columns plus the rigid blocks. Fully
// solid or fully empty stretches cannot cross zero, so they are skipped.
func (b *Builder) supportBox(view *world.View, pos world.ChunkPos) (mesh.Box, error) {
	pad := b.params.KernelRadius + b.params.SmoothWidth + 1

	minX := float64(pos.CX*world.ChunkSize) - pad
	maxX := float64((pos.CX+1)*world.ChunkSize) + pad
	minZ := float64(pos.CZ*world.ChunkSize) - pad
	maxZ := float64((pos.CZ+1)*world.ChunkSize) + pad

	loY, hiY := math.Inf(1), math.Inf(-1)

	cxLo := pos.CX - 1
	cxHi := pos.CX + 1
	czLo := pos.CZ - 1
	czHi := pos.CZ + 1
	for cz := czLo; cz <= czHi; cz++ {
		for cx := cxLo; cx <= cxHi; cx++ {
			ch, err := view.ChunkAt(world.ChunkPos{CX: cx, CZ: cz})
			if err != nil {
				return mesh.Box{}, fmt.Errorf("chunk %d,%d support: %w", pos.CX, pos.CZ, err)
			}
			for lz := 0; lz < world.ChunkSize; lz++ {
				for lx := 0; lx < world.ChunkSize; lx++ {
					lo, hi, ok := solidityBand(ch.Tower(lx, lz))
					if ok {
						loY = math.Min(loY, float64(lo))
						hiY = math.Max(hiY, float64(hi))
					}
				}
			}
		}
	}

	for _, rb := range b.rigid {
		loY = math.Min(loY, rb.Center.Y-rb.Extents.Y)
		hiY = math.Max(hiY, rb.Center.Y+rb.Extents.Y)
	}

	if loY > hiY {
		// Nothing solid anywhere near: a minimal box that polygonizes to an
		// empty mesh.
		loY, hiY = 0, 1
	}
	loY = math.Max(loY-pad, float64(world.MinY)-pad)
	hiY = math.Min(hiY+pad, float64(world.MaxY)+pad)

	return mesh.Box{
		Min:  r3.Vec{X: minX, Y: loY, Z: minZ},
		Size: r3.Vec{X: maxX - minX, Y: hiY - loY, Z: maxZ - minZ},
	}, nil
}

// solidityBand returns the lowest and highest block heights where a column
// switches between solid and air, or ok=false for a uniform column.
func solidityBand(t world.Tower) (lo, hi int, ok bool) {
	spans := t.Spans()
	prevSolid := spans[0].Material.Solid()
	bottom := world.MinY
	for i := 0; i < len(spans); i++ {
		solid := spans[i].Material.Solid()
		if i > 0 && solid != prevSolid {
			if !ok {
				lo, ok = bottom, true
			}
			hi = bottom
		}
		prevSolid = solid
		bottom = spans[i].Top
	}
	// The world top is a boundary when the last run is solid.
	if prevSolid {
		if !ok {
			lo, ok = world.MaxY, true
		}
		hi = world.MaxY
	}
	return lo, hi, ok
}
