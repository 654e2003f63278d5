package field

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"terramesh.dev/internal/mathx"
	"terramesh.dev/internal/world"
)

// ErrUnavailable reports that a sample's kernel overlapped a chunk that is not
// resident. The sample is not partially computed; callers defer polygonizing
// the region until the chunk loads.
var ErrUnavailable = errors.New("field: sample unavailable, kernel overlaps unloaded chunk")

// Sample is the continuous reconstruction at one point: a clamped density in
// [-1, 1] (negative inside solid matter) and the material mix around the
// point.
type Sample struct {
	Density float64
	Blend   Blend
}

// Sampler reconstructs a continuous density and material field from the
// discrete blocks of one world view by kernel convolution.
//
// The material kernel should not be much smaller than the density kernel: the
// smoothing shrinks the surface a little, and a too-small material kernel can
// fail to find any intersecting blocks at points that still carry geometry.
type Sampler struct {
	view           *world.View
	densityRadius  float64
	materialRadius float64
}

func NewSampler(view *world.View, densityRadius, materialRadius float64) (*Sampler, error) {
	if densityRadius <= 0 || materialRadius <= 0 {
		return nil, fmt.Errorf("field: kernel radii must be positive, got %v and %v", densityRadius, materialRadius)
	}
	return &Sampler{
		view:           view,
		densityRadius:  densityRadius,
		materialRadius: materialRadius,
	}, nil
}

// sweep convolves the kernel against every chunk its footprint overlaps. Any
// overlapped chunk that is not resident aborts the sweep.
func (s *Sampler) sweep(k Kernel, vols *world.Volumes) error {
	footprint := k.Footprint()
	cxLo := mathx.FloorDiv(int(math.Floor(footprint.Left())), world.ChunkSize)
	cxHi := mathx.FloorDiv(int(math.Ceil(footprint.Right()))-1, world.ChunkSize)
	czLo := mathx.FloorDiv(int(math.Floor(footprint.Bottom())), world.ChunkSize)
	czHi := mathx.FloorDiv(int(math.Ceil(footprint.Top()))-1, world.ChunkSize)

	for cz := czLo; cz <= czHi; cz++ {
		for cx := cxLo; cx <= cxHi; cx++ {
			pos := world.ChunkPos{CX: cx, CZ: cz}
			bounds := world.Square(float64(cx*world.ChunkSize), float64(cz*world.ChunkSize), world.ChunkSize)
			overlap, ok := bounds.Intersect(footprint)
			if !ok {
				continue
			}
			chunk, err := s.view.ChunkAt(pos)
			if err != nil {
				return fmt.Errorf("%w: chunk %d,%d", ErrUnavailable, cx, cz)
			}
			local := overlap.Offset(-bounds.X, -bounds.Z)
			chunk.SweepVolumes(local, k.YLow(), k.YHigh(), vols)
		}
	}
	return nil
}

// Density evaluates the solid fraction p of the kernel centered at p and maps
// it to 1-2p, clamped to [-1, 1]: fully empty space reads +1, fully solid -1.
func (s *Sampler) Density(p r3.Vec) (float64, error) {
	k := Kernel{Center: p, Radius: s.densityRadius}
	var vols world.Volumes
	if err := s.sweep(k, &vols); err != nil {
		return 0, err
	}
	solid := vols.SolidTotal() / k.Volume()
	return mathx.Clamp(1-2*solid, -1, 1), nil
}

// Materials evaluates the material distribution around p with the material
// kernel. The blend is empty when no solid volume intersects the kernel.
func (s *Sampler) Materials(p r3.Vec) (Blend, error) {
	k := Kernel{Center: p, Radius: s.materialRadius}
	var vols world.Volumes
	if err := s.sweep(k, &vols); err != nil {
		return Blend{}, err
	}
	var blend Blend
	for id, volume := range vols {
		if m := world.Material(id); m.Solid() && volume > 0 {
			blend.Mix(m, volume)
		}
	}
	return blend, nil
}

// Sample evaluates both density and materials at p.
func (s *Sampler) Sample(p r3.Vec) (Sample, error) {
	density, err := s.Density(p)
	if err != nil {
		return Sample{}, err
	}
	blend, err := s.Materials(p)
	if err != nil {
		return Sample{}, err
	}
	return Sample{Density: density, Blend: blend}, nil
}
