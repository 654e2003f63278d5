package field

import (
	"gonum.org/v1/gonum/spatial/r3"

	"terramesh.dev/internal/mathx"
)

// SmoothMin is the polynomial smooth minimum. k is the width of the region in
// which the two operands are blended; outside |a-b| <= k the result equals
// min(a, b) exactly, and at k = 0 no smoothing happens at all. The function is
// continuous and monotone non-decreasing in each operand, so merging fields
// with it never creates surface components that neither operand has.
func SmoothMin(a, b, k float64) float64 {
	v, _ := smoothMinWeighted(a, b, k)
	return v
}

// smoothMinWeighted also returns the mix weight of b: 0 where a fully wins,
// 1 where b fully wins, smoothly varying across the transition region. The
// same weight drives material interpolation so the texture transition follows
// the geometric one instead of switching at a seam.
func smoothMinWeighted(a, b, k float64) (v, hb float64) {
	if k <= 0 {
		if b < a {
			return b, 1
		}
		return a, 0
	}
	hb = mathx.Clamp(0.5+0.5*(a-b)/k, 0, 1)
	return a + (b-a)*hb - k*hb*(1-hb), hb
}

// Surface is the final implicit field: the terrain's smoothed density merged
// with every configured rigid block through SmoothMin. Its zero level set is
// the surface the polygonizer extracts.
type Surface struct {
	sampler *Sampler
	rigid   []RigidBlock
	k       float64
}

func NewSurface(sampler *Sampler, rigid []RigidBlock, k float64) *Surface {
	return &Surface{sampler: sampler, rigid: rigid, k: k}
}

// activationMargin bounds how far a rigid block can influence the merged
// field. The terrain density is clamped to [-1, 1], so once a block's SDF
// exceeds 1+k the smooth minimum is exactly the terrain value and the block
// can be skipped.
func (f *Surface) activationMargin() float64 {
	return 1 + f.k
}

// Distance evaluates the merged field at p.
//
// Iterated two-operand smoothmin is not order independent; rigid blocks are
// folded in configuration order so repeated evaluations agree.
func (f *Surface) Distance(p r3.Vec) (float64, error) {
	d, err := f.sampler.Density(p)
	if err != nil {
		return 0, err
	}
	margin := f.activationMargin()
	for _, b := range f.rigid {
		if !b.WithinMargin(p, margin) {
			continue
		}
		d, _ = smoothMinWeighted(d, b.Distance(p), f.k)
	}
	return d, nil
}

// Material evaluates the mesh-facing material blend at p. Each rigid block's
// material is interpolated in with the same weight SmoothMin gave its
// distance, so the blend is exactly the terrain mix far from blocks and
// exactly the block material deep inside one.
func (f *Surface) Material(p r3.Vec) (Blend, error) {
	blend, err := f.sampler.Materials(p)
	if err != nil {
		return Blend{}, err
	}
	d, err := f.sampler.Density(p)
	if err != nil {
		return Blend{}, err
	}
	margin := f.activationMargin()
	for _, b := range f.rigid {
		if !b.WithinMargin(p, margin) {
			continue
		}
		var hb float64
		d, hb = smoothMinWeighted(d, b.Distance(p), f.k)
		if hb > 0 {
			blend = Lerp(blend, Pure(b.Material), hb)
		}
	}
	return blend, nil
}
