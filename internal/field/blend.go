package field

import "terramesh.dev/internal/world"

// Blend accumulates per-material volume contributions around a point and
// exposes them as normalized mix weights. An empty blend (no solid volume in
// the kernel) normalizes to all-zero weights.
type Blend struct {
	contributions [world.MaxMaterials]float64
	total         float64
}

// Pure returns a blend made of a single material.
func Pure(m world.Material) Blend {
	var b Blend
	b.Mix(m, 1)
	return b
}

func (b *Blend) Mix(m world.Material, amount float64) {
	b.contributions[m] += amount
	b.total += amount
}

func (b *Blend) Merge(other Blend) {
	for i, v := range other.contributions {
		b.contributions[i] += v
	}
	b.total += other.total
}

// Empty reports whether nothing has contributed to the blend.
func (b Blend) Empty() bool {
	return b.total <= 0
}

// Weights returns normalized per-material weights summing to 1, or all zeros
// for an empty blend.
func (b Blend) Weights() [world.MaxMaterials]float64 {
	var w [world.MaxMaterials]float64
	if b.total <= 0 {
		return w
	}
	for i, v := range b.contributions {
		w[i] = v / b.total
	}
	return w
}

// Lerp interpolates between two blends in normalized weight space. t=0 yields
// a's weights, t=1 yields b's. The result is itself normalized (total 1)
// unless both inputs are empty.
func Lerp(a, b Blend, t float64) Blend {
	if t <= 0 {
		return a
	}
	if t >= 1 {
		return b
	}
	aw, bw := a.Weights(), b.Weights()
	var out Blend
	for i := range aw {
		v := aw[i]*(1-t) + bw[i]*t
		if v > 0 {
			out.Mix(world.Material(i), v)
		}
	}
	return out
}

// FromDominant rebuilds a blend from its reduced four-slot form. Slots with
// zero weight are ignored, so a round trip through Dominant preserves blends
// of up to four materials.
func FromDominant(weights [4]float32, materials [4]uint8) Blend {
	var b Blend
	for i, w := range weights {
		if w > 0 {
			b.Mix(world.Material(materials[i]), float64(w))
		}
	}
	return b
}

// Dominant reduces the blend to its four heaviest materials, redistributing
// the dropped mass evenly so the returned weights still sum to 1. This is the
// form per-vertex blends travel in on the wire and in mesh snapshots.
func (b Blend) Dominant() (weights [4]float32, materials [4]uint8) {
	if b.total <= 0 {
		return weights, materials
	}

	var top [4]float64
	for id, contribution := range b.contributions {
		slot := 0
		for i := 1; i < 4; i++ {
			if top[i] < top[slot] {
				slot = i
			}
		}
		if contribution > top[slot] {
			top[slot] = contribution
			materials[slot] = uint8(id)
		}
	}

	var used float64
	for _, v := range top {
		used += v
	}
	correction := (b.total - used) / 4
	for i := range top {
		weights[i] = float32((top[i] + correction) / b.total)
	}
	return weights, materials
}
