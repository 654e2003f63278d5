package world

// Material identifies a block material. The id space is a small closed
// enumeration supplied by configuration; id 0 is always air.
type Material uint8

const Air Material = 0

// MaxMaterials bounds the id space so per-material accumulators can live in
// fixed arrays instead of maps on the sampling hot path.
const MaxMaterials = 16

// Solid reports whether the material contributes volume to the density field.
func (m Material) Solid() bool {
	return m != Air
}

// Volumes accumulates per-material contributed volume during a kernel sweep.
type Volumes [MaxMaterials]float64

func (v *Volumes) Add(m Material, amount float64) {
	v[m] += amount
}

func (v *Volumes) Merge(other Volumes) {
	for i := range v {
		v[i] += other[i]
	}
}

// Total sums every contribution, air included.
func (v *Volumes) Total() float64 {
	var t float64
	for _, x := range v {
		t += x
	}
	return t
}

// SolidTotal sums contributions from solid materials only.
func (v *Volumes) SolidTotal() float64 {
	var t float64
	for i, x := range v {
		if Material(i).Solid() {
			t += x
		}
	}
	return t
}
