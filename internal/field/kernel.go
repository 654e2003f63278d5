package field

import (
	"gonum.org/v1/gonum/spatial/r3"

	"terramesh.dev/internal/world"
)

// Kernel is the cubic support volume of one density or material query: a box
// of half-size Radius centered on a continuous point. The radius controls how
// far discrete blocks influence the reconstructed field, i.e. the smoothness
// of the resulting surface.
type Kernel struct {
	Center r3.Vec
	Radius float64
}

// Footprint is the kernel's bounding rectangle in the XZ plane.
func (k Kernel) Footprint() world.Rect {
	return world.Square(k.Center.X-k.Radius, k.Center.Z-k.Radius, 2*k.Radius)
}

func (k Kernel) YLow() float64  { return k.Center.Y - k.Radius }
func (k Kernel) YHigh() float64 { return k.Center.Y + k.Radius }

// Volume of the full kernel box.
func (k Kernel) Volume() float64 {
	side := 2 * k.Radius
	return side * side * side
}
