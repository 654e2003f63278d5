package field

import "gonum.org/v1/gonum/spatial/r3"

const gradientStep = 1e-4

// Gradient approximates the gradient of f at p by central differences. The
// returned vector is not normalized.
func Gradient(f func(r3.Vec) (float64, error), p r3.Vec) (r3.Vec, error) {
	var g r3.Vec
	for axis := 0; axis < 3; axis++ {
		var delta r3.Vec
		switch axis {
		case 0:
			delta.X = gradientStep
		case 1:
			delta.Y = gradientStep
		case 2:
			delta.Z = gradientStep
		}
		next, err := f(r3.Add(p, delta))
		if err != nil {
			return r3.Vec{}, err
		}
		prev, err := f(r3.Sub(p, delta))
		if err != nil {
			return r3.Vec{}, err
		}
		d := (next - prev) / (2 * gradientStep)
		switch axis {
		case 0:
			g.X = d
		case 1:
			g.Y = d
		case 2:
			g.Z = d
		}
	}
	return g, nil
}

// SurfaceNormal is the outward unit normal at p. The field is negative inside
// solid matter, so its gradient already points out of the surface.
func SurfaceNormal(f func(r3.Vec) (float64, error), p r3.Vec) (r3.Vec, error) {
	g, err := Gradient(f, p)
	if err != nil {
		return r3.Vec{}, err
	}
	if r3.Norm(g) == 0 {
		return r3.Vec{Y: 1}, nil
	}
	return r3.Unit(g), nil
}
