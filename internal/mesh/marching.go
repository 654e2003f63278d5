package mesh

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"terramesh.dev/internal/field"
)

const surfaceLevel = 0.0

// Cube corner layout. Corner 0 is the cell's minimum corner; corners 0-3 ring
// the bottom face, 4-7 the top face directly above them.
var cornerOffsets = [8][3]int{
	{0, 0, 0}, // 0
	{0, 0, 1}, // 1
	{1, 0, 1}, // 2
	{1, 0, 0}, // 3
	{0, 1, 0}, // 4
	{0, 1, 1}, // 5
	{1, 1, 1}, // 6
	{1, 1, 0}, // 7
}

// The two corners each of the 12 cube edges connects, matching the bit
// positions in edgeTable.
var edgeCorners = [12][2]int{
	{0, 1}, {1, 2}, {3, 2}, {0, 3}, // bottom ring
	{4, 5}, {5, 6}, {7, 6}, {4, 7}, // top ring
	{0, 4}, {1, 5}, {2, 6}, {3, 7}, // verticals
}

// MarchingCubes polygonizes the zero level set of a density field over a
// regular lattice. Smaller cells give a denser, smoother mesh at the price of
// more field evaluations.
type MarchingCubes struct {
	CellSize float64
}

// lattice holds one density value per lattice corner so every corner is
// evaluated exactly once; each evaluation walks the full chunk convolution,
// so sharing them across the up-to-8 cells touching a corner matters.
type lattice struct {
	origin     r3.Vec
	cell       float64
	nx, ny, nz int // cell counts
	density    []float64
}

func (l *lattice) cornerIndex(x, y, z int) int {
	return x + y*(l.nx+1) + z*(l.nx+1)*(l.ny+1)
}

func (l *lattice) cornerPos(x, y, z int) r3.Vec {
	return r3.Vec{
		X: l.origin.X + float64(x)*l.cell,
		Y: l.origin.Y + float64(y)*l.cell,
		Z: l.origin.Z + float64(z)*l.cell,
	}
}

func buildLattice(support Box, cell float64, density DensityFunc) (*lattice, error) {
	l := &lattice{
		origin: support.Min,
		cell:   cell,
		nx:     int(math.Ceil(support.Size.X / cell)),
		ny:     int(math.Ceil(support.Size.Y / cell)),
		nz:     int(math.Ceil(support.Size.Z / cell)),
	}
	l.density = make([]float64, (l.nx+1)*(l.ny+1)*(l.nz+1))
	for z := 0; z <= l.nz; z++ {
		for y := 0; y <= l.ny; y++ {
			for x := 0; x <= l.nx; x++ {
				d, err := density(l.cornerPos(x, y, z))
				if err != nil {
					// Never substitute a default: a fabricated corner value
					// would create or destroy surface geometry.
					return nil, fmt.Errorf("corner %d,%d,%d: %w", x, y, z, err)
				}
				l.density[l.cornerIndex(x, y, z)] = d
			}
		}
	}
	return l, nil
}

// Polygonize extracts the isosurface inside support. If any lattice corner's
// density is unavailable the whole call fails and the caller retries once the
// covering chunks are resident.
func (mc MarchingCubes) Polygonize(support Box, density DensityFunc, material MaterialFunc) (Mesh, error) {
	if mc.CellSize <= 0 {
		return Mesh{}, ErrBadCellSize
	}
	if !support.valid() {
		return Mesh{}, fmt.Errorf("%w: %+v", ErrMalformedSupport, support.Size)
	}

	l, err := buildLattice(support, mc.CellSize, density)
	if err != nil {
		return Mesh{}, err
	}

	var out Mesh
	// Crossing vertices are shared between the cells that meet at a lattice
	// edge; the key is the edge's lower corner plus its axis.
	vertexAt := make(map[int]uint32)

	emitVertex := func(cx, cy, cz, edge int) (uint32, error) {
		a, b := edgeCorners[edge][0], edgeCorners[edge][1]
		ax, ay, az := cx+cornerOffsets[a][0], cy+cornerOffsets[a][1], cz+cornerOffsets[a][2]
		bx, by, bz := cx+cornerOffsets[b][0], cy+cornerOffsets[b][1], cz+cornerOffsets[b][2]

		key := l.cornerIndex(ax, ay, az)*3 + edgeAxis(edge)
		if idx, ok := vertexAt[key]; ok {
			return idx, nil
		}

		d0 := l.density[l.cornerIndex(ax, ay, az)]
		d1 := l.density[l.cornerIndex(bx, by, bz)]
		t := 0.5
		if d0 != d1 {
			t = d0 / (d0 - d1)
		}
		pa := l.cornerPos(ax, ay, az)
		pb := l.cornerPos(bx, by, bz)
		pos := r3.Add(pa, r3.Scale(t, r3.Sub(pb, pa)))

		normal, err := field.SurfaceNormal(density, pos)
		if err != nil {
			return 0, err
		}
		blend, err := material(pos)
		if err != nil {
			return 0, err
		}

		idx := uint32(len(out.Vertices))
		out.Vertices = append(out.Vertices, Vertex{Position: pos, Normal: normal, Blend: blend})
		vertexAt[key] = idx
		return idx, nil
	}

	for cz := 0; cz < l.nz; cz++ {
		for cy := 0; cy < l.ny; cy++ {
			for cx := 0; cx < l.nx; cx++ {
				caseIndex := 0
				for corner, off := range cornerOffsets {
					d := l.density[l.cornerIndex(cx+off[0], cy+off[1], cz+off[2])]
					if d < surfaceLevel {
						caseIndex |= 1 << corner
					}
				}
				if edgeTable[caseIndex] == 0 {
					continue // fully inside or outside
				}

				tri := &triTable[caseIndex]
				for i := 0; i < len(tri) && tri[i] != -1; i += 3 {
					var indices [3]uint32
					for j := 0; j < 3; j++ {
						idx, err := emitVertex(cx, cy, cz, int(tri[i+j]))
						if err != nil {
							return Mesh{}, err
						}
						indices[j] = idx
					}
					out.Indices = append(out.Indices, indices[0], indices[1], indices[2])
				}
			}
		}
	}
	return out, nil
}

// edgeAxis maps a cube edge to the world axis it runs along: 0=x, 1=y, 2=z.
func edgeAxis(edge int) int {
	switch edge {
	case 1, 3, 5, 7:
		return 0
	case 8, 9, 10, 11:
		return 1
	default: // 0, 2, 4, 6
		return 2
	}
}
