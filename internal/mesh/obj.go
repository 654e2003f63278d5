package mesh

import (
	"bufio"
	"fmt"
	"io"
)

// WriteOBJ serializes the mesh as a Wavefront OBJ object with per-vertex
// normals. Material blends have no OBJ representation and are dropped; use
// the binary cache format when they must survive a round trip.
func WriteOBJ(w io.Writer, name string, m *Mesh) error {
	if len(m.Indices)%3 != 0 {
		return fmt.Errorf("mesh: index count %d is not a multiple of 3", len(m.Indices))
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "o %s\n", name)
	for _, v := range m.Vertices {
		fmt.Fprintf(bw, "v %g %g %g\n", v.Position.X, v.Position.Y, v.Position.Z)
	}
	for _, v := range m.Vertices {
		fmt.Fprintf(bw, "vn %g %g %g\n", v.Normal.X, v.Normal.Y, v.Normal.Z)
	}
	for i := 0; i+2 < len(m.Indices); i += 3 {
		// OBJ indices are 1-based.
		a, b, c := m.Indices[i]+1, m.Indices[i+1]+1, m.Indices[i+2]+1
		fmt.Fprintf(bw, "f %d//%d %d//%d %d//%d\n", a, a, b, b, c, c)
	}
	return bw.Flush()
}
