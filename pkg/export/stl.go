// Package export writes tessellation meshes as binary STL.
package export

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/chazu/elbow/pkg/kernel"
)

// stlHeader is the fixed part of a binary STL file.
type stlHeader struct {
	Text  [80]uint8
	Count uint32
}

// stlTriangle is one 50-byte facet record.
type stlTriangle struct {
	Normal, V1, V2, V3 [3]float32
	_                  uint16 // attribute byte count
}

// WriteSTL writes every triangle of the meshes to w. The header text is
// truncated to 80 bytes. Facet normals are recomputed from the vertices.
func WriteSTL(w io.Writer, header string, meshes ...*kernel.Mesh) error {
	var count int
	for _, m := range meshes {
		if m != nil {
			count += m.TriangleCount()
		}
	}
	if count == 0 {
		return errors.New("export: no triangles to write")
	}
	if uint64(count) > math.MaxUint32 {
		return fmt.Errorf("export: %d triangles exceed the STL limit", count)
	}

	bw := bufio.NewWriter(w)
	h := stlHeader{Count: uint32(count)}
	copy(h.Text[:], header)
	if err := binary.Write(bw, binary.LittleEndian, &h); err != nil {
		return fmt.Errorf("export: header: %w", err)
	}
	for _, m := range meshes {
		if m == nil {
			continue
		}
		for i := 0; i < m.TriangleCount(); i++ {
			t := m.Triangle(i)
			d := facet(m, t)
			if err := binary.Write(bw, binary.LittleEndian, &d); err != nil {
				return fmt.Errorf("export: triangle %d: %w", i, err)
			}
		}
	}
	return bw.Flush()
}

func facet(m *kernel.Mesh, t [3]uint32) stlTriangle {
	var d stlTriangle
	for j, idx := range t {
		v := [3]float32{m.Vertices[idx*3], m.Vertices[idx*3+1], m.Vertices[idx*3+2]}
		switch j {
		case 0:
			d.V1 = v
		case 1:
			d.V2 = v
		case 2:
			d.V3 = v
		}
	}
	ux, uy, uz := float64(d.V2[0]-d.V1[0]), float64(d.V2[1]-d.V1[1]), float64(d.V2[2]-d.V1[2])
	vx, vy, vz := float64(d.V3[0]-d.V1[0]), float64(d.V3[1]-d.V1[1]), float64(d.V3[2]-d.V1[2])
	nx, ny, nz := uy*vz-uz*vy, uz*vx-ux*vz, ux*vy-uy*vx
	if l := math.Sqrt(nx*nx + ny*ny + nz*nz); l > 0 {
		d.Normal = [3]float32{float32(nx / l), float32(ny / l), float32(nz / l)}
	}
	return d
}

// ReadSTL reads a binary STL file back into a single mesh with one vertex
// per facet corner.
func ReadSTL(r io.Reader) (*kernel.Mesh, error) {
	br := bufio.NewReader(r)
	var h stlHeader
	if err := binary.Read(br, binary.LittleEndian, &h); err != nil {
		return nil, fmt.Errorf("export: header: %w", err)
	}
	m := &kernel.Mesh{
		Vertices: make([]float32, 0, int(h.Count)*9),
		Normals:  make([]float32, 0, int(h.Count)*9),
		Indices:  make([]uint32, 0, int(h.Count)*3),
	}
	for i := uint32(0); i < h.Count; i++ {
		var d stlTriangle
		if err := binary.Read(br, binary.LittleEndian, &d); err != nil {
			return nil, fmt.Errorf("export: triangle %d of %d: %w", i, h.Count, err)
		}
		for _, v := range [][3]float32{d.V1, d.V2, d.V3} {
			m.Indices = append(m.Indices, uint32(len(m.Vertices)/3))
			m.Vertices = append(m.Vertices, v[0], v[1], v[2])
			m.Normals = append(m.Normals, d.Normal[0], d.Normal[1], d.Normal[2])
		}
	}
	return m, nil
}
