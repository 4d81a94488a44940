package mesh

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
)

// Binary STL is the interchange format the reconstruction service emits for
// precomputed isosurfaces. STL stores one normal per facet; vertices shared
// between facets are merged here and their normals area-averaged so the
// surface mode can shade smoothly.

// LoadSTL reads a binary STL file into a Mesh.
func LoadSTL(path string) (*Mesh, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("stl: open %s: %w", path, err)
	}
	defer f.Close()

	m, err := ReadSTL(f)
	if err != nil {
		return nil, fmt.Errorf("stl: read %s: %w", path, err)
	}
	return m, nil
}

// ReadSTL parses binary STL from r.
func ReadSTL(r io.Reader) (*Mesh, error) {
	header := make([]byte, 84)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, fmt.Errorf("header: %w", err)
	}
	count := binary.LittleEndian.Uint32(header[80:])
	if count == 0 {
		return nil, fmt.Errorf("empty mesh")
	}

	m := &Mesh{}
	seen := make(map[[3]float32]uint32, count)
	facet := make([]byte, 50) // normal + 3 vertices + attribute bytes

	for i := uint32(0); i < count; i++ {
		if _, err := io.ReadFull(r, facet); err != nil {
			return nil, fmt.Errorf("facet %d: %w", i, err)
		}

		var n [3]float32
		for k := 0; k < 3; k++ {
			n[k] = math.Float32frombits(binary.LittleEndian.Uint32(facet[4*k:]))
		}

		for v := 0; v < 3; v++ {
			var p [3]float32
			off := 12 + v*12
			for k := 0; k < 3; k++ {
				p[k] = math.Float32frombits(binary.LittleEndian.Uint32(facet[off+4*k:]))
			}

			idx, ok := seen[p]
			if !ok {
				idx = uint32(m.VertexCount())
				seen[p] = idx
				m.Positions = append(m.Positions, p[0], p[1], p[2])
				m.Normals = append(m.Normals, 0, 0, 0)
			}
			// Accumulate the facet normal; normalized below.
			m.Normals[idx*3] += n[0]
			m.Normals[idx*3+1] += n[1]
			m.Normals[idx*3+2] += n[2]

			m.Indices = append(m.Indices, idx)
		}
	}

	normalizeVertexNormals(m)
	return m, m.Validate()
}

func normalizeVertexNormals(m *Mesh) {
	for i := 0; i < len(m.Normals); i += 3 {
		x, y, z := m.Normals[i], m.Normals[i+1], m.Normals[i+2]
		l := float32(math.Sqrt(float64(x*x + y*y + z*z)))
		if l < 1e-12 {
			// Degenerate or zero facet normals; point at +Z so shading
			// stays defined.
			m.Normals[i], m.Normals[i+1], m.Normals[i+2] = 0, 0, 1
			continue
		}
		m.Normals[i] = x / l
		m.Normals[i+1] = y / l
		m.Normals[i+2] = z / l
	}
}

// Normalize rescales and recenters positions so the mesh fits the [-1,1]³
// render cube, preserving aspect ratio.
func (m *Mesh) Normalize() {
	if len(m.Positions) == 0 {
		return
	}
	var lo, hi [3]float32
	for k := 0; k < 3; k++ {
		lo[k] = float32(math.Inf(1))
		hi[k] = float32(math.Inf(-1))
	}
	for i := 0; i < len(m.Positions); i += 3 {
		for k := 0; k < 3; k++ {
			v := m.Positions[i+k]
			if v < lo[k] {
				lo[k] = v
			}
			if v > hi[k] {
				hi[k] = v
			}
		}
	}

	var center [3]float32
	span := float32(0)
	for k := 0; k < 3; k++ {
		center[k] = (lo[k] + hi[k]) / 2
		if s := hi[k] - lo[k]; s > span {
			span = s
		}
	}
	if span < 1e-12 {
		return
	}
	scale := 2 / span
	for i := 0; i < len(m.Positions); i += 3 {
		for k := 0; k < 3; k++ {
			m.Positions[i+k] = (m.Positions[i+k] - center[k]) * scale
		}
	}
}
