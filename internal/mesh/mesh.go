// Package mesh holds indexed triangle geometry: the caller-supplied
// isosurface meshes rasterized by the surface mode, and the bounding-cube
// proxy geometry the ray-marching modes draw.
package mesh

import "fmt"

// Mesh is an indexed triangle list with per-vertex normals. Positions and
// Normals are xyz-interleaved, three floats per vertex.
type Mesh struct {
	Positions []float32
	Normals   []float32
	Indices   []uint32
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int { return len(m.Positions) / 3 }

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int { return len(m.Indices) / 3 }

// Validate checks structural consistency: matching position/normal counts,
// index count divisible by three, and indices in range.
func (m *Mesh) Validate() error {
	if len(m.Positions) == 0 || len(m.Positions)%3 != 0 {
		return fmt.Errorf("mesh: position count %d not a positive multiple of 3", len(m.Positions))
	}
	if len(m.Normals) != len(m.Positions) {
		return fmt.Errorf("mesh: %d normal floats for %d position floats", len(m.Normals), len(m.Positions))
	}
	if len(m.Indices) == 0 || len(m.Indices)%3 != 0 {
		return fmt.Errorf("mesh: index count %d not a positive multiple of 3", len(m.Indices))
	}
	nv := uint32(m.VertexCount())
	for i, idx := range m.Indices {
		if idx >= nv {
			return fmt.Errorf("mesh: index %d at %d out of range (%d vertices)", idx, i, nv)
		}
	}
	return nil
}

// BoundingCube returns the [-1,1]³ proxy cube the volume modes rasterize.
// Normals point outward per corner; they are unused by the marching shaders.
func BoundingCube() *Mesh {
	corners := [8][3]float32{
		{-1, -1, -1}, {1, -1, -1}, {1, 1, -1}, {-1, 1, -1},
		{-1, -1, 1}, {1, -1, 1}, {1, 1, 1}, {-1, 1, 1},
	}

	m := &Mesh{
		Positions: make([]float32, 0, 24),
		Normals:   make([]float32, 0, 24),
	}
	for _, c := range corners {
		m.Positions = append(m.Positions, c[0], c[1], c[2])
		inv := float32(0.57735027) // 1/sqrt(3)
		m.Normals = append(m.Normals, c[0]*inv, c[1]*inv, c[2]*inv)
	}

	m.Indices = []uint32{
		0, 2, 1, 0, 3, 2, // -z
		4, 5, 6, 4, 6, 7, // +z
		0, 1, 5, 0, 5, 4, // -y
		3, 7, 6, 3, 6, 2, // +y
		0, 4, 7, 0, 7, 3, // -x
		1, 2, 6, 1, 6, 5, // +x
	}
	return m
}
