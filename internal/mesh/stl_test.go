package mesh

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"
)

// writeFacet appends one 50-byte binary STL facet.
func writeFacet(buf *bytes.Buffer, normal [3]float32, verts [3][3]float32) {
	for _, v := range normal {
		binary.Write(buf, binary.LittleEndian, math.Float32bits(v))
	}
	for _, p := range verts {
		for _, v := range p {
			binary.Write(buf, binary.LittleEndian, math.Float32bits(v))
		}
	}
	buf.Write([]byte{0, 0}) // attribute byte count
}

func stlQuad() *bytes.Buffer {
	var buf bytes.Buffer
	buf.Write(make([]byte, 80))
	binary.Write(&buf, binary.LittleEndian, uint32(2))

	// Two triangles sharing the diagonal (0,0,0)-(1,1,0).
	n := [3]float32{0, 0, 1}
	writeFacet(&buf, n, [3][3]float32{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}})
	writeFacet(&buf, n, [3][3]float32{{0, 0, 0}, {1, 1, 0}, {0, 1, 0}})
	return &buf
}

func TestReadSTLMergesSharedVertices(t *testing.T) {
	m, err := ReadSTL(stlQuad())
	if err != nil {
		t.Fatalf("ReadSTL: %v", err)
	}

	if got := m.VertexCount(); got != 4 {
		t.Errorf("VertexCount = %d, want 4 after merging the shared edge", got)
	}
	if got := m.TriangleCount(); got != 2 {
		t.Errorf("TriangleCount = %d, want 2", got)
	}

	// All facets are coplanar, so every merged normal is (0, 0, 1).
	for i := 0; i < m.VertexCount(); i++ {
		nx, ny, nz := m.Normals[i*3], m.Normals[i*3+1], m.Normals[i*3+2]
		if nx != 0 || ny != 0 || math.Abs(float64(nz)-1) > 1e-6 {
			t.Errorf("vertex %d normal = (%v, %v, %v), want (0, 0, 1)", i, nx, ny, nz)
		}
	}
}

func TestReadSTLDegenerateNormal(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(make([]byte, 80))
	binary.Write(&buf, binary.LittleEndian, uint32(1))
	writeFacet(&buf, [3]float32{0, 0, 0}, [3][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}})

	m, err := ReadSTL(&buf)
	if err != nil {
		t.Fatalf("ReadSTL: %v", err)
	}
	// Zero facet normals fall back to +Z.
	if m.Normals[2] != 1 {
		t.Errorf("fallback normal = %v, want +Z", m.Normals[0:3])
	}
}

func TestReadSTLRejectsTruncated(t *testing.T) {
	if _, err := ReadSTL(bytes.NewReader(make([]byte, 40))); err == nil {
		t.Error("short header should fail")
	}

	var buf bytes.Buffer
	buf.Write(make([]byte, 80))
	binary.Write(&buf, binary.LittleEndian, uint32(3)) // promises 3 facets
	writeFacet(&buf, [3]float32{0, 0, 1}, [3][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}})
	if _, err := ReadSTL(&buf); err == nil {
		t.Error("truncated facet list should fail")
	}

	var empty bytes.Buffer
	empty.Write(make([]byte, 84))
	if _, err := ReadSTL(&empty); err == nil {
		t.Error("zero facets should fail")
	}
}
