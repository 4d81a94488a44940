package softgpu

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"volrender/internal/gpu"
)

// Phong terms for the surface program's single directional light.
const (
	surfAmbient   = 0.18
	surfDiffuse   = 0.72
	surfSpecular  = 0.40
	surfShininess = 32.0
)

// Base albedo for untextured isosurfaces.
var surfBase = [3]float64{0.86, 0.88, 0.92}

// drawSurface rasterizes the caller-supplied isosurface mesh with
// interpolated per-vertex normals and Phong shading. This is the hot path
// of the surface mode; the pixel loop allocates nothing.
func (d *Device) drawSurface(m *gpu.MeshData, u gpu.Uniforms) {
	nv := len(m.Positions) / 3
	if nv == 0 {
		return
	}

	mvp := u.Proj.Mul4(u.View)
	light := safeNormalize(u.LightDir)

	// Project every vertex to screen space once.
	sx := make([]float64, nv)
	sy := make([]float64, nv)
	sz := make([]float64, nv)
	valid := make([]bool, nv)
	w := float64(d.width)
	h := float64(d.height)

	for i := 0; i < nv; i++ {
		p := mgl64.Vec4{
			float64(m.Positions[i*3]),
			float64(m.Positions[i*3+1]),
			float64(m.Positions[i*3+2]),
			1,
		}
		clip := mvp.Mul4x1(p)
		if clip.W() < 1e-6 {
			continue // behind the eye
		}
		inv := 1 / clip.W()
		sx[i] = (clip.X()*inv + 1) / 2 * w
		sy[i] = (1 - clip.Y()*inv) / 2 * h
		sz[i] = clip.Z() * inv
		valid[i] = true
	}

	for t := 0; t+2 < len(m.Indices); t += 3 {
		i0, i1, i2 := m.Indices[t], m.Indices[t+1], m.Indices[t+2]
		if int(i0) >= nv || int(i1) >= nv || int(i2) >= nv {
			continue
		}
		if !valid[i0] || !valid[i1] || !valid[i2] {
			continue
		}
		d.rasterizeTriangle(m, u.CameraPos, light, sx, sy, sz, i0, i1, i2)
	}
}

func (d *Device) rasterizeTriangle(m *gpu.MeshData, camPos, light mgl64.Vec3, sx, sy, sz []float64, i0, i1, i2 uint32) {
	x0, y0, z0 := sx[i0], sy[i0], sz[i0]
	x1, y1, z1 := sx[i1], sy[i1], sz[i1]
	x2, y2, z2 := sx[i2], sy[i2], sz[i2]

	fb := d.fb

	minX := int(math.Min(math.Min(x0, x1), x2))
	maxX := int(math.Max(math.Max(x0, x1), x2)) + 1
	minY := int(math.Min(math.Min(y0, y1), y2))
	maxY := int(math.Max(math.Max(y0, y1), y2)) + 1
	if minX < 0 {
		minX = 0
	}
	if maxX >= fb.width {
		maxX = fb.width - 1
	}
	if minY < 0 {
		minY = 0
	}
	if maxY >= fb.height {
		maxY = fb.height - 1
	}
	if minX > maxX || minY > maxY {
		return
	}

	det := (y1-y2)*(x0-x2) + (x2-x1)*(y0-y2)
	if det > -1e-8 && det < 1e-8 {
		return
	}
	invDet := 1 / det
	dy12 := y1 - y2
	dx21 := x2 - x1
	dy20 := y2 - y0
	dx02 := x0 - x2

	// Object-space vertex attributes for per-pixel shading.
	p0 := objVec(m.Positions, i0)
	p1 := objVec(m.Positions, i1)
	p2 := objVec(m.Positions, i2)
	n0 := objVec(m.Normals, i0)
	n1 := objVec(m.Normals, i1)
	n2 := objVec(m.Normals, i2)

	for py := minY; py <= maxY; py++ {
		dsy := float64(py) - y2
		rowOff := py * fb.width
		for px := minX; px <= maxX; px++ {
			dsx := float64(px) - x2
			w0 := (dy12*dsx + dx21*dsy) * invDet
			w1 := (dy20*dsx + dx02*dsy) * invDet
			w2 := 1 - w0 - w1
			if w0 < -0.001 || w1 < -0.001 || w2 < -0.001 {
				continue
			}

			z := w0*z0 + w1*z1 + w2*z2
			zIdx := rowOff + px
			if z >= fb.depth[zIdx] {
				continue
			}
			fb.depth[zIdx] = z

			n := mgl64.Vec3{
				w0*n0[0] + w1*n1[0] + w2*n2[0],
				w0*n0[1] + w1*n1[1] + w2*n2[1],
				w0*n0[2] + w1*n1[2] + w2*n2[2],
			}
			if l := n.Len(); l > 1e-12 {
				n = n.Mul(1 / l)
			}

			pos := mgl64.Vec3{
				w0*p0[0] + w1*p1[0] + w2*p2[0],
				w0*p0[1] + w1*p1[1] + w2*p2[1],
				w0*p0[2] + w1*p1[2] + w2*p2[2],
			}

			// Double-sided: flip the normal toward the viewer.
			view := camPos.Sub(pos)
			if vl := view.Len(); vl > 1e-12 {
				view = view.Mul(1 / vl)
			}
			if n.Dot(view) < 0 {
				n = n.Mul(-1)
			}

			shade := surfAmbient
			if ndl := n.Dot(light); ndl > 0 {
				shade += surfDiffuse * ndl
			}

			// Blinn-Phong specular against the half vector.
			half := light.Add(view)
			spec := 0.0
			if hl := half.Len(); hl > 1e-12 {
				if ndh := n.Dot(half.Mul(1 / hl)); ndh > 0 {
					spec = surfSpecular * math.Pow(ndh, surfShininess)
				}
			}

			pxIdx := zIdx * 4
			fb.color[pxIdx] = clamp255((surfBase[0]*shade + spec) * 255)
			fb.color[pxIdx+1] = clamp255((surfBase[1]*shade + spec) * 255)
			fb.color[pxIdx+2] = clamp255((surfBase[2]*shade + spec) * 255)
			fb.color[pxIdx+3] = 255
		}
	}
}

func objVec(data []float32, i uint32) [3]float64 {
	return [3]float64{
		float64(data[i*3]),
		float64(data[i*3+1]),
		float64(data[i*3+2]),
	}
}
