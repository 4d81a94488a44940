package softgpu

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"volrender/internal/gpu"
)

const (
	// Compositing stops once accumulated alpha reaches this threshold.
	alphaCutoff = 0.95

	// Samples below this opacity skip gradient estimation and shading.
	opacityEpsilon = 0.01

	// Shading terms for the single directional light.
	ambientTerm = 0.3
	diffuseTerm = 0.7
)

// drawMarched runs the direct-volume or MIP program over every pixel.
func (d *Device) drawMarched(kind gpu.ProgramKind, vol *volumeTexture, lut *[256][4]float32, u gpu.Uniforms) {
	invVP := u.Proj.Mul4(u.View).Inv()
	light := safeNormalize(u.LightDir)

	for py := 0; py < d.height; py++ {
		for px := 0; px < d.width; px++ {
			ro, rd := pixelRay(invVP, u.CameraPos, px, py, d.width, d.height)

			var rgba [4]float64
			if kind == gpu.ProgramMIP {
				rgba = mipRay(vol, lut, u, ro, rd)
			} else {
				rgba, _ = volumeRay(vol, lut, u, light, ro, rd)
			}
			d.fb.store(px, py, rgba[0], rgba[1], rgba[2], rgba[3])
		}
	}
}

// pixelRay builds the view ray for a pixel center by unprojecting the near
// and far clip planes.
func pixelRay(invVP mgl64.Mat4, camPos mgl64.Vec3, px, py, w, h int) (ro, rd mgl64.Vec3) {
	ndcX := 2*(float64(px)+0.5)/float64(w) - 1
	ndcY := 1 - 2*(float64(py)+0.5)/float64(h)

	near := invVP.Mul4x1(mgl64.Vec4{ndcX, ndcY, -1, 1})
	far := invVP.Mul4x1(mgl64.Vec4{ndcX, ndcY, 1, 1})
	nearP := near.Vec3().Mul(1 / near.W())
	farP := far.Vec3().Mul(1 / far.W())

	return camPos, farP.Sub(nearP).Normalize()
}

// cubeIntersect clips a ray against the [-1,1]³ cube using the slab method.
// Returns entry/exit distances; ok is false on a miss.
func cubeIntersect(ro, rd mgl64.Vec3) (tNear, tFar float64, ok bool) {
	tNear = math.Inf(-1)
	tFar = math.Inf(1)

	for axis := 0; axis < 3; axis++ {
		o, dir := ro[axis], rd[axis]
		if math.Abs(dir) < 1e-12 {
			if o < -1 || o > 1 {
				return 0, 0, false
			}
			continue
		}
		t0 := (-1 - o) / dir
		t1 := (1 - o) / dir
		if t0 > t1 {
			t0, t1 = t1, t0
		}
		if t0 > tNear {
			tNear = t0
		}
		if t1 < tFar {
			tFar = t1
		}
	}
	if tNear > tFar || tFar < 0 {
		return 0, 0, false
	}
	if tNear < 0 {
		tNear = 0
	}
	return tNear, tFar, true
}

// volumeRay marches one ray front-to-back with over-compositing and
// gradient-shaded samples. Returns the composited color and the number of
// steps actually taken; marching ends early once alpha saturates.
func volumeRay(vol *volumeTexture, lut *[256][4]float32, u gpu.Uniforms, light, ro, rd mgl64.Vec3) ([4]float64, int) {
	tNear, tFar, ok := cubeIntersect(ro, rd)
	if !ok || u.StepSize <= 0 {
		return [4]float64{0, 0, 0, 1}, 0
	}

	// Gradient sampling offset: one voxel of the largest axis.
	maxDim := u.VolumeDims[0]
	if u.VolumeDims[1] > maxDim {
		maxDim = u.VolumeDims[1]
	}
	if u.VolumeDims[2] > maxDim {
		maxDim = u.VolumeDims[2]
	}
	if maxDim < 1 {
		maxDim = 1
	}
	grad := 1 / float64(maxDim)

	var colR, colG, colB, alpha float64
	steps := 0

	for t := tNear; t <= tFar && steps < u.MaxSteps; t += u.StepSize {
		steps++
		pos := ro.Add(rd.Mul(t))
		sx := (pos.X() + 1) / 2
		sy := (pos.Y() + 1) / 2
		sz := (pos.Z() + 1) / 2

		raw := vol.sample(sx, sy, sz)
		s := lutSample(lut, applyWindow(raw, u.Window, u.Level))
		if s[3] <= opacityEpsilon {
			continue
		}

		// Central-difference gradient as the shading normal. The gradient
		// points toward increasing density, so the outward surface normal
		// is its negation.
		gx := vol.sample(sx+grad, sy, sz) - vol.sample(sx-grad, sy, sz)
		gy := vol.sample(sx, sy+grad, sz) - vol.sample(sx, sy-grad, sz)
		gz := vol.sample(sx, sy, sz+grad) - vol.sample(sx, sy, sz-grad)
		shade := ambientTerm
		if gl := math.Sqrt(gx*gx + gy*gy + gz*gz); gl > 1e-9 {
			n := mgl64.Vec3{-gx / gl, -gy / gl, -gz / gl}
			if ndl := n.Dot(light); ndl > 0 {
				shade += diffuseTerm * ndl
			}
		}

		// Front-to-back "over" compositing.
		contrib := s[3] * (1 - alpha)
		colR += s[0] * shade * contrib
		colG += s[1] * shade * contrib
		colB += s[2] * shade * contrib
		alpha += contrib

		if alpha >= alphaCutoff {
			break
		}
	}

	// Composite over the black background.
	return [4]float64{colR, colG, colB, 1}, steps
}

// mipRay tracks the maximum raw scalar along the ray and maps it through
// the transfer function exactly once, at full opacity.
func mipRay(vol *volumeTexture, lut *[256][4]float32, u gpu.Uniforms, ro, rd mgl64.Vec3) [4]float64 {
	tNear, tFar, ok := cubeIntersect(ro, rd)
	if !ok || u.StepSize <= 0 {
		return [4]float64{0, 0, 0, 1}
	}

	maxRaw := 0.0
	steps := 0
	for t := tNear; t <= tFar && steps < u.MaxSteps; t += u.StepSize {
		steps++
		pos := ro.Add(rd.Mul(t))
		raw := vol.sample((pos.X()+1)/2, (pos.Y()+1)/2, (pos.Z()+1)/2)
		if raw > maxRaw {
			maxRaw = raw
		}
	}
	if steps == 0 {
		return [4]float64{0, 0, 0, 1}
	}

	s := lutSample(lut, applyWindow(maxRaw, u.Window, u.Level))
	return [4]float64{s[0], s[1], s[2], 1}
}

func safeNormalize(v mgl64.Vec3) mgl64.Vec3 {
	if v.Len() < 1e-12 {
		return mgl64.Vec3{0.57735, 0.57735, 0.57735}
	}
	return v.Normalize()
}
