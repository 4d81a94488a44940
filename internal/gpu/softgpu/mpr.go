package softgpu

import "volrender/internal/gpu"

// drawMPR reconstructs an arbitrary plane through the volume: one sample
// per output pixel, no marching. Pixels whose sample coordinate falls
// outside the unit cube render as opaque black.
func (d *Device) drawMPR(vol *volumeTexture, lut *[256][4]float32, u gpu.Uniforms) {
	basisU, basisV := gpu.PlaneBasis(u.PlaneNormal)
	normal := safeNormalize(u.PlaneNormal)

	// Offset 0..1 slides the plane across the cube along its normal.
	center := normal.Mul(2*clamp01(u.PlaneOffset) - 1)

	for py := 0; py < d.height; py++ {
		// Plane-space coordinates span [-1,1] across the output surface.
		pv := 1 - 2*(float64(py)+0.5)/float64(d.height)
		for px := 0; px < d.width; px++ {
			pu := 2*(float64(px)+0.5)/float64(d.width) - 1

			pos := center.Add(basisU.Mul(pu)).Add(basisV.Mul(pv))
			sx := (pos.X() + 1) / 2
			sy := (pos.Y() + 1) / 2
			sz := (pos.Z() + 1) / 2

			if sx < 0 || sx > 1 || sy < 0 || sy > 1 || sz < 0 || sz > 1 {
				d.fb.store(px, py, 0, 0, 0, 1)
				continue
			}

			raw := vol.sample(sx, sy, sz)
			s := lutSample(lut, applyWindow(raw, u.Window, u.Level))
			d.fb.store(px, py, s[0], s[1], s[2], 1)
		}
	}
}
