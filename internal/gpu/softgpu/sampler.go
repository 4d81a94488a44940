package softgpu

// volumeTexture is a 3D scalar texture with clamp-to-edge addressing and
// trilinear filtering, matching the GL backend's sampler state.
type volumeTexture struct {
	w, h, d int
	data    []float32
}

// at fetches one texel with clamped integer coordinates.
func (t *volumeTexture) at(x, y, z int) float64 {
	if x < 0 {
		x = 0
	} else if x >= t.w {
		x = t.w - 1
	}
	if y < 0 {
		y = 0
	} else if y >= t.h {
		y = t.h - 1
	}
	if z < 0 {
		z = 0
	} else if z >= t.d {
		z = t.d - 1
	}
	return float64(t.data[z*t.w*t.h+y*t.w+x])
}

// sample performs trilinear filtering at normalized [0,1] coordinates.
func (t *volumeTexture) sample(x, y, z float64) float64 {
	fx := clamp01(x) * float64(t.w-1)
	fy := clamp01(y) * float64(t.h-1)
	fz := clamp01(z) * float64(t.d-1)

	x0, y0, z0 := int(fx), int(fy), int(fz)
	dx := fx - float64(x0)
	dy := fy - float64(y0)
	dz := fz - float64(z0)

	// Two bilinear lobes blended along z.
	c00 := t.at(x0, y0, z0)*(1-dx) + t.at(x0+1, y0, z0)*dx
	c10 := t.at(x0, y0+1, z0)*(1-dx) + t.at(x0+1, y0+1, z0)*dx
	c01 := t.at(x0, y0, z0+1)*(1-dx) + t.at(x0+1, y0, z0+1)*dx
	c11 := t.at(x0, y0+1, z0+1)*(1-dx) + t.at(x0+1, y0+1, z0+1)*dx

	c0 := c00*(1-dy) + c10*dy
	c1 := c01*(1-dy) + c11*dy
	return c0*(1-dz) + c1*dz
}

// lutSample interpolates the 256-entry table at normalized intensity v,
// matching linear texture filtering.
func lutSample(table *[256][4]float32, v float64) [4]float64 {
	f := clamp01(v) * 255
	i := int(f)
	if i >= 255 {
		e := table[255]
		return [4]float64{float64(e[0]), float64(e[1]), float64(e[2]), float64(e[3])}
	}
	w := f - float64(i)
	a, b := table[i], table[i+1]
	var out [4]float64
	for k := 0; k < 4; k++ {
		out[k] = float64(a[k])*(1-w) + float64(b[k])*w
	}
	return out
}

// applyWindow remaps a normalized intensity through a window/level pair.
// A non-positive window is the identity mapping.
func applyWindow(t, window, level float64) float64 {
	if window <= 0 {
		return clamp01(t)
	}
	return clamp01((t - (level - window/2)) / window)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
