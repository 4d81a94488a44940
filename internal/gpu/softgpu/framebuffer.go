package softgpu

import "math"

// framebuffer holds the output target as flat slices for cache locality.
// color is RGBA interleaved; depth is NDC z per pixel, +inf when empty
// (smaller z wins).
type framebuffer struct {
	width  int
	height int
	color  []uint8
	depth  []float64
}

func newFramebuffer(w, h int) *framebuffer {
	n := w * h
	depth := make([]float64, n)
	for i := range depth {
		depth[i] = math.Inf(1)
	}
	return &framebuffer{
		width:  w,
		height: h,
		color:  make([]uint8, n*4),
		depth:  depth,
	}
}

// clear fills the color planes and resets depth.
func (fb *framebuffer) clear(r, g, b uint8) {
	for i := 0; i < len(fb.color); i += 4 {
		fb.color[i] = r
		fb.color[i+1] = g
		fb.color[i+2] = b
		fb.color[i+3] = 255
	}
	for i := range fb.depth {
		fb.depth[i] = math.Inf(1)
	}
}

// store writes a pixel from accumulated [0,1] channel values.
func (fb *framebuffer) store(x, y int, r, g, b, a float64) {
	i := (y*fb.width + x) * 4
	fb.color[i] = clamp255(r * 255)
	fb.color[i+1] = clamp255(g * 255)
	fb.color[i+2] = clamp255(b * 255)
	fb.color[i+3] = clamp255(a * 255)
}

func clamp255(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}
