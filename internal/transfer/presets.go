package transfer

import "fmt"

// Built-in transfer functions matching the presets the study viewer offers.

// Grayscale maps intensity linearly to luminance and opacity.
func Grayscale() Func {
	return Func{Points: []Point{
		RGBA(0, 0, 0, 0, 0),
		RGBA(1, 1, 1, 1, 1),
	}}
}

// CTBone emphasizes high-density structures: soft tissue stays translucent
// red-brown, bone ramps to opaque white.
func CTBone() Func {
	return Func{Points: []Point{
		RGBA(0.0, 0, 0, 0, 0),
		RGBA(0.35, 0.45, 0.25, 0.18, 0.02),
		RGBA(0.55, 0.80, 0.65, 0.45, 0.25),
		RGBA(0.80, 0.95, 0.92, 0.85, 0.80),
		RGBA(1.0, 1, 1, 1, 1),
	}}
}

// HotMetal is the classic black-red-yellow-white intensity ramp.
func HotMetal() Func {
	return Func{Points: []Point{
		RGBA(0.0, 0, 0, 0, 0),
		RGBA(0.33, 0.8, 0, 0, 0.25),
		RGBA(0.66, 1, 0.8, 0, 0.6),
		RGBA(1.0, 1, 1, 1, 1),
	}}
}

// Preset returns a named built-in function.
func Preset(name string) (Func, error) {
	switch name {
	case "", "grayscale":
		return Grayscale(), nil
	case "ct-bone":
		return CTBone(), nil
	case "hot-metal":
		return HotMetal(), nil
	default:
		return Func{}, fmt.Errorf("transfer: unknown preset %q", name)
	}
}
