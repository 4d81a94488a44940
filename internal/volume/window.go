package volume

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// WindowLevel is a linear contrast remap over normalized intensities:
// window is the visible range, level its center. The zero value is treated
// as the identity mapping by Normalized.
type WindowLevel struct {
	Window float64
	Level  float64
}

// DefaultWindowLevel is the identity mapping over the full [0,1] range.
func DefaultWindowLevel() WindowLevel {
	return WindowLevel{Window: 1, Level: 0.5}
}

// Normalized returns the window/level to apply, substituting the identity
// mapping for the zero value.
func (w WindowLevel) Normalized() WindowLevel {
	if w.Window <= 0 {
		return DefaultWindowLevel()
	}
	return w
}

// Apply remaps a normalized intensity through the window, clamped to [0,1].
func (w WindowLevel) Apply(t float64) float64 {
	w = w.Normalized()
	t = (t - (w.Level - w.Window/2)) / w.Window
	if t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}

// FromRaw converts a raw-unit window (e.g. Hounsfield center/width) into
// normalized units given the raw range the volume was normalized over.
func FromRaw(center, width, rawMin, rawMax float64) WindowLevel {
	span := rawMax - rawMin
	if span <= 0 || width <= 0 {
		return DefaultWindowLevel()
	}
	return WindowLevel{
		Window: width / span,
		Level:  (center - rawMin) / span,
	}
}

// autoWindowSamples caps how many voxels feed the percentile estimate so
// AutoWindowLevel stays cheap for large volumes.
const autoWindowSamples = 1 << 16

// AutoWindowLevel derives a robust window from the 1st and 99th intensity
// percentiles of a normalized buffer, ignoring outlier voxels.
func AutoWindowLevel(data []float32) WindowLevel {
	if len(data) == 0 {
		return DefaultWindowLevel()
	}

	stride := 1
	if len(data) > autoWindowSamples {
		stride = len(data) / autoWindowSamples
	}
	sample := make([]float64, 0, autoWindowSamples+1)
	for i := 0; i < len(data); i += stride {
		sample = append(sample, float64(data[i]))
	}
	sort.Float64s(sample)

	lo := stat.Quantile(0.01, stat.Empirical, sample, nil)
	hi := stat.Quantile(0.99, stat.Empirical, sample, nil)
	if hi-lo < 1e-6 {
		return DefaultWindowLevel()
	}
	return WindowLevel{Window: hi - lo, Level: (lo + hi) / 2}
}
