package volume

import (
	"errors"
	"math"
	"testing"
)

func TestValidate(t *testing.T) {
	good := NewUint8(Dims{2, 3, 4}, Spacing{1, 1, 1}, make([]uint8, 24))
	if err := good.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	cases := []struct {
		name string
		vol  *Volume
	}{
		{"zero dim", NewUint8(Dims{0, 3, 4}, Spacing{}, nil)},
		{"negative dim", NewInt16(Dims{2, -1, 4}, Spacing{}, nil)},
		{"short buffer", NewUint8(Dims{2, 3, 4}, Spacing{}, make([]uint8, 23))},
		{"long buffer", NewFloat32(Dims{2, 2, 2}, Spacing{}, make([]float32, 9))},
		{"wrong typed buffer", &Volume{Dims: Dims{2, 2, 2}, DataType: Int16, U8: make([]uint8, 8)}},
	}
	for _, c := range cases {
		err := c.vol.Validate()
		if err == nil {
			t.Errorf("%s: Validate should fail", c.name)
			continue
		}
		if !errors.Is(err, ErrInvalidVolume) {
			t.Errorf("%s: error %v does not wrap ErrInvalidVolume", c.name, err)
		}
	}
}

func TestNormalizeUint8(t *testing.T) {
	v := NewUint8(Dims{3, 1, 1}, Spacing{}, []uint8{0, 128, 255})
	out := v.Normalize()

	want := []float32{0, 128.0 / 255.0, 1}
	for i := range want {
		if math.Abs(float64(out[i]-want[i])) > 1e-6 {
			t.Errorf("out[%d] = %v, want %v", i, out[i], want[i])
		}
	}
}

func TestNormalizeInt16Rescales(t *testing.T) {
	v := NewInt16(Dims{3, 1, 1}, Spacing{}, []int16{-1000, 0, 3000})
	out := v.Normalize()

	if out[0] != 0 {
		t.Errorf("min voxel = %v, want 0", out[0])
	}
	if math.Abs(float64(out[2])-1) > 1e-6 {
		t.Errorf("max voxel = %v, want 1", out[2])
	}
	want := float32(1000.0 / 4000.0)
	if math.Abs(float64(out[1]-want)) > 1e-6 {
		t.Errorf("mid voxel = %v, want %v", out[1], want)
	}
}

func TestNormalizeInt16Constant(t *testing.T) {
	v := NewInt16(Dims{2, 2, 1}, Spacing{}, []int16{7, 7, 7, 7})
	for i, s := range v.Normalize() {
		if s != 0 {
			t.Errorf("out[%d] = %v, want 0 for constant volume", i, s)
		}
	}
}

func TestAtIndexing(t *testing.T) {
	d := Dims{4, 3, 2}
	if got := d.At(0, 0, 0); got != 0 {
		t.Errorf("At(0,0,0) = %d, want 0", got)
	}
	if got := d.At(1, 0, 0); got != 1 {
		t.Errorf("At(1,0,0) = %d, want 1: x must be fastest", got)
	}
	if got := d.At(0, 1, 0); got != 4 {
		t.Errorf("At(0,1,0) = %d, want 4", got)
	}
	if got := d.At(0, 0, 1); got != 12 {
		t.Errorf("At(0,0,1) = %d, want 12", got)
	}
	if got := d.At(3, 2, 1); got != d.Count()-1 {
		t.Errorf("At(last) = %d, want %d", got, d.Count()-1)
	}
}

func TestWindowLevelApply(t *testing.T) {
	w := WindowLevel{Window: 0.5, Level: 0.5}

	cases := []struct{ in, want float64 }{
		{0.25, 0},  // window floor
		{0.5, 0.5}, // center
		{0.75, 1},  // window ceiling
		{0.1, 0},   // clamped below
		{0.9, 1},   // clamped above
	}
	for _, c := range cases {
		if got := w.Apply(c.in); math.Abs(got-c.want) > 1e-9 {
			t.Errorf("Apply(%v) = %v, want %v", c.in, got, c.want)
		}
	}

	// Zero value acts as identity.
	var zero WindowLevel
	if got := zero.Apply(0.3); math.Abs(got-0.3) > 1e-9 {
		t.Errorf("zero window Apply(0.3) = %v, want 0.3", got)
	}
}

func TestFromRaw(t *testing.T) {
	// Soft-tissue CT window over a -1024..3071 HU volume.
	w := FromRaw(40, 400, -1024, 3071)

	if math.Abs(w.Window-400.0/4095.0) > 1e-9 {
		t.Errorf("Window = %v, want %v", w.Window, 400.0/4095.0)
	}
	if math.Abs(w.Level-1064.0/4095.0) > 1e-9 {
		t.Errorf("Level = %v, want %v", w.Level, 1064.0/4095.0)
	}

	// Degenerate ranges fall back to identity.
	if got := FromRaw(40, 400, 5, 5); got != DefaultWindowLevel() {
		t.Errorf("FromRaw with empty range = %v, want default", got)
	}
}

func TestAutoWindowLevel(t *testing.T) {
	// Uniform ramp with a couple of outliers; percentiles ignore them.
	data := make([]float32, 1000)
	for i := range data {
		data[i] = float32(i) / 999
	}
	data[0] = -50
	data[999] = 50

	w := AutoWindowLevel(data)
	if w.Window <= 0 || w.Window > 1.1 {
		t.Errorf("Window = %v, outliers should not widen it", w.Window)
	}
	if w.Level < 0.3 || w.Level > 0.7 {
		t.Errorf("Level = %v, want near 0.5", w.Level)
	}

	if got := AutoWindowLevel(nil); got != DefaultWindowLevel() {
		t.Errorf("AutoWindowLevel(nil) = %v, want default", got)
	}
}
