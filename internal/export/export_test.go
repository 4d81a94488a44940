package export

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"
)

func solidFrame(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func TestWriteByExtension(t *testing.T) {
	dir := t.TempDir()
	frame := solidFrame(8, 8, color.NRGBA{200, 100, 50, 255})

	for _, name := range []string{"frame.webp", "frame.png", "frame"} {
		path := filepath.Join(dir, name)
		if err := Write(path, frame); err != nil {
			t.Fatalf("Write %s: %v", name, err)
		}
		info, err := os.Stat(path)
		if err != nil || info.Size() == 0 {
			t.Errorf("%s: missing or empty output (%v)", name, err)
		}
	}
}

func TestWriteCreatesDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "frame.webp")
	if err := WriteWebP(path, solidFrame(4, 4, color.NRGBA{255, 0, 0, 255})); err != nil {
		t.Fatalf("WriteWebP: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("nested output missing: %v", err)
	}
}

func TestDownsample(t *testing.T) {
	src := solidFrame(32, 32, color.NRGBA{120, 140, 160, 255})
	dst := Downsample(src, 8, 8)

	if b := dst.Bounds(); b.Dx() != 8 || b.Dy() != 8 {
		t.Fatalf("size = %dx%d, want 8x8", b.Dx(), b.Dy())
	}
	// A solid frame stays (approximately) solid through the filter.
	c := dst.NRGBAAt(4, 4)
	if int(c.R)-120 > 2 || 120-int(c.R) > 2 {
		t.Errorf("center = %v, want ~120 red", c)
	}

	// Already small enough: returned unchanged.
	if got := Downsample(src, 64, 64); got != src {
		t.Error("no-op downsample should return the input")
	}
}
