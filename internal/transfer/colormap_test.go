package transfer

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func TestFromImageGradientStrip(t *testing.T) {
	// 4x1 strip ramping black to white.
	img := image.NewNRGBA(image.Rect(0, 0, 4, 1))
	for x := 0; x < 4; x++ {
		v := uint8(x * 85)
		img.SetNRGBA(x, 0, color.NRGBA{v, v, v, 255})
	}

	f := FromImage(img)
	if len(f.Points) != 4 {
		t.Fatalf("points = %d, want 4", len(f.Points))
	}
	if f.Points[0].Value != 0 || f.Points[3].Value != 1 {
		t.Errorf("value range = [%v, %v], want [0, 1]", f.Points[0].Value, f.Points[3].Value)
	}

	table := f.Build()
	if table[0][0] != 0 {
		t.Errorf("table start = %v, want black", table[0])
	}
	if table[255][0] != 1 {
		t.Errorf("table end = %v, want white", table[255])
	}
}

func TestLoadColormap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "map.png")
	img := image.NewNRGBA(image.Rect(0, 0, 8, 1))
	for x := 0; x < 8; x++ {
		img.SetNRGBA(x, 0, color.NRGBA{255, 0, 0, 255})
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	f.Close()

	tf, err := LoadColormap(path)
	if err != nil {
		t.Fatalf("LoadColormap: %v", err)
	}
	if len(tf.Points) != 8 {
		t.Errorf("points = %d, want 8", len(tf.Points))
	}

	if _, err := LoadColormap(filepath.Join(t.TempDir(), "missing.png")); err == nil {
		t.Error("missing file should fail")
	}
}
