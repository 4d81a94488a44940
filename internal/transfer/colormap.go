package transfer

import (
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"os"

	_ "github.com/ftrvxmtrx/tga"
)

// maxColormapPoints caps how many control points a strip contributes; the
// 256-entry table cannot resolve more anyway.
const maxColormapPoints = TableSize

// FromImage builds a transfer function from a horizontal colormap strip:
// the x axis maps to intensity, pixel color and alpha become the control
// points. Strips taller than one pixel are sampled along their middle row.
func FromImage(img image.Image) Func {
	b := img.Bounds()
	w := b.Dx()
	if w == 0 {
		return Func{}
	}

	n := w
	if n > maxColormapPoints {
		n = maxColormapPoints
	}
	y := b.Min.Y + b.Dy()/2

	pts := make([]Point, 0, n)
	for i := 0; i < n; i++ {
		x := b.Min.X + i*(w-1)/max(n-1, 1)
		c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
		var v float64
		if n > 1 {
			v = float64(i) / float64(n-1)
		}
		pts = append(pts, RGBA(v,
			float64(c.R)/255,
			float64(c.G)/255,
			float64(c.B)/255,
			float64(c.A)/255))
	}
	return Func{Points: pts}
}

// LoadColormap reads a colormap strip image (PNG, JPEG or TGA) from disk.
func LoadColormap(path string) (Func, error) {
	f, err := os.Open(path)
	if err != nil {
		return Func{}, fmt.Errorf("colormap: open %s: %w", path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return Func{}, fmt.Errorf("colormap: decode %s: %w", path, err)
	}
	return FromImage(img), nil
}
