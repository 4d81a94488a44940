// Package export writes rendered frames to disk as WebP or PNG.
package export

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/HugoSmits86/nativewebp"
)

// WriteWebP encodes a frame as lossless WebP.
func WriteWebP(path string, img *image.NRGBA) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	defer f.Close()

	if err := nativewebp.Encode(f, img, nil); err != nil {
		return fmt.Errorf("export: webp encode %s: %w", path, err)
	}
	return nil
}

// WritePNG encodes a frame as PNG.
func WritePNG(path string, img *image.NRGBA) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("export: png encode %s: %w", path, err)
	}
	return nil
}

// Write picks the encoder from the file extension; unknown extensions
// default to WebP.
func Write(path string, img *image.NRGBA) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return WritePNG(path, img)
	default:
		return WriteWebP(path, img)
	}
}
