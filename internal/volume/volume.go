// Package volume owns the scalar-field data model: typed voxel buffers,
// dimension validation, and per-datatype intensity normalization ahead of
// texture upload.
package volume

import (
	"errors"
	"fmt"
)

// ErrInvalidVolume marks volumes whose buffer does not match the declared
// shape. Errors returned by Validate wrap it.
var ErrInvalidVolume = errors.New("invalid volume")

// DataType identifies the element type of a volume buffer.
type DataType int

const (
	Uint8 DataType = iota
	Int16
	Float32
)

func (d DataType) String() string {
	switch d {
	case Uint8:
		return "uint8"
	case Int16:
		return "int16"
	case Float32:
		return "float32"
	default:
		return fmt.Sprintf("DataType(%d)", int(d))
	}
}

// BytesPerVoxel returns the storage size of one voxel.
func (d DataType) BytesPerVoxel() int {
	switch d {
	case Uint8:
		return 1
	case Int16:
		return 2
	case Float32:
		return 4
	default:
		return 0
	}
}

// Dims holds voxel counts per axis.
type Dims struct {
	X, Y, Z int
}

// Count returns the total voxel count.
func (d Dims) Count() int { return d.X * d.Y * d.Z }

// Max returns the largest axis count. Used for gradient sampling spacing.
func (d Dims) Max() int {
	m := d.X
	if d.Y > m {
		m = d.Y
	}
	if d.Z > m {
		m = d.Z
	}
	return m
}

// Valid reports whether all axes are positive.
func (d Dims) Valid() bool { return d.X > 0 && d.Y > 0 && d.Z > 0 }

// Spacing holds the physical distance between voxel centers per axis,
// in millimeters.
type Spacing struct {
	X, Y, Z float64
}

// Volume is a regularly sampled 3D scalar field. Exactly one of the typed
// buffers is populated, matching DataType.
type Volume struct {
	Dims     Dims
	Spacing  Spacing
	DataType DataType

	U8  []uint8
	I16 []int16
	F32 []float32

	// Window is the default window/level supplied by the decoding service,
	// in normalized [0,1] intensity units. Zero value means identity.
	Window WindowLevel
}

// NewUint8 builds an 8-bit unsigned volume.
func NewUint8(dims Dims, spacing Spacing, data []uint8) *Volume {
	return &Volume{Dims: dims, Spacing: spacing, DataType: Uint8, U8: data}
}

// NewInt16 builds a 16-bit signed volume.
func NewInt16(dims Dims, spacing Spacing, data []int16) *Volume {
	return &Volume{Dims: dims, Spacing: spacing, DataType: Int16, I16: data}
}

// NewFloat32 builds a 32-bit float volume.
func NewFloat32(dims Dims, spacing Spacing, data []float32) *Volume {
	return &Volume{Dims: dims, Spacing: spacing, DataType: Float32, F32: data}
}

func (v *Volume) bufferLen() int {
	switch v.DataType {
	case Uint8:
		return len(v.U8)
	case Int16:
		return len(v.I16)
	case Float32:
		return len(v.F32)
	default:
		return 0
	}
}

// Validate checks the buffer length against the declared dimensions.
func (v *Volume) Validate() error {
	if !v.Dims.Valid() {
		return fmt.Errorf("%w: non-positive dimensions %dx%dx%d",
			ErrInvalidVolume, v.Dims.X, v.Dims.Y, v.Dims.Z)
	}
	if got, want := v.bufferLen(), v.Dims.Count(); got != want {
		return fmt.Errorf("%w: buffer length %d does not match %dx%dx%d (%d voxels)",
			ErrInvalidVolume, got, v.Dims.X, v.Dims.Y, v.Dims.Z, want)
	}
	return nil
}

// Normalize converts the buffer to a flat []float32 ready for texture upload.
// Int16 data is rescaled to [0,1] over the buffer's full range; Uint8 is
// scaled by 1/255 (the texture-unit convention); Float32 is copied as-is.
func (v *Volume) Normalize() []float32 {
	n := v.Dims.Count()
	out := make([]float32, n)

	switch v.DataType {
	case Uint8:
		const inv = 1.0 / 255.0
		for i, s := range v.U8 {
			out[i] = float32(s) * inv
		}

	case Int16:
		if n == 0 {
			return out
		}
		min, max := v.I16[0], v.I16[0]
		for _, s := range v.I16 {
			if s < min {
				min = s
			}
			if s > max {
				max = s
			}
		}
		if max == min {
			return out
		}
		scale := 1.0 / float32(int(max)-int(min))
		for i, s := range v.I16 {
			out[i] = float32(int(s)-int(min)) * scale
		}

	case Float32:
		copy(out, v.F32)
	}

	return out
}

// At returns the normalized-buffer index of voxel (x, y, z).
// Layout is x-fastest, matching slice stacking order.
func (d Dims) At(x, y, z int) int {
	return z*d.X*d.Y + y*d.X + x
}
