package volume

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// Raw volume container: a fixed little-endian header followed by the voxel
// payload. The payload is zstd-compressed when flagRawZstd is set; WriteFile
// always sets it.
//
//	offset  size  field
//	0       4     magic "VOLR"
//	4       1     format version (1)
//	5       1     data type (0=uint8, 1=int16, 2=float32)
//	6       1     flags (bit 0: zstd payload)
//	7       1     reserved
//	8       12    dims x,y,z (uint32)
//	20      24    spacing x,y,z (float64)
//	44      16    window, level (float64)

const (
	rawMagic   = "VOLR"
	rawVersion = 1

	flagRawZstd = 1 << 0
)

// WriteFile writes a volume as a zstd-compressed raw container.
func WriteFile(path string, v *Volume) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("rawio: create %s: %w", path, err)
	}
	defer f.Close()

	if err := Write(f, v, true); err != nil {
		return fmt.Errorf("rawio: write %s: %w", path, err)
	}
	return nil
}

// Write serializes a volume to w, compressing the payload when compress is
// set.
func Write(w io.Writer, v *Volume, compress bool) error {
	if err := v.Validate(); err != nil {
		return err
	}

	var flags uint8
	if compress {
		flags |= flagRawZstd
	}

	header := make([]byte, 0, 60)
	header = append(header, rawMagic...)
	header = append(header, rawVersion, uint8(v.DataType), flags, 0)
	header = binary.LittleEndian.AppendUint32(header, uint32(v.Dims.X))
	header = binary.LittleEndian.AppendUint32(header, uint32(v.Dims.Y))
	header = binary.LittleEndian.AppendUint32(header, uint32(v.Dims.Z))
	for _, s := range []float64{v.Spacing.X, v.Spacing.Y, v.Spacing.Z, v.Window.Window, v.Window.Level} {
		header = binary.LittleEndian.AppendUint64(header, math.Float64bits(s))
	}
	if _, err := w.Write(header); err != nil {
		return err
	}

	payload := w
	var enc *zstd.Encoder
	if compress {
		var err error
		enc, err = zstd.NewWriter(w)
		if err != nil {
			return err
		}
		payload = enc
	}

	if err := binary.Write(payload, binary.LittleEndian, v.rawBuffer()); err != nil {
		return err
	}
	if enc != nil {
		return enc.Close()
	}
	return nil
}

func (v *Volume) rawBuffer() any {
	switch v.DataType {
	case Uint8:
		return v.U8
	case Int16:
		return v.I16
	default:
		return v.F32
	}
}

// ReadFile loads a raw volume container from disk.
func ReadFile(path string) (*Volume, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("rawio: open %s: %w", path, err)
	}
	defer f.Close()

	v, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("rawio: read %s: %w", path, err)
	}
	return v, nil
}

// Read parses a raw volume container from r.
func Read(r io.Reader) (*Volume, error) {
	header := make([]byte, 60)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, fmt.Errorf("rawio: header: %w", err)
	}
	if string(header[:4]) != rawMagic {
		return nil, fmt.Errorf("rawio: bad magic %q", header[:4])
	}
	if header[4] != rawVersion {
		return nil, fmt.Errorf("rawio: unsupported version %d", header[4])
	}

	dtype := DataType(header[5])
	if dtype.BytesPerVoxel() == 0 {
		return nil, fmt.Errorf("rawio: unknown data type %d", header[5])
	}
	flags := header[6]

	dims := Dims{
		X: int(binary.LittleEndian.Uint32(header[8:])),
		Y: int(binary.LittleEndian.Uint32(header[12:])),
		Z: int(binary.LittleEndian.Uint32(header[16:])),
	}
	fields := make([]float64, 5)
	for i := range fields {
		fields[i] = math.Float64frombits(binary.LittleEndian.Uint64(header[20+8*i:]))
	}

	v := &Volume{
		Dims:     dims,
		Spacing:  Spacing{X: fields[0], Y: fields[1], Z: fields[2]},
		DataType: dtype,
		Window:   WindowLevel{Window: fields[3], Level: fields[4]},
	}
	if !dims.Valid() {
		return nil, fmt.Errorf("rawio: %w: dims %dx%dx%d", ErrInvalidVolume, dims.X, dims.Y, dims.Z)
	}

	payload := r
	if flags&flagRawZstd != 0 {
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		payload = dec
	}

	n := dims.Count()
	switch dtype {
	case Uint8:
		v.U8 = make([]uint8, n)
		if _, err := io.ReadFull(payload, v.U8); err != nil {
			return nil, fmt.Errorf("rawio: payload: %w", err)
		}
	case Int16:
		v.I16 = make([]int16, n)
		if err := binary.Read(payload, binary.LittleEndian, v.I16); err != nil {
			return nil, fmt.Errorf("rawio: payload: %w", err)
		}
	case Float32:
		v.F32 = make([]float32, n)
		if err := binary.Read(payload, binary.LittleEndian, v.F32); err != nil {
			return nil, fmt.Errorf("rawio: payload: %w", err)
		}
	}

	return v, nil
}

// IsRawFile reports whether path has the raw container extension.
func IsRawFile(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), ".vol")
}
