package volume

import (
	"bytes"
	"path/filepath"
	"testing"
)

func TestRawRoundTripCompressed(t *testing.T) {
	data := make([]int16, 4*3*2)
	for i := range data {
		data[i] = int16(i*31 - 1000)
	}
	v := NewInt16(Dims{4, 3, 2}, Spacing{0.5, 0.5, 1.25}, data)
	v.Window = WindowLevel{Window: 0.2, Level: 0.6}

	var buf bytes.Buffer
	if err := Write(&buf, v, true); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := Read(&buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	if got.Dims != v.Dims {
		t.Errorf("Dims = %v, want %v", got.Dims, v.Dims)
	}
	if got.Spacing != v.Spacing {
		t.Errorf("Spacing = %v, want %v", got.Spacing, v.Spacing)
	}
	if got.DataType != Int16 {
		t.Errorf("DataType = %v, want int16", got.DataType)
	}
	if got.Window != v.Window {
		t.Errorf("Window = %v, want %v", got.Window, v.Window)
	}
	for i := range data {
		if got.I16[i] != data[i] {
			t.Fatalf("voxel %d = %d, want %d", i, got.I16[i], data[i])
		}
	}
}

func TestRawRoundTripUncompressed(t *testing.T) {
	v := NewUint8(Dims{2, 2, 2}, Spacing{1, 1, 1}, []uint8{0, 1, 2, 3, 4, 5, 6, 7})

	var buf bytes.Buffer
	if err := Write(&buf, v, false); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := Read(&buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !bytes.Equal(got.U8, v.U8) {
		t.Errorf("payload = %v, want %v", got.U8, v.U8)
	}
}

func TestRawFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "study.vol")
	v := NewFloat32(Dims{3, 3, 3}, Spacing{1, 1, 1}, make([]float32, 27))
	v.F32[13] = 0.75

	if err := WriteFile(path, v); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if got.F32[13] != 0.75 {
		t.Errorf("voxel 13 = %v, want 0.75", got.F32[13])
	}
}

func TestReadRejectsGarbage(t *testing.T) {
	if _, err := Read(bytes.NewReader([]byte("not a volume at all, nowhere near sixty bytes of header data...."))); err == nil {
		t.Error("Read should reject a bad magic")
	}
	if _, err := Read(bytes.NewReader(nil)); err == nil {
		t.Error("Read should reject a short header")
	}

	// Invalid volume must fail at write time.
	bad := NewUint8(Dims{2, 2, 2}, Spacing{}, make([]uint8, 3))
	var buf bytes.Buffer
	if err := Write(&buf, bad, false); err == nil {
		t.Error("Write should reject a mismatched buffer")
	}
}

func TestIsRawFile(t *testing.T) {
	if !IsRawFile("scan.vol") || !IsRawFile("SCAN.VOL") {
		t.Error(".vol files should be recognized")
	}
	if IsRawFile("scan.nii") || IsRawFile("vol") {
		t.Error("non-.vol files should not be recognized")
	}
}
