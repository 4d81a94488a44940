package store

import (
	"path/filepath"
	"testing"

	"volrender/internal/volume"
)

func writeTestVolume(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	v := volume.NewUint8(volume.Dims{X: 2, Y: 2, Z: 2}, volume.Spacing{X: 1, Y: 1, Z: 1},
		[]uint8{10, 20, 30, 40, 50, 60, 70, 80})
	if err := volume.WriteFile(path, v); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoadCachesDecodedVolume(t *testing.T) {
	s := New()
	path := writeTestVolume(t, t.TempDir(), "a.vol")

	first, err := s.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	second, err := s.Load(path)
	if err != nil {
		t.Fatalf("Load (cached): %v", err)
	}

	if first != second {
		t.Error("second load returned a different instance; cache missed")
	}
	if s.Len() != 1 {
		t.Errorf("Len = %d, want 1", s.Len())
	}
}

func TestLoadCachesFailures(t *testing.T) {
	s := New()
	missing := filepath.Join(t.TempDir(), "missing.vol")

	if _, err := s.Load(missing); err == nil {
		t.Fatal("Load of missing file should fail")
	}
	if _, err := s.Load(missing); err == nil {
		t.Fatal("cached failure should still be an error")
	}
	if s.Len() != 1 {
		t.Errorf("Len = %d, want the failure cached", s.Len())
	}
}

func TestEvict(t *testing.T) {
	s := New()
	dir := t.TempDir()
	path := writeTestVolume(t, dir, "a.vol")

	first, _ := s.Load(path)
	s.Evict(path)
	if s.Len() != 0 {
		t.Errorf("Len after evict = %d, want 0", s.Len())
	}

	second, err := s.Load(path)
	if err != nil {
		t.Fatalf("Load after evict: %v", err)
	}
	if first == second {
		t.Error("load after evict returned the evicted instance")
	}
}
