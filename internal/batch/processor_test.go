package batch

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"volrender/internal/quality"
	"volrender/internal/render"
	"volrender/internal/volume"
)

func writeVolumes(t *testing.T, dir string, names ...string) []string {
	t.Helper()
	paths := make([]string, 0, len(names))
	for _, name := range names {
		data := make([]uint8, 4*4*4)
		for i := range data {
			data[i] = 180
		}
		v := volume.NewUint8(volume.Dims{X: 4, Y: 4, Z: 4}, volume.Spacing{X: 1, Y: 1, Z: 1}, data)
		path := filepath.Join(dir, name)
		if err := volume.WriteFile(path, v); err != nil {
			t.Fatalf("WriteFile %s: %v", name, err)
		}
		paths = append(paths, path)
	}
	return paths
}

func TestRunRendersAllVolumes(t *testing.T) {
	dir := t.TempDir()
	outDir := filepath.Join(dir, "out")
	paths := writeVolumes(t, dir, "a.vol", "b.vol", "c.vol")

	results := Run(Config{
		OutputDir: outDir,
		Width:     16,
		Height:    16,
		Mode:      render.ModeMIP,
		Quality:   quality.Low,
		Workers:   2,
	}, paths)

	if len(results) != 3 {
		t.Fatalf("results = %d, want 3", len(results))
	}
	for _, r := range results {
		if !r.Success {
			t.Errorf("%s failed: %s", r.Path, r.Error)
			continue
		}
		if _, err := os.Stat(filepath.Join(outDir, r.Image)); err != nil {
			t.Errorf("output %s missing: %v", r.Image, err)
		}
	}
}

func TestRunSupersampled(t *testing.T) {
	dir := t.TempDir()
	outDir := filepath.Join(dir, "out")
	paths := writeVolumes(t, dir, "a.vol")

	results := Run(Config{
		OutputDir:   outDir,
		Width:       8,
		Height:      8,
		Mode:        render.ModeMIP,
		Quality:     quality.Low,
		Supersample: 2,
		Workers:     1,
	}, paths)

	if !results[0].Success {
		t.Fatalf("supersampled render failed: %s", results[0].Error)
	}
	if _, err := os.Stat(filepath.Join(outDir, results[0].Image)); err != nil {
		t.Errorf("output missing: %v", err)
	}
}

func TestRunClampsZeroWorkers(t *testing.T) {
	dir := t.TempDir()
	paths := writeVolumes(t, dir, "a.vol")

	// Workers: 0 must not deadlock the sender; Run falls back to one worker.
	results := Run(Config{
		OutputDir: filepath.Join(dir, "out"),
		Width:     8,
		Height:    8,
		Mode:      render.ModeMIP,
		Quality:   quality.Low,
	}, paths)

	if len(results) != 1 || !results[0].Success {
		t.Fatalf("results = %+v, want one success", results)
	}
}

func TestRunReportsBrokenVolume(t *testing.T) {
	dir := t.TempDir()
	paths := writeVolumes(t, dir, "good.vol")

	broken := filepath.Join(dir, "broken.vol")
	if err := os.WriteFile(broken, []byte("junk"), 0644); err != nil {
		t.Fatal(err)
	}
	paths = append(paths, broken)

	results := Run(Config{
		OutputDir: filepath.Join(dir, "out"),
		Width:     8,
		Height:    8,
		Mode:      render.ModeVolume,
		Quality:   quality.Low,
		Workers:   1,
	}, paths)

	if !results[0].Success {
		t.Errorf("good volume failed: %s", results[0].Error)
	}
	if results[1].Success || results[1].Error == "" {
		t.Error("broken volume should fail with an error message")
	}
}

func TestWriteManifest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "manifest.json")

	results := []Result{
		{Path: "/data/a.vol", Image: "a.webp", Success: true},
		{Path: "/data/b.vol", Error: "decode failed"},
	}
	if err := WriteManifest(path, results); err != nil {
		t.Fatalf("WriteManifest: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var entries []ManifestEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		t.Fatalf("manifest is not valid JSON: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	if entries[0].Volume != "a.vol" || !entries[0].Success {
		t.Errorf("entry 0 = %+v", entries[0])
	}
	if entries[1].Error != "decode failed" || entries[1].Success {
		t.Errorf("entry 1 = %+v", entries[1])
	}
}
