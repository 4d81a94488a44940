package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"volrender/internal/batch"
	"volrender/internal/config"
	"volrender/internal/transfer"
	"volrender/internal/volume"
)

func main() {
	// CLI flags
	configFile := flag.String("config", "", "Path to config.yaml file")
	volumeFile := flag.String("volume", "", "Render a single volume file instead of a directory")
	volumeDir := flag.String("data", "", "Directory of volume files to render")
	outputDir := flag.String("output", "", "Output directory (default: <data>/renders)")
	width := flag.Int("width", 0, "Output width in pixels (default: 512)")
	height := flag.Int("height", 0, "Output height (default: width)")
	mode := flag.String("mode", "", "Rendering mode: volume, mip, surface, mpr")
	qualityFlag := flag.String("quality", "", "Quality tier: low, medium, high")
	workers := flag.Int("workers", 0, "Number of worker goroutines (default: NumCPU)")
	testN := flag.Int("test", 0, "Render only first N volumes for testing")

	flag.Parse()

	// Load config
	var cfg config.Config
	if *configFile != "" {
		var err error
		cfg, err = config.Load(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
	}

	// CLI flags override config file
	cfg.Resolve(config.Flags{
		VolumeDir: *volumeDir,
		OutputDir: *outputDir,
		Width:     *width,
		Height:    *height,
		Mode:      *mode,
		Quality:   *qualityFlag,
		Workers:   *workers,
	})
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	tf, err := transfer.Preset(cfg.Colormap)
	if err != nil {
		// Not a preset name; try decoding a colormap strip image.
		tf, err = transfer.LoadColormap(cfg.Colormap)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: colormap %q: %v\n", cfg.Colormap, err)
			os.Exit(1)
		}
	}

	// Collect volumes
	var paths []string
	if *volumeFile != "" {
		paths = []string{*volumeFile}
	} else {
		entries, err := os.ReadDir(cfg.VolumeDir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading %s: %v\n", cfg.VolumeDir, err)
			os.Exit(1)
		}
		for _, e := range entries {
			if !e.IsDir() && volume.IsRawFile(e.Name()) {
				paths = append(paths, filepath.Join(cfg.VolumeDir, e.Name()))
			}
		}
		sort.Strings(paths)
	}

	// Limit for testing
	if *testN > 0 && *testN < len(paths) {
		paths = paths[:*testN]
	}

	if len(paths) == 0 {
		fmt.Println("No volumes to render.")
		os.Exit(0)
	}

	fmt.Printf("Volume renderer (%s mode, %s quality)\n", cfg.Mode, cfg.Quality)
	fmt.Printf("Volumes: %d, Workers: %d\n", len(paths), cfg.Workers)
	fmt.Printf("Output: %s\n", cfg.OutputDir)
	fmt.Println("------------------------------------------------------------")

	start := time.Now()

	results := batch.Run(batch.Config{
		OutputDir:   cfg.OutputDir,
		Width:       cfg.Width,
		Height:      cfg.Height,
		Mode:        cfg.RenderMode(),
		Quality:     cfg.QualityLevel(),
		Transfer:    tf,
		Plane:       cfg.MPRPlane(),
		Supersample: cfg.Supersample,
		Workers:     cfg.Workers,
	}, paths)

	elapsed := time.Since(start)
	fmt.Println("------------------------------------------------------------")
	fmt.Printf("Done in %.1fs\n", elapsed.Seconds())

	// Count results
	success, failed := 0, 0
	var errors []batch.Result
	for _, r := range results {
		if r.Success {
			success++
		} else {
			failed++
			errors = append(errors, r)
		}
	}

	fmt.Printf("Rendered: %d/%d\n", success, len(paths))

	if len(errors) > 0 {
		fmt.Printf("\nFailed (%d):\n", failed)
		limit := 20
		if len(errors) < limit {
			limit = len(errors)
		}
		for _, e := range errors[:limit] {
			fmt.Printf("  %s: %s\n", filepath.Base(e.Path), e.Error)
		}
	}

	// Write manifest
	manifestPath := filepath.Join(cfg.OutputDir, "manifest.json")
	os.MkdirAll(cfg.OutputDir, 0755)
	if err := batch.WriteManifest(manifestPath, results); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: manifest write failed: %v\n", err)
	} else {
		fmt.Printf("Manifest: %s\n", manifestPath)
	}

	if failed > 0 {
		os.Exit(1)
	}
}
