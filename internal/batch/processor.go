// Package batch renders preview images for a directory of volumes using a
// worker pool. Each worker owns a private software renderer; GPU resources
// are never shared across goroutines.
package batch

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"volrender/internal/export"
	"volrender/internal/gpu/softgpu"
	"volrender/internal/quality"
	"volrender/internal/render"
	"volrender/internal/transfer"
	"volrender/internal/volume"
)

// Config holds the shared settings for a batch run.
type Config struct {
	OutputDir string
	Width     int
	Height    int
	Mode      render.Mode
	Quality   quality.Level
	Transfer  transfer.Func
	Plane     render.Plane
	// Supersample > 1 renders at a multiple of the output size and filters
	// the frame down before encoding.
	Supersample int
	Workers     int
}

// Result holds the outcome of rendering one volume.
type Result struct {
	Path    string
	Image   string
	Success bool
	Error   string
}

// Run renders every listed volume file using a worker pool.
func Run(cfg Config, paths []string) []Result {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.Supersample < 1 {
		cfg.Supersample = 1
	}

	total := len(paths)
	results := make([]Result, total)
	var processed atomic.Int64

	start := time.Now()

	// Progress reporter
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				p := processed.Load()
				if p > 0 {
					elapsed := time.Since(start).Seconds()
					rate := float64(p) / elapsed
					fmt.Printf("  [%d/%d] %.1f volumes/sec\n", p, total, rate)
				}
			}
		}
	}()

	// Worker pool
	pathChan := make(chan int, cfg.Workers*2)
	var wg sync.WaitGroup

	for w := 0; w < cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			r, err := render.New(softgpu.New(), render.Options{
				Width:   cfg.Width * cfg.Supersample,
				Height:  cfg.Height * cfg.Supersample,
				Quality: cfg.Quality,
			})
			if err != nil {
				for idx := range pathChan {
					results[idx] = Result{Path: paths[idx], Error: err.Error()}
					processed.Add(1)
				}
				return
			}
			defer r.Dispose()

			r.SetMode(cfg.Mode)
			r.SetMPRPlane(cfg.Plane)

			for idx := range pathChan {
				results[idx] = processVolume(r, cfg, paths[idx])
				processed.Add(1)
			}
		}()
	}

	// Send work
	for i := range paths {
		pathChan <- i
	}
	close(pathChan)

	wg.Wait()
	close(done)

	return results
}

func processVolume(r *render.Renderer, cfg Config, path string) Result {
	vol, err := volume.ReadFile(path)
	if err != nil {
		return Result{Path: path, Error: err.Error()}
	}

	if err := r.LoadVolume(vol); err != nil {
		return Result{Path: path, Error: err.Error()}
	}
	if len(cfg.Transfer.Points) > 0 {
		if err := r.SetTransferFunction(cfg.Transfer); err != nil {
			return Result{Path: path, Error: err.Error()}
		}
	}

	if err := r.Render(); err != nil {
		return Result{Path: path, Error: err.Error()}
	}

	frame := r.Frame()
	if cfg.Supersample > 1 {
		frame = export.Downsample(frame, cfg.Width, cfg.Height)
	}

	img := outputName(path)
	outPath := filepath.Join(cfg.OutputDir, img)
	if err := export.WriteWebP(outPath, frame); err != nil {
		return Result{Path: path, Error: err.Error()}
	}

	return Result{Path: path, Image: img, Success: true}
}

func outputName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base)) + ".webp"
}
