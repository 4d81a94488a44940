// Package config loads engine settings from a YAML file and reconciles
// them with CLI flags. Flags win over the file; anything still unset falls
// back to a built-in default.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"volrender/internal/quality"
	"volrender/internal/render"
)

// Config holds all configurable paths and render settings.
type Config struct {
	// Paths
	VolumeDir string `yaml:"volume_dir"`
	OutputDir string `yaml:"output_dir"`

	// Render settings
	Width       int     `yaml:"width"`
	Height      int     `yaml:"height"`
	Mode        string  `yaml:"mode"`
	Quality     string  `yaml:"quality"`
	Colormap    string  `yaml:"colormap"`
	Plane       string  `yaml:"plane"`
	PlaneOffset float64 `yaml:"plane_offset"`

	// Contrast window in normalized units; zero means use the volume's own.
	WindowWidth float64 `yaml:"window_width"`
	WindowLevel float64 `yaml:"window_level"`

	// Output settings. Frames are rendered at Supersample times the output
	// size and filtered down before encoding.
	Supersample int `yaml:"supersample"`
	Workers     int `yaml:"workers"`

	// Server settings
	ServerAddr string `yaml:"server_addr"`
}

// Load reads a YAML config file. Fields not set in the file keep their
// zero values until Resolve fills them.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	return cfg, nil
}

// Flags holds CLI flag values that override config file settings.
type Flags struct {
	VolumeDir string
	OutputDir string
	Width     int
	Height    int
	Mode      string
	Quality   string
	Workers   int
}

// Resolve applies flag overrides and fills remaining empty fields with
// defaults.
func (c *Config) Resolve(flags Flags) {
	// CLI flags override config file
	if flags.VolumeDir != "" {
		c.VolumeDir = flags.VolumeDir
	}
	if flags.OutputDir != "" {
		c.OutputDir = flags.OutputDir
	}
	if flags.Width > 0 {
		c.Width = flags.Width
	}
	if flags.Height > 0 {
		c.Height = flags.Height
	}
	if flags.Mode != "" {
		c.Mode = flags.Mode
	}
	if flags.Quality != "" {
		c.Quality = flags.Quality
	}
	if flags.Workers > 0 {
		c.Workers = flags.Workers
	}

	if c.VolumeDir == "" {
		c.VolumeDir = "."
	}
	if c.OutputDir == "" {
		c.OutputDir = filepath.Join(c.VolumeDir, "renders")
	} else if !filepath.IsAbs(c.OutputDir) {
		c.OutputDir = filepath.Join(c.VolumeDir, c.OutputDir)
	}

	if c.Width <= 0 {
		c.Width = 512
	}
	if c.Height <= 0 {
		c.Height = c.Width
	}
	if c.Mode == "" {
		c.Mode = "volume"
	}
	if c.Quality == "" {
		c.Quality = "high"
	}
	if c.Colormap == "" {
		c.Colormap = "grayscale"
	}
	if c.Plane == "" {
		c.Plane = "axial"
	}
	if c.PlaneOffset <= 0 || c.PlaneOffset > 1 {
		c.PlaneOffset = 0.5
	}
	if c.Supersample <= 0 {
		c.Supersample = 2
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.ServerAddr == "" {
		c.ServerAddr = ":8080"
	}
}

// Validate checks the enum-valued fields after Resolve.
func (c *Config) Validate() error {
	if _, err := render.ParseMode(c.Mode); err != nil {
		return err
	}
	if _, err := quality.ParseLevel(c.Quality); err != nil {
		return err
	}
	if _, err := render.ParsePlane(c.Plane, c.PlaneOffset); err != nil {
		return err
	}
	return nil
}

// RenderMode returns the parsed mode; call after Validate.
func (c *Config) RenderMode() render.Mode {
	m, _ := render.ParseMode(c.Mode)
	return m
}

// QualityLevel returns the parsed quality tier; call after Validate.
func (c *Config) QualityLevel() quality.Level {
	l, _ := quality.ParseLevel(c.Quality)
	return l
}

// MPRPlane returns the parsed reconstruction plane; call after Validate.
func (c *Config) MPRPlane() render.Plane {
	p, _ := render.ParsePlane(c.Plane, c.PlaneOffset)
	return p
}
