// Package render is the engine core: it owns the GPU resource set, walks
// the pipeline state machine, and composes the per-frame draw from the
// camera, quality and transfer-function components.
package render

import (
	"errors"
	"fmt"
	"image"
	"log"

	"github.com/go-gl/mathgl/mgl64"

	"volrender/internal/camera"
	"volrender/internal/gpu"
	"volrender/internal/mesh"
	"volrender/internal/quality"
	"volrender/internal/transfer"
	"volrender/internal/volume"
)

// State is the pipeline lifecycle state.
type State int

const (
	StateUninitialized State = iota
	StateInitializing
	StateReady
	StateRendering
	StateDisposed
	StateError
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateRendering:
		return "rendering"
	case StateDisposed:
		return "disposed"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ErrDisposed is returned by operations on a disposed renderer that cannot
// be treated as no-ops.
var ErrDisposed = errors.New("render: renderer disposed")

// Default directional light for the shaded modes.
var defaultLightDir = mgl64.Vec3{0.4, 0.6, 0.7}.Normalize()

// Options configures a renderer instance.
type Options struct {
	Width   int
	Height  int
	Quality quality.Level
	// Tuning overrides the default adaptive configuration when non-zero.
	Tuning quality.Config
}

// Renderer owns one GPU device exclusively. It is not safe for concurrent
// use: rendering is frame-synchronous and the caller serializes frames.
type Renderer struct {
	dev   gpu.Device
	track *gpu.Tracker

	state State
	mode  Mode
	strat strategy

	cam    camera.Camera
	tuning quality.Config
	level  quality.Level
	// capped records a device-capability downgrade so later tier requests
	// cannot climb back past what the device supports.
	capped bool
	signal quality.Signals
	window volume.WindowLevel
	plane  Plane

	programs  map[Mode]gpu.ProgramID
	cubeBuf   gpu.BufferID
	meshBuf   gpu.BufferID
	volumeTex gpu.TextureID
	lutTex    gpu.TextureID

	dims   volume.Dims
	width  int
	height int
}

// New constructs a renderer over a device: initializes the context,
// compiles one program per mode, and uploads the bounding-cube geometry.
// Program compile/link failures are fatal and leave the renderer in the
// terminal error state.
func New(dev gpu.Device, opts Options) (*Renderer, error) {
	if opts.Width <= 0 {
		opts.Width = 512
	}
	if opts.Height <= 0 {
		opts.Height = opts.Width
	}
	tuning := opts.Tuning
	if tuning.BaseStep == [3]float64{} {
		tuning = quality.DefaultConfig()
	}

	r := &Renderer{
		dev:      dev,
		track:    gpu.NewTracker(dev),
		state:    StateInitializing,
		mode:     ModeVolume,
		strat:    strategies[ModeVolume],
		cam:      camera.Default(),
		tuning:   tuning,
		level:    opts.Quality,
		window:   volume.DefaultWindowLevel(),
		plane:    AxialPlane(0.5),
		programs: make(map[Mode]gpu.ProgramID),
		width:    opts.Width,
		height:   opts.Height,
	}

	if err := dev.Init(opts.Width, opts.Height); err != nil {
		r.state = StateError
		return nil, fmt.Errorf("render: device init: %w", err)
	}

	// Missing optional float-texture support is non-fatal: drop one
	// quality tier and continue with the device's fallback format.
	if caps := dev.Capabilities(); !caps.FloatTextures {
		downgraded := r.level.Downgrade()
		log.Printf("render: device lacks float textures, quality %s -> %s", r.level, downgraded)
		r.level = downgraded
		r.capped = true
	}

	for _, m := range []Mode{ModeVolume, ModeMIP, ModeSurface, ModeMPR} {
		id, err := r.track.CompileProgram(strategies[m].kind())
		if err != nil {
			r.track.DisposeAll()
			r.state = StateError
			return nil, err
		}
		r.programs[m] = id
	}

	cube := mesh.BoundingCube()
	cubeBuf, err := r.track.CreateMeshBuffer(gpu.MeshData{
		Positions: cube.Positions,
		Normals:   cube.Normals,
		Indices:   cube.Indices,
	}, "cube")
	if err != nil {
		r.track.DisposeAll()
		r.state = StateError
		return nil, fmt.Errorf("render: cube upload: %w", err)
	}
	r.cubeBuf = cubeBuf

	r.state = StateReady
	return r, nil
}

// State returns the current pipeline state.
func (r *Renderer) State() State { return r.state }

// Tracker exposes the lifecycle tracker, mainly for resource assertions.
func (r *Renderer) Tracker() *gpu.Tracker { return r.track }

// LoadVolume validates, normalizes and uploads a volume, replacing any
// prior volume texture. The old texture is disposed before the new one is
// created; a validation failure leaves the previous volume renderable.
func (r *Renderer) LoadVolume(v *volume.Volume) error {
	if r.state == StateDisposed {
		return ErrDisposed
	}
	if r.state != StateReady {
		return fmt.Errorf("render: load in state %s", r.state)
	}
	if err := v.Validate(); err != nil {
		return err
	}

	voxels := v.Normalize()

	r.track.ReleaseTexture(r.volumeTex)
	r.volumeTex = 0

	tex, err := r.track.CreateVolumeTexture(v.Dims.X, v.Dims.Y, v.Dims.Z, voxels)
	if err != nil {
		return fmt.Errorf("render: volume upload: %w", err)
	}
	r.volumeTex = tex
	r.dims = v.Dims
	r.window = v.Window.Normalized()

	// First load installs the default transfer function.
	if r.lutTex == 0 {
		if err := r.SetTransferFunction(transfer.Grayscale()); err != nil {
			return err
		}
	}
	return nil
}

// SetTransferFunction rebuilds the lookup table and replaces the LUT
// texture. Valid whenever the renderer is ready; programs and buffers are
// untouched.
func (r *Renderer) SetTransferFunction(f transfer.Func) error {
	if r.state == StateDisposed {
		return ErrDisposed
	}
	if r.state != StateReady {
		return fmt.Errorf("render: transfer function in state %s", r.state)
	}

	table := f.Build()

	r.track.ReleaseTexture(r.lutTex)
	r.lutTex = 0

	tex, err := r.track.CreateLUTTexture(table)
	if err != nil {
		return fmt.Errorf("render: lut upload: %w", err)
	}
	r.lutTex = tex
	return nil
}

// SetSurfaceMesh uploads the isosurface geometry the surface mode draws,
// replacing any prior mesh.
func (r *Renderer) SetSurfaceMesh(m *mesh.Mesh) error {
	if r.state == StateDisposed {
		return ErrDisposed
	}
	if r.state != StateReady {
		return fmt.Errorf("render: mesh in state %s", r.state)
	}
	if err := m.Validate(); err != nil {
		return err
	}

	r.track.ReleaseBuffer(r.meshBuf)
	r.meshBuf = 0

	buf, err := r.track.CreateMeshBuffer(gpu.MeshData{
		Positions: m.Positions,
		Normals:   m.Normals,
		Indices:   m.Indices,
	}, "surface")
	if err != nil {
		return fmt.Errorf("render: mesh upload: %w", err)
	}
	r.meshBuf = buf
	return nil
}

// SetMode switches the active strategy; takes effect on the next render.
func (r *Renderer) SetMode(m Mode) {
	if s, ok := strategies[m]; ok {
		r.mode = m
		r.strat = s
	}
}

// Mode returns the active mode.
func (r *Renderer) Mode() Mode { return r.mode }

// SetQualityLevel selects the quality tier for subsequent frames. On a
// capability-limited device the requested tier is downgraded the same way
// the initial tier was.
func (r *Renderer) SetQualityLevel(l quality.Level) {
	if r.capped {
		l = l.Downgrade()
	}
	r.level = l
}

// SetEnvironment installs the latest device/network constraint signals.
func (r *Renderer) SetEnvironment(s quality.Signals) { r.signal = s }

// SetWindowLevel overrides the contrast window.
func (r *Renderer) SetWindowLevel(w volume.WindowLevel) { r.window = w.Normalized() }

// SetMPRPlane selects the reconstruction plane for MPR mode.
func (r *Renderer) SetMPRPlane(p Plane) { r.plane = p }

// UpdateCamera merges a partial camera update and re-renders.
func (r *Renderer) UpdateCamera(d camera.Delta) {
	r.cam.Apply(d)
	r.rerender()
}

// Camera returns a copy of the current camera.
func (r *Renderer) Camera() camera.Camera { return r.cam }

// OrbitCamera rotates the camera about its target and re-renders.
func (r *Renderer) OrbitCamera(yaw, pitch float64) {
	r.cam.Orbit(yaw, pitch)
	r.rerender()
}

// DollyCamera scales the camera distance and re-renders.
func (r *Renderer) DollyCamera(factor float64) {
	r.cam.Dolly(factor)
	r.rerender()
}

func (r *Renderer) rerender() {
	if r.state == StateReady && r.strat.canDraw(r) {
		if err := r.Render(); err != nil {
			log.Printf("render: %v", err)
		}
	}
}

// Render draws one frame synchronously. It is a no-op unless the pipeline
// is ready and the active mode's resources are loaded.
func (r *Renderer) Render() error {
	if r.state != StateReady {
		return nil
	}
	if !r.strat.canDraw(r) {
		return nil
	}

	r.state = StateRendering
	defer func() { r.state = StateReady }()

	step := r.tuning.StepSize(r.level, r.signal)
	u := gpu.Uniforms{
		View:       r.cam.ViewMatrix(),
		Proj:       r.cam.ProjectionMatrix(float64(r.width) / float64(r.height)),
		CameraPos:  r.cam.Position,
		LightDir:   defaultLightDir,
		StepSize:   step,
		MaxSteps:   r.tuning.MaxSteps(step),
		Window:     r.window.Window,
		Level:      r.window.Level,
		VolumeDims: [3]int{r.dims.X, r.dims.Y, r.dims.Z},
	}
	r.strat.apply(r, &u)

	op := gpu.DrawOp{
		Program:  r.programs[r.mode],
		Kind:     r.strat.kind(),
		Volume:   r.volumeTex,
		LUT:      r.lutTex,
		Mesh:     r.strat.geometry(r),
		Uniforms: u,
	}
	return r.dev.Draw(op)
}

// Resize updates the output surface dimensions and re-renders. Must not be
// called while a frame is in flight.
func (r *Renderer) Resize(width, height int) {
	if r.state == StateDisposed || width <= 0 || height <= 0 {
		return
	}
	r.width = width
	r.height = height
	r.dev.Resize(width, height)
	r.rerender()
}

// Frame returns the last rendered frame.
func (r *Renderer) Frame() *image.NRGBA {
	if r.state == StateDisposed {
		return nil
	}
	return r.dev.ReadPixels()
}

// Dispose releases every GPU resource and enters the terminal state.
// Idempotent; release failures are logged, never raised.
func (r *Renderer) Dispose() {
	if r.state == StateDisposed {
		return
	}
	r.track.DisposeAll()
	r.volumeTex = 0
	r.lutTex = 0
	r.meshBuf = 0
	r.cubeBuf = 0
	r.programs = make(map[Mode]gpu.ProgramID)
	r.state = StateDisposed
}
