package render

import (
	"errors"
	"image"
	"testing"

	"volrender/internal/camera"
	"volrender/internal/gpu"
	"volrender/internal/mesh"
	"volrender/internal/quality"
	"volrender/internal/transfer"
	"volrender/internal/volume"
)

// fakeDevice records operations so pipeline behavior can be asserted
// without any real rendering.
type fakeDevice struct {
	nextID uint32

	textures map[gpu.TextureID]bool
	buffers  map[gpu.BufferID]bool
	programs map[gpu.ProgramID]gpu.ProgramKind

	draws   []gpu.DrawOp
	volDims [3]int

	caps        gpu.Capabilities
	compileFail gpu.ProgramKind
	failCompile bool
}

func newFake() *fakeDevice {
	return &fakeDevice{
		textures: make(map[gpu.TextureID]bool),
		buffers:  make(map[gpu.BufferID]bool),
		programs: make(map[gpu.ProgramID]gpu.ProgramKind),
		caps:     gpu.Capabilities{FloatTextures: true, MaxTexture3D: 512},
	}
}

func (f *fakeDevice) Init(w, h int) error        { return nil }
func (f *fakeDevice) Capabilities() gpu.Capabilities { return f.caps }
func (f *fakeDevice) Resize(w, h int)            {}

func (f *fakeDevice) CreateVolumeTexture(w, h, d int, voxels []float32) (gpu.TextureID, error) {
	f.nextID++
	id := gpu.TextureID(f.nextID)
	f.textures[id] = true
	f.volDims = [3]int{w, h, d}
	return id, nil
}

func (f *fakeDevice) CreateLUTTexture(table [256][4]float32) (gpu.TextureID, error) {
	f.nextID++
	id := gpu.TextureID(f.nextID)
	f.textures[id] = true
	return id, nil
}

func (f *fakeDevice) CreateMeshBuffer(m gpu.MeshData) (gpu.BufferID, error) {
	f.nextID++
	id := gpu.BufferID(f.nextID)
	f.buffers[id] = true
	return id, nil
}

func (f *fakeDevice) CompileProgram(kind gpu.ProgramKind) (gpu.ProgramID, error) {
	if f.failCompile && kind == f.compileFail {
		return 0, &gpu.ProgramError{Kind: kind, Stage: "compile", Log: "syntax error"}
	}
	f.nextID++
	id := gpu.ProgramID(f.nextID)
	f.programs[id] = kind
	return id, nil
}

func (f *fakeDevice) Draw(op gpu.DrawOp) error {
	f.draws = append(f.draws, op)
	return nil
}

func (f *fakeDevice) ReadPixels() *image.NRGBA {
	return image.NewNRGBA(image.Rect(0, 0, 1, 1))
}

func (f *fakeDevice) DestroyTexture(id gpu.TextureID) error {
	if !f.textures[id] {
		return errors.New("unknown texture")
	}
	delete(f.textures, id)
	return nil
}

func (f *fakeDevice) DestroyBuffer(id gpu.BufferID) error {
	if !f.buffers[id] {
		return errors.New("unknown buffer")
	}
	delete(f.buffers, id)
	return nil
}

func (f *fakeDevice) DestroyProgram(id gpu.ProgramID) error {
	if _, ok := f.programs[id]; !ok {
		return errors.New("unknown program")
	}
	delete(f.programs, id)
	return nil
}

func testVolume() *volume.Volume {
	return volume.NewUint8(volume.Dims{X: 2, Y: 2, Z: 2}, volume.Spacing{X: 1, Y: 1, Z: 1},
		[]uint8{0, 32, 64, 96, 128, 160, 192, 255})
}

func newTestRenderer(t *testing.T) (*Renderer, *fakeDevice) {
	t.Helper()
	dev := newFake()
	r, err := New(dev, Options{Width: 32, Height: 32, Quality: quality.High})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return r, dev
}

func TestNewCompilesAllPrograms(t *testing.T) {
	r, dev := newTestRenderer(t)

	if r.State() != StateReady {
		t.Fatalf("state = %s, want ready", r.State())
	}
	kinds := make(map[gpu.ProgramKind]bool)
	for _, k := range dev.programs {
		kinds[k] = true
	}
	for _, k := range []gpu.ProgramKind{gpu.ProgramVolume, gpu.ProgramMIP, gpu.ProgramSurface, gpu.ProgramMPR} {
		if !kinds[k] {
			t.Errorf("program %s not compiled", k)
		}
	}
}

func TestRenderNoopBeforeVolumeLoad(t *testing.T) {
	r, dev := newTestRenderer(t)

	if err := r.Render(); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if len(dev.draws) != 0 {
		t.Errorf("%d draws submitted with no volume loaded, want 0", len(dev.draws))
	}
}

func TestLoadVolumeEnablesRendering(t *testing.T) {
	r, dev := newTestRenderer(t)

	if err := r.LoadVolume(testVolume()); err != nil {
		t.Fatalf("LoadVolume: %v", err)
	}
	if err := r.Render(); err != nil {
		t.Fatalf("Render: %v", err)
	}

	if len(dev.draws) != 1 {
		t.Fatalf("draws = %d, want 1", len(dev.draws))
	}
	op := dev.draws[0]
	if op.Kind != gpu.ProgramVolume {
		t.Errorf("draw kind = %s, want volume", op.Kind)
	}
	if op.Volume == 0 || op.LUT == 0 {
		t.Error("draw submitted without volume/LUT textures")
	}
	if op.VolumeDims != [3]int{2, 2, 2} {
		t.Errorf("draw dims = %v, want volume dims", op.VolumeDims)
	}
	if op.StepSize != 0.002 {
		t.Errorf("step = %v, want high-tier base 0.002", op.StepSize)
	}
	if op.MaxSteps != 1000 {
		t.Errorf("max steps = %d, want 1000", op.MaxSteps)
	}
}

func TestReloadDisposesOldTexture(t *testing.T) {
	r, _ := newTestRenderer(t)

	for i := 0; i < 3; i++ {
		if err := r.LoadVolume(testVolume()); err != nil {
			t.Fatalf("LoadVolume %d: %v", i, err)
		}
		if got := r.Tracker().LiveTexturesLabeled("volume"); got != 1 {
			t.Fatalf("live volume textures after load %d = %d, want 1", i, got)
		}
	}
}

func TestReloadWithDifferentDims(t *testing.T) {
	r, dev := newTestRenderer(t)

	if err := r.LoadVolume(testVolume()); err != nil {
		t.Fatalf("LoadVolume: %v", err)
	}
	bigger := volume.NewUint8(volume.Dims{X: 4, Y: 3, Z: 2}, volume.Spacing{X: 1, Y: 1, Z: 1}, make([]uint8, 24))
	if err := r.LoadVolume(bigger); err != nil {
		t.Fatalf("LoadVolume reload: %v", err)
	}

	if dev.volDims != [3]int{4, 3, 2} {
		t.Errorf("uploaded texture dims = %v, want [4 3 2]", dev.volDims)
	}
	if got := r.Tracker().LiveTexturesLabeled("volume"); got != 1 {
		t.Fatalf("live volume textures after reload = %d, want 1", got)
	}
	if err := r.Render(); err != nil {
		t.Fatalf("Render: %v", err)
	}
	last := dev.draws[len(dev.draws)-1]
	if last.VolumeDims != [3]int{4, 3, 2} {
		t.Errorf("draw dims = %v, want reloaded dims", last.VolumeDims)
	}
}

func TestLoadInvalidVolumeKeepsPrevious(t *testing.T) {
	r, dev := newTestRenderer(t)

	if err := r.LoadVolume(testVolume()); err != nil {
		t.Fatalf("LoadVolume: %v", err)
	}
	before := r.Tracker().LiveTexturesLabeled("volume")

	bad := volume.NewUint8(volume.Dims{X: 4, Y: 4, Z: 4}, volume.Spacing{}, make([]uint8, 3))
	err := r.LoadVolume(bad)
	if !errors.Is(err, volume.ErrInvalidVolume) {
		t.Fatalf("LoadVolume error = %v, want ErrInvalidVolume", err)
	}

	if got := r.Tracker().LiveTexturesLabeled("volume"); got != before {
		t.Errorf("live volume textures = %d, want %d (previous kept)", got, before)
	}
	if err := r.Render(); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if len(dev.draws) == 0 {
		t.Error("previous volume no longer renderable after failed load")
	}
}

func TestSetTransferFunctionReplacesLUT(t *testing.T) {
	r, _ := newTestRenderer(t)

	if err := r.LoadVolume(testVolume()); err != nil {
		t.Fatalf("LoadVolume: %v", err)
	}
	if err := r.SetTransferFunction(transfer.CTBone()); err != nil {
		t.Fatalf("SetTransferFunction: %v", err)
	}
	if got := r.Tracker().LiveTexturesLabeled("lut"); got != 1 {
		t.Errorf("live LUT textures = %d, want 1", got)
	}
}

func TestSurfaceModeNeedsMesh(t *testing.T) {
	r, dev := newTestRenderer(t)

	r.SetMode(ModeSurface)
	if err := r.Render(); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if len(dev.draws) != 0 {
		t.Error("surface mode drew without a mesh")
	}

	if err := r.SetSurfaceMesh(mesh.BoundingCube()); err != nil {
		t.Fatalf("SetSurfaceMesh: %v", err)
	}
	if err := r.Render(); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if len(dev.draws) != 1 || dev.draws[0].Kind != gpu.ProgramSurface {
		t.Fatalf("draws = %v, want one surface draw", len(dev.draws))
	}
}

func TestMPRPlaneReachesUniforms(t *testing.T) {
	r, dev := newTestRenderer(t)

	if err := r.LoadVolume(testVolume()); err != nil {
		t.Fatalf("LoadVolume: %v", err)
	}
	r.SetMode(ModeMPR)
	r.SetMPRPlane(SagittalPlane(0.25))
	if err := r.Render(); err != nil {
		t.Fatalf("Render: %v", err)
	}

	op := dev.draws[len(dev.draws)-1]
	if op.PlaneNormal.X() != 1 || op.PlaneOffset != 0.25 {
		t.Errorf("plane uniforms = %v/%v, want sagittal at 0.25", op.PlaneNormal, op.PlaneOffset)
	}
}

func TestEnvironmentSignalsCoarsenStep(t *testing.T) {
	r, dev := newTestRenderer(t)

	if err := r.LoadVolume(testVolume()); err != nil {
		t.Fatalf("LoadVolume: %v", err)
	}
	r.SetQualityLevel(quality.Low)
	r.SetEnvironment(quality.Signals{LowBandwidth: true})
	if err := r.Render(); err != nil {
		t.Fatalf("Render: %v", err)
	}

	op := dev.draws[len(dev.draws)-1]
	if op.StepSize != 0.02 {
		t.Errorf("step = %v, want 0.02 (low tier doubled)", op.StepSize)
	}
}

func TestUpdateCameraTriggersRender(t *testing.T) {
	r, dev := newTestRenderer(t)

	if err := r.LoadVolume(testVolume()); err != nil {
		t.Fatalf("LoadVolume: %v", err)
	}

	fov := 60.0
	r.UpdateCamera(camera.Delta{FOV: &fov})
	if len(dev.draws) != 1 {
		t.Fatalf("draws after camera update = %d, want 1", len(dev.draws))
	}

	r.OrbitCamera(0.1, 0)
	r.DollyCamera(0.9)
	if len(dev.draws) != 3 {
		t.Errorf("draws after orbit+dolly = %d, want 3", len(dev.draws))
	}
}

func TestCameraUpdateBeforeLoadDoesNotDraw(t *testing.T) {
	r, dev := newTestRenderer(t)

	r.OrbitCamera(0.5, 0.5)
	if len(dev.draws) != 0 {
		t.Errorf("draws = %d, want 0 with no volume", len(dev.draws))
	}
}

func TestDisposeIdempotent(t *testing.T) {
	r, dev := newTestRenderer(t)

	if err := r.LoadVolume(testVolume()); err != nil {
		t.Fatalf("LoadVolume: %v", err)
	}

	r.Dispose()
	if r.State() != StateDisposed {
		t.Fatalf("state = %s, want disposed", r.State())
	}
	if len(dev.textures) != 0 || len(dev.buffers) != 0 || len(dev.programs) != 0 {
		t.Error("device objects leaked after dispose")
	}

	r.Dispose() // second call is a no-op

	if err := r.LoadVolume(testVolume()); !errors.Is(err, ErrDisposed) {
		t.Errorf("LoadVolume after dispose = %v, want ErrDisposed", err)
	}
	if r.Frame() != nil {
		t.Error("Frame after dispose should be nil")
	}
}

func TestProgramFailureIsTerminal(t *testing.T) {
	dev := newFake()
	dev.failCompile = true
	dev.compileFail = gpu.ProgramSurface

	_, err := New(dev, Options{Width: 16, Height: 16})
	if err == nil {
		t.Fatal("New should fail when a program cannot compile")
	}
	var perr *gpu.ProgramError
	if !errors.As(err, &perr) {
		t.Fatalf("error = %v, want ProgramError", err)
	}
	if perr.Kind != gpu.ProgramSurface {
		t.Errorf("failed kind = %s, want surface", perr.Kind)
	}

	// Everything created before the failure is released.
	if len(dev.textures) != 0 || len(dev.buffers) != 0 || len(dev.programs) != 0 {
		t.Error("device objects leaked after failed init")
	}
}

func TestCapabilityDowngrade(t *testing.T) {
	dev := newFake()
	dev.caps.FloatTextures = false

	r, err := New(dev, Options{Width: 16, Height: 16, Quality: quality.High})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := r.LoadVolume(testVolume()); err != nil {
		t.Fatalf("LoadVolume: %v", err)
	}
	if err := r.Render(); err != nil {
		t.Fatalf("Render: %v", err)
	}

	op := dev.draws[len(dev.draws)-1]
	if op.StepSize != 0.005 {
		t.Errorf("step = %v, want medium-tier 0.005 after downgrade", op.StepSize)
	}

	// A later tier request cannot climb back past the device limit.
	r.SetQualityLevel(quality.High)
	if err := r.Render(); err != nil {
		t.Fatalf("Render: %v", err)
	}
	op = dev.draws[len(dev.draws)-1]
	if op.StepSize != 0.005 {
		t.Errorf("step after re-raising tier = %v, want 0.005 still", op.StepSize)
	}
	r.SetQualityLevel(quality.Low)
	if err := r.Render(); err != nil {
		t.Fatalf("Render: %v", err)
	}
	op = dev.draws[len(dev.draws)-1]
	if op.StepSize != 0.01 {
		t.Errorf("step at low tier = %v, want 0.01", op.StepSize)
	}
}
