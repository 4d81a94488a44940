package gpu

import "log"

// Tracker wraps a Device and records every live object it hands out, so the
// pipeline can guarantee dispose-before-replace on reload and a full sweep
// on teardown. Disposal is best-effort: device release failures are logged,
// never raised, so cleanup cannot block a teardown sequence.
type Tracker struct {
	dev  Device
	logf func(format string, args ...any)

	textures map[TextureID]string
	buffers  map[BufferID]string
	programs map[ProgramID]string
}

// NewTracker wraps a device. Logging goes to the standard logger.
func NewTracker(dev Device) *Tracker {
	return &Tracker{
		dev:      dev,
		logf:     log.Printf,
		textures: make(map[TextureID]string),
		buffers:  make(map[BufferID]string),
		programs: make(map[ProgramID]string),
	}
}

// SetLogf redirects disposal-failure logging.
func (t *Tracker) SetLogf(logf func(format string, args ...any)) {
	t.logf = logf
}

// CreateVolumeTexture uploads and registers a volume texture.
func (t *Tracker) CreateVolumeTexture(w, h, d int, voxels []float32) (TextureID, error) {
	id, err := t.dev.CreateVolumeTexture(w, h, d, voxels)
	if err != nil {
		return 0, err
	}
	t.textures[id] = "volume"
	return id, nil
}

// CreateLUTTexture uploads and registers a transfer-function texture.
func (t *Tracker) CreateLUTTexture(table [256][4]float32) (TextureID, error) {
	id, err := t.dev.CreateLUTTexture(table)
	if err != nil {
		return 0, err
	}
	t.textures[id] = "lut"
	return id, nil
}

// CreateMeshBuffer uploads and registers mesh geometry.
func (t *Tracker) CreateMeshBuffer(m MeshData, label string) (BufferID, error) {
	id, err := t.dev.CreateMeshBuffer(m)
	if err != nil {
		return 0, err
	}
	t.buffers[id] = label
	return id, nil
}

// CompileProgram compiles and registers a mode program.
func (t *Tracker) CompileProgram(kind ProgramKind) (ProgramID, error) {
	id, err := t.dev.CompileProgram(kind)
	if err != nil {
		return 0, err
	}
	t.programs[id] = kind.String()
	return id, nil
}

// ReleaseTexture disposes a texture. The null handle is a no-op.
func (t *Tracker) ReleaseTexture(id TextureID) {
	if id == 0 {
		return
	}
	label := t.textures[id]
	delete(t.textures, id)
	if err := t.dev.DestroyTexture(id); err != nil {
		t.logf("gpu: release %s texture %d: %v", label, id, err)
	}
}

// ReleaseBuffer disposes a mesh buffer. The null handle is a no-op.
func (t *Tracker) ReleaseBuffer(id BufferID) {
	if id == 0 {
		return
	}
	label := t.buffers[id]
	delete(t.buffers, id)
	if err := t.dev.DestroyBuffer(id); err != nil {
		t.logf("gpu: release %s buffer %d: %v", label, id, err)
	}
}

// ReleaseProgram disposes a program. The null handle is a no-op.
func (t *Tracker) ReleaseProgram(id ProgramID) {
	if id == 0 {
		return
	}
	label := t.programs[id]
	delete(t.programs, id)
	if err := t.dev.DestroyProgram(id); err != nil {
		t.logf("gpu: release %s program %d: %v", label, id, err)
	}
}

// DisposeAll releases every tracked object. Idempotent: a second call finds
// nothing to release.
func (t *Tracker) DisposeAll() {
	for id := range t.textures {
		t.ReleaseTexture(id)
	}
	for id := range t.buffers {
		t.ReleaseBuffer(id)
	}
	for id := range t.programs {
		t.ReleaseProgram(id)
	}
}

// LiveTextures returns the count of undisposed textures.
func (t *Tracker) LiveTextures() int { return len(t.textures) }

// LiveTexturesLabeled returns the count of undisposed textures with the
// given label ("volume" or "lut").
func (t *Tracker) LiveTexturesLabeled(label string) int {
	n := 0
	for _, l := range t.textures {
		if l == label {
			n++
		}
	}
	return n
}

// LiveBuffers returns the count of undisposed mesh buffers.
func (t *Tracker) LiveBuffers() int { return len(t.buffers) }

// LivePrograms returns the count of undisposed programs.
func (t *Tracker) LivePrograms() int { return len(t.programs) }
