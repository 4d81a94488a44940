// Package softgpu is the software reference device: it executes the four
// mode programs on the CPU against the same Device interface the OpenGL
// backend implements. It exists for headless rendering (batch previews,
// the streaming server) and makes the whole pipeline testable without a GL
// context.
package softgpu

import (
	"fmt"
	"image"

	"volrender/internal/gpu"
)

// Device is a self-contained software rasterizer/ray marcher.
type Device struct {
	width  int
	height int
	fb     *framebuffer

	nextID   uint32
	volumes  map[gpu.TextureID]*volumeTexture
	luts     map[gpu.TextureID]*[256][4]float32
	meshes   map[gpu.BufferID]*gpu.MeshData
	programs map[gpu.ProgramID]gpu.ProgramKind
}

// New returns an uninitialized device; call Init before drawing.
func New() *Device {
	return &Device{
		volumes:  make(map[gpu.TextureID]*volumeTexture),
		luts:     make(map[gpu.TextureID]*[256][4]float32),
		meshes:   make(map[gpu.BufferID]*gpu.MeshData),
		programs: make(map[gpu.ProgramID]gpu.ProgramKind),
	}
}

// Init allocates the output framebuffer.
func (d *Device) Init(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("softgpu: invalid surface size %dx%d", width, height)
	}
	d.width = width
	d.height = height
	d.fb = newFramebuffer(width, height)
	return nil
}

// Capabilities: the software path has no format restrictions.
func (d *Device) Capabilities() gpu.Capabilities {
	return gpu.Capabilities{FloatTextures: true, MaxTexture3D: 2048}
}

func (d *Device) allocID() uint32 {
	d.nextID++
	return d.nextID
}

// CreateVolumeTexture stores normalized voxels for trilinear sampling.
func (d *Device) CreateVolumeTexture(w, h, depth int, voxels []float32) (gpu.TextureID, error) {
	if w <= 0 || h <= 0 || depth <= 0 {
		return 0, fmt.Errorf("softgpu: invalid texture dims %dx%dx%d", w, h, depth)
	}
	if len(voxels) != w*h*depth {
		return 0, fmt.Errorf("softgpu: %d voxels for %dx%dx%d texture", len(voxels), w, h, depth)
	}
	id := gpu.TextureID(d.allocID())
	data := make([]float32, len(voxels))
	copy(data, voxels)
	d.volumes[id] = &volumeTexture{w: w, h: h, d: depth, data: data}
	return id, nil
}

// CreateLUTTexture stores a transfer-function table.
func (d *Device) CreateLUTTexture(table [256][4]float32) (gpu.TextureID, error) {
	id := gpu.TextureID(d.allocID())
	t := table
	d.luts[id] = &t
	return id, nil
}

// CreateMeshBuffer stores indexed geometry.
func (d *Device) CreateMeshBuffer(m gpu.MeshData) (gpu.BufferID, error) {
	if len(m.Indices)%3 != 0 {
		return 0, fmt.Errorf("softgpu: index count %d not a multiple of 3", len(m.Indices))
	}
	id := gpu.BufferID(d.allocID())
	cp := gpu.MeshData{
		Positions: append([]float32(nil), m.Positions...),
		Normals:   append([]float32(nil), m.Normals...),
		Indices:   append([]uint32(nil), m.Indices...),
	}
	d.meshes[id] = &cp
	return id, nil
}

// CompileProgram registers a mode program. Software programs cannot fail to
// compile; the handle just selects the execution path in Draw.
func (d *Device) CompileProgram(kind gpu.ProgramKind) (gpu.ProgramID, error) {
	switch kind {
	case gpu.ProgramVolume, gpu.ProgramMIP, gpu.ProgramSurface, gpu.ProgramMPR:
	default:
		return 0, &gpu.ProgramError{Kind: kind, Stage: "compile", Log: "unknown program kind"}
	}
	id := gpu.ProgramID(d.allocID())
	d.programs[id] = kind
	return id, nil
}

// Draw executes one frame synchronously.
func (d *Device) Draw(op gpu.DrawOp) error {
	if d.fb == nil {
		return fmt.Errorf("softgpu: draw before init")
	}
	kind, ok := d.programs[op.Program]
	if !ok {
		return fmt.Errorf("softgpu: unknown program %d", op.Program)
	}

	d.fb.clear(0, 0, 0)

	switch kind {
	case gpu.ProgramVolume, gpu.ProgramMIP:
		vol, ok := d.volumes[op.Volume]
		if !ok {
			return fmt.Errorf("softgpu: unknown volume texture %d", op.Volume)
		}
		lut, ok := d.luts[op.LUT]
		if !ok {
			return fmt.Errorf("softgpu: unknown lut texture %d", op.LUT)
		}
		d.drawMarched(kind, vol, lut, op.Uniforms)

	case gpu.ProgramMPR:
		vol, ok := d.volumes[op.Volume]
		if !ok {
			return fmt.Errorf("softgpu: unknown volume texture %d", op.Volume)
		}
		lut, ok := d.luts[op.LUT]
		if !ok {
			return fmt.Errorf("softgpu: unknown lut texture %d", op.LUT)
		}
		d.drawMPR(vol, lut, op.Uniforms)

	case gpu.ProgramSurface:
		m, ok := d.meshes[op.Mesh]
		if !ok {
			return fmt.Errorf("softgpu: unknown mesh buffer %d", op.Mesh)
		}
		d.drawSurface(m, op.Uniforms)
	}
	return nil
}

// Resize reallocates the output framebuffer.
func (d *Device) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	d.width = width
	d.height = height
	d.fb = newFramebuffer(width, height)
}

// ReadPixels copies the framebuffer into an NRGBA image.
func (d *Device) ReadPixels() *image.NRGBA {
	if d.fb == nil {
		return nil
	}
	img := image.NewNRGBA(image.Rect(0, 0, d.width, d.height))
	copy(img.Pix, d.fb.color)
	return img
}

// DestroyTexture releases a volume or LUT texture.
func (d *Device) DestroyTexture(id gpu.TextureID) error {
	if _, ok := d.volumes[id]; ok {
		delete(d.volumes, id)
		return nil
	}
	if _, ok := d.luts[id]; ok {
		delete(d.luts, id)
		return nil
	}
	return fmt.Errorf("softgpu: destroy unknown texture %d", id)
}

// DestroyBuffer releases a mesh buffer.
func (d *Device) DestroyBuffer(id gpu.BufferID) error {
	if _, ok := d.meshes[id]; !ok {
		return fmt.Errorf("softgpu: destroy unknown buffer %d", id)
	}
	delete(d.meshes, id)
	return nil
}

// DestroyProgram releases a program.
func (d *Device) DestroyProgram(id gpu.ProgramID) error {
	if _, ok := d.programs[id]; !ok {
		return fmt.Errorf("softgpu: destroy unknown program %d", id)
	}
	delete(d.programs, id)
	return nil
}
