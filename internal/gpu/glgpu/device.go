// Package glgpu is the OpenGL 4.1 core backend. It assumes the owning
// thread holds a current GL context (the viewer creates one via GLFW) and
// implements the same device contract as softgpu, with one GLSL program
// per rendering mode.
package glgpu

import (
	"fmt"
	"image"
	"strings"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl64"

	"volrender/internal/gpu"
)

// Device drives one exclusive GL context.
type Device struct {
	width  int
	height int

	textures map[gpu.TextureID]uint32 // texture name -> target
	buffers  map[gpu.BufferID]*glMesh
	programs map[gpu.ProgramID]gpu.ProgramKind

	// emptyVAO backs attribute-less fullscreen draws (MPR).
	emptyVAO uint32

	caps gpu.Capabilities
}

type glMesh struct {
	vao, vbo, ebo uint32
	indexCount    int32
}

// New returns an uninitialized device; Init requires a current GL context.
func New() *Device {
	return &Device{
		textures: make(map[gpu.TextureID]uint32),
		buffers:  make(map[gpu.BufferID]*glMesh),
		programs: make(map[gpu.ProgramID]gpu.ProgramKind),
	}
}

// Init loads the GL function pointers and probes capabilities. Failing to
// initialize GL is fatal for the renderer.
func (d *Device) Init(width, height int) error {
	if err := gl.Init(); err != nil {
		return fmt.Errorf("glgpu: gl init: %w", err)
	}
	d.width = width
	d.height = height

	var max3D int32
	gl.GetIntegerv(gl.MAX_3D_TEXTURE_SIZE, &max3D)
	d.caps = gpu.Capabilities{
		// 4.1 core guarantees float texture formats.
		FloatTextures: true,
		MaxTexture3D:  int(max3D),
	}

	gl.GenVertexArrays(1, &d.emptyVAO)
	gl.ClearColor(0, 0, 0, 1)
	return nil
}

func (d *Device) Capabilities() gpu.Capabilities { return d.caps }

// CreateVolumeTexture uploads voxels as a single-channel float 3D texture
// with clamp-to-edge addressing and linear filtering.
func (d *Device) CreateVolumeTexture(w, h, depth int, voxels []float32) (gpu.TextureID, error) {
	if len(voxels) != w*h*depth {
		return 0, fmt.Errorf("glgpu: %d voxels for %dx%dx%d texture", len(voxels), w, h, depth)
	}
	if m := d.caps.MaxTexture3D; m > 0 && (w > m || h > m || depth > m) {
		return 0, fmt.Errorf("glgpu: volume %dx%dx%d exceeds device limit %d", w, h, depth, m)
	}

	var tex uint32
	gl.GenTextures(1, &tex)
	gl.BindTexture(gl.TEXTURE_3D, tex)
	gl.TexParameteri(gl.TEXTURE_3D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_3D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_3D, gl.TEXTURE_WRAP_R, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_3D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_3D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexImage3D(gl.TEXTURE_3D, 0, gl.R32F,
		int32(w), int32(h), int32(depth), 0, gl.RED, gl.FLOAT, gl.Ptr(voxels))
	gl.BindTexture(gl.TEXTURE_3D, 0)

	id := gpu.TextureID(tex)
	d.textures[id] = gl.TEXTURE_3D
	return id, nil
}

// CreateLUTTexture uploads the transfer-function table as a 256-entry 1D
// RGBA float texture.
func (d *Device) CreateLUTTexture(table [256][4]float32) (gpu.TextureID, error) {
	flat := make([]float32, 0, 256*4)
	for _, e := range table {
		flat = append(flat, e[0], e[1], e[2], e[3])
	}

	var tex uint32
	gl.GenTextures(1, &tex)
	gl.BindTexture(gl.TEXTURE_1D, tex)
	gl.TexParameteri(gl.TEXTURE_1D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_1D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_1D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexImage1D(gl.TEXTURE_1D, 0, gl.RGBA32F, 256, 0, gl.RGBA, gl.FLOAT, gl.Ptr(flat))
	gl.BindTexture(gl.TEXTURE_1D, 0)

	id := gpu.TextureID(tex)
	d.textures[id] = gl.TEXTURE_1D
	return id, nil
}

// CreateMeshBuffer uploads interleaved position/normal attributes and a
// triangle index list into a VAO.
func (d *Device) CreateMeshBuffer(m gpu.MeshData) (gpu.BufferID, error) {
	nv := len(m.Positions) / 3
	if nv == 0 || len(m.Normals) != len(m.Positions) {
		return 0, fmt.Errorf("glgpu: mesh with %d positions, %d normals", len(m.Positions), len(m.Normals))
	}

	interleaved := make([]float32, 0, nv*6)
	for i := 0; i < nv; i++ {
		interleaved = append(interleaved,
			m.Positions[i*3], m.Positions[i*3+1], m.Positions[i*3+2],
			m.Normals[i*3], m.Normals[i*3+1], m.Normals[i*3+2])
	}

	gm := &glMesh{indexCount: int32(len(m.Indices))}
	gl.GenVertexArrays(1, &gm.vao)
	gl.BindVertexArray(gm.vao)

	gl.GenBuffers(1, &gm.vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, gm.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(interleaved)*4, gl.Ptr(interleaved), gl.STATIC_DRAW)

	gl.GenBuffers(1, &gm.ebo)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, gm.ebo)
	gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(m.Indices)*4, gl.Ptr(m.Indices), gl.STATIC_DRAW)

	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointerWithOffset(0, 3, gl.FLOAT, false, 6*4, 0)
	gl.EnableVertexAttribArray(1)
	gl.VertexAttribPointerWithOffset(1, 3, gl.FLOAT, false, 6*4, 3*4)

	gl.BindVertexArray(0)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, 0)

	id := gpu.BufferID(gm.vao)
	d.buffers[id] = gm
	return id, nil
}

// CompileProgram compiles and links one mode's GLSL program. Failures are
// structured and fatal; the pipeline does not retry.
func (d *Device) CompileProgram(kind gpu.ProgramKind) (gpu.ProgramID, error) {
	src, ok := programSources[kind]
	if !ok {
		return 0, &gpu.ProgramError{Kind: kind, Stage: "compile", Log: "no sources for kind"}
	}

	vert, err := compileShader(kind, src.vertex, gl.VERTEX_SHADER)
	if err != nil {
		return 0, err
	}
	defer gl.DeleteShader(vert)

	frag, err := compileShader(kind, src.fragment, gl.FRAGMENT_SHADER)
	if err != nil {
		return 0, err
	}
	defer gl.DeleteShader(frag)

	program := gl.CreateProgram()
	gl.AttachShader(program, vert)
	gl.AttachShader(program, frag)
	gl.LinkProgram(program)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		log := programInfoLog(program)
		gl.DeleteProgram(program)
		return 0, &gpu.ProgramError{Kind: kind, Stage: "link", Log: log}
	}

	id := gpu.ProgramID(program)
	d.programs[id] = kind
	return id, nil
}

func compileShader(kind gpu.ProgramKind, source string, shaderType uint32) (uint32, error) {
	shader := gl.CreateShader(shaderType)
	csources, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)
		infoLog := strings.Repeat("\x00", int(logLength)+1)
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(infoLog))
		gl.DeleteShader(shader)
		return 0, &gpu.ProgramError{Kind: kind, Stage: "compile", Log: strings.TrimRight(infoLog, "\x00")}
	}
	return shader, nil
}

func programInfoLog(program uint32) string {
	var logLength int32
	gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLength)
	infoLog := strings.Repeat("\x00", int(logLength)+1)
	gl.GetProgramInfoLog(program, logLength, nil, gl.Str(infoLog))
	return strings.TrimRight(infoLog, "\x00")
}

// Draw submits one frame. Bindings touched by the draw are restored before
// returning so no texture-unit or VAO state leaks across calls.
func (d *Device) Draw(op gpu.DrawOp) error {
	kind, ok := d.programs[op.Program]
	if !ok {
		return fmt.Errorf("glgpu: unknown program %d", op.Program)
	}

	scope := pushBindings()
	defer scope.restore()

	gl.Viewport(0, 0, int32(d.width), int32(d.height))
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
	gl.UseProgram(uint32(op.Program))

	switch kind {
	case gpu.ProgramVolume, gpu.ProgramMIP:
		gm, ok := d.buffers[op.Mesh]
		if !ok {
			return fmt.Errorf("glgpu: unknown cube buffer %d", op.Mesh)
		}
		d.bindSampler(op.Program, 0, "volumeTex", op.Volume)
		d.bindSampler(op.Program, 1, "lutTex", op.LUT)
		d.setCommonUniforms(op)

		gl.Disable(gl.DEPTH_TEST)
		gl.Enable(gl.CULL_FACE)
		gl.CullFace(gl.BACK)
		gl.BindVertexArray(gm.vao)
		gl.DrawElementsWithOffset(gl.TRIANGLES, gm.indexCount, gl.UNSIGNED_INT, 0)
		gl.Disable(gl.CULL_FACE)

	case gpu.ProgramMPR:
		d.bindSampler(op.Program, 0, "volumeTex", op.Volume)
		d.bindSampler(op.Program, 1, "lutTex", op.LUT)
		d.setCommonUniforms(op)
		d.setPlaneUniforms(op)

		gl.Disable(gl.DEPTH_TEST)
		gl.BindVertexArray(d.emptyVAO)
		gl.DrawArrays(gl.TRIANGLE_STRIP, 0, 4)

	case gpu.ProgramSurface:
		gm, ok := d.buffers[op.Mesh]
		if !ok {
			return fmt.Errorf("glgpu: unknown mesh buffer %d", op.Mesh)
		}
		d.setCommonUniforms(op)

		gl.Enable(gl.DEPTH_TEST)
		gl.BindVertexArray(gm.vao)
		gl.DrawElementsWithOffset(gl.TRIANGLES, gm.indexCount, gl.UNSIGNED_INT, 0)
		gl.Disable(gl.DEPTH_TEST)
	}

	return nil
}

func (d *Device) bindSampler(program gpu.ProgramID, unit int32, name string, tex gpu.TextureID) {
	target := d.textures[tex]
	gl.ActiveTexture(uint32(gl.TEXTURE0 + unit))
	gl.BindTexture(target, uint32(tex))
	gl.Uniform1i(uniformLoc(program, name), unit)
}

func (d *Device) setCommonUniforms(op gpu.DrawOp) {
	view := mat4f(op.View)
	proj := mat4f(op.Proj)
	gl.UniformMatrix4fv(uniformLoc(op.Program, "view"), 1, false, &view[0])
	gl.UniformMatrix4fv(uniformLoc(op.Program, "proj"), 1, false, &proj[0])
	setVec3(op.Program, "cameraPos", op.CameraPos)
	setVec3(op.Program, "lightDir", op.LightDir)
	gl.Uniform1f(uniformLoc(op.Program, "stepSize"), float32(op.StepSize))
	gl.Uniform1i(uniformLoc(op.Program, "maxSteps"), int32(op.MaxSteps))
	gl.Uniform1f(uniformLoc(op.Program, "windowWidth"), float32(op.Window))
	gl.Uniform1f(uniformLoc(op.Program, "windowLevel"), float32(op.Level))

	maxDim := op.VolumeDims[0]
	if op.VolumeDims[1] > maxDim {
		maxDim = op.VolumeDims[1]
	}
	if op.VolumeDims[2] > maxDim {
		maxDim = op.VolumeDims[2]
	}
	if maxDim < 1 {
		maxDim = 1
	}
	gl.Uniform1f(uniformLoc(op.Program, "gradDelta"), float32(1.0/float64(maxDim)))
}

func (d *Device) setPlaneUniforms(op gpu.DrawOp) {
	u, v := gpu.PlaneBasis(op.PlaneNormal)
	n := op.PlaneNormal
	if n.Len() < 1e-12 {
		n = mgl64.Vec3{0, 0, 1}
	}
	offset := op.PlaneOffset
	if offset < 0 {
		offset = 0
	} else if offset > 1 {
		offset = 1
	}
	center := n.Normalize().Mul(2*offset - 1)
	setVec3(op.Program, "planeCenter", center)
	setVec3(op.Program, "planeU", u)
	setVec3(op.Program, "planeV", v)
}

func uniformLoc(program gpu.ProgramID, name string) int32 {
	return gl.GetUniformLocation(uint32(program), gl.Str(name+"\x00"))
}

func setVec3(program gpu.ProgramID, name string, v mgl64.Vec3) {
	gl.Uniform3f(uniformLoc(program, name), float32(v.X()), float32(v.Y()), float32(v.Z()))
}

func mat4f(m mgl64.Mat4) [16]float32 {
	var out [16]float32
	for i := 0; i < 16; i++ {
		out[i] = float32(m[i])
	}
	return out
}

// Resize updates the output viewport dimensions.
func (d *Device) Resize(width, height int) {
	if width > 0 && height > 0 {
		d.width = width
		d.height = height
	}
}

// ReadPixels copies the default framebuffer, flipping rows into image
// (top-left origin) order.
func (d *Device) ReadPixels() *image.NRGBA {
	w, h := d.width, d.height
	raw := make([]uint8, w*h*4)
	gl.ReadPixels(0, 0, int32(w), int32(h), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(raw))

	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		src := (h - 1 - y) * w * 4
		dst := y * img.Stride
		copy(img.Pix[dst:dst+w*4], raw[src:src+w*4])
	}
	return img
}

// DestroyTexture releases a GL texture.
func (d *Device) DestroyTexture(id gpu.TextureID) error {
	if _, ok := d.textures[id]; !ok {
		return fmt.Errorf("glgpu: destroy unknown texture %d", id)
	}
	delete(d.textures, id)
	tex := uint32(id)
	gl.DeleteTextures(1, &tex)
	return nil
}

// DestroyBuffer releases a mesh VAO and its buffers.
func (d *Device) DestroyBuffer(id gpu.BufferID) error {
	gm, ok := d.buffers[id]
	if !ok {
		return fmt.Errorf("glgpu: destroy unknown buffer %d", id)
	}
	delete(d.buffers, id)
	gl.DeleteBuffers(1, &gm.vbo)
	gl.DeleteBuffers(1, &gm.ebo)
	gl.DeleteVertexArrays(1, &gm.vao)
	return nil
}

// DestroyProgram releases a GL program.
func (d *Device) DestroyProgram(id gpu.ProgramID) error {
	if _, ok := d.programs[id]; !ok {
		return fmt.Errorf("glgpu: destroy unknown program %d", id)
	}
	delete(d.programs, id)
	gl.DeleteProgram(uint32(id))
	return nil
}
