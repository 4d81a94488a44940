// Package gpu defines the device abstraction the render pipeline draws
// through, and the lifecycle tracker that guarantees device objects are
// disposed before replacement. Two devices implement it: the OpenGL backend
// in glgpu and the software reference device in softgpu.
package gpu

import (
	"fmt"
	"image"

	"github.com/go-gl/mathgl/mgl64"
)

// Handle types. Zero is the null handle; devices never allocate it.
type (
	TextureID uint32
	BufferID  uint32
	ProgramID uint32
)

// ProgramKind enumerates the per-mode shader programs.
type ProgramKind int

const (
	ProgramVolume ProgramKind = iota
	ProgramMIP
	ProgramSurface
	ProgramMPR
)

func (k ProgramKind) String() string {
	switch k {
	case ProgramVolume:
		return "volume"
	case ProgramMIP:
		return "mip"
	case ProgramSurface:
		return "surface"
	case ProgramMPR:
		return "mpr"
	default:
		return fmt.Sprintf("ProgramKind(%d)", int(k))
	}
}

// ProgramError reports a shader compile or link failure for one mode's
// program. Fatal; the pipeline does not retry.
type ProgramError struct {
	Kind  ProgramKind
	Stage string // "compile" or "link"
	Log   string
}

func (e *ProgramError) Error() string {
	return fmt.Sprintf("gpu: %s program %s failed: %s", e.Kind, e.Stage, e.Log)
}

// Capabilities reports optional device features the pipeline adapts to.
type Capabilities struct {
	// FloatTextures is false when the device lacks 32-bit float texture
	// formats; the pipeline then downgrades the effective quality tier and
	// the device stores voxels at 8 bits.
	FloatTextures bool
	MaxTexture3D  int
}

// MeshData is the raw geometry upload form: xyz positions and normals plus
// a triangle index list.
type MeshData struct {
	Positions []float32
	Normals   []float32
	Indices   []uint32
}

// Uniforms carries all per-draw parameters. Strategies populate it each
// frame; devices translate it to their native binding model.
type Uniforms struct {
	View mgl64.Mat4
	Proj mgl64.Mat4

	CameraPos mgl64.Vec3
	LightDir  mgl64.Vec3

	StepSize float64
	MaxSteps int

	// Window/level remap over normalized intensity, applied before the
	// transfer-function lookup.
	Window float64
	Level  float64

	// MPR plane in normalized cube coordinates.
	PlaneNormal mgl64.Vec3
	PlaneOffset float64

	VolumeDims [3]int
}

// DrawOp is one frame submission: a program, its resources, and uniforms.
// Volume and LUT are null for the surface program; Mesh holds the bounding
// cube for the marching programs and the isosurface for the surface program.
type DrawOp struct {
	Program ProgramID
	Kind    ProgramKind
	Volume  TextureID
	LUT     TextureID
	Mesh    BufferID
	Uniforms
}

// Device is a GPU context owned exclusively by one renderer instance.
// All calls are frame-synchronous; Draw returns once submission completes.
type Device interface {
	// Init prepares the device for an output surface of the given pixel
	// dimensions. Fatal errors (no context, missing required capabilities)
	// surface here.
	Init(width, height int) error

	Capabilities() Capabilities

	// CreateVolumeTexture uploads normalized [0,1] voxels as a 3D texture
	// sized exactly w×h×d.
	CreateVolumeTexture(w, h, d int, voxels []float32) (TextureID, error)

	// CreateLUTTexture uploads a 256-entry RGBA lookup table.
	CreateLUTTexture(table [256][4]float32) (TextureID, error)

	CreateMeshBuffer(m MeshData) (BufferID, error)

	CompileProgram(kind ProgramKind) (ProgramID, error)

	Draw(op DrawOp) error

	Resize(width, height int)

	// ReadPixels copies the current output surface contents.
	ReadPixels() *image.NRGBA

	DestroyTexture(id TextureID) error
	DestroyBuffer(id BufferID) error
	DestroyProgram(id ProgramID) error
}

// PlaneBasis returns two unit vectors spanning the plane orthogonal to n.
// Both backends derive MPR sampling coordinates from the same basis so a
// given plane renders identically on either device.
func PlaneBasis(n mgl64.Vec3) (u, v mgl64.Vec3) {
	if n.Len() < 1e-12 {
		n = mgl64.Vec3{0, 0, 1}
	}
	n = n.Normalize()

	// Pick the world axis least aligned with the normal.
	helper := mgl64.Vec3{1, 0, 0}
	ax, ay, az := abs(n.X()), abs(n.Y()), abs(n.Z())
	if ay <= ax && ay <= az {
		helper = mgl64.Vec3{0, 1, 0}
	} else if az <= ax && az <= ay {
		helper = mgl64.Vec3{0, 0, 1}
	}

	u = n.Cross(helper).Normalize()
	v = n.Cross(u)
	return u, v
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
