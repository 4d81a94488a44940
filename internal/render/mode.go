package render

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"volrender/internal/gpu"
)

// Mode selects the active rendering strategy.
type Mode int

const (
	ModeVolume Mode = iota
	ModeMIP
	ModeSurface
	ModeMPR
)

func (m Mode) String() string {
	switch m {
	case ModeVolume:
		return "volume"
	case ModeMIP:
		return "mip"
	case ModeSurface:
		return "surface"
	case ModeMPR:
		return "mpr"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode converts a config/CLI string into a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "volume":
		return ModeVolume, nil
	case "mip":
		return ModeMIP, nil
	case "surface":
		return ModeSurface, nil
	case "mpr":
		return ModeMPR, nil
	default:
		return ModeVolume, fmt.Errorf("render: unknown mode %q", s)
	}
}

// Plane describes an MPR reconstruction plane: a normal and a 0..1 offset
// along it through the volume.
type Plane struct {
	Normal mgl64.Vec3
	Offset float64
}

// Standard anatomical planes.
func AxialPlane(offset float64) Plane {
	return Plane{Normal: mgl64.Vec3{0, 0, 1}, Offset: offset}
}

func SagittalPlane(offset float64) Plane {
	return Plane{Normal: mgl64.Vec3{1, 0, 0}, Offset: offset}
}

func CoronalPlane(offset float64) Plane {
	return Plane{Normal: mgl64.Vec3{0, 1, 0}, Offset: offset}
}

// ParsePlane resolves an anatomical plane name.
func ParsePlane(name string, offset float64) (Plane, error) {
	switch name {
	case "", "axial":
		return AxialPlane(offset), nil
	case "sagittal":
		return SagittalPlane(offset), nil
	case "coronal":
		return CoronalPlane(offset), nil
	default:
		return Plane{}, fmt.Errorf("render: unknown plane %q", name)
	}
}

// strategy binds a mode to its program, geometry and per-frame uniforms.
// One strategy value is selected at mode-change time, not re-branched per
// frame.
type strategy interface {
	kind() gpu.ProgramKind
	// canDraw reports whether the resources this mode needs are loaded.
	canDraw(r *Renderer) bool
	geometry(r *Renderer) gpu.BufferID
	apply(r *Renderer, u *gpu.Uniforms)
}

type volumeStrategy struct{}

func (volumeStrategy) kind() gpu.ProgramKind            { return gpu.ProgramVolume }
func (volumeStrategy) canDraw(r *Renderer) bool         { return r.volumeTex != 0 }
func (volumeStrategy) geometry(r *Renderer) gpu.BufferID { return r.cubeBuf }
func (volumeStrategy) apply(r *Renderer, u *gpu.Uniforms) {}

type mipStrategy struct{}

func (mipStrategy) kind() gpu.ProgramKind            { return gpu.ProgramMIP }
func (mipStrategy) canDraw(r *Renderer) bool         { return r.volumeTex != 0 }
func (mipStrategy) geometry(r *Renderer) gpu.BufferID { return r.cubeBuf }
func (mipStrategy) apply(r *Renderer, u *gpu.Uniforms) {}

type surfaceStrategy struct{}

func (surfaceStrategy) kind() gpu.ProgramKind            { return gpu.ProgramSurface }
func (surfaceStrategy) canDraw(r *Renderer) bool         { return r.meshBuf != 0 }
func (surfaceStrategy) geometry(r *Renderer) gpu.BufferID { return r.meshBuf }
func (surfaceStrategy) apply(r *Renderer, u *gpu.Uniforms) {}

type mprStrategy struct{}

func (mprStrategy) kind() gpu.ProgramKind            { return gpu.ProgramMPR }
func (mprStrategy) canDraw(r *Renderer) bool         { return r.volumeTex != 0 }
func (mprStrategy) geometry(r *Renderer) gpu.BufferID { return 0 }

func (mprStrategy) apply(r *Renderer, u *gpu.Uniforms) {
	u.PlaneNormal = r.plane.Normal
	u.PlaneOffset = r.plane.Offset
}

var strategies = map[Mode]strategy{
	ModeVolume:  volumeStrategy{},
	ModeMIP:     mipStrategy{},
	ModeSurface: surfaceStrategy{},
	ModeMPR:     mprStrategy{},
}
