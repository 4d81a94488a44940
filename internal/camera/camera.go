// Package camera holds the view parameters and produces the view and
// projection transforms consumed by the render pipeline.
package camera

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Camera is a perspective camera. FOV is the vertical field of view in
// degrees.
type Camera struct {
	Position mgl64.Vec3
	Target   mgl64.Vec3
	Up       mgl64.Vec3
	FOV      float64
	Near     float64
	Far      float64
}

// Default positions the camera on +Z looking at the volume center, far
// enough back that the normalized cube fits a 45° frustum.
func Default() Camera {
	return Camera{
		Position: mgl64.Vec3{0, 0, 3.5},
		Target:   mgl64.Vec3{0, 0, 0},
		Up:       mgl64.Vec3{0, 1, 0},
		FOV:      45,
		Near:     0.1,
		Far:      100,
	}
}

// Delta is a partial camera update; nil fields keep their current values.
type Delta struct {
	Position *mgl64.Vec3
	Target   *mgl64.Vec3
	Up       *mgl64.Vec3
	FOV      *float64
	Near     *float64
	Far      *float64
}

// Apply merges the supplied fields into the camera.
func (c *Camera) Apply(d Delta) {
	if d.Position != nil {
		c.Position = *d.Position
	}
	if d.Target != nil {
		c.Target = *d.Target
	}
	if d.Up != nil {
		c.Up = *d.Up
	}
	if d.FOV != nil {
		c.FOV = *d.FOV
	}
	if d.Near != nil {
		c.Near = *d.Near
	}
	if d.Far != nil {
		c.Far = *d.Far
	}
}

// ViewMatrix returns the world-to-eye transform.
func (c *Camera) ViewMatrix() mgl64.Mat4 {
	return mgl64.LookAtV(c.Position, c.Target, c.Up)
}

// ProjectionMatrix returns a symmetric perspective frustum for the given
// output aspect ratio (width/height).
func (c *Camera) ProjectionMatrix(aspect float64) mgl64.Mat4 {
	if aspect <= 0 {
		aspect = 1
	}
	return mgl64.Perspective(mgl64.DegToRad(c.FOV), aspect, c.Near, c.Far)
}

// Orbit rotates the camera around the target by yaw (around Up) and pitch
// (around the camera's right axis), in radians. The distance to the target
// is preserved and pitch is clamped short of the poles.
func (c *Camera) Orbit(yaw, pitch float64) {
	offset := c.Position.Sub(c.Target)
	radius := offset.Len()
	if radius < 1e-9 {
		return
	}

	curPitch := math.Asin(offset.Y() / radius)
	curYaw := math.Atan2(offset.X(), offset.Z())

	curYaw += yaw
	curPitch += pitch
	const poleLimit = math.Pi/2 - 0.01
	if curPitch > poleLimit {
		curPitch = poleLimit
	}
	if curPitch < -poleLimit {
		curPitch = -poleLimit
	}

	c.Position = c.Target.Add(mgl64.Vec3{
		radius * math.Cos(curPitch) * math.Sin(curYaw),
		radius * math.Sin(curPitch),
		radius * math.Cos(curPitch) * math.Cos(curYaw),
	})
}

// Dolly scales the camera's distance to the target, clamped so the camera
// never crosses the target.
func (c *Camera) Dolly(factor float64) {
	offset := c.Position.Sub(c.Target)
	d := offset.Len() * factor
	if d < 0.05 {
		d = 0.05
	}
	c.Position = c.Target.Add(offset.Normalize().Mul(d))
}
