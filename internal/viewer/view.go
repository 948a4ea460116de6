package viewer

import (
	"math"
	"sync"
)

// Orbit camera limits. Zoom is clamped so the model can neither clip the
// near plane nor shrink to a speck, and pitch stays shallow enough that the
// piece is always seen roughly from the side.
const (
	MinDistance     = 2.0
	MaxDistance     = 10.0
	MaxPitch        = math.Pi / 4
	defaultDistance = 5.0
)

// Camera is the orbit state: yaw and pitch around the model, distance from
// it, and a pan offset of the look-at target.
type Camera struct {
	Yaw      float64
	Pitch    float64
	Distance float64
	Target   Vec3
}

func defaultCamera() Camera {
	return Camera{Distance: defaultDistance}
}

// View is the live handle onto a presented model. It owns the normalization
// transform, the orbit camera, and the auto-rotation task.
type View struct {
	scene     *Scene
	transform Transform
	rotator   *Rotator

	mu     sync.Mutex
	camera Camera
}

// Present prepares a loaded scene for display: the returned view carries the
// transform that centers the model at the origin and scales its largest
// dimension to TargetSize.
func Present(scene *Scene) *View {
	return &View{
		scene:     scene,
		transform: Normalize(scene.Bounds),
		rotator:   NewRotator(),
		camera:    defaultCamera(),
	}
}

// Scene returns the presented scene.
func (v *View) Scene() *Scene {
	return v.scene
}

// Transform returns the normalization applied to the model.
func (v *View) Transform() Transform {
	return v.transform
}

// Rotator returns the view's auto-rotation task.
func (v *View) Rotator() *Rotator {
	return v.rotator
}

// Camera returns the current orbit state.
func (v *View) Camera() Camera {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.camera
}

// ResetCamera restores the default orbit position. It is an explicit call on
// the view rather than ambient state so each presented model resets
// independently.
func (v *View) ResetCamera() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.camera = defaultCamera()
}

// Orbit rotates the camera around the model. Pitch is clamped to MaxPitch;
// yaw wraps freely.
func (v *View) Orbit(dyaw, dpitch float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.camera.Yaw = math.Mod(v.camera.Yaw+dyaw, 2*math.Pi)
	v.camera.Pitch = clampFloat(v.camera.Pitch+dpitch, -MaxPitch, MaxPitch)
}

// Zoom moves the camera along its view axis, clamped to the distance range.
func (v *View) Zoom(delta float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.camera.Distance = clampFloat(v.camera.Distance+delta, MinDistance, MaxDistance)
}

// Pan shifts the look-at target within the view plane.
func (v *View) Pan(dx, dy float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.camera.Target.X += dx
	v.camera.Target.Y += dy
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
