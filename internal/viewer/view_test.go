package viewer

import (
	"context"
	"math"
	"testing"
	"time"
)

func testScene() *Scene {
	return &Scene{Bounds: Bounds{Min: Vec3{-4, -1, -1}, Max: Vec3{4, 1, 1}}}
}

func TestPresentNormalizes(t *testing.T) {
	v := Present(testScene())
	out := v.Transform().Apply(v.Scene().Bounds)
	if dim := out.MaxDim(); math.Abs(dim-TargetSize) > 1e-9 {
		t.Fatalf("max dim = %g", dim)
	}
	if cam := v.Camera(); cam.Distance != defaultDistance {
		t.Fatalf("default distance = %g", cam.Distance)
	}
}

func TestZoomClamps(t *testing.T) {
	v := Present(testScene())
	v.Zoom(-100)
	if got := v.Camera().Distance; got != MinDistance {
		t.Fatalf("distance = %g, want %g", got, MinDistance)
	}
	v.Zoom(100)
	if got := v.Camera().Distance; got != MaxDistance {
		t.Fatalf("distance = %g, want %g", got, MaxDistance)
	}
}

func TestOrbitClampsPitch(t *testing.T) {
	v := Present(testScene())
	v.Orbit(0, 10)
	if got := v.Camera().Pitch; got != MaxPitch {
		t.Fatalf("pitch = %g, want %g", got, MaxPitch)
	}
	v.Orbit(0, -20)
	if got := v.Camera().Pitch; got != -MaxPitch {
		t.Fatalf("pitch = %g, want %g", got, -MaxPitch)
	}
}

func TestResetCamera(t *testing.T) {
	v := Present(testScene())
	v.Orbit(1, 0.2)
	v.Zoom(3)
	v.Pan(0.5, -0.5)

	v.ResetCamera()
	cam := v.Camera()
	if cam != defaultCamera() {
		t.Fatalf("camera after reset = %+v", cam)
	}
}

func TestRotatorStepAndToggle(t *testing.T) {
	r := NewRotator()
	if !r.Enabled() {
		t.Fatalf("rotation should default to enabled")
	}
	r.step()
	r.step()
	if got := r.Angle(); math.Abs(got-2*rotationStep) > 1e-12 {
		t.Fatalf("angle = %g, want %g", got, 2*rotationStep)
	}

	r.SetEnabled(false)
	r.step()
	if got := r.Angle(); math.Abs(got-2*rotationStep) > 1e-12 {
		t.Fatalf("angle advanced while disabled: %g", got)
	}
}

func TestRotatorAngleWraps(t *testing.T) {
	r := NewRotator()
	fullTurn := 2 * math.Pi / rotationStep
	for i := 0; i < int(fullTurn)+5; i++ {
		r.step()
	}
	if got := r.Angle(); got < 0 || got >= 2*math.Pi {
		t.Fatalf("angle = %g outside [0, 2π)", got)
	}
}

func TestRotatorStartStop(t *testing.T) {
	r := NewRotator()
	r.Start(context.Background())
	r.Start(context.Background()) // idempotent

	deadline := time.After(2 * time.Second)
	for r.Angle() == 0 {
		select {
		case <-deadline:
			t.Fatalf("rotator never ticked")
		case <-time.After(5 * time.Millisecond):
		}
	}
	r.Stop()
	r.Stop() // idempotent

	angle := r.Angle()
	time.Sleep(3 * tickInterval)
	if got := r.Angle(); got != angle {
		t.Fatalf("rotator ticked after stop: %g != %g", got, angle)
	}
}
