package viewer

import (
	"context"
	"math"
	"sync"
	"time"
)

const (
	// rotationStep matches the original presentation speed: 0.005 radians
	// per ~16ms frame, a slow turntable spin about the vertical axis.
	rotationStep = 0.005
	tickInterval = 16 * time.Millisecond
)

// Rotator advances the model's yaw on a scheduled periodic task. It is an
// explicit loop with an enable flag rather than an implicit per-frame
// callback; disabling it pauses the spin without tearing the task down.
type Rotator struct {
	mu      sync.Mutex
	angle   float64
	enabled bool
	running bool
	stop    context.CancelFunc
	done    chan struct{}
}

// NewRotator returns a rotator with auto-rotation enabled by default.
func NewRotator() *Rotator {
	return &Rotator{enabled: true}
}

// Start launches the periodic task. Starting an already-running rotator is a
// no-op.
func (r *Rotator) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	r.running = true
	r.stop = cancel
	r.done = make(chan struct{})
	go r.run(ctx, r.done)
}

func (r *Rotator) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.step()
		}
	}
}

// step advances one tick when rotation is enabled.
func (r *Rotator) step() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.enabled {
		return
	}
	r.angle = math.Mod(r.angle+rotationStep, 2*math.Pi)
}

// Stop tears the task down and waits for it to exit.
func (r *Rotator) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	stop, done := r.stop, r.done
	r.mu.Unlock()
	stop()
	<-done
}

// SetEnabled toggles the spin without stopping the task.
func (r *Rotator) SetEnabled(enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.enabled = enabled
}

// Enabled reports whether the spin is active.
func (r *Rotator) Enabled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.enabled
}

// Angle returns the current yaw in radians.
func (r *Rotator) Angle() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.angle
}
