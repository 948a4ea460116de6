// Package session drives the end-to-end conversion flow: image intake,
// submission, and the phase transitions visible to the user.
package session

import (
	"context"
	"errors"
	"sync"

	"server/internal/domain"
	"server/internal/history"
)

// Phase is the lifecycle state of the current submission.
type Phase string

const (
	PhaseIdle           Phase = "idle"
	PhaseSubmitting     Phase = "submitting"
	PhaseAwaitingResult Phase = "awaiting_result"
	PhaseSucceeded      Phase = "succeeded"
	PhaseFailed         Phase = "failed"
)

// ErrSubmissionInFlight is returned when a submit or image edit arrives
// while a submission is outstanding. At most one submission runs per session.
var ErrSubmissionInFlight = errors.New("a submission is already in flight")

// Submitter is the proxy-client contract the session depends on.
type Submitter interface {
	Submit(ctx context.Context, img domain.SourceImage, opts domain.Options) domain.ConversionResult
}

// Session owns the mutable conversion state. All fields are written under
// the session's own lock; the lock is released for the duration of the
// network round trip so readers stay responsive while a result is pending.
type Session struct {
	submitter Submitter
	sink      history.Sink
	userID    string

	mu      sync.Mutex
	image   *domain.SourceImage
	options domain.Options
	phase   Phase
	result  *domain.ConversionResult
}

// New creates an idle session with default options. userID is the opaque
// optional identity forwarded to the history sink; empty means anonymous.
func New(submitter Submitter, sink history.Sink, userID string) *Session {
	if sink == nil {
		sink = history.NoopSink{}
	}
	return &Session{
		submitter: submitter,
		sink:      sink,
		userID:    userID,
		options:   domain.DefaultOptions(),
		phase:     PhaseIdle,
	}
}

// SelectImage validates and stores the candidate upload. Any prior result or
// error is cleared so a stale asset can never be shown next to a new image.
func (s *Session) SelectImage(name, mime string, data []byte) error {
	img, err := domain.NewSourceImage(name, mime, data)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight() {
		return ErrSubmissionInFlight
	}
	s.image = img
	s.result = nil
	s.phase = PhaseIdle
	return nil
}

// RemoveImage clears the selected image along with any prior result.
func (s *Session) RemoveImage() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight() {
		return ErrSubmissionInFlight
	}
	s.image = nil
	s.result = nil
	s.phase = PhaseIdle
	return nil
}

// SetOption edits one generation parameter; values are clamped by the
// options model.
func (s *Session) SetOption(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := s.options.Set(key, value)
	if err != nil {
		return err
	}
	s.options = next
	return nil
}

// Submit runs one conversion to completion and returns its result.
//
// With no image selected it resolves immediately to a validation failure and
// the session stays idle; no network call is made. While another submission
// is outstanding it is a no-op returning ErrSubmissionInFlight. Otherwise it
// blocks until the backend answers; there is no cancellation beyond ctx and
// no timeout, since generation may take minutes.
func (s *Session) Submit(ctx context.Context) (domain.ConversionResult, error) {
	s.mu.Lock()
	if s.inFlight() {
		s.mu.Unlock()
		return domain.ConversionResult{}, ErrSubmissionInFlight
	}
	if s.image == nil {
		result := domain.Failed(domain.ErrorValidation, "Please select an image first")
		s.result = &result
		s.phase = PhaseIdle
		s.mu.Unlock()
		return result, nil
	}

	// Snapshot the request; it is immutable from here on.
	req := domain.ConversionRequest{Image: *s.image, Options: s.options}
	s.result = nil
	s.phase = PhaseSubmitting
	s.mu.Unlock()

	s.setPhase(PhaseAwaitingResult)
	result := s.submitter.Submit(ctx, req.Image, req.Options)

	s.mu.Lock()
	s.result = &result
	if result.OK() {
		s.phase = PhaseSucceeded
	} else {
		s.phase = PhaseFailed
	}
	s.mu.Unlock()

	if result.OK() {
		// Best-effort, fire-and-forget; the sink swallows its own errors
		// and the outcome never alters the session phase.
		s.sink.Record(history.Record{
			UserID:         s.userID,
			SourceImageRef: req.Image.Name,
			ModelURL:       result.AssetURL,
		})
	}
	return result, nil
}

// Phase returns the current lifecycle state.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Result returns the latest conversion outcome, or nil before the first
// submission (and after the image is replaced or removed).
func (s *Session) Result() *domain.ConversionResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// Image returns the currently selected image, or nil.
func (s *Session) Image() *domain.SourceImage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.image
}

// Options returns the current generation parameters.
func (s *Session) Options() domain.Options {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.options
}

func (s *Session) setPhase(p Phase) {
	s.mu.Lock()
	s.phase = p
	s.mu.Unlock()
}

// inFlight must be called with the lock held.
func (s *Session) inFlight() bool {
	return s.phase == PhaseSubmitting || s.phase == PhaseAwaitingResult
}
