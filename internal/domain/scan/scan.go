// Package scan owns the camera scan lifecycle: engaging the camera, decoding
// the invitation code and releasing the camera on every exit path.
package scan

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/okian/scit/internal/domain/device"
	"github.com/okian/scit/internal/domain/profile"
	"github.com/okian/scit/internal/domain/report"
	"github.com/okian/scit/pkg/logger"
)

// State of a scan session.
type State int

const (
	StateIdle State = iota
	// StateAwaitingPermission is set by the caller while the permission
	// gate runs; the session itself never enters it.
	StateAwaitingPermission
	StateScanning
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateAwaitingPermission:
		return "awaiting_permission"
	case StateScanning:
		return "scanning"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "idle"
	}
}

// OutcomeKind tags an Outcome.
type OutcomeKind int

const (
	// OutcomeEmpty: the user backed out of the camera.
	OutcomeEmpty OutcomeKind = iota
	OutcomeDecoded
	OutcomeFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeDecoded:
		return "decoded"
	case OutcomeFailed:
		return "failed"
	default:
		return "empty"
	}
}

// Reason explains a failed Outcome.
type Reason string

const (
	ReasonNone              Reason = ""
	ReasonMalformedContent  Reason = "malformed-content"
	ReasonCameraUnavailable Reason = "camera-unavailable"
)

// Outcome is the result of one finished scan.
type Outcome struct {
	SessionID string
	Kind      OutcomeKind
	// Payload is set for OutcomeDecoded.
	Payload profile.Payload
	// Reason and Err are set for OutcomeFailed.
	Reason Reason
	Err    error
}

// Session runs camera scans. One scan may be in flight at a time; Teardown
// aborts it from any goroutine.
type Session struct {
	camera   device.Camera
	reporter report.Reporter
	logger   logger.Logger
	onActive func(bool)

	mu     sync.Mutex
	state  State
	gen    uint64
	cancel context.CancelFunc
	closed bool

	active atomic.Bool
}

// NewSession creates an idle session over camera.
func NewSession(camera device.Camera, opts ...Option) *Session {
	s := &Session{
		camera:   camera,
		reporter: report.Nop{},
		logger:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Active reports whether the camera is engaged by a scan.
func (s *Session) Active() bool {
	return s.active.Load()
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// AwaitPermission marks the session as waiting on the permission gate.
// It is a no-op while scanning.
func (s *Session) AwaitPermission() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateScanning {
		s.state = StateAwaitingPermission
	}
}

// PermissionDenied returns a session waiting on the gate to idle.
func (s *Session) PermissionDenied() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateAwaitingPermission {
		s.state = StateIdle
	}
}

// Start runs one scan. Camera permission must already be granted.
//
// It returns ErrTornDown when Teardown ran while the scan was in flight
// and ErrCancelled when ctx ended first; no Outcome is produced in either
// case. Every other ending, including decode failures, is an Outcome.
func (s *Session) Start(ctx context.Context) (Outcome, error) {
	if s.camera == nil {
		return Outcome{}, ErrNoCamera
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Outcome{}, ErrTornDown
	}
	if s.state == StateScanning {
		s.mu.Unlock()
		return Outcome{}, ErrAlreadyScanning
	}
	scanCtx, cancel := context.WithCancel(ctx)
	s.gen++
	gen := s.gen
	s.cancel = cancel
	s.state = StateScanning
	s.setActive(true)
	s.mu.Unlock()
	defer cancel()

	id := uuid.NewString()
	s.logger.Debug(ctx, "camera engaged", logger.String("session", id))
	res, err := s.camera.StartScan(scanCtx)

	cancelled := err != nil && ctx.Err() != nil
	out, next := s.classify(id, res, err, cancelled)
	if !s.finish(gen, next) {
		s.logger.Debug(ctx, "scan torn down", logger.String("session", id))
		return Outcome{}, ErrTornDown
	}
	s.release(context.WithoutCancel(ctx), id)

	if cancelled {
		return Outcome{}, ErrCancelled
	}
	switch out.Kind {
	case OutcomeFailed:
		kind := report.ErrDataFormat
		if out.Reason == ReasonCameraUnavailable {
			kind = report.ErrDeviceUnavailable
		}
		s.reporter.Report(ctx, report.Failure{Component: "scan", Op: "decode", Kind: kind, Err: out.Err, SessionID: id})
	case OutcomeEmpty:
		s.logger.Debug(ctx, "scan returned no content", logger.String("session", id))
	case OutcomeDecoded:
		s.logger.Info(ctx, "invitation decoded", logger.String("session", id), logger.Int("fields", len(out.Payload)))
	}
	return out, nil
}

// classify turns the camera answer into an Outcome and the next state.
func (s *Session) classify(id string, res device.ScanResult, err error, cancelled bool) (Outcome, State) {
	switch {
	case cancelled || errors.Is(err, context.Canceled):
		return Outcome{SessionID: id}, StateIdle
	case err != nil:
		return Outcome{SessionID: id, Kind: OutcomeFailed, Reason: ReasonCameraUnavailable, Err: err}, StateFailed
	case !res.HasContent:
		return Outcome{SessionID: id, Kind: OutcomeEmpty}, StateIdle
	}
	p, derr := profile.Decode(res.Content)
	if derr != nil {
		return Outcome{SessionID: id, Kind: OutcomeFailed, Reason: ReasonMalformedContent, Err: derr}, StateFailed
	}
	return Outcome{SessionID: id, Kind: OutcomeDecoded, Payload: p}, StateCompleted
}

// finish moves a still-current scan to next. It returns false when a
// teardown already claimed the scan.
func (s *Session) finish(gen uint64, next State) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return false
	}
	s.cancel = nil
	s.state = next
	s.setActive(false)
	return true
}

// Teardown force-stops the camera and returns the session to idle. Any
// scan in flight is abandoned and its caller gets ErrTornDown.
func (s *Session) Teardown(ctx context.Context) {
	s.teardown(ctx, false)
}

// Close is a final Teardown: every later Start returns ErrTornDown without
// touching the camera.
func (s *Session) Close(ctx context.Context) {
	s.teardown(ctx, true)
}

func (s *Session) teardown(ctx context.Context, final bool) {
	s.mu.Lock()
	if final {
		s.closed = true
	}
	s.gen++
	cancel := s.cancel
	s.cancel = nil
	s.state = StateIdle
	s.setActive(false)
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.release(ctx, "")
}

func (s *Session) release(ctx context.Context, id string) {
	if s.camera == nil {
		return
	}
	if err := s.camera.StopScan(ctx); err != nil {
		s.logger.Warn(ctx, "camera stop failed", logger.String("session", id), logger.Error(err))
	}
}

// setActive must be called with s.mu held.
func (s *Session) setActive(v bool) {
	if s.active.Swap(v) != v && s.onActive != nil {
		s.onActive(v)
	}
}
