// Package report carries the failure taxonomy of the onboarding flow and
// the Reporter contract used to surface failures without aborting the flow.
package report

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// Failure describes one caught failure.
type Failure struct {
	// Component is the reporting part of the flow, e.g. "scan".
	Component string
	// Op names the failed step, e.g. "reverse_geocode".
	Op string
	// Kind is one of the sentinel kinds in errors.go.
	Kind error
	// Err is the underlying cause, may be nil.
	Err error
	// SessionID correlates failures of one scan or review run.
	SessionID string
}

func (f Failure) Error() string {
	var b strings.Builder
	b.WriteString(f.Component)
	if f.Op != "" {
		b.WriteString(".")
		b.WriteString(f.Op)
	}
	b.WriteString(": ")
	b.WriteString(KindName(f.Kind))
	if f.Err != nil {
		b.WriteString(": ")
		b.WriteString(f.Err.Error())
	}
	return b.String()
}

// Unwrap exposes both the kind and the cause to errors.Is/As.
func (f Failure) Unwrap() []error {
	out := make([]error, 0, 2)
	if f.Kind != nil {
		out = append(out, f.Kind)
	}
	if f.Err != nil {
		out = append(out, f.Err)
	}
	return out
}

// KindName returns the metric/log label of a failure kind.
func KindName(kind error) string {
	switch {
	case kind == nil:
		return "unknown"
	case errors.Is(kind, ErrPermission):
		return "permission"
	case errors.Is(kind, ErrDataFormat):
		return "data_format"
	case errors.Is(kind, ErrDeviceUnavailable):
		return "device_unavailable"
	case errors.Is(kind, ErrCancelled):
		return "cancelled"
	default:
		return "unknown"
	}
}

// Reporter receives caught failures. Implementations must not block the
// caller for long and must be safe for concurrent use.
type Reporter interface {
	Report(ctx context.Context, f Failure)
}

// Nop discards every failure.
type Nop struct{}

// Report implements Reporter.
func (Nop) Report(context.Context, Failure) {}

// Recorder keeps reported failures in memory.
type Recorder struct {
	mu       sync.Mutex
	failures []Failure
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Report implements Reporter.
func (r *Recorder) Report(_ context.Context, f Failure) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = append(r.failures, f)
}

// Failures returns a copy of everything reported so far, in order.
func (r *Recorder) Failures() []Failure {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Failure, len(r.failures))
	copy(out, r.failures)
	return out
}

// Count returns how many failures of the given kind were reported.
func (r *Recorder) Count(kind error) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, f := range r.failures {
		if errors.Is(f.Kind, kind) {
			n++
		}
	}
	return n
}

// ByComponent returns the failures reported by component.
func (r *Recorder) ByComponent(component string) []Failure {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Failure
	for _, f := range r.failures {
		if f.Component == component {
			out = append(out, f)
		}
	}
	return out
}
