package scan

import (
	"github.com/okian/scit/internal/domain/report"
	"github.com/okian/scit/pkg/logger"
)

// Option applies a configuration option to the Session.
type Option func(*Session)

// WithReporter sets where decode and camera failures are reported.
func WithReporter(r report.Reporter) Option {
	return func(s *Session) {
		if r != nil {
			s.reporter = r
		}
	}
}

// WithLogger sets a custom logger for the session.
func WithLogger(l logger.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithActiveHook registers fn to be called whenever the active flag
// flips. fn runs with the session lock held and must not call back into
// the session.
func WithActiveHook(fn func(active bool)) Option {
	return func(s *Session) {
		s.onActive = fn
	}
}
