package permission

import (
	"github.com/okian/scit/internal/domain/report"
	"github.com/okian/scit/pkg/logger"
)

// Option applies a configuration option to the Gate.
type Option func(*Gate)

// WithReporter sets where denials and device failures are reported.
func WithReporter(r report.Reporter) Option {
	return func(g *Gate) {
		if r != nil {
			g.reporter = r
		}
	}
}

// WithLogger sets a custom logger for the gate.
func WithLogger(l logger.Logger) Option {
	return func(g *Gate) {
		if l != nil {
			g.logger = l
		}
	}
}
