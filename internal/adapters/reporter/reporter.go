// Package reporter turns flow failures into log lines and failure metrics.
package reporter

import (
	"context"

	"github.com/okian/scit/internal/domain/report"
	"github.com/okian/scit/pkg/logger"
	"github.com/okian/scit/pkg/metrics"
)

// Log implements report.Reporter.
type Log struct {
	logger logger.Logger
	next   []report.Reporter
}

// New creates a reporter writing to l and forwarding to next.
func New(l logger.Logger, next ...report.Reporter) *Log {
	if l == nil {
		l = logger.Nop()
	}
	return &Log{logger: l, next: next}
}

// Report logs the failure and counts it. Cancellations are logged at debug.
func (r *Log) Report(ctx context.Context, f report.Failure) {
	kind := report.KindName(f.Kind)
	metrics.RecordFailure(f.Component, kind)

	fields := []logger.Field{
		logger.String("component", f.Component),
		logger.String("op", f.Op),
		logger.String("kind", kind),
	}
	if f.SessionID != "" {
		fields = append(fields, logger.String("session", f.SessionID))
	}
	if f.Err != nil {
		fields = append(fields, logger.Error(f.Err))
	}
	if kind == "cancelled" {
		r.logger.Debug(ctx, "flow step cancelled", fields...)
	} else {
		r.logger.Warn(ctx, "flow step failed", fields...)
	}

	for _, n := range r.next {
		n.Report(ctx, f)
	}
}
