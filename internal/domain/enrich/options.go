package enrich

import (
	"github.com/okian/scit/internal/domain/device"
	"github.com/okian/scit/internal/domain/report"
	"github.com/okian/scit/pkg/logger"
)

// Option configures a Collector.
type Option func(*Collector)

func WithReporter(r report.Reporter) Option {
	return func(c *Collector) {
		if r != nil {
			c.reporter = r
		}
	}
}

func WithLogger(l logger.Logger) Option {
	return func(c *Collector) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithGeocodeOptions overrides the default of a locale-aware lookup
// returning one candidate.
func WithGeocodeOptions(o device.GeocodeOptions) Option {
	return func(c *Collector) {
		if o.MaxResults < 1 {
			o.MaxResults = 1
		}
		c.opts = o
	}
}

// WithSessionID tags reported failures.
func WithSessionID(id string) Option {
	return func(c *Collector) { c.sessionID = id }
}
