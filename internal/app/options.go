package service

import (
	"github.com/okian/scit/internal/domain/device"
	"github.com/okian/scit/internal/domain/profile"
	"github.com/okian/scit/internal/domain/report"
	"github.com/okian/scit/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithDevices sets the handset capabilities.
func WithDevices(c device.Capabilities) Option {
	return func(s *Service) { s.devices = c }
}

// WithRouter sets the navigation collaborator.
func WithRouter(r Router) Option {
	return func(s *Service) {
		if r != nil {
			s.router = r
		}
	}
}

// WithStore sets the profile store shared by the screens.
func WithStore(st profile.Store) Option {
	return func(s *Service) {
		if st != nil {
			s.store = st
		}
	}
}

// WithReporter sets where caught failures go.
func WithReporter(r report.Reporter) Option {
	return func(s *Service) {
		if r != nil {
			s.reporter = r
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRetryPrompt toggles the invalid invitation notice.
func WithRetryPrompt(enabled bool) Option {
	return func(s *Service) { s.retryPrompt = enabled }
}

// WithGeocodeOptions sets the reverse geocoding options of the review.
func WithGeocodeOptions(o device.GeocodeOptions) Option {
	return func(s *Service) { s.geocodeOpts = o }
}
