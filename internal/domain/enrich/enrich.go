// Package enrich resolves the device-derived facts of a technician profile:
// the street address of the current position and the SIM phone number.
// Both run concurrently and fail independently; a failure only leaves the
// field absent.
package enrich

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/scit/internal/domain/device"
	"github.com/okian/scit/internal/domain/report"
	"github.com/okian/scit/pkg/logger"
)

const component = "enrich"

// Result holds the two optional facts. A nil field is absent.
type Result struct {
	ResolvedAddress *device.Address
	PhoneNumber     *string
}

// Sink receives each fact as soon as it resolves. Calls may come from
// different goroutines in any order.
type Sink interface {
	SetAddress(device.Address)
	SetPhoneNumber(string)
}

// Collector runs the two sub-operations.
type Collector struct {
	locator   device.Locator
	geocoder  device.Geocoder
	sim       device.SIM
	reporter  report.Reporter
	logger    logger.Logger
	opts      device.GeocodeOptions
	sessionID string
}

// NewCollector creates a Collector. Any collaborator may be nil; the
// matching field then stays absent.
func NewCollector(locator device.Locator, geocoder device.Geocoder, sim device.SIM, opts ...Option) *Collector {
	c := &Collector{
		locator:  locator,
		geocoder: geocoder,
		sim:      sim,
		reporter: report.Nop{},
		logger:   logger.Nop(),
		opts:     device.GeocodeOptions{UseLocale: true, MaxResults: 1},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Collect runs both sub-operations and waits for them. sink may be nil.
func (c *Collector) Collect(ctx context.Context, sink Sink) Result {
	start := time.Now()
	var (
		g   errgroup.Group
		res Result
	)
	g.Go(func() error {
		if a, ok := c.ResolveAddress(ctx); ok {
			res.ResolvedAddress = &a
			if sink != nil {
				sink.SetAddress(a)
			}
		}
		return nil
	})
	g.Go(func() error {
		if n, ok := c.ResolvePhoneNumber(ctx); ok {
			res.PhoneNumber = &n
			if sink != nil {
				sink.SetPhoneNumber(n)
			}
		}
		return nil
	})
	_ = g.Wait()

	c.logger.Debug(ctx, "enrichment finished",
		logger.String("session", c.sessionID),
		logger.Bool("address", res.ResolvedAddress != nil),
		logger.Bool("phone_number", res.PhoneNumber != nil),
		logger.Duration("took", time.Since(start)))
	return res
}

// Run is a background Collect.
type Run struct {
	done chan struct{}
	res  Result
}

// Start runs Collect in the background and returns at once.
func (c *Collector) Start(ctx context.Context, sink Sink) *Run {
	r := &Run{done: make(chan struct{})}
	go func() {
		defer close(r.done)
		r.res = c.Collect(ctx, sink)
	}()
	return r
}

// Done is closed once both sub-operations ended.
func (r *Run) Done() <-chan struct{} { return r.done }

// Result returns what the run collected. ok is false while it is still
// running.
func (r *Run) Result() (res Result, ok bool) {
	select {
	case <-r.done:
		return r.res, true
	default:
		return Result{}, false
	}
}

// Wait blocks until the run ends or ctx is done.
func (r *Run) Wait(ctx context.Context) (Result, error) {
	select {
	case <-r.done:
		return r.res, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// ResolveAddress acquires the current position and returns the first
// reverse-geocoding candidate.
func (c *Collector) ResolveAddress(ctx context.Context) (addr device.Address, ok bool) {
	const op = "resolve_address"
	defer c.recoverTo(ctx, op, &ok)

	if c.locator == nil {
		c.fail(ctx, op, report.ErrDeviceUnavailable, ErrNoLocator)
		return device.Address{}, false
	}
	pos, err := c.locator.CurrentPosition(ctx)
	if err != nil {
		c.fail(ctx, "current_position", kindOf(ctx, err), err)
		return device.Address{}, false
	}

	if c.geocoder == nil {
		c.fail(ctx, op, report.ErrDeviceUnavailable, ErrNoGeocoder)
		return device.Address{}, false
	}
	candidates, err := c.geocoder.ReverseGeocode(ctx, pos.Latitude, pos.Longitude, c.opts)
	if err != nil {
		c.fail(ctx, "reverse_geocode", kindOf(ctx, err), err)
		return device.Address{}, false
	}
	if len(candidates) == 0 {
		c.logger.Info(ctx, "no address candidates",
			logger.String("session", c.sessionID),
			logger.Float64("latitude", pos.Latitude),
			logger.Float64("longitude", pos.Longitude))
		return device.Address{}, false
	}
	return candidates[0], true
}

// ResolvePhoneNumber asks for SIM read access and returns the phone number.
// An empty number counts as absent.
func (c *Collector) ResolvePhoneNumber(ctx context.Context) (number string, ok bool) {
	const op = "resolve_phone_number"
	defer c.recoverTo(ctx, op, &ok)

	if c.sim == nil {
		c.fail(ctx, op, report.ErrDeviceUnavailable, ErrNoSIM)
		return "", false
	}
	granted, err := c.sim.RequestReadPermission(ctx)
	if err != nil {
		c.fail(ctx, "sim_permission", kindOf(ctx, err), err)
		return "", false
	}
	if !granted {
		c.fail(ctx, "sim_permission", report.ErrPermission, nil)
		return "", false
	}
	info, err := c.sim.Info(ctx)
	if err != nil {
		c.fail(ctx, "sim_info", kindOf(ctx, err), err)
		return "", false
	}
	if info.PhoneNumber == "" {
		c.logger.Info(ctx, "sim reports no phone number",
			logger.String("session", c.sessionID),
			logger.String("carrier", info.CarrierName))
		return "", false
	}
	return info.PhoneNumber, true
}

func (c *Collector) recoverTo(ctx context.Context, op string, ok *bool) {
	if r := recover(); r != nil {
		*ok = false
		c.fail(ctx, op, report.ErrDeviceUnavailable, fmt.Errorf("%w: %v", ErrPanic, r))
	}
}

func (c *Collector) fail(ctx context.Context, op string, kind, err error) {
	c.reporter.Report(ctx, report.Failure{Component: component, Op: op, Kind: kind, Err: err, SessionID: c.sessionID})
}

func kindOf(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded), ctx.Err() != nil:
		return report.ErrCancelled
	case errors.Is(err, report.ErrPermission):
		return report.ErrPermission
	default:
		return report.ErrDeviceUnavailable
	}
}
