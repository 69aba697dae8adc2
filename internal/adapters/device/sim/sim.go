// Package sim is an in-process handset: camera, permissions, location,
// geocoding and SIM, with simulated platform latency. The host drives it by
// queueing scan answers and flipping its facts.
package sim

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/okian/scit/internal/domain/device"
)

const (
	defaultMinLatency = 20 * time.Millisecond
	defaultMaxLatency = 80 * time.Millisecond
	defaultRandomSeed = 42
	scanQueueSize     = 16
)

// Device implements every capability in device.Capabilities.
type Device struct {
	mu sync.Mutex

	permission      device.PermissionStatus
	permissionErr   error
	grantOnSettings bool
	settingsOpened  int

	scans     chan device.ScanResult
	cameraErr error
	engaged   bool
	stop      chan struct{}
	stops     int

	position          device.Coordinates
	locationAvailable bool
	addresses         []device.Address
	geocodeErr        error

	simGranted bool
	simInfo    *device.SimInfo

	minLatency time.Duration
	maxLatency time.Duration
	rng        *rand.Rand
}

// New creates a device that grants the camera, knows its position and has
// no SIM until configured.
func New(opts ...Option) *Device {
	d := &Device{
		permission:        device.PermissionStatus{Granted: true},
		scans:             make(chan device.ScanResult, scanQueueSize),
		locationAvailable: true,
		minLatency:        defaultMinLatency,
		maxLatency:        defaultMaxLatency,
		rng:               rand.New(rand.NewSource(defaultRandomSeed)), //nolint:gosec // deterministic latency
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Capabilities exposes the device through the domain contracts.
func (d *Device) Capabilities() device.Capabilities {
	return device.Capabilities{
		Permissions: d,
		Camera:      d,
		Locator:     d,
		Geocoder:    d,
		SIM:         d,
	}
}

func (d *Device) wait(ctx context.Context) error {
	d.mu.Lock()
	latency := d.minLatency
	if span := d.maxLatency - d.minLatency; span > 0 {
		latency += time.Duration(d.rng.Int63n(int64(span)))
	}
	d.mu.Unlock()
	if latency <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(latency)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("context cancelled: %w", ctx.Err())
	case <-t.C:
		return nil
	}
}

// CheckPermission returns the current camera permission.
func (d *Device) CheckPermission(ctx context.Context, _ bool) (device.PermissionStatus, error) {
	if err := d.wait(ctx); err != nil {
		return device.PermissionStatus{}, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.permission, d.permissionErr
}

// OpenAppSettings records the deep link. With grant-on-settings the user
// is assumed to enable the camera there.
func (d *Device) OpenAppSettings(ctx context.Context) error {
	if err := d.wait(ctx); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.settingsOpened++
	if d.grantOnSettings {
		d.permission = device.PermissionStatus{Granted: true}
	}
	return nil
}

// SetPermission replaces the camera permission.
func (d *Device) SetPermission(st device.PermissionStatus) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.permission = st
}

// SettingsOpened counts OpenAppSettings calls.
func (d *Device) SettingsOpened() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.settingsOpened
}

// QueueScan makes the next StartScan return content.
func (d *Device) QueueScan(content string) error {
	return d.queue(device.ScanResult{HasContent: true, Content: content})
}

// QueueBackOut makes the next StartScan return no content.
func (d *Device) QueueBackOut() error {
	return d.queue(device.ScanResult{})
}

func (d *Device) queue(r device.ScanResult) error {
	select {
	case d.scans <- r:
		return nil
	default:
		return ErrScanQueueFull
	}
}

// DrainScans drops every queued answer.
func (d *Device) DrainScans() {
	for {
		select {
		case <-d.scans:
		default:
			return
		}
	}
}

// StartScan engages the camera and waits for a queued answer. StopScan
// releases it with no content.
func (d *Device) StartScan(ctx context.Context) (device.ScanResult, error) {
	if err := d.wait(ctx); err != nil {
		return device.ScanResult{}, err
	}

	d.mu.Lock()
	if d.cameraErr != nil {
		err := d.cameraErr
		d.mu.Unlock()
		return device.ScanResult{}, err
	}
	if d.engaged {
		d.mu.Unlock()
		return device.ScanResult{}, ErrCameraBusy
	}
	stop := make(chan struct{})
	d.stop = stop
	d.engaged = true
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		if d.stop == stop {
			d.stop = nil
			d.engaged = false
		}
		d.mu.Unlock()
	}()

	select {
	case r := <-d.scans:
		return r, nil
	case <-stop:
		return device.ScanResult{}, nil
	case <-ctx.Done():
		return device.ScanResult{}, ctx.Err()
	}
}

// StopScan releases the camera. It is safe to call when idle.
func (d *Device) StopScan(context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stops++
	if d.stop != nil {
		close(d.stop)
		d.stop = nil
	}
	d.engaged = false
	return nil
}

// Engaged reports whether a StartScan holds the camera.
func (d *Device) Engaged() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.engaged
}

// Stops counts StopScan calls.
func (d *Device) Stops() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stops
}

// SetCameraError makes StartScan fail until cleared with nil.
func (d *Device) SetCameraError(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cameraErr = err
}

// CurrentPosition returns the configured position.
func (d *Device) CurrentPosition(ctx context.Context) (device.Coordinates, error) {
	if err := d.wait(ctx); err != nil {
		return device.Coordinates{}, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.locationAvailable {
		return device.Coordinates{}, ErrLocationUnavailable
	}
	return d.position, nil
}

// SetLocationAvailable toggles location services.
func (d *Device) SetLocationAvailable(ok bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.locationAvailable = ok
}

// ReverseGeocode answers the configured addresses for any coordinate, at
// most opts.MaxResults of them.
func (d *Device) ReverseGeocode(ctx context.Context, lat, lon float64, opts device.GeocodeOptions) ([]device.Address, error) {
	if err := d.wait(ctx); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.geocodeErr != nil {
		return nil, d.geocodeErr
	}

	n := len(d.addresses)
	if opts.MaxResults > 0 && opts.MaxResults < n {
		n = opts.MaxResults
	}
	out := make([]device.Address, n)
	for i := range out {
		a := d.addresses[i]
		a.Latitude, a.Longitude = lat, lon
		out[i] = a
	}
	return out, nil
}

// SetGeocodeError makes ReverseGeocode fail until cleared with nil.
func (d *Device) SetGeocodeError(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.geocodeErr = err
}

// RequestReadPermission answers the configured SIM grant.
func (d *Device) RequestReadPermission(ctx context.Context) (bool, error) {
	if err := d.wait(ctx); err != nil {
		return false, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.simGranted, nil
}

// Info returns the SIM facts.
func (d *Device) Info(ctx context.Context) (device.SimInfo, error) {
	if err := d.wait(ctx); err != nil {
		return device.SimInfo{}, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.simInfo == nil {
		return device.SimInfo{}, ErrNoSIM
	}
	return *d.simInfo, nil
}

// SetSIM replaces the SIM. A nil info removes the card.
func (d *Device) SetSIM(info *device.SimInfo, granted bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.simInfo = info
	d.simGranted = granted
}
