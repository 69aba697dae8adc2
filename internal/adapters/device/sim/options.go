package sim

import (
	"time"

	"github.com/okian/scit/internal/domain/device"
)

// Option configures a Device.
type Option func(*Device)

// WithLatencyRange sets the simulated platform latency. Zero disables it.
func WithLatencyRange(minLatency, maxLatency time.Duration) Option {
	return func(d *Device) {
		if minLatency >= 0 && maxLatency >= minLatency {
			d.minLatency = minLatency
			d.maxLatency = maxLatency
		}
	}
}

// WithPermission sets the initial camera permission.
func WithPermission(st device.PermissionStatus) Option {
	return func(d *Device) { d.permission = st }
}

// WithPermissionName sets the camera permission from its config name:
// granted, denied, restricted or anything else for never asked.
func WithPermissionName(name string) Option {
	return func(d *Device) {
		switch name {
		case "granted":
			d.permission = device.PermissionStatus{Granted: true}
		case "denied":
			d.permission = device.PermissionStatus{Denied: true}
		case "restricted":
			d.permission = device.PermissionStatus{Restricted: true}
		default:
			d.permission = device.PermissionStatus{NeverAsked: true, Unknown: true}
		}
	}
}

// WithGrantOnSettings makes OpenAppSettings grant the camera.
func WithGrantOnSettings(grant bool) Option {
	return func(d *Device) { d.grantOnSettings = grant }
}

// WithPosition sets the reported coordinates.
func WithPosition(c device.Coordinates) Option {
	return func(d *Device) { d.position = c }
}

// WithLocationAvailable toggles location services.
func WithLocationAvailable(ok bool) Option {
	return func(d *Device) { d.locationAvailable = ok }
}

// WithAddresses sets the ranked geocoder answer.
func WithAddresses(addrs ...device.Address) Option {
	return func(d *Device) { d.addresses = append([]device.Address(nil), addrs...) }
}

// WithSIM installs a SIM card.
func WithSIM(info device.SimInfo, granted bool) Option {
	return func(d *Device) {
		d.simInfo = &info
		d.simGranted = granted
	}
}

// WithSeed reseeds the latency generator.
func WithSeed(seed int64) Option {
	return func(d *Device) { d.rng.Seed(seed) }
}
