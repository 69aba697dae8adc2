package report

import "errors"

// Sentinel failure kinds. None of them is fatal to the process.
var (
	// ErrPermission: camera or SIM access denied.
	ErrPermission = errors.New("permission denied")
	// ErrDataFormat: scanned content is not structured data.
	ErrDataFormat = errors.New("malformed content")
	// ErrDeviceUnavailable: camera, location, geocoder or SIM failed.
	ErrDeviceUnavailable = errors.New("device unavailable")
	// ErrCancelled: the screen went away while work was pending.
	ErrCancelled = errors.New("cancelled")
)
