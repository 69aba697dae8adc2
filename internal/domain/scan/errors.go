package scan

import "errors"

// Sentinel kinds for scan session errors.
var (
	ErrTornDown        = errors.New("scan session torn down")
	ErrCancelled       = errors.New("scan cancelled")
	ErrAlreadyScanning = errors.New("scan already in progress")
	ErrNoCamera        = errors.New("no camera configured")
)
