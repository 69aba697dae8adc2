package sim

import "errors"

var (
	ErrScanQueueFull       = errors.New("scan queue full")
	ErrCameraBusy          = errors.New("camera busy")
	ErrLocationUnavailable = errors.New("location services unavailable")
	ErrNoSIM               = errors.New("no sim card")
	ErrUnknownAction       = errors.New("scripted action not offered by dialog")
)
