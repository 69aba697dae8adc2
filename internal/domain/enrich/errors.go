package enrich

import "errors"

var (
	ErrNoLocator  = errors.New("no location service")
	ErrNoGeocoder = errors.New("no geocoder")
	ErrNoSIM      = errors.New("no sim service")
	ErrPanic      = errors.New("device call panicked")
)
