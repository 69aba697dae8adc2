package nominatim

import "errors"

var (
	ErrBadBaseURL       = errors.New("invalid geocoder base url")
	ErrRequest          = errors.New("geocoder request failed")
	ErrUnexpectedStatus = errors.New("geocoder returned unexpected status")
	ErrDecode           = errors.New("geocoder response undecodable")
)
