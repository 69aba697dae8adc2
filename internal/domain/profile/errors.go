package profile

import "errors"

// Sentinel kinds for payload errors.
var (
	ErrMalformed = errors.New("malformed payload")
)
