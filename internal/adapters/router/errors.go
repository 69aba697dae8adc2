package router

import "errors"

var ErrUnknownRoute = errors.New("unknown route")
