// Package route names the screens of the app and the navigation contract.
package route

import "context"

// Name identifies a screen.
type Name string

// Screens, in the order a new technician meets them.
const (
	Root          Name = ""
	Home          Name = "home"
	Introduction  Name = "introduction"
	Scanner       Name = "qr-scanner"
	ProfileReview Name = "new-technic"
)

// Navigator moves the app to another screen.
type Navigator interface {
	Navigate(ctx context.Context, to Name) error
}
