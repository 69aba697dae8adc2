// Package device declares the device capabilities the onboarding flow
// depends on: camera and its permission, location, reverse geocoding, SIM
// access and modal prompts.
//
// Every call may block on the platform and may fail independently. Callers
// pass a context so a closing screen can abandon pending work.
package device

import (
	"context"
	"strings"

	"golang.org/x/text/language"
)

// PermissionStatus is the raw camera permission answer reported by the
// platform. More than one flag may be set; classification is left to the
// permission gate.
type PermissionStatus struct {
	Granted    bool `json:"granted"`
	Denied     bool `json:"denied"`
	Restricted bool `json:"restricted"`
	NeverAsked bool `json:"never_asked"`
	Unknown    bool `json:"unknown"`
}

// CameraPermissions queries camera access and opens the OS app settings.
type CameraPermissions interface {
	// CheckPermission returns the current status. With force set the
	// platform is asked again instead of returning a cached answer.
	CheckPermission(ctx context.Context, force bool) (PermissionStatus, error)

	// OpenAppSettings deep-links into the OS settings page of the app.
	OpenAppSettings(ctx context.Context) error
}

// ScanResult is the single-shot decode answer of the camera.
type ScanResult struct {
	HasContent bool   `json:"has_content"`
	Content    string `json:"content"`
}

// Camera engages the camera for one decode and releases it.
type Camera interface {
	// StartScan blocks until a code is decoded, the user backs out
	// (HasContent false) or ctx is done.
	StartScan(ctx context.Context) (ScanResult, error)

	// StopScan releases the camera. It must be safe to call when no scan
	// is running.
	StopScan(ctx context.Context) error
}

// Coordinates is a device position fix.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Accuracy  float64 `json:"accuracy,omitempty"`
}

// Locator acquires the current device position.
type Locator interface {
	CurrentPosition(ctx context.Context) (Coordinates, error)
}

// GeocodeOptions tunes reverse geocoding.
type GeocodeOptions struct {
	// UseLocale asks for results formatted for Locale.
	UseLocale bool
	Locale    language.Tag
	// MaxResults caps the number of ranked candidates. Zero means no cap.
	MaxResults int
}

// Address is one reverse geocoding candidate.
type Address struct {
	CountryCode           string   `json:"country_code,omitempty"`
	CountryName           string   `json:"country_name,omitempty"`
	PostalCode            string   `json:"postal_code,omitempty"`
	AdministrativeArea    string   `json:"administrative_area,omitempty"`
	SubAdministrativeArea string   `json:"sub_administrative_area,omitempty"`
	Locality              string   `json:"locality,omitempty"`
	SubLocality           string   `json:"sub_locality,omitempty"`
	Thoroughfare          string   `json:"thoroughfare,omitempty"`
	SubThoroughfare       string   `json:"sub_thoroughfare,omitempty"`
	AreasOfInterest       []string `json:"areas_of_interest,omitempty"`
	Latitude              float64  `json:"latitude"`
	Longitude             float64  `json:"longitude"`
}

// Line renders the address as a single human readable line, skipping
// empty parts.
func (a Address) Line() string {
	street := strings.TrimSpace(strings.Join(nonEmpty(a.Thoroughfare, a.SubThoroughfare), " "))
	region := strings.TrimSpace(strings.Join(nonEmpty(a.AdministrativeArea, a.PostalCode), " "))
	return strings.Join(nonEmpty(street, a.SubLocality, a.Locality, region, a.CountryName), ", ")
}

func nonEmpty(parts ...string) []string {
	out := parts[:0:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Geocoder translates coordinates into ranked address candidates, best
// match first.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, lat, lon float64, opts GeocodeOptions) ([]Address, error)
}

// SimInfo is what the SIM reader exposes.
type SimInfo struct {
	PhoneNumber string `json:"phone_number,omitempty"`
	CarrierName string `json:"carrier_name,omitempty"`
	CountryCode string `json:"country_code,omitempty"`
	MCC         string `json:"mcc,omitempty"`
	MNC         string `json:"mnc,omitempty"`
}

// SIM reads SIM card information after the user grants read access.
type SIM interface {
	// RequestReadPermission asks the user for SIM read access. It returns
	// false when the user declines.
	RequestReadPermission(ctx context.Context) (bool, error)
	Info(ctx context.Context) (SimInfo, error)
}

// Action is one button of a Dialog.
type Action struct {
	ID   string `json:"id"`
	Text string `json:"text"`
	// Role "cancel" marks the action taken when the dialog is dismissed.
	Role string `json:"role,omitempty"`
}

// RoleCancel marks the dismiss action of a dialog.
const RoleCancel = "cancel"

// Dialog is a blocking modal with a fixed set of actions.
type Dialog struct {
	ID      string   `json:"id"`
	Header  string   `json:"header"`
	Message string   `json:"message"`
	Actions []Action `json:"actions"`
}

// CancelAction returns the ID of the action with RoleCancel, or "" if the
// dialog has none.
func (d Dialog) CancelAction() string {
	for _, a := range d.Actions {
		if a.Role == RoleCancel {
			return a.ID
		}
	}
	return ""
}

// Prompter shows a dialog and waits for the user's choice. It returns the
// chosen action ID.
type Prompter interface {
	Present(ctx context.Context, d Dialog) (string, error)
}

// Capabilities bundles every device port the app needs.
type Capabilities struct {
	Permissions CameraPermissions
	Camera      Camera
	Locator     Locator
	Geocoder    Geocoder
	SIM         SIM
}
