// Package config defines the process configuration and its defaults.
package config

import "time"

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects text or json log lines.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	Scanner  Scanner  `koanf:"scanner"`
	Geocoder Geocoder `koanf:"geocoder"`
	Device   Device   `koanf:"device"`
}

// Scanner tunes the scanner screen.
type Scanner struct {
	// RetryPrompt shows the "Invalid invitation" notice after a code that
	// does not decode. When off the screen stays put silently.
	RetryPrompt bool `koanf:"retry_prompt"`
}

// Geocoder selects and tunes the reverse geocoder.
type Geocoder struct {
	// Provider is "sim" or "nominatim".
	Provider   string `koanf:"provider"`
	BaseURL    string `koanf:"base_url"`
	TimeoutMS  int    `koanf:"timeout_ms"`
	Locale     string `koanf:"locale"`
	MaxResults int    `koanf:"max_results"`
	UserAgent  string `koanf:"user_agent"`
}

// Timeout returns TimeoutMS as a duration.
func (g Geocoder) Timeout() time.Duration {
	return time.Duration(g.TimeoutMS) * time.Millisecond
}

// Device describes the simulated handset.
type Device struct {
	// Permission is the camera permission the OS reports:
	// granted, denied, restricted or unknown.
	Permission string `koanf:"permission"`

	// LatencyMinMS and LatencyMaxMS bound the simulated platform call latency.
	LatencyMinMS int `koanf:"latency_min_ms"`
	LatencyMaxMS int `koanf:"latency_max_ms"`

	Latitude  float64 `koanf:"latitude"`
	Longitude float64 `koanf:"longitude"`
	Accuracy  float64 `koanf:"accuracy"`

	// LocationAvailable=false makes every position request fail.
	LocationAvailable bool `koanf:"location_available"`

	SIM     SIM     `koanf:"sim"`
	Address Address `koanf:"address"`
}

// SIM describes the simulated SIM card.
type SIM struct {
	ReadGranted bool   `koanf:"read_granted"`
	PhoneNumber string `koanf:"phone_number"`
	CarrierName string `koanf:"carrier_name"`
	CountryCode string `koanf:"country_code"`
}

// Address is what the simulated geocoder answers for any coordinate.
// An empty Locality and Thoroughfare means no candidates.
type Address struct {
	CountryCode        string `koanf:"country_code"`
	CountryName        string `koanf:"country_name"`
	PostalCode         string `koanf:"postal_code"`
	AdministrativeArea string `koanf:"administrative_area"`
	Locality           string `koanf:"locality"`
	Thoroughfare       string `koanf:"thoroughfare"`
	SubThoroughfare    string `koanf:"sub_thoroughfare"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:  "info",
		LogFormat: "text",
		Addr:      ":9080",
		Scanner: Scanner{
			RetryPrompt: true,
		},
		Geocoder: Geocoder{
			Provider:   "sim",
			BaseURL:    "https://nominatim.openstreetmap.org",
			TimeoutMS:  5000,
			Locale:     "en",
			MaxResults: 1,
			UserAgent:  "scit-onboarding/1.0",
		},
		Device: Device{
			Permission:        "granted",
			LatencyMinMS:      20,
			LatencyMaxMS:      80,
			Latitude:          52.5200,
			Longitude:         13.4050,
			Accuracy:          12,
			LocationAvailable: true,
			SIM: SIM{
				ReadGranted: true,
				PhoneNumber: "+4915112345678",
				CarrierName: "Sim Mobile",
				CountryCode: "de",
			},
			Address: Address{
				CountryCode:        "DE",
				CountryName:        "Germany",
				PostalCode:         "10117",
				AdministrativeArea: "Berlin",
				Locality:           "Berlin",
				Thoroughfare:       "Unter den Linden",
				SubThoroughfare:    "1",
			},
		},
	}
}
