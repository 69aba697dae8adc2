// Package nominatim reverse-geocodes coordinates against a
// Nominatim-compatible HTTP API.
package nominatim

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"

	"github.com/okian/scit/internal/domain/device"
	"github.com/okian/scit/pkg/logger"
)

const (
	defaultTimeout   = 5 * time.Second
	defaultUserAgent = "scit-onboarding/1.0"
	maxBodyBytes     = 1 << 20
)

// Client implements device.Geocoder.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
	locale    language.Tag
	logger    logger.Logger
}

// New creates a client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrBadBaseURL, baseURL)
	}
	c := &Client{
		baseURL:   u,
		http:      &http.Client{Timeout: defaultTimeout},
		userAgent: defaultUserAgent,
		locale:    language.English,
		logger:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type reverseResponse struct {
	Lat         string            `json:"lat"`
	Lon         string            `json:"lon"`
	Name        string            `json:"name"`
	DisplayName string            `json:"display_name"`
	Address     map[string]string `json:"address"`
	Error       string            `json:"error"`
}

// ReverseGeocode returns at most one candidate: the API's best match.
// "Unable to geocode" answers are an empty list, not an error.
func (c *Client) ReverseGeocode(ctx context.Context, lat, lon float64, opts device.GeocodeOptions) ([]device.Address, error) {
	q := url.Values{}
	q.Set("format", "jsonv2")
	q.Set("addressdetails", "1")
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	if opts.UseLocale {
		tag := opts.Locale
		if tag == language.Und {
			tag = c.locale
		}
		q.Set("accept-language", tag.String())
	}

	u := c.baseURL.JoinPath("reverse")
	u.RawQuery = q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRequest, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRequest, err)
	}
	defer resp.Body.Close()
	c.logger.Debug(ctx, "reverse geocode",
		logger.Int("status", resp.StatusCode),
		logger.Duration("took", time.Since(start)))

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil, fmt.Errorf("%w: status %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	var body reverseResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if body.Error != "" {
		return []device.Address{}, nil
	}

	a := toAddress(body)
	if a.Latitude == 0 && a.Longitude == 0 {
		a.Latitude, a.Longitude = lat, lon
	}
	out := []device.Address{a}
	if opts.MaxResults > 0 && len(out) > opts.MaxResults {
		out = out[:opts.MaxResults]
	}
	return out, nil
}

func toAddress(r reverseResponse) device.Address {
	a := device.Address{
		CountryCode:           strings.ToUpper(r.Address["country_code"]),
		CountryName:           r.Address["country"],
		PostalCode:            r.Address["postcode"],
		AdministrativeArea:    r.Address["state"],
		SubAdministrativeArea: first(r.Address, "county", "state_district"),
		Locality:              first(r.Address, "city", "town", "village", "hamlet", "municipality"),
		SubLocality:           first(r.Address, "suburb", "city_district", "borough", "neighbourhood", "quarter"),
		Thoroughfare:          first(r.Address, "road", "pedestrian", "footway", "street"),
		SubThoroughfare:       r.Address["house_number"],
	}
	if r.Name != "" {
		a.AreasOfInterest = []string{r.Name}
	}
	a.Latitude, _ = strconv.ParseFloat(r.Lat, 64)
	a.Longitude, _ = strconv.ParseFloat(r.Lon, 64)
	return a
}

func first(m map[string]string, keys ...string) string {
	for _, k := range keys {
		if v := m[k]; v != "" {
			return v
		}
	}
	return ""
}
