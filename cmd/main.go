package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"golang.org/x/text/language"

	"github.com/okian/scit/internal/adapters/device/nominatim"
	"github.com/okian/scit/internal/adapters/device/sim"
	"github.com/okian/scit/internal/adapters/http/api"
	"github.com/okian/scit/internal/adapters/http/site"
	"github.com/okian/scit/internal/adapters/http/swagger"
	"github.com/okian/scit/internal/adapters/reporter"
	"github.com/okian/scit/internal/adapters/router"
	app "github.com/okian/scit/internal/app"
	"github.com/okian/scit/internal/config"
	"github.com/okian/scit/internal/domain/device"
	"github.com/okian/scit/pkg/logger"
	"github.com/okian/scit/pkg/metrics"
)

// HTTP server timeout constants. The write timeout covers a scanner flow
// that waits on the simulated camera.
const (
	readTimeout           = 10 * time.Second
	writeTimeout          = 60 * time.Second
	idleTimeout           = 60 * time.Second
	readHeaderTimeout     = 5 * time.Second
	shutdownTimeout       = 30 * time.Second
	systemMetricsInterval = 10 * time.Second
)

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		// Logger isn't available yet
		_, _ = os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		_, _ = os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	log := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	dev := newDevice(cfg.Device)
	caps, err := capabilities(cfg.Geocoder, dev, log)
	if err != nil {
		log.Error(ctx, "geocoder setup failed", logger.Error(err))
		return
	}

	svc := newService(cfg, caps, log)
	if err := svc.Start(ctx); err != nil {
		log.Error(ctx, "failed to start service", logger.Error(err))
		return
	}
	defer svc.Stop()

	go startSystemMetricsUpdater(ctx)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newMux(ctx, svc, dev),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr), logger.String("geocoder", cfg.Geocoder.Provider))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "HTTP server failed", logger.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	// Releases the camera so in-flight scanner requests can finish.
	svc.Stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
}

// newDevice builds the simulated handset from the device section.
func newDevice(c config.Device) *sim.Device {
	opts := []sim.Option{
		sim.WithLatencyRange(time.Duration(c.LatencyMinMS)*time.Millisecond, time.Duration(c.LatencyMaxMS)*time.Millisecond),
		sim.WithPermissionName(c.Permission),
		sim.WithPosition(device.Coordinates{Latitude: c.Latitude, Longitude: c.Longitude, Accuracy: c.Accuracy}),
		sim.WithLocationAvailable(c.LocationAvailable),
	}
	if a := c.Address; a.Locality != "" || a.Thoroughfare != "" {
		opts = append(opts, sim.WithAddresses(device.Address{
			CountryCode:        strings.ToUpper(a.CountryCode),
			CountryName:        a.CountryName,
			PostalCode:         a.PostalCode,
			AdministrativeArea: a.AdministrativeArea,
			Locality:           a.Locality,
			Thoroughfare:       a.Thoroughfare,
			SubThoroughfare:    a.SubThoroughfare,
		}))
	}
	if c.SIM.PhoneNumber != "" || c.SIM.CarrierName != "" {
		opts = append(opts, sim.WithSIM(device.SimInfo{
			PhoneNumber: c.SIM.PhoneNumber,
			CarrierName: c.SIM.CarrierName,
			CountryCode: c.SIM.CountryCode,
		}, c.SIM.ReadGranted))
	}
	return sim.New(opts...)
}

// capabilities exposes the handset, swapping in the Nominatim geocoder
// when configured.
func capabilities(c config.Geocoder, dev *sim.Device, log logger.Logger) (device.Capabilities, error) {
	caps := dev.Capabilities()
	switch c.Provider {
	case "sim":
		return caps, nil
	case "nominatim":
		client, err := nominatim.New(c.BaseURL,
			nominatim.WithTimeout(c.Timeout()),
			nominatim.WithUserAgent(c.UserAgent),
			nominatim.WithLocale(language.Make(c.Locale)),
			nominatim.WithLogger(log.Named("nominatim")),
		)
		if err != nil {
			return device.Capabilities{}, fmt.Errorf("nominatim: %w", err)
		}
		caps.Geocoder = client
		return caps, nil
	default:
		return device.Capabilities{}, fmt.Errorf("%w: geocoder.provider %q", config.ErrInvalidConfig, c.Provider)
	}
}

func newService(cfg *config.Config, caps device.Capabilities, log logger.Logger) *app.Service {
	return app.New(
		app.WithDevices(caps),
		app.WithLogger(log),
		app.WithReporter(reporter.New(log.Named("failures"))),
		app.WithRouter(router.New(router.WithLogger(log.Named("router")))),
		app.WithRetryPrompt(cfg.Scanner.RetryPrompt),
		app.WithGeocodeOptions(device.GeocodeOptions{
			UseLocale:  true,
			Locale:     language.Make(cfg.Geocoder.Locale),
			MaxResults: cfg.Geocoder.MaxResults,
		}),
	)
}

// newMux registers every HTTP route. API routes win over the landing page.
func newMux(ctx context.Context, svc *app.Service, dev *sim.Device) *http.ServeMux {
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	site.Register(ctx, mux)
	api.NewServer(svc, dev, svc).Register(ctx, mux)
	return mux
}

// startSystemMetricsUpdater refreshes the process gauges until ctx ends.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		updateSystemMetrics()
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
}
