// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/okian/scit/internal/adapters/device/sim"
	"github.com/okian/scit/internal/adapters/router"
	service "github.com/okian/scit/internal/app"
	"github.com/okian/scit/internal/domain/device"
	"github.com/okian/scit/internal/domain/profile"
	"github.com/okian/scit/internal/domain/route"
)

// Onboarding is the app session the handlers drive.
type Onboarding interface {
	OpenScanner(ctx context.Context, prompter device.Prompter) (service.FlowResult, error)
	CloseScanner(ctx context.Context)
	Scanner() service.ScannerStatus

	OpenReview(ctx context.Context) (service.ReviewSnapshot, error)
	Review() (service.ReviewSnapshot, error)
	WaitReview(ctx context.Context) (service.ReviewSnapshot, error)

	Profile(ctx context.Context) (profile.Payload, error)
	Route() (service.RouteStatus, error)
	Navigate(ctx context.Context, to route.Name) error
}

// Feeder hands scripted camera answers to the simulated handset.
type Feeder interface {
	QueueScan(content string) error
	QueueBackOut() error
	DrainScans()
}

// Server wires HTTP routes for the onboarding API.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	scannerHandler *ScannerHandler
	reviewHandler  *ReviewHandler
	profileHandler *ProfileHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(app Onboarding, feeder Feeder, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:  NewHealthHandler(),
		statsHandler:   NewStatsHandler(statsProvider),
		scannerHandler: NewScannerHandler(app, feeder),
		reviewHandler:  NewReviewHandler(app),
		profileHandler: NewProfileHandler(app),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.Handle("/metrics", s.healthHandler.MetricsHandler())
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/scanner", MetricsMiddleware(s.scannerHandler.HandleScanner, "scanner"))
	mux.HandleFunc("/review", MetricsMiddleware(s.reviewHandler.HandleReview, "review"))
	mux.HandleFunc("/profile", MetricsMiddleware(s.profileHandler.HandleProfile, "profile"))
	mux.HandleFunc("/route", MetricsMiddleware(s.profileHandler.HandleRoute, "route"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

func methodNotAllowed(w http.ResponseWriter, allow string) {
	w.Header().Set("Allow", allow)
	writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
}

// writeServiceError maps service sentinels to HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, "not_started", err)
	case errors.Is(err, service.ErrScannerBusy):
		writeError(w, http.StatusConflict, "busy", err)
	case errors.Is(err, service.ErrNoReview):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, router.ErrUnknownRoute):
		writeError(w, http.StatusBadRequest, "unknown_route", err)
	case errors.Is(err, sim.ErrScanQueueFull):
		writeError(w, http.StatusTooManyRequests, "backpressure", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}
