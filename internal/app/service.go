// Package service wires the onboarding screens into one app session and
// exposes them to the HTTP API.
package service

import (
	"context"
	"sync"

	"github.com/okian/scit/internal/adapters/router"
	"github.com/okian/scit/internal/domain/device"
	"github.com/okian/scit/internal/domain/profile"
	"github.com/okian/scit/internal/domain/report"
	"github.com/okian/scit/internal/domain/route"
	"github.com/okian/scit/pkg/logger"
	"github.com/okian/scit/pkg/metrics"
)

// Router is the navigation collaborator of the service.
type Router interface {
	route.Navigator
	Current() route.Name
	History() []route.Name
}

// Service holds the state of one app session: the profile store, the
// router and the screen currently shown.
type Service struct {
	mu sync.RWMutex

	devices     device.Capabilities
	router      Router
	store       profile.Store
	reporter    report.Reporter
	logger      logger.Logger
	retryPrompt bool
	geocodeOpts device.GeocodeOptions

	scanner *ScannerScreen
	review  *ReviewScreen
	started bool
}

// New constructs a Service. Unset collaborators get in-memory defaults on
// Start.
func New(opts ...Option) *Service {
	s := &Service{
		retryPrompt: true,
		geocodeOpts: device.GeocodeOptions{UseLocale: true, MaxResults: 1},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start prepares the app session.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	if s.reporter == nil {
		s.reporter = report.Nop{}
	}
	if s.store == nil {
		s.store = profile.NewInMemoryStore()
	}
	if s.router == nil {
		s.router = router.New(router.WithLogger(s.logger))
	}

	s.started = true
	s.logger.Info(ctx, "onboarding service started",
		logger.String("route", string(s.router.Current())),
		logger.Bool("retry_prompt", s.retryPrompt),
	)
	return nil
}

// Stop closes any open screen.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	scanner, review := s.scanner, s.review
	s.scanner, s.review = nil, nil
	s.started = false
	s.mu.Unlock()

	ctx := context.Background()
	if scanner != nil {
		scanner.Close(ctx)
	}
	if review != nil {
		review.Close()
	}
	s.logger.Info(ctx, "onboarding service stopped")
}

// Navigate implements route.Navigator. Leaving the scanner screen tears it
// down; arriving on the profile review opens it.
func (s *Service) Navigate(ctx context.Context, to route.Name) error {
	r, err := s.routerIfStarted()
	if err != nil {
		return err
	}
	from := r.Current()
	if err := r.Navigate(ctx, to); err != nil {
		return err
	}
	cur := r.Current()

	if from == route.Scanner && cur != route.Scanner {
		s.CloseScanner(ctx)
	}
	if from == route.ProfileReview && cur != route.ProfileReview {
		s.closeReview()
	}
	if cur == route.ProfileReview && from != route.ProfileReview {
		s.openReview(ctx)
	}
	return nil
}

func (s *Service) routerIfStarted() (Router, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.router, nil
}

// OpenScanner shows the scanner screen and runs its flow with the given
// prompter until the flow ends. Only one flow runs at a time.
func (s *Service) OpenScanner(ctx context.Context, prompter device.Prompter) (FlowResult, error) {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return FlowResult{}, ErrNotStarted
	}
	if s.scanner != nil && s.scanner.Running() {
		s.mu.Unlock()
		return FlowResult{Step: StepBusy}, ErrScannerBusy
	}
	screen := NewScannerScreen(ScannerConfig{
		Permissions: s.devices.Permissions,
		Camera:      s.devices.Camera,
		Prompter:    prompter,
		Store:       s.store,
		Navigator:   s,
		Reporter:    s.reporter,
		Logger:      s.logger.Named("scanner"),
		RetryPrompt: s.retryPrompt,
	})
	prev := s.scanner
	s.scanner = screen
	current := s.router.Current()
	s.mu.Unlock()

	if prev != nil {
		prev.Close(ctx)
	}
	if current != route.Scanner {
		if err := s.Navigate(ctx, route.Scanner); err != nil {
			return FlowResult{}, err
		}
	}

	res := screen.PresentEntryPrompt(ctx)
	metrics.RecordFlowResult(string(res.Step))
	s.logger.Info(ctx, "scanner flow finished",
		logger.String("step", string(res.Step)),
		logger.String("session", res.SessionID),
		logger.Int("attempts", res.Attempts))
	return res, nil
}

// CloseScanner tears the scanner screen down, releasing the camera.
func (s *Service) CloseScanner(ctx context.Context) {
	s.mu.Lock()
	screen := s.scanner
	s.scanner = nil
	s.mu.Unlock()

	if screen != nil {
		screen.Close(ctx)
	}
}

// ScannerStatus describes the scanner screen.
type ScannerStatus struct {
	Open    bool   `json:"open"`
	Running bool   `json:"running"`
	Active  bool   `json:"active"`
	State   string `json:"state"`
}

// Scanner returns the scanner screen status.
func (s *Service) Scanner() ScannerStatus {
	s.mu.RLock()
	screen := s.scanner
	s.mu.RUnlock()

	if screen == nil {
		return ScannerStatus{State: "idle"}
	}
	return ScannerStatus{
		Open:    true,
		Running: screen.Running(),
		Active:  screen.Active(),
		State:   screen.State().String(),
	}
}

// OpenReview shows the profile review. On the review already, it reopens
// it and enrichment starts over.
func (s *Service) OpenReview(ctx context.Context) (ReviewSnapshot, error) {
	r, err := s.routerIfStarted()
	if err != nil {
		return ReviewSnapshot{}, err
	}
	if r.Current() != route.ProfileReview {
		if err := s.Navigate(ctx, route.ProfileReview); err != nil {
			return ReviewSnapshot{}, err
		}
		return s.Review()
	}
	return s.openReview(ctx), nil
}

func (s *Service) openReview(ctx context.Context) ReviewSnapshot {
	screen := NewReviewScreen(ReviewConfig{
		Store:          s.store,
		Locator:        s.devices.Locator,
		Geocoder:       s.devices.Geocoder,
		SIM:            s.devices.SIM,
		GeocodeOptions: s.geocodeOpts,
		Reporter:       s.reporter,
		Logger:         s.logger.Named("review"),
	})
	s.mu.Lock()
	prev := s.review
	s.review = screen
	s.mu.Unlock()

	if prev != nil {
		prev.Close()
	}
	return screen.Init(ctx)
}

func (s *Service) closeReview() {
	s.mu.Lock()
	screen := s.review
	s.review = nil
	s.mu.Unlock()

	if screen != nil {
		screen.Close()
	}
}

// Review returns the current profile review view.
func (s *Service) Review() (ReviewSnapshot, error) {
	s.mu.RLock()
	screen := s.review
	s.mu.RUnlock()

	if screen == nil {
		return ReviewSnapshot{}, ErrNoReview
	}
	return screen.View(), nil
}

// WaitReview blocks until the open review finished enrichment.
func (s *Service) WaitReview(ctx context.Context) (ReviewSnapshot, error) {
	s.mu.RLock()
	screen := s.review
	s.mu.RUnlock()

	if screen == nil {
		return ReviewSnapshot{}, ErrNoReview
	}
	return screen.Wait(ctx)
}

// Profile returns the stored payload.
func (s *Service) Profile(ctx context.Context) (profile.Payload, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.store.Read(ctx), nil
}

// RouteStatus is the navigation state.
type RouteStatus struct {
	Current route.Name   `json:"current"`
	History []route.Name `json:"history"`
}

// Route returns the navigation state.
func (s *Service) Route() (RouteStatus, error) {
	r, err := s.routerIfStarted()
	if err != nil {
		return RouteStatus{}, err
	}
	return RouteStatus{Current: r.Current(), History: r.History()}, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":       s.started,
		"scannerOpen":   s.scanner != nil,
		"reviewOpen":    s.review != nil,
		"scannerActive": s.scanner != nil && s.scanner.Active(),
	}
	if s.started {
		stats["route"] = string(s.router.Current())
	}
	return stats
}
