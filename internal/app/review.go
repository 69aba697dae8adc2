package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/scit/internal/domain/device"
	"github.com/okian/scit/internal/domain/enrich"
	"github.com/okian/scit/internal/domain/profile"
	"github.com/okian/scit/internal/domain/report"
	"github.com/okian/scit/pkg/logger"
	"github.com/okian/scit/pkg/metrics"
)

// ReviewView is the display model of the profile review screen. The
// enrichment fields fill in asynchronously after the first render.
type ReviewView struct {
	mu       sync.RWMutex
	id       string
	payload  profile.Payload
	address  *device.Address
	phone    *string
	complete bool
}

// SetAddress implements enrich.Sink.
func (v *ReviewView) SetAddress(a device.Address) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.address = &a
}

// SetPhoneNumber implements enrich.Sink.
func (v *ReviewView) SetPhoneNumber(n string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.phone = &n
}

func (v *ReviewView) markComplete() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.complete = true
}

// ReviewSnapshot is a copy of the view at one point in time.
type ReviewSnapshot struct {
	ID          string          `json:"id"`
	Payload     profile.Payload `json:"payload"`
	Address     *device.Address `json:"address,omitempty"`
	AddressLine string          `json:"address_line,omitempty"`
	PhoneNumber *string         `json:"phone_number,omitempty"`
	Complete    bool            `json:"complete"`
}

// Snapshot copies the view.
func (v *ReviewView) Snapshot() ReviewSnapshot {
	v.mu.RLock()
	defer v.mu.RUnlock()
	s := ReviewSnapshot{ID: v.id, Payload: v.payload.Clone(), Complete: v.complete}
	if v.address != nil {
		a := *v.address
		a.AreasOfInterest = append([]string(nil), v.address.AreasOfInterest...)
		s.Address = &a
		s.AddressLine = a.Line()
	}
	if v.phone != nil {
		n := *v.phone
		s.PhoneNumber = &n
	}
	return s
}

// ReviewScreen shows the stored profile and enriches it with device facts.
type ReviewScreen struct {
	store     profile.Store
	collector func(id string) *enrich.Collector
	logger    logger.Logger

	view   *ReviewView
	once   sync.Once
	run    *enrich.Run
	cancel context.CancelFunc
	done   chan struct{}
}

// ReviewConfig wires a ReviewScreen.
type ReviewConfig struct {
	Store          profile.Store
	Locator        device.Locator
	Geocoder       device.Geocoder
	SIM            device.SIM
	GeocodeOptions device.GeocodeOptions
	Reporter       report.Reporter
	Logger         logger.Logger
}

// NewReviewScreen creates the screen. Nothing runs until Init.
func NewReviewScreen(c ReviewConfig) *ReviewScreen {
	if c.Logger == nil {
		c.Logger = logger.Nop()
	}
	if c.Store == nil {
		c.Store = profile.NewInMemoryStore()
	}
	opts := c.GeocodeOptions
	return &ReviewScreen{
		store: c.Store,
		collector: func(id string) *enrich.Collector {
			return enrich.NewCollector(c.Locator, c.Geocoder, c.SIM,
				enrich.WithReporter(c.Reporter),
				enrich.WithLogger(c.Logger),
				enrich.WithGeocodeOptions(opts),
				enrich.WithSessionID(id))
		},
		logger: c.Logger,
		view:   &ReviewView{id: uuid.NewString()},
		done:   make(chan struct{}),
	}
}

// ID identifies this visit to the screen.
func (r *ReviewScreen) ID() string { return r.view.id }

// Init reads the stored profile and starts enrichment in the background.
// The enrichment outlives ctx until Close. Later calls are no-ops.
func (r *ReviewScreen) Init(ctx context.Context) ReviewSnapshot {
	r.once.Do(func() {
		p := r.store.Read(ctx)
		r.view.mu.Lock()
		r.view.payload = p
		r.view.mu.Unlock()

		runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		r.cancel = cancel
		start := time.Now()
		r.run = r.collector(r.view.id).Start(runCtx, r.view)
		r.logger.Info(ctx, "profile review opened", logger.String("review", r.view.id), logger.Int("fields", len(p)))

		go func() {
			defer close(r.done)
			<-r.run.Done()
			res, _ := r.run.Result()
			metrics.RecordEnrichment("address", presence(res.ResolvedAddress != nil))
			metrics.RecordEnrichment("phone_number", presence(res.PhoneNumber != nil))
			metrics.RecordEnrichmentDuration(float64(time.Since(start).Milliseconds()))
			r.view.markComplete()
		}()
	})
	return r.view.Snapshot()
}

func presence(ok bool) string {
	if ok {
		return "resolved"
	}
	return "absent"
}

// View returns the current display model.
func (r *ReviewScreen) View() ReviewSnapshot { return r.view.Snapshot() }

// Wait blocks until enrichment finished, the screen closed or ctx is done.
func (r *ReviewScreen) Wait(ctx context.Context) (ReviewSnapshot, error) {
	select {
	case <-r.done:
		return r.view.Snapshot(), nil
	case <-ctx.Done():
		return r.view.Snapshot(), ctx.Err()
	}
}

// Close abandons pending enrichment.
func (r *ReviewScreen) Close() {
	r.once.Do(func() { close(r.done) })
	if r.cancel != nil {
		r.cancel()
	}
}
