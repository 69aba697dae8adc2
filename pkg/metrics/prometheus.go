// Package metrics provides Prometheus metrics for the onboarding flow.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every collector of the app.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	scans             *prometheus.CounterVec
	scanDuration      prometheus.Histogram
	scannerActive     prometheus.Gauge
	permissionResults *prometheus.CounterVec
	enrichment        *prometheus.CounterVec
	enrichDuration    prometheus.Histogram
	profileWrites     prometheus.Counter
	navigations       *prometheus.CounterVec
	flowResults       *prometheus.CounterVec
	failures          *prometheus.CounterVec

	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	memoryBytes prometheus.Gauge
	goroutines  prometheus.Gauge
}

var globalManager *Manager //nolint:gochecknoglobals // singleton used by the Record* helpers

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // served at /metrics

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "scit",
		subsystem:        "onboarding",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels}
}

func (m *Manager) histogramOpts(name, help string) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels, Buckets: m.histogramBuckets}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels}
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.scans = auto.NewCounterVec(m.counterOpts("scans_total", "Finished camera scans by outcome"), []string{"outcome", "reason"})
	m.scanDuration = auto.NewHistogram(m.histogramOpts("scan_duration_milliseconds", "Time the camera stayed engaged per scan"))
	m.scannerActive = auto.NewGauge(m.gaugeOpts("scanner_active", "1 while the camera is engaged by a scan"))
	m.permissionResults = auto.NewCounterVec(m.counterOpts("permission_checks_total", "Camera permission gate results by state"), []string{"state", "granted"})
	m.enrichment = auto.NewCounterVec(m.counterOpts("enrichment_total", "Enrichment sub-operations by field and result"), []string{"field", "result"})
	m.enrichDuration = auto.NewHistogram(m.histogramOpts("enrichment_duration_milliseconds", "Duration of a full enrichment pass"))
	m.profileWrites = auto.NewCounter(m.counterOpts("profile_writes_total", "Profile payloads written to the store"))
	m.navigations = auto.NewCounterVec(m.counterOpts("navigations_total", "Navigations by target route"), []string{"route"})
	m.flowResults = auto.NewCounterVec(m.counterOpts("flow_results_total", "Scanner flow runs by final step"), []string{"step"})
	m.failures = auto.NewCounterVec(m.counterOpts("failures_total", "Reported failures by component and kind"), []string{"component", "kind"})

	m.httpRequests = auto.NewCounterVec(m.counterOpts("http_requests_total", "HTTP requests by endpoint and method"), []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds"), []string{"endpoint", "method", "status_code"})

	m.memoryBytes = auto.NewGauge(m.gaugeOpts("system_memory_bytes", "Heap bytes allocated by the process"))
	m.goroutines = auto.NewGauge(m.gaugeOpts("system_goroutines", "Live goroutines"))
}

// RecordScan counts a finished scan.
func (m *Manager) RecordScan(outcome, reason string, latencyMs float64) {
	m.scans.WithLabelValues(outcome, reason).Inc()
	m.scanDuration.Observe(latencyMs)
}

// SetScannerActive flips the camera gauge.
func (m *Manager) SetScannerActive(active bool) {
	if active {
		m.scannerActive.Set(1)
		return
	}
	m.scannerActive.Set(0)
}

// RecordPermission counts a gate decision.
func (m *Manager) RecordPermission(state string, granted bool) {
	g := "false"
	if granted {
		g = "true"
	}
	m.permissionResults.WithLabelValues(state, g).Inc()
}

// RecordEnrichment counts one enrichment field result (resolved, absent, failed).
func (m *Manager) RecordEnrichment(field, result string) {
	m.enrichment.WithLabelValues(field, result).Inc()
}

// RecordEnrichmentDuration observes a full enrichment pass.
func (m *Manager) RecordEnrichmentDuration(latencyMs float64) {
	m.enrichDuration.Observe(latencyMs)
}

// RecordProfileWrite counts a store write.
func (m *Manager) RecordProfileWrite() { m.profileWrites.Inc() }

// RecordNavigation counts a navigation to route.
func (m *Manager) RecordNavigation(route string) {
	m.navigations.WithLabelValues(route).Inc()
}

// RecordFlowResult counts a scanner flow run.
func (m *Manager) RecordFlowResult(step string) {
	m.flowResults.WithLabelValues(step).Inc()
}

// RecordFailure counts a reported failure.
func (m *Manager) RecordFailure(component, kind string) {
	m.failures.WithLabelValues(component, kind).Inc()
}

// RecordHTTPRequest counts an HTTP request and observes its duration.
func (m *Manager) RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	m.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	m.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// UpdateSystemMemoryUsage sets the allocated heap gauge.
func (m *Manager) UpdateSystemMemoryUsage(bytes uint64) { m.memoryBytes.Set(float64(bytes)) }

// UpdateSystemGoroutineCount sets the goroutine gauge.
func (m *Manager) UpdateSystemGoroutineCount(n int) { m.goroutines.Set(float64(n)) }

// Package-level helpers record on the global manager.

func RecordScan(outcome, reason string, latencyMs float64) {
	globalManager.RecordScan(outcome, reason, latencyMs)
}

func SetScannerActive(active bool) { globalManager.SetScannerActive(active) }

func RecordPermission(state string, granted bool) { globalManager.RecordPermission(state, granted) }

func RecordEnrichment(field, result string) { globalManager.RecordEnrichment(field, result) }

func RecordEnrichmentDuration(latencyMs float64) { globalManager.RecordEnrichmentDuration(latencyMs) }

func RecordProfileWrite() { globalManager.RecordProfileWrite() }

func RecordNavigation(route string) { globalManager.RecordNavigation(route) }

func RecordFlowResult(step string) { globalManager.RecordFlowResult(step) }

func RecordFailure(component, kind string) { globalManager.RecordFailure(component, kind) }

func RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	globalManager.RecordHTTPRequest(endpoint, method, statusCode, durationMs)
}

func UpdateSystemMemoryUsage(bytes uint64) { globalManager.UpdateSystemMemoryUsage(bytes) }

func UpdateSystemGoroutineCount(n int) { globalManager.UpdateSystemGoroutineCount(n) }

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
