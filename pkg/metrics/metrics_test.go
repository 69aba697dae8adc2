package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestManagerCreation(t *testing.T) {
	Convey("Given a fresh registry", t, func() {
		registry := prometheus.NewRegistry()

		Convey("When a manager is created with custom options", func() {
			m := NewManager(
				WithNamespace("test"),
				WithSubsystem("flow"),
				WithHistogramBuckets([]float64{1, 10}),
				WithConstLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)
			m.RecordNavigation("qr-scanner")

			Convey("Then metric names carry the namespace and subsystem", func() {
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				So(families, ShouldNotBeEmpty)
				for _, f := range families {
					So(strings.HasPrefix(f.GetName(), "test_flow_"), ShouldBeTrue)
				}
			})

			Convey("Then the const labels are attached", func() {
				So(testutil.ToFloat64(m.navigations.With(prometheus.Labels{"route": "qr-scanner"})), ShouldEqual, 1)
				families, _ := registry.Gather()
				found := false
				for _, f := range families {
					for _, metric := range f.GetMetric() {
						for _, l := range metric.GetLabel() {
							if l.GetName() == "env" && l.GetValue() == "test" {
								found = true
							}
						}
					}
				}
				So(found, ShouldBeTrue)
			})
		})

		Convey("When two managers share a registry", func() {
			NewManager(WithPrometheusRegistry(registry))

			Convey("Then the second registration panics", func() {
				So(func() { NewManager(WithPrometheusRegistry(registry)) }, ShouldPanic)
			})
		})
	})
}

func TestManagerRecording(t *testing.T) {
	Convey("Given a manager", t, func() {
		m := NewManager(WithPrometheusRegistry(prometheus.NewRegistry()))

		Convey("When scans finish", func() {
			m.RecordScan("decoded", "", 12)
			m.RecordScan("failed", "malformed-content", 3)
			m.RecordScan("failed", "malformed-content", 4)

			So(testutil.ToFloat64(m.scans.WithLabelValues("decoded", "")), ShouldEqual, 1)
			So(testutil.ToFloat64(m.scans.WithLabelValues("failed", "malformed-content")), ShouldEqual, 2)
		})

		Convey("When the scanner gauge flips", func() {
			m.SetScannerActive(true)
			So(testutil.ToFloat64(m.scannerActive), ShouldEqual, 1)
			m.SetScannerActive(false)
			So(testutil.ToFloat64(m.scannerActive), ShouldEqual, 0)
		})

		Convey("When gate decisions and failures are recorded", func() {
			m.RecordPermission("denied", false)
			m.RecordPermission("granted", true)
			m.RecordFailure("permission", "permission")
			m.RecordFlowResult("permission_denied")

			So(testutil.ToFloat64(m.permissionResults.WithLabelValues("denied", "false")), ShouldEqual, 1)
			So(testutil.ToFloat64(m.permissionResults.WithLabelValues("granted", "true")), ShouldEqual, 1)
			So(testutil.ToFloat64(m.failures.WithLabelValues("permission", "permission")), ShouldEqual, 1)
			So(testutil.ToFloat64(m.flowResults.WithLabelValues("permission_denied")), ShouldEqual, 1)
		})

		Convey("When enrichment and writes are recorded", func() {
			m.RecordEnrichment("address", "resolved")
			m.RecordEnrichment("phone_number", "absent")
			m.RecordEnrichmentDuration(40)
			m.RecordProfileWrite()

			So(testutil.ToFloat64(m.enrichment.WithLabelValues("address", "resolved")), ShouldEqual, 1)
			So(testutil.ToFloat64(m.enrichment.WithLabelValues("phone_number", "absent")), ShouldEqual, 1)
			So(testutil.ToFloat64(m.profileWrites), ShouldEqual, 1)
		})

		Convey("When HTTP requests are recorded", func() {
			m.RecordHTTPRequest("/scanner", "POST", "200", 5)
			So(testutil.ToFloat64(m.httpRequests.WithLabelValues("/scanner", "POST", "200")), ShouldEqual, 1)
			So(testutil.CollectAndCount(m.httpRequestDuration), ShouldEqual, 1)
		})

		Convey("When system gauges are updated", func() {
			m.UpdateSystemMemoryUsage(2048)
			m.UpdateSystemGoroutineCount(7)
			So(testutil.ToFloat64(m.memoryBytes), ShouldEqual, 2048)
			So(testutil.ToFloat64(m.goroutines), ShouldEqual, 7)
		})
	})
}

func TestGlobalHelpers(t *testing.T) {
	Convey("Given the global registry", t, func() {
		So(GetRegistry(), ShouldNotBeNil)

		Convey("Then the package helpers record without panicking", func() {
			So(func() {
				RecordScan("empty", "", 1)
				SetScannerActive(false)
				RecordPermission("granted", true)
				RecordEnrichment("address", "failed")
				RecordEnrichmentDuration(1)
				RecordProfileWrite()
				RecordNavigation("new-technic")
				RecordFlowResult("profile_ready")
				RecordFailure("scan", "data_format")
				RecordHTTPRequest("/route", "GET", "200", 1)
				UpdateSystemMemoryUsage(1)
				UpdateSystemGoroutineCount(1)
			}, ShouldNotPanic)
		})
	})
}
