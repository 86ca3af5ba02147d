// Package metrics exposes Prometheus counters for field activity.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Metrics holds the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	submissions      *prometheus.CounterVec
	photos           *prometheus.CounterVec
	exports          *prometheus.CounterVec
	locationRequests *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
}

// New creates a private registry so tests and multiple servers never collide
// on the global one.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "prodair_installations_submitted_total",
			Help: "Installation submissions by outcome.",
		}, []string{"outcome"}),
		photos: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "prodair_photos_total",
			Help: "Photos processed by outcome (captured or failed).",
		}, []string{"outcome"}),
		exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "prodair_exports_total",
			Help: "Exports generated by format.",
		}, []string{"format"}),
		locationRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "prodair_location_requests_total",
			Help: "Geolocation requests by outcome or error kind.",
		}, []string{"outcome"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "prodair_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern and status.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"route", "status"}),
	}
	reg.MustRegister(m.submissions, m.photos, m.exports, m.locationRequests, m.httpDuration)
	return m
}

func (m *Metrics) Submission(ok bool) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(outcome(ok)).Inc()
}

// Photos records captured and failed counts from one upload.
func (m *Metrics) Photos(captured, failed int) {
	if m == nil {
		return
	}
	m.photos.WithLabelValues("captured").Add(float64(captured))
	m.photos.WithLabelValues("failed").Add(float64(failed))
}

func (m *Metrics) Export(format string) {
	if m == nil {
		return
	}
	m.exports.WithLabelValues(format).Inc()
}

// Location records a geolocation outcome: OutcomeOK or an error kind name.
func (m *Metrics) Location(result string) {
	if m == nil {
		return
	}
	m.locationRequests.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveHTTP(route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpDuration.WithLabelValues(route, strconv.Itoa(status)).Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func outcome(ok bool) string {
	if ok {
		return OutcomeOK
	}
	return OutcomeError
}
