package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is the collection of Prometheus collectors the audit
// pipeline and HTTP server report into.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	AuditsTotal         *prometheus.CounterVec
	AuditDuration       prometheus.Histogram
	SourceFailuresTotal *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates and registers all collectors on a private
// registry so tests can build independent instances.
func NewMetrics() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	m.HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	m.AuditsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audits_total",
			Help: "Total number of package audits by outcome",
		},
		[]string{"outcome"},
	)

	m.AuditDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "audit_duration_seconds",
			Help:    "End-to-end duration of package audits in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	m.SourceFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "source_failures_total",
			Help: "Upstream source failures by adapter and status",
		},
		[]string{"source", "status"},
	)

	m.registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.AuditsTotal,
		m.AuditDuration,
		m.SourceFailuresTotal,
	)

	return m
}

// ObserveAudit records one finished audit.
func (m *Metrics) ObserveAudit(outcome string, d time.Duration) {
	m.AuditsTotal.WithLabelValues(outcome).Inc()
	m.AuditDuration.Observe(d.Seconds())
}

// ObserveSourceFailure records a degraded adapter result.
func (m *Metrics) ObserveSourceFailure(source, status string) {
	m.SourceFailuresTotal.WithLabelValues(source, status).Inc()
}

// RequestTracking wraps an HTTP handler and records request count and
// duration per method and path.
func (m *Metrics) RequestTracking(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		m.HTTPRequestsTotal.WithLabelValues(r.Method, r.URL.Path, http.StatusText(rw.statusCode)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(time.Since(start).Seconds())
	})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Handler returns the exposition endpoint for this metrics registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
