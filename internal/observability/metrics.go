package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "hydromet"

// Metrics holds the Prometheus counters and histograms for the upload service.
type Metrics struct {
	PresignTotal      *prometheus.CounterVec // labels: kind
	CommitTotal       *prometheus.CounterVec // labels: kind, outcome={success,error}
	LegacyUploads     prometheus.Counter
	OrphansDetected   *prometheus.CounterVec // labels: kind
	SweepDuration     prometheus.Histogram
	EventPublishFails prometheus.Counter

	HTTPRequests *prometheus.CounterVec   // labels: method, route, code
	HTTPDuration *prometheus.HistogramVec // labels: method, route
}

func newMetrics() *Metrics {
	return &Metrics{
		PresignTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "presign_total",
			Help:      "Upload targets handed out, by upload kind.",
		}, []string{"kind"}),
		CommitTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commit_total",
			Help:      "Commit requests by file kind and outcome.",
		}, []string{"kind", "outcome"}),
		LegacyUploads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "legacy_uploads_total",
			Help:      "Uploads received through the deprecated single-request endpoint.",
		}),
		OrphansDetected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orphans_detected_total",
			Help:      "Stored objects whose upload was never committed.",
		}, []string{"kind"}),
		SweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sweep_duration_seconds",
			Help:      "Duration of one orphan sweep pass.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}),
		EventPublishFails: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "event_publish_failures_total",
			Help:      "Commit events that could not be published.",
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "code"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.PresignTotal,
		m.CommitTotal,
		m.LegacyUploads,
		m.OrphansDetected,
		m.SweepDuration,
		m.EventPublishFails,
		m.HTTPRequests,
		m.HTTPDuration,
	}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics registered on a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() (*Metrics, *prometheus.Registry) {
	m := newMetrics()
	reg := prometheus.NewRegistry()
	reg.MustRegister(m.collectors()...)
	return m, reg
}
