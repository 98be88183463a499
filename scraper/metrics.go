package scraper

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "companies_scraper"

// Metrics bundles the Prometheus collectors of one run.
type Metrics struct {
	Registry *prometheus.Registry

	Requests        *prometheus.CounterVec
	RequestDuration prometheus.Histogram
	Errors          *prometheus.CounterVec
	Retries         prometheus.Counter
	Outcomes        *prometheus.CounterVec
	Targets         prometheus.Gauge
}

// NewMetrics registers the collectors on a dedicated registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "requests_total",
			Help:      "HTTP requests issued, by page kind.",
		}, []string{"phase"}),
		RequestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "request_duration_seconds",
			Help:      "Latency of answered HTTP requests.",
			Buckets:   prometheus.DefBuckets,
		}),
		Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "errors_total",
			Help:      "Failed requests and extractions, by error type.",
		}, []string{"error_type"}),
		Retries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "retries_total",
			Help:      "Retries scheduled after a transient failure.",
		}),
		Outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "companies_total",
			Help:      "Processed companies, by outcome (fetched, skipped, exhausted).",
		}, []string{"outcome"}),
		Targets: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "targets",
			Help:      "Companies listed in the index for this run.",
		}),
	}
	m.Registry.MustRegister(m.Requests, m.RequestDuration, m.Errors, m.Retries, m.Outcomes, m.Targets)
	return m
}

// IncRequest counts a request for a page kind.
func (m *Metrics) IncRequest(phase string) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(phase).Inc()
}

// ObserveDuration records how long a request took.
func (m *Metrics) ObserveDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.Observe(d.Seconds())
}

// IncError counts an error by type label.
func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.Errors.WithLabelValues(errorType).Inc()
}

// IncRetries counts a scheduled retry.
func (m *Metrics) IncRetries() {
	if m == nil {
		return
	}
	m.Retries.Inc()
}

// IncOutcome counts a terminal outcome.
func (m *Metrics) IncOutcome(outcome string) {
	if m == nil {
		return
	}
	m.Outcomes.WithLabelValues(outcome).Inc()
}

// SetTargets records the size of the target list.
func (m *Metrics) SetTargets(n int) {
	if m == nil {
		return
	}
	m.Targets.Set(float64(n))
}
