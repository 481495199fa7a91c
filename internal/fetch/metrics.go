package fetch

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the fetch layer.
type Metrics struct {
	Registry        *prometheus.Registry
	RequestsTotal   *prometheus.CounterVec
	RequestDuration prometheus.Histogram
	RetriesTotal    prometheus.Counter
	BlockedTotal    *prometheus.CounterVec
	ErrorsTotal     *prometheus.CounterVec
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvester_fetch_requests_total",
			Help: "Total HTTP requests issued by the fetch layer.",
		},
		[]string{"source"},
	)
	requestDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "harvester_fetch_duration_seconds",
			Help:    "HTTP request latency including retries.",
			Buckets: prometheus.DefBuckets,
		},
	)
	retries := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "harvester_fetch_retries_total",
			Help: "Total retry attempts scheduled by the fetch layer.",
		},
	)
	blocked := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvester_fetch_blocked_total",
			Help: "Responses classified as anti-bot blocks.",
		},
		[]string{"source"},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvester_fetch_errors_total",
			Help: "Failed fetches by classification.",
		},
		[]string{"class"},
	)

	registry.MustRegister(requests, requestDuration, retries, blocked, errorsTotal)

	return &Metrics{
		Registry:        registry,
		RequestsTotal:   requests,
		RequestDuration: requestDuration,
		RetriesTotal:    retries,
		BlockedTotal:    blocked,
		ErrorsTotal:     errorsTotal,
	}
}

// IncRequest increments the per-source request counter.
func (m *Metrics) IncRequest(source string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(source).Inc()
}

// ObserveDuration records the total elapsed time of a fetch.
func (m *Metrics) ObserveDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.Observe(d.Seconds())
}

// IncRetries increments the retry counter.
func (m *Metrics) IncRetries() {
	if m == nil {
		return
	}
	m.RetriesTotal.Inc()
}

// IncBlocked increments the per-source blocked counter.
func (m *Metrics) IncBlocked(source string) {
	if m == nil {
		return
	}
	m.BlockedTotal.WithLabelValues(source).Inc()
}

// IncError increments the error counter for a classification label.
func (m *Metrics) IncError(class string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(class).Inc()
}
