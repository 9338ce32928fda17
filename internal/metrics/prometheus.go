// Package metrics exposes Prometheus collectors for the rides API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusMetrics wraps the prometheus collectors for the rides API.
type PrometheusMetrics struct {
	registry *prometheus.Registry

	cacheOps           *prometheus.CounterVec
	cacheWriteFailures prometheus.Counter

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// Default histogram buckets for request duration (in seconds).
var defaultBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}

var promMetrics *PrometheusMetrics

// Init initializes the Prometheus metrics subsystem.
func Init(namespace string) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewGoCollector())
	registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	pm := &PrometheusMetrics{
		registry: registry,

		cacheOps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_ops_total",
				Help:      "Cache lookup outcomes by query shape",
			},
			[]string{"shape", "outcome"},
		),

		cacheWriteFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_write_failures_total",
				Help:      "Cache populate attempts that failed and were discarded",
			},
		),

		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests by route and status code",
			},
			[]string{"method", "route", "status"},
		),

		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency",
				Buckets:   defaultBuckets,
			},
			[]string{"method", "route"},
		),
	}

	registry.MustRegister(
		pm.cacheOps,
		pm.cacheWriteFailures,
		pm.httpRequests,
		pm.httpDuration,
	)

	promMetrics = pm
}

// Cache lookup outcomes.
const (
	OutcomeHit         = "hit"
	OutcomeMiss        = "miss"
	OutcomeDecodeError = "decode_error"
	OutcomeError       = "error"
)

// RecordCacheOp records one cache lookup outcome for a query shape
// ("list", "merged" or "point").
func RecordCacheOp(shape, outcome string) {
	if promMetrics == nil {
		return
	}
	promMetrics.cacheOps.WithLabelValues(shape, outcome).Inc()
}

// RecordCacheWriteFailure records a swallowed cache populate failure.
func RecordCacheWriteFailure() {
	if promMetrics == nil {
		return
	}
	promMetrics.cacheWriteFailures.Inc()
}

// ObserveHTTPRequest records one served HTTP request.
func ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	if promMetrics == nil {
		return
	}
	promMetrics.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	promMetrics.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// Handler returns the /metrics HTTP handler. Returns a 503 handler when the
// subsystem was never initialized.
func Handler() http.Handler {
	if promMetrics == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "metrics not initialized", http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(promMetrics.registry, promhttp.HandlerOpts{})
}
