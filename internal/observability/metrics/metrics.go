// Package metrics provides Prometheus instrumentation for the verifier.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	enabled bool

	// HTTP metrics
	httpRequestsTotal *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec

	// Verification outcomes
	verificationTotal *prometheus.CounterVec

	// Outbound indexer calls
	indexerRequestsTotal *prometheus.CounterVec
	indexerDuration      *prometheus.HistogramVec
)

// Init initializes the metrics system. Every series carries the service
// name as a constant label so dashboards can tell deployments apart.
func Init(enabledFlag bool, svcName string) {
	enabled = enabledFlag
	if !enabled {
		return
	}

	svcLabel := prometheus.Labels{"service": svcName}

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "http_requests_total",
			Help:        "Total number of HTTP requests",
			ConstLabels: svcLabel,
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:        "http_request_duration_seconds",
			Help:        "HTTP request latency in seconds",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: svcLabel,
		},
		[]string{"method", "path"},
	)

	// Verification decision counter: paid, not_paid, unavailable, error
	verificationTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "verification_total",
			Help:        "Total number of payment verifications by decision",
			ConstLabels: svcLabel,
		},
		[]string{"decision"},
	)

	indexerRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "indexer_request_total",
			Help:        "Total number of requests to the ledger indexing API",
			ConstLabels: svcLabel,
		},
		[]string{"method", "status"},
	)

	indexerDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:        "indexer_request_duration_seconds",
			Help:        "Ledger indexing API request latency in seconds",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: svcLabel,
		},
		[]string{"method"},
	)

	// Note: Go runtime metrics (goroutines, memory, GC) are automatically
	// collected by prometheus/client_golang - no custom collector needed
}

// RecordVerification counts one verification decision.
func RecordVerification(decision string) {
	if !enabled {
		return
	}
	verificationTotal.WithLabelValues(decision).Inc()
}

// ObserveIndexerRequest records one outbound indexer call.
func ObserveIndexerRequest(method, status string, seconds float64) {
	if !enabled {
		return
	}
	indexerRequestsTotal.WithLabelValues(method, status).Inc()
	indexerDuration.WithLabelValues(method).Observe(seconds)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	if !enabled {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})
	}
	return promhttp.Handler()
}
