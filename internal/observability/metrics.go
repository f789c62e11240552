package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics collects autosave and draft-service metrics.
//
// Tracked signals:
//   - save outcomes by session type and result
//   - retry attempts consumed per save
//   - draft lifecycle operations (check, restore, delete)
//   - HTTP request latency for the draft API
//   - store query latency by operation
type Metrics struct {
	// SaveCounter counts completed save pipelines.
	// Labels: session_type, result (saved|error|skipped_auth|skipped_size)
	SaveCounter *prometheus.CounterVec

	// SaveAttempts observes how many transport attempts a save consumed.
	// Labels: session_type
	SaveAttempts *prometheus.HistogramVec

	// DraftOpCounter counts lifecycle operations.
	// Labels: operation (check|restore|delete), result (success|error|denied)
	DraftOpCounter *prometheus.CounterVec

	// HTTPRequestDuration measures draft API request latency in seconds.
	// Labels: method, path, status_code
	HTTPRequestDuration *prometheus.HistogramVec

	// StoreQueryDuration measures draft store query latency in seconds.
	// Labels: operation (save|get|delete|prune)
	StoreQueryDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers all metrics. A nil registerer uses the
// default Prometheus registry; tests pass their own to avoid duplicate
// registration across instances.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		SaveCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "autodraft_saves_total",
				Help: "Total completed save pipelines by session type and result",
			},
			[]string{"session_type", "result"},
		),

		SaveAttempts: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "autodraft_save_attempts",
				Help:    "Transport attempts consumed per save",
				Buckets: []float64{1, 2, 3, 4, 5},
			},
			[]string{"session_type"},
		),

		DraftOpCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "autodraft_draft_ops_total",
				Help: "Draft lifecycle operations by operation and result",
			},
			[]string{"operation", "result"},
		),

		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "autodraft_http_request_duration_seconds",
				Help:    "Draft API request latency in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"method", "path", "status_code"},
		),

		StoreQueryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "autodraft_store_query_duration_seconds",
				Help:    "Draft store query latency in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"operation"},
		),
	}
}
