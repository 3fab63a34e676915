package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Pipeline holds Prometheus metrics for the standardization pipeline.
// All methods are nil-safe so callers can run without metrics wired.
type Pipeline struct {
	// Provider traffic
	ProviderCalls  *prometheus.CounterVec
	TokenRefreshes prometheus.Counter

	// Record outcomes, labelled by the attempt that produced the
	// final address ("address1", "address2", "none").
	RecordsProcessed *prometheus.CounterVec

	// Batches
	BatchDuration prometheus.Histogram
	BatchSize     prometheus.Histogram
}

// NewPipeline creates and registers pipeline metrics.
func NewPipeline(namespace string) *Pipeline {
	if namespace == "" {
		namespace = "vor"
	}

	p := &Pipeline{
		ProviderCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "provider_calls_total",
				Help:      "Address lookup calls by response status",
			},
			[]string{"status"},
		),
		TokenRefreshes: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "token_refreshes_total",
				Help:      "Access token refreshes triggered by unauthorized responses",
			},
		),
		RecordsProcessed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "records_processed_total",
				Help:      "Records normalized, by winning attempt",
			},
			[]string{"attempt"},
		),
		BatchDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "batch_duration_seconds",
				Help:      "Wall-clock duration of batch processing",
				Buckets:   []float64{.1, .5, 1, 5, 15, 60, 300, 1200},
			},
		),
		BatchSize: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "batch_size_records",
				Help:      "Number of records per processed batch",
				Buckets:   []float64{1, 10, 50, 100, 500, 1000, 5000, 10000},
			},
		),
	}

	prometheus.MustRegister(
		p.ProviderCalls,
		p.TokenRefreshes,
		p.RecordsProcessed,
		p.BatchDuration,
		p.BatchSize,
	)

	return p
}

// ProviderCall counts one lookup call with its response status.
func (p *Pipeline) ProviderCall(status string) {
	if p == nil {
		return
	}
	p.ProviderCalls.WithLabelValues(status).Inc()
}

// TokenRefresh counts one reactive token refresh.
func (p *Pipeline) TokenRefresh() {
	if p == nil {
		return
	}
	p.TokenRefreshes.Inc()
}

// RecordProcessed counts one normalized record by winning attempt.
func (p *Pipeline) RecordProcessed(attempt string) {
	if p == nil {
		return
	}
	p.RecordsProcessed.WithLabelValues(attempt).Inc()
}

// BatchProcessed observes one completed batch.
func (p *Pipeline) BatchProcessed(size int, elapsed time.Duration) {
	if p == nil {
		return
	}
	p.BatchSize.Observe(float64(size))
	p.BatchDuration.Observe(elapsed.Seconds())
}
