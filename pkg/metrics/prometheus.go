package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	rowsIngested *prometheus.CounterVec
	errorsTotal  *prometheus.CounterVec
	lastClose    *prometheus.GaugeVec
	latency      *prometheus.HistogramVec
	backtests    *prometheus.CounterVec
	cacheEvents  *prometheus.CounterVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		rowsIngested: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "twquant_rows_ingested_total",
				Help: "Total number of rows written to the backend",
			},
			[]string{"backend", "dataset"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "twquant_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastClose: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "twquant_last_close",
				Help: "Last ingested closing price for a symbol",
			},
			[]string{"symbol"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "twquant_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		backtests: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "twquant_backtests_total",
				Help: "Total number of backtest runs by outcome",
			},
			[]string{"strategy", "outcome"},
		),
		cacheEvents: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "twquant_cache_events_total",
				Help: "Cache hits and misses per operation",
			},
			[]string{"operation", "result"},
		),
	}
}

// RecordRowsIngested records rows written to a backend for a dataset.
func (r *Recorder) RecordRowsIngested(backend, dataset string, n int) {
	r.rowsIngested.WithLabelValues(backend, dataset).Add(float64(n))
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLastClose records the last ingested close for a symbol.
func (r *Recorder) RecordLastClose(symbol string, price float64) {
	r.lastClose.WithLabelValues(symbol).Set(price)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// RecordBacktest records a backtest run and its outcome.
func (r *Recorder) RecordBacktest(strategy, outcome string) {
	r.backtests.WithLabelValues(strategy, outcome).Inc()
}

// RecordCacheEvent records a cache hit or miss for an operation.
func (r *Recorder) RecordCacheEvent(op, result string) {
	r.cacheEvents.WithLabelValues(op, result).Inc()
}
