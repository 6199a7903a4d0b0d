package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	scansTotal   *prometheus.CounterVec
	symbolsTotal *prometheus.CounterVec
	errorsTotal  *prometheus.CounterVec
	lastResults  prometheus.Gauge
	scanDuration prometheus.Histogram
	latency      *prometheus.HistogramVec
}

var (
	defaultRecorder *Recorder
	defaultOnce     sync.Once
)

// New returns the process-wide Prometheus recorder. Collectors are registered once.
func New() *Recorder {
	defaultOnce.Do(func() {
		defaultRecorder = NewWithRegistry(prometheus.DefaultRegisterer)
	})
	return defaultRecorder
}

// NewWithRegistry registers the collectors on reg. Tests pass a fresh registry.
func NewWithRegistry(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		scansTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "setupscan_scans_total",
				Help: "Total number of finished scans by result",
			},
			[]string{"result"},
		),
		symbolsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "setupscan_symbols_total",
				Help: "Symbols processed by outcome",
			},
			[]string{"outcome"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "setupscan_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastResults: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "setupscan_last_result_count",
				Help: "Number of setups in the last completed scan",
			},
		),
		scanDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "setupscan_scan_duration_seconds",
				Help:    "Wall time of a full scan",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
			},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "setupscan_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordScan records a finished scan. resultCount is ignored for failed scans.
func (r *Recorder) RecordScan(result string, seconds float64, resultCount int) {
	r.scansTotal.WithLabelValues(result).Inc()
	r.scanDuration.Observe(seconds)
	if result == "success" {
		r.lastResults.Set(float64(resultCount))
	}
}

// RecordSymbol records the outcome of one symbol (passed, filtered, unavailable).
func (r *Recorder) RecordSymbol(outcome string) {
	r.symbolsTotal.WithLabelValues(outcome).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
