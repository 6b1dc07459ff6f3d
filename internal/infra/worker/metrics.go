package worker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks scheduled prewarm runs:
//
//	digest_prewarm_runs_total{status}
//	digest_prewarm_duration_seconds
//	digest_prewarm_last_success_timestamp
type Metrics struct {
	RunsTotal            *prometheus.CounterVec
	DurationSeconds      prometheus.Histogram
	LastSuccessTimestamp prometheus.Gauge
}

// NewMetrics registers the prewarm metrics on the default registry.
func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

// NewMetricsWith registers the prewarm metrics on reg.
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "digest_prewarm_runs_total",
			Help: "Total number of prewarm runs by status (started/success/failure)",
		}, []string{"status"}),

		// a cold horoscope sweep is twelve spaced calls, roughly 15s
		DurationSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "digest_prewarm_duration_seconds",
			Help:    "Duration of prewarm runs in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300},
		}),

		LastSuccessTimestamp: factory.NewGauge(prometheus.GaugeOpts{
			Name: "digest_prewarm_last_success_timestamp",
			Help: "Unix timestamp of the last successful prewarm run",
		}),
	}
}

// RecordRun increments the run counter for status.
func (m *Metrics) RecordRun(status string) {
	m.RunsTotal.WithLabelValues(status).Inc()
}

// RecordDuration observes one run's duration in seconds.
func (m *Metrics) RecordDuration(seconds float64) {
	m.DurationSeconds.Observe(seconds)
}

// RecordLastSuccess stamps the current time as the last success.
func (m *Metrics) RecordLastSuccess() {
	m.LastSuccessTimestamp.SetToCurrentTime()
}
