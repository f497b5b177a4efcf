package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	stageDuration *prometheus.HistogramVec
	errorsTotal   *prometheus.CounterVec
	verdictsTotal *prometheus.CounterVec
	psiGauge      *prometheus.GaugeVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		stageDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lgdpulse_stage_duration_seconds",
				Help:    "Duration of monitoring cycle stages in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"stage"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lgdpulse_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		verdictsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lgdpulse_verdicts_total",
				Help: "Governance verdicts by dimension and status",
			},
			[]string{"dimension", "status"},
		),
		psiGauge: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "lgdpulse_psi",
				Help: "Latest population stability index per feature",
			},
			[]string{"feature"},
		),
	}
}

// RecordStageDuration records the wall time of one cycle stage.
func (r *Recorder) RecordStageDuration(stage string, seconds float64) {
	r.stageDuration.WithLabelValues(stage).Observe(seconds)
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordVerdict records one dimension of a governance verdict.
func (r *Recorder) RecordVerdict(dimension, status string) {
	r.verdictsTotal.WithLabelValues(dimension, status).Inc()
}

// RecordPSI records the latest PSI value for a feature.
func (r *Recorder) RecordPSI(feature string, value float64) {
	r.psiGauge.WithLabelValues(feature).Set(value)
}
