package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initValidationMetrics() {
	r.ValidationsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "netgrid_validations_total",
			Help: "Total number of grid validation runs by resulting severity",
		},
		[]string{"severity"},
	)

	r.ValidationDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "netgrid_validation_duration_seconds",
			Help:    "Grid validation duration in seconds",
			Buckets: []float64{0.0001, 0.001, 0.01, 0.1, 1.0},
		},
	)

	r.ValidationIssuesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "netgrid_validation_issues_total",
			Help: "Total number of validation issues by check and severity",
		},
		[]string{"check", "severity"},
	)

	r.ValidationLastSeverity = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "netgrid_validation_last_severity",
			Help: "Severity of the last validation run (0=none, 1=info, 2=warning, 3=error)",
		},
	)
}
