package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initGenerationMetrics() {
	r.GenerationsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "netgrid_generations_total",
			Help: "Total number of grid generation runs",
		},
		[]string{"result"}, // success, rejected
	)

	r.GenerationDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "netgrid_generation_duration_seconds",
			Help:    "Grid generation duration in seconds",
			Buckets: []float64{0.0001, 0.001, 0.01, 0.1, 1.0, 10.0},
		},
	)

	r.GenerationBranches = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "netgrid_generation_branches",
			Help:    "Number of branches regenerated per run",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		},
	)

	r.GridPointsAddedTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "netgrid_grid_points_added_total",
			Help: "Total number of calculation points created by generation",
		},
	)

	r.GridPointsRemovedTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "netgrid_grid_points_removed_total",
			Help: "Total number of calculation points removed by generation",
		},
	)

	r.GridPoints = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "netgrid_grid_points",
			Help: "Number of calculation points after the last generation run",
		},
	)
}
