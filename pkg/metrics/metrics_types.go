// Package metrics exposes Prometheus instrumentation for grid generation and
// grid validation.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all metrics for the application
type Registry struct {
	// Generation Metrics
	GenerationsTotal       *prometheus.CounterVec
	GenerationDuration     prometheus.Histogram
	GenerationBranches     prometheus.Histogram
	GridPointsAddedTotal   prometheus.Counter
	GridPointsRemovedTotal prometheus.Counter
	GridPoints             prometheus.Gauge

	// Validation Metrics
	ValidationsTotal       *prometheus.CounterVec
	ValidationDuration     prometheus.Histogram
	ValidationIssuesTotal  *prometheus.CounterVec
	ValidationLastSeverity prometheus.Gauge

	registry *prometheus.Registry
}

var (
	// Global registry instance
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the global metrics registry
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),
	}

	r.initGenerationMetrics()
	r.initValidationMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}
