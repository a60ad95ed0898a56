package metrics

import (
	"time"
)

// RecordGeneration records a grid generation run
func (r *Registry) RecordGeneration(result string, duration time.Duration, branches, added, removed, total int) {
	r.GenerationsTotal.WithLabelValues(result).Inc()
	r.GenerationDuration.Observe(duration.Seconds())
	if result != "success" {
		return
	}
	r.GenerationBranches.Observe(float64(branches))
	r.GridPointsAddedTotal.Add(float64(added))
	r.GridPointsRemovedTotal.Add(float64(removed))
	r.GridPoints.Set(float64(total))
}

// RecordValidation records a validation run and its resulting severity.
// severityRank is the numeric severity (0 = none).
func (r *Registry) RecordValidation(severity string, severityRank int, duration time.Duration) {
	r.ValidationsTotal.WithLabelValues(severity).Inc()
	r.ValidationDuration.Observe(duration.Seconds())
	r.ValidationLastSeverity.Set(float64(severityRank))
}

// RecordIssues adds n issues of one severity reported by a check
func (r *Registry) RecordIssues(check, severity string, n int) {
	if n <= 0 {
		return
	}
	r.ValidationIssuesTotal.WithLabelValues(check, severity).Add(float64(n))
}
