// Package gridcheck validates the computational grid of a 1D network before
// a solver run.
//
// Every check runs on every call and reports independently, so one problem
// never hides another. Domain violations end up as issues in the returned
// report; the only error is a missing discretization.
package gridcheck

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/dd0wney/cluso-netgrid/pkg/discretization"
	"github.com/dd0wney/cluso-netgrid/pkg/logging"
	"github.com/dd0wney/cluso-netgrid/pkg/metrics"
	"github.com/dd0wney/cluso-netgrid/pkg/report"
	"github.com/dd0wney/cluso-netgrid/pkg/validation"
)

// Category is the category of the report produced by Validate.
const Category = "Computational Grid"

// DefaultMinimumSegmentLength is used when no positive minimum is given.
const DefaultMinimumSegmentLength = discretization.DefaultMinimumSegmentLength

// ErrNilDiscretization is returned when Validate is called without a discretization.
var ErrNilDiscretization = errors.New("gridcheck: discretization is nil")

// Validator runs a set of checks against a discretization
type Validator struct {
	checks  []Check
	logger  logging.Logger
	metrics *metrics.Registry
}

// NewValidator creates a new validator without checks
func NewValidator() *Validator {
	return &Validator{
		checks: make([]Check, 0),
		logger: logging.NewNopLogger(),
	}
}

// Default creates a validator running DefaultChecks.
func Default() *Validator {
	v := NewValidator()
	v.AddChecks(DefaultChecks())
	return v
}

// AddCheck adds a check to the validator
func (v *Validator) AddCheck(check Check) {
	v.checks = append(v.checks, check)
}

// AddChecks adds multiple checks to the validator
func (v *Validator) AddChecks(checks []Check) {
	v.checks = append(v.checks, checks...)
}

// Checks returns the checks in run order
func (v *Validator) Checks() []Check {
	return v.checks
}

// WithLogger sets the logger receiving one summary per run.
func (v *Validator) WithLogger(logger logging.Logger) *Validator {
	v.logger = logging.OrDefault(logger).With(logging.Component("gridcheck"))
	return v
}

// WithMetrics records every run in the given registry.
func (v *Validator) WithMetrics(m *metrics.Registry) *Validator {
	v.metrics = m
	return v
}

// Validate runs every check and collects their issues in one report of
// category Category. A non-positive minimumSegmentLength falls back to
// DefaultMinimumSegmentLength. grid2D may be nil.
func (v *Validator) Validate(d *discretization.Discretization, grid2D Grid2D, minimumSegmentLength float64) (*report.Report, error) {
	if d == nil {
		return nil, ErrNilDiscretization
	}

	start := time.Now()
	runID := uuid.NewString()
	in := &Input{
		Discretization:       d,
		Grid2D:               grid2D,
		MinimumSegmentLength: validation.DefaultOrFloat(minimumSegmentLength, DefaultMinimumSegmentLength),
	}

	rep := report.New(Category, nil)
	for _, check := range v.checks {
		issues := check.Check(in)
		rep.Add(issues...)
		v.observe(runID, check.Name(), issues)
	}

	severity := rep.Severity()
	elapsed := time.Since(start)
	v.logger.Info("grid validation",
		logging.RunID(runID),
		logging.Severity(severity.String()),
		logging.Int("errors", rep.ErrorCount()),
		logging.Int("warnings", rep.WarningCount()),
		logging.Count(d.Len()),
		logging.Latency(elapsed),
	)
	if v.metrics != nil {
		v.metrics.RecordValidation(severity.String(), int(severity), elapsed)
	}
	return rep, nil
}

// observe logs and counts the issues of one check.
func (v *Validator) observe(runID, check string, issues []report.Issue) {
	bySeverity := make(map[report.Severity]int)
	for _, issue := range issues {
		bySeverity[issue.Severity]++
		v.logger.Debug(issue.Message,
			logging.RunID(runID),
			logging.String("check", check),
			logging.Severity(issue.Severity.String()),
		)
	}
	if v.metrics == nil {
		return
	}
	for severity, n := range bySeverity {
		v.metrics.RecordIssues(check, severity.String(), n)
	}
}

// Validate runs the default checks. See Validator.Validate.
func Validate(d *discretization.Discretization, grid2D Grid2D, minimumSegmentLength float64) (*report.Report, error) {
	return Default().Validate(d, grid2D, minimumSegmentLength)
}
