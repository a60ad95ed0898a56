package gridgen

import (
	"fmt"

	"github.com/dd0wney/cluso-netgrid/pkg/discretization"
	"github.com/dd0wney/cluso-netgrid/pkg/validation"
)

// Options configures a generation run.
type Options struct {
	// MinimumSegmentLength is the smallest distance allowed between a newly
	// generated point and any other point on its branch.
	MinimumSegmentLength float64

	// GridAtStructures flanks every structure with points at
	// StructureDistance upstream and downstream, and separates consecutive
	// structures by at least one point.
	GridAtStructures  bool
	StructureDistance float64

	// GridAtCrossSections places a point at every cross-section.
	GridAtCrossSections bool

	// GridAtNodes gives every branch its own end points, even where another
	// branch at the node already has one.
	GridAtNodes bool

	// GridAtFixedLength subdivides the remaining gaps uniformly with a
	// spacing of at least FixedLength.
	GridAtFixedLength bool
	FixedLength       float64

	// Method is assigned to the discretization after generation.
	Method discretization.SegmentGenerationMethod
}

// DefaultOptions returns equidistant generation at 100 length units with
// points at nodes and around structures.
func DefaultOptions() Options {
	return Options{
		MinimumSegmentLength: discretization.DefaultMinimumSegmentLength,
		GridAtStructures:     true,
		StructureDistance:    5,
		GridAtCrossSections:  false,
		GridAtNodes:          true,
		GridAtFixedLength:    true,
		FixedLength:          100,
		Method:               discretization.SegmentBetweenLocationsFullyCovered,
	}
}

// Validate checks the options and reports every problem found.
func (o Options) Validate() error {
	cv := validation.NewConfigValidator("Options").
		PositiveFloat("MinimumSegmentLength", o.MinimumSegmentLength).
		NonNegativeFloat("StructureDistance", o.StructureDistance).
		NonNegativeFloat("FixedLength", o.FixedLength).
		When(o.GridAtStructures, func(cv *validation.ConfigValidator) {
			cv.PositiveFloat("StructureDistance", o.StructureDistance)
		}).
		When(o.GridAtFixedLength, func(cv *validation.ConfigValidator) {
			cv.PositiveFloat("FixedLength", o.FixedLength).
				MinFloat("FixedLength", o.FixedLength, o.MinimumSegmentLength)
		}).
		Custom("Method", func() error {
			if o.Method < discretization.None || o.Method > discretization.SegmentPerLocation {
				return fmt.Errorf("unknown segment generation method %d", int(o.Method))
			}
			return nil
		})

	if err := cv.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfiguration, err)
	}
	return nil
}
