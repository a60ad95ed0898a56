package gridcheck

import (
	"github.com/dd0wney/cluso-netgrid/pkg/discretization"
	"github.com/dd0wney/cluso-netgrid/pkg/network"
	"github.com/dd0wney/cluso-netgrid/pkg/report"
)

// Grid2D is the only view the validator needs of a two-dimensional grid.
// A nil Grid2D means no 2D grid is present.
type Grid2D interface {
	IsEmpty() bool
}

// Input is the read-only state every check inspects.
type Input struct {
	Discretization       *discretization.Discretization
	Grid2D               Grid2D
	MinimumSegmentLength float64
}

// Branches returns the branches of the discretized network in network order.
func (in *Input) Branches() []*network.Branch {
	net := in.Discretization.Network()
	if net == nil {
		return nil
	}
	return net.Branches()
}

// Check is one rule of the computational grid. Checks never mutate the input
// and report domain violations as issues, never as errors.
type Check interface {
	// Name identifies the check in logs and metrics
	Name() string

	// Check returns the issues found (empty if the grid complies)
	Check(in *Input) []report.Issue
}
