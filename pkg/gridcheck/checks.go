package gridcheck

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/dd0wney/cluso-netgrid/pkg/network"
	"github.com/dd0wney/cluso-netgrid/pkg/report"
)

// Issue messages.
const (
	MsgNoGrid          = "No computational grid defined."
	MsgDuplicateNames  = "Several grid points with the same id exist"
	msgNotAtStart      = "No cells for %s, not at start of branch."
	msgNotAtEnd        = "No cells for %s, not at end of branch."
	msgDuplicate       = "Duplicate calculation points at the same location on %s at chainage %.3f; the computational kernel cannot handle this."
	msgTooClose        = "Calculation points %s and %s on %s are %g apart, less than the minimum segment length %g."
	msgStructureOnGrid = "Structure %s is located on a calculation point; the computational kernel cannot handle this."
	msgNoPointBetween  = "No calculation point between structures %s and %s on %s."
)

// DefaultChecks returns every computational grid check in reporting order.
func DefaultChecks() []Check {
	return []Check{
		GridExistence{},
		BranchCoverage{},
		DuplicateLocations{},
		MinimumSpacing{},
		StructureOnGridPoint{},
		StructureSeparation{},
		UniqueNames{},
	}
}

// GridExistence requires a 1D or a non-empty 2D grid.
type GridExistence struct{}

func (GridExistence) Name() string { return "GridExistence" }

func (GridExistence) Check(in *Input) []report.Issue {
	if !in.Discretization.IsEmpty() {
		return nil
	}
	if in.Grid2D != nil && !in.Grid2D.IsEmpty() {
		return nil
	}
	return []report.Issue{report.NewIssue(report.Error, MsgNoGrid, in.Discretization)}
}

// BranchCoverage requires a calculation point at both ends of every branch.
// An end is covered when another branch at the same node has a point there.
type BranchCoverage struct{}

func (BranchCoverage) Name() string { return "BranchCoverage" }

func (BranchCoverage) Check(in *Input) []report.Issue {
	d := in.Discretization
	var issues []report.Issue
	for _, b := range in.Branches() {
		if _, ok := d.Find(b, 0); !ok && !d.NodeCovered(b.Source, b) {
			issue := report.NewIssue(report.Error, fmt.Sprintf(msgNotAtStart, b.Name), b)
			issue.ViewData = network.NewNetworkLocation(b, 0)
			issues = append(issues, issue)
		}
		if _, ok := d.Find(b, b.Length); !ok && !d.NodeCovered(b.Target, b) {
			issue := report.NewIssue(report.Error, fmt.Sprintf(msgNotAtEnd, b.Name), b)
			issue.ViewData = network.NewNetworkLocation(b, b.Length)
			issues = append(issues, issue)
		}
	}
	return issues
}

// DuplicateLocations reports each group of coinciding points on a branch once.
type DuplicateLocations struct{}

func (DuplicateLocations) Name() string { return "DuplicateLocations" }

func (DuplicateLocations) Check(in *Input) []report.Issue {
	var issues []report.Issue
	for _, b := range in.Branches() {
		locs := in.Discretization.LocationsOn(b)
		for start := 0; start < len(locs); {
			end := start + 1
			for end < len(locs) && network.ChainageEqual(locs[end-1].Chainage, locs[end].Chainage) {
				end++
			}
			if end-start > 1 {
				group := locs[start:end]
				issue := report.NewIssue(report.Error, fmt.Sprintf(msgDuplicate, b.Name, group[0].Chainage), group[0])
				issue.ViewData = group
				issues = append(issues, issue)
			}
			start = end
		}
	}
	return issues
}

// MinimumSpacing warns about neighbouring points closer than the minimum
// segment length. Coinciding points are left to DuplicateLocations.
type MinimumSpacing struct{}

func (MinimumSpacing) Name() string { return "MinimumSpacing" }

func (MinimumSpacing) Check(in *Input) []report.Issue {
	minLength := in.MinimumSegmentLength
	var issues []report.Issue
	for _, b := range in.Branches() {
		locs := in.Discretization.LocationsOn(b)
		for i := 1; i < len(locs); i++ {
			prev, cur := locs[i-1], locs[i]
			gap := math.Abs(cur.Chainage - prev.Chainage)
			if gap < network.Epsilon || gap >= minLength-network.Epsilon {
				continue
			}
			issue := report.NewIssue(report.Warning, fmt.Sprintf(msgTooClose, prev, cur, b.Name, gap, minLength), cur)
			issue.ViewData = []*network.NetworkLocation{prev, cur}
			issues = append(issues, issue)
		}
	}
	return issues
}

// StructureOnGridPoint reports structures that coincide with a calculation
// point. A composite counts as one structure.
type StructureOnGridPoint struct{}

func (StructureOnGridPoint) Name() string { return "StructureOnGridPoint" }

func (StructureOnGridPoint) Check(in *Input) []report.Issue {
	var issues []report.Issue
	for _, b := range in.Branches() {
		for _, f := range b.StructureFeatures() {
			loc, ok := in.Discretization.Find(b, f.Chainage())
			if !ok {
				continue
			}
			issue := report.NewIssue(report.Error, fmt.Sprintf(msgStructureOnGrid, structureLabel(f)), f)
			issue.ViewData = loc
			issues = append(issues, issue)
		}
	}
	return issues
}

// structureLabel names a structure feature; composites list their members.
func structureLabel(f network.Feature) string {
	c, ok := f.(*network.CompositeStructure)
	if !ok {
		return f.Name()
	}
	members := c.Structures()
	if len(members) == 0 {
		return c.Name()
	}
	names := make([]string, len(members))
	for i, s := range members {
		names[i] = s.Name()
	}
	return fmt.Sprintf("%s (%s)", c.Name(), strings.Join(names, ", "))
}

// StructureSeparation requires a calculation point strictly between every
// two consecutive structures at different chainages. Members of one
// composite share a chainage and are never compared with each other.
type StructureSeparation struct{}

func (StructureSeparation) Name() string { return "StructureSeparation" }

func (StructureSeparation) Check(in *Input) []report.Issue {
	var issues []report.Issue
	for _, b := range in.Branches() {
		structures := b.Structures()
		locs := in.Discretization.LocationsOn(b)
		for i := 1; i < len(structures); i++ {
			upstream, downstream := structures[i-1], structures[i]
			lo, hi := upstream.Chainage(), downstream.Chainage()
			if network.ChainageEqual(lo, hi) {
				continue
			}
			between := slices.ContainsFunc(locs, func(l *network.NetworkLocation) bool {
				return l.Chainage > lo+network.Epsilon && l.Chainage < hi-network.Epsilon
			})
			if between {
				continue
			}
			issue := report.NewIssue(report.Error,
				fmt.Sprintf(msgNoPointBetween, upstream.Name(), downstream.Name(), b.Name), downstream)
			issue.ViewData = []*network.Structure{upstream, downstream}
			issues = append(issues, issue)
		}
	}
	return issues
}

// UniqueNames reports, once, that named points share a name. The offending
// names are passed as view data.
type UniqueNames struct{}

func (UniqueNames) Name() string { return "UniqueNames" }

func (UniqueNames) Check(in *Input) []report.Issue {
	seen := make(map[string]int)
	for _, loc := range in.Discretization.Locations() {
		if loc.Name != "" {
			seen[loc.Name]++
		}
	}
	var duplicated []string
	for name, n := range seen {
		if n > 1 {
			duplicated = append(duplicated, name)
		}
	}
	if len(duplicated) == 0 {
		return nil
	}
	slices.Sort(duplicated)
	issue := report.NewIssue(report.Error, MsgDuplicateNames, in.Discretization)
	issue.ViewData = duplicated
	return []report.Issue{issue}
}
