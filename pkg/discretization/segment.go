package discretization

import (
	"github.com/dd0wney/cluso-netgrid/pkg/network"
)

// SegmentGenerationMethod decides how calculation points map onto segments.
type SegmentGenerationMethod int

const (
	// None derives no segments.
	None SegmentGenerationMethod = iota
	// SegmentBetweenLocations spans one segment between each pair of
	// consecutive locations on a branch.
	SegmentBetweenLocations
	// SegmentBetweenLocationsFullyCovered is SegmentBetweenLocations where a
	// branch lacking its own end point borrows the point of a connected
	// branch at the shared node, so every branch is covered end to end.
	SegmentBetweenLocationsFullyCovered
	// SegmentPerLocation centres one segment on each location, split halfway
	// to its neighbours.
	SegmentPerLocation
)

func (m SegmentGenerationMethod) String() string {
	switch m {
	case None:
		return "None"
	case SegmentBetweenLocations:
		return "SegmentBetweenLocations"
	case SegmentBetweenLocationsFullyCovered:
		return "SegmentBetweenLocationsFullyCovered"
	case SegmentPerLocation:
		return "SegmentPerLocation"
	default:
		return "Unknown"
	}
}

// ParseSegmentGenerationMethod converts a name to a method.
func ParseSegmentGenerationMethod(s string) (SegmentGenerationMethod, bool) {
	for m := None; m <= SegmentPerLocation; m++ {
		if m.String() == s {
			return m, true
		}
	}
	return None, false
}

// Segment is a stretch [Start, End] of a branch.
type Segment struct {
	Branch *network.Branch
	Start  float64
	End    float64
}

// Length returns End - Start.
func (s Segment) Length() float64 {
	return s.End - s.Start
}

// Segments derives the segments of branch from its locations according to the
// configured method. Coincident locations yield no zero-length segment.
func (d *Discretization) Segments(branch *network.Branch) []Segment {
	chainages := d.segmentChainages(branch)

	switch d.method {
	case SegmentBetweenLocations, SegmentBetweenLocationsFullyCovered:
		var out []Segment
		for i := 1; i < len(chainages); i++ {
			out = append(out, Segment{Branch: branch, Start: chainages[i-1], End: chainages[i]})
		}
		return out
	case SegmentPerLocation:
		var out []Segment
		for i, c := range chainages {
			start, end := 0.0, branch.Length
			if i > 0 {
				start = (chainages[i-1] + c) / 2
			}
			if i < len(chainages)-1 {
				end = (c + chainages[i+1]) / 2
			}
			out = append(out, Segment{Branch: branch, Start: start, End: end})
		}
		return out
	default:
		return nil
	}
}

func (d *Discretization) segmentChainages(branch *network.Branch) []float64 {
	var chainages []float64
	add := func(c float64) {
		if n := len(chainages); n > 0 && network.ChainageEqual(chainages[n-1], c) {
			return
		}
		chainages = append(chainages, c)
	}

	borrow := d.method == SegmentBetweenLocationsFullyCovered
	if borrow && d.coveredByNeighbour(branch, branch.Source) {
		add(0)
	}
	for _, loc := range d.LocationsOn(branch) {
		add(loc.Chainage)
	}
	if borrow && d.coveredByNeighbour(branch, branch.Target) {
		add(branch.Length)
	}
	return chainages
}

// coveredByNeighbour reports whether branch lacks its own point at node but
// another branch there has one.
func (d *Discretization) coveredByNeighbour(branch *network.Branch, node *network.Node) bool {
	c, _ := branch.ChainageAt(node)
	if _, ok := d.Find(branch, c); ok {
		return false
	}
	return d.NodeCovered(node, branch)
}

// NodeCovered reports whether a branch other than except has a location at node.
func (d *Discretization) NodeCovered(node *network.Node, except *network.Branch) bool {
	for _, other := range node.Branches() {
		if other == except {
			continue
		}
		c, ok := other.ChainageAt(node)
		if !ok {
			continue
		}
		if other.Source == node && other.Target == node {
			// Self-loop: either end counts.
			if _, found := d.Find(other, 0); found {
				return true
			}
			c = other.Length
		}
		if _, found := d.Find(other, c); found {
			return true
		}
	}
	return false
}
