package network

import (
	"cmp"
	"fmt"
	"math"
)

// Epsilon is the absolute chainage tolerance under which two positions on the
// same branch are the same position. It is unrelated to the configurable
// minimum segment length.
const Epsilon = 1e-6

// ChainageEqual compares two chainages with Epsilon.
func ChainageEqual(a, b float64) bool {
	return math.Abs(a-b) < Epsilon
}

// NetworkLocation is a position on a branch. Locations held by a
// discretization are compared by pointer for identity and by Equals for position.
type NetworkLocation struct {
	Branch   *Branch
	Chainage float64
	Name     string
}

// NewNetworkLocation creates a location; chainages within Epsilon outside the
// branch snap onto the nearest end.
func NewNetworkLocation(branch *Branch, chainage float64) *NetworkLocation {
	if branch != nil {
		if c, ok := branch.normalize(chainage); ok {
			chainage = c
		}
	}
	return &NetworkLocation{Branch: branch, Chainage: chainage}
}

// Equals reports whether both locations are on the same branch within Epsilon.
func (l *NetworkLocation) Equals(other *NetworkLocation) bool {
	if l == nil || other == nil {
		return l == other
	}
	return l.Branch == other.Branch && ChainageEqual(l.Chainage, other.Chainage)
}

// AtNode reports whether the location is the branch end at node.
func (l *NetworkLocation) AtNode(node *Node) bool {
	if l.Branch == nil {
		return false
	}
	if l.Branch.Source == node && ChainageEqual(l.Chainage, 0) {
		return true
	}
	return l.Branch.Target == node && ChainageEqual(l.Chainage, l.Branch.Length)
}

// InRange reports whether the chainage lies on the branch, within tolerance.
func (l *NetworkLocation) InRange() bool {
	if l.Branch == nil {
		return false
	}
	_, ok := l.Branch.normalize(l.Chainage)
	return ok
}

func (l *NetworkLocation) String() string {
	if l.Name != "" {
		return l.Name
	}
	if l.Branch == nil {
		return fmt.Sprintf("<nil>@%.3f", l.Chainage)
	}
	return fmt.Sprintf("%s@%.3f", l.Branch.Name, l.Chainage)
}

// CompareLocations orders by branch index, then raw chainage. It is a strict
// total order; tolerance applies only in Equals and ChainageEqual.
func CompareLocations(a, b *NetworkLocation) int {
	if c := cmp.Compare(branchIndex(a.Branch), branchIndex(b.Branch)); c != 0 {
		return c
	}
	return cmp.Compare(a.Chainage, b.Chainage)
}

func branchIndex(b *Branch) int {
	if b == nil {
		return -1
	}
	return b.index
}
