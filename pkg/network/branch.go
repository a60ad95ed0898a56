package network

import (
	"fmt"
	"math"
	"sort"
)

// Branch is a directed edge from Source to Target. Features are kept sorted by chainage.
type Branch struct {
	Name        string
	Length      float64
	Source      *Node
	Target      *Node
	OrderNumber int

	network  *Network
	index    int
	features []Feature
}

// Index is the branch position in its network and the primary sort key for locations.
func (b *Branch) Index() int {
	return b.index
}

// Network returns the owning network.
func (b *Branch) Network() *Network {
	return b.network
}

func (b *Branch) String() string {
	return b.Name
}

// AddFeature attaches a detached feature at its current chainage.
func (b *Branch) AddFeature(f Feature) error {
	if f == nil {
		return newError("AddFeature", "feature", "", ErrNilArgument)
	}
	p := f.base()
	if p.branch != nil {
		return newError("AddFeature", "feature", p.name, ErrFeatureAttached)
	}
	if s, ok := f.(*Structure); ok && s.composite != nil {
		return newError("AddFeature", "feature", p.name, ErrFeatureAttached)
	}
	chainage, ok := b.normalize(p.chainage)
	if !ok {
		return newError("AddFeature", "feature", p.name,
			fmt.Errorf("%w: %v not in [0, %v]", ErrChainageOutOfRange, p.chainage, b.Length))
	}

	if c, ok := f.(*CompositeStructure); ok {
		c.setChainage(chainage)
		c.setBranch(b)
	} else {
		p.chainage = chainage
		p.branch = b
	}
	b.features = append(b.features, f)
	b.sortFeatures()
	return nil
}

// RemoveFeature detaches f from the branch. It reports whether f was attached here.
func (b *Branch) RemoveFeature(f Feature) bool {
	for i, existing := range b.features {
		if existing != f {
			continue
		}
		b.features = append(b.features[:i], b.features[i+1:]...)
		if c, ok := f.(*CompositeStructure); ok {
			c.setBranch(nil)
		} else {
			f.base().branch = nil
		}
		return true
	}
	return false
}

// MoveFeature changes the chainage of an attached feature. Composite members
// move along with their composite and cannot be moved on their own.
func (b *Branch) MoveFeature(f Feature, chainage float64) error {
	if f == nil {
		return newError("MoveFeature", "feature", "", ErrNilArgument)
	}
	if f.Branch() != b {
		return newError("MoveFeature", "feature", f.Name(), ErrFeatureNotOnBranch)
	}
	if s, ok := f.(*Structure); ok && s.composite != nil {
		return newError("MoveFeature", "feature", f.Name(), ErrCompositeMember)
	}
	normalized, ok := b.normalize(chainage)
	if !ok {
		return newError("MoveFeature", "feature", f.Name(),
			fmt.Errorf("%w: %v not in [0, %v]", ErrChainageOutOfRange, chainage, b.Length))
	}
	if c, ok := f.(*CompositeStructure); ok {
		c.setChainage(normalized)
	} else {
		f.base().chainage = normalized
	}
	b.sortFeatures()
	return nil
}

// Features returns the attached features ordered by chainage.
func (b *Branch) Features() []Feature {
	return append([]Feature(nil), b.features...)
}

// StructureFeatures returns the logical structures on the branch: stand-alone
// structures and composites, each once, ordered by chainage.
func (b *Branch) StructureFeatures() []Feature {
	var out []Feature
	for _, f := range b.features {
		if IsStructure(f) {
			out = append(out, f)
		}
	}
	return out
}

// Structures returns every single structure on the branch, composite members
// included, ordered by chainage. Members of one composite keep their order.
func (b *Branch) Structures() []*Structure {
	var out []*Structure
	for _, f := range b.features {
		switch v := f.(type) {
		case *Structure:
			out = append(out, v)
		case *CompositeStructure:
			out = append(out, v.members...)
		}
	}
	return out
}

// CrossSections returns the cross-sections ordered by chainage.
func (b *Branch) CrossSections() []*CrossSection {
	var out []*CrossSection
	for _, f := range b.features {
		if cs, ok := f.(*CrossSection); ok {
			out = append(out, cs)
		}
	}
	return out
}

// ChainageAt returns the chainage of the branch end at node.
// ok is false when node is neither source nor target.
func (b *Branch) ChainageAt(node *Node) (chainage float64, ok bool) {
	switch node {
	case b.Source:
		return 0, true
	case b.Target:
		return b.Length, true
	default:
		return 0, false
	}
}

// OtherBranchesAt returns the branches other than b that touch node.
func (b *Branch) OtherBranchesAt(node *Node) []*Branch {
	var out []*Branch
	for _, other := range node.Branches() {
		if other != b {
			out = append(out, other)
		}
	}
	return out
}

// normalize snaps chainages within Epsilon of an end onto that end.
func (b *Branch) normalize(chainage float64) (float64, bool) {
	switch {
	case chainage < -Epsilon || chainage > b.Length+Epsilon || math.IsNaN(chainage):
		return chainage, false
	case chainage < 0:
		return 0, true
	case chainage > b.Length:
		return b.Length, true
	default:
		return chainage, true
	}
}

func (b *Branch) sortFeatures() {
	sort.SliceStable(b.features, func(i, j int) bool {
		return b.features[i].Chainage() < b.features[j].Chainage()
	})
}
