package gridgen

import (
	"math"
	"slices"

	"github.com/dd0wney/cluso-netgrid/pkg/discretization"
	"github.com/dd0wney/cluso-netgrid/pkg/network"
)

// pointSet collects the chainages planned for one branch, kept sorted.
// Required points are always accepted; offered points must keep the minimum
// distance to every accepted point and must not sit on a structure.
type pointSet struct {
	length     float64
	min        float64
	structures []float64
	accepted   []float64
}

func newPointSet(branch *network.Branch, min float64) *pointSet {
	p := &pointSet{length: branch.Length, min: min}
	for _, f := range branch.StructureFeatures() {
		c := f.Chainage()
		if n := len(p.structures); n == 0 || !network.ChainageEqual(p.structures[n-1], c) {
			p.structures = append(p.structures, c)
		}
	}
	return p
}

func (p *pointSet) require(c float64) {
	if !p.has(c) {
		p.insert(c)
	}
}

// offer adds c when it respects the minimum distance and misses every
// structure. It reports whether c was added.
func (p *pointSet) offer(c float64) bool {
	i, _ := slices.BinarySearch(p.accepted, c)
	prev, hasPrev := neighbour(p.accepted, i-1)
	next, hasNext := neighbour(p.accepted, i)
	if !p.fits(c, prev, hasPrev, next, hasNext) {
		return false
	}
	p.accepted = slices.Insert(p.accepted, i, c)
	return true
}

// fits reports whether c may sit between its accepted neighbours.
func (p *pointSet) fits(c, prev float64, hasPrev bool, next float64, hasNext bool) bool {
	if c < 0 || c > p.length || p.onStructure(c) {
		return false
	}
	if hasPrev && p.tooClose(c-prev) {
		return false
	}
	return !hasNext || !p.tooClose(next-c)
}

func (p *pointSet) tooClose(d float64) bool {
	return d < network.Epsilon || d < p.min-network.Epsilon
}

func (p *pointSet) onStructure(c float64) bool {
	return nearAny(p.structures, c)
}

func (p *pointSet) has(c float64) bool {
	return nearAny(p.accepted, c)
}

// hasBetween reports whether a point lies strictly between lo and hi.
func (p *pointSet) hasBetween(lo, hi float64) bool {
	i, found := slices.BinarySearch(p.accepted, lo+network.Epsilon)
	if found {
		i++
	}
	return i < len(p.accepted) && p.accepted[i] < hi-network.Epsilon
}

func (p *pointSet) insert(c float64) {
	i, _ := slices.BinarySearch(p.accepted, c)
	p.accepted = slices.Insert(p.accepted, i, c)
}

// fill subdivides every gap between consecutive accepted points into
// n = floor(gap/spacing) equal parts and offers the inner points. Points are
// produced in order, so the pass is linear in the number of points.
func (p *pointSet) fill(spacing float64) {
	if len(p.accepted) == 0 {
		return
	}
	merged := make([]float64, 1, len(p.accepted)+int(p.length/spacing)+1)
	merged[0] = p.accepted[0]
	for _, hi := range p.accepted[1:] {
		lo := merged[len(merged)-1]
		gap := hi - lo
		n := int(math.Floor((gap + network.Epsilon) / spacing))
		for k := 1; k < n; k++ {
			c := lo + gap*float64(k)/float64(n)
			if p.fits(c, merged[len(merged)-1], true, hi, true) {
				merged = append(merged, c)
			}
		}
		merged = append(merged, hi)
	}
	p.accepted = merged
}

func neighbour(sorted []float64, i int) (float64, bool) {
	if i < 0 || i >= len(sorted) {
		return 0, false
	}
	return sorted[i], true
}

// nearAny reports whether sorted holds a value within network.Epsilon of c.
func nearAny(sorted []float64, c float64) bool {
	i, _ := slices.BinarySearch(sorted, c)
	if v, ok := neighbour(sorted, i); ok && network.ChainageEqual(v, c) {
		return true
	}
	v, ok := neighbour(sorted, i-1)
	return ok && network.ChainageEqual(v, c)
}

// plan returns the sorted chainages branch should carry after generation.
func (g *Generator) plan(d *discretization.Discretization, branch *network.Branch) []float64 {
	opts := g.opts
	p := newPointSet(branch, opts.MinimumSegmentLength)

	for _, loc := range d.LocationsOn(branch) {
		if d.IsFixed(loc) {
			p.require(loc.Chainage)
		}
	}

	if opts.GridAtNodes || !d.NodeCovered(branch.Source, branch) {
		p.require(0)
	}
	if opts.GridAtNodes || !d.NodeCovered(branch.Target, branch) {
		p.require(branch.Length)
	}

	if opts.GridAtStructures {
		for _, s := range p.structures {
			p.offer(s - opts.StructureDistance)
			p.offer(s + opts.StructureDistance)
		}
	}

	if opts.GridAtCrossSections {
		for _, cs := range branch.CrossSections() {
			p.offer(cs.Chainage())
		}
	}

	if opts.GridAtStructures {
		for i := 1; i < len(p.structures); i++ {
			lo, hi := p.structures[i-1], p.structures[i]
			if !p.hasBetween(lo, hi) {
				p.offer((lo + hi) / 2)
			}
		}
	}

	if opts.GridAtFixedLength {
		p.fill(opts.FixedLength)
	}

	return p.accepted
}
