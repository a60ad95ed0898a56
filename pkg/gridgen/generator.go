// Package gridgen (re)generates the calculation points of a discretization
// for a subset of its network's branches.
//
// Generation is a merge: branches outside the subset are left alone, fixed
// points are never removed or moved, and a planned point that coincides with
// an existing one keeps the existing location (and its name).
package gridgen

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/dd0wney/cluso-netgrid/pkg/discretization"
	"github.com/dd0wney/cluso-netgrid/pkg/logging"
	"github.com/dd0wney/cluso-netgrid/pkg/metrics"
	"github.com/dd0wney/cluso-netgrid/pkg/network"
)

// Result summarizes one generation run.
type Result struct {
	Branches int `json:"branches"` // branches regenerated
	Added    int `json:"added"`    // locations created
	Removed  int `json:"removed"`  // unfixed locations dropped
	Kept     int `json:"kept"`     // locations retained on the regenerated branches
}

// Generator applies one set of options to discretizations.
type Generator struct {
	opts    Options
	logger  logging.Logger
	metrics *metrics.Registry
}

// New creates a generator. Options are validated on every Generate call.
func New(opts Options) *Generator {
	return &Generator{
		opts:   opts,
		logger: logging.NewNopLogger(),
	}
}

// WithLogger sets the logger used for run summaries and per-branch detail.
func (g *Generator) WithLogger(logger logging.Logger) *Generator {
	g.logger = logging.OrDefault(logger).With(logging.Component("gridgen"))
	return g
}

// WithMetrics records every run in the given registry.
func (g *Generator) WithMetrics(m *metrics.Registry) *Generator {
	g.metrics = m
	return g
}

// Options returns the generator options.
func (g *Generator) Options() Options {
	return g.opts
}

// Generate regenerates the calculation points of branches in d. Invalid
// options, an empty subset or a branch outside d's network reject the whole
// call before d is touched. A run that fails part way leaves d unchanged.
func (g *Generator) Generate(d *discretization.Discretization, branches []*network.Branch) (*Result, error) {
	timer := logging.StartTimer(g.logger, "grid generation", logging.Operation("generate"))

	subset, err := g.prepare(d, branches)
	if err != nil {
		timer.EndError(err)
		if g.metrics != nil {
			g.metrics.RecordGeneration("rejected", timer.Elapsed(), 0, 0, 0, 0)
		}
		return nil, err
	}

	return g.run(d, subset, timer, g.plan)
}

type planFunc func(d *discretization.Discretization, branch *network.Branch) []float64

// run regenerates subset in order. When a branch fails, d is restored to
// its state before the run.
func (g *Generator) run(d *discretization.Discretization, subset []*network.Branch, timer *logging.TimedOperation, plan planFunc) (*Result, error) {
	snap := d.Snapshot()
	res := &Result{Branches: len(subset)}
	names := newNameSet(d)
	for _, b := range subset {
		added, removed, kept, err := g.apply(d, b, plan(d, b), names)
		if err != nil {
			d.Restore(snap)
			err = fmt.Errorf("generate %s: %w", b.Name, err)
			timer.EndError(err)
			if g.metrics != nil {
				g.metrics.RecordGeneration("failed", timer.Elapsed(), 0, 0, 0, 0)
			}
			return nil, err
		}
		res.Added += added
		res.Removed += removed
		res.Kept += kept
		g.logger.Debug("branch regenerated",
			logging.Branch(b.Name),
			logging.Int("added", added),
			logging.Int("removed", removed),
			logging.Int("kept", kept),
		)
	}
	d.SetMethod(g.opts.Method)

	timer.End(
		logging.Int("branches", res.Branches),
		logging.Int("added", res.Added),
		logging.Int("removed", res.Removed),
		logging.Count(d.Len()),
	)
	if g.metrics != nil {
		g.metrics.RecordGeneration("success", timer.Elapsed(), res.Branches, res.Added, res.Removed, d.Len())
	}
	return res, nil
}

// Generate regenerates branches in d with opts.
func Generate(d *discretization.Discretization, branches []*network.Branch, opts Options) error {
	_, err := New(opts).Generate(d, branches)
	return err
}

// prepare validates the call and returns the subset without repeats, in
// network order.
func (g *Generator) prepare(d *discretization.Discretization, branches []*network.Branch) ([]*network.Branch, error) {
	if d == nil {
		return nil, ErrNilDiscretization
	}
	if err := g.opts.Validate(); err != nil {
		return nil, err
	}
	if len(branches) == 0 {
		return nil, fmt.Errorf("%w: empty branch subset", ErrInvalidConfiguration)
	}

	net := d.Network()
	subset := make([]*network.Branch, 0, len(branches))
	for _, b := range branches {
		if b == nil || net == nil || !net.Contains(b) {
			return nil, fmt.Errorf("%w: %v", ErrUnknownBranch, b)
		}
		if !slices.Contains(subset, b) {
			subset = append(subset, b)
		}
	}
	slices.SortFunc(subset, func(a, b *network.Branch) int {
		return cmp.Compare(a.Index(), b.Index())
	})
	return subset, nil
}

// apply merges the planned chainages into the locations on branch.
func (g *Generator) apply(d *discretization.Discretization, branch *network.Branch, planned []float64, names *nameSet) (added, removed, kept int, err error) {
	matched := make([]bool, len(planned))
	match := func(c float64) bool {
		for i, p := range planned {
			if !matched[i] && network.ChainageEqual(p, c) {
				matched[i] = true
				return true
			}
		}
		return false
	}

	existing := d.LocationsOn(branch)
	for _, loc := range existing {
		if d.IsFixed(loc) {
			match(loc.Chainage)
			kept++
		}
	}
	var stale []*network.NetworkLocation
	for _, loc := range existing {
		if d.IsFixed(loc) {
			continue
		}
		if match(loc.Chainage) {
			kept++
		} else {
			stale = append(stale, loc)
		}
	}

	for _, loc := range stale {
		d.Remove(loc)
		removed++
	}
	for i, c := range planned {
		if matched[i] {
			continue
		}
		loc := network.NewNetworkLocation(branch, c)
		loc.Name = names.next(branch, loc.Chainage)
		if err := d.AddLocation(loc); err != nil {
			return added, removed, kept, err
		}
		added++
	}
	return added, removed, kept, nil
}

// nameSet hands out location names not yet used in a discretization.
type nameSet struct {
	used map[string]struct{}
}

func newNameSet(d *discretization.Discretization) *nameSet {
	s := &nameSet{used: make(map[string]struct{})}
	for _, loc := range d.Locations() {
		if loc.Name != "" {
			s.used[loc.Name] = struct{}{}
		}
	}
	return s
}

func (s *nameSet) next(branch *network.Branch, chainage float64) string {
	base := fmt.Sprintf("%s_%.3f", branch.Name, chainage)
	name := base
	for i := 2; ; i++ {
		if _, taken := s.used[name]; !taken {
			break
		}
		name = fmt.Sprintf("%s_%d", base, i)
	}
	s.used[name] = struct{}{}
	return name
}
