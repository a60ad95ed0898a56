// Package discretization holds the computational grid of a 1D network: an
// ordered set of calculation points (network locations), the subset of those
// points that is fixed, and the segment generation method.
//
// A Discretization is mutated in place by the grid generator and by user edits.
// It is never replaced wholesale.
package discretization

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/dd0wney/cluso-netgrid/pkg/network"
)

// DefaultMinimumSegmentLength is the model default for the minimum distance
// between calculation points (Dxmin1D).
const DefaultMinimumSegmentLength = 0.001

// Common sentinel errors
var (
	ErrUnknownBranch      = errors.New("branch is not part of the discretized network")
	ErrUnknownLocation    = errors.New("location is not part of the discretization")
	ErrDuplicateLocation  = errors.New("location already present")
	ErrChainageOutOfRange = errors.New("chainage out of range")
	ErrNilLocation        = errors.New("nil location")
)

// Discretization is the set of calculation points of a network.
// It is not safe for concurrent mutation; callers serialize edits.
type Discretization struct {
	Name string

	net       *network.Network
	method    SegmentGenerationMethod
	locations []*network.NetworkLocation
	fixed     map[*network.NetworkLocation]struct{}
}

// Option configures a Discretization at construction.
type Option func(*Discretization)

// WithName sets the discretization name.
func WithName(name string) Option {
	return func(d *Discretization) { d.Name = name }
}

// WithMethod sets the segment generation method.
func WithMethod(m SegmentGenerationMethod) Option {
	return func(d *Discretization) { d.method = m }
}

// New creates an empty discretization of net using
// SegmentBetweenLocationsFullyCovered unless configured otherwise.
func New(net *network.Network, opts ...Option) *Discretization {
	d := &Discretization{
		Name:   "Computational grid",
		net:    net,
		method: SegmentBetweenLocationsFullyCovered,
		fixed:  make(map[*network.NetworkLocation]struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Network returns the discretized network.
func (d *Discretization) Network() *network.Network {
	return d.net
}

// Method returns the segment generation method.
func (d *Discretization) Method() SegmentGenerationMethod {
	return d.method
}

// SetMethod changes the segment generation method.
func (d *Discretization) SetMethod(m SegmentGenerationMethod) {
	d.method = m
}

// Len returns the number of locations.
func (d *Discretization) Len() int {
	return len(d.locations)
}

// IsEmpty reports whether there are no locations.
func (d *Discretization) IsEmpty() bool {
	return len(d.locations) == 0
}

// Locations returns all locations ordered by branch order then chainage.
func (d *Discretization) Locations() []*network.NetworkLocation {
	return slices.Clone(d.locations)
}

// LocationsOn returns the locations on branch ordered by chainage.
func (d *Discretization) LocationsOn(branch *network.Branch) []*network.NetworkLocation {
	start, end := d.branchRange(branch)
	return slices.Clone(d.locations[start:end])
}

// Contains reports whether loc (by identity) belongs to the discretization.
func (d *Discretization) Contains(loc *network.NetworkLocation) bool {
	return d.indexOf(loc) >= 0
}

// Find returns the location on branch within network.Epsilon of chainage.
func (d *Discretization) Find(branch *network.Branch, chainage float64) (*network.NetworkLocation, bool) {
	start, end := d.branchRange(branch)
	for _, loc := range d.locations[start:end] {
		if network.ChainageEqual(loc.Chainage, chainage) {
			return loc, true
		}
	}
	return nil, false
}

// AddLocation inserts loc as given, keeping the set ordered. Only an exact
// (branch, chainage) repeat is rejected; positions that merely coincide within
// tolerance are accepted and left to the grid validator to report.
func (d *Discretization) AddLocation(loc *network.NetworkLocation) error {
	if err := d.checkLocation(loc); err != nil {
		return err
	}
	if d.Contains(loc) {
		return fmt.Errorf("%w: %s", ErrDuplicateLocation, loc)
	}
	start, end := d.branchRange(loc.Branch)
	for _, existing := range d.locations[start:end] {
		if existing.Chainage == loc.Chainage {
			return fmt.Errorf("%w: %s at chainage %v", ErrDuplicateLocation, loc.Branch.Name, loc.Chainage)
		}
	}
	d.insert(loc)
	return nil
}

// AddAt returns the location at (branch, chainage), creating it when no
// location lies within tolerance. created reports whether a new one was added.
func (d *Discretization) AddAt(branch *network.Branch, chainage float64) (loc *network.NetworkLocation, created bool, err error) {
	if existing, ok := d.Find(branch, chainage); ok {
		return existing, false, nil
	}
	loc = network.NewNetworkLocation(branch, chainage)
	if err := d.checkLocation(loc); err != nil {
		return nil, false, err
	}
	d.insert(loc)
	return loc, true, nil
}

// Remove deletes loc and its fixed marker. It reports whether loc was present.
func (d *Discretization) Remove(loc *network.NetworkLocation) bool {
	i := d.indexOf(loc)
	if i < 0 {
		return false
	}
	d.locations = slices.Delete(d.locations, i, i+1)
	delete(d.fixed, loc)
	return true
}

// Snapshot is a saved copy of the locations, fixed set and method of a
// discretization.
type Snapshot struct {
	method    SegmentGenerationMethod
	locations []*network.NetworkLocation
	fixed     map[*network.NetworkLocation]struct{}
}

// Snapshot saves the current state for a later Restore.
func (d *Discretization) Snapshot() Snapshot {
	return Snapshot{
		method:    d.method,
		locations: slices.Clone(d.locations),
		fixed:     maps.Clone(d.fixed),
	}
}

// Restore returns d to the state saved by s. Location identities are kept.
func (d *Discretization) Restore(s Snapshot) {
	d.method = s.method
	d.locations = slices.Clone(s.locations)
	d.fixed = maps.Clone(s.fixed)
	if d.fixed == nil {
		d.fixed = make(map[*network.NetworkLocation]struct{})
	}
}

// Move changes the chainage of loc on its branch, keeping identity, name and
// fixed status.
func (d *Discretization) Move(loc *network.NetworkLocation, chainage float64) error {
	i := d.indexOf(loc)
	if i < 0 {
		return ErrUnknownLocation
	}
	moved := network.NewNetworkLocation(loc.Branch, chainage)
	if !moved.InRange() {
		return fmt.Errorf("%w: %v not in [0, %v]", ErrChainageOutOfRange, chainage, loc.Branch.Length)
	}
	start, end := d.branchRange(loc.Branch)
	for _, existing := range d.locations[start:end] {
		if existing != loc && existing.Chainage == moved.Chainage {
			return fmt.Errorf("%w: %s at chainage %v", ErrDuplicateLocation, loc.Branch.Name, moved.Chainage)
		}
	}
	d.locations = slices.Delete(d.locations, i, i+1)
	loc.Chainage = moved.Chainage
	d.insert(loc)
	return nil
}

// SetFixed marks or unmarks loc as fixed.
func (d *Discretization) SetFixed(loc *network.NetworkLocation, fixed bool) error {
	if !d.Contains(loc) {
		return ErrUnknownLocation
	}
	if fixed {
		d.fixed[loc] = struct{}{}
	} else {
		delete(d.fixed, loc)
	}
	return nil
}

// IsFixed reports whether loc is protected from regeneration.
func (d *Discretization) IsFixed(loc *network.NetworkLocation) bool {
	_, ok := d.fixed[loc]
	return ok
}

// FixedLocations returns the fixed locations in grid order.
func (d *Discretization) FixedLocations() []*network.NetworkLocation {
	var out []*network.NetworkLocation
	for _, loc := range d.locations {
		if d.IsFixed(loc) {
			out = append(out, loc)
		}
	}
	return out
}

// NameInUse reports whether any location carries name.
func (d *Discretization) NameInUse(name string) bool {
	if name == "" {
		return false
	}
	for _, loc := range d.locations {
		if loc.Name == name {
			return true
		}
	}
	return false
}

func (d *Discretization) checkLocation(loc *network.NetworkLocation) error {
	if loc == nil {
		return ErrNilLocation
	}
	if d.net == nil || !d.net.Contains(loc.Branch) {
		return fmt.Errorf("%w: %v", ErrUnknownBranch, loc.Branch)
	}
	if !loc.InRange() {
		return fmt.Errorf("%w: %v not in [0, %v]", ErrChainageOutOfRange, loc.Chainage, loc.Branch.Length)
	}
	return nil
}

// insert places loc after every location that does not sort after it.
func (d *Discretization) insert(loc *network.NetworkLocation) {
	i, _ := slices.BinarySearchFunc(d.locations, loc, func(e, target *network.NetworkLocation) int {
		if network.CompareLocations(e, target) <= 0 {
			return -1
		}
		return 1
	})
	d.locations = slices.Insert(d.locations, i, loc)
}

func (d *Discretization) indexOf(loc *network.NetworkLocation) int {
	if loc == nil {
		return -1
	}
	return slices.Index(d.locations, loc)
}

// branchRange returns the half-open index range of locations on branch.
func (d *Discretization) branchRange(branch *network.Branch) (int, int) {
	if d.net == nil || !d.net.Contains(branch) {
		return 0, 0
	}
	idx := branch.Index()
	start, _ := slices.BinarySearchFunc(d.locations, idx, func(e *network.NetworkLocation, target int) int {
		if e.Branch.Index() < target {
			return -1
		}
		return 1
	})
	end, _ := slices.BinarySearchFunc(d.locations, idx, func(e *network.NetworkLocation, target int) int {
		if e.Branch.Index() <= target {
			return -1
		}
		return 1
	})
	return start, end
}
