package network

import "slices"

// FeatureKind discriminates the closed set of branch feature variants.
type FeatureKind int

const (
	KindStructure FeatureKind = iota
	KindCompositeStructure
	KindCrossSection
)

func (k FeatureKind) String() string {
	switch k {
	case KindStructure:
		return "Structure"
	case KindCompositeStructure:
		return "CompositeStructure"
	case KindCrossSection:
		return "CrossSection"
	default:
		return "Unknown"
	}
}

// Feature is a point object placed on a branch at a chainage.
// The set of implementations is closed: *Structure, *CompositeStructure and *CrossSection.
type Feature interface {
	Name() string
	Kind() FeatureKind
	Chainage() float64
	// Branch returns the branch the feature is attached to, or nil.
	Branch() *Branch

	base() *placement
}

// IsStructure reports whether the feature is a plain or composite structure.
func IsStructure(f Feature) bool {
	k := f.Kind()
	return k == KindStructure || k == KindCompositeStructure
}

type placement struct {
	name     string
	chainage float64
	branch   *Branch
}

func (p *placement) Name() string      { return p.name }
func (p *placement) Chainage() float64 { return p.chainage }
func (p *placement) Branch() *Branch   { return p.branch }
func (p *placement) base() *placement  { return p }

// StructureType names the hydraulic function of a structure.
type StructureType int

const (
	GeneralStructure StructureType = iota
	Weir
	Orifice
	Pump
	Culvert
	Bridge
)

func (t StructureType) String() string {
	switch t {
	case GeneralStructure:
		return "GeneralStructure"
	case Weir:
		return "Weir"
	case Orifice:
		return "Orifice"
	case Pump:
		return "Pump"
	case Culvert:
		return "Culvert"
	case Bridge:
		return "Bridge"
	default:
		return "Unknown"
	}
}

// ParseStructureType converts a name to a StructureType
func ParseStructureType(s string) (StructureType, bool) {
	switch s {
	case "GeneralStructure", "general", "":
		return GeneralStructure, true
	case "Weir", "weir":
		return Weir, true
	case "Orifice", "orifice":
		return Orifice, true
	case "Pump", "pump":
		return Pump, true
	case "Culvert", "culvert":
		return Culvert, true
	case "Bridge", "bridge":
		return Bridge, true
	default:
		return GeneralStructure, false
	}
}

// Structure is a single hydraulic structure. It sits on a branch either
// directly or as a member of a CompositeStructure.
type Structure struct {
	placement
	Type StructureType

	composite *CompositeStructure
}

// NewStructure creates a detached structure.
func NewStructure(name string, typ StructureType, chainage float64) *Structure {
	return &Structure{placement: placement{name: name, chainage: chainage}, Type: typ}
}

func (s *Structure) Kind() FeatureKind { return KindStructure }

// Composite returns the owning composite, or nil for a stand-alone structure.
func (s *Structure) Composite() *CompositeStructure { return s.composite }

// CompositeStructure groups structures that share one chainage.
type CompositeStructure struct {
	placement

	members []*Structure
}

// NewCompositeStructure creates a detached composite owning the given members.
// Members take the composite's chainage. Nothing is attached when any member
// is nil, repeated or already attached elsewhere.
func NewCompositeStructure(name string, chainage float64, members ...*Structure) (*CompositeStructure, error) {
	for i, s := range members {
		if s == nil {
			return nil, newError("NewCompositeStructure", "structure", "", ErrNilArgument)
		}
		if s.composite != nil || s.branch != nil || slices.Contains(members[:i], s) {
			return nil, newError("NewCompositeStructure", "structure", s.name, ErrFeatureAttached)
		}
	}
	c := &CompositeStructure{placement: placement{name: name, chainage: chainage}}
	for _, s := range members {
		if err := c.AddStructure(s); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *CompositeStructure) Kind() FeatureKind { return KindCompositeStructure }

// AddStructure appends a member. Returns ErrFeatureAttached when the structure
// already belongs to a branch or another composite.
func (c *CompositeStructure) AddStructure(s *Structure) error {
	if s == nil {
		return newError("AddStructure", "structure", "", ErrNilArgument)
	}
	if s.composite != nil || s.branch != nil {
		return newError("AddStructure", "structure", s.name, ErrFeatureAttached)
	}
	s.composite = c
	s.chainage = c.chainage
	s.branch = c.branch
	c.members = append(c.members, s)
	return nil
}

// Structures returns the members in insertion order.
func (c *CompositeStructure) Structures() []*Structure {
	return append([]*Structure(nil), c.members...)
}

func (c *CompositeStructure) setChainage(chainage float64) {
	c.chainage = chainage
	for _, s := range c.members {
		s.chainage = chainage
	}
}

func (c *CompositeStructure) setBranch(b *Branch) {
	c.branch = b
	for _, s := range c.members {
		s.branch = b
	}
}

// CrossSectionType is the profile representation of a definition.
type CrossSectionType int

const (
	CrossSectionYZ CrossSectionType = iota
	CrossSectionZW
	CrossSectionStandard
)

func (t CrossSectionType) String() string {
	switch t {
	case CrossSectionYZ:
		return "YZ"
	case CrossSectionZW:
		return "ZW"
	case CrossSectionStandard:
		return "Standard"
	default:
		return "Unknown"
	}
}

// ParseCrossSectionType converts a name to a CrossSectionType. Empty means YZ.
func ParseCrossSectionType(s string) (CrossSectionType, bool) {
	switch s {
	case "YZ", "yz", "":
		return CrossSectionYZ, true
	case "ZW", "zw":
		return CrossSectionZW, true
	case "Standard", "standard":
		return CrossSectionStandard, true
	default:
		return CrossSectionYZ, false
	}
}

// CrossSectionDefinition is a profile that may be shared by several cross-sections.
type CrossSectionDefinition struct {
	Name    string
	Type    CrossSectionType
	Thalweg float64
}

// CrossSection places a profile on a branch. A proxy references a shared
// definition instead of owning one.
type CrossSection struct {
	placement
	Definition *CrossSectionDefinition

	proxy bool
}

// NewCrossSection creates a cross-section owning def.
func NewCrossSection(name string, chainage float64, def *CrossSectionDefinition) *CrossSection {
	return &CrossSection{placement: placement{name: name, chainage: chainage}, Definition: def}
}

// NewCrossSectionProxy creates a cross-section referencing a shared definition.
func NewCrossSectionProxy(name string, chainage float64, shared *CrossSectionDefinition) *CrossSection {
	return &CrossSection{placement: placement{name: name, chainage: chainage}, Definition: shared, proxy: true}
}

func (cs *CrossSection) Kind() FeatureKind { return KindCrossSection }

// IsProxy reports whether the definition is shared.
func (cs *CrossSection) IsProxy() bool { return cs.proxy }
