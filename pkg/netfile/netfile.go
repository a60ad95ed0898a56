// Package netfile reads and writes a YAML description of a network, its
// features and its calculation points.
//
//	name: river
//	nodes: [up, down]
//	definitions:
//	  - {name: profile, type: YZ}
//	branches:
//	  - name: main
//	    source: up
//	    target: down
//	    length: 1200
//	    structures:
//	      - {name: weir1, type: Weir, chainage: 400}
//	    composites:
//	      - name: gates
//	        chainage: 800
//	        structures: [{name: gate1, type: Orifice}, {name: gate2, type: Orifice}]
//	    cross_sections:
//	      - {name: cs1, chainage: 100, definition: profile}
//	grid:
//	  method: SegmentBetweenLocationsFullyCovered
//	  points:
//	    - {branch: main, chainage: 0, name: main_start, fixed: true}
//	grid2d:
//	  cells: 0
package netfile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dd0wney/cluso-netgrid/pkg/discretization"
	"github.com/dd0wney/cluso-netgrid/pkg/network"
	"github.com/dd0wney/cluso-netgrid/pkg/validation"
)

// ErrInvalidFile wraps every structural problem found while building a model.
var ErrInvalidFile = errors.New("invalid network file")

// File is the YAML document.
type File struct {
	Name        string       `yaml:"name" validate:"required,name"`
	Nodes       []string     `yaml:"nodes" validate:"dive,name"`
	Definitions []Definition `yaml:"definitions,omitempty" validate:"dive"`
	Branches    []Branch     `yaml:"branches" validate:"dive"`
	Grid        Grid         `yaml:"grid"`
	Grid2D      *Mesh        `yaml:"grid2d,omitempty"`
}

// Definition is a shared cross-section profile.
type Definition struct {
	Name    string  `yaml:"name" validate:"required,name"`
	Type    string  `yaml:"type,omitempty"`
	Thalweg float64 `yaml:"thalweg,omitempty" validate:"finite"`
}

// Branch describes one branch and its features.
type Branch struct {
	Name          string         `yaml:"name" validate:"required,name"`
	Source        string         `yaml:"source" validate:"required"`
	Target        string         `yaml:"target" validate:"required"`
	Length        float64        `yaml:"length" validate:"gte=0,finite"`
	OrderNumber   int            `yaml:"order,omitempty"`
	Structures    []Structure    `yaml:"structures,omitempty" validate:"dive"`
	Composites    []Composite    `yaml:"composites,omitempty" validate:"dive"`
	CrossSections []CrossSection `yaml:"cross_sections,omitempty" validate:"dive"`
}

// Structure is a single structure; inside a composite its chainage is ignored.
type Structure struct {
	Name     string  `yaml:"name" validate:"required,name"`
	Type     string  `yaml:"type,omitempty"`
	Chainage float64 `yaml:"chainage,omitempty" validate:"finite"`
}

// Composite groups structures at one chainage.
type Composite struct {
	Name       string      `yaml:"name" validate:"required,name"`
	Chainage   float64     `yaml:"chainage" validate:"finite"`
	Structures []Structure `yaml:"structures" validate:"dive"`
}

// CrossSection either references a shared definition by name (a proxy) or
// owns an inline profile of the given type.
type CrossSection struct {
	Name       string  `yaml:"name" validate:"required,name"`
	Chainage   float64 `yaml:"chainage" validate:"finite"`
	Definition string  `yaml:"definition,omitempty"`
	Type       string  `yaml:"type,omitempty"`
	Thalweg    float64 `yaml:"thalweg,omitempty" validate:"finite"`
}

// Grid lists calculation points.
type Grid struct {
	Method string  `yaml:"method,omitempty"`
	Points []Point `yaml:"points,omitempty" validate:"dive"`
}

// Point is one calculation point.
type Point struct {
	Branch   string  `yaml:"branch" validate:"required"`
	Chainage float64 `yaml:"chainage" validate:"finite"`
	Name     string  `yaml:"name,omitempty" validate:"omitempty,name"`
	Fixed    bool    `yaml:"fixed,omitempty"`
}

// Mesh stands in for a 2D grid; only its emptiness is used.
type Mesh struct {
	Cells int `yaml:"cells" validate:"gte=0"`
}

// IsEmpty reports whether the mesh has no cells. A nil mesh is empty.
func (m *Mesh) IsEmpty() bool {
	return m == nil || m.Cells == 0
}

// Model is a decoded file.
type Model struct {
	Network        *network.Network
	Discretization *discretization.Discretization
	Grid2D         *Mesh
}

// Load reads and builds the model at path.
func Load(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read network file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and builds a model. Unknown keys are rejected.
func Parse(data []byte) (*Model, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse network file: %w", err)
	}
	return f.Build()
}

// Build validates the document and creates the network and discretization.
func (f *File) Build() (*Model, error) {
	if err := validation.Struct(f); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFile, err)
	}

	net := network.New(f.Name)
	for _, name := range f.Nodes {
		if _, err := net.AddNode(name); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidFile, err)
		}
	}

	defs := make(map[string]*network.CrossSectionDefinition, len(f.Definitions))
	for _, d := range f.Definitions {
		def, err := newDefinition(d.Name, d.Type, d.Thalweg)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidFile, err)
		}
		defs[d.Name] = def
	}

	for _, b := range f.Branches {
		if err := b.build(net, defs); err != nil {
			return nil, fmt.Errorf("%w: branch %s: %w", ErrInvalidFile, b.Name, err)
		}
	}

	d, err := f.Grid.build(net)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFile, err)
	}
	return &Model{Network: net, Discretization: d, Grid2D: f.Grid2D}, nil
}

func newDefinition(name, typ string, thalweg float64) (*network.CrossSectionDefinition, error) {
	t, ok := network.ParseCrossSectionType(typ)
	if !ok {
		return nil, fmt.Errorf("definition %s: unknown cross-section type %q", name, typ)
	}
	return &network.CrossSectionDefinition{Name: name, Type: t, Thalweg: thalweg}, nil
}

func (b Branch) build(net *network.Network, defs map[string]*network.CrossSectionDefinition) error {
	source, ok := net.Node(b.Source)
	if !ok {
		return fmt.Errorf("unknown source node %q", b.Source)
	}
	target, ok := net.Node(b.Target)
	if !ok {
		return fmt.Errorf("unknown target node %q", b.Target)
	}
	br, err := net.AddBranch(b.Name, source, target, b.Length)
	if err != nil {
		return err
	}
	br.OrderNumber = b.OrderNumber

	for _, s := range b.Structures {
		st, err := newStructure(s, s.Chainage)
		if err != nil {
			return err
		}
		if err := br.AddFeature(st); err != nil {
			return err
		}
	}

	for _, c := range b.Composites {
		composite, err := network.NewCompositeStructure(c.Name, c.Chainage)
		if err != nil {
			return err
		}
		for _, s := range c.Structures {
			st, err := newStructure(s, 0)
			if err != nil {
				return err
			}
			if err := composite.AddStructure(st); err != nil {
				return err
			}
		}
		if err := br.AddFeature(composite); err != nil {
			return err
		}
	}

	for _, cs := range b.CrossSections {
		var feature *network.CrossSection
		if cs.Definition != "" {
			def, ok := defs[cs.Definition]
			if !ok {
				return fmt.Errorf("cross-section %s: unknown definition %q", cs.Name, cs.Definition)
			}
			feature = network.NewCrossSectionProxy(cs.Name, cs.Chainage, def)
		} else {
			def, err := newDefinition(cs.Name, cs.Type, cs.Thalweg)
			if err != nil {
				return err
			}
			feature = network.NewCrossSection(cs.Name, cs.Chainage, def)
		}
		if err := br.AddFeature(feature); err != nil {
			return err
		}
	}
	return nil
}

func newStructure(s Structure, chainage float64) (*network.Structure, error) {
	typ, ok := network.ParseStructureType(s.Type)
	if !ok {
		return nil, fmt.Errorf("structure %s: unknown type %q", s.Name, s.Type)
	}
	return network.NewStructure(s.Name, typ, chainage), nil
}

func (g Grid) build(net *network.Network) (*discretization.Discretization, error) {
	method := discretization.SegmentBetweenLocationsFullyCovered
	if g.Method != "" {
		m, ok := discretization.ParseSegmentGenerationMethod(g.Method)
		if !ok {
			return nil, fmt.Errorf("unknown segment generation method %q", g.Method)
		}
		method = m
	}

	d := discretization.New(net, discretization.WithMethod(method))
	for _, p := range g.Points {
		b, ok := net.Branch(p.Branch)
		if !ok {
			return nil, fmt.Errorf("point %s: unknown branch %q", p.Name, p.Branch)
		}
		loc := network.NewNetworkLocation(b, p.Chainage)
		loc.Name = p.Name
		if err := d.AddLocation(loc); err != nil {
			return nil, fmt.Errorf("point %s: %w", loc, err)
		}
		if p.Fixed {
			if err := d.SetFixed(loc, true); err != nil {
				return nil, err
			}
		}
	}
	return d, nil
}

// FromModel describes net and d as a File. Shared definitions are collected
// from proxy cross-sections.
func FromModel(net *network.Network, d *discretization.Discretization, grid2D *Mesh) *File {
	f := &File{Name: net.Name, Grid2D: grid2D}
	for _, n := range net.Nodes() {
		f.Nodes = append(f.Nodes, n.Name)
	}

	shared := make(map[*network.CrossSectionDefinition]bool)
	for _, b := range net.Branches() {
		fb := Branch{
			Name:        b.Name,
			Source:      b.Source.Name,
			Target:      b.Target.Name,
			Length:      b.Length,
			OrderNumber: b.OrderNumber,
		}
		for _, feature := range b.Features() {
			switch v := feature.(type) {
			case *network.Structure:
				fb.Structures = append(fb.Structures, Structure{Name: v.Name(), Type: v.Type.String(), Chainage: v.Chainage()})
			case *network.CompositeStructure:
				c := Composite{Name: v.Name(), Chainage: v.Chainage()}
				for _, s := range v.Structures() {
					c.Structures = append(c.Structures, Structure{Name: s.Name(), Type: s.Type.String()})
				}
				fb.Composites = append(fb.Composites, c)
			case *network.CrossSection:
				cs := CrossSection{Name: v.Name(), Chainage: v.Chainage()}
				switch {
				case v.IsProxy() && v.Definition != nil:
					cs.Definition = v.Definition.Name
					if !shared[v.Definition] {
						shared[v.Definition] = true
						f.Definitions = append(f.Definitions, Definition{
							Name:    v.Definition.Name,
							Type:    v.Definition.Type.String(),
							Thalweg: v.Definition.Thalweg,
						})
					}
				case v.Definition != nil:
					cs.Type = v.Definition.Type.String()
					cs.Thalweg = v.Definition.Thalweg
				}
				fb.CrossSections = append(fb.CrossSections, cs)
			}
		}
		f.Branches = append(f.Branches, fb)
	}

	if d != nil {
		f.Grid.Method = d.Method().String()
		for _, loc := range d.Locations() {
			f.Grid.Points = append(f.Grid.Points, Point{
				Branch:   loc.Branch.Name,
				Chainage: loc.Chainage,
				Name:     loc.Name,
				Fixed:    d.IsFixed(loc),
			})
		}
	}
	return f
}

// Encode writes the file as YAML.
func (f *File) Encode(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return fmt.Errorf("encode network file: %w", err)
	}
	return enc.Close()
}
