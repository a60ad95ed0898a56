package netfile

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-netgrid/pkg/discretization"
	"github.com/dd0wney/cluso-netgrid/pkg/network"
)

const riverYAML = `
name: river
nodes: [up, junction, down, side]
definitions:
  - {name: profile, type: YZ, thalweg: 12.5}
branches:
  - name: main
    source: up
    target: junction
    length: 1200
    order: 1
    structures:
      - {name: weir1, type: Weir, chainage: 400}
    composites:
      - name: gates
        chainage: 800
        structures: [{name: gate1, type: Orifice}, {name: gate2, type: orifice}]
    cross_sections:
      - {name: cs1, chainage: 100, definition: profile}
      - {name: cs2, chainage: 1000, type: ZW}
  - name: lower
    source: junction
    target: down
    length: 300
    order: 1
    cross_sections:
      - {name: cs3, chainage: 150, definition: profile}
  - name: tributary
    source: side
    target: junction
    length: 250
grid:
  method: SegmentPerLocation
  points:
    - {branch: main, chainage: 0, name: main_start, fixed: true}
    - {branch: main, chainage: 1200}
    - {branch: lower, chainage: 150, name: lower_mid}
grid2d:
  cells: 40
`

func TestParse_River(t *testing.T) {
	m, err := Parse([]byte(riverYAML))
	require.NoError(t, err)

	net := m.Network
	assert.Equal(t, "river", net.Name)
	assert.Len(t, net.Nodes(), 4)
	require.Len(t, net.Branches(), 3)

	main, ok := net.Branch("main")
	require.True(t, ok)
	assert.Equal(t, 1200.0, main.Length)
	assert.Equal(t, 1, main.OrderNumber)
	assert.Equal(t, "up", main.Source.Name)
	assert.Equal(t, "junction", main.Target.Name)

	features := main.Features()
	require.Len(t, features, 4)
	assert.Equal(t, []string{"cs1", "weir1", "gates", "cs2"}, featureNames(features))

	weir := features[1].(*network.Structure)
	assert.Equal(t, network.Weir, weir.Type)
	assert.Equal(t, 400.0, weir.Chainage())

	gates := features[2].(*network.CompositeStructure)
	members := gates.Structures()
	require.Len(t, members, 2)
	for _, s := range members {
		assert.Equal(t, network.Orifice, s.Type)
		assert.Equal(t, 800.0, s.Chainage())
		assert.Same(t, main, s.Branch())
	}

	cs1 := features[0].(*network.CrossSection)
	cs2 := features[3].(*network.CrossSection)
	assert.True(t, cs1.IsProxy())
	assert.False(t, cs2.IsProxy())
	assert.Equal(t, network.CrossSectionZW, cs2.Definition.Type)

	lower, _ := net.Branch("lower")
	cs3 := lower.CrossSections()[0]
	assert.Same(t, cs1.Definition, cs3.Definition, "proxies share one definition")
	assert.Equal(t, 12.5, cs3.Definition.Thalweg)

	d := m.Discretization
	assert.Equal(t, discretization.SegmentPerLocation, d.Method())
	require.Equal(t, 3, d.Len())
	start, ok := d.Find(main, 0)
	require.True(t, ok)
	assert.Equal(t, "main_start", start.Name)
	assert.True(t, d.IsFixed(start))
	end, _ := d.Find(main, 1200)
	assert.False(t, d.IsFixed(end))

	require.NotNil(t, m.Grid2D)
	assert.False(t, m.Grid2D.IsEmpty())
}

func TestParse_Defaults(t *testing.T) {
	m, err := Parse([]byte("name: empty\n"))
	require.NoError(t, err)
	assert.Empty(t, m.Network.Branches())
	assert.True(t, m.Discretization.IsEmpty())
	assert.Equal(t, discretization.SegmentBetweenLocationsFullyCovered, m.Discretization.Method())
	assert.True(t, m.Grid2D.IsEmpty())
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		yaml     string
		contains string
		invalid  bool
	}{
		{"missing name", "nodes: [a]\n", "Name", true},
		{"bad node name", "name: n\nnodes: [' a']\n", "Nodes[0]", true},
		{"duplicate node", "name: n\nnodes: [a, a]\n", "a", true},
		{"unknown source", "name: n\nnodes: [a]\nbranches:\n  - {name: b, source: x, target: a, length: 1}\n", `unknown source node "x"`, true},
		{"unknown target", "name: n\nnodes: [a]\nbranches:\n  - {name: b, source: a, target: x, length: 1}\n", `unknown target node "x"`, true},
		{"negative length", "name: n\nnodes: [a, b]\nbranches:\n  - {name: b, source: a, target: b, length: -1}\n", "Branches[0].Length", true},
		{"unknown structure type", "name: n\nnodes: [a, b]\nbranches:\n  - name: c\n    source: a\n    target: b\n    length: 10\n    structures: [{name: s, type: Dam, chainage: 1}]\n", `unknown type "Dam"`, true},
		{"structure off branch", "name: n\nnodes: [a, b]\nbranches:\n  - name: c\n    source: a\n    target: b\n    length: 10\n    structures: [{name: s, chainage: 11}]\n", "branch c", true},
		{"unknown definition", "name: n\nnodes: [a, b]\nbranches:\n  - name: c\n    source: a\n    target: b\n    length: 10\n    cross_sections: [{name: cs, chainage: 1, definition: nope}]\n", `unknown definition "nope"`, true},
		{"unknown cross-section type", "name: n\ndefinitions: [{name: p, type: Circle}]\n", `unknown cross-section type "Circle"`, true},
		{"unknown grid branch", "name: n\ngrid:\n  points: [{branch: nope, chainage: 0}]\n", `unknown branch "nope"`, true},
		{"unknown method", "name: n\ngrid:\n  method: Random\n", `unknown segment generation method "Random"`, true},
		{"unknown key", "name: n\nedges: []\n", "edges", false},
		{"malformed", "name: [\n", "parse network file", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Equal(t, tt.invalid, errors.Is(err, ErrInvalidFile), "errors.Is(err, ErrInvalidFile) for %v", err)
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "river.yaml")
	require.NoError(t, os.WriteFile(path, []byte(riverYAML), 0o644))

	m, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, m.Network.Branches(), 3)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestFromModel_RoundTrip(t *testing.T) {
	m, err := Parse([]byte(riverYAML))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, FromModel(m.Network, m.Discretization, m.Grid2D).Encode(&buf))

	out := buf.String()
	assert.True(t, strings.Contains(out, "definition: profile"), out)
	assert.Equal(t, 1, strings.Count(out, "- name: profile"), "shared definition written once")

	again, err := Parse(buf.Bytes())
	require.NoError(t, err, out)

	assert.Equal(t, len(m.Network.Branches()), len(again.Network.Branches()))
	for _, b := range m.Network.Branches() {
		other, ok := again.Network.Branch(b.Name)
		require.True(t, ok, b.Name)
		assert.Equal(t, featureNames(b.Features()), featureNames(other.Features()))
		assert.Equal(t, b.Length, other.Length)
	}

	assert.Equal(t, m.Discretization.Method(), again.Discretization.Method())
	require.Equal(t, m.Discretization.Len(), again.Discretization.Len())
	for i, loc := range m.Discretization.Locations() {
		got := again.Discretization.Locations()[i]
		assert.Equal(t, loc.Branch.Name, got.Branch.Name)
		assert.Equal(t, loc.Chainage, got.Chainage)
		assert.Equal(t, loc.Name, got.Name)
		assert.Equal(t, m.Discretization.IsFixed(loc), again.Discretization.IsFixed(got))
	}
	assert.Equal(t, m.Grid2D.Cells, again.Grid2D.Cells)
}

func TestMesh_IsEmpty(t *testing.T) {
	var nilMesh *Mesh
	assert.True(t, nilMesh.IsEmpty())
	assert.True(t, (&Mesh{}).IsEmpty())
	assert.False(t, (&Mesh{Cells: 1}).IsEmpty())
}

func featureNames(features []network.Feature) []string {
	names := make([]string, 0, len(features))
	for _, f := range features {
		names = append(names, f.Name())
	}
	return names
}
