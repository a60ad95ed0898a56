package gridgen

import (
	"errors"
	"math"
	"testing"

	dto "github.com/prometheus/client_model/go"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/dd0wney/cluso-netgrid/pkg/discretization"
	"github.com/dd0wney/cluso-netgrid/pkg/logging"
	"github.com/dd0wney/cluso-netgrid/pkg/metrics"
	"github.com/dd0wney/cluso-netgrid/pkg/network"
)

// setupNetwork builds a -> b -> c with branches ab and bc of the given lengths.
func setupNetwork(t *testing.T, abLength, bcLength float64) (*network.Network, *network.Branch, *network.Branch) {
	t.Helper()

	net := network.New("test")
	a, _ := net.AddNode("a")
	b, _ := net.AddNode("b")
	c, _ := net.AddNode("c")
	ab, err := net.AddBranch("ab", a, b, abLength)
	if err != nil {
		t.Fatalf("AddBranch failed: %v", err)
	}
	bc, err := net.AddBranch("bc", b, c, bcLength)
	if err != nil {
		t.Fatalf("AddBranch failed: %v", err)
	}
	return net, ab, bc
}

// endpointsOnly places points at branch ends and nowhere else.
func endpointsOnly() Options {
	return Options{
		MinimumSegmentLength: discretization.DefaultMinimumSegmentLength,
		GridAtNodes:          true,
		Method:               discretization.SegmentBetweenLocationsFullyCovered,
	}
}

func chainages(d *discretization.Discretization, b *network.Branch) []float64 {
	var out []float64
	for _, loc := range d.LocationsOn(b) {
		out = append(out, loc.Chainage)
	}
	return out
}

func assertChainages(t *testing.T, got, want []float64) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("Expected chainages %v, got %v", want, got)
	}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Fatalf("Expected chainages %v, got %v", want, got)
		}
	}
}

func TestGenerate_Placement(t *testing.T) {
	tests := []struct {
		name     string
		length   float64
		features func(b *network.Branch)
		opts     func() Options
		want     []float64
	}{
		{
			name:   "end points only",
			length: 100,
			opts:   endpointsOnly,
			want:   []float64{0, 100},
		},
		{
			name:   "fixed length divides evenly",
			length: 300,
			opts: func() Options {
				o := endpointsOnly()
				o.GridAtFixedLength, o.FixedLength = true, 100
				return o
			},
			want: []float64{0, 100, 200, 300},
		},
		{
			name:   "fixed length spacing never below requested",
			length: 250,
			opts: func() Options {
				o := endpointsOnly()
				o.GridAtFixedLength, o.FixedLength = true, 100
				return o
			},
			want: []float64{0, 125, 250},
		},
		{
			name:   "branch shorter than fixed length",
			length: 60,
			opts: func() Options {
				o := endpointsOnly()
				o.GridAtFixedLength, o.FixedLength = true, 100
				return o
			},
			want: []float64{0, 60},
		},
		{
			name:   "structure flanked",
			length: 100,
			features: func(b *network.Branch) {
				_ = b.AddFeature(network.NewStructure("weir", network.Weir, 50))
			},
			opts: func() Options {
				o := endpointsOnly()
				o.GridAtStructures, o.StructureDistance = true, 5
				return o
			},
			want: []float64{0, 45, 55, 100},
		},
		{
			name:   "close structures separated",
			length: 100,
			features: func(b *network.Branch) {
				_ = b.AddFeature(network.NewStructure("weir", network.Weir, 40))
				_ = b.AddFeature(network.NewStructure("pump", network.Pump, 42))
			},
			opts: func() Options {
				o := endpointsOnly()
				o.GridAtStructures, o.StructureDistance = true, 5
				return o
			},
			want: []float64{0, 35, 37, 41, 45, 47, 100},
		},
		{
			name:   "composite flanked once",
			length: 100,
			features: func(b *network.Branch) {
				group, _ := network.NewCompositeStructure("group", 30,
					network.NewStructure("w1", network.Weir, 0),
					network.NewStructure("w2", network.Orifice, 0),
				)
				_ = b.AddFeature(group)
			},
			opts: func() Options {
				o := endpointsOnly()
				o.GridAtStructures, o.StructureDistance = true, 10
				return o
			},
			want: []float64{0, 20, 40, 100},
		},
		{
			name:   "flank outside branch skipped",
			length: 100,
			features: func(b *network.Branch) {
				_ = b.AddFeature(network.NewStructure("culvert", network.Culvert, 98))
			},
			opts: func() Options {
				o := endpointsOnly()
				o.GridAtStructures, o.StructureDistance = true, 5
				return o
			},
			want: []float64{0, 93, 100},
		},
		{
			name:   "cross-sections",
			length: 100,
			features: func(b *network.Branch) {
				def := &network.CrossSectionDefinition{Name: "profile"}
				_ = b.AddFeature(network.NewCrossSection("cs1", 30, def))
				_ = b.AddFeature(network.NewCrossSectionProxy("cs2", 70, def))
			},
			opts: func() Options {
				o := endpointsOnly()
				o.GridAtCrossSections = true
				return o
			},
			want: []float64{0, 30, 70, 100},
		},
		{
			name:   "cross-section on structure dropped",
			length: 100,
			features: func(b *network.Branch) {
				_ = b.AddFeature(network.NewStructure("weir", network.Weir, 30))
				_ = b.AddFeature(network.NewCrossSection("cs1", 30, nil))
			},
			opts: func() Options {
				o := endpointsOnly()
				o.GridAtCrossSections = true
				return o
			},
			want: []float64{0, 100},
		},
		{
			name:   "minimum length respected",
			length: 100,
			features: func(b *network.Branch) {
				_ = b.AddFeature(network.NewCrossSection("near", 0.5, nil))
				_ = b.AddFeature(network.NewCrossSection("far", 2, nil))
			},
			opts: func() Options {
				o := endpointsOnly()
				o.MinimumSegmentLength = 1
				o.GridAtCrossSections = true
				return o
			},
			want: []float64{0, 2, 100},
		},
		{
			name:   "fixed length fills around features",
			length: 200,
			features: func(b *network.Branch) {
				_ = b.AddFeature(network.NewCrossSection("cs", 50, nil))
			},
			opts: func() Options {
				o := endpointsOnly()
				o.GridAtCrossSections = true
				o.GridAtFixedLength, o.FixedLength = true, 50
				return o
			},
			want: []float64{0, 50, 100, 150, 200},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			net := network.New("test")
			a, _ := net.AddNode("a")
			b, _ := net.AddNode("b")
			br, err := net.AddBranch("channel", a, b, tt.length)
			if err != nil {
				t.Fatalf("AddBranch failed: %v", err)
			}
			if tt.features != nil {
				tt.features(br)
			}
			d := discretization.New(net)

			if err := Generate(d, []*network.Branch{br}, tt.opts()); err != nil {
				t.Fatalf("Generate failed: %v", err)
			}
			assertChainages(t, chainages(d, br), tt.want)
		})
	}
}

func TestGenerate_Names(t *testing.T) {
	net, ab, bc := setupNetwork(t, 100, 100)
	d := discretization.New(net)

	taken := network.NewNetworkLocation(bc, 50)
	taken.Name = "ab_100.000"
	if err := d.AddLocation(taken); err != nil {
		t.Fatalf("AddLocation failed: %v", err)
	}

	if err := Generate(d, []*network.Branch{ab}, endpointsOnly()); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	locs := d.LocationsOn(ab)
	if len(locs) != 2 {
		t.Fatalf("Expected 2 locations, got %d", len(locs))
	}
	if locs[0].Name != "ab_0.000" {
		t.Errorf("Expected name ab_0.000, got %s", locs[0].Name)
	}
	if locs[1].Name != "ab_100.000_2" {
		t.Errorf("Expected name ab_100.000_2, got %s", locs[1].Name)
	}
}

func TestGenerate_MergeKeepsIdentity(t *testing.T) {
	net, ab, _ := setupNetwork(t, 100, 100)
	d := discretization.New(net)

	end := network.NewNetworkLocation(ab, 100-network.Epsilon/2)
	end.Name = "custom end"
	stale := network.NewNetworkLocation(ab, 37)
	fixed := network.NewNetworkLocation(ab, 37.5)
	for _, loc := range []*network.NetworkLocation{end, stale, fixed} {
		if err := d.AddLocation(loc); err != nil {
			t.Fatalf("AddLocation failed: %v", err)
		}
	}
	if err := d.SetFixed(fixed, true); err != nil {
		t.Fatalf("SetFixed failed: %v", err)
	}

	res, err := New(endpointsOnly()).Generate(d, []*network.Branch{ab})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if !d.Contains(end) || end.Name != "custom end" {
		t.Error("Expected coinciding location to be kept with its name")
	}
	if d.Contains(stale) {
		t.Error("Expected unplanned unfixed location to be removed")
	}
	if !d.Contains(fixed) || !d.IsFixed(fixed) || fixed.Chainage != 37.5 {
		t.Error("Expected fixed location to be kept in place")
	}
	assertChainages(t, chainages(d, ab), []float64{0, 37.5, 100})

	if res.Added != 1 || res.Removed != 1 || res.Kept != 2 || res.Branches != 1 {
		t.Errorf("Unexpected result %+v", *res)
	}
}

func TestGenerate_FixedPointsAnchorFill(t *testing.T) {
	net, ab, _ := setupNetwork(t, 200, 100)
	d := discretization.New(net)

	fixed := network.NewNetworkLocation(ab, 60)
	_ = d.AddLocation(fixed)
	_ = d.SetFixed(fixed, true)

	opts := endpointsOnly()
	opts.GridAtFixedLength, opts.FixedLength = true, 60
	if err := Generate(d, []*network.Branch{ab}, opts); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	// [0,60] is one segment; [60,200] splits into two of 70.
	assertChainages(t, chainages(d, ab), []float64{0, 60, 130, 200})
}

func TestGenerate_LeavesOtherBranchesAlone(t *testing.T) {
	net, ab, bc := setupNetwork(t, 100, 100)
	d := discretization.New(net)

	odd := network.NewNetworkLocation(bc, 33)
	pinned := network.NewNetworkLocation(bc, 66)
	_ = d.AddLocation(odd)
	_ = d.AddLocation(pinned)
	_ = d.SetFixed(pinned, true)

	opts := DefaultOptions()
	if err := Generate(d, []*network.Branch{ab}, opts); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	locs := d.LocationsOn(bc)
	if len(locs) != 2 || locs[0] != odd || locs[1] != pinned {
		t.Fatalf("Expected bc untouched, got %v", locs)
	}
	if d.IsFixed(odd) || !d.IsFixed(pinned) {
		t.Error("Expected fixed flags on bc untouched")
	}
}

func TestGenerate_CoveredNodes(t *testing.T) {
	net, ab, bc := setupNetwork(t, 100, 100)
	d := discretization.New(net)

	// bc owns the point at the shared node b.
	if err := d.AddLocation(network.NewNetworkLocation(bc, 0)); err != nil {
		t.Fatalf("AddLocation failed: %v", err)
	}

	opts := endpointsOnly()
	opts.GridAtNodes = false
	if err := Generate(d, []*network.Branch{ab}, opts); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	assertChainages(t, chainages(d, ab), []float64{0})

	opts.GridAtNodes = true
	if err := Generate(d, []*network.Branch{ab}, opts); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	assertChainages(t, chainages(d, ab), []float64{0, 100})
}

func TestGenerate_SeriesSubsetSharesNodes(t *testing.T) {
	net, ab, bc := setupNetwork(t, 100, 100)
	d := discretization.New(net)

	opts := endpointsOnly()
	opts.GridAtNodes = false
	// Subset order does not matter; branches are processed in network order.
	if err := Generate(d, []*network.Branch{bc, ab, bc}, opts); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	assertChainages(t, chainages(d, ab), []float64{0, 100})
	assertChainages(t, chainages(d, bc), []float64{100})
}

func TestGenerate_SetsMethod(t *testing.T) {
	net, ab, _ := setupNetwork(t, 100, 100)
	d := discretization.New(net, discretization.WithMethod(discretization.None))

	opts := endpointsOnly()
	opts.Method = discretization.SegmentPerLocation
	if err := Generate(d, []*network.Branch{ab}, opts); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if d.Method() != discretization.SegmentPerLocation {
		t.Errorf("Expected method %v, got %v", discretization.SegmentPerLocation, d.Method())
	}
}

func TestGenerate_Rejected(t *testing.T) {
	net, ab, _ := setupNetwork(t, 100, 100)
	other := network.New("other")
	x, _ := other.AddNode("x")
	y, _ := other.AddNode("y")
	foreign, _ := other.AddBranch("foreign", x, y, 10)

	tests := []struct {
		name     string
		opts     func() Options
		branches []*network.Branch
		wantErr  error
	}{
		{
			name:     "zero minimum length",
			opts:     func() Options { o := endpointsOnly(); o.MinimumSegmentLength = 0; return o },
			branches: []*network.Branch{ab},
			wantErr:  ErrInvalidConfiguration,
		},
		{
			name:     "NaN minimum length",
			opts:     func() Options { o := endpointsOnly(); o.MinimumSegmentLength = math.NaN(); return o },
			branches: []*network.Branch{ab},
			wantErr:  ErrInvalidConfiguration,
		},
		{
			name: "fixed length below minimum",
			opts: func() Options {
				o := endpointsOnly()
				o.MinimumSegmentLength = 10
				o.GridAtFixedLength, o.FixedLength = true, 5
				return o
			},
			branches: []*network.Branch{ab},
			wantErr:  ErrInvalidConfiguration,
		},
		{
			name:     "structure distance zero",
			opts:     func() Options { o := endpointsOnly(); o.GridAtStructures = true; return o },
			branches: []*network.Branch{ab},
			wantErr:  ErrInvalidConfiguration,
		},
		{
			name:     "infinite structure distance",
			opts:     func() Options { o := endpointsOnly(); o.StructureDistance = math.Inf(1); return o },
			branches: []*network.Branch{ab},
			wantErr:  ErrInvalidConfiguration,
		},
		{
			name:     "NaN fixed length while disabled",
			opts:     func() Options { o := endpointsOnly(); o.FixedLength = math.NaN(); return o },
			branches: []*network.Branch{ab},
			wantErr:  ErrInvalidConfiguration,
		},
		{
			name:     "unknown method",
			opts:     func() Options { o := endpointsOnly(); o.Method = 42; return o },
			branches: []*network.Branch{ab},
			wantErr:  ErrInvalidConfiguration,
		},
		{
			name:    "empty subset",
			opts:    endpointsOnly,
			wantErr: ErrInvalidConfiguration,
		},
		{
			name:     "foreign branch",
			opts:     endpointsOnly,
			branches: []*network.Branch{ab, foreign},
			wantErr:  ErrUnknownBranch,
		},
		{
			name:     "nil branch",
			opts:     endpointsOnly,
			branches: []*network.Branch{nil},
			wantErr:  ErrUnknownBranch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := discretization.New(net, discretization.WithMethod(discretization.None))
			existing := network.NewNetworkLocation(ab, 42)
			_ = d.AddLocation(existing)

			err := Generate(d, tt.branches, tt.opts())
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Expected %v, got %v", tt.wantErr, err)
			}
			if d.Len() != 1 || !d.Contains(existing) {
				t.Error("Expected discretization untouched after rejection")
			}
			if d.Method() != discretization.None {
				t.Error("Expected method untouched after rejection")
			}
		})
	}

	if err := Generate(nil, []*network.Branch{ab}, endpointsOnly()); !errors.Is(err, ErrNilDiscretization) {
		t.Errorf("Expected ErrNilDiscretization, got %v", err)
	}
}

func TestOptions_ValidateReportsAll(t *testing.T) {
	o := Options{
		MinimumSegmentLength: -1,
		GridAtStructures:     true,
		GridAtFixedLength:    true,
	}
	err := o.Validate()
	if !errors.Is(err, ErrInvalidConfiguration) {
		t.Fatalf("Expected ErrInvalidConfiguration, got %v", err)
	}

	if err := DefaultOptions().Validate(); err != nil {
		t.Errorf("Expected default options to be valid, got %v", err)
	}
}

func TestGenerator_FailedRunRestores(t *testing.T) {
	net, ab, bc := setupNetwork(t, 100, 100)
	d := discretization.New(net, discretization.WithMethod(discretization.None))
	existing := network.NewNetworkLocation(ab, 42)
	_ = d.AddLocation(existing)

	core, logs := observer.New(zapcore.DebugLevel)
	reg := metrics.NewRegistry()
	g := New(endpointsOnly()).
		WithLogger(logging.NewFromCore(core, logging.DebugLevel)).
		WithMetrics(reg)

	// bc plans the same chainage twice, so its second point cannot be added.
	plan := func(_ *discretization.Discretization, b *network.Branch) []float64 {
		if b == bc {
			return []float64{0, 0}
		}
		return []float64{0, 100}
	}
	timer := logging.StartTimer(g.logger, "grid generation")
	res, err := g.run(d, []*network.Branch{ab, bc}, timer, plan)

	if !errors.Is(err, discretization.ErrDuplicateLocation) {
		t.Fatalf("Expected ErrDuplicateLocation, got %v", err)
	}
	if res != nil {
		t.Errorf("Expected no result, got %+v", res)
	}
	if d.Len() != 1 || !d.Contains(existing) {
		t.Errorf("Expected discretization restored, got %v", d.Locations())
	}
	if d.Method() != discretization.None {
		t.Errorf("Expected method untouched, got %v", d.Method())
	}
	if logs.FilterMessage("grid generation").FilterLevelExact(zapcore.ErrorLevel).Len() != 1 {
		t.Error("Expected an error summary")
	}

	failed, err := reg.GenerationsTotal.GetMetricWithLabelValues("failed")
	if err != nil {
		t.Fatalf("Failed to get metric: %v", err)
	}
	var m dto.Metric
	if err := failed.Write(&m); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if got := m.GetCounter().GetValue(); got != 1 {
		t.Errorf("Expected 1 failed run, got %v", got)
	}
}

func TestGenerator_LogsAndMetrics(t *testing.T) {
	net, ab, bc := setupNetwork(t, 100, 100)
	d := discretization.New(net)

	core, logs := observer.New(zapcore.DebugLevel)
	reg := metrics.NewRegistry()
	g := New(endpointsOnly()).
		WithLogger(logging.NewFromCore(core, logging.DebugLevel)).
		WithMetrics(reg)

	if _, err := g.Generate(d, []*network.Branch{ab, bc}); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if _, err := g.Generate(d, nil); err == nil {
		t.Fatal("Expected error for empty subset")
	}

	if n := logs.FilterMessage("branch regenerated").Len(); n != 2 {
		t.Errorf("Expected 2 branch entries, got %d", n)
	}
	summaries := logs.FilterMessage("grid generation").All()
	if len(summaries) != 2 {
		t.Fatalf("Expected 2 summary entries, got %d", len(summaries))
	}
	if summaries[0].Level != zapcore.InfoLevel || summaries[1].Level != zapcore.ErrorLevel {
		t.Errorf("Expected info then error summaries, got %v and %v", summaries[0].Level, summaries[1].Level)
	}
	if got := summaries[0].ContextMap()["component"]; got != "gridgen" {
		t.Errorf("Expected component gridgen, got %v", got)
	}

	gatherCount := func(name string) float64 {
		families, err := reg.GetPrometheusRegistry().Gather()
		if err != nil {
			t.Fatalf("Gather failed: %v", err)
		}
		var total float64
		for _, mf := range families {
			if mf.GetName() != name {
				continue
			}
			for _, m := range mf.GetMetric() {
				switch {
				case m.GetCounter() != nil:
					total += m.GetCounter().GetValue()
				case m.GetGauge() != nil:
					total += m.GetGauge().GetValue()
				}
			}
		}
		return total
	}
	if got := gatherCount("netgrid_generations_total"); got != 2 {
		t.Errorf("Expected 2 generation runs, got %v", got)
	}
	if got := gatherCount("netgrid_grid_points_added_total"); got != 4 {
		t.Errorf("Expected 4 added points, got %v", got)
	}
	if got := gatherCount("netgrid_grid_points"); got != 4 {
		t.Errorf("Expected 4 grid points, got %v", got)
	}
}
