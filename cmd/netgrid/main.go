// Command netgrid loads a network file, optionally regenerates the
// computational grid of some branches and prints the grid validation report.
//
//	netgrid -network river.yaml -config netgrid.yaml -generate all
//
// The exit status is 1 when the report contains errors and 2 when the input
// could not be loaded.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dd0wney/cluso-netgrid/pkg/config"
	"github.com/dd0wney/cluso-netgrid/pkg/gridcheck"
	"github.com/dd0wney/cluso-netgrid/pkg/gridgen"
	"github.com/dd0wney/cluso-netgrid/pkg/logging"
	"github.com/dd0wney/cluso-netgrid/pkg/metrics"
	"github.com/dd0wney/cluso-netgrid/pkg/netfile"
	"github.com/dd0wney/cluso-netgrid/pkg/network"
	"github.com/dd0wney/cluso-netgrid/pkg/report"
)

const (
	exitOK      = 0
	exitInvalid = 1
	exitUsage   = 2
)

var errUnknownBranch = errors.New("unknown branch")

type options struct {
	network  string
	config   string
	generate string
	format   string
	out      string
	metrics  string
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("netgrid", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var opts options
	fs.StringVar(&opts.network, "network", "", "Network file (YAML)")
	fs.StringVar(&opts.config, "config", "", "Configuration file (YAML); defaults apply when empty")
	fs.StringVar(&opts.generate, "generate", "", "Branches to regenerate: comma separated names or 'all'")
	fs.StringVar(&opts.format, "format", "text", "Report format: text or json")
	fs.StringVar(&opts.out, "out", "", "Write the resulting network file here")
	fs.StringVar(&opts.metrics, "metrics", "", "Write Prometheus metrics in text format here")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if opts.network == "" {
		fmt.Fprintln(stderr, "netgrid: -network is required")
		fs.Usage()
		return exitUsage
	}
	if opts.format != "text" && opts.format != "json" {
		fmt.Fprintf(stderr, "netgrid: unknown format %q\n", opts.format)
		return exitUsage
	}

	cfg, err := config.Load(opts.config)
	if err != nil {
		fmt.Fprintf(stderr, "netgrid: %v\n", err)
		return exitUsage
	}
	logger := cfg.NewLogger(stderr)
	defer logger.Sync()

	reg := metrics.DefaultRegistry()
	out, err := execute(opts, cfg, logger, reg)
	if err != nil {
		logger.Error("run failed", logging.Error(err))
		fmt.Fprintf(stderr, "netgrid: %v\n", err)
		return exitUsage
	}
	if opts.metrics != "" {
		if err := prometheus.WriteToTextfile(opts.metrics, reg.GetPrometheusRegistry()); err != nil {
			logger.Warn("metrics not written", logging.Error(err))
		}
	}

	switch opts.format {
	case "json":
		err = writeJSON(stdout, out)
	default:
		err = newRenderer(stdout).render(out)
	}
	if err != nil {
		fmt.Fprintf(stderr, "netgrid: %v\n", err)
		return exitUsage
	}

	if out.Report.Severity() == report.Error {
		return exitInvalid
	}
	return exitOK
}

// outcome is everything a run prints.
type outcome struct {
	Network    string          `json:"network"`
	Branches   int             `json:"branches"`
	Points     int             `json:"points"`
	Generation *gridgen.Result `json:"generation,omitempty"`
	Report     *report.Report  `json:"report"`
}

func execute(opts options, cfg *config.Config, logger logging.Logger, reg *metrics.Registry) (*outcome, error) {
	model, err := netfile.Load(opts.network)
	if err != nil {
		return nil, err
	}
	net, d := model.Network, model.Discretization

	out := &outcome{Network: net.Name, Branches: len(net.Branches())}

	branches, err := selectBranches(net, opts.generate)
	if err != nil {
		return nil, err
	}
	if len(branches) > 0 {
		gen := gridgen.New(cfg.GeneratorOptions()).WithLogger(logger).WithMetrics(reg)
		res, err := gen.Generate(d, branches)
		if err != nil {
			return nil, err
		}
		out.Generation = res
	}

	var grid2D gridcheck.Grid2D
	if model.Grid2D != nil {
		grid2D = model.Grid2D
	}
	rep, err := gridcheck.Default().
		WithLogger(logger).
		WithMetrics(reg).
		Validate(d, grid2D, cfg.Model.Dxmin1D)
	if err != nil {
		return nil, err
	}
	out.Report = rep
	out.Points = d.Len()

	if opts.out != "" {
		if err := writeModel(opts.out, model); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// selectBranches resolves the -generate list. Names keep their order; "all"
// selects every branch.
func selectBranches(net *network.Network, list string) ([]*network.Branch, error) {
	list = strings.TrimSpace(list)
	switch list {
	case "":
		return nil, nil
	case "all":
		return net.Branches(), nil
	}

	var branches []*network.Branch
	for _, name := range strings.Split(list, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		b, ok := net.Branch(name)
		if !ok {
			return nil, fmt.Errorf("%w %q", errUnknownBranch, name)
		}
		branches = append(branches, b)
	}
	return branches, nil
}

func writeModel(path string, model *netfile.Model) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := netfile.FromModel(model.Network, model.Discretization, model.Grid2D).Encode(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeJSON(w io.Writer, out *outcome) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
