// Package config loads the model configuration of a grid run: the minimum
// segment length (Dxmin1D), the generator options and logging.
//
// A file only needs the keys it changes; everything else keeps the value of
// Default. The LOG_LEVEL environment variable overrides logging.level.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dd0wney/cluso-netgrid/pkg/discretization"
	"github.com/dd0wney/cluso-netgrid/pkg/gridgen"
	"github.com/dd0wney/cluso-netgrid/pkg/logging"
	"github.com/dd0wney/cluso-netgrid/pkg/validation"
)

// ErrInvalidConfig wraps every validation failure returned by Load and Parse.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the root of a configuration file.
type Config struct {
	Model      ModelConfig      `yaml:"model"`
	Generation GenerationConfig `yaml:"generation"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ModelConfig holds model-wide numerical settings.
type ModelConfig struct {
	// Dxmin1D is the minimum segment length used by generation and validation.
	Dxmin1D float64 `yaml:"dxmin1d" validate:"gt=0,finite"`
}

// GenerationConfig mirrors gridgen.Options.
type GenerationConfig struct {
	GridAtStructures    bool    `yaml:"grid_at_structures"`
	StructureDistance   float64 `yaml:"structure_distance" validate:"gte=0,finite"`
	GridAtCrossSections bool    `yaml:"grid_at_cross_sections"`
	GridAtNodes         bool    `yaml:"grid_at_nodes"`
	GridAtFixedLength   bool    `yaml:"grid_at_fixed_length"`
	FixedLength         float64 `yaml:"fixed_length" validate:"gte=0,finite"`
	Method              string  `yaml:"method" validate:"omitempty,oneof=None SegmentBetweenLocations SegmentBetweenLocationsFullyCovered SegmentPerLocation"`
}

// LoggingConfig selects the log level and encoder.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

var (
	logLevels  = []string{"debug", "info", "warn", "error"}
	logFormats = []string{"json", "console"}
)

// Default returns the configuration used when no file is given.
func Default() *Config {
	opts := gridgen.DefaultOptions()
	return &Config{
		Model: ModelConfig{Dxmin1D: discretization.DefaultMinimumSegmentLength},
		Generation: GenerationConfig{
			GridAtStructures:    opts.GridAtStructures,
			StructureDistance:   opts.StructureDistance,
			GridAtCrossSections: opts.GridAtCrossSections,
			GridAtNodes:         opts.GridAtNodes,
			GridAtFixedLength:   opts.GridAtFixedLength,
			FixedLength:         opts.FixedLength,
			Method:              opts.Method.String(),
		},
		Logging: LoggingConfig{Level: "info", Format: "console"},
	}
}

// Load reads and validates the configuration at path. An empty path yields
// Default with environment overrides applied.
func Load(path string) (*Config, error) {
	if path == "" {
		cfg := Default()
		cfg.applyEnv()
		return cfg, cfg.Validate()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML on top of Default, applies environment overrides and
// validates the result. Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "warning" {
		c.Logging.Level = "warn"
	}
}

// Validate checks field ranges and the relations between fields.
func (c *Config) Validate() error {
	if err := validation.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	g := c.Generation
	cv := validation.NewConfigValidator("Generation").
		When(g.GridAtStructures, func(cv *validation.ConfigValidator) {
			cv.PositiveFloat("StructureDistance", g.StructureDistance)
		}).
		When(g.GridAtFixedLength, func(cv *validation.ConfigValidator) {
			cv.MinFloat("FixedLength", g.FixedLength, c.Model.Dxmin1D)
		})

	l := c.Logging
	lv := validation.NewConfigValidator("Logging").
		When(l.Level != "", func(lv *validation.ConfigValidator) {
			lv.OneOf("Level", l.Level, logLevels)
		}).
		When(l.Format != "", func(lv *validation.ConfigValidator) {
			lv.OneOf("Format", l.Format, logFormats)
		})

	if err := errors.Join(cv.Validate(), lv.Validate()); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// GeneratorOptions converts the configuration to generator options.
func (c *Config) GeneratorOptions() gridgen.Options {
	g := c.Generation
	method := discretization.SegmentBetweenLocationsFullyCovered
	if m, ok := discretization.ParseSegmentGenerationMethod(g.Method); ok {
		method = m
	}
	return gridgen.Options{
		MinimumSegmentLength: c.Model.Dxmin1D,
		GridAtStructures:     g.GridAtStructures,
		StructureDistance:    g.StructureDistance,
		GridAtCrossSections:  g.GridAtCrossSections,
		GridAtNodes:          g.GridAtNodes,
		GridAtFixedLength:    g.GridAtFixedLength,
		FixedLength:          g.FixedLength,
		Method:               method,
	}
}

// NewLogger builds the logger described by the logging section.
func (c *Config) NewLogger(w io.Writer) logging.Logger {
	level := logging.ParseLevel(validation.DefaultOr(c.Logging.Level, "info"))
	if c.Logging.Format == "json" {
		return logging.NewJSONLogger(w, level)
	}
	return logging.NewConsoleLogger(w, level)
}
