// Package config holds the settings of a morecov run.
//
// Settings are taken from the defaults, then from a YAML file, then from
// the MORECOV_* environment variables. The command line flags are applied
// last, by the caller.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/sut-sqrlab/more-coverage/internal/coverage"
	"github.com/sut-sqrlab/more-coverage/internal/paths"
)

// ErrInvalid is wrapped by every error from Validate.
var ErrInvalid = errors.New("invalid configuration")

// Formats lists the output formats, the first being the default.
var Formats = []string{"text", "json", "dot", "script", "tree"}

const (
	BackEdgesTagged     = "tagged"
	BackEdgesPositional = "positional"
)

// Config is the complete configuration of a run.
type Config struct {
	// Criteria names the coverage criteria to select paths for.
	Criteria []string `yaml:"criteria"`

	// MaxPaths and MaxExpansions bound the path enumeration per function
	// and criterion. Zero means the built-in default, a negative number
	// means no limit.
	MaxPaths      int `yaml:"max_paths"`
	MaxExpansions int `yaml:"max_expansions"`

	// BackEdges is either "tagged" or "positional".
	BackEdges string `yaml:"back_edges"`

	Stubs  bool   `yaml:"stubs"`
	Format string `yaml:"format"`

	// Output is the file to write the report to. Empty means stdout.
	Output string `yaml:"output"`

	// Concurrency is the number of functions that are analyzed at the
	// same time. Zero means one per CPU.
	Concurrency int `yaml:"concurrency"`

	// Strict makes the run fail if some criterion cannot be satisfied
	// completely.
	Strict bool `yaml:"strict"`

	LogLevel string `yaml:"log_level"`
}

// Default returns the configuration that is used when nothing else is
// configured.
func Default() Config {
	var criteria []string
	for _, c := range coverage.Criteria() {
		criteria = append(criteria, c.String())
	}
	return Config{
		Criteria:      criteria,
		MaxPaths:      paths.DefaultMaxPaths,
		MaxExpansions: paths.DefaultMaxExpansions,
		BackEdges:     BackEdgesTagged,
		Stubs:         true,
		Format:        Formats[0],
		LogLevel:      zerolog.LevelWarnValue,
	}
}

// Load returns the default configuration, overridden by the file at path
// and then by the environment. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
		if err := cfg.Decode(data); err != nil {
			return cfg, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Decode overrides the settings that are mentioned in the YAML document.
// Unknown keys are an error.
func (c *Config) Decode(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && err != io.EOF {
		return err
	}
	return nil
}

// ApplyEnv overrides the settings from the MORECOV_* variables that are
// defined according to lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup("MORECOV_" + name); ok && v != "" {
			*dst = v
		}
	}
	var errs []error
	integer := func(name string, dst *int) {
		if v, ok := lookup("MORECOV_" + name); ok && v != "" {
			i, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("MORECOV_%s: %w", name, err))
				return
			}
			*dst = i
		}
	}
	boolean := func(name string, dst *bool) {
		if v, ok := lookup("MORECOV_" + name); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("MORECOV_%s: %w", name, err))
				return
			}
			*dst = b
		}
	}

	if v, ok := lookup("MORECOV_CRITERIA"); ok && v != "" {
		c.Criteria = splitList(v)
	}
	integer("MAX_PATHS", &c.MaxPaths)
	integer("MAX_EXPANSIONS", &c.MaxExpansions)
	str("BACK_EDGES", &c.BackEdges)
	boolean("STUBS", &c.Stubs)
	str("FORMAT", &c.Format)
	str("OUTPUT", &c.Output)
	integer("CONCURRENCY", &c.Concurrency)
	boolean("STRICT", &c.Strict)
	str("LOG_LEVEL", &c.LogLevel)

	return errors.Join(errs...)
}

func splitList(s string) []string {
	var list []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			list = append(list, item)
		}
	}
	return list
}

// Validate checks that every setting has a usable value.
func (c Config) Validate() error {
	if len(c.Criteria) == 0 {
		return fmt.Errorf("%w: no coverage criteria", ErrInvalid)
	}
	if _, err := c.ParsedCriteria(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if c.BackEdges != BackEdgesTagged && c.BackEdges != BackEdgesPositional {
		return fmt.Errorf("%w: back_edges must be %q or %q, not %q",
			ErrInvalid, BackEdgesTagged, BackEdgesPositional, c.BackEdges)
	}
	if !isFormat(c.Format) {
		return fmt.Errorf("%w: format must be one of %s, not %q",
			ErrInvalid, strings.Join(Formats, ", "), c.Format)
	}
	if c.Concurrency < 0 {
		return fmt.Errorf("%w: concurrency must be >= 0", ErrInvalid)
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: log_level: %w", ErrInvalid, err)
	}
	return nil
}

func isFormat(format string) bool {
	for _, f := range Formats {
		if f == format {
			return true
		}
	}
	return false
}

// ParsedCriteria returns the configured criteria, without duplicates, in
// the configured order.
func (c Config) ParsedCriteria() ([]coverage.Criterion, error) {
	var out []coverage.Criterion
	seen := map[coverage.Criterion]bool{}
	for _, name := range c.Criteria {
		crit, err := coverage.ParseCriterion(name)
		if err != nil {
			return nil, err
		}
		if !seen[crit] {
			seen[crit] = true
			out = append(out, crit)
		}
	}
	return out, nil
}

// PathOptions returns the enumeration bounds.
func (c Config) PathOptions() paths.Options {
	return paths.Options{
		MaxPaths:            c.MaxPaths,
		MaxExpansions:       c.MaxExpansions,
		PositionalBackEdges: c.BackEdges == BackEdgesPositional,
	}
}

// Level returns the configured log level. An empty or invalid level
// means the warn level.
func (c Config) Level() zerolog.Level {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		return zerolog.WarnLevel
	}
	return level
}
