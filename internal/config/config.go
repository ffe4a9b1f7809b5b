// Package config loads the normalization settings from a YAML file
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/524D/lipidnorm/internal/anchor"
	"github.com/524D/lipidnorm/internal/outlier"
	"github.com/524D/lipidnorm/internal/standardize"
	"github.com/524D/lipidnorm/internal/standards"
)

// Config holds all settings of a normalization run
type Config struct {
	ISPrefix           string  `yaml:"is_prefix"`
	ESPrefix           string  `yaml:"es_prefix"`
	RTTolerance        float64 `yaml:"rt_tolerance"` // <= 0 disables retention time grouping
	Isotopes           int     `yaml:"isotopes"`
	OutlierTolerance   float64 `yaml:"outlier_tolerance"`
	FoundThreshold     float64 `yaml:"found_threshold"`
	CVTieWindow        float64 `yaml:"cv_tie_window"`
	ApplicableFraction float64 `yaml:"applicable_fraction"`
	Dilution           bool    `yaml:"dilution"`
	Workers            int     `yaml:"workers"`

	Cutoffs         map[string]float64  `yaml:"cutoffs"`          // class -> fraction of the highest area
	SingleStandards map[string]Singles  `yaml:"single_standards"` // class -> standards of the single regimes
	DisplayOrder    map[string][]string `yaml:"display_order"`    // class -> molecule names

	Absolute *standardize.Settings `yaml:"absolute"`
}

// Singles names the standards used for the single standard regimes
type Singles struct {
	IS string `yaml:"is"`
	ES string `yaml:"es"`
}

// Default returns the configuration used when no file is given
func Default() Config {
	return Config{
		ISPrefix:           "IS ",
		ESPrefix:           "ES ",
		RTTolerance:        0.1,
		Isotopes:           1,
		OutlierTolerance:   outlier.DefaultTolerance,
		FoundThreshold:     standards.DefaultFoundThreshold,
		CVTieWindow:        standards.DefaultCVWindow,
		ApplicableFraction: anchor.DefaultApplicableFraction,
		Workers:            4,
	}
}

var ErrInvalidConfig = errors.New("invalid configuration")

// Load reads a YAML configuration on top of the defaults
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer f.Close()
	cfg, err := Parse(f)
	if err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes a YAML configuration on top of the defaults and validates
// it. Unknown keys are rejected.
func Parse(r io.Reader) (Config, error) {
	cfg := Default()
	data, err := io.ReadAll(r)
	if err != nil {
		return cfg, err
	}
	if len(bytes.TrimSpace(data)) > 0 {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil {
			return cfg, err
		}
	}
	return cfg, cfg.Validate()
}

// Validate checks value ranges and reports all problems at once
func (c *Config) Validate() error {
	var errs []error
	bad := func(format string, a ...interface{}) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]interface{}{ErrInvalidConfig}, a...)...))
	}
	if c.ISPrefix == `` && c.ESPrefix == `` {
		bad("is_prefix and es_prefix are both empty")
	}
	if c.ISPrefix != `` && c.ISPrefix == c.ESPrefix {
		bad("is_prefix and es_prefix are equal (%q)", c.ISPrefix)
	}
	if c.Isotopes < 1 {
		bad("isotopes must be >= 1, got %d", c.Isotopes)
	}
	if c.OutlierTolerance <= 1 {
		bad("outlier_tolerance must be > 1, got %g", c.OutlierTolerance)
	}
	if c.FoundThreshold <= 0 || c.FoundThreshold > 1 {
		bad("found_threshold must be in (0,1], got %g", c.FoundThreshold)
	}
	if c.CVTieWindow < 0 {
		bad("cv_tie_window must be >= 0, got %g", c.CVTieWindow)
	}
	if c.ApplicableFraction < 0 || c.ApplicableFraction > 1 {
		bad("applicable_fraction must be in [0,1], got %g", c.ApplicableFraction)
	}
	if c.Workers < 1 {
		bad("workers must be >= 1, got %d", c.Workers)
	}
	for class, f := range c.Cutoffs {
		if f < 0 || f > 1 {
			bad("cutoff of class %s must be in [0,1], got %g", class, f)
		}
	}
	return errors.Join(errs...)
}

// StandardParams returns the statistics and ranking parameters
func (c *Config) StandardParams() standards.Params {
	return standards.Params{
		Tolerance:      c.OutlierTolerance,
		FoundThreshold: c.FoundThreshold,
		CVWindow:       c.CVTieWindow,
	}
}

// AnchorParams returns the anchor selection parameters
func (c *Config) AnchorParams() anchor.Params {
	return anchor.Params{
		Tolerance:          c.OutlierTolerance,
		ApplicableFraction: c.ApplicableFraction,
	}
}
