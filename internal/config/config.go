// Package config provides configuration loading for forge.
//
// Precedence, highest to lowest: environment variables (FORGE_*), a
// YAML config file, built-in defaults.
package config

import (
	"errors"
	"fmt"

	"github.com/bobmatnyc/edgar-sub010/internal/logging"
)

// Validation errors.
var (
	ErrInvalidThreshold = errors.New("threshold must be in [0.0, 1.0]")
	ErrInvalidBound     = errors.New("bound must be positive")
)

// Config holds the complete forge configuration.
type Config struct {
	Registry RegistryConfig `koanf:"registry"`
	Detector DetectorConfig `koanf:"detector"`
	Refine   RefineConfig   `koanf:"refine"`
	Logging  logging.Config `koanf:"logging"`
}

// RegistryConfig locates the artifact catalog and fixes the loadable
// namespace.
type RegistryConfig struct {
	// CatalogPath is the catalog JSON file. Empty selects
	// ~/.config/forge/catalog.json.
	CatalogPath string `koanf:"catalog_path"`
	// Namespace is the symbol-path prefix artifacts must live under.
	Namespace string `koanf:"namespace"`
}

// DetectorConfig tunes pattern detection.
type DetectorConfig struct {
	// Baseline is the confidence below which candidates are dropped.
	Baseline float64 `koanf:"baseline"`
	// MaxCandidates caps ranked candidates kept per output field.
	MaxCandidates int `koanf:"max_candidates"`
}

// RefineConfig bounds the refinement loop and failure analysis.
type RefineConfig struct {
	TargetAccuracy    float64 `koanf:"target_accuracy"`
	MaxIterations     int     `koanf:"max_iterations"`
	MinImprovement    float64 `koanf:"min_improvement"`
	MissRateThreshold float64 `koanf:"miss_rate_threshold"`
	MinMissCount      int     `koanf:"min_miss_count"`
}

// Validate checks all sections.
func (c *Config) Validate() error {
	if c.Registry.Namespace == "" {
		return errors.New("registry namespace must not be empty")
	}
	for name, v := range map[string]float64{
		"detector baseline":          c.Detector.Baseline,
		"refine target_accuracy":     c.Refine.TargetAccuracy,
		"refine min_improvement":     c.Refine.MinImprovement,
		"refine miss_rate_threshold": c.Refine.MissRateThreshold,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%w: %s = %v", ErrInvalidThreshold, name, v)
		}
	}
	if c.Refine.TargetAccuracy == 0 {
		return fmt.Errorf("%w: refine target_accuracy", ErrInvalidBound)
	}
	for name, v := range map[string]int{
		"detector max_candidates": c.Detector.MaxCandidates,
		"refine max_iterations":   c.Refine.MaxIterations,
		"refine min_miss_count":   c.Refine.MinMissCount,
	} {
		if v < 1 {
			return fmt.Errorf("%w: %s = %d", ErrInvalidBound, name, v)
		}
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	return nil
}
