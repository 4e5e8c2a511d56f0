package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix         = "FORGE_"
	maxConfigFileSize = 1024 * 1024
)

// defaultsYAML seeds every key before file and environment overrides.
var defaultsYAML = []byte(`
registry:
  catalog_path: ""
  namespace: "forge/artifacts/"
detector:
  baseline: 0.5
  max_candidates: 5
refine:
  target_accuracy: 0.95
  max_iterations: 5
  min_improvement: 0.02
  miss_rate_threshold: 0.25
  min_miss_count: 2
logging:
  level: info
  format: json
  caller:
    enabled: true
    skip: 1
  stacktrace:
    level: error
  fields:
    service: forge
`)

// Load loads configuration from defaults, then the YAML file at
// configPath if it exists, then FORGE_* environment variables.
//
// Environment variables split on the first underscore after the
// prefix into section and field:
//
//	FORGE_REGISTRY_CATALOG_PATH -> registry.catalog_path
//	FORGE_DETECTOR_BASELINE     -> detector.baseline
//	FORGE_REFINE_MAX_ITERATIONS -> refine.max_iterations
//
// An empty configPath selects ~/.config/forge/config.yaml.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(rawbytes.Provider(defaultsYAML), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		configPath = filepath.Join(home, ".config", "forge", "config.yaml")
	}

	if _, err := os.Stat(configPath); err == nil {
		// Open once and size-check through the descriptor to avoid a
		// stat/read race.
		f, err := os.Open(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open config file: %w", err)
		}
		defer f.Close()

		info, err := f.Stat()
		if err != nil {
			return nil, fmt.Errorf("failed to stat config file: %w", err)
		}
		if info.Size() > maxConfigFileSize {
			return nil, fmt.Errorf("config file %s exceeds %d bytes", configPath, maxConfigFileSize)
		}

		content, err := io.ReadAll(f)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		trimmed := strings.ToLower(strings.TrimPrefix(s, envPrefix))
		parts := strings.SplitN(trimmed, "_", 2)
		if len(parts) == 1 {
			return trimmed
		}
		return parts[0] + "." + parts[1]
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// EnsureConfigDir creates ~/.config/forge if it does not exist, with
// owner-only permissions.
func EnsureConfigDir() error {
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	dir := filepath.Join(home, ".config", "forge")
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory %s: %w", dir, err)
	}
	return nil
}
