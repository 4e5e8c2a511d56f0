// Package main implements the forge CLI for synthesizing, listing and
// refining extraction artifacts from local example files.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bobmatnyc/edgar-sub010/internal/config"
	"github.com/bobmatnyc/edgar-sub010/internal/logging"
)

var (
	// configPath overrides the default config file location
	configPath string
	// version information
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "forge",
	Short: "Synthesize extraction artifacts from input/output examples",
	Long: `forge turns small sets of input/output example pairs into complete
extraction artifacts: a typed model, an extractor, a prompt, tests and
a manifest. Artifacts are versioned in a local catalog and can be
refined against labeled cases.`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.config/forge/config.yaml)")
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(refineCmd)
}

// loadConfig loads the effective configuration for a command run.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// newLogger builds the process logger from config.
func newLogger(cfg *config.Config) (*logging.Logger, error) {
	logger, err := logging.NewLogger(&cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}
	return logger, nil
}
