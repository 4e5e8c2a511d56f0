package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bobmatnyc/edgar-sub010/internal/patterns"
	"github.com/bobmatnyc/edgar-sub010/internal/pipeline"
)

var (
	createName        string
	createDomain      string
	createDescription string
	createTags        []string
	createExamples    string
	createOut         string
)

func init() {
	createCmd.Flags().StringVar(&createName, "name", "", "artifact name (required)")
	createCmd.Flags().StringVar(&createDomain, "domain", "generic", "domain profile (generic, filing, invoice)")
	createCmd.Flags().StringVar(&createDescription, "description", "", "artifact description")
	createCmd.Flags().StringSliceVar(&createTags, "tags", nil, "catalog tags")
	createCmd.Flags().StringVar(&createExamples, "examples", "", "JSON file of example pairs (required)")
	createCmd.Flags().StringVar(&createOut, "out", "", "directory for generated files (default ./<name>)")
	_ = createCmd.MarkFlagRequired("name")
	_ = createCmd.MarkFlagRequired("examples")
}

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an artifact from example pairs",
	Long: `Create infers schemas from a JSON file of example pairs, detects
transformation patterns, synthesizes the artifact files and registers
the artifact in the catalog.

The examples file holds an array of {"input": {...}, "output": {...}}
objects.

Examples:
  # Create an invoice extractor from examples
  forge create --name invoice-extractor --domain invoice --examples pairs.json

  # Write the generated files somewhere specific
  forge create --name filing-10k --domain filing --examples pairs.json --out ./artifacts/filing-10k`,
	RunE: runCreate,
}

func runCreate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	pairs, err := loadExamplePairs(createExamples)
	if err != nil {
		return err
	}

	svc, err := newService(cfg, logger)
	if err != nil {
		return err
	}

	result, err := svc.CreateArtifact(cmd.Context(), pipeline.CreateRequest{
		Name:        createName,
		Domain:      createDomain,
		Description: createDescription,
		Tags:        createTags,
		Pairs:       pairs,
	})
	if err != nil {
		return err
	}

	outDir := createOut
	if outDir == "" {
		outDir = createName
	}
	if err := writeArtifactFiles(outDir, result.Artifact.Files); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "created %s v%s (%s) at %s\n",
		result.Metadata.Name, result.Metadata.Version, result.Metadata.SymbolPath, outDir)
	fmt.Fprintf(cmd.OutOrStdout(), "confidence: %.2f over %d examples\n",
		result.Metadata.Confidence, result.Metadata.ExampleCount)
	for _, w := range result.Warnings {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", w)
	}
	return nil
}

// loadExamplePairs reads an array of example pairs from a JSON file.
func loadExamplePairs(path string) ([]patterns.ExamplePair, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read examples: %w", err)
	}
	var pairs []patterns.ExamplePair
	if err := json.Unmarshal(data, &pairs); err != nil {
		return nil, fmt.Errorf("parse examples %s: %w", path, err)
	}
	return pairs, nil
}

// writeArtifactFiles writes each generated file under dir.
func writeArtifactFiles(dir string, files map[string]string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	for name, content := range files {
		if strings.Contains(name, "..") {
			return fmt.Errorf("refusing artifact file name %q", name)
		}
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	return nil
}
