package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/bobmatnyc/edgar-sub010/internal/patterns"
)

var (
	validateExamples   string
	validateOutputJSON bool
)

func init() {
	validateCmd.Flags().StringVar(&validateExamples, "examples", "", "JSON file of example pairs (required)")
	validateCmd.Flags().BoolVar(&validateOutputJSON, "json", false, "output as JSON")
	_ = validateCmd.MarkFlagRequired("examples")
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check example pairs before creating an artifact",
	Long: `Validate runs schema inference and pattern detection over an
examples file without synthesizing or registering anything. It reports
the detected patterns, the overall confidence and any output fields no
pattern could explain.

Examples:
  forge validate --examples pairs.json
  forge validate --examples pairs.json --json`,
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	pairs, err := loadExamplePairs(validateExamples)
	if err != nil {
		return err
	}

	detector := patterns.NewDetector(patterns.Options{
		Baseline:      cfg.Detector.Baseline,
		MaxCandidates: cfg.Detector.MaxCandidates,
	})
	parsed, err := detector.Detect(pairs)
	if err != nil {
		return err
	}

	if validateOutputJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(parsed)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "examples: %d, confidence: %.2f\n", parsed.ExampleCount, parsed.Confidence)

	if len(parsed.Patterns) > 0 {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "TARGET\tKIND\tSOURCE\tCONFIDENCE")
		for _, p := range parsed.Patterns {
			fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\n", p.TargetPath, p.Kind, p.SourcePath, p.Confidence)
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}

	for _, warning := range parsed.Warnings {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", warning)
	}
	return nil
}
