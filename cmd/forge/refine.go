package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/spf13/cobra"

	"github.com/bobmatnyc/edgar-sub010/internal/config"
	"github.com/bobmatnyc/edgar-sub010/internal/patterns"
	"github.com/bobmatnyc/edgar-sub010/internal/refine"
	"github.com/bobmatnyc/edgar-sub010/internal/registry"
	"github.com/bobmatnyc/edgar-sub010/internal/synth"
)

var (
	refineName       string
	refineResults    string
	refineExamples   string
	refineDomain     string
	refineOut        string
	refineOutputJSON bool
)

func init() {
	refineCmd.Flags().StringVar(&refineName, "name", "", "artifact name (required)")
	refineCmd.Flags().StringVar(&refineResults, "results", "", "JSON file of evaluation results (required)")
	refineCmd.Flags().StringVar(&refineExamples, "examples", "", "original example pairs; enables regeneration")
	refineCmd.Flags().StringVar(&refineDomain, "domain", "", "domain profile for regeneration (default from catalog)")
	refineCmd.Flags().StringVar(&refineOut, "out", "", "directory for regenerated files (default ./<name>)")
	refineCmd.Flags().BoolVar(&refineOutputJSON, "json", false, "output as JSON")
	_ = refineCmd.MarkFlagRequired("name")
	_ = refineCmd.MarkFlagRequired("results")
}

var refineCmd = &cobra.Command{
	Use:   "refine",
	Short: "Analyze evaluation results and suggest refinements",
	Long: `Refine categorizes recorded evaluation failures, derives recurring
failure patterns and prints prioritized refinements.

The results file holds an array of evaluation records:

  [{"input": "...", "expected": {...}, "actual": {...}, "error": "..."}]

Records whose actual output matches expected count as passes. With
--examples, the artifact is regenerated with the refinements folded
into its prompt and the catalog entry is patch-bumped.

Examples:
  forge refine --name invoice-extractor --results eval.json
  forge refine --name invoice-extractor --results eval.json \
      --examples pairs.json --out ./artifacts/invoice-extractor`,
	RunE: runRefine,
}

// evalRecord is one recorded evaluation case.
type evalRecord struct {
	Description string         `json:"description,omitempty"`
	Input       any            `json:"input"`
	Expected    map[string]any `json:"expected"`
	Actual      map[string]any `json:"actual,omitempty"`
	Error       string         `json:"error,omitempty"`
}

func runRefine(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	records, err := loadEvalRecords(refineResults)
	if err != nil {
		return err
	}

	eval := buildEvaluation(records)
	categorizer := refine.NewCategorizer()
	analyzer := refine.NewAnalyzer(refine.AnalyzerOptions{
		MissRateThreshold: cfg.Refine.MissRateThreshold,
		MinMissCount:      cfg.Refine.MinMissCount,
	})
	analysis := analyzer.Analyze(categorizer.CategorizeAll(eval.Failures))
	refinements := refine.NewSuggester().Suggest(analysis)

	if refineOutputJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(struct {
			Accuracy    float64             `json:"accuracy"`
			Analysis    refine.Analysis     `json:"analysis"`
			Refinements []refine.Refinement `json:"refinements"`
		}{eval.Accuracy(), analysis, refinements}); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "accuracy: %.2f (%d/%d), analysis confidence: %.2f\n",
			eval.Accuracy(), eval.Passed, eval.Total, analysis.Confidence)
		if len(refinements) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no recurring failure patterns found")
		} else {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "PRIORITY\tKIND\tTARGET\tSUGGESTION")
			for _, r := range refinements {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.Priority, r.Kind, r.Target, r.Suggestion)
			}
			if err := w.Flush(); err != nil {
				return err
			}
		}
	}

	if refineExamples == "" || len(refinements) == 0 {
		return nil
	}
	return regenerateArtifact(cmd, cfg, refinements)
}

// regenerateArtifact re-synthesizes the artifact with the refinements
// folded into its prompt guidance, patch-bumps the catalog entry and
// writes the new files.
func regenerateArtifact(cmd *cobra.Command, cfg *config.Config, refinements []refine.Refinement) error {
	pairs, err := loadExamplePairs(refineExamples)
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

	reg, err := newRegistry(cfg)
	if err != nil {
		return err
	}

	domain := refineDomain
	symbolPath := reg.Namespace() + refineName
	version := "0.1.1"
	meta, err := reg.Metadata(refineName)
	switch {
	case err == nil:
		if domain == "" {
			domain = meta.Domain
		}
		symbolPath = meta.SymbolPath
		v, verr := semver.NewVersion(meta.Version)
		if verr != nil {
			return fmt.Errorf("catalog version %q: %w", meta.Version, verr)
		}
		next := v.IncPatch()
		version = next.String()
	case errors.Is(err, registry.ErrNotFound):
		// First generation on this machine; register below.
	default:
		return err
	}
	if domain == "" {
		domain = "generic"
	}

	guidance := make([]string, 0, len(refinements))
	for _, r := range refinements {
		if r.Target != "" {
			guidance = append(guidance, fmt.Sprintf("[%s] %s: %s", r.Kind, r.Target, r.Suggestion))
		} else {
			guidance = append(guidance, fmt.Sprintf("[%s] %s", r.Kind, r.Suggestion))
		}
	}

	artifact, err := synth.NewSynthesizer(nil).Synthesize(synth.Request{
		Name:        refineName,
		Domain:      domain,
		SymbolPath:  symbolPath,
		Version:     version,
		Parsed:      parsed,
		Guidance:    guidance,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}

	if meta != nil {
		updated := *meta
		updated.Version = version
		if _, err := reg.Update(updated); err != nil {
			return err
		}
	} else {
		if _, err := reg.Register(registry.ArtifactMetadata{
			Name:         refineName,
			SymbolPath:   symbolPath,
			Version:      version,
			Domain:       domain,
			Confidence:   parsed.Confidence,
			ExampleCount: parsed.ExampleCount,
		}); err != nil {
			return err
		}
	}

	outDir := refineOut
	if outDir == "" {
		outDir = refineName
	}
	if err := writeArtifactFiles(outDir, artifact.Files); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "regenerated %s v%s at %s with %d guidance lines\n",
		refineName, version, outDir, len(guidance))
	return nil
}

func loadEvalRecords(path string) ([]evalRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read results: %w", err)
	}
	var records []evalRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse results %s: %w", path, err)
	}
	return records, nil
}

// buildEvaluation scores recorded results the same way the loop's
// evaluator does.
func buildEvaluation(records []evalRecord) *refine.Evaluation {
	eval := &refine.Evaluation{Total: len(records)}
	for _, rec := range records {
		if rec.Error == "" && rec.Actual != nil && refine.Matches(rec.Expected, rec.Actual) {
			eval.Passed++
			continue
		}
		eval.Failures = append(eval.Failures, refine.FailureRecord{
			Input:       rec.Input,
			Expected:    rec.Expected,
			Actual:      rec.Actual,
			Err:         rec.Error,
			Description: rec.Description,
		})
	}
	return eval
}
