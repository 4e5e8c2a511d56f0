package patterns

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bobmatnyc/edgar-sub010/internal/schema"
)

// minSupportDefault is the minimum fraction of examples that must be
// consistent with a rule before a candidate is emitted.
const minSupportDefault = 0.5

// Options configures a Detector.
type Options struct {
	// Baseline is the confidence above which a field counts as covered
	// when computing overall confidence (default 0.5).
	Baseline float64
	// MaxCandidates bounds retained candidates per output field
	// (default 5).
	MaxCandidates int
	// Inferencer overrides schema inference options.
	Inferencer schema.Options
}

// Detector runs the recognizer chain over paired examples.
type Detector struct {
	opts        Options
	recognizers []Recognizer
	inferencer  *schema.Inferencer
}

// NewDetector creates a detector with the fixed-priority recognizer
// chain. Zero option fields take defaults.
func NewDetector(opts Options) *Detector {
	if opts.Baseline <= 0 {
		opts.Baseline = 0.5
	}
	if opts.MaxCandidates <= 0 {
		opts.MaxCandidates = 5
	}
	return &Detector{
		opts:        opts,
		recognizers: defaultRecognizers(),
		inferencer:  schema.NewInferencer(opts.Inferencer),
	}
}

// Detect infers both schemas and proposes ranked transformation patterns
// for every output field. An empty pair list yields empty schemas, no
// patterns and confidence 0 without error. Schema-level inconsistencies
// are unioned by the inferencer; only malformed example structures fail.
func (d *Detector) Detect(pairs []ExamplePair) (*ParsedExamples, error) {
	if len(pairs) == 0 {
		return &ParsedExamples{
			InputSchema:  schema.NewSchema(),
			OutputSchema: schema.NewSchema(),
			Confidence:   0,
		}, nil
	}

	inputs := make([]any, len(pairs))
	outputs := make([]any, len(pairs))
	for i, p := range pairs {
		inputs[i] = p.Input
		outputs[i] = p.Output
	}

	inSchema, err := d.inferencer.Infer(inputs)
	if err != nil {
		return nil, fmt.Errorf("input schema: %w", err)
	}
	outSchema, err := d.inferencer.Infer(outputs)
	if err != nil {
		return nil, fmt.Errorf("output schema: %w", err)
	}

	ex := &exampleSet{
		pairs:     pairs,
		inSchema:  inSchema,
		outSchema: outSchema,
	}
	leafSet := make(map[string]bool)
	for _, p := range pairs {
		flat := flatten(p.Input)
		ex.inFlat = append(ex.inFlat, flat)
		for _, leaf := range leafPaths(flat) {
			leafSet[leaf] = true
		}
	}
	ex.inLeaves = sortedPathSet(leafSet)

	parsed := &ParsedExamples{
		InputSchema:  inSchema,
		OutputSchema: outSchema,
		ExampleCount: len(pairs),
	}

	targets := detectionTargets(outSchema)
	covered := 0
	topSum := 0.0
	for _, target := range targets {
		candidates := d.detectField(ex, target)
		if len(candidates) == 0 {
			parsed.Warnings = append(parsed.Warnings,
				fmt.Sprintf("no transformation pattern detected for output field %q", target.Path))
			continue
		}
		if len(candidates) > d.opts.MaxCandidates {
			candidates = candidates[:d.opts.MaxCandidates]
		}
		parsed.Patterns = append(parsed.Patterns, candidates...)
		topSum += candidates[0].Confidence
		if candidates[0].Confidence >= d.opts.Baseline {
			covered++
		}
	}

	parsed.Confidence = overallConfidence(components{
		schemaClarity: schemaClarity(inSchema, outSchema),
		coverage:      ratio(covered, len(targets)),
		consistency:   meanOrZero(topSum, len(targets)),
		diversity:     structuralDiversity(ex.inFlat),
	})
	return parsed, nil
}

// detectField runs the chain for one field, consulting the complex
// fallback only when everything else came up empty.
func (d *Detector) detectField(ex *exampleSet, target *schema.Field) []Pattern {
	var candidates []Pattern
	var fallback Recognizer
	for _, r := range d.recognizers {
		if _, ok := r.(complexRecognizer); ok {
			fallback = r
			continue
		}
		candidates = append(candidates, r.Detect(ex, target)...)
	}
	if len(candidates) == 0 && fallback != nil {
		candidates = fallback.Detect(ex, target)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Confidence > candidates[j].Confidence
	})
	return candidates
}

// detectionTargets selects the output fields to explain: scalar leaves
// plus whole-list fields. Array element paths are covered through their
// containing list.
func detectionTargets(out *schema.Schema) []*schema.Field {
	var targets []*schema.Field
	for _, f := range out.Fields() {
		if strings.Contains(f.Path, "[]") {
			continue
		}
		if f.Type.Scalar() || f.Type == schema.TypeList {
			targets = append(targets, f)
		}
	}
	return targets
}
