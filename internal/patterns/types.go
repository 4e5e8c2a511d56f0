package patterns

import (
	"errors"
	"fmt"

	"github.com/bobmatnyc/edgar-sub010/internal/schema"
)

// ErrInvalidConfidence indicates a confidence value outside [0,1].
var ErrInvalidConfidence = errors.New("confidence must be in [0.0, 1.0]")

// Kind is the closed set of transformation pattern kinds.
type Kind string

const (
	KindDirectCopy     Kind = "direct_copy"
	KindRename         Kind = "rename"
	KindNestedExtract  Kind = "nested_extract"
	KindArrayFirst     Kind = "array_first"
	KindArrayElement   Kind = "array_element"
	KindTypeConversion Kind = "type_conversion"
	KindConcatenation  Kind = "concatenation"
	KindStringFormat   Kind = "string_format"
	KindConstant       Kind = "constant"
	KindCalculation    Kind = "calculation"
	KindAggregation    Kind = "aggregation"
	KindConditional    Kind = "conditional"
	KindDefaultValue   Kind = "default_value"
	KindComplex        Kind = "complex"
)

// MaxPatternExamples bounds illustrative examples retained per pattern.
const MaxPatternExamples = 3

// Pattern is a hypothesized transformation rule from one input field to
// one output field. Patterns are immutable once built. Multiple patterns
// may target the same output field; ambiguity is preserved at this stage.
type Pattern struct {
	// SourcePath is the input field path ("" for constants).
	SourcePath string `json:"source_path,omitempty"`
	// TargetPath is the output field path.
	TargetPath string `json:"target_path"`
	// Kind classifies the transformation.
	Kind Kind `json:"kind"`
	// Confidence in [0,1] expresses example support for the rule.
	Confidence float64 `json:"confidence"`
	// Description is a human-readable summary.
	Description string `json:"description"`
	// Examples holds up to MaxPatternExamples "in -> out" illustrations.
	Examples []string `json:"examples,omitempty"`
}

// NewPattern builds a pattern, enforcing the confidence invariant at
// construction time.
func NewPattern(kind Kind, source, target string, confidence float64, desc string) (Pattern, error) {
	if confidence < 0 || confidence > 1 {
		return Pattern{}, fmt.Errorf("%w: got %v for %s -> %s", ErrInvalidConfidence, confidence, source, target)
	}
	return Pattern{
		SourcePath:  source,
		TargetPath:  target,
		Kind:        kind,
		Confidence:  confidence,
		Description: desc,
	}, nil
}

// ExamplePair is one (input, output) example.
type ExamplePair struct {
	Input  map[string]any `json:"input"`
	Output map[string]any `json:"output"`
}

// ParsedExamples is the full detection result for one example set.
// Built once per request and consumed by the synthesizer; not mutated.
type ParsedExamples struct {
	// InputSchema and OutputSchema are the inferred structures.
	InputSchema  *schema.Schema `json:"-"`
	OutputSchema *schema.Schema `json:"-"`
	// Patterns holds all candidates across all output fields, each
	// field's candidates sorted descending by confidence.
	Patterns []Pattern `json:"patterns"`
	// Confidence is the derived overall confidence in [0,1].
	Confidence float64 `json:"confidence"`
	// Warnings records non-fatal detection issues, notably output
	// fields matched by zero patterns.
	Warnings []string `json:"warnings,omitempty"`
	// ExampleCount is the number of pairs examined.
	ExampleCount int `json:"example_count"`
}

// ForTarget returns the candidates targeting path, best first.
func (p *ParsedExamples) ForTarget(path string) []Pattern {
	var out []Pattern
	for _, pat := range p.Patterns {
		if pat.TargetPath == path {
			out = append(out, pat)
		}
	}
	return out
}

// Best returns the highest-confidence candidate per target path that
// clears the threshold.
func (p *ParsedExamples) Best(threshold float64) map[string]Pattern {
	best := make(map[string]Pattern)
	for _, pat := range p.Patterns {
		cur, ok := best[pat.TargetPath]
		if pat.Confidence < threshold {
			continue
		}
		if !ok || pat.Confidence > cur.Confidence {
			best[pat.TargetPath] = pat
		}
	}
	return best
}
