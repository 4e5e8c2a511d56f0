// Package refine closes the loop on generated artifacts: evaluate
// against labeled cases, categorize failures, derive prioritized
// refinements and drive re-synthesis until a target accuracy, an
// iteration bound or an improvement plateau is reached.
package refine

import (
	"errors"
	"fmt"
)

// ErrInvalidFrequency indicates a frequency value outside [0,1].
var ErrInvalidFrequency = errors.New("frequency must be in [0.0, 1.0]")

// Category is the closed set of failure categories. Every failure
// record is classified into exactly one.
type Category string

const (
	CategoryParsing        Category = "parsing_error"
	CategoryValidation     Category = "validation_error"
	CategoryMissingData    Category = "missing_data"
	CategoryTransformation Category = "incorrect_transformation"
	CategoryException      Category = "uncategorized_exception"
)

// FailureRecord captures one divergent evaluation case. Evaluation
// failures are data, never loop-aborting errors.
type FailureRecord struct {
	// Input is the triggering document or value.
	Input any `json:"input"`
	// Expected is the labeled output.
	Expected map[string]any `json:"expected"`
	// Actual is the produced output; nil when extraction errored out.
	Actual map[string]any `json:"actual,omitempty"`
	// Err is the error text, if any.
	Err string `json:"error,omitempty"`
	// Category is assigned by the Categorizer.
	Category Category `json:"category,omitempty"`
	// Description identifies the test case.
	Description string `json:"description,omitempty"`
}

// FailurePattern is a recurring failure shape derived from a sample of
// records. Derived, not persisted.
type FailurePattern struct {
	// Name identifies the pattern (e.g. "missing_field_amount").
	Name string `json:"name"`
	// Frequency is the fraction of the failure sample exhibiting the
	// pattern, in [0,1].
	Frequency float64 `json:"frequency"`
	// Fields lists the affected output fields.
	Fields []string `json:"fields,omitempty"`
	// Categories lists the contributing failure categories.
	Categories []Category `json:"categories,omitempty"`
	// Fix is the suggested correction.
	Fix string `json:"fix"`
	// Examples holds a bounded sample of contributing records.
	Examples []FailureRecord `json:"examples,omitempty"`
}

// NewFailurePattern enforces the frequency invariant at construction.
func NewFailurePattern(name string, frequency float64, fix string) (FailurePattern, error) {
	if frequency < 0 || frequency > 1 {
		return FailurePattern{}, fmt.Errorf("%w: got %v for %s", ErrInvalidFrequency, frequency, name)
	}
	return FailurePattern{Name: name, Frequency: frequency, Fix: fix}, nil
}

// RefinementKind is the closed set of refinement targets.
type RefinementKind string

const (
	RefinePrompt         RefinementKind = "prompt_text"
	RefineParsingRule    RefinementKind = "parsing_rule"
	RefineExtractionRule RefinementKind = "extraction_rule"
	RefineValidationRule RefinementKind = "validation_rule"
	RefineWorkedExample  RefinementKind = "worked_example"
	RefineTemplate       RefinementKind = "template_change"
)

// Priority orders refinements for application.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// Priority frequency thresholds.
const (
	criticalThreshold = 0.8
	highThreshold     = 0.5
	mediumThreshold   = 0.2
)

// PriorityFor maps a pattern frequency to a priority.
func PriorityFor(frequency float64) Priority {
	switch {
	case frequency >= criticalThreshold:
		return PriorityCritical
	case frequency >= highThreshold:
		return PriorityHigh
	case frequency >= mediumThreshold:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// rank orders priorities for sorting, highest first.
func (p Priority) rank() int {
	switch p {
	case PriorityCritical:
		return 3
	case PriorityHigh:
		return 2
	case PriorityMedium:
		return 1
	default:
		return 0
	}
}

// Refinement is one targeted correction derived from failure analysis.
type Refinement struct {
	Kind RefinementKind `json:"kind"`
	// Target is the affected field or artifact area.
	Target string `json:"target"`
	// Suggestion is the correction text folded into re-synthesis.
	Suggestion string   `json:"suggestion"`
	Priority   Priority `json:"priority"`
	// Rationale explains why the refinement is proposed.
	Rationale string `json:"rationale,omitempty"`
	// Addresses names the FailurePatterns this refinement targets.
	Addresses []string `json:"addresses,omitempty"`
}

// LabeledCase is one evaluation input with its expected output.
type LabeledCase struct {
	Description string         `json:"description,omitempty"`
	Input       any            `json:"input"`
	Expected    map[string]any `json:"expected"`
}

// Evaluation is the outcome of running an artifact version against a
// labeled case set.
type Evaluation struct {
	Total    int             `json:"total"`
	Passed   int             `json:"passed"`
	Failures []FailureRecord `json:"failures,omitempty"`
}

// Accuracy returns the passed fraction, 0 for an empty evaluation.
func (e *Evaluation) Accuracy() float64 {
	if e.Total == 0 {
		return 0
	}
	return float64(e.Passed) / float64(e.Total)
}
