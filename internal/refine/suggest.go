package refine

import (
	"sort"
	"strings"
)

// Suggester turns derived failure patterns into prioritized
// refinements. Each pattern maps to one refinement; priority follows
// the pattern frequency.
type Suggester struct{}

// NewSuggester builds a suggester.
func NewSuggester() *Suggester {
	return &Suggester{}
}

// Suggest derives refinements from an analysis, ordered by priority
// then by target for determinism.
func (s *Suggester) Suggest(analysis Analysis) []Refinement {
	var out []Refinement
	for _, p := range analysis.Patterns {
		out = append(out, s.forPattern(p))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority.rank() > out[j].Priority.rank()
		}
		return out[i].Target < out[j].Target
	})
	return out
}

func (s *Suggester) forPattern(p FailurePattern) Refinement {
	ref := Refinement{
		Priority:  PriorityFor(p.Frequency),
		Target:    strings.Join(p.Fields, ","),
		Rationale: p.Fix,
		Addresses: []string{p.Name},
	}
	switch {
	case allValidation(p.Categories):
		ref.Kind = RefineValidationRule
		ref.Suggestion = "Relax content validation so representative documents are not rejected before extraction; keep only keywords present in every labeled input."
	case strings.HasPrefix(p.Name, "missing_field_"):
		ref.Kind = RefineExtractionRule
		ref.Suggestion = "Locate and extract the field even when it appears outside the primary section; if absent emit an explicit null rather than omitting the key."
		if len(p.Fields) == 1 {
			ref.Suggestion = "Locate and extract " + quoted(p.Fields[0]) + " even when it appears outside the primary section; if absent emit an explicit null rather than omitting the key."
		}
		// A persistent hole usually means the prompt never showed one.
		if p.Frequency >= highThreshold {
			ref.Kind = RefineWorkedExample
			ref.Suggestion = "Add a worked example demonstrating extraction of " + strings.Join(p.Fields, ", ") + " from a representative document."
		}
	case p.Name == "numeric_formatting":
		ref.Kind = RefineParsingRule
		ref.Suggestion = "Strip currency symbols, percent signs and thousands separators before numeric conversion; treat parenthesized amounts as negative."
	case p.Name == "nested_structure_parsing":
		ref.Kind = RefineParsingRule
		ref.Suggestion = "Parse the response as a nested object and flatten intermediate containers into dotted output paths before field comparison."
	case strings.HasPrefix(p.Name, "type_mismatch_"):
		ref.Kind = RefinePrompt
		ref.Suggestion = "State the required JSON type for each output field explicitly in the prompt, with one literal example value per field."
	default:
		ref.Kind = RefineTemplate
		ref.Suggestion = p.Fix
	}
	return ref
}

func quoted(s string) string {
	return "\"" + s + "\""
}

func allValidation(cats []Category) bool {
	if len(cats) == 0 {
		return false
	}
	for _, c := range cats {
		if c != CategoryValidation {
			return false
		}
	}
	return true
}
