package refine

import (
	"context"
	"fmt"
)

// ExtractFunc produces structured output for one input document.
type ExtractFunc func(ctx context.Context, input string) (map[string]any, error)

// CaseEvaluator evaluates an extraction function against labeled
// cases. Extraction errors and field mismatches become failure
// records; only a missing function is an infrastructure fault.
type CaseEvaluator struct {
	Extract ExtractFunc
}

// Evaluate runs every case and scores exact, whitespace and numeric
// tolerant field matches.
func (e *CaseEvaluator) Evaluate(ctx context.Context, cases []LabeledCase) (*Evaluation, error) {
	if e.Extract == nil {
		return nil, fmt.Errorf("%w: no extraction function", ErrEvaluate)
	}
	eval := &Evaluation{Total: len(cases)}
	for _, c := range cases {
		input, ok := c.Input.(string)
		if !ok {
			input = fmt.Sprintf("%v", c.Input)
		}
		actual, err := e.Extract(ctx, input)
		if err != nil {
			eval.Failures = append(eval.Failures, FailureRecord{
				Input:       c.Input,
				Expected:    c.Expected,
				Err:         err.Error(),
				Description: c.Description,
			})
			continue
		}
		if Matches(c.Expected, actual) {
			eval.Passed++
			continue
		}
		eval.Failures = append(eval.Failures, FailureRecord{
			Input:       c.Input,
			Expected:    c.Expected,
			Actual:      actual,
			Description: c.Description,
		})
	}
	return eval, nil
}

// Matches reports whether actual satisfies every expected field,
// tolerating numeric representation and whitespace differences.
func Matches(expected, actual map[string]any) bool {
	if actual == nil {
		return len(expected) == 0
	}
	missing, wrong := diffFields(expected, actual)
	return len(missing) == 0 && len(wrong) == 0
}
