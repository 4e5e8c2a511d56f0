package refine

import (
	"regexp"
	"strings"
)

// categoryRule matches error text against one category. Rules are
// evaluated in order; the first match wins.
type categoryRule struct {
	category Category
	pattern  *regexp.Regexp
}

// Categorizer assigns each failure record exactly one category from
// the closed set. Error text is consulted first; when no error is
// present the expected/actual shapes decide.
type Categorizer struct {
	rules []categoryRule
}

// NewCategorizer builds a categorizer with the default rule set.
func NewCategorizer() *Categorizer {
	return &Categorizer{
		rules: []categoryRule{
			{CategoryParsing, regexp.MustCompile(`(?i)(parse|parsing|unmarshal|decode|syntax|unexpected (token|character|end)|malformed|invalid json|invalid yaml)`)},
			{CategoryValidation, regexp.MustCompile(`(?i)(validat|constraint|out of range|required keyword|rejected keyword|section not found|marker)`)},
			{CategoryMissingData, regexp.MustCompile(`(?i)(missing|not found|no value|empty (field|result)|absent)`)},
			{CategoryTransformation, regexp.MustCompile(`(?i)(conver|transform|wrong type|type mismatch|cannot cast)`)},
		},
	}
}

// Categorize fills in Category on the record and returns it.
func (c *Categorizer) Categorize(rec FailureRecord) FailureRecord {
	rec.Category = c.classify(rec)
	return rec
}

// CategorizeAll categorizes a batch in place order.
func (c *Categorizer) CategorizeAll(recs []FailureRecord) []FailureRecord {
	out := make([]FailureRecord, len(recs))
	for i, rec := range recs {
		out[i] = c.Categorize(rec)
	}
	return out
}

func (c *Categorizer) classify(rec FailureRecord) Category {
	if rec.Err != "" {
		for _, rule := range c.rules {
			if rule.pattern.MatchString(rec.Err) {
				return rule.category
			}
		}
		return CategoryException
	}
	if rec.Actual == nil {
		return CategoryMissingData
	}
	missing, wrong := diffFields(rec.Expected, rec.Actual)
	switch {
	case len(missing) > 0 && len(wrong) == 0:
		return CategoryMissingData
	case len(wrong) > 0:
		return CategoryTransformation
	default:
		return CategoryException
	}
}

// diffFields compares expected against actual and returns the field
// names that are absent and those present with a divergent value.
func diffFields(expected, actual map[string]any) (missing, wrong []string) {
	for name, want := range expected {
		got, ok := actual[name]
		if !ok || got == nil {
			missing = append(missing, name)
			continue
		}
		if !looseEqual(want, got) {
			wrong = append(wrong, name)
		}
	}
	return missing, wrong
}

// looseEqual tolerates numeric representation differences, matching
// how labeled outputs round-trip through JSON.
func looseEqual(a, b any) bool {
	if af, aok := asFloat(a); aok {
		if bf, bok := asFloat(b); bok {
			diff := af - bf
			return diff < 1e-9 && diff > -1e-9
		}
		return false
	}
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		return strings.TrimSpace(as) == strings.TrimSpace(bs)
	}
	return a == b
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	}
	return 0, false
}
