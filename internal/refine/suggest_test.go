package refine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuggester_KindMapping(t *testing.T) {
	tests := []struct {
		name    string
		pattern FailurePattern
		want    RefinementKind
	}{
		{
			"low frequency missing field becomes extraction rule",
			FailurePattern{Name: "missing_field_total", Frequency: 0.3, Fields: []string{"total"}},
			RefineExtractionRule,
		},
		{
			"persistent missing field becomes worked example",
			FailurePattern{Name: "missing_field_total", Frequency: 0.8, Fields: []string{"total"}},
			RefineWorkedExample,
		},
		{
			"numeric formatting becomes parsing rule",
			FailurePattern{Name: "numeric_formatting", Frequency: 0.6, Fields: []string{"revenue"}},
			RefineParsingRule,
		},
		{
			"nested parsing becomes parsing rule",
			FailurePattern{Name: "nested_structure_parsing", Frequency: 0.5},
			RefineParsingRule,
		},
		{
			"type mismatch becomes prompt change",
			FailurePattern{Name: "type_mismatch_total", Frequency: 0.4, Fields: []string{"total"}},
			RefinePrompt,
		},
		{
			"pure validation failures become validation rule",
			FailurePattern{Name: "missing_field_total", Frequency: 0.4, Fields: []string{"total"}, Categories: []Category{CategoryValidation}},
			RefineValidationRule,
		},
		{
			"unrecognized pattern becomes template change",
			FailurePattern{Name: "something_else", Frequency: 0.3, Fix: "adjust the template"},
			RefineTemplate,
		},
	}

	s := NewSuggester()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			refs := s.Suggest(Analysis{Patterns: []FailurePattern{tt.pattern}})
			require.Len(t, refs, 1)
			assert.Equal(t, tt.want, refs[0].Kind)
			assert.Equal(t, PriorityFor(tt.pattern.Frequency), refs[0].Priority)
			assert.Equal(t, []string{tt.pattern.Name}, refs[0].Addresses)
		})
	}
}

func TestSuggester_PriorityOrdering(t *testing.T) {
	s := NewSuggester()
	refs := s.Suggest(Analysis{Patterns: []FailurePattern{
		{Name: "missing_field_b", Frequency: 0.3, Fields: []string{"b"}},
		{Name: "missing_field_a", Frequency: 0.9, Fields: []string{"a"}},
		{Name: "numeric_formatting", Frequency: 0.6, Fields: []string{"c"}},
	}})
	require.Len(t, refs, 3)
	assert.Equal(t, PriorityCritical, refs[0].Priority)
	assert.Equal(t, PriorityHigh, refs[1].Priority)
	assert.Equal(t, PriorityMedium, refs[2].Priority)
}

func TestPriorityFor(t *testing.T) {
	assert.Equal(t, PriorityCritical, PriorityFor(0.8))
	assert.Equal(t, PriorityHigh, PriorityFor(0.5))
	assert.Equal(t, PriorityMedium, PriorityFor(0.2))
	assert.Equal(t, PriorityLow, PriorityFor(0.19))
}
