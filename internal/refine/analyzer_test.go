package refine

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func missRecord(field string) FailureRecord {
	return FailureRecord{
		Expected: map[string]any{field: 1.0, "other": "x"},
		Actual:   map[string]any{"other": "x"},
		Category: CategoryMissingData,
	}
}

func TestAnalyzer_MissingFieldPattern(t *testing.T) {
	a := NewAnalyzer(AnalyzerOptions{})
	recs := []FailureRecord{
		missRecord("total"),
		missRecord("total"),
		missRecord("total"),
		{Expected: map[string]any{"vendor": "acme"}, Actual: map[string]any{"vendor": "acme corp"}, Category: CategoryTransformation},
	}

	analysis := a.Analyze(recs)
	require.NotEmpty(t, analysis.Patterns)
	p := analysis.Patterns[0]
	assert.Equal(t, "missing_field_total", p.Name)
	assert.InDelta(t, 0.75, p.Frequency, 1e-9)
	assert.Equal(t, []string{"total"}, p.Fields)
	assert.LessOrEqual(t, len(p.Examples), 3)
}

func TestAnalyzer_MissRateBelowThreshold(t *testing.T) {
	a := NewAnalyzer(AnalyzerOptions{})
	recs := []FailureRecord{missRecord("total")}
	for i := 0; i < 9; i++ {
		recs = append(recs, FailureRecord{
			Expected: map[string]any{"vendor": "a"},
			Actual:   map[string]any{"vendor": "b"},
			Category: CategoryTransformation,
		})
	}

	analysis := a.Analyze(recs)
	for _, p := range analysis.Patterns {
		assert.NotEqual(t, "missing_field_total", p.Name, "10%% miss rate must not surface")
	}
}

func TestAnalyzer_SingleMissIsNoise(t *testing.T) {
	a := NewAnalyzer(AnalyzerOptions{})
	// 1 of 2 clears the 0.25 rate but not the absolute floor of 2.
	recs := []FailureRecord{
		missRecord("total"),
		{Expected: map[string]any{"vendor": "a"}, Actual: map[string]any{"vendor": "b"}, Category: CategoryTransformation},
	}
	analysis := a.Analyze(recs)
	for _, p := range analysis.Patterns {
		assert.NotContains(t, p.Name, "missing_field_total")
	}
}

func TestAnalyzer_NumericFormatting(t *testing.T) {
	a := NewAnalyzer(AnalyzerOptions{})
	recs := []FailureRecord{
		{Expected: map[string]any{"revenue": 1000000.0}, Actual: map[string]any{"revenue": 1.0}, Category: CategoryTransformation},
		{Expected: map[string]any{"revenue": 2500000.0}, Actual: map[string]any{"revenue": 2.5}, Category: CategoryTransformation},
	}

	analysis := a.Analyze(recs)
	var found *FailurePattern
	for i := range analysis.Patterns {
		if analysis.Patterns[i].Name == "numeric_formatting" {
			found = &analysis.Patterns[i]
		}
	}
	require.NotNil(t, found)
	assert.InDelta(t, 1.0, found.Frequency, 1e-9)
	assert.Equal(t, []string{"revenue"}, found.Fields)
}

func TestAnalyzer_NestedParsing(t *testing.T) {
	a := NewAnalyzer(AnalyzerOptions{})
	recs := []FailureRecord{
		{Expected: map[string]any{"issuer.name": "acme"}, Err: "unexpected token in response", Category: CategoryParsing},
		{Expected: map[string]any{"issuer.name": "bolt"}, Err: "failed to decode body", Category: CategoryParsing},
	}

	analysis := a.Analyze(recs)
	names := make([]string, 0, len(analysis.Patterns))
	for _, p := range analysis.Patterns {
		names = append(names, p.Name)
	}
	assert.Contains(t, names, "nested_structure_parsing")
}

func TestAnalyzer_ConfidenceGrowsWithSample(t *testing.T) {
	a := NewAnalyzer(AnalyzerOptions{})
	small := a.Analyze([]FailureRecord{missRecord("x"), missRecord("x")})
	var big []FailureRecord
	for i := 0; i < 20; i++ {
		big = append(big, missRecord("x"))
	}
	large := a.Analyze(big)
	assert.Greater(t, large.Confidence, small.Confidence)
	assert.LessOrEqual(t, large.Confidence, 1.0)
}

func TestAnalyzer_Empty(t *testing.T) {
	a := NewAnalyzer(AnalyzerOptions{})
	analysis := a.Analyze(nil)
	assert.Empty(t, analysis.Patterns)
	assert.Zero(t, analysis.Confidence)
}

// A field missed in at least a quarter of failures, with two or more
// occurrences, must yield a refinement at medium priority or above.
func TestMissRateYieldsActionablePriority(t *testing.T) {
	a := NewAnalyzer(AnalyzerOptions{})
	s := NewSuggester()

	for _, misses := range []int{2, 3, 5} {
		t.Run(fmt.Sprintf("%d_of_8", misses), func(t *testing.T) {
			var recs []FailureRecord
			for i := 0; i < misses; i++ {
				recs = append(recs, missRecord("total"))
			}
			for len(recs) < 8 {
				recs = append(recs, FailureRecord{
					Expected: map[string]any{"vendor": "a"},
					Actual:   map[string]any{"vendor": "b"},
					Category: CategoryTransformation,
				})
			}
			if float64(misses)/8.0 < DefaultMissRateThreshold {
				t.Skip("below rate threshold")
			}
			refs := s.Suggest(a.Analyze(recs))
			var match *Refinement
			for i := range refs {
				for _, addr := range refs[i].Addresses {
					if addr == "missing_field_total" {
						match = &refs[i]
					}
				}
			}
			require.NotNil(t, match)
			assert.GreaterOrEqual(t, match.Priority.rank(), PriorityMedium.rank())
		})
	}
}

func TestNewFailurePattern_Bounds(t *testing.T) {
	_, err := NewFailurePattern("p", 1.2, "fix")
	assert.ErrorIs(t, err, ErrInvalidFrequency)
	_, err = NewFailurePattern("p", -0.1, "fix")
	assert.ErrorIs(t, err, ErrInvalidFrequency)
	p, err := NewFailurePattern("p", 0.5, "fix")
	require.NoError(t, err)
	assert.Equal(t, 0.5, p.Frequency)
}
