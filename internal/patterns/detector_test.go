package patterns

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmatnyc/edgar-sub010/internal/schema"
)

func detect(t *testing.T, pairs []ExamplePair) *ParsedExamples {
	t.Helper()
	parsed, err := NewDetector(Options{}).Detect(pairs)
	require.NoError(t, err)
	return parsed
}

func bestFor(t *testing.T, parsed *ParsedExamples, target string) Pattern {
	t.Helper()
	cands := parsed.ForTarget(target)
	require.NotEmpty(t, cands, "expected candidates for %s", target)
	return cands[0]
}

func TestDetect_Empty(t *testing.T) {
	parsed, err := NewDetector(Options{}).Detect(nil)
	require.NoError(t, err)
	assert.Empty(t, parsed.Patterns)
	assert.Zero(t, parsed.Confidence)
	assert.Equal(t, 0, parsed.InputSchema.Len())
}

func TestDetect_DirectCopyFullConfidence(t *testing.T) {
	pairs := []ExamplePair{
		{Input: map[string]any{"ticker": "ACME", "noise": "a"}, Output: map[string]any{"ticker": "ACME"}},
		{Input: map[string]any{"ticker": "GLBX", "noise": "b"}, Output: map[string]any{"ticker": "GLBX"}},
		{Input: map[string]any{"ticker": "INIT", "noise": "c"}, Output: map[string]any{"ticker": "INIT"}},
	}
	parsed := detect(t, pairs)

	best := bestFor(t, parsed, "ticker")
	assert.Equal(t, KindDirectCopy, best.Kind)
	assert.Equal(t, 1.0, best.Confidence, "identical value and path across all examples must score 1.0")
	assert.Equal(t, "ticker", best.SourcePath)
}

func TestDetect_TypeConversionAmount(t *testing.T) {
	// Three pairs where input.amount is a grouped string and
	// output.amount is the parsed numeric value.
	pairs := []ExamplePair{
		{Input: map[string]any{"amount": "1,000,000"}, Output: map[string]any{"amount": float64(1000000)}},
		{Input: map[string]any{"amount": "2,500,000"}, Output: map[string]any{"amount": float64(2500000)}},
		{Input: map[string]any{"amount": "3,750,000"}, Output: map[string]any{"amount": float64(3750000)}},
	}
	parsed := detect(t, pairs)

	best := bestFor(t, parsed, "amount")
	assert.Equal(t, KindTypeConversion, best.Kind)
	assert.Equal(t, 1.0, best.Confidence)

	f, ok := parsed.OutputSchema.Field("amount")
	require.True(t, ok)
	assert.True(t, f.Type.Numeric(), "output amount must infer as numeric, got %s", f.Type)
}

func TestDetect_Rename(t *testing.T) {
	pairs := []ExamplePair{
		{Input: map[string]any{"company_name": "Acme"}, Output: map[string]any{"issuer": "Acme"}},
		{Input: map[string]any{"company_name": "Globex"}, Output: map[string]any{"issuer": "Globex"}},
	}
	parsed := detect(t, pairs)

	best := bestFor(t, parsed, "issuer")
	assert.Equal(t, KindRename, best.Kind)
	assert.Equal(t, "company_name", best.SourcePath)
	assert.InDelta(t, specStructural, best.Confidence, 1e-9)
}

func TestDetect_NestedExtract(t *testing.T) {
	pairs := []ExamplePair{
		{
			Input:  map[string]any{"filer": map[string]any{"address": map[string]any{"city": "Boston"}}},
			Output: map[string]any{"city": "Boston"},
		},
		{
			Input:  map[string]any{"filer": map[string]any{"address": map[string]any{"city": "Austin"}}},
			Output: map[string]any{"city": "Austin"},
		},
	}
	parsed := detect(t, pairs)

	best := bestFor(t, parsed, "city")
	assert.Equal(t, KindNestedExtract, best.Kind)
	assert.Equal(t, "filer.address.city", best.SourcePath)
}

func TestDetect_ArrayFirst(t *testing.T) {
	pairs := []ExamplePair{
		{
			Input:  map[string]any{"filings": []any{map[string]any{"type": "10-K"}, map[string]any{"type": "8-K"}}},
			Output: map[string]any{"latest_type": "10-K"},
		},
		{
			Input:  map[string]any{"filings": []any{map[string]any{"type": "10-Q"}}},
			Output: map[string]any{"latest_type": "10-Q"},
		},
	}
	parsed := detect(t, pairs)

	best := bestFor(t, parsed, "latest_type")
	assert.Equal(t, KindArrayFirst, best.Kind)
	assert.Equal(t, "filings[0].type", best.SourcePath)
}

func TestDetect_Concatenation(t *testing.T) {
	pairs := []ExamplePair{
		{Input: map[string]any{"first": "Jane", "last": "Doe"}, Output: map[string]any{"full": "Jane Doe"}},
		{Input: map[string]any{"first": "John", "last": "Roe"}, Output: map[string]any{"full": "John Roe"}},
	}
	parsed := detect(t, pairs)

	best := bestFor(t, parsed, "full")
	assert.Equal(t, KindConcatenation, best.Kind)
	assert.Equal(t, "first + last", best.SourcePath)
}

func TestDetect_Constant(t *testing.T) {
	pairs := []ExamplePair{
		{Input: map[string]any{"a": "x"}, Output: map[string]any{"source": "edgar"}},
		{Input: map[string]any{"a": "y"}, Output: map[string]any{"source": "edgar"}},
	}
	parsed := detect(t, pairs)

	best := bestFor(t, parsed, "source")
	assert.Equal(t, KindConstant, best.Kind)
	assert.Empty(t, best.SourcePath)
}

func TestDetect_Aggregation(t *testing.T) {
	pairs := []ExamplePair{
		{Input: map[string]any{"values": []any{float64(1), float64(2), float64(3)}}, Output: map[string]any{"total": float64(6)}},
		{Input: map[string]any{"values": []any{float64(10), float64(20)}}, Output: map[string]any{"total": float64(30)}},
	}
	parsed := detect(t, pairs)

	best := bestFor(t, parsed, "total")
	assert.Equal(t, KindAggregation, best.Kind)
	assert.Equal(t, "values", best.SourcePath)
	assert.Contains(t, best.Description, "sum")
}

func TestDetect_ZeroMatchWarning(t *testing.T) {
	pairs := []ExamplePair{
		{Input: map[string]any{"in": "aaa"}, Output: map[string]any{"opaque": "zzz111"}},
		{Input: map[string]any{"in": "bbb"}, Output: map[string]any{"opaque": "qqq222"}},
	}
	parsed := detect(t, pairs)

	assert.Empty(t, parsed.ForTarget("opaque"))
	require.Len(t, parsed.Warnings, 1)
	assert.Contains(t, parsed.Warnings[0], `"opaque"`)
}

func TestDetect_AmbiguityPreserved(t *testing.T) {
	// "code" matches both the same-path copy and a rename from "id";
	// both candidates must be retained, best first.
	pairs := []ExamplePair{
		{Input: map[string]any{"code": "A1", "id": "A1"}, Output: map[string]any{"code": "A1"}},
		{Input: map[string]any{"code": "B2", "id": "B2"}, Output: map[string]any{"code": "B2"}},
	}
	parsed := detect(t, pairs)

	cands := parsed.ForTarget("code")
	require.GreaterOrEqual(t, len(cands), 2)
	assert.Equal(t, KindDirectCopy, cands[0].Kind)
	for i := 1; i < len(cands); i++ {
		assert.LessOrEqual(t, cands[i].Confidence, cands[i-1].Confidence)
	}
}

func TestDetect_ConfidenceBounds(t *testing.T) {
	pairs := []ExamplePair{
		{Input: map[string]any{"a": "x", "n": float64(5)}, Output: map[string]any{"a": "x", "n": float64(5)}},
		{Input: map[string]any{"a": "y", "n": float64(7)}, Output: map[string]any{"a": "y", "n": float64(7)}},
	}
	parsed := detect(t, pairs)

	assert.GreaterOrEqual(t, parsed.Confidence, 0.0)
	assert.LessOrEqual(t, parsed.Confidence, 1.0)
	for _, p := range parsed.Patterns {
		assert.GreaterOrEqual(t, p.Confidence, 0.0)
		assert.LessOrEqual(t, p.Confidence, 1.0)
	}
}

func TestNewPattern_RejectsOutOfRange(t *testing.T) {
	_, err := NewPattern(KindDirectCopy, "a", "b", 1.2, "")
	assert.ErrorIs(t, err, ErrInvalidConfidence)

	_, err = NewPattern(KindDirectCopy, "a", "b", -0.1, "")
	assert.ErrorIs(t, err, ErrInvalidConfidence)
}

func TestDetect_MalformedExample(t *testing.T) {
	pairs := []ExamplePair{
		{Input: map[string]any{"bad": make(chan int)}, Output: map[string]any{"x": "y"}},
	}
	_, err := NewDetector(Options{}).Detect(pairs)
	require.Error(t, err)
	assert.ErrorIs(t, err, schema.ErrMalformedExample)
}
