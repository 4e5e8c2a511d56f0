package refine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCategorizer_ErrorText(t *testing.T) {
	tests := []struct {
		name string
		err  string
		want Category
	}{
		{"json parse", "failed to unmarshal response: unexpected token '}'", CategoryParsing},
		{"malformed", "malformed document body", CategoryParsing},
		{"validation", "content validation failed: required keyword absent", CategoryValidation},
		{"section marker", "section not found: ITEM 7.", CategoryValidation},
		{"missing", "field revenue not found in response", CategoryMissingData},
		{"conversion", "cannot cast \"N/A\" to float64", CategoryTransformation},
		{"unknown", "connection reset by peer", CategoryException},
	}

	c := NewCategorizer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Categorize(FailureRecord{Err: tt.err})
			assert.Equal(t, tt.want, got.Category)
		})
	}
}

func TestCategorizer_ShapeBased(t *testing.T) {
	c := NewCategorizer()

	t.Run("nil actual is missing data", func(t *testing.T) {
		got := c.Categorize(FailureRecord{
			Expected: map[string]any{"amount": 12.5},
		})
		assert.Equal(t, CategoryMissingData, got.Category)
	})

	t.Run("absent field is missing data", func(t *testing.T) {
		got := c.Categorize(FailureRecord{
			Expected: map[string]any{"amount": 12.5, "vendor": "acme"},
			Actual:   map[string]any{"vendor": "acme"},
		})
		assert.Equal(t, CategoryMissingData, got.Category)
	})

	t.Run("wrong value is incorrect transformation", func(t *testing.T) {
		got := c.Categorize(FailureRecord{
			Expected: map[string]any{"amount": 1000000.0},
			Actual:   map[string]any{"amount": 1.0},
		})
		assert.Equal(t, CategoryTransformation, got.Category)
	})

	t.Run("wrong value outranks missing field", func(t *testing.T) {
		got := c.Categorize(FailureRecord{
			Expected: map[string]any{"amount": 5.0, "vendor": "acme"},
			Actual:   map[string]any{"amount": 6.0},
		})
		assert.Equal(t, CategoryTransformation, got.Category)
	})

	t.Run("no divergence at all is an exception", func(t *testing.T) {
		got := c.Categorize(FailureRecord{
			Expected: map[string]any{"amount": 5.0},
			Actual:   map[string]any{"amount": 5},
		})
		assert.Equal(t, CategoryException, got.Category)
	})
}

func TestLooseEqual(t *testing.T) {
	assert.True(t, looseEqual(float64(5), int64(5)))
	assert.True(t, looseEqual(" acme ", "acme"))
	assert.False(t, looseEqual("5", float64(5)))
	assert.False(t, looseEqual(float64(5), float64(5.5)))
}
