package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustInfer(t *testing.T, examples ...any) *Schema {
	t.Helper()
	s, err := Infer(examples)
	require.NoError(t, err)
	return s
}

func TestDiff_AddedRemoved(t *testing.T) {
	a := mustInfer(t, map[string]any{"keep": "x", "old": true})
	b := mustInfer(t, map[string]any{"keep": "x", "brand_new": float64(7)})

	diffs := Diff(a, b, DiffOptions{})
	require.Len(t, diffs, 2)
	assert.Equal(t, Difference{Kind: DiffFieldAdded, Path: "brand_new"}, diffs[0])
	assert.Equal(t, Difference{Kind: DiffFieldRemoved, Path: "old"}, diffs[1])
}

func TestDiff_TypeChanged(t *testing.T) {
	a := mustInfer(t, map[string]any{"v": "text"})
	b := mustInfer(t, map[string]any{"v": float64(1.5)})

	diffs := Diff(a, b, DiffOptions{})
	require.Len(t, diffs, 1)
	assert.Equal(t, DiffTypeChanged, diffs[0].Kind)
	assert.Equal(t, TypeString, diffs[0].From)
	assert.Equal(t, TypeFloat, diffs[0].To)
}

func TestDiff_RenameBySampleSimilarity(t *testing.T) {
	a := mustInfer(t,
		map[string]any{"company_name": "Acme"},
		map[string]any{"company_name": "Globex"},
	)
	b := mustInfer(t,
		map[string]any{"issuer": "Acme"},
		map[string]any{"issuer": "Globex"},
	)

	diffs := Diff(a, b, DiffOptions{})
	require.Len(t, diffs, 1)
	assert.Equal(t, DiffFieldRenamed, diffs[0].Kind)
	assert.Equal(t, "issuer", diffs[0].Path)
	assert.Equal(t, "company_name", diffs[0].OldPath)
}

func TestDiff_RenameBelowThreshold(t *testing.T) {
	a := mustInfer(t, map[string]any{"x": "one"})
	b := mustInfer(t, map[string]any{"y": "completely different"})

	diffs := Diff(a, b, DiffOptions{RenameSimilarity: 0.9})
	require.Len(t, diffs, 2)
	kinds := []DiffKind{diffs[0].Kind, diffs[1].Kind}
	assert.Contains(t, kinds, DiffFieldRemoved)
	assert.Contains(t, kinds, DiffFieldAdded)
}

func TestDiff_Identical(t *testing.T) {
	a := mustInfer(t, map[string]any{"a": "x", "n": float64(1)})
	b := mustInfer(t, map[string]any{"a": "y", "n": float64(2)})
	assert.Empty(t, Diff(a, b, DiffOptions{}))
}
