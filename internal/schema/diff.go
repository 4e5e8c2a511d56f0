package schema

import (
	"fmt"
	"sort"
)

// DefaultRenameSimilarity is the sample-overlap threshold above which a
// removed/added field pair is reported as a rename. There is no canonical
// value for this heuristic; it is deliberately exposed as a tunable.
const DefaultRenameSimilarity = 0.6

// DiffKind tags one schema difference.
type DiffKind string

const (
	DiffFieldAdded   DiffKind = "field_added"
	DiffFieldRemoved DiffKind = "field_removed"
	DiffTypeChanged  DiffKind = "type_changed"
	DiffFieldRenamed DiffKind = "field_renamed"
)

// Difference describes one divergence between two schemas.
type Difference struct {
	Kind DiffKind `json:"kind"`
	// Path is the affected field path (the new path for renames).
	Path string `json:"path"`
	// OldPath is set for renames.
	OldPath string `json:"old_path,omitempty"`
	// From/To carry the types involved for type changes.
	From FieldType `json:"from,omitempty"`
	To   FieldType `json:"to,omitempty"`
}

// DiffOptions tunes rename detection.
type DiffOptions struct {
	// RenameSimilarity is the minimum sample-value overlap (0..1) for a
	// removed/added pair to be reported as a rename instead of a
	// remove plus an add. Defaults to DefaultRenameSimilarity.
	RenameSimilarity float64
}

// Diff compares two schemas and returns ordered differences. Fields of a
// missing from b are removed, fields of b missing from a are added, shared
// paths with diverging types are type changes. A removed and an added
// field of the same type whose sample values overlap above the similarity
// threshold collapse into a single rename difference.
func Diff(a, b *Schema, opts DiffOptions) []Difference {
	if opts.RenameSimilarity <= 0 {
		opts.RenameSimilarity = DefaultRenameSimilarity
	}

	var diffs []Difference
	var removed, added []*Field

	for _, f := range a.Fields() {
		if bf, ok := b.Field(f.Path); ok {
			if f.Type != bf.Type {
				diffs = append(diffs, Difference{
					Kind: DiffTypeChanged,
					Path: f.Path,
					From: f.Type,
					To:   bf.Type,
				})
			}
			continue
		}
		removed = append(removed, f)
	}
	for _, f := range b.Fields() {
		if _, ok := a.Field(f.Path); !ok {
			added = append(added, f)
		}
	}

	// Pair removed against added fields by sample similarity. Each added
	// field is consumed at most once; best match wins.
	usedAdded := make(map[string]bool)
	for _, rf := range removed {
		var best *Field
		bestScore := 0.0
		for _, af := range added {
			if usedAdded[af.Path] || af.Type != rf.Type {
				continue
			}
			score := sampleSimilarity(rf.Samples, af.Samples)
			if score > bestScore {
				best, bestScore = af, score
			}
		}
		if best != nil && bestScore >= opts.RenameSimilarity {
			usedAdded[best.Path] = true
			diffs = append(diffs, Difference{
				Kind:    DiffFieldRenamed,
				Path:    best.Path,
				OldPath: rf.Path,
			})
			continue
		}
		diffs = append(diffs, Difference{Kind: DiffFieldRemoved, Path: rf.Path})
	}
	for _, af := range added {
		if !usedAdded[af.Path] {
			diffs = append(diffs, Difference{Kind: DiffFieldAdded, Path: af.Path})
		}
	}

	sort.SliceStable(diffs, func(i, j int) bool { return diffs[i].Path < diffs[j].Path })
	return diffs
}

// sampleSimilarity computes Jaccard overlap between stringified samples.
func sampleSimilarity(a, b []any) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	setA := make(map[string]bool, len(a))
	for _, v := range a {
		setA[fmt.Sprintf("%v", v)] = true
	}
	setB := make(map[string]bool, len(b))
	for _, v := range b {
		setB[fmt.Sprintf("%v", v)] = true
	}
	inter := 0
	for k := range setA {
		if setB[k] {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}
