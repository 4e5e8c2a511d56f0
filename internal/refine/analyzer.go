package refine

import (
	"fmt"
	"sort"
	"strings"
)

// Analyzer defaults.
const (
	// DefaultMissRateThreshold is the per-field miss fraction above
	// which a missing-field pattern is reported.
	DefaultMissRateThreshold = 0.25
	// DefaultMinMissCount is the absolute miss floor. A single stray
	// miss in a tiny sample is noise, not a pattern.
	DefaultMinMissCount = 2
	// defaultMaxExamples bounds the contributing records attached to
	// each derived pattern.
	defaultMaxExamples = 3
	// largeNumberFloor marks values likely to carry thousands
	// separators in source documents.
	largeNumberFloor = 1000
)

// Confidence weights: sample adequacy dominates, dominant-pattern
// frequency refines.
const (
	weightAdequacy  = 0.6
	weightDominance = 0.4
	adequacyHalfway = 5.0
)

// AnalyzerOptions tunes pattern derivation thresholds.
type AnalyzerOptions struct {
	MissRateThreshold float64
	MinMissCount      int
	MaxExamples       int
}

// Analysis is the output of one failure-analysis pass.
type Analysis struct {
	Patterns []FailurePattern `json:"patterns"`
	// Confidence reflects how trustworthy the derived patterns are
	// given the sample size and concentration.
	Confidence float64 `json:"confidence"`
	// ByCategory counts records per failure category.
	ByCategory map[Category]int `json:"by_category"`
}

// Analyzer derives recurring failure patterns from categorized
// records. Pure over its inputs; safe for concurrent use.
type Analyzer struct {
	opts AnalyzerOptions
}

// NewAnalyzer builds an analyzer, filling zero options with defaults.
func NewAnalyzer(opts AnalyzerOptions) *Analyzer {
	if opts.MissRateThreshold <= 0 {
		opts.MissRateThreshold = DefaultMissRateThreshold
	}
	if opts.MinMissCount <= 0 {
		opts.MinMissCount = DefaultMinMissCount
	}
	if opts.MaxExamples <= 0 {
		opts.MaxExamples = defaultMaxExamples
	}
	return &Analyzer{opts: opts}
}

// Analyze derives patterns from a categorized failure sample. An empty
// sample yields an empty analysis with zero confidence.
func (a *Analyzer) Analyze(recs []FailureRecord) Analysis {
	if len(recs) == 0 {
		return Analysis{ByCategory: map[Category]int{}}
	}
	byCat := make(map[Category]int, 5)
	for _, rec := range recs {
		byCat[rec.Category]++
	}

	var patterns []FailurePattern
	patterns = append(patterns, a.missingFieldPatterns(recs)...)
	patterns = append(patterns, a.numericFormattingPattern(recs)...)
	patterns = append(patterns, a.nestedParsingPattern(recs, byCat)...)
	patterns = append(patterns, a.typeMismatchPattern(recs)...)

	sort.SliceStable(patterns, func(i, j int) bool {
		if patterns[i].Frequency != patterns[j].Frequency {
			return patterns[i].Frequency > patterns[j].Frequency
		}
		return patterns[i].Name < patterns[j].Name
	})

	return Analysis{
		Patterns:   patterns,
		Confidence: a.confidence(len(recs), patterns),
		ByCategory: byCat,
	}
}

// confidence blends sample adequacy, n/(n+k), with the dominant
// pattern frequency. More records and a concentrated failure mode both
// raise trust in the derived patterns.
func (a *Analyzer) confidence(n int, patterns []FailurePattern) float64 {
	adequacy := float64(n) / (float64(n) + adequacyHalfway)
	dominance := 0.0
	for _, p := range patterns {
		if p.Frequency > dominance {
			dominance = p.Frequency
		}
	}
	return weightAdequacy*adequacy + weightDominance*dominance
}

// missingFieldPatterns reports each output field whose miss rate
// clears both the fractional threshold and the absolute count floor.
func (a *Analyzer) missingFieldPatterns(recs []FailureRecord) []FailurePattern {
	misses := map[string][]FailureRecord{}
	for _, rec := range recs {
		var missing []string
		if rec.Actual == nil {
			for name := range rec.Expected {
				missing = append(missing, name)
			}
		} else {
			missing, _ = diffFields(rec.Expected, rec.Actual)
		}
		for _, name := range missing {
			misses[name] = append(misses[name], rec)
		}
	}

	fields := make([]string, 0, len(misses))
	for name := range misses {
		fields = append(fields, name)
	}
	sort.Strings(fields)

	var out []FailurePattern
	total := float64(len(recs))
	for _, name := range fields {
		hits := misses[name]
		rate := float64(len(hits)) / total
		if rate < a.opts.MissRateThreshold || len(hits) < a.opts.MinMissCount {
			continue
		}
		out = append(out, FailurePattern{
			Name:       "missing_field_" + name,
			Frequency:  rate,
			Fields:     []string{name},
			Categories: categoriesOf(hits),
			Fix:        fmt.Sprintf("extraction misses %q in %d of %d failures; broaden the extraction rule or add a worked example covering it", name, len(hits), len(recs)),
			Examples:   capExamples(hits, a.opts.MaxExamples),
		})
	}
	return out
}

// numericFormattingPattern fires when wrong numeric values coincide
// with large expected magnitudes, the signature of dropped thousands
// separators or truncated scale.
func (a *Analyzer) numericFormattingPattern(recs []FailureRecord) []FailurePattern {
	var hits []FailureRecord
	affected := map[string]bool{}
	for _, rec := range recs {
		if rec.Actual == nil {
			continue
		}
		_, wrong := diffFields(rec.Expected, rec.Actual)
		matched := false
		for _, name := range wrong {
			want, ok := asFloat(rec.Expected[name])
			if !ok {
				continue
			}
			if want >= largeNumberFloor || want <= -largeNumberFloor {
				affected[name] = true
				matched = true
			}
		}
		if matched {
			hits = append(hits, rec)
		}
	}
	if len(hits) < a.opts.MinMissCount {
		return nil
	}
	fields := make([]string, 0, len(affected))
	for name := range affected {
		fields = append(fields, name)
	}
	sort.Strings(fields)
	return []FailurePattern{{
		Name:       "numeric_formatting",
		Frequency:  float64(len(hits)) / float64(len(recs)),
		Fields:     fields,
		Categories: categoriesOf(hits),
		Fix:        "large numeric values diverge; add a parsing rule that strips grouping separators and currency symbols before conversion",
		Examples:   capExamples(hits, a.opts.MaxExamples),
	}}
}

// nestedParsingPattern fires when parsing failures dominate and the
// expected outputs use dotted paths, suggesting the artifact flattens
// or traverses structure incorrectly.
func (a *Analyzer) nestedParsingPattern(recs []FailureRecord, byCat map[Category]int) []FailurePattern {
	if byCat[CategoryParsing] < a.opts.MinMissCount {
		return nil
	}
	var hits []FailureRecord
	nested := false
	for _, rec := range recs {
		if rec.Category != CategoryParsing {
			continue
		}
		hits = append(hits, rec)
		for name := range rec.Expected {
			if strings.Contains(name, ".") {
				nested = true
			}
		}
	}
	if !nested {
		return nil
	}
	return []FailurePattern{{
		Name:       "nested_structure_parsing",
		Frequency:  float64(len(hits)) / float64(len(recs)),
		Categories: []Category{CategoryParsing},
		Fix:        "parsing fails on nested output paths; adjust the response parsing rule to traverse intermediate objects",
		Examples:   capExamples(hits, a.opts.MaxExamples),
	}}
}

// typeMismatchPattern fires when the same field repeatedly carries a
// value of the wrong dynamic type.
func (a *Analyzer) typeMismatchPattern(recs []FailureRecord) []FailurePattern {
	perField := map[string]int{}
	var hits []FailureRecord
	for _, rec := range recs {
		if rec.Actual == nil {
			continue
		}
		matched := false
		for name, want := range rec.Expected {
			got, ok := rec.Actual[name]
			if !ok || got == nil {
				continue
			}
			_, wantNum := asFloat(want)
			_, gotNum := asFloat(got)
			if wantNum != gotNum {
				perField[name]++
				matched = true
			}
		}
		if matched {
			hits = append(hits, rec)
		}
	}
	var fields []string
	for name, n := range perField {
		if n >= a.opts.MinMissCount {
			fields = append(fields, name)
		}
	}
	if len(fields) == 0 {
		return nil
	}
	sort.Strings(fields)
	return []FailurePattern{{
		Name:       "type_mismatch_" + strings.Join(fields, "_"),
		Frequency:  float64(len(hits)) / float64(len(recs)),
		Fields:     fields,
		Categories: categoriesOf(hits),
		Fix:        fmt.Sprintf("fields %s carry the wrong type across failures; add a conversion step or tighten the prompt's output contract", strings.Join(fields, ", ")),
		Examples:   capExamples(hits, a.opts.MaxExamples),
	}}
}

func categoriesOf(recs []FailureRecord) []Category {
	seen := map[Category]bool{}
	var out []Category
	for _, rec := range recs {
		if rec.Category == "" || seen[rec.Category] {
			continue
		}
		seen[rec.Category] = true
		out = append(out, rec.Category)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func capExamples(recs []FailureRecord, max int) []FailureRecord {
	if len(recs) <= max {
		return append([]FailureRecord(nil), recs...)
	}
	return append([]FailureRecord(nil), recs[:max]...)
}
