package patterns

import (
	"fmt"

	"github.com/bobmatnyc/edgar-sub010/internal/schema"
)

// Overall confidence weights. Schema-match clarity dominates, followed by
// field coverage, cross-example consistency and example-set diversity.
const (
	weightClarity     = 0.4
	weightCoverage    = 0.3
	weightConsistency = 0.2
	weightDiversity   = 0.1
)

// components holds the four overall-confidence inputs, each in [0,1].
type components struct {
	schemaClarity float64
	coverage      float64
	consistency   float64
	diversity     float64
}

// overallConfidence blends the components with the fixed weights and
// clamps the result into [0,1].
func overallConfidence(c components) float64 {
	v := weightClarity*c.schemaClarity +
		weightCoverage*c.coverage +
		weightConsistency*c.consistency +
		weightDiversity*c.diversity
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// schemaClarity is the fraction of fields across both schemas with a
// definite (non-unknown) type.
func schemaClarity(in, out *schema.Schema) float64 {
	total, known := 0, 0
	for _, s := range []*schema.Schema{in, out} {
		for _, f := range s.Fields() {
			total++
			if f.Type != schema.TypeUnknown {
				known++
			}
		}
	}
	return ratio(known, total)
}

// structuralDiversity measures how many structurally distinct inputs the
// example set contains. Identical inputs teach the detector nothing about
// which fields vary.
func structuralDiversity(flats []map[string]any) float64 {
	if len(flats) <= 1 {
		return 0
	}
	seen := make(map[string]bool)
	for _, flat := range flats {
		fingerprint := ""
		for _, p := range leafPaths(flat) {
			fingerprint += p + "=" + fmt.Sprintf("%v", flat[p]) + ";"
		}
		seen[fingerprint] = true
	}
	return float64(len(seen)-1) / float64(len(flats)-1)
}

func ratio(n, d int) float64 {
	if d == 0 {
		return 0
	}
	return float64(n) / float64(d)
}

func meanOrZero(sum float64, n int) float64 {
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
