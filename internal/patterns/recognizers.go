package patterns

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bobmatnyc/edgar-sub010/internal/schema"
)

// Specificity bonuses. An exact structural match (same path, deterministic
// rule) scores above positional matches, which score above heuristic
// string matches.
const (
	specExact      = 1.0
	specStructural = 0.95
	specPositional = 0.9
	specHeuristic  = 0.85
	specWeak       = 0.8
	complexFloor   = 0.3
)

// Recognizer proposes zero or more scored pattern candidates for one
// output field. Implementations are pure functions of the example set.
type Recognizer interface {
	Name() string
	Detect(ex *exampleSet, target *schema.Field) []Pattern
}

// defaultRecognizers returns the fixed-priority recognizer chain. The
// complex fallback is intentionally last; the detector only consults it
// when every other recognizer came up empty for a field.
func defaultRecognizers() []Recognizer {
	return []Recognizer{
		directCopyRecognizer{},
		renameRecognizer{},
		nestedExtractRecognizer{},
		arrayFirstRecognizer{},
		arrayElementRecognizer{},
		typeConversionRecognizer{},
		concatenationRecognizer{},
		stringFormatRecognizer{},
		constantRecognizer{},
		calculationRecognizer{},
		aggregationRecognizer{},
		conditionalRecognizer{},
		defaultValueRecognizer{},
		complexRecognizer{},
	}
}

// exampleSet is the shared, read-only detection context.
type exampleSet struct {
	pairs     []ExamplePair
	inFlat    []map[string]any
	inLeaves  []string // union of input leaf paths across all pairs
	inSchema  *schema.Schema
	outSchema *schema.Schema
}

// observation is one pair's output value at the target path.
type observation struct {
	pair int
	out  any
}

// observe collects the pairs where the target path is present.
func (ex *exampleSet) observe(path string) []observation {
	var obs []observation
	for i, p := range ex.pairs {
		if v, ok := valueAt(p.Output, path); ok {
			obs = append(obs, observation{pair: i, out: v})
		}
	}
	return obs
}

// score turns a per-pair predicate into a supported-fraction score plus
// illustrative examples. srcFor renders the matched input side for the
// example strings; it may be nil.
func (ex *exampleSet) score(obs []observation, match func(o observation) (any, bool)) (float64, []string) {
	if len(obs) == 0 {
		return 0, nil
	}
	matched := 0
	var illus []string
	for _, o := range obs {
		in, ok := match(o)
		if !ok {
			continue
		}
		matched++
		if len(illus) < MaxPatternExamples {
			illus = append(illus, fmt.Sprintf("%s -> %s", stringify(in), stringify(o.out)))
		}
	}
	return float64(matched) / float64(len(obs)), illus
}

// emit builds a pattern from a fraction and a specificity bonus,
// dropping unsupported or invalid candidates.
func emit(out *[]Pattern, kind Kind, src, tgt string, fraction, spec float64, desc string, illus []string, minSupport float64) {
	conf := fraction * spec
	if fraction < minSupport || conf <= 0 {
		return
	}
	p, err := NewPattern(kind, src, tgt, conf, desc)
	if err != nil {
		return
	}
	p.Examples = illus
	*out = append(*out, p)
}

// pathDepth counts structural separators in an input path.
func pathDepth(p string) int {
	return strings.Count(p, ".") + strings.Count(p, "[")
}

// --- direct copy ---

type directCopyRecognizer struct{}

func (directCopyRecognizer) Name() string { return "direct_copy" }

func (r directCopyRecognizer) Detect(ex *exampleSet, target *schema.Field) []Pattern {
	obs := ex.observe(target.Path)
	fraction, illus := ex.score(obs, func(o observation) (any, bool) {
		v, ok := ex.inFlat[o.pair][target.Path]
		if !ok || !valueEqual(v, o.out) {
			return nil, false
		}
		return v, true
	})

	var out []Pattern
	emit(&out, KindDirectCopy, target.Path, target.Path, fraction, specExact,
		fmt.Sprintf("copy %s unchanged", target.Path), illus, minSupportDefault)
	return out
}

// --- rename (same value, different top-level path) ---

type renameRecognizer struct{}

func (renameRecognizer) Name() string { return "rename" }

func (r renameRecognizer) Detect(ex *exampleSet, target *schema.Field) []Pattern {
	obs := ex.observe(target.Path)
	var out []Pattern
	for _, src := range ex.inLeaves {
		if src == target.Path || pathDepth(src) > 0 {
			continue
		}
		fraction, illus := ex.score(obs, func(o observation) (any, bool) {
			v, ok := ex.inFlat[o.pair][src]
			if !ok || !valueEqual(v, o.out) {
				return nil, false
			}
			return v, true
		})
		emit(&out, KindRename, src, target.Path, fraction, specStructural,
			fmt.Sprintf("rename %s to %s", src, target.Path), illus, minSupportDefault)
	}
	return out
}

// --- nested extraction (same value, deeper source path) ---

type nestedExtractRecognizer struct{}

func (nestedExtractRecognizer) Name() string { return "nested_extract" }

func (r nestedExtractRecognizer) Detect(ex *exampleSet, target *schema.Field) []Pattern {
	obs := ex.observe(target.Path)
	var out []Pattern
	for _, src := range ex.inLeaves {
		if !strings.Contains(src, ".") || strings.Contains(src, "[") || src == target.Path {
			continue
		}
		fraction, illus := ex.score(obs, func(o observation) (any, bool) {
			v, ok := ex.inFlat[o.pair][src]
			if !ok || !valueEqual(v, o.out) {
				return nil, false
			}
			return v, true
		})
		emit(&out, KindNestedExtract, src, target.Path, fraction, specStructural,
			fmt.Sprintf("extract nested value %s into %s", src, target.Path), illus, minSupportDefault)
	}
	return out
}

// --- array first / array element ---

type arrayFirstRecognizer struct{}

func (arrayFirstRecognizer) Name() string { return "array_first" }

func (r arrayFirstRecognizer) Detect(ex *exampleSet, target *schema.Field) []Pattern {
	return detectArrayElement(ex, target, true)
}

type arrayElementRecognizer struct{}

func (arrayElementRecognizer) Name() string { return "array_element" }

func (r arrayElementRecognizer) Detect(ex *exampleSet, target *schema.Field) []Pattern {
	return detectArrayElement(ex, target, false)
}

func detectArrayElement(ex *exampleSet, target *schema.Field, first bool) []Pattern {
	obs := ex.observe(target.Path)
	var out []Pattern
	for _, src := range ex.inLeaves {
		isFirst := strings.Contains(src, "[0]")
		if !strings.Contains(src, "[") || isFirst != first {
			continue
		}
		fraction, illus := ex.score(obs, func(o observation) (any, bool) {
			v, ok := ex.inFlat[o.pair][src]
			if !ok || !valueEqual(v, o.out) {
				return nil, false
			}
			return v, true
		})
		kind, spec := KindArrayFirst, specPositional
		desc := fmt.Sprintf("take first array element %s for %s", src, target.Path)
		if !first {
			kind, spec = KindArrayElement, specHeuristic
			desc = fmt.Sprintf("take array element %s for %s", src, target.Path)
		}
		emit(&out, kind, src, target.Path, fraction, spec, desc, illus, minSupportDefault)
	}
	return out
}

// --- type conversion ---

type typeConversionRecognizer struct{}

func (typeConversionRecognizer) Name() string { return "type_conversion" }

func (r typeConversionRecognizer) Detect(ex *exampleSet, target *schema.Field) []Pattern {
	obs := ex.observe(target.Path)
	var out []Pattern
	for _, src := range ex.inLeaves {
		samePath := src == target.Path
		sameName := leafName(src) == target.Name
		if !samePath && !sameName {
			continue
		}
		fraction, illus := ex.score(obs, func(o observation) (any, bool) {
			v, ok := ex.inFlat[o.pair][src]
			if !ok || valueEqual(v, o.out) {
				return nil, false
			}
			if !convertible(v, o.out) {
				return nil, false
			}
			return v, true
		})
		// A same-path parse is an exact structural match: the rule is
		// deterministic and positionally anchored.
		spec := specExact
		if !samePath {
			spec = specPositional
		}
		emit(&out, KindTypeConversion, src, target.Path, fraction, spec,
			fmt.Sprintf("convert %s to %s as %s", src, target.Path, target.Type), illus, minSupportDefault)
	}
	return out
}

// convertible reports whether in parses or formats into out.
func convertible(in, out any) bool {
	// Formatted numeric string -> number.
	if s, ok := in.(string); ok {
		if outF, ok := toFloat(out); ok {
			if f, ok := parseNumericString(s); ok {
				return valueEqual(f, outF)
			}
			return false
		}
		if b, ok := out.(bool); ok {
			switch strings.ToLower(strings.TrimSpace(s)) {
			case "true", "yes", "1":
				return b
			case "false", "no", "0":
				return !b
			}
			return false
		}
	}
	// Number -> string rendering.
	if inF, ok := toFloat(in); ok {
		if s, ok := out.(string); ok {
			if f, ok := parseNumericString(s); ok {
				return valueEqual(inF, f)
			}
		}
	}
	return false
}

func leafName(path string) string {
	p := path
	if i := strings.LastIndex(p, "."); i >= 0 {
		p = p[i+1:]
	}
	if i := strings.Index(p, "["); i >= 0 {
		p = p[:i]
	}
	return p
}

// --- concatenation ---

var concatSeparators = []string{" ", ", ", "-", "/", ""}

type concatenationRecognizer struct{}

func (concatenationRecognizer) Name() string { return "concatenation" }

func (r concatenationRecognizer) Detect(ex *exampleSet, target *schema.Field) []Pattern {
	obs := ex.observe(target.Path)
	if len(obs) == 0 {
		return nil
	}
	var out []Pattern
	for _, a := range ex.inLeaves {
		for _, b := range ex.inLeaves {
			if a == b {
				continue
			}
			for _, sep := range concatSeparators {
				fraction, illus := ex.score(obs, func(o observation) (any, bool) {
					tgt, ok := o.out.(string)
					if !ok {
						return nil, false
					}
					av, aok := ex.inFlat[o.pair][a].(string)
					bv, bok := ex.inFlat[o.pair][b].(string)
					if !aok || !bok || av == "" || bv == "" {
						return nil, false
					}
					if av+sep+bv != tgt {
						return nil, false
					}
					return av + sep + bv, true
				})
				emit(&out, KindConcatenation, a+" + "+b, target.Path, fraction, specHeuristic,
					fmt.Sprintf("concatenate %s and %s with %q into %s", a, b, sep, target.Path),
					illus, minSupportDefault)
			}
		}
	}
	return out
}

// --- string format (case/trim manipulation) ---

type stringFormatRecognizer struct{}

func (stringFormatRecognizer) Name() string { return "string_format" }

var stringTransforms = []struct {
	name string
	fn   func(string) string
}{
	{"upper", strings.ToUpper},
	{"lower", strings.ToLower},
	{"trim", strings.TrimSpace},
	{"title", titleCase},
}

func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func (r stringFormatRecognizer) Detect(ex *exampleSet, target *schema.Field) []Pattern {
	obs := ex.observe(target.Path)
	var out []Pattern
	for _, src := range ex.inLeaves {
		for _, tr := range stringTransforms {
			fraction, illus := ex.score(obs, func(o observation) (any, bool) {
				tgt, ok := o.out.(string)
				if !ok {
					return nil, false
				}
				sv, ok := ex.inFlat[o.pair][src].(string)
				if !ok || sv == tgt || tr.fn(sv) != tgt {
					return nil, false
				}
				return sv, true
			})
			emit(&out, KindStringFormat, src, target.Path, fraction, specWeak,
				fmt.Sprintf("apply %s to %s for %s", tr.name, src, target.Path), illus, minSupportDefault)
		}
	}
	return out
}

// --- constant ---

type constantRecognizer struct{}

func (constantRecognizer) Name() string { return "constant" }

func (r constantRecognizer) Detect(ex *exampleSet, target *schema.Field) []Pattern {
	obs := ex.observe(target.Path)
	// A single example makes every field look constant; require two.
	if len(obs) < 2 {
		return nil
	}
	for _, o := range obs[1:] {
		if !valueEqual(o.out, obs[0].out) {
			return nil
		}
	}
	var out []Pattern
	emit(&out, KindConstant, "", target.Path, 1.0, specPositional,
		fmt.Sprintf("emit constant %s for %s", stringify(obs[0].out), target.Path),
		[]string{fmt.Sprintf("* -> %s", stringify(obs[0].out))}, minSupportDefault)
	return out
}

// --- arithmetic calculation ---

type calculationRecognizer struct{}

func (calculationRecognizer) Name() string { return "calculation" }

var arithmeticOps = []struct {
	name string
	fn   func(a, b float64) float64
}{
	{"+", func(a, b float64) float64 { return a + b }},
	{"-", func(a, b float64) float64 { return a - b }},
	{"*", func(a, b float64) float64 { return a * b }},
}

func (r calculationRecognizer) Detect(ex *exampleSet, target *schema.Field) []Pattern {
	if !target.Type.Numeric() {
		return nil
	}
	obs := ex.observe(target.Path)
	var out []Pattern
	for _, a := range ex.inLeaves {
		for _, b := range ex.inLeaves {
			if a >= b {
				// Addition and multiplication are commutative; keeping
				// a < b halves the candidate space. Subtraction is
				// covered by checking both a-b and b-a below.
				continue
			}
			for _, op := range arithmeticOps {
				for _, swap := range []bool{false, true} {
					if swap && op.name != "-" {
						continue
					}
					fraction, illus := ex.score(obs, func(o observation) (any, bool) {
						tgt, ok := toFloat(o.out)
						if !ok {
							return nil, false
						}
						av, aok := toFloat(ex.inFlat[o.pair][a])
						bv, bok := toFloat(ex.inFlat[o.pair][b])
						if !aok || !bok {
							return nil, false
						}
						x, y := av, bv
						if swap {
							x, y = bv, av
						}
						if !valueEqual(op.fn(x, y), tgt) {
							return nil, false
						}
						return fmt.Sprintf("%v %s %v", x, op.name, y), true
					})
					src := fmt.Sprintf("%s %s %s", a, op.name, b)
					if swap {
						src = fmt.Sprintf("%s %s %s", b, op.name, a)
					}
					emit(&out, KindCalculation, src, target.Path, fraction, specHeuristic,
						fmt.Sprintf("compute %s for %s", src, target.Path), illus, minSupportDefault)
				}
			}
		}
	}
	return out
}

// --- aggregation over arrays ---

type aggregationRecognizer struct{}

func (aggregationRecognizer) Name() string { return "aggregation" }

func (r aggregationRecognizer) Detect(ex *exampleSet, target *schema.Field) []Pattern {
	if !target.Type.Numeric() {
		return nil
	}
	obs := ex.observe(target.Path)
	var out []Pattern

	// Collect array container paths across pairs.
	arrayPaths := map[string]bool{}
	for _, flat := range ex.inFlat {
		for p, v := range flat {
			if _, ok := v.([]any); ok {
				arrayPaths[p] = true
			}
		}
	}

	for _, src := range sortedPathSet(arrayPaths) {
		for _, agg := range []string{"count", "sum", "min", "max"} {
			fraction, illus := ex.score(obs, func(o observation) (any, bool) {
				arr, ok := ex.inFlat[o.pair][src].([]any)
				if !ok {
					return nil, false
				}
				tgt, ok := toFloat(o.out)
				if !ok {
					return nil, false
				}
				got, ok := aggregate(agg, arr)
				if !ok || !valueEqual(got, tgt) {
					return nil, false
				}
				return fmt.Sprintf("%s(%s)=%v", agg, src, got), true
			})
			emit(&out, KindAggregation, src, target.Path, fraction, specPositional,
				fmt.Sprintf("%s over %s for %s", agg, src, target.Path), illus, minSupportDefault)
		}
	}
	return out
}

// aggregate applies count/sum/min/max over numeric array elements.
// Non-numeric arrays only support count.
func aggregate(op string, arr []any) (float64, bool) {
	if op == "count" {
		return float64(len(arr)), true
	}
	if len(arr) == 0 {
		return 0, false
	}
	var nums []float64
	for _, v := range arr {
		f, ok := toFloat(v)
		if !ok {
			return 0, false
		}
		nums = append(nums, f)
	}
	acc := nums[0]
	for _, f := range nums[1:] {
		switch op {
		case "sum":
			acc += f
		case "min":
			if f < acc {
				acc = f
			}
		case "max":
			if f > acc {
				acc = f
			}
		}
	}
	return acc, true
}

func sortedPathSet(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// --- conditional on a boolean input ---

type conditionalRecognizer struct{}

func (conditionalRecognizer) Name() string { return "conditional" }

func (r conditionalRecognizer) Detect(ex *exampleSet, target *schema.Field) []Pattern {
	obs := ex.observe(target.Path)
	if len(obs) < 2 {
		return nil
	}
	var out []Pattern
	for _, src := range ex.inLeaves {
		// Partition target values by the boolean source; the rule holds
		// when each branch maps to a single value.
		branch := map[bool]any{}
		consistent := true
		seen := 0
		for _, o := range obs {
			cond, ok := ex.inFlat[o.pair][src].(bool)
			if !ok {
				consistent = false
				break
			}
			seen++
			if prev, ok := branch[cond]; ok {
				if !valueEqual(prev, o.out) {
					consistent = false
					break
				}
			} else {
				branch[cond] = o.out
			}
		}
		if !consistent || seen < 2 || len(branch) < 2 {
			continue
		}
		fraction := float64(seen) / float64(len(obs))
		emit(&out, KindConditional, src, target.Path, fraction, specWeak,
			fmt.Sprintf("choose %s by condition %s", target.Path, src),
			[]string{
				fmt.Sprintf("%s=true -> %s", src, stringify(branch[true])),
				fmt.Sprintf("%s=false -> %s", src, stringify(branch[false])),
			}, minSupportDefault)
	}
	return out
}

// --- default value (copy when present, fixed fallback when null/missing) ---

type defaultValueRecognizer struct{}

func (defaultValueRecognizer) Name() string { return "default_value" }

func (r defaultValueRecognizer) Detect(ex *exampleSet, target *schema.Field) []Pattern {
	obs := ex.observe(target.Path)
	if len(obs) < 2 {
		return nil
	}
	var out []Pattern
	for _, src := range ex.inLeaves {
		var fallback any
		fallbackSeen := false
		matched := 0
		consistent := true
		for _, o := range obs {
			v, present := ex.inFlat[o.pair][src]
			if present && v != nil {
				if !valueEqual(v, o.out) {
					consistent = false
					break
				}
				matched++
				continue
			}
			// Absent or null source: output must be one fixed default.
			if fallbackSeen && !valueEqual(fallback, o.out) {
				consistent = false
				break
			}
			fallback, fallbackSeen = o.out, true
			matched++
		}
		if !consistent || !fallbackSeen || matched < len(obs) {
			continue
		}
		emit(&out, KindDefaultValue, src, target.Path, 1.0, specWeak,
			fmt.Sprintf("copy %s into %s, defaulting to %s", src, target.Path, stringify(fallback)),
			nil, minSupportDefault)
	}
	return out
}

// --- complex fallback ---

type complexRecognizer struct{}

func (complexRecognizer) Name() string { return "complex" }

func (r complexRecognizer) Detect(ex *exampleSet, target *schema.Field) []Pattern {
	obs := ex.observe(target.Path)
	if len(obs) == 0 {
		return nil
	}
	// Emit the low-confidence fallback only when a weak lexical link to
	// some input exists; otherwise the field surfaces as a warning.
	linked := false
	for _, src := range ex.inLeaves {
		if leafName(src) == target.Name {
			linked = true
			break
		}
	}
	if !linked {
		for _, o := range obs {
			tgt, ok := o.out.(string)
			if !ok || len(tgt) < 3 {
				continue
			}
			for _, p := range ex.inLeaves {
				if sv, ok := ex.inFlat[o.pair][p].(string); ok && len(sv) >= 3 &&
					(strings.Contains(sv, tgt) || strings.Contains(tgt, sv)) {
					linked = true
					break
				}
			}
			if linked {
				break
			}
		}
	}
	if !linked {
		return nil
	}
	p, err := NewPattern(KindComplex, "", target.Path, complexFloor,
		fmt.Sprintf("complex transformation for %s; needs model assistance", target.Path))
	if err != nil {
		return nil
	}
	return []Pattern{p}
}
