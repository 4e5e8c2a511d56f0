package schema

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
)

const (
	// DefaultMaxSamples bounds retained sample values per field.
	DefaultMaxSamples = 3
	// DefaultMaxDepth bounds recursion into nested containers.
	DefaultMaxDepth = 10
)

// decimalPattern matches grouped or currency-prefixed decimal strings
// such as "1,000,000", "$1,234.56" or "€99.00".
var decimalPattern = regexp.MustCompile(`^[$€£]?\s?-?\d{1,3}(,\d{3})+(\.\d+)?$|^[$€£]\s?-?\d+(\.\d+)?$`)

// Options configures an Inferencer.
type Options struct {
	// MaxSamples bounds retained samples per field (default 3).
	MaxSamples int
	// MaxDepth bounds nesting recursion (default 10).
	MaxDepth int
}

// Inferencer builds schemas from example values.
type Inferencer struct {
	opts Options
}

// NewInferencer creates an inferencer. Zero option fields take defaults.
func NewInferencer(opts Options) *Inferencer {
	if opts.MaxSamples <= 0 {
		opts.MaxSamples = DefaultMaxSamples
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	return &Inferencer{opts: opts}
}

// Infer builds a schema from one or more example values. An empty example
// list yields an empty schema, not an error. Type inconsistency across
// examples is unioned, never rejected; only values outside the closed
// primitive/collection set fail with ErrMalformedExample.
func Infer(examples []any) (*Schema, error) {
	return NewInferencer(Options{}).Infer(examples)
}

// Infer builds a schema from the given examples.
func (in *Inferencer) Infer(examples []any) (*Schema, error) {
	s := NewSchema()
	seen := make([]map[string]bool, len(examples))

	for i, ex := range examples {
		seen[i] = make(map[string]bool)
		if err := in.walk(s, seen[i], "", ex, 0); err != nil {
			return nil, fmt.Errorf("example %d: %w", i, err)
		}
	}

	// A path absent from any example is not required.
	for _, path := range s.paths {
		for _, present := range seen {
			if !present[path] {
				s.fields[path].Required = false
				break
			}
		}
	}

	return s, nil
}

// walk records the value at path and recurses into containers.
func (in *Inferencer) walk(s *Schema, seen map[string]bool, path string, v any, depth int) error {
	if depth > in.opts.MaxDepth {
		return nil
	}

	m, ok, err := asMap(v)
	if err != nil {
		return err
	}
	if ok && path == "" {
		// Root object: fields start at its keys, the root itself is
		// not a field.
		for _, k := range sortedKeys(m) {
			if err := in.walk(s, seen, k, m[k], depth); err != nil {
				return err
			}
		}
		return nil
	}

	name := path
	if i := strings.LastIndex(path, "."); i >= 0 {
		name = path[i+1:]
	}
	if path == "" {
		// Scalar or list at the root.
		path, name = "$", "$"
	}

	f := s.put(path, name, depth)
	seen[path] = true

	t, err := typeOf(v)
	if err != nil {
		return fmt.Errorf("field %q: %w", path, err)
	}
	if t == TypeNull {
		f.Nullable = true
		if f.Type == "" {
			f.Type = TypeNull
		}
	} else {
		f.Type = unionTypes(f.Type, t)
	}

	if t.Scalar() && t != TypeNull && len(f.Samples) < in.opts.MaxSamples {
		f.Samples = append(f.Samples, v)
	}

	switch t {
	case TypeMap:
		for _, k := range sortedKeys(m) {
			if err := in.walk(s, seen, path+"."+k, m[k], depth+1); err != nil {
				return err
			}
		}
	case TypeList:
		for _, elem := range v.([]any) {
			if err := in.walk(s, seen, path+"[]", elem, depth+1); err != nil {
				return err
			}
		}
	}

	return nil
}

// unionTypes merges a newly observed type into the accumulated one.
// Mixed integer/float widens to float; integer or float against decimal
// widens to decimal; anything else irreconcilable degrades to unknown.
func unionTypes(have, observed FieldType) FieldType {
	switch {
	case have == "" || have == TypeNull || have == observed:
		return observed
	case have == TypeUnknown:
		return TypeUnknown
	}

	pair := func(a, b FieldType) bool {
		return (have == a && observed == b) || (have == b && observed == a)
	}
	switch {
	case pair(TypeInteger, TypeFloat):
		return TypeFloat
	case pair(TypeInteger, TypeDecimal), pair(TypeFloat, TypeDecimal):
		return TypeDecimal
	case pair(TypeDate, TypeDateTime):
		return TypeDateTime
	case pair(TypeDate, TypeString), pair(TypeDateTime, TypeString), pair(TypeDecimal, TypeString):
		return TypeString
	}
	return TypeUnknown
}

// typeOf classifies a value into the closed type set.
func typeOf(v any) (FieldType, error) {
	switch x := v.(type) {
	case nil:
		return TypeNull, nil
	case bool:
		return TypeBoolean, nil
	case int, int32, int64:
		return TypeInteger, nil
	case float32:
		return TypeFloat, nil
	case float64:
		// JSON decoding yields float64 for every number; keep integral
		// values as integers.
		if x == float64(int64(x)) {
			return TypeInteger, nil
		}
		return TypeFloat, nil
	case json.Number:
		if _, err := x.Int64(); err == nil {
			return TypeInteger, nil
		}
		return TypeFloat, nil
	case string:
		return classifyString(x), nil
	case []any:
		return TypeList, nil
	case map[string]any:
		return TypeMap, nil
	default:
		return TypeUnknown, fmt.Errorf("%w: unsupported value type %T", ErrMalformedExample, v)
	}
}

// classifyString detects date, datetime and formatted-decimal strings.
func classifyString(s string) FieldType {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return TypeString
	}
	if _, err := time.Parse("2006-01-02", trimmed); err == nil {
		return TypeDate
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if _, err := time.Parse(layout, trimmed); err == nil {
			return TypeDateTime
		}
	}
	if decimalPattern.MatchString(trimmed) {
		return TypeDecimal
	}
	return TypeString
}

// asMap normalizes map values, rejecting non-string keys.
func asMap(v any) (map[string]any, bool, error) {
	switch m := v.(type) {
	case map[string]any:
		return m, true, nil
	case map[any]any:
		return nil, false, fmt.Errorf("%w: map keys must be strings", ErrMalformedExample)
	default:
		return nil, false, nil
	}
}

// sortedKeys returns map keys sorted for deterministic field order.
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
