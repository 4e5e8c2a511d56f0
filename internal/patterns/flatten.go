package patterns

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// flatten maps every node of an example to an indexed path: nested maps
// use dots ("company.name"), array elements use numeric indices
// ("items[0].sku"). Containers are recorded at their own path as well so
// recognizers can inspect whole arrays.
func flatten(root map[string]any) map[string]any {
	out := make(map[string]any)
	var walk func(path string, v any)
	walk = func(path string, v any) {
		if path != "" {
			out[path] = v
		}
		switch x := v.(type) {
		case map[string]any:
			for k, child := range x {
				p := k
				if path != "" {
					p = path + "." + k
				}
				walk(p, child)
			}
		case []any:
			for i, elem := range x {
				walk(fmt.Sprintf("%s[%d]", path, i), elem)
			}
		}
	}
	walk("", root)
	return out
}

// leafPaths returns the scalar paths of a flattened example, sorted for
// deterministic recognizer output.
func leafPaths(flat map[string]any) []string {
	var out []string
	for p, v := range flat {
		switch v.(type) {
		case map[string]any, []any:
		default:
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}

// valueAt resolves a dotted path (no array indices) inside a nested map.
func valueAt(m map[string]any, path string) (any, bool) {
	cur := any(m)
	for _, seg := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = obj[seg]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// valueEqual compares two values, tolerating numeric representation
// differences (int vs float) and using deep equality for containers.
func valueEqual(a, b any) bool {
	if af, ok := toFloat(a); ok {
		if bf, ok := toFloat(b); ok {
			return math.Abs(af-bf) < 1e-9
		}
		return false
	}
	return reflect.DeepEqual(a, b)
}

// toFloat converts native numeric types. Strings never convert here;
// see parseNumericString for formatted numerals.
func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case float32:
		return float64(x), true
	case float64:
		return x, true
	default:
		return 0, false
	}
}

// parseNumericString parses formatted numerals such as "1,000,000",
// "$1,234.56" or "42%".
func parseNumericString(s string) (float64, bool) {
	t := strings.TrimSpace(s)
	t = strings.TrimSuffix(t, "%")
	for _, prefix := range []string{"$", "€", "£"} {
		t = strings.TrimPrefix(t, prefix)
	}
	t = strings.ReplaceAll(t, ",", "")
	t = strings.TrimSpace(t)
	if t == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(t, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// stringify renders a value for pattern example strings.
func stringify(v any) string {
	if v == nil {
		return "null"
	}
	return fmt.Sprintf("%v", v)
}
