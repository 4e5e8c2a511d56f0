package schema

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Errors for schema inference.
var (
	// ErrMalformedExample indicates an example value outside the closed
	// primitive/collection type set (e.g. a channel or a non-string-keyed map).
	ErrMalformedExample = errors.New("malformed example structure")
)

// FieldType is the closed set of inferable field types.
type FieldType string

const (
	TypeString   FieldType = "string"
	TypeInteger  FieldType = "integer"
	TypeFloat    FieldType = "float"
	TypeDecimal  FieldType = "decimal"
	TypeBoolean  FieldType = "boolean"
	TypeDate     FieldType = "date"
	TypeDateTime FieldType = "datetime"
	TypeList     FieldType = "list"
	TypeMap      FieldType = "map"
	TypeNull     FieldType = "null"
	TypeUnknown  FieldType = "unknown"
)

// Numeric reports whether the type carries a numeric value.
func (t FieldType) Numeric() bool {
	return t == TypeInteger || t == TypeFloat || t == TypeDecimal
}

// Scalar reports whether the type is a leaf value (not a container).
func (t FieldType) Scalar() bool {
	return t != TypeList && t != TypeMap
}

// Field describes one inferred field at a path. Fields are built during
// inference and not mutated afterwards.
type Field struct {
	// Path is the dotted path from the example root (e.g. "company.name").
	Path string `json:"path"`
	// Name is the last path segment.
	Name string `json:"name"`
	// Type is the unioned type across all observations.
	Type FieldType `json:"type"`
	// Nullable is set when any observation was null.
	Nullable bool `json:"nullable"`
	// Required is set when the path was present in every example.
	Required bool `json:"required"`
	// Depth is the nesting depth (0 for top-level fields).
	Depth int `json:"depth"`
	// Samples holds up to MaxSamples observed values for similarity
	// heuristics and prompt construction.
	Samples []any `json:"samples,omitempty"`
}

// Schema is an ordered path->Field mapping. The zero value is not usable;
// construct via Infer or NewSchema. A Schema is exclusively owned by its
// producer and treated as immutable by consumers.
type Schema struct {
	paths  []string
	fields map[string]*Field
}

// NewSchema returns an empty schema.
func NewSchema() *Schema {
	return &Schema{fields: make(map[string]*Field)}
}

// Len returns the number of fields.
func (s *Schema) Len() int {
	return len(s.paths)
}

// Paths returns field paths in insertion order.
func (s *Schema) Paths() []string {
	out := make([]string, len(s.paths))
	copy(out, s.paths)
	return out
}

// Field returns the field at path, if present.
func (s *Schema) Field(path string) (*Field, bool) {
	f, ok := s.fields[path]
	return f, ok
}

// Fields returns all fields in insertion order.
func (s *Schema) Fields() []*Field {
	out := make([]*Field, 0, len(s.paths))
	for _, p := range s.paths {
		out = append(out, s.fields[p])
	}
	return out
}

// Leaves returns scalar (non-container) fields in insertion order.
func (s *Schema) Leaves() []*Field {
	var out []*Field
	for _, p := range s.paths {
		if f := s.fields[p]; f.Type.Scalar() {
			out = append(out, f)
		}
	}
	return out
}

// put inserts or returns the field at path, preserving insertion order.
func (s *Schema) put(path, name string, depth int) *Field {
	if f, ok := s.fields[path]; ok {
		return f
	}
	f := &Field{Path: path, Name: name, Depth: depth, Required: true}
	s.fields[path] = f
	s.paths = append(s.paths, path)
	return f
}

// MarshalJSON emits fields as an array in insertion order, keeping
// serialized schemas deterministic.
func (s *Schema) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Fields())
}

// String renders a compact one-line-per-field description, mostly for logs.
func (s *Schema) String() string {
	out := ""
	for _, f := range s.Fields() {
		opt := ""
		if !f.Required {
			opt = "?"
		}
		out += fmt.Sprintf("%s%s:%s\n", f.Path, opt, f.Type)
	}
	return out
}
