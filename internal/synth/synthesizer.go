package synth

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/bobmatnyc/edgar-sub010/internal/patterns"
	"github.com/bobmatnyc/edgar-sub010/internal/schema"
)

// Request describes one synthesis run. GeneratedAt is caller-supplied
// so rendering stays deterministic: identical requests produce
// byte-identical artifacts.
type Request struct {
	// Name is the artifact name (registry key).
	Name string
	// Domain selects the domain profile (section markers, validation).
	Domain string
	// SymbolPath is the namespace-rooted symbol the artifact will be
	// loadable under.
	SymbolPath string
	// Version is the artifact semantic version.
	Version string
	// Package is the Go package name for generated sources; derived
	// from Name when empty.
	Package string
	// Parsed carries the schemas and detected patterns.
	Parsed *patterns.ParsedExamples
	// Guidance folds refinement suggestions into the prompt.
	Guidance []string
	// GeneratedAt is an opaque timestamp string recorded in the
	// manifest.
	GeneratedAt string
}

// manifest is the YAML document rendered into the manifest file.
type manifest struct {
	Name         string       `yaml:"name"`
	SymbolPath   string       `yaml:"symbol_path"`
	Version      string       `yaml:"version"`
	Domain       string       `yaml:"domain"`
	Confidence   float64      `yaml:"confidence"`
	ExampleCount int          `yaml:"example_count"`
	GeneratedAt  string       `yaml:"generated_at,omitempty"`
	Fields       []FieldDecl  `yaml:"fields"`
	Patterns     []PatternRow `yaml:"patterns"`
	Warnings     []string     `yaml:"warnings,omitempty"`
}

// Synthesizer renders template bundles into artifacts.
type Synthesizer struct {
	bundle   *Bundle
	profiles map[string]DomainProfile
}

// NewSynthesizer creates a synthesizer over the given bundle. A nil
// bundle selects the built-in templates.
func NewSynthesizer(bundle *Bundle) *Synthesizer {
	if bundle == nil {
		bundle = DefaultBundle()
	}
	return &Synthesizer{bundle: bundle, profiles: builtinProfiles()}
}

// Synthesize renders the full artifact. It fails fast on missing
// request fields or template variables; it never returns a partial
// file map.
func (s *Synthesizer) Synthesize(req Request) (*GeneratedArtifact, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if req.Package == "" {
		req.Package = packageName(req.Name)
	}

	profile, ok := s.profiles[req.Domain]
	if !ok {
		profile = s.profiles["generic"]
	}
	required, rejected := deriveValidation(profile, req.Parsed)

	fields := fieldDecls(req.Parsed.OutputSchema)
	rows := patternRows(req.Parsed)

	ctx := map[string]any{
		"Artifact":         req.Name,
		"Package":          req.Package,
		"Domain":           req.Domain,
		"SymbolPath":       req.SymbolPath,
		"Version":          req.Version,
		"ModelName":        goName(req.Name) + "Record",
		"ExtractorName":    goName(req.Name) + "Extractor",
		"ExampleCount":     req.Parsed.ExampleCount,
		"Confidence":       req.Parsed.Confidence,
		"Fields":           fields,
		"Patterns":         rows,
		"Markers":          profile.SectionMarkers,
		"RequiredKeywords": required,
		"RejectedKeywords": rejected,
		"Guidance":         req.Guidance,
		"NeedsTime":        needsTime(fields),
		"SampleDocument":   sampleDocument(profile, required),
	}

	files := make(map[string]string, len(RequiredFiles))

	prompt, err := s.render(FilePrompt, ctx)
	if err != nil {
		return nil, err
	}
	files[FilePrompt] = prompt
	ctx["PromptText"] = prompt

	for _, name := range []string{FileModel, FileExtractor, FileTests} {
		text, err := s.render(name, ctx)
		if err != nil {
			return nil, err
		}
		files[name] = text
	}

	manifestYAML, err := yaml.Marshal(manifest{
		Name:         req.Name,
		SymbolPath:   req.SymbolPath,
		Version:      req.Version,
		Domain:       req.Domain,
		Confidence:   req.Parsed.Confidence,
		ExampleCount: req.Parsed.ExampleCount,
		GeneratedAt:  req.GeneratedAt,
		Fields:       fields,
		Patterns:     rows,
		Warnings:     req.Parsed.Warnings,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal manifest: %w", err)
	}
	ctx["ManifestYAML"] = string(manifestYAML)

	text, err := s.render(FileManifest, ctx)
	if err != nil {
		return nil, err
	}
	files[FileManifest] = text

	return &GeneratedArtifact{
		Name:       req.Name,
		Domain:     req.Domain,
		Version:    req.Version,
		SymbolPath: req.SymbolPath,
		Confidence: req.Parsed.Confidence,
		Files:      files,
		Warnings:   append([]string(nil), req.Parsed.Warnings...),
	}, nil
}

// render executes one named template against the context.
func (s *Synthesizer) render(name string, ctx map[string]any) (string, error) {
	tmpl, ok := s.bundle.templates[name]
	if !ok {
		return "", fmt.Errorf("%w: missing %q", ErrMissingTemplate, name)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, ctx); err != nil {
		if strings.Contains(err.Error(), "map has no entry for key") {
			return "", fmt.Errorf("%w: template %q: %v", ErrMissingVariable, name, err)
		}
		return "", fmt.Errorf("render template %q: %w", name, err)
	}
	return buf.String(), nil
}

func validateRequest(req Request) error {
	switch {
	case req.Name == "":
		return fmt.Errorf("%w: name is required", ErrInvalidRequest)
	case req.Domain == "":
		return fmt.Errorf("%w: domain is required", ErrInvalidRequest)
	case req.Version == "":
		return fmt.Errorf("%w: version is required", ErrInvalidRequest)
	case req.SymbolPath == "":
		return fmt.Errorf("%w: symbol path is required", ErrInvalidRequest)
	case req.Parsed == nil:
		return fmt.Errorf("%w: parsed examples are required", ErrInvalidRequest)
	}
	return nil
}

// fieldDecls maps output schema leaves to typed declarations.
func fieldDecls(s *schema.Schema) []FieldDecl {
	var out []FieldDecl
	for _, f := range s.Leaves() {
		decl := FieldDecl{
			Path:     f.Path,
			JSONName: jsonName(f.Path),
			GoName:   goName(f.Path),
			GoType:   goType(f),
			Type:     string(f.Type),
			Required: f.Required,
			Nullable: f.Nullable,
		}
		if len(f.Samples) > 0 {
			decl.Sample = fmt.Sprintf("%v", f.Samples[0])
		}
		out = append(out, decl)
	}
	return out
}

// patternRows flattens detected patterns for template consumption.
func patternRows(parsed *patterns.ParsedExamples) []PatternRow {
	out := make([]PatternRow, 0, len(parsed.Patterns))
	for _, p := range parsed.Patterns {
		out = append(out, PatternRow{
			Source:     p.SourcePath,
			Target:     p.TargetPath,
			Kind:       string(p.Kind),
			Confidence: p.Confidence,
			Rule:       p.Description,
		})
	}
	return out
}

// goType maps an inferred field type to a generated declaration type.
func goType(f *schema.Field) string {
	var t string
	switch f.Type {
	case schema.TypeString, schema.TypeDate, schema.TypeDateTime:
		t = "string"
	case schema.TypeInteger:
		t = "int64"
	case schema.TypeFloat, schema.TypeDecimal:
		t = "float64"
	case schema.TypeBoolean:
		t = "bool"
	case schema.TypeList:
		t = "[]any"
	case schema.TypeMap:
		t = "map[string]any"
	default:
		t = "any"
	}
	if f.Nullable && t != "any" && !strings.HasPrefix(t, "[]") && !strings.HasPrefix(t, "map[") {
		t = "*" + t
	}
	return t
}

// needsTime reports whether any declaration renders a time.Time.
// Dates currently render as strings; kept for template compatibility.
func needsTime(fields []FieldDecl) bool {
	for _, f := range fields {
		if strings.Contains(f.GoType, "time.Time") {
			return true
		}
	}
	return false
}

// jsonName flattens a schema path into a serialized field name.
func jsonName(path string) string {
	s := strings.ReplaceAll(path, "[]", "")
	s = strings.ReplaceAll(s, ".", "_")
	return strings.Trim(s, "_")
}

// goName converts a path or artifact name to an exported identifier.
func goName(path string) string {
	var b strings.Builder
	up := true
	for _, r := range path {
		switch {
		case r == '_' || r == '-' || r == '.' || r == '[' || r == ']' || r == ' ':
			up = true
		case up:
			b.WriteString(strings.ToUpper(string(r)))
			up = false
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// packageName derives a lower-case package identifier from a name.
func packageName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "artifact"
	}
	return b.String()
}

// sampleDocument builds a minimal document satisfying the content
// validation rules, used by the generated tests.
func sampleDocument(profile DomainProfile, required []string) string {
	var parts []string
	parts = append(parts, required...)
	parts = append(parts, profile.SectionMarkers...)
	if len(parts) == 0 {
		return "sample document"
	}
	return strings.Join(parts, "\n")
}
