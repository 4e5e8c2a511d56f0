package synth

import (
	"fmt"
	"text/template"
)

// Bundle is a parsed, named template set. Bundles are immutable once
// built; the same bundle renders every artifact of a deployment.
type Bundle struct {
	templates map[string]*template.Template
}

// NewBundle parses template sources into a bundle. All five required
// names must be present; every template executes with
// missingkey=error so an unbound variable aborts rendering instead of
// emitting partial text.
func NewBundle(sources map[string]string) (*Bundle, error) {
	b := &Bundle{templates: make(map[string]*template.Template, len(sources))}
	for name, src := range sources {
		tmpl, err := template.New(name).Option("missingkey=error").Parse(src)
		if err != nil {
			return nil, fmt.Errorf("parse template %q: %w", name, err)
		}
		b.templates[name] = tmpl
	}
	for _, name := range RequiredFiles {
		if _, ok := b.templates[name]; !ok {
			return nil, fmt.Errorf("%w: missing %q", ErrMissingTemplate, name)
		}
	}
	return b, nil
}

// DefaultBundle returns the built-in template set.
func DefaultBundle() *Bundle {
	b, err := NewBundle(map[string]string{
		FileModel:     modelTemplate,
		FileExtractor: extractorTemplate,
		FilePrompt:    promptTemplate,
		FileTests:     testsTemplate,
		FileManifest:  manifestTemplate,
	})
	if err != nil {
		// The built-in sources are compiled into the binary; failing to
		// parse them is a programming error.
		panic(err)
	}
	return b
}

const modelTemplate = `// Code generated by forge; artifact {{.Artifact}} v{{.Version}}. DO NOT EDIT.

package {{.Package}}
{{if .NeedsTime}}
import "time"
{{end}}
// {{.ModelName}} holds the structured output extracted for {{.Domain}}
// documents. Field types were inferred from {{.ExampleCount}} example pairs.
type {{.ModelName}} struct {
{{- range .Fields}}
	{{.GoName}} {{.GoType}} ` + "`" + `json:"{{.JSONName}}{{if not .Required}},omitempty{{end}}"` + "`" + ` // {{.Type}}{{if .Nullable}}, nullable{{end}}
{{- end}}
}
`

const extractorTemplate = `// Code generated by forge; artifact {{.Artifact}} v{{.Version}}. DO NOT EDIT.

package {{.Package}}

import (
	"context"
	"fmt"
	"strings"

	"github.com/bobmatnyc/edgar-sub010/internal/extract"
)

// {{.ExtractorName}} extracts {{.ModelName}} values from raw {{.Domain}}
// documents through a completion backend.
type {{.ExtractorName}} struct {
	completer extract.Completer
}

// New{{.ExtractorName}} wires the extractor to its completion backend.
func New{{.ExtractorName}}(completer extract.Completer) *{{.ExtractorName}} {
	return &{{.ExtractorName}}{completer: completer}
}

// Name identifies the artifact in the registry.
func (e *{{.ExtractorName}}) Name() string { return {{printf "%q" .Artifact}} }

// Available reports whether the completion backend is wired.
func (e *{{.ExtractorName}}) Available() bool { return e.completer != nil }

// Extract locates the relevant section, validates document content and
// delegates structured extraction to the completion backend.
func (e *{{.ExtractorName}}) Extract(ctx context.Context, content string) (map[string]any, error) {
	if e.completer == nil {
		return nil, fmt.Errorf("no completion backend configured")
	}
	section, err := locateSection(content)
	if err != nil {
		return nil, err
	}
	if err := validateContent(section); err != nil {
		return nil, err
	}
	return e.completer.Complete(ctx, buildPrompt(section))
}

// locateSection narrows the document to the marked sub-section.
func locateSection(content string) (string, error) {
{{- if .Markers}}
	markers := []string{
{{- range .Markers}}
		{{printf "%q" .}},
{{- end}}
	}
	for _, m := range markers {
		if i := strings.Index(content, m); i >= 0 {
			return content[i:], nil
		}
	}
	return content, nil
{{- else}}
	return content, nil
{{- end}}
}

// validateContent applies the required/rejected keyword rules.
func validateContent(content string) error {
{{- range .RequiredKeywords}}
	if !strings.Contains(content, {{printf "%q" .}}) {
		return fmt.Errorf("document missing required marker %q", {{printf "%q" .}})
	}
{{- end}}
{{- range .RejectedKeywords}}
	if strings.Contains(content, {{printf "%q" .}}) {
		return fmt.Errorf("document rejected: contains %q", {{printf "%q" .}})
	}
{{- end}}
	return nil
}

// buildPrompt renders the extraction prompt for one section.
func buildPrompt(section string) string {
	return extractionPrompt + "\n\nDOCUMENT:\n" + section
}

const extractionPrompt = {{printf "%q" .PromptText}}
`

const promptTemplate = `Extract a structured {{.Domain}} record named "{{.Artifact}}" from the document below.

Return a JSON object with exactly these fields:
{{range .Fields}}- {{.JSONName}} ({{.Type}}{{if .Required}}, required{{else}}, optional{{end}}){{if .Sample}}, e.g. {{.Sample}}{{end}}
{{end}}
Apply these transformation rules, highest confidence first:
{{range .Patterns}}- [{{printf "%.2f" .Confidence}}] {{.Rule}}
{{end}}
{{- if .Guidance}}
Corrections from prior evaluation rounds, apply them strictly:
{{range .Guidance}}- {{.}}
{{end}}
{{- end}}
Answer with a single JSON object and nothing else.
`

const testsTemplate = `// Code generated by forge; artifact {{.Artifact}} v{{.Version}}. DO NOT EDIT.

package {{.Package}}

import (
	"context"
	"testing"
)

// stubCompleter returns a fixed structured value for prompt assertions.
type stubCompleter struct{ out map[string]any }

func (s *stubCompleter) Complete(ctx context.Context, prompt string) (map[string]any, error) {
	return s.out, nil
}

func Test{{.ExtractorName}}_Extract(t *testing.T) {
	want := map[string]any{
{{- range .Fields}}{{if .Sample}}
		{{printf "%q" .JSONName}}: {{printf "%q" .Sample}},
{{- end}}{{end}}
	}
	e := New{{.ExtractorName}}(&stubCompleter{out: want})

	got, err := e.Extract(context.Background(), sampleDocument)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("field %s = %v, want %v", k, got[k], v)
		}
	}
}

func Test{{.ExtractorName}}_Unavailable(t *testing.T) {
	e := New{{.ExtractorName}}(nil)
	if e.Available() {
		t.Fatal("extractor without a backend must not report available")
	}
}

// sampleDocument satisfies the artifact's content validation rules.
const sampleDocument = {{printf "%q" .SampleDocument}}
`

const manifestTemplate = `# Artifact manifest; generated by forge. DO NOT EDIT.
{{.ManifestYAML}}`
