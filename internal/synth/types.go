// Package synth renders extraction artifacts from detected patterns.
//
// A Synthesizer is a pure function from (ParsedExamples, template
// bundle, request) to a named map of rendered source texts: data model,
// extraction logic, prompt text, tests and manifest. All domain-specific
// values (patterns, field declarations, section markers, validation
// keywords) enter as explicit template data, never as embedded template
// logic, so rendering is deterministic and testable. Any missing
// template variable fails fast with ErrMissingVariable; no partial
// artifact is ever returned. Persistence and registration are separate
// explicit steps owned by the caller.
package synth

import (
	"errors"
)

// Errors for synthesis.
var (
	// ErrMissingVariable indicates a template referenced a variable the
	// request did not provide.
	ErrMissingVariable = errors.New("missing template variable")
	// ErrMissingTemplate indicates an incomplete template bundle.
	ErrMissingTemplate = errors.New("template bundle incomplete")
	// ErrInvalidRequest indicates a request missing required fields.
	ErrInvalidRequest = errors.New("invalid synthesis request")
)

// Rendered text names. Every bundle must provide all five.
const (
	FileModel     = "model"
	FileExtractor = "extractor"
	FilePrompt    = "prompt"
	FileTests     = "tests"
	FileManifest  = "manifest"
)

// RequiredFiles lists the texts a complete artifact bundle renders.
var RequiredFiles = []string{FileModel, FileExtractor, FilePrompt, FileTests, FileManifest}

// GeneratedArtifact is an in-memory bundle of rendered source texts.
// An external build step writes these to storage and makes them
// loadable under the registry namespace.
type GeneratedArtifact struct {
	Name       string            `json:"name"`
	Domain     string            `json:"domain"`
	Version    string            `json:"version"`
	SymbolPath string            `json:"symbol_path"`
	Confidence float64           `json:"confidence"`
	Files      map[string]string `json:"files"`
	Warnings   []string          `json:"warnings,omitempty"`
}

// FieldDecl is one typed declaration handed to the templates.
type FieldDecl struct {
	// Path is the source schema path.
	Path string `yaml:"path"`
	// JSONName is the flattened serialized name.
	JSONName string `yaml:"json_name"`
	// GoName is the exported identifier.
	GoName string `yaml:"-"`
	// GoType is the rendered Go type.
	GoType string `yaml:"-"`
	// Type is the inferred schema type.
	Type string `yaml:"type"`
	Required bool `yaml:"required"`
	Nullable bool `yaml:"nullable,omitempty"`
	// Sample is one observed value, for prompts and tests.
	Sample string `yaml:"sample,omitempty"`
}

// PatternRow is one detected pattern handed to the templates.
type PatternRow struct {
	Source     string  `yaml:"source,omitempty"`
	Target     string  `yaml:"target"`
	Kind       string  `yaml:"kind"`
	Confidence float64 `yaml:"confidence"`
	Rule       string  `yaml:"rule"`
}
