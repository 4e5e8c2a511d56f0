// Package registry maintains the persistent, namespace-restricted
// catalog of generated extraction artifacts.
//
// The registry provides:
//   - Artifact name to metadata mapping with duplicate protection
//   - A namespace boundary: every registered symbol path must live
//     under a configured prefix, enforced at registration time and
//     re-validated at load time
//   - Dynamic lookup-and-load through a string-keyed factory table
//     populated at startup, with a capability check before a loaded
//     symbol is handed out
//
// Every mutation rewrites the full catalog to a temp file in the same
// directory and atomically renames it over the canonical path, so a
// concurrent reader can never observe a partial write. The catalog is
// loaded fully into memory on construction and is the sole read source
// between writes; the design assumes one owning process per catalog
// file.
package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/google/uuid"

	"github.com/bobmatnyc/edgar-sub010/internal/extract"
)

// catalogVersion is the persisted format version. Bumps must stay
// backward-compatible: readers tolerate missing maps and unknown fields.
const catalogVersion = 1

// Errors for registry operations.
var (
	ErrNotFound          = errors.New("artifact not found")
	ErrDuplicate         = errors.New("artifact already registered")
	ErrNamespace         = errors.New("symbol path outside sanctioned namespace")
	ErrCapability        = errors.New("loaded symbol does not implement the extraction capability")
	ErrSymbolUnbound     = errors.New("symbol has no bound factory")
	ErrInvalidName       = errors.New("invalid name: must be alphanumeric with hyphens/underscores")
	ErrInvalidVersion    = errors.New("invalid semantic version")
	ErrInvalidConfidence = errors.New("confidence must be in [0.0, 1.0]")
	ErrCatalogCorrupted  = errors.New("catalog file corrupted")
)

// namePattern validates artifact names.
var namePattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*$`)

// ArtifactMetadata describes one registered artifact. Owned exclusively
// by the registry; mutated only via Register, Update and Unregister.
type ArtifactMetadata struct {
	UUID         string    `json:"uuid"`
	Name         string    `json:"name"`
	SymbolPath   string    `json:"symbol_path"`
	Version      string    `json:"version"`
	Description  string    `json:"description,omitempty"`
	Domain       string    `json:"domain"`
	Confidence   float64   `json:"confidence"`
	ExampleCount int       `json:"example_count"`
	Tags         []string  `json:"tags,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// catalogData is the persisted catalog structure.
type catalogData struct {
	Version   int                          `json:"version"`
	Artifacts map[string]*ArtifactMetadata `json:"artifacts"`
}

// Factory constructs a loadable symbol. Factories return any so the
// registry can verify the extraction capability dynamically at load
// time rather than trusting the binding.
type Factory func() (any, error)

// Registry manages artifact registration, lookup and loading.
type Registry struct {
	mu        sync.RWMutex
	namespace string
	filePath  string
	data      *catalogData
	factories map[string]Factory
}

// New creates a registry persisting to catalogPath, restricting symbol
// paths to the given namespace prefix. An existing catalog is loaded in
// full; a missing file starts empty.
func New(catalogPath, namespace string) (*Registry, error) {
	if namespace == "" {
		return nil, fmt.Errorf("%w: empty namespace prefix", ErrNamespace)
	}
	if catalogPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		catalogPath = filepath.Join(home, ".config", "forge", "catalog.json")
	}

	r := &Registry{
		namespace: strings.TrimSuffix(namespace, "/") + "/",
		filePath:  catalogPath,
		data: &catalogData{
			Version:   catalogVersion,
			Artifacts: make(map[string]*ArtifactMetadata),
		},
		factories: make(map[string]Factory),
	}

	if err := os.MkdirAll(filepath.Dir(catalogPath), 0700); err != nil {
		return nil, fmt.Errorf("failed to create catalog directory: %w", err)
	}

	if err := r.load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	return r, nil
}

// ValidateName checks that an artifact name is safe as a catalog key.
func ValidateName(name string) error {
	if name == "" {
		return ErrInvalidName
	}
	if len(name) > 255 {
		return fmt.Errorf("%w: name too long (max 255)", ErrInvalidName)
	}
	if !namePattern.MatchString(name) {
		return ErrInvalidName
	}
	return nil
}

// inNamespace reports whether a symbol path is rooted under the
// sanctioned prefix. This is the core security boundary; it runs at
// registration, binding and again at load time.
func (r *Registry) inNamespace(symbolPath string) bool {
	if symbolPath == "" {
		return false
	}
	if strings.Contains(symbolPath, "..") {
		return false
	}
	return strings.HasPrefix(symbolPath, r.namespace)
}

// Bind associates a symbol path with a factory. Called at startup by
// the deterministic namespace scan; keys outside the namespace are
// rejected so out-of-tree symbols can never become loadable.
func (r *Registry) Bind(symbolPath string, f Factory) error {
	if !r.inNamespace(symbolPath) {
		return fmt.Errorf("%w: %q not under %q", ErrNamespace, symbolPath, r.namespace)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[symbolPath] = f
	return nil
}

// BindAll binds a whole factory table, failing on the first
// out-of-namespace key.
func (r *Registry) BindAll(table map[string]Factory) error {
	keys := make([]string, 0, len(table))
	for k := range table {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := r.Bind(k, table[k]); err != nil {
			return err
		}
	}
	return nil
}

// Register adds a new artifact to the catalog. Registering an existing
// name fails with ErrDuplicate and leaves the catalog untouched; a
// symbol path outside the namespace fails with ErrNamespace before any
// state is written.
func (r *Registry) Register(meta ArtifactMetadata) (*ArtifactMetadata, error) {
	if err := ValidateName(meta.Name); err != nil {
		return nil, err
	}
	if !r.inNamespace(meta.SymbolPath) {
		return nil, fmt.Errorf("%w: %q not under %q", ErrNamespace, meta.SymbolPath, r.namespace)
	}
	if meta.Confidence < 0 || meta.Confidence > 1 {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidConfidence, meta.Confidence)
	}
	if _, err := semver.NewVersion(meta.Version); err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidVersion, meta.Version)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.data.Artifacts[meta.Name]; ok {
		return nil, fmt.Errorf("%w: %q", ErrDuplicate, meta.Name)
	}

	now := time.Now().UTC()
	entry := meta
	entry.UUID = uuid.New().String()
	entry.CreatedAt = now
	entry.UpdatedAt = now
	r.data.Artifacts[meta.Name] = &entry

	if err := r.save(); err != nil {
		delete(r.data.Artifacts, meta.Name)
		return nil, err
	}

	out := entry
	return &out, nil
}

// Get looks up an artifact by name, re-validates its namespace, loads
// the bound symbol and verifies the extraction capability before
// returning it.
func (r *Registry) Get(name string) (extract.Extractor, *ArtifactMetadata, error) {
	r.mu.RLock()
	meta, ok := r.data.Artifacts[name]
	if !ok {
		r.mu.RUnlock()
		return nil, nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	entry := *meta
	factory, bound := r.factories[entry.SymbolPath]
	r.mu.RUnlock()

	// Defense in depth: the namespace was checked at registration, but
	// the catalog file could have been edited between runs.
	if !r.inNamespace(entry.SymbolPath) {
		return nil, nil, fmt.Errorf("%w: %q not under %q", ErrNamespace, entry.SymbolPath, r.namespace)
	}
	if !bound {
		return nil, nil, fmt.Errorf("%w: %q", ErrSymbolUnbound, entry.SymbolPath)
	}

	sym, err := factory()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load symbol %q: %w", entry.SymbolPath, err)
	}
	ext, ok := sym.(extract.Extractor)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %q yields %T", ErrCapability, entry.SymbolPath, sym)
	}
	return ext, &entry, nil
}

// Metadata returns a copy of the metadata for name without loading.
func (r *Registry) Metadata(name string) (*ArtifactMetadata, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	meta, ok := r.data.Artifacts[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	out := *meta
	return &out, nil
}

// ListFilter narrows List results. Zero values match everything.
type ListFilter struct {
	Domain        string
	Tags          []string
	MinConfidence float64
}

// List returns metadata copies matching the filter, sorted by name.
// Purely in-memory; no I/O per call.
func (r *Registry) List(filter ListFilter) []*ArtifactMetadata {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*ArtifactMetadata
	for _, meta := range r.data.Artifacts {
		if filter.Domain != "" && meta.Domain != filter.Domain {
			continue
		}
		if meta.Confidence < filter.MinConfidence {
			continue
		}
		if !hasAllTags(meta.Tags, filter.Tags) {
			continue
		}
		entry := *meta
		out = append(out, &entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Update replaces the mutable fields of an existing artifact. Unknown
// names fail with ErrNotFound; UUID and CreatedAt are preserved.
func (r *Registry) Update(meta ArtifactMetadata) (*ArtifactMetadata, error) {
	if !r.inNamespace(meta.SymbolPath) {
		return nil, fmt.Errorf("%w: %q not under %q", ErrNamespace, meta.SymbolPath, r.namespace)
	}
	if meta.Confidence < 0 || meta.Confidence > 1 {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidConfidence, meta.Confidence)
	}
	if _, err := semver.NewVersion(meta.Version); err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidVersion, meta.Version)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.data.Artifacts[meta.Name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, meta.Name)
	}

	prev := *cur
	entry := meta
	entry.UUID = cur.UUID
	entry.CreatedAt = cur.CreatedAt
	entry.UpdatedAt = time.Now().UTC()
	r.data.Artifacts[meta.Name] = &entry

	if err := r.save(); err != nil {
		r.data.Artifacts[meta.Name] = &prev
		return nil, err
	}

	out := entry
	return &out, nil
}

// Unregister removes an artifact. Unregistering an unknown name fails
// with ErrNotFound rather than no-opping.
func (r *Registry) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	meta, ok := r.data.Artifacts[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	delete(r.data.Artifacts, name)

	if err := r.save(); err != nil {
		r.data.Artifacts[name] = meta
		return err
	}
	return nil
}

// Namespace returns the sanctioned symbol-path prefix.
func (r *Registry) Namespace() string {
	return r.namespace
}

// Len returns the number of registered artifacts.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.data.Artifacts)
}

// load reads the catalog from disk.
func (r *Registry) load() error {
	data, err := os.ReadFile(r.filePath)
	if err != nil {
		return err
	}

	var cd catalogData
	if err := json.Unmarshal(data, &cd); err != nil {
		return fmt.Errorf("%w: %v", ErrCatalogCorrupted, err)
	}
	if cd.Artifacts == nil {
		cd.Artifacts = make(map[string]*ArtifactMetadata)
	}

	r.data = &cd
	return nil
}

// save writes the full catalog atomically: temp file in the same
// directory, then rename over the canonical path.
func (r *Registry) save() error {
	r.data.Version = catalogVersion
	data, err := json.MarshalIndent(r.data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal catalog: %w", err)
	}

	tmpPath := r.filePath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write catalog: %w", err)
	}

	if err := os.Rename(tmpPath, r.filePath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename catalog: %w", err)
	}

	return nil
}

func hasAllTags(have, want []string) bool {
	if len(want) == 0 {
		return true
	}
	set := make(map[string]bool, len(have))
	for _, t := range have {
		set[t] = true
	}
	for _, t := range want {
		if !set[t] {
			return false
		}
	}
	return true
}
