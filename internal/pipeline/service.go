// Package pipeline wires detection, synthesis, registration and
// refinement into one service. All handles are explicit; nothing
// global beyond the shared metrics collectors.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Masterminds/semver/v3"
	"go.uber.org/zap"

	"github.com/bobmatnyc/edgar-sub010/internal/extract"
	"github.com/bobmatnyc/edgar-sub010/internal/logging"
	"github.com/bobmatnyc/edgar-sub010/internal/patterns"
	"github.com/bobmatnyc/edgar-sub010/internal/refine"
	"github.com/bobmatnyc/edgar-sub010/internal/registry"
	"github.com/bobmatnyc/edgar-sub010/internal/synth"
	"github.com/bobmatnyc/edgar-sub010/internal/telemetry"
)

var (
	ErrNoExamples      = errors.New("at least one example pair is required")
	ErrUnknownArtifact = errors.New("artifact not created by this service")
	ErrNoCompleter     = errors.New("no completer configured")
)

const initialVersion = "0.1.0"

// Service orchestrates example parsing, artifact synthesis and
// registration.
type Service struct {
	detector    *patterns.Detector
	synthesizer *synth.Synthesizer
	registry    *registry.Registry
	completer   extract.Completer
	metrics     *telemetry.Metrics
	logger      *logging.Logger
	now         func() time.Time

	mu    sync.Mutex
	state map[string]*artifactState
}

// artifactState carries what regeneration needs between iterations.
type artifactState struct {
	domain   string
	parsed   *patterns.ParsedExamples
	guidance []string
	latest   *synth.GeneratedArtifact
}

// Options configures a Service. Registry is required; the rest fall
// back to sensible defaults. Completer is optional and only needed
// when registered artifacts are loaded for extraction.
type Options struct {
	Registry    *registry.Registry
	Detector    *patterns.Detector
	Synthesizer *synth.Synthesizer
	Completer   extract.Completer
	Logger      *logging.Logger
	Now         func() time.Time
}

// NewService wires a service from options.
func NewService(opts Options) (*Service, error) {
	if opts.Registry == nil {
		return nil, errors.New("registry is required")
	}
	if opts.Detector == nil {
		opts.Detector = patterns.NewDetector(patterns.Options{})
	}
	if opts.Synthesizer == nil {
		opts.Synthesizer = synth.NewSynthesizer(nil)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		detector:    opts.Detector,
		synthesizer: opts.Synthesizer,
		registry:    opts.Registry,
		completer:   opts.Completer,
		metrics:     telemetry.NewMetrics(),
		logger:      opts.Logger.Named("pipeline"),
		now:         opts.Now,
		state:       map[string]*artifactState{},
	}, nil
}

// CreateRequest describes one artifact creation.
type CreateRequest struct {
	Name        string
	Domain      string
	Description string
	Tags        []string
	Pairs       []patterns.ExamplePair
}

// CreateResult bundles the synthesized artifact with its registry
// metadata and any detection warnings.
type CreateResult struct {
	Artifact *synth.GeneratedArtifact
	Metadata *registry.ArtifactMetadata
	Warnings []string
}

// CreateArtifact runs detect, synthesize, register for one example
// set. Registration failures leave the registry untouched.
func (s *Service) CreateArtifact(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	if len(req.Pairs) == 0 {
		return nil, ErrNoExamples
	}

	parsed, err := s.detector.Detect(req.Pairs)
	if err != nil {
		return nil, fmt.Errorf("detect: %w", err)
	}
	s.metrics.DetectionConfidence.Observe(parsed.Confidence)
	s.metrics.DetectionWarningsTotal.Add(float64(len(parsed.Warnings)))

	symbolPath := s.registry.Namespace() + req.Name
	artifact, err := s.synthesizer.Synthesize(synth.Request{
		Name:        req.Name,
		Domain:      req.Domain,
		SymbolPath:  symbolPath,
		Version:     initialVersion,
		Parsed:      parsed,
		GeneratedAt: s.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return nil, fmt.Errorf("synthesize: %w", err)
	}
	s.metrics.ArtifactsSynthesizedTotal.WithLabelValues(artifact.Domain).Inc()

	meta, err := s.registry.Register(registry.ArtifactMetadata{
		Name:         req.Name,
		SymbolPath:   symbolPath,
		Version:      artifact.Version,
		Description:  req.Description,
		Domain:       artifact.Domain,
		Confidence:   parsed.Confidence,
		ExampleCount: parsed.ExampleCount,
		Tags:         req.Tags,
	})
	if err != nil {
		s.metrics.RegistrationsTotal.WithLabelValues("rejected").Inc()
		return nil, fmt.Errorf("register: %w", err)
	}
	s.metrics.RegistrationsTotal.WithLabelValues("registered").Inc()

	if s.completer != nil {
		if err := s.registry.Bind(symbolPath, s.factory(req.Name, artifact)); err != nil {
			return nil, fmt.Errorf("bind: %w", err)
		}
	}

	s.mu.Lock()
	s.state[req.Name] = &artifactState{
		domain: artifact.Domain,
		parsed: parsed,
		latest: artifact,
	}
	s.mu.Unlock()

	s.logger.Info(ctx, "artifact created",
		zap.String("name", req.Name),
		zap.String("domain", artifact.Domain),
		zap.Float64("confidence", parsed.Confidence),
		zap.Int("warnings", len(parsed.Warnings)))

	return &CreateResult{Artifact: artifact, Metadata: meta, Warnings: parsed.Warnings}, nil
}

// Artifact returns the most recent generation for a name created by
// this service.
func (s *Service) Artifact(name string) (*synth.GeneratedArtifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.state[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownArtifact, name)
	}
	return st.latest, nil
}

// Registry exposes the underlying registry for listing and lookup.
func (s *Service) Registry() *registry.Registry {
	return s.registry
}

// factory produces the runtime extractor for a registered artifact:
// the generated prompt driven through the configured completer.
func (s *Service) factory(name string, artifact *synth.GeneratedArtifact) registry.Factory {
	prompt := artifact.Files[synth.FilePrompt]
	return func() (any, error) {
		if s.completer == nil {
			return nil, ErrNoCompleter
		}
		return &promptExtractor{name: name, prompt: prompt, completer: s.completer}, nil
	}
}

// promptExtractor drives a completer with a generated prompt.
type promptExtractor struct {
	name      string
	prompt    string
	completer extract.Completer
}

func (p *promptExtractor) Name() string    { return p.name }
func (p *promptExtractor) Available() bool { return p.completer != nil }

func (p *promptExtractor) Extract(ctx context.Context, content string) (map[string]any, error) {
	if p.completer == nil {
		return nil, ErrNoCompleter
	}
	var b strings.Builder
	b.WriteString(p.prompt)
	b.WriteString("\n\nDOCUMENT:\n")
	b.WriteString(content)
	return p.completer.Complete(ctx, b.String())
}

// Refiner returns a regenerator bound to one created artifact, for
// use with refine.Loop.
func (s *Service) Refiner(name string) (refine.Regenerator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.state[name]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownArtifact, name)
	}
	return &artifactRefiner{svc: s, name: name}, nil
}

// Refine runs the refinement loop for one artifact against labeled
// cases, recording outcome metrics.
func (s *Service) Refine(ctx context.Context, name string, cases []refine.LabeledCase, evaluator refine.Evaluator, cfg refine.Config) (*refine.Result, error) {
	regen, err := s.Refiner(name)
	if err != nil {
		return nil, err
	}
	loop, err := refine.NewLoop(cfg, evaluator, regen, s.logger)
	if err != nil {
		return nil, err
	}

	ctx = logging.WithArtifact(ctx, name)
	result, err := loop.Run(ctx, cases)
	if result != nil {
		s.metrics.RefinementIterations.Observe(float64(len(result.Iterations)))
		if result.Outcome != "" {
			s.metrics.RefinementOutcomes.WithLabelValues(string(result.Outcome)).Inc()
		}
		if result.FinalEvaluation != nil {
			cat := refine.NewCategorizer()
			for _, rec := range cat.CategorizeAll(result.FinalEvaluation.Failures) {
				s.metrics.FailuresTotal.WithLabelValues(string(rec.Category)).Inc()
			}
		}
	}
	return result, err
}

// artifactRefiner folds refinements into guidance and re-synthesizes
// a patch-bumped version of its artifact.
type artifactRefiner struct {
	svc  *Service
	name string
}

// Regenerate re-renders the artifact with accumulated guidance and
// updates its registry entry. Guidance persists across iterations so
// later refinements add to, rather than replace, earlier ones.
func (r *artifactRefiner) Regenerate(ctx context.Context, refinements []refine.Refinement) error {
	s := r.svc

	s.mu.Lock()
	st, ok := s.state[r.name]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownArtifact, r.name)
	}
	for _, ref := range refinements {
		st.guidance = appendUnique(st.guidance, guidanceLine(ref))
	}
	guidance := append([]string(nil), st.guidance...)
	parsed := st.parsed
	s.mu.Unlock()

	meta, err := s.registry.Metadata(r.name)
	if err != nil {
		return fmt.Errorf("metadata: %w", err)
	}
	version, err := bumpPatch(meta.Version)
	if err != nil {
		return fmt.Errorf("bump version: %w", err)
	}

	artifact, err := s.synthesizer.Synthesize(synth.Request{
		Name:        r.name,
		Domain:      meta.Domain,
		SymbolPath:  meta.SymbolPath,
		Version:     version,
		Parsed:      parsed,
		Guidance:    guidance,
		GeneratedAt: s.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("synthesize: %w", err)
	}

	updated := *meta
	updated.Version = version
	if _, err := s.registry.Update(updated); err != nil {
		s.metrics.RegistrationsTotal.WithLabelValues("rejected").Inc()
		return fmt.Errorf("update: %w", err)
	}
	s.metrics.RegistrationsTotal.WithLabelValues("updated").Inc()

	if s.completer != nil {
		if err := s.registry.Bind(meta.SymbolPath, s.factory(r.name, artifact)); err != nil {
			return fmt.Errorf("rebind: %w", err)
		}
	}

	s.mu.Lock()
	st.latest = artifact
	s.mu.Unlock()

	s.logger.Info(ctx, "artifact regenerated",
		zap.String("name", r.name),
		zap.String("version", version),
		zap.Int("guidance", len(guidance)))
	return nil
}

// guidanceLine renders one refinement as prompt guidance.
func guidanceLine(ref refine.Refinement) string {
	if ref.Target != "" {
		return fmt.Sprintf("[%s] %s: %s", ref.Kind, ref.Target, ref.Suggestion)
	}
	return fmt.Sprintf("[%s] %s", ref.Kind, ref.Suggestion)
}

func appendUnique(lines []string, line string) []string {
	for _, l := range lines {
		if l == line {
			return lines
		}
	}
	return append(lines, line)
}

func bumpPatch(version string) (string, error) {
	v, err := semver.NewVersion(version)
	if err != nil {
		return "", err
	}
	next := v.IncPatch()
	return next.String(), nil
}
