package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmatnyc/edgar-sub010/internal/extract"
	"github.com/bobmatnyc/edgar-sub010/internal/patterns"
	"github.com/bobmatnyc/edgar-sub010/internal/refine"
	"github.com/bobmatnyc/edgar-sub010/internal/registry"
	"github.com/bobmatnyc/edgar-sub010/internal/synth"
)

const testNamespace = "forge/artifacts/"

func newTestService(t *testing.T, opts Options) *Service {
	t.Helper()
	reg, err := registry.New(filepath.Join(t.TempDir(), "catalog.json"), testNamespace)
	require.NoError(t, err)
	opts.Registry = reg
	opts.Now = func() time.Time { return time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC) }
	svc, err := NewService(opts)
	require.NoError(t, err)
	return svc
}

func invoicePairs() []patterns.ExamplePair {
	return []patterns.ExamplePair{
		{
			Input:  map[string]any{"vendor": "Acme Corp", "amount": "1,200"},
			Output: map[string]any{"vendor": "Acme Corp", "total": float64(1200)},
		},
		{
			Input:  map[string]any{"vendor": "Bolt Ltd", "amount": "3,400"},
			Output: map[string]any{"vendor": "Bolt Ltd", "total": float64(3400)},
		},
	}
}

func TestCreateArtifact(t *testing.T) {
	svc := newTestService(t, Options{})

	result, err := svc.CreateArtifact(context.Background(), CreateRequest{
		Name:   "invoice-extractor",
		Domain: "invoice",
		Tags:   []string{"finance"},
		Pairs:  invoicePairs(),
	})
	require.NoError(t, err)

	require.NotNil(t, result.Artifact)
	assert.Equal(t, "0.1.0", result.Artifact.Version)
	for _, f := range synth.RequiredFiles {
		assert.Contains(t, result.Artifact.Files, f)
	}

	require.NotNil(t, result.Metadata)
	assert.Equal(t, testNamespace+"invoice-extractor", result.Metadata.SymbolPath)
	assert.Equal(t, 2, result.Metadata.ExampleCount)
	assert.NotEmpty(t, result.Metadata.UUID)

	meta, err := svc.Registry().Metadata("invoice-extractor")
	require.NoError(t, err)
	assert.Equal(t, result.Metadata.UUID, meta.UUID)
}

func TestCreateArtifact_NoExamples(t *testing.T) {
	svc := newTestService(t, Options{})
	_, err := svc.CreateArtifact(context.Background(), CreateRequest{Name: "x"})
	assert.ErrorIs(t, err, ErrNoExamples)
}

func TestCreateArtifact_DuplicateName(t *testing.T) {
	svc := newTestService(t, Options{})
	req := CreateRequest{Name: "dup", Domain: "generic", Pairs: invoicePairs()}

	_, err := svc.CreateArtifact(context.Background(), req)
	require.NoError(t, err)
	_, err = svc.CreateArtifact(context.Background(), req)
	assert.ErrorIs(t, err, registry.ErrDuplicate)
}

func TestRegisteredArtifactIsLoadable(t *testing.T) {
	completer := extract.CompleterFunc(func(_ context.Context, prompt string) (map[string]any, error) {
		return map[string]any{"vendor": "Acme Corp", "total": float64(1200)}, nil
	})
	svc := newTestService(t, Options{Completer: completer})

	_, err := svc.CreateArtifact(context.Background(), CreateRequest{
		Name: "loadable", Domain: "generic", Pairs: invoicePairs(),
	})
	require.NoError(t, err)

	ext, meta, err := svc.Registry().Get("loadable")
	require.NoError(t, err)
	assert.Equal(t, "loadable", ext.Name())
	assert.True(t, ext.Available())
	assert.Equal(t, testNamespace+"loadable", meta.SymbolPath)

	out, err := ext.Extract(context.Background(), "INVOICE vendor: Acme Corp amount: 1,200")
	require.NoError(t, err)
	assert.Equal(t, float64(1200), out["total"])
}

func TestRefiner_UnknownArtifact(t *testing.T) {
	svc := newTestService(t, Options{})
	_, err := svc.Refiner("ghost")
	assert.ErrorIs(t, err, ErrUnknownArtifact)
}

// improvingEvaluator fails half its cases on the first pass and all
// pass once a regeneration has happened.
type improvingEvaluator struct {
	svc       *Service
	name      string
	evaluated int
}

func (e *improvingEvaluator) Evaluate(_ context.Context, cases []refine.LabeledCase) (*refine.Evaluation, error) {
	e.evaluated++
	eval := &refine.Evaluation{Total: len(cases)}
	artifact, err := e.svc.Artifact(e.name)
	if err != nil {
		return nil, err
	}
	if artifact.Version == "0.1.0" {
		for _, c := range cases {
			eval.Failures = append(eval.Failures, refine.FailureRecord{
				Input:    c.Input,
				Expected: c.Expected,
				Actual:   map[string]any{},
			})
		}
		return eval, nil
	}
	eval.Passed = len(cases)
	return eval, nil
}

func TestRefine_EndToEnd(t *testing.T) {
	svc := newTestService(t, Options{})
	_, err := svc.CreateArtifact(context.Background(), CreateRequest{
		Name: "refinable", Domain: "invoice", Pairs: invoicePairs(),
	})
	require.NoError(t, err)

	cases := []refine.LabeledCase{
		{Input: "doc a", Expected: map[string]any{"total": float64(1200)}},
		{Input: "doc b", Expected: map[string]any{"total": float64(3400)}},
	}
	evaluator := &improvingEvaluator{svc: svc, name: "refinable"}

	result, err := svc.Refine(context.Background(), "refinable", cases, evaluator, refine.DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, refine.OutcomeTarget, result.Outcome)
	assert.Len(t, result.Iterations, 2)

	// Regeneration bumped the patch version and kept the catalog in step.
	meta, err := svc.Registry().Metadata("refinable")
	require.NoError(t, err)
	assert.Equal(t, "0.1.1", meta.Version)

	artifact, err := svc.Artifact("refinable")
	require.NoError(t, err)
	assert.Equal(t, "0.1.1", artifact.Version)
	// The missing-field refinement lands in the regenerated prompt.
	assert.Contains(t, artifact.Files[synth.FilePrompt], "total")
}

func TestGuidanceAccumulatesWithoutDuplicates(t *testing.T) {
	svc := newTestService(t, Options{})
	_, err := svc.CreateArtifact(context.Background(), CreateRequest{
		Name: "accum", Domain: "generic", Pairs: invoicePairs(),
	})
	require.NoError(t, err)

	regen, err := svc.Refiner("accum")
	require.NoError(t, err)

	refs := []refine.Refinement{{
		Kind:       refine.RefineParsingRule,
		Target:     "total",
		Suggestion: "Strip thousands separators before conversion.",
		Priority:   refine.PriorityHigh,
	}}
	require.NoError(t, regen.Regenerate(context.Background(), refs))
	require.NoError(t, regen.Regenerate(context.Background(), refs))

	svc.mu.Lock()
	guidance := svc.state["accum"].guidance
	svc.mu.Unlock()
	assert.Len(t, guidance, 1)

	meta, err := svc.Registry().Metadata("accum")
	require.NoError(t, err)
	assert.Equal(t, "0.1.2", meta.Version)
}

func TestBumpPatch(t *testing.T) {
	v, err := bumpPatch("1.2.3")
	require.NoError(t, err)
	assert.Equal(t, "1.2.4", v)

	_, err = bumpPatch("not-a-version")
	assert.Error(t, err)
}

func TestPromptExtractor_NoCompleter(t *testing.T) {
	p := &promptExtractor{name: "x"}
	assert.False(t, p.Available())
	_, err := p.Extract(context.Background(), "doc")
	assert.True(t, errors.Is(err, ErrNoCompleter))
}
