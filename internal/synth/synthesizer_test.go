package synth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/bobmatnyc/edgar-sub010/internal/patterns"
)

func parsedFixture(t *testing.T) *patterns.ParsedExamples {
	t.Helper()
	pairs := []patterns.ExamplePair{
		{
			Input:  map[string]any{"amount": "1,000,000", "ticker": "ACME"},
			Output: map[string]any{"amount": float64(1000000), "ticker": "ACME", "source": "edgar"},
		},
		{
			Input:  map[string]any{"amount": "2,500,000", "ticker": "GLBX"},
			Output: map[string]any{"amount": float64(2500000), "ticker": "GLBX", "source": "edgar"},
		},
		{
			Input:  map[string]any{"amount": "3,750,000", "ticker": "INIT"},
			Output: map[string]any{"amount": float64(3750000), "ticker": "INIT", "source": "edgar"},
		},
	}
	parsed, err := patterns.NewDetector(patterns.Options{}).Detect(pairs)
	require.NoError(t, err)
	return parsed
}

func fixtureRequest(t *testing.T) Request {
	return Request{
		Name:       "tenk-financials",
		Domain:     "filing",
		SymbolPath: "artifacts/filing/tenk-financials",
		Version:    "1.0.0",
		Parsed:     parsedFixture(t),
	}
}

func TestSynthesize_AllFilesRendered(t *testing.T) {
	art, err := NewSynthesizer(nil).Synthesize(fixtureRequest(t))
	require.NoError(t, err)

	require.Len(t, art.Files, len(RequiredFiles))
	for _, name := range RequiredFiles {
		assert.NotEmpty(t, art.Files[name], "file %q must render", name)
	}
	assert.Equal(t, "tenk-financials", art.Name)
	assert.Equal(t, "1.0.0", art.Version)
}

func TestSynthesize_NumericFieldDeclaration(t *testing.T) {
	art, err := NewSynthesizer(nil).Synthesize(fixtureRequest(t))
	require.NoError(t, err)

	model := art.Files[FileModel]
	assert.Contains(t, model, "Amount int64", "amount must render as a numeric declaration")
	assert.Contains(t, model, "Ticker string")
	assert.Contains(t, model, "type TenkFinancialsRecord struct")
}

func TestSynthesize_Deterministic(t *testing.T) {
	s := NewSynthesizer(nil)
	req := fixtureRequest(t)

	a, err := s.Synthesize(req)
	require.NoError(t, err)
	b, err := s.Synthesize(req)
	require.NoError(t, err)

	assert.Equal(t, a.Files, b.Files, "identical requests must render byte-identical artifacts")
}

func TestSynthesize_DomainMarkers(t *testing.T) {
	art, err := NewSynthesizer(nil).Synthesize(fixtureRequest(t))
	require.NoError(t, err)

	extractor := art.Files[FileExtractor]
	assert.Contains(t, extractor, `"ITEM 7."`)
	assert.Contains(t, extractor, `"SECURITIES AND EXCHANGE COMMISSION"`)
	assert.Contains(t, extractor, `"CONFIDENTIAL TREATMENT REQUESTED"`)
}

func TestSynthesize_ConstantBecomesValidationKeyword(t *testing.T) {
	art, err := NewSynthesizer(nil).Synthesize(fixtureRequest(t))
	require.NoError(t, err)

	// "source" is constant "edgar" across all pairs; it feeds the
	// required-keyword list.
	assert.Contains(t, art.Files[FileExtractor], `"edgar"`)
}

func TestSynthesize_GuidanceInPrompt(t *testing.T) {
	req := fixtureRequest(t)
	req.Guidance = []string{"parse grouped thousands separators before converting amount"}

	art, err := NewSynthesizer(nil).Synthesize(req)
	require.NoError(t, err)
	assert.Contains(t, art.Files[FilePrompt], "parse grouped thousands separators")
}

func TestSynthesize_ManifestRoundTrips(t *testing.T) {
	req := fixtureRequest(t)
	req.GeneratedAt = "2026-08-29T00:00:00Z"
	art, err := NewSynthesizer(nil).Synthesize(req)
	require.NoError(t, err)

	body := art.Files[FileManifest]
	// Strip the generated-file header before unmarshalling.
	idx := strings.Index(body, "\n")
	require.Greater(t, idx, 0)

	var m map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(body[idx+1:]), &m))
	assert.Equal(t, "tenk-financials", m["name"])
	assert.Equal(t, "filing", m["domain"])
	assert.Equal(t, "2026-08-29T00:00:00Z", m["generated_at"])
	assert.NotEmpty(t, m["fields"])
	assert.NotEmpty(t, m["patterns"])
}

func TestSynthesize_MissingVariableFailsFast(t *testing.T) {
	bundle, err := NewBundle(map[string]string{
		FileModel:     `{{.NoSuchVariable}}`,
		FileExtractor: "x",
		FilePrompt:    "p",
		FileTests:     "t",
		FileManifest:  "{{.ManifestYAML}}",
	})
	require.NoError(t, err)

	_, err = NewSynthesizer(bundle).Synthesize(fixtureRequest(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingVariable)
}

func TestNewBundle_RequiresAllFiles(t *testing.T) {
	_, err := NewBundle(map[string]string{FileModel: "only the model"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingTemplate)
}

func TestSynthesize_InvalidRequest(t *testing.T) {
	s := NewSynthesizer(nil)

	tests := []struct {
		name   string
		mutate func(*Request)
	}{
		{"missing name", func(r *Request) { r.Name = "" }},
		{"missing domain", func(r *Request) { r.Domain = "" }},
		{"missing version", func(r *Request) { r.Version = "" }},
		{"missing symbol path", func(r *Request) { r.SymbolPath = "" }},
		{"missing parsed examples", func(r *Request) { r.Parsed = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := fixtureRequest(t)
			tt.mutate(&req)
			_, err := s.Synthesize(req)
			assert.ErrorIs(t, err, ErrInvalidRequest)
		})
	}
}

func TestSynthesize_UnknownDomainFallsBack(t *testing.T) {
	req := fixtureRequest(t)
	req.Domain = "unheard-of"

	art, err := NewSynthesizer(nil).Synthesize(req)
	require.NoError(t, err)
	assert.NotContains(t, art.Files[FileExtractor], "ITEM 7.")
}
