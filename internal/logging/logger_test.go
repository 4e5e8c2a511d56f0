package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger_ValidConfig(t *testing.T) {
	logger, err := NewLogger(NewDefaultConfig())
	require.NoError(t, err)
	require.NotNil(t, logger)
	assert.True(t, logger.Enabled(zapcore.InfoLevel))
	assert.False(t, logger.Enabled(zapcore.DebugLevel))
}

func TestNewLogger_InvalidLevel(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Level = "verbose"
	_, err := NewLogger(cfg)
	require.Error(t, err)
}

func TestNewLogger_InvalidFormat(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Format = "xml"
	_, err := NewLogger(cfg)
	require.Error(t, err)
}

func TestContextFields(t *testing.T) {
	ctx := WithRunID(context.Background(), "run-42")
	ctx = WithArtifact(ctx, "filing-extractor")

	fields := ContextFields(ctx)
	require.Len(t, fields, 2)
	assert.Equal(t, "run.id", fields[0].Key)
	assert.Equal(t, "artifact.name", fields[1].Key)
}

func TestContextFields_Empty(t *testing.T) {
	assert.Empty(t, ContextFields(context.Background()))
}

func TestLogger_ContextCorrelation(t *testing.T) {
	tl := NewTestLogger()
	ctx := WithArtifact(context.Background(), "invoice-extractor")

	tl.Info(ctx, "artifact registered", zap.Int("fields", 3))

	entries := tl.FilterMessage("artifact registered").All()
	require.Len(t, entries, 1)
	got := entries[0].ContextMap()
	assert.Equal(t, "invoice-extractor", got["artifact.name"])
	assert.Equal(t, int64(3), got["fields"])
}

func TestLogger_Named(t *testing.T) {
	tl := NewTestLogger()
	tl.Named("refine").Info(context.Background(), "loop done")
	entries := tl.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "refine", entries[0].LoggerName)
}
