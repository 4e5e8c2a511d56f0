package logging

import (
	"context"

	"go.uber.org/zap"
)

type runCtxKey struct{}
type artifactCtxKey struct{}

// WithRunID attaches a refinement-run identifier to the context.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runCtxKey{}, runID)
}

// RunIDFromContext returns the run ID, or "" when absent.
func RunIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(runCtxKey{}).(string); ok {
		return v
	}
	return ""
}

// WithArtifact attaches an artifact name to the context.
func WithArtifact(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, artifactCtxKey{}, name)
}

// ArtifactFromContext returns the artifact name, or "" when absent.
func ArtifactFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(artifactCtxKey{}).(string); ok {
		return v
	}
	return ""
}

// ContextFields extracts correlation data from context.
func ContextFields(ctx context.Context) []zap.Field {
	fields := make([]zap.Field, 0, 2)
	if runID := RunIDFromContext(ctx); runID != "" {
		fields = append(fields, zap.String("run.id", runID))
	}
	if artifact := ArtifactFromContext(ctx); artifact != "" {
		fields = append(fields, zap.String("artifact.name", artifact))
	}
	return fields
}
