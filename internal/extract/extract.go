// Package extract defines the capability surface shared by generated
// extraction artifacts and the components that load and evaluate them.
//
// The engine itself never executes generated source; it talks to
// artifacts through the Extractor interface, and artifacts talk to a
// language model through Completer. Both are black boxes to the core:
// timeout and cancellation come from the caller's context, and no retry
// policy is imposed here.
package extract

import "context"

// Extractor is the required capability of a loadable artifact: turn a
// raw document into a structured value. The registry verifies this
// interface before returning a loaded symbol.
type Extractor interface {
	// Extract parses content into the artifact's output structure.
	Extract(ctx context.Context, content string) (map[string]any, error)

	// Name returns the artifact identifier.
	Name() string

	// Available reports whether the extractor is configured and ready,
	// e.g. whether its completion backend is reachable.
	Available() bool
}

// Completer is the abstract completion capability handed to generated
// artifacts: turn a prompt string into a structured value. Callers own
// timeout and cancellation via ctx.
type Completer interface {
	Complete(ctx context.Context, prompt string) (map[string]any, error)
}

// CompleterFunc adapts a function to the Completer interface.
type CompleterFunc func(ctx context.Context, prompt string) (map[string]any, error)

// Complete implements Completer.
func (f CompleterFunc) Complete(ctx context.Context, prompt string) (map[string]any, error) {
	return f(ctx, prompt)
}
