// Package logging wraps zap with context-aware methods and the
// correlation fields used across artifact synthesis and refinement
// runs. All packages log through this wrapper so run and artifact
// identifiers appear consistently.
package logging
