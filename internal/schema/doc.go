// Package schema infers structural schemas from example values.
//
// An inferred Schema maps dotted field paths to Field descriptors
// (type, nullability, required-ness, nesting depth, bounded sample
// values). Inference walks each example recursively and unions the
// observed types per path into a closed type set: mixed integer and
// float observations widen to float, a null observation marks the
// field nullable, and irreconcilable observations degrade to unknown
// rather than failing.
//
// The package also provides Diff, which compares two schemas and
// reports ordered differences (field added, field removed, type
// changed, field renamed). Renames are inferred heuristically by
// matching a removed field against an added field with similar
// sample values; the similarity threshold is tunable.
package schema
