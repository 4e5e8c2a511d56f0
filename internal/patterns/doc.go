// Package patterns detects transformation patterns between paired
// input/output examples.
//
// Given 2-5 (input, output) example pairs and their inferred schemas,
// the Detector runs an ordered list of pure recognizers over every
// output field. Each recognizer proposes zero or more scored Pattern
// candidates (direct copy, rename, nested extraction, type conversion,
// concatenation, aggregation and so on). Candidate confidence is the
// fraction of examples consistent with the rule combined with a
// specificity bonus, so an exact structural match always outranks a
// heuristic string match.
//
// All candidates per field are retained and sorted by confidence;
// ambiguity is preserved here and resolved by the caller against its
// own threshold. Output fields no recognizer could explain are recorded
// as warnings on the ParsedExamples, never dropped silently.
package patterns
