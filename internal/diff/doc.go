// Package diff implements the word-level comparison engine.
//
// It aligns the OCR word sequence against the reference transcript and
// classifies every word as correct, wrong, missing, or extra. A second
// reconciliation pass absorbs contraction mismatches ("I'll" vs "I will")
// and number-form mismatches ("3" vs "three") that single-token alignment
// cannot see.
//
// The engine is a pure function over two token sequences: no I/O, no
// shared mutable state, safe for concurrent use.
package diff
