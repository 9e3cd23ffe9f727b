// Package metrics scores ordered description sequences.
//
// Lexical redundancy measures word overlap between adjacent descriptions
// (Jaccard over unique alphanumeric tokens). Information density measures the
// share of whitespace tokens that belong to a class-specific action
// vocabulary unioned with a default vocabulary.
//
// All functions are pure and total: empty or degenerate input yields zero
// scores rather than errors, so persisted text can be rescored at any time.
// The action vocabulary is an immutable value built once and passed in.
package metrics
