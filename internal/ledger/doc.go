// Package ledger records batch runs in a small SQLite database.
//
// Each run gets a uuid row in runs, one video_outcomes row per video the
// orchestrator touched, and optionally a set of aggregate_snapshots rows when
// analyze computes per-class averages. The ledger is informational only: a
// video's result file remains the sole signal for skipping it on a later run,
// so deleting ledger.db never changes what a batch does.
//
// The schema version lives in PRAGMA user_version. A database written by
// another version is rejected with ErrSchemaMismatch.
package ledger
