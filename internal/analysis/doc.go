// Package analysis aggregates persisted per-video records into one row per
// class and renders the result as a console table and a CSV summary.
//
// Aggregation is recomputed from scratch on every call. Records group by
// their stored class label (case-sensitive); rows sort case-insensitively.
// Missing numeric fields count as zero and unreadable records are skipped
// with a warning, so one bad file never aborts a report.
package analysis
