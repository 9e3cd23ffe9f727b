// Package pipeline drives one video at a time through baseline and diff
// description, scoring, and persistence.
//
// Each video moves PENDING -> BASELINE_RUNNING -> DIFF_RUNNING ->
// METRICS_COMPUTED -> PERSISTED. A video whose record already exists ends in
// SKIPPED without any model call; a video with no frames ends in EMPTY. A
// failure at any frame abandons the video without writing anything, so the
// record file on disk is always complete and is the only resume signal.
//
// Processing is strictly sequential: one video, one model call at a time,
// with a fixed pause after every successful call to stay under the service
// quota. RunBatch isolates per-video failures so one bad video never aborts
// the rest of the batch.
package pipeline
