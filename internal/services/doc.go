// Package services defines shared utilities consumed by the description
// pipeline and its external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, class labels, video IDs, and
//     description modes for logging.
//   - Structured error markers plus the Wrap helper that keep the failure
//     taxonomy (service exhausted, empty input, malformed record,
//     configuration) inspectable with errors.Is across package boundaries.
//
// Use these helpers when wiring new pipeline logic so operational behaviour
// (error handling, observability, retries) stays uniform.
package services
