// Package logging assembles structured slog loggers and formatting helpers used
// across framediff commands.
//
// It owns the console, JSON and colorized handlers, centralizes level and
// output plumbing, and exposes context-aware helpers so pipeline code tags
// log lines with the run id, class, video id and description mode. A no-op
// logger is provided for tests and wiring code that cannot fail.
package logging
