package logging

import (
	"context"
	"log/slog"

	"framediff/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldRunID identifies one batch invocation.
	FieldRunID = "run_id"
	// FieldClass is the video's class label as stored.
	FieldClass = "class"
	// FieldVideoID is the video identifier within its class.
	FieldVideoID = "video_id"
	// FieldMode is the description mode (baseline or diff).
	FieldMode = "mode"
	// FieldFrame is the 0-based frame index.
	FieldFrame = "frame"
	// FieldState is the per-video processing state.
	FieldState = "state"
	// FieldEventType classifies warnings and errors for filtering.
	FieldEventType = "event_type"
	// FieldErrorHint suggests a next step to the operator.
	FieldErrorHint = "error_hint"
	// FieldImpact is the user-facing consequence of a warning.
	FieldImpact = "impact"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 4)
	if id, ok := services.RunIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRunID, id))
	}
	if class, videoID, ok := services.VideoFromContext(ctx); ok {
		if class != "" {
			fields = append(fields, slog.String(FieldClass, class))
		}
		if videoID != "" {
			fields = append(fields, slog.String(FieldVideoID, videoID))
		}
	}
	if mode, ok := services.ModeFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldMode, mode))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(toArgs(fields)...)
}
