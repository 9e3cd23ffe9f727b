package services

import "context"

type contextKey string

const (
	runIDKey   contextKey = "run_id"
	classKey   contextKey = "class"
	videoIDKey contextKey = "video_id"
	modeKey    contextKey = "mode"
)

// WithRunID annotates context with the batch run identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext extracts the batch run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(runIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithVideo annotates context with the class label and video identifier.
func WithVideo(ctx context.Context, class, videoID string) context.Context {
	if class != "" {
		ctx = context.WithValue(ctx, classKey, class)
	}
	if videoID != "" {
		ctx = context.WithValue(ctx, videoIDKey, videoID)
	}
	return ctx
}

// VideoFromContext returns the class label and video identifier if present.
func VideoFromContext(ctx context.Context) (class, videoID string, ok bool) {
	class, _ = ctx.Value(classKey).(string)
	videoID, _ = ctx.Value(videoIDKey).(string)
	return class, videoID, class != "" || videoID != ""
}

// WithMode annotates context with the description mode (baseline or diff).
func WithMode(ctx context.Context, mode string) context.Context {
	if mode == "" {
		return ctx
	}
	return context.WithValue(ctx, modeKey, mode)
}

// ModeFromContext returns the description mode if present.
func ModeFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(modeKey)
	if str, ok := v.(string); ok && str != "" {
		return str, true
	}
	return "", false
}
