package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrServiceExhausted marks a model call that used up its retry budget.
	ErrServiceExhausted = errors.New("service exhausted")
	// ErrEmptyInput marks a video with zero frames after loading and truncation.
	ErrEmptyInput = errors.New("empty input")
	// ErrMalformedRecord marks a persisted record that is missing required fields.
	ErrMalformedRecord = errors.New("malformed record")
	// ErrConfiguration marks missing credentials or unusable paths detected at startup.
	ErrConfiguration = errors.New("configuration error")

	// ErrRateLimited marks a single attempt rejected by the service quota.
	ErrRateLimited = errors.New("rate limited")
	// ErrTransient marks a single attempt that failed for a likely temporary reason.
	ErrTransient = errors.New("transient failure")
	// ErrRequest marks a non-retryable request failure (malformed request, auth).
	ErrRequest = errors.New("request error")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind returns a stable snake_case label for the taxonomy marker carried by err.
// Errors without a known marker report "error"; nil reports "".
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrServiceExhausted):
		return "service_exhausted"
	case errors.Is(err, ErrEmptyInput):
		return "empty_input"
	case errors.Is(err, ErrMalformedRecord):
		return "malformed_record"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrRequest):
		return "request"
	case errors.Is(err, ErrTransient):
		return "transient"
	default:
		return "error"
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
