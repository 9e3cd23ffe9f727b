package vlm

import (
	"context"
	"errors"
	"net"
	"time"

	"framediff/internal/services"
)

const (
	defaultRetryAttempts       = 5
	defaultRateLimitBaseDelay  = 1 * time.Second
	defaultTransientRetryDelay = 5 * time.Second

	// MaxRateLimitDelay caps a single rate-limit wait.
	MaxRateLimitDelay = 10 * time.Minute
)

// FailureKind classifies a failed attempt for backoff selection.
type FailureKind int

const (
	// FailurePermanent failures are never retried.
	FailurePermanent FailureKind = iota
	// FailureRateLimit failures back off exponentially.
	FailureRateLimit
	// FailureTransient failures wait a fixed delay.
	FailureTransient
)

func (k FailureKind) String() string {
	switch k {
	case FailureRateLimit:
		return "rate_limit"
	case FailureTransient:
		return "transient"
	default:
		return "permanent"
	}
}

// RetryPolicy bounds how many attempts a call may make and how long to wait
// between them for each failure kind.
type RetryPolicy struct {
	MaxAttempts    int
	RateLimitBase  time.Duration
	TransientDelay time.Duration
}

// DefaultRetryPolicy returns the policy used when none is configured:
// five attempts, 1s*2^attempt for rate limits, 5s for other transient faults.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    defaultRetryAttempts,
		RateLimitBase:  defaultRateLimitBaseDelay,
		TransientDelay: defaultTransientRetryDelay,
	}
}

// Attempts returns the effective attempt budget (at least one).
func (p RetryPolicy) Attempts() int {
	if p.MaxAttempts <= 0 {
		return 1
	}
	return p.MaxAttempts
}

// Backoff returns the delay before the next attempt after attempt (0-based)
// failed with kind. The boolean is false when kind must not be retried.
func (p RetryPolicy) Backoff(kind FailureKind, attempt int) (time.Duration, bool) {
	if attempt < 0 {
		attempt = 0
	}
	switch kind {
	case FailureRateLimit:
		base := p.RateLimitBase
		if base <= 0 {
			return 0, true
		}
		if base >= MaxRateLimitDelay {
			return MaxRateLimitDelay, true
		}
		delay := base
		for i := 0; i < attempt && delay < MaxRateLimitDelay; i++ {
			delay *= 2
		}
		return min(delay, MaxRateLimitDelay), true
	case FailureTransient:
		if p.TransientDelay < 0 {
			return 0, true
		}
		return p.TransientDelay, true
	default:
		return 0, false
	}
}

// classifyFailure maps an attempt error onto a FailureKind.
func classifyFailure(ctx context.Context, err error) FailureKind {
	if err == nil {
		return FailurePermanent
	}
	if ctx != nil && ctx.Err() != nil {
		return FailurePermanent
	}
	switch {
	case errors.Is(err, services.ErrRateLimited):
		return FailureRateLimit
	case errors.Is(err, services.ErrTransient):
		return FailureTransient
	case errors.Is(err, services.ErrRequest):
		return FailurePermanent
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return FailureTransient
		}
		return FailurePermanent
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return FailureTransient
	}
	return FailurePermanent
}
