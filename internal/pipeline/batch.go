package pipeline

import (
	"context"
	"errors"

	"framediff/internal/frames"
	"framediff/internal/logging"
	"framediff/internal/services"
)

// RunBatch processes tasks in order. Per-video failures are logged and
// counted; only context cancellation stops the batch early, in which case the
// partial summary is returned with the context error. onOutcome, when
// non-nil, is called after each video.
func (o *Orchestrator) RunBatch(ctx context.Context, tasks []frames.VideoTask, onOutcome func(Outcome)) (Summary, error) {
	var summary Summary
	logger := logging.WithContext(ctx, o.logger)
	for _, task := range tasks {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		outcome, err := o.Process(ctx, task)
		if err != nil {
			if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
				return summary, ctx.Err()
			}
			logging.WarnWithContext(logger, "video failed", services.Kind(err),
				logging.String(logging.FieldClass, task.Class),
				logging.String(logging.FieldVideoID, task.VideoID),
				logging.String(logging.FieldState, string(StateFailed)),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, failureHint(err)),
			)
		}
		summary.add(outcome)
		if onOutcome != nil {
			onOutcome(outcome)
		}
	}
	logger.Info("batch complete",
		logging.Int("processed", summary.Processed),
		logging.Int("skipped", summary.Skipped),
		logging.Int("empty", summary.Empty),
		logging.Int("failed", summary.Failed),
	)
	return summary, nil
}

func failureHint(err error) string {
	switch {
	case errors.Is(err, services.ErrServiceExhausted):
		return "model service kept failing; rerun later to resume from this video"
	case errors.Is(err, services.ErrConfiguration):
		return "check vlm settings in the config file"
	case errors.Is(err, services.ErrRequest):
		return "request rejected; check credentials, model name, and frame files"
	default:
		return "rerun to retry this video"
	}
}
