package pipeline

import (
	"context"
	"fmt"
	"image"
	"strings"
	"time"

	"framediff/internal/logging"
	"framediff/internal/services"
)

// DescribeBaseline describes every image independently.
func (o *Orchestrator) DescribeBaseline(ctx context.Context, images []image.Image) ([]string, error) {
	texts, _, err := o.describeBaseline(ctx, images)
	return texts, err
}

// DescribeDiff describes each image relative to its predecessor. Entry 0 is
// the initial-frame sentinel and costs no model call.
func (o *Orchestrator) DescribeDiff(ctx context.Context, images []image.Image) ([]string, error) {
	texts, _, err := o.describeDiff(ctx, images)
	return texts, err
}

func (o *Orchestrator) describeBaseline(ctx context.Context, images []image.Image) ([]string, int, error) {
	ctx = services.WithMode(ctx, string(ModeBaseline))
	logger := logging.WithContext(ctx, o.logger)
	texts := make([]string, 0, len(images))
	calls := 0
	for i, img := range images {
		text, err := o.describer.DescribeSingle(ctx, img, o.settings.BaselinePrompt, o.settings.MaxOutputTokens)
		calls++
		if err != nil {
			return nil, calls, fmt.Errorf("baseline frame %d: %w", i, err)
		}
		texts = append(texts, text)
		logger.Debug("frame described", logging.Int(logging.FieldFrame, i), logging.Int("chars", len(text)))
		if err := o.pause(ctx); err != nil {
			return nil, calls, err
		}
	}
	return texts, calls, nil
}

func (o *Orchestrator) describeDiff(ctx context.Context, images []image.Image) ([]string, int, error) {
	if len(images) == 0 {
		return []string{}, 0, nil
	}
	ctx = services.WithMode(ctx, string(ModeDiff))
	logger := logging.WithContext(ctx, o.logger)
	texts := make([]string, 0, len(images))
	texts = append(texts, o.settings.InitialFrameText)
	calls := 0
	for i := 1; i < len(images); i++ {
		text, err := o.describer.DescribePair(ctx, images[i-1], images[i], o.settings.DiffPrompt, o.settings.MaxOutputTokens)
		calls++
		if err != nil {
			return nil, calls, fmt.Errorf("diff frame %d: %w", i, err)
		}
		texts = append(texts, text)
		logger.Debug("frame described", logging.Int(logging.FieldFrame, i), logging.Int("chars", len(text)))
		if err := o.pause(ctx); err != nil {
			return nil, calls, err
		}
	}
	return texts, calls, nil
}

// pause waits the configured inter-call delay after a successful call.
func (o *Orchestrator) pause(ctx context.Context) error {
	delay := o.settings.CallDelay
	if delay <= 0 {
		return ctx.Err()
	}
	if o.sleeper != nil {
		o.sleeper(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// FrameSummary joins texts as "Frame i: text" lines in frame order.
func FrameSummary(texts []string) string {
	lines := make([]string, len(texts))
	for i, text := range texts {
		lines[i] = fmt.Sprintf("Frame %d: %s", i, text)
	}
	return strings.Join(lines, "\n")
}
