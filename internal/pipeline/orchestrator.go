package pipeline

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"time"

	"framediff/internal/frames"
	"framediff/internal/logging"
	"framediff/internal/metrics"
	"framediff/internal/results"
	"framediff/internal/services"
	"framediff/internal/tokenizer"
)

// Orchestrator turns video tasks into persisted records.
type Orchestrator struct {
	describer Describer
	store     *results.Store
	counter   tokenizer.Counter
	vocab     *metrics.Vocabulary
	settings  Settings
	logger    *slog.Logger
	sleeper   func(time.Duration)
	observer  func(frames.VideoTask, State)
	now       func() time.Time
}

// Option customizes the orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the base logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithSleeper overrides how inter-call pauses are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(o *Orchestrator) {
		o.sleeper = sleeper
	}
}

// WithStateObserver registers a callback invoked on every state transition.
func WithStateObserver(observer func(frames.VideoTask, State)) Option {
	return func(o *Orchestrator) {
		o.observer = observer
	}
}

// New constructs an orchestrator. The vocabulary is shared read-only.
func New(describer Describer, store *results.Store, counter tokenizer.Counter, vocab *metrics.Vocabulary, settings Settings, opts ...Option) *Orchestrator {
	if vocab == nil {
		vocab = metrics.DefaultVocabulary()
	}
	o := &Orchestrator{
		describer: describer,
		store:     store,
		counter:   counter,
		vocab:     vocab,
		settings:  settings,
		logger:    logging.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = logging.NewComponentLogger(o.logger, "pipeline")
	return o
}

// Process runs one video to a terminal state. The returned error is non-nil
// only for failures; SKIPPED and EMPTY videos return a nil error, though an
// EMPTY outcome carries an ErrEmptyInput in Outcome.Err.
func (o *Orchestrator) Process(ctx context.Context, task frames.VideoTask) (Outcome, error) {
	start := o.now()
	ctx = services.WithVideo(ctx, task.Class, task.VideoID)
	logger := logging.WithContext(ctx, o.logger)
	outcome := Outcome{Task: task, Path: o.store.Path(task.Class, task.VideoID)}
	finish := func(state State, result Result, err error) (Outcome, error) {
		outcome.State = state
		outcome.Result = result
		outcome.Err = err
		outcome.Duration = o.now().Sub(start)
		o.transition(task, state)
		return outcome, err
	}

	o.transition(task, StatePending)

	exists, err := o.store.Exists(task.Class, task.VideoID)
	if err != nil {
		return finish(StateFailed, ResultFailed, err)
	}
	if exists {
		logger.Info("result exists, skipping", logging.String(logging.FieldState, string(StateSkipped)))
		return finish(StateSkipped, ResultSkipped, nil)
	}

	frameList, err := frames.Load(task.Dir, o.settings.MaxFrames)
	if err != nil {
		return finish(StateFailed, ResultFailed, err)
	}
	outcome.Frames = len(frameList)
	if len(frameList) == 0 {
		emptyErr := services.Wrap(services.ErrEmptyInput, "pipeline", "load frames", "no frames in "+task.Dir, nil)
		logging.WarnWithContext(logger, "no frames found", services.Kind(emptyErr),
			logging.String("frame_dir", task.Dir),
			logging.Error(emptyErr),
			logging.String(logging.FieldErrorHint, "run framediff extract or check the frame directory"),
		)
		empty, _ := finish(StateEmpty, ResultSkipped, emptyErr)
		return empty, nil
	}

	images, err := decodeFrames(frameList)
	if err != nil {
		return finish(StateFailed, ResultFailed, err)
	}

	logger.Info("processing video", logging.Int("frames", len(frameList)))

	o.transition(task, StateBaselineRunning)
	baseline, calls, err := o.describeBaseline(ctx, images)
	outcome.Calls += calls
	if err != nil {
		return finish(StateFailed, ResultFailed, err)
	}

	o.transition(task, StateDiffRunning)
	diff, calls, err := o.describeDiff(ctx, images)
	outcome.Calls += calls
	if err != nil {
		return finish(StateFailed, ResultFailed, err)
	}

	rec := o.buildRecord(task, frameList, baseline, diff)
	o.transition(task, StateMetricsComputed)

	path, err := o.store.Save(rec)
	if err != nil {
		return finish(StateFailed, ResultFailed, err)
	}
	outcome.Path = path
	outcome.Record = &rec

	logger.Info("video processed",
		logging.String(logging.FieldState, string(StatePersisted)),
		logging.Int("baseline_tokens", rec.BaselineTokens),
		logging.Int("diff_tokens", rec.DiffTokens),
		logging.Int("model_calls", outcome.Calls),
		logging.String("result_path", path),
	)
	return finish(StatePersisted, ResultProcessed, nil)
}

// buildRecord scores both sequences and assembles the persisted record.
func (o *Orchestrator) buildRecord(task frames.VideoTask, frameList []frames.Frame, baseline, diff []string) results.Record {
	baseScores := metrics.Score(o.vocab, task.Class, baseline)
	diffScores := metrics.Score(o.vocab, task.Class, diff)
	return results.Record{
		VideoID:                      task.VideoID,
		Class:                        task.Class,
		NumFrames:                    len(frameList),
		FrameDir:                     task.Dir,
		FrameFiles:                   frames.Names(frameList),
		BaselineTexts:                baseline,
		DiffTexts:                    diff,
		BaselineTokens:               tokenizer.CountSequence(o.counter, baseline),
		DiffTokens:                   tokenizer.CountSequence(o.counter, diff),
		LexicalRedundancyBaselineAvg: baseScores.Redundancy,
		LexicalRedundancyDiffAvg:     diffScores.Redundancy,
		LexicalRedundancyBaselineAll: baseScores.RedundancyPairs,
		LexicalRedundancyDiffAll:     diffScores.RedundancyPairs,
		InfoDensityBaseline:          baseScores.Density,
		InfoDensityDiff:              diffScores.Density,
		InfoDensityBaselinePerFrame:  baseScores.DensityPerFrame,
		InfoDensityDiffPerFrame:      diffScores.DensityPerFrame,
	}
}

func (o *Orchestrator) transition(task frames.VideoTask, state State) {
	if o.observer != nil {
		o.observer(task, state)
	}
}

func decodeFrames(frameList []frames.Frame) ([]image.Image, error) {
	images := make([]image.Image, len(frameList))
	for i, frame := range frameList {
		img, err := frame.Decode()
		if err != nil {
			return nil, services.Wrap(services.ErrRequest, "pipeline", fmt.Sprintf("decode frame %d", frame.Index), frame.Name, err)
		}
		images[i] = img
	}
	return images, nil
}
