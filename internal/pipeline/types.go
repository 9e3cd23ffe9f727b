package pipeline

import (
	"context"
	"image"
	"time"

	"framediff/internal/frames"
	"framediff/internal/results"
)

// State is a per-video processing state.
type State string

const (
	StatePending         State = "PENDING"
	StateBaselineRunning State = "BASELINE_RUNNING"
	StateDiffRunning     State = "DIFF_RUNNING"
	StateMetricsComputed State = "METRICS_COMPUTED"
	StatePersisted       State = "PERSISTED"
	StateSkipped         State = "SKIPPED"
	StateEmpty           State = "EMPTY"
	StateFailed          State = "FAILED"
)

// Terminal reports whether no further transition follows s.
func (s State) Terminal() bool {
	switch s {
	case StatePersisted, StateSkipped, StateEmpty, StateFailed:
		return true
	default:
		return false
	}
}

// Result summarizes a video outcome for batch accounting.
type Result string

const (
	ResultProcessed Result = "processed"
	ResultSkipped   Result = "skipped"
	ResultFailed    Result = "failed"
)

// Mode names a description mode.
type Mode string

const (
	ModeBaseline Mode = "baseline"
	ModeDiff     Mode = "diff"
)

// Describer generates text for one frame or a consecutive frame pair.
type Describer interface {
	DescribeSingle(ctx context.Context, img image.Image, prompt string, maxTokens int) (string, error)
	DescribePair(ctx context.Context, prev, curr image.Image, prompt string, maxTokens int) (string, error)
}

// Settings are the per-run knobs of the orchestrator.
type Settings struct {
	// MaxFrames truncates each video to its first N frames; 0 keeps all.
	MaxFrames        int
	CallDelay        time.Duration
	MaxOutputTokens  int
	BaselinePrompt   string
	DiffPrompt       string
	InitialFrameText string
}

// Outcome reports how one video finished.
type Outcome struct {
	Task     frames.VideoTask
	State    State
	Result   Result
	Path     string
	Frames   int
	Calls    int
	Duration time.Duration
	Record   *results.Record
	Err      error
}

// Summary counts batch outcomes.
type Summary struct {
	Processed int
	Skipped   int
	Empty     int
	Failed    int
	Outcomes  []Outcome
}

// Total returns the number of videos visited.
func (s Summary) Total() int {
	return s.Processed + s.Skipped + s.Failed
}

func (s *Summary) add(outcome Outcome) {
	switch outcome.Result {
	case ResultProcessed:
		s.Processed++
	case ResultSkipped:
		s.Skipped++
		if outcome.State == StateEmpty {
			s.Empty++
		}
	case ResultFailed:
		s.Failed++
	}
	s.Outcomes = append(s.Outcomes, outcome)
}
