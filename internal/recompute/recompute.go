package recompute

import (
	"context"
	"errors"
	"log/slog"

	"framediff/internal/logging"
	"framediff/internal/metrics"
	"framediff/internal/results"
	"framediff/internal/services"
	"framediff/internal/tokenizer"
)

// ObsoleteKeys are fields written by earlier metric versions.
var ObsoleteKeys = []string{
	"visual_changes",
	"text_changes_baseline",
	"text_changes_diff",
	"motion_text_alignment_baseline",
	"motion_text_alignment_diff",
}

// Summary counts records visited by Run.
type Summary struct {
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
	Removed int `json:"removed"`
}

// Runner rescores records in a results store.
type Runner struct {
	store   *results.Store
	counter tokenizer.Counter
	vocab   *metrics.Vocabulary
	logger  *slog.Logger
	dryRun  bool
}

// Option customizes the runner.
type Option func(*Runner)

// WithLogger sets the base logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithDryRun reports what would change without writing.
func WithDryRun(enabled bool) Option {
	return func(r *Runner) {
		r.dryRun = enabled
	}
}

// New constructs a runner.
func New(store *results.Store, counter tokenizer.Counter, vocab *metrics.Vocabulary, opts ...Option) *Runner {
	if vocab == nil {
		vocab = metrics.DefaultVocabulary()
	}
	r := &Runner{store: store, counter: counter, vocab: vocab, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logging.NewComponentLogger(r.logger, "recompute")
	return r
}

// Run rescores every record. Records without both text sequences, or that
// cannot be decoded, are warned about and skipped.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	var summary Summary
	paths, err := r.store.List()
	if err != nil {
		return summary, err
	}
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		removed, err := r.rescore(path)
		if err != nil {
			if !errors.Is(err, services.ErrMalformedRecord) {
				return summary, err
			}
			logging.WarnWithContext(r.logger, "record skipped", "malformed_record",
				logging.String("path", path),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "rerun the batch for this video after deleting the record"),
			)
			summary.Skipped++
			continue
		}
		summary.Updated++
		summary.Removed += removed
	}
	r.logger.Info("recompute complete",
		logging.Int("updated", summary.Updated),
		logging.Int("skipped", summary.Skipped),
		logging.Int("obsolete_fields_removed", summary.Removed),
		logging.Bool("dry_run", r.dryRun),
	)
	return summary, nil
}

func (r *Runner) rescore(path string) (int, error) {
	doc, err := results.LoadDocument(path)
	if err != nil {
		return 0, err
	}
	rec, _ := doc.Fields()
	if !rec.HasTexts() {
		return 0, services.Wrap(services.ErrMalformedRecord, "recompute", "", "missing baseline_texts or diff_texts", nil)
	}

	Apply(&rec, r.counter, r.vocab)
	if err := doc.MergeMetrics(rec); err != nil {
		return 0, err
	}
	removed := doc.Delete(ObsoleteKeys...)
	r.logger.Debug("record rescored",
		logging.String(logging.FieldClass, rec.Class),
		logging.String(logging.FieldVideoID, rec.VideoID),
		logging.Int("obsolete_fields_removed", removed),
	)
	if r.dryRun {
		return removed, nil
	}
	return removed, results.SaveDocument(path, doc)
}

// Apply rederives every metric field of rec from its text sequences. An
// empty class label scores against the default vocabulary.
func Apply(rec *results.Record, counter tokenizer.Counter, vocab *metrics.Vocabulary) {
	base := metrics.Score(vocab, rec.Class, rec.BaselineTexts)
	diff := metrics.Score(vocab, rec.Class, rec.DiffTexts)
	rec.BaselineTokens = tokenizer.CountSequence(counter, rec.BaselineTexts)
	rec.DiffTokens = tokenizer.CountSequence(counter, rec.DiffTexts)
	rec.LexicalRedundancyBaselineAvg = base.Redundancy
	rec.LexicalRedundancyDiffAvg = diff.Redundancy
	rec.LexicalRedundancyBaselineAll = base.RedundancyPairs
	rec.LexicalRedundancyDiffAll = diff.RedundancyPairs
	rec.InfoDensityBaseline = base.Density
	rec.InfoDensityDiff = diff.Density
	rec.InfoDensityBaselinePerFrame = base.DensityPerFrame
	rec.InfoDensityDiffPerFrame = diff.DensityPerFrame
}
