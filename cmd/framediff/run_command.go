package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"framediff/internal/config"
	"framediff/internal/frames"
	"framediff/internal/ledger"
	"framediff/internal/logging"
	"framediff/internal/pipeline"
	"framediff/internal/results"
	"framediff/internal/services"
)

type runOptions struct {
	maxFrames int
	delay     float64
	classes   []string
	dryRun    bool
	jsonOut   bool
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Describe every video in the frames tree and store per-video records",
		Long: "Walks <frames_dir>/<class>/<video_id>/, describes each video in baseline and diff mode,\n" +
			"scores both description sequences and writes <results_dir>/<class>/<video_id>.json.\n" +
			"Videos with an existing result file are skipped, so an interrupted run resumes where it stopped.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("max-frames") {
				cfg.Pipeline.MaxFrames = opts.maxFrames
			}
			if cmd.Flags().Changed("delay") {
				cfg.Pipeline.CallDelaySeconds = opts.delay
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			return runBatch(cmd, cfg, logger, opts)
		},
	}

	cmd.Flags().IntVar(&opts.maxFrames, "max-frames", 0, "Use only the first N frames of each video (0 = all)")
	cmd.Flags().Float64Var(&opts.delay, "delay", 0, "Seconds to pause after each successful model call")
	cmd.Flags().StringSliceVar(&opts.classes, "class", nil, "Only process these classes (repeatable)")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "List the videos that would be processed without calling the model")
	cmd.Flags().BoolVar(&opts.jsonOut, "json", false, "Output the run summary as JSON")
	return cmd
}

func runBatch(cmd *cobra.Command, cfg *config.Config, logger *slog.Logger, opts runOptions) error {
	if err := config.RequireReadableDir("paths.frames_dir", cfg.Paths.FramesDir); err != nil {
		return err
	}
	tasks, err := frames.ScanTasks(cfg.Paths.FramesDir)
	if err != nil {
		return err
	}
	tasks = filterTasks(tasks, opts.classes)
	store := results.NewStore(cfg.Paths.ResultsDir)

	if opts.dryRun {
		return printPlan(cmd, store, tasks, opts.jsonOut)
	}

	client, err := newModelClient(cfg)
	if err != nil {
		return err
	}
	sc, err := loadScoring(cfg)
	if err != nil {
		return err
	}

	lock := flock.New(cfg.LockPath())
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire run lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another framediff run is already writing to %s", cfg.Paths.ResultsDir)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn("failed to release run lock", logging.Error(err))
		}
	}()

	runCtx := cmd.Context()
	if runCtx == nil {
		runCtx = context.Background()
	}
	// Logs carry a run id even when the ledger cannot be opened.
	runID := uuid.NewString()
	book, run := startLedgerRun(runCtx, cfg, logger, ledger.KindBatch)
	if book != nil {
		defer book.Close()
		runID = run.ID
	}
	runCtx = services.WithRunID(runCtx, runID)

	orchestrator := pipeline.New(client, store, sc.counter, sc.vocab, pipeline.Settings{
		MaxFrames:        cfg.Pipeline.MaxFrames,
		CallDelay:        cfg.CallDelay(),
		MaxOutputTokens:  cfg.VLM.MaxOutputTokens,
		BaselinePrompt:   cfg.Pipeline.BaselinePrompt,
		DiffPrompt:       cfg.Pipeline.DiffPrompt,
		InitialFrameText: cfg.Pipeline.InitialFrameText,
	}, pipeline.WithLogger(logger))

	bar := newProgressBar(len(tasks), "describing videos", !opts.jsonOut && isTerminal(os.Stderr))
	logging.WithContext(runCtx, logger).Info("batch starting",
		logging.Int("videos", len(tasks)),
		logging.Int("max_frames", cfg.Pipeline.MaxFrames),
		logging.String("model", client.Model()),
	)

	summary, runErr := orchestrator.RunBatch(runCtx, tasks, func(outcome pipeline.Outcome) {
		_ = bar.Add(1)
		if book == nil {
			return
		}
		if err := book.RecordOutcome(context.WithoutCancel(runCtx), run.ID, ledgerOutcome(outcome)); err != nil {
			logger.Warn("ledger write failed", logging.Error(err))
		}
	})
	_ = bar.Finish()

	if book != nil {
		status := ledger.StatusCompleted
		if runErr != nil {
			status = ledger.StatusCancelled
		}
		counts := ledger.Counts{Processed: summary.Processed, Skipped: summary.Skipped, Empty: summary.Empty, Failed: summary.Failed}
		if err := book.FinishRun(context.WithoutCancel(runCtx), run.ID, status, counts); err != nil {
			logger.Warn("ledger write failed", logging.Error(err))
		}
	}

	if opts.jsonOut {
		if err := writeJSON(cmd, batchReport(runID, summary, runErr)); err != nil {
			return err
		}
	} else {
		printBatchSummary(cmd.OutOrStdout(), runID, summary, runErr)
	}
	return runErr
}

func filterTasks(tasks []frames.VideoTask, classes []string) []frames.VideoTask {
	if len(classes) == 0 {
		return tasks
	}
	wanted := make(map[string]struct{}, len(classes))
	for _, class := range classes {
		if trimmed := strings.TrimSpace(class); trimmed != "" {
			wanted[trimmed] = struct{}{}
		}
	}
	filtered := make([]frames.VideoTask, 0, len(tasks))
	for _, task := range tasks {
		if _, ok := wanted[task.Class]; ok {
			filtered = append(filtered, task)
		}
	}
	return filtered
}

type planEntry struct {
	Class   string `json:"class"`
	VideoID string `json:"video_id"`
	Frames  int    `json:"frames"`
	Action  string `json:"action"`
}

func printPlan(cmd *cobra.Command, store *results.Store, tasks []frames.VideoTask, jsonOut bool) error {
	entries := make([]planEntry, 0, len(tasks))
	for _, task := range tasks {
		entry := planEntry{Class: task.Class, VideoID: task.VideoID, Action: "describe"}
		if names, err := frames.ListFrames(task.Dir); err == nil {
			entry.Frames = len(names)
		}
		exists, err := store.Exists(task.Class, task.VideoID)
		switch {
		case err != nil:
			return err
		case exists:
			entry.Action = "skip (result exists)"
		case entry.Frames == 0:
			entry.Action = "skip (no frames)"
		}
		entries = append(entries, entry)
	}
	if jsonOut {
		return writeJSON(cmd, entries)
	}
	out := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintln(out, "No videos found.")
		return nil
	}
	rows := make([][]string, 0, len(entries))
	for _, entry := range entries {
		rows = append(rows, []string{entry.Class, entry.VideoID, fmt.Sprint(entry.Frames), entry.Action})
	}
	fmt.Fprintln(out, renderTable([]column{textCol("Class"), textCol("Video"), numCol("Frames"), textCol("Action")}, rows))
	return nil
}

type batchJSON struct {
	RunID     string          `json:"run_id,omitempty"`
	Processed int             `json:"processed"`
	Skipped   int             `json:"skipped"`
	Empty     int             `json:"empty"`
	Failed    int             `json:"failed"`
	Cancelled bool            `json:"cancelled"`
	Failures  []failureDetail `json:"failures,omitempty"`
}

type failureDetail struct {
	Class   string `json:"class"`
	VideoID string `json:"video_id"`
	Error   string `json:"error"`
}

func batchReport(runID string, summary pipeline.Summary, runErr error) batchJSON {
	report := batchJSON{
		RunID:     runID,
		Processed: summary.Processed,
		Skipped:   summary.Skipped,
		Empty:     summary.Empty,
		Failed:    summary.Failed,
		Cancelled: errors.Is(runErr, context.Canceled),
	}
	for _, outcome := range summary.Outcomes {
		if outcome.Result == pipeline.ResultFailed && outcome.Err != nil {
			report.Failures = append(report.Failures, failureDetail{
				Class:   outcome.Task.Class,
				VideoID: outcome.Task.VideoID,
				Error:   outcome.Err.Error(),
			})
		}
	}
	return report
}

func printBatchSummary(out io.Writer, runID string, summary pipeline.Summary, runErr error) {
	if runErr != nil {
		fmt.Fprintln(out, "Run interrupted; completed videos are saved and will be skipped next time.")
	}
	fmt.Fprintf(out, "Processed: %d  Skipped: %d (empty: %d)  Failed: %d\n",
		summary.Processed, summary.Skipped, summary.Empty, summary.Failed)
	for _, outcome := range summary.Outcomes {
		if outcome.Result == pipeline.ResultFailed && outcome.Err != nil {
			fmt.Fprintf(out, "  failed %s/%s: %v\n", outcome.Task.Class, outcome.Task.VideoID, outcome.Err)
		}
	}
	if runID != "" {
		fmt.Fprintf(out, "Run ID: %s\n", runID)
	}
}

func ledgerOutcome(outcome pipeline.Outcome) ledger.VideoOutcome {
	entry := ledger.VideoOutcome{
		Class:    outcome.Task.Class,
		VideoID:  outcome.Task.VideoID,
		Result:   string(outcome.Result),
		State:    string(outcome.State),
		Frames:   outcome.Frames,
		Calls:    outcome.Calls,
		Duration: outcome.Duration,
	}
	if outcome.Err != nil {
		entry.Error = outcome.Err.Error()
	}
	return entry
}

// startLedgerRun opens the ledger and inserts a run row. Ledger problems are
// logged and yield a nil store; they never block the command.
func startLedgerRun(ctx context.Context, cfg *config.Config, logger *slog.Logger, kind string) (*ledger.Store, ledger.Run) {
	book, err := ledger.OpenFromConfig(cfg)
	if err != nil {
		logging.WarnWithContext(logger, "run ledger unavailable", "ledger_open_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "run history not recorded"),
			logging.String(logging.FieldErrorHint, "delete "+cfg.LedgerPath()+" if the schema changed"),
		)
		return nil, ledger.Run{}
	}
	run, err := book.StartRun(ctx, kind)
	if err != nil {
		logging.WarnWithContext(logger, "run ledger unavailable", "ledger_write_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "run history not recorded"),
		)
		_ = book.Close()
		return nil, ledger.Run{}
	}
	return book, run
}

func newProgressBar(total int, description string, enabled bool) *progressbar.ProgressBar {
	if !enabled {
		return progressbar.DefaultSilent(int64(total))
	}
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}
