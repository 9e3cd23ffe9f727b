package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"framediff/internal/analysis"
)

// Run kinds.
const (
	KindBatch     = "batch"
	KindRecompute = "recompute"
	KindAnalyze   = "analyze"
	KindExtract   = "extract"
)

// Run statuses.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
	StatusFailed    = "failed"
)

// Counts are the per-run video totals.
type Counts struct {
	Processed int `json:"processed"`
	Skipped   int `json:"skipped"`
	Empty     int `json:"empty"`
	Failed    int `json:"failed"`
}

// Run is one ledger row.
type Run struct {
	ID         string     `json:"id"`
	Kind       string     `json:"kind"`
	Status     string     `json:"status"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Counts
}

// VideoOutcome records what happened to one video during a run.
type VideoOutcome struct {
	Class    string        `json:"class"`
	VideoID  string        `json:"video_id"`
	Result   string        `json:"result"`
	State    string        `json:"state"`
	Frames   int           `json:"frames"`
	Calls    int           `json:"calls"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
}

// ErrRunNotFound is returned when a run id has no row.
var ErrRunNotFound = errors.New("run not found")

// StartRun inserts a new running row and returns it.
func (s *Store) StartRun(ctx context.Context, kind string) (Run, error) {
	run := Run{
		ID:        uuid.NewString(),
		Kind:      kind,
		Status:    StatusRunning,
		StartedAt: s.now().UTC(),
	}
	err := s.exec(ctx,
		"INSERT INTO runs (id, kind, status, started_at) VALUES (?, ?, ?, ?)",
		run.ID, run.Kind, run.Status, formatTime(run.StartedAt),
	)
	if err != nil {
		return Run{}, fmt.Errorf("insert run: %w", err)
	}
	return run, nil
}

// RecordOutcome appends a video outcome to runID.
func (s *Store) RecordOutcome(ctx context.Context, runID string, outcome VideoOutcome) error {
	err := s.exec(ctx,
		`INSERT INTO video_outcomes
			(run_id, class, video_id, result, state, frames, calls, duration_ms, error, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, outcome.Class, outcome.VideoID, outcome.Result, outcome.State,
		outcome.Frames, outcome.Calls, outcome.Duration.Milliseconds(),
		nullableString(outcome.Error), formatTime(s.now()),
	)
	if err != nil {
		return fmt.Errorf("insert video outcome: %w", err)
	}
	return nil
}

// FinishRun stamps the final status and totals on runID.
func (s *Store) FinishRun(ctx context.Context, runID, status string, counts Counts) error {
	err := s.exec(ctx,
		`UPDATE runs SET status = ?, finished_at = ?, processed = ?, skipped = ?, empty = ?, failed = ?
		WHERE id = ?`,
		status, formatTime(s.now()), counts.Processed, counts.Skipped, counts.Empty, counts.Failed, runID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// RecordSnapshot stores the per-class aggregate rows computed during runID.
func (s *Store) RecordSnapshot(ctx context.Context, runID string, rows []analysis.ClassAggregate) error {
	return withBusyRetry(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()
		for _, row := range rows {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO aggregate_snapshots
					(id, run_id, class, num_videos, avg_baseline_tokens, avg_diff_tokens, avg_token_reduction,
					 avg_lexical_redundancy_baseline, avg_lexical_redundancy_diff,
					 avg_info_density_baseline, avg_info_density_diff)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				uuid.NewString(), runID, row.Class, row.NumVideos,
				row.AvgBaselineTokens, row.AvgDiffTokens, row.AvgTokenReduction,
				row.AvgLexicalRedundancyBaseline, row.AvgLexicalRedundancyDiff,
				row.AvgInfoDensityBaseline, row.AvgInfoDensityDiff,
			); err != nil {
				return fmt.Errorf("insert snapshot row: %w", err)
			}
		}
		return tx.Commit()
	})
}

const runColumns = "id, kind, status, started_at, finished_at, processed, skipped, empty, failed"

func scanRun(scanner interface{ Scan(dest ...any) error }) (Run, error) {
	var (
		run         Run
		startedRaw  string
		finishedRaw sql.NullString
	)
	if err := scanner.Scan(&run.ID, &run.Kind, &run.Status, &startedRaw, &finishedRaw,
		&run.Processed, &run.Skipped, &run.Empty, &run.Failed); err != nil {
		return Run{}, err
	}
	started, err := parseTime(startedRaw)
	if err != nil {
		return Run{}, fmt.Errorf("parse started_at %q: %w", startedRaw, err)
	}
	run.StartedAt = started
	if finishedRaw.Valid {
		if finished, err := parseTime(finishedRaw.String); err == nil {
			run.FinishedAt = &finished
		}
	}
	return run, nil
}

// GetRun returns the run with id.
func (s *Store) GetRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+runColumns+" FROM runs WHERE id = ?", id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return Run{}, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// RecentRuns returns up to limit runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+runColumns+" FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Outcomes lists the video outcomes recorded for runID in insertion order.
func (s *Store) Outcomes(ctx context.Context, runID string) ([]VideoOutcome, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT class, video_id, result, state, frames, calls, duration_ms, error
		FROM video_outcomes WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}
	defer rows.Close()

	var outcomes []VideoOutcome
	for rows.Next() {
		var (
			outcome    VideoOutcome
			durationMS int64
			errText    sql.NullString
		)
		if err := rows.Scan(&outcome.Class, &outcome.VideoID, &outcome.Result, &outcome.State,
			&outcome.Frames, &outcome.Calls, &durationMS, &errText); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		outcome.Duration = time.Duration(durationMS) * time.Millisecond
		outcome.Error = errText.String
		outcomes = append(outcomes, outcome)
	}
	return outcomes, rows.Err()
}

// Snapshot returns the aggregate rows stored for runID.
func (s *Store) Snapshot(ctx context.Context, runID string) ([]analysis.ClassAggregate, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT class, num_videos, avg_baseline_tokens, avg_diff_tokens, avg_token_reduction,
			avg_lexical_redundancy_baseline, avg_lexical_redundancy_diff,
			avg_info_density_baseline, avg_info_density_diff
		FROM aggregate_snapshots WHERE run_id = ?`, runID)
	if err != nil {
		return nil, fmt.Errorf("query snapshot: %w", err)
	}
	defer rows.Close()

	var out []analysis.ClassAggregate
	for rows.Next() {
		var row analysis.ClassAggregate
		if err := rows.Scan(&row.Class, &row.NumVideos, &row.AvgBaselineTokens, &row.AvgDiffTokens,
			&row.AvgTokenReduction, &row.AvgLexicalRedundancyBaseline, &row.AvgLexicalRedundancyDiff,
			&row.AvgInfoDensityBaseline, &row.AvgInfoDensityDiff); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	analysis.SortRows(out)
	return out, nil
}
