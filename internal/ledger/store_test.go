package ledger_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"framediff/internal/analysis"
	"framediff/internal/ledger"
	"framediff/internal/testsupport"
)

func TestOpenCreatesDatabase(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)

	if store.Path() != filepath.Join(cfg.Paths.StateDir, "ledger.db") {
		t.Fatalf("unexpected ledger path %q", store.Path())
	}

	// Reopening an initialized database must pass the version check.
	again, err := ledger.Open(store.Path())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	_ = again.Close()
}

func TestOpenRejectsOtherSchemaVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	store, err := ledger.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	_ = store.Close()

	raw, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open raw: %v", err)
	}
	if _, err := raw.Exec("PRAGMA user_version = 99"); err != nil {
		t.Fatalf("bump user_version: %v", err)
	}
	_ = raw.Close()

	if _, err := ledger.Open(path); !errors.Is(err, ledger.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}

func TestRunLifecycle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)
	ctx := context.Background()

	run, err := store.StartRun(ctx, ledger.KindBatch)
	if err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	if run.ID == "" || run.Status != ledger.StatusRunning {
		t.Fatalf("unexpected run %+v", run)
	}

	outcomes := []ledger.VideoOutcome{
		{Class: "pouring", VideoID: "1", Result: "processed", State: "PERSISTED", Frames: 8, Calls: 16, Duration: 1500 * time.Millisecond},
		{Class: "pouring", VideoID: "2", Result: "failed", State: "FAILED", Error: "service exhausted"},
	}
	for _, outcome := range outcomes {
		if err := store.RecordOutcome(ctx, run.ID, outcome); err != nil {
			t.Fatalf("RecordOutcome: %v", err)
		}
	}
	if err := store.FinishRun(ctx, run.ID, ledger.StatusCompleted, ledger.Counts{Processed: 1, Failed: 1}); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}

	got, err := store.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.Status != ledger.StatusCompleted || got.Processed != 1 || got.Failed != 1 || got.FinishedAt == nil {
		t.Fatalf("unexpected finished run %+v", got)
	}

	stored, err := store.Outcomes(ctx, run.ID)
	if err != nil {
		t.Fatalf("Outcomes: %v", err)
	}
	if len(stored) != 2 {
		t.Fatalf("expected 2 outcomes, got %d", len(stored))
	}
	if stored[0].Duration != 1500*time.Millisecond || stored[0].Calls != 16 {
		t.Fatalf("unexpected first outcome %+v", stored[0])
	}
	if stored[1].Error != "service exhausted" {
		t.Fatalf("expected error text, got %q", stored[1].Error)
	}
}

func TestGetRunMissing(t *testing.T) {
	store := testsupport.MustOpenLedger(t, testsupport.NewConfig(t))
	if _, err := store.GetRun(context.Background(), "nope"); !errors.Is(err, ledger.ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
}

func TestRecentRunsNewestFirst(t *testing.T) {
	store := testsupport.MustOpenLedger(t, testsupport.NewConfig(t))
	ctx := context.Background()

	var ids []string
	for _, kind := range []string{ledger.KindBatch, ledger.KindRecompute, ledger.KindAnalyze} {
		run, err := store.StartRun(ctx, kind)
		if err != nil {
			t.Fatalf("StartRun: %v", err)
		}
		ids = append(ids, run.ID)
		time.Sleep(2 * time.Millisecond)
	}

	runs, err := store.RecentRuns(ctx, 2)
	if err != nil {
		t.Fatalf("RecentRuns: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected limit to apply, got %d", len(runs))
	}
	if runs[0].ID != ids[2] || runs[1].ID != ids[1] {
		t.Fatalf("unexpected order: %s, %s", runs[0].ID, runs[1].ID)
	}
	if runs[0].Kind != ledger.KindAnalyze {
		t.Fatalf("unexpected kind %q", runs[0].Kind)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	store := testsupport.MustOpenLedger(t, testsupport.NewConfig(t))
	ctx := context.Background()

	run, err := store.StartRun(ctx, ledger.KindAnalyze)
	if err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	rows := []analysis.ClassAggregate{
		{Class: "zipping", NumVideos: 1, AvgBaselineTokens: 10},
		{Class: "Apple", NumVideos: 2, AvgBaselineTokens: 40, AvgDiffTokens: 10, AvgTokenReduction: 0.75},
	}
	if err := store.RecordSnapshot(ctx, run.ID, rows); err != nil {
		t.Fatalf("RecordSnapshot: %v", err)
	}
	got, err := store.Snapshot(ctx, run.ID)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(got) != 2 || got[0].Class != "Apple" || got[0].AvgTokenReduction != 0.75 {
		t.Fatalf("unexpected snapshot %+v", got)
	}
}
