package main

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofrs/flock"

	"framediff/internal/config"
	"framediff/internal/results"
	"framediff/internal/services"
	"framediff/internal/testsupport"
)

func TestRunAnalyzeHistoryFlow(t *testing.T) {
	env := setupCLITestEnv(t)
	frames := env.cfg.Paths.FramesDir
	testsupport.WriteVideoFrames(t, frames, "pouring", "101", 3)
	testsupport.WriteVideoFrames(t, frames, "pouring", "102", 3)
	testsupport.WriteVideoFrames(t, frames, "closing", "201", 0)

	out, _, err := runCLI(t, []string{"run"}, env.configPath)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	requireContains(t, out, "Processed: 2  Skipped: 1 (empty: 1)  Failed: 0")
	requireContains(t, out, "Run ID: ")
	if got := env.calls.Load(); got != 10 {
		t.Fatalf("expected 10 model calls (3 baseline + 2 diff per video), got %d", got)
	}
	if got := env.pairCalls.Load(); got != 4 {
		t.Fatalf("expected 4 pair calls, got %d", got)
	}

	rec, err := results.Load(filepath.Join(env.cfg.Paths.ResultsDir, "pouring", "101.json"))
	if err != nil {
		t.Fatalf("load record: %v", err)
	}
	if len(rec.BaselineTexts) != 3 || len(rec.DiffTexts) != 3 {
		t.Fatalf("unexpected text counts %d/%d", len(rec.BaselineTexts), len(rec.DiffTexts))
	}
	if rec.DiffTexts[0] != env.cfg.Pipeline.InitialFrameText {
		t.Fatalf("expected sentinel first, got %q", rec.DiffTexts[0])
	}
	if rec.LexicalRedundancyBaselineAvg != 1 {
		t.Fatalf("identical baseline texts should score 1, got %v", rec.LexicalRedundancyBaselineAvg)
	}

	out, _, err = runCLI(t, []string{"run"}, env.configPath)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	requireContains(t, out, "Processed: 0  Skipped: 3 (empty: 1)  Failed: 0")
	if got := env.calls.Load(); got != 10 {
		t.Fatalf("resumed run should not call the model, got %d calls", got)
	}

	out, _, err = runCLI(t, []string{"analyze"}, env.configPath)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	requireContains(t, out, "pouring")
	requireContains(t, out, "Saved CSV to "+env.cfg.Paths.SummaryCSV)

	file, err := os.Open(env.cfg.Paths.SummaryCSV)
	if err != nil {
		t.Fatalf("open csv: %v", err)
	}
	lines, err := csv.NewReader(file).ReadAll()
	_ = file.Close()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(lines) != 2 || lines[1][0] != "pouring" || lines[1][1] != "2" {
		t.Fatalf("unexpected csv %v", lines)
	}

	out, _, err = runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "batch")
	requireContains(t, out, "analyze")
}

func TestRunJSONReportsCounts(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.WriteVideoFrames(t, env.cfg.Paths.FramesDir, "folding", "7", 2)

	out, _, err := runCLI(t, []string{"run", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	var report batchJSON
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode report: %v\n%s", err, out)
	}
	if report.Processed != 1 || report.RunID == "" || report.Cancelled {
		t.Fatalf("unexpected report %+v", report)
	}
}

func TestRunClassFilterAndMaxFrames(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.WriteVideoFrames(t, env.cfg.Paths.FramesDir, "pouring", "1", 4)
	testsupport.WriteVideoFrames(t, env.cfg.Paths.FramesDir, "closing", "2", 4)

	out, _, err := runCLI(t, []string{"run", "--class", "closing", "--max-frames", "2"}, env.configPath)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	requireContains(t, out, "Processed: 1")
	if got := env.calls.Load(); got != 3 {
		t.Fatalf("expected 3 calls for two frames, got %d", got)
	}
	rec, err := results.Load(filepath.Join(env.cfg.Paths.ResultsDir, "closing", "2.json"))
	if err != nil {
		t.Fatalf("load record: %v", err)
	}
	if rec.NumFrames != 2 {
		t.Fatalf("expected truncation to 2 frames, got %d", rec.NumFrames)
	}
	if _, err := os.Stat(filepath.Join(env.cfg.Paths.ResultsDir, "pouring", "1.json")); !os.IsNotExist(err) {
		t.Fatal("filtered class should not be processed")
	}
}

func TestRunDryRunNeedsNoAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	env := setupCLITestEnv(t, testsupport.WithAPIKey(""))
	testsupport.WriteVideoFrames(t, env.cfg.Paths.FramesDir, "pouring", "1", 2)
	testsupport.WriteRecord(t, env.cfg.Paths.ResultsDir, results.Record{Class: "pouring", VideoID: "1"})
	testsupport.WriteVideoFrames(t, env.cfg.Paths.FramesDir, "pouring", "2", 2)

	out, _, err := runCLI(t, []string{"run", "--dry-run"}, env.configPath)
	if err != nil {
		t.Fatalf("dry run: %v", err)
	}
	requireContains(t, out, "skip (result exists)")
	requireContains(t, out, "describe")
	if env.calls.Load() != 0 {
		t.Fatal("dry run must not call the model")
	}

	_, _, err = runCLI(t, []string{"run"}, env.configPath)
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error without API key, got %v", err)
	}
}

func TestRunMissingFramesDir(t *testing.T) {
	env := setupCLITestEnv(t)
	if err := os.RemoveAll(env.cfg.Paths.FramesDir); err != nil {
		t.Fatalf("remove frames: %v", err)
	}
	_, _, err := runCLI(t, []string{"run"}, env.configPath)
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestRunFailsFastWhenLocked(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.WriteVideoFrames(t, env.cfg.Paths.FramesDir, "pouring", "1", 2)
	if err := os.MkdirAll(env.cfg.Paths.ResultsDir, 0o755); err != nil {
		t.Fatalf("mkdir results: %v", err)
	}
	lock := flock.New(env.cfg.LockPath())
	locked, err := lock.TryLock()
	if err != nil || !locked {
		t.Fatalf("acquire test lock: locked=%v err=%v", locked, err)
	}
	defer lock.Unlock()

	_, _, err = runCLI(t, []string{"run"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "another framediff run") {
		t.Fatalf("expected lock error, got %v", err)
	}
	if env.calls.Load() != 0 {
		t.Fatal("locked run must not call the model")
	}
}

func TestAnalyzeWithoutRecords(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"analyze"}, env.configPath)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	requireContains(t, out, "No rows to write.")
	if _, err := os.Stat(env.cfg.Paths.SummaryCSV); !os.IsNotExist(err) {
		t.Fatal("expected no CSV without rows")
	}
}

func TestRecomputeCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.WriteRecord(t, env.cfg.Paths.ResultsDir, results.Record{
		Class:         "pouring",
		VideoID:       "1",
		BaselineTexts: []string{"a cup", "a cup"},
		DiffTexts:     []string{"Initial frame. No previous frame to compare.", "cup lifted"},
	})
	testsupport.WriteRawRecord(t, env.cfg.Paths.ResultsDir, "pouring", "2", `{"class":"pouring","baseline_texts":[]}`)

	out, _, err := runCLI(t, []string{"recompute"}, env.configPath)
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}
	requireContains(t, out, "Updated 1 record(s); skipped 1")

	rec, err := results.Load(filepath.Join(env.cfg.Paths.ResultsDir, "pouring", "1.json"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if rec.BaselineTokens == 0 || rec.LexicalRedundancyBaselineAvg != 1 {
		t.Fatalf("expected rescored record, got %+v", rec)
	}
}

func TestDescribeCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	img := filepath.Join(t.TempDir(), "frame.png")
	testsupport.WriteFrame(t, img, 1)

	out, _, err := runCLI(t, []string{"describe", img}, env.configPath)
	if err != nil {
		t.Fatalf("describe: %v", err)
	}
	requireContains(t, out, "red cup")
}

func TestCheckReportsHealth(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithStubbedTools())
	testsupport.WriteVideoFrames(t, env.cfg.Paths.FramesDir, "pouring", "1", 1)
	out, _, err := runCLI(t, []string{"check"}, env.configPath)
	if err != nil {
		t.Fatalf("check: %v\n%s", err, out)
	}
	requireContains(t, out, "1 videos")
	requireContains(t, out, env.cfg.Extract.FFmpegBinary)
	requireContains(t, out, "Model ("+env.cfg.VLM.Model+")")
	requireContains(t, out, "API reachable")
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected error when config exists without --overwrite")
	}
}

func TestFilterTasks(t *testing.T) {
	tasks := filterTasks(nil, []string{"a"})
	if len(tasks) != 0 {
		t.Fatalf("expected no tasks, got %v", tasks)
	}
}

func TestConfigShowRedactsKey(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithAPIKey("sk-secret"))
	out, _, err := runCLI(t, []string{"config", "show"}, env.configPath)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, "<redacted>")
	requireContains(t, out, "[pipeline]")
	if strings.Contains(out, "sk-secret") {
		t.Fatalf("expected API key to be redacted:\n%s", out)
	}
}

func TestConfigVocabularyListsOverride(t *testing.T) {
	withVocabulary := func(t testing.TB, base string, cfg *config.Config) {
		path := filepath.Join(base, "vocabulary.toml")
		body := "[classes]\n\"Stacking Blocks\" = [\"stack\", \"stacks\"]\n"
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatalf("write vocabulary: %v", err)
		}
		cfg.Metrics.VocabularyPath = path
	}
	env := setupCLITestEnv(t, withVocabulary)

	out, _, err := runCLI(t, []string{"config", "vocabulary"}, env.configPath)
	if err != nil {
		t.Fatalf("config vocabulary: %v", err)
	}
	requireContains(t, out, "__default__: 24 words")
	requireContains(t, out, "stacking blocks: 26 words")

	out, _, err = runCLI(t, []string{"config", "vocabulary", "Stacking Blocks", "juggling"}, env.configPath)
	if err != nil {
		t.Fatalf("config vocabulary classes: %v", err)
	}
	requireContains(t, out, "stacking blocks (custom): ")
	requireContains(t, out, "stack, stacks")
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "juggling") && strings.Contains(line, "stack") {
			t.Fatalf("default-only class picked up custom words: %q", line)
		}
	}
	requireContains(t, out, "juggling (default only): close, closed")
}
