package recompute

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"framediff/internal/metrics"
	"framediff/internal/results"
	"framediff/internal/testsupport"
	"framediff/internal/tokenizer"
)

func wordCounter() tokenizer.Counter {
	return tokenizer.CounterFunc(func(text string) int { return len(strings.Fields(text)) })
}

func readJSON(t *testing.T, path string) map[string]any {
	t.Helper()
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
	return out
}

func TestRunRescoresAndDropsObsoleteKeys(t *testing.T) {
	root := t.TempDir()
	path := testsupport.WriteRawRecord(t, root, "folding something", "5", `{
  "video_id": "5",
  "class": "folding something",
  "baseline_texts": ["she folds it", "she folds it"],
  "diff_texts": ["Initial frame.", "creases appear"],
  "baseline_tokens": 1000,
  "visual_changes": [0.1],
  "motion_text_alignment_diff": 0.3,
  "annotator": "kept"
}`)

	runner := New(results.NewStore(root), wordCounter(), metrics.DefaultVocabulary())
	summary, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Updated != 1 || summary.Skipped != 0 || summary.Removed != 2 {
		t.Fatalf("unexpected summary %+v", summary)
	}

	doc := readJSON(t, path)
	if doc["baseline_tokens"] != float64(6) {
		t.Fatalf("expected recomputed baseline tokens 6, got %v", doc["baseline_tokens"])
	}
	if doc["lexical_redundancy_baseline_avg"] != float64(1) {
		t.Fatalf("expected redundancy 1, got %v", doc["lexical_redundancy_baseline_avg"])
	}
	if doc["annotator"] != "kept" {
		t.Fatal("expected unknown field to survive")
	}
	for _, key := range ObsoleteKeys {
		if _, ok := doc[key]; ok {
			t.Fatalf("expected %s removed", key)
		}
	}
	perFrame, ok := doc["info_density_diff_per_frame"].([]any)
	if !ok || len(perFrame) != 2 {
		t.Fatalf("unexpected per-frame density %v", doc["info_density_diff_per_frame"])
	}
}

func TestRunWritesOnlyMetricFields(t *testing.T) {
	root := t.TempDir()
	path := testsupport.WriteRawRecord(t, root, "a", "v", `{"video_id":"v","baseline_texts":["a b"],"diff_texts":["x"],"num_frames":"one"}`)

	summary, err := New(results.NewStore(root), wordCounter(), nil).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Updated != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}

	doc := readJSON(t, path)
	for _, key := range []string{"class", "frame_dir", "frame_files"} {
		if _, ok := doc[key]; ok {
			t.Fatalf("expected %s to stay absent, got %v", key, doc[key])
		}
	}
	if doc["num_frames"] != "one" {
		t.Fatalf("expected num_frames untouched, got %v", doc["num_frames"])
	}
	if doc["baseline_tokens"] != float64(2) || doc["diff_tokens"] != float64(1) {
		t.Fatalf("unexpected token counts %v %v", doc["baseline_tokens"], doc["diff_tokens"])
	}
	for _, key := range results.MetricKeys {
		if _, ok := doc[key]; !ok {
			t.Fatalf("expected metric %s written", key)
		}
	}
}

func TestRunSkipsMalformedRecords(t *testing.T) {
	root := t.TempDir()
	testsupport.WriteRawRecord(t, root, "a", "no-diff", `{"class":"a","baseline_texts":["x"]}`)
	testsupport.WriteRawRecord(t, root, "a", "corrupt", `{"class":`)
	testsupport.WriteRawRecord(t, root, "a", "ok", `{"class":"a","baseline_texts":["x"],"diff_texts":["y"]}`)

	summary, err := New(results.NewStore(root), wordCounter(), nil).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Updated != 1 || summary.Skipped != 2 {
		t.Fatalf("unexpected summary %+v", summary)
	}
}

func TestRunDryRunLeavesFiles(t *testing.T) {
	root := t.TempDir()
	content := `{"class":"a","baseline_texts":["x"],"diff_texts":["y"],"visual_changes":1}`
	path := testsupport.WriteRawRecord(t, root, "a", "1", content)

	summary, err := New(results.NewStore(root), wordCounter(), nil, WithDryRun(true)).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Updated != 1 || summary.Removed != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(raw) != content {
		t.Fatal("dry run modified the record")
	}
}

func TestApplyUsesDefaultVocabularyForEmptyClass(t *testing.T) {
	rec := results.Record{
		BaselineTexts: []string{"it moves"},
		DiffTexts:     []string{"it folds"},
	}
	Apply(&rec, wordCounter(), metrics.DefaultVocabulary())
	if rec.InfoDensityBaseline != 0.5 {
		t.Fatalf("expected default word to count, got %v", rec.InfoDensityBaseline)
	}
	if rec.InfoDensityDiff != 0 {
		t.Fatalf("expected class word not to count without class, got %v", rec.InfoDensityDiff)
	}
	if rec.BaselineTokens != 2 || rec.DiffTokens != 2 {
		t.Fatalf("unexpected token counts %d %d", rec.BaselineTokens, rec.DiffTokens)
	}
}

func TestRunEmptyStore(t *testing.T) {
	summary, err := New(results.NewStore(filepath.Join(t.TempDir(), "none")), wordCounter(), nil).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary != (Summary{}) {
		t.Fatalf("expected empty summary, got %+v", summary)
	}
}
