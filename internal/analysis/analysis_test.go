package analysis_test

import (
	"encoding/csv"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"framediff/internal/analysis"
	"framediff/internal/results"
	"framediff/internal/testsupport"
)

func TestTokenReduction(t *testing.T) {
	if got := analysis.TokenReduction(0, 50); got != 0 {
		t.Fatalf("expected 0 for zero baseline, got %v", got)
	}
	if got := analysis.TokenReduction(100, 25); got != 0.75 {
		t.Fatalf("expected 0.75, got %v", got)
	}
	if got := analysis.TokenReduction(100, 150); math.Abs(got+0.5) > 1e-9 {
		t.Fatalf("expected -0.5 when diff grows, got %v", got)
	}
}

func TestAggregateGroupsAndSorts(t *testing.T) {
	records := []results.Record{
		{Class: "pouring", BaselineTokens: 100, DiffTokens: 40, LexicalRedundancyBaselineAvg: 0.6, InfoDensityDiff: 0.2},
		{Class: "pouring", BaselineTokens: 200, DiffTokens: 80, LexicalRedundancyBaselineAvg: 0.4, InfoDensityDiff: 0.4},
		{Class: "Closing", BaselineTokens: 50, DiffTokens: 50},
		{Class: "closing", BaselineTokens: 10},
		{Class: "", DiffTokens: 7},
	}
	rows := analysis.Aggregate(records)

	var classes []string
	for _, row := range rows {
		classes = append(classes, row.Class)
	}
	if got := strings.Join(classes, ","); got != "Closing,closing,pouring,UNKNOWN" {
		t.Fatalf("unexpected order %s", got)
	}

	pouring := rows[2]
	if pouring.NumVideos != 2 || pouring.AvgBaselineTokens != 150 || pouring.AvgDiffTokens != 60 {
		t.Fatalf("unexpected pouring averages %+v", pouring)
	}
	if math.Abs(pouring.AvgTokenReduction-0.6) > 1e-9 {
		t.Fatalf("unexpected reduction %v", pouring.AvgTokenReduction)
	}
	if math.Abs(pouring.AvgLexicalRedundancyBaseline-0.5) > 1e-9 || math.Abs(pouring.AvgInfoDensityDiff-0.3) > 1e-9 {
		t.Fatalf("unexpected metric averages %+v", pouring)
	}
	if rows[3].AvgTokenReduction != 0 {
		t.Fatalf("expected zero reduction for zero baseline, got %v", rows[3].AvgTokenReduction)
	}
}

func TestAggregateKeepsWhitespaceLabels(t *testing.T) {
	rows := analysis.Aggregate([]results.Record{{Class: " "}, {Class: ""}, {Class: "a "}})
	var classes []string
	for _, row := range rows {
		classes = append(classes, row.Class)
	}
	if got := strings.Join(classes, "|"); got != " |a |UNKNOWN" {
		t.Fatalf("unexpected classes %q", got)
	}
}

func TestAggregateEmpty(t *testing.T) {
	if rows := analysis.Aggregate(nil); len(rows) != 0 {
		t.Fatalf("expected no rows, got %v", rows)
	}
}

func TestCollectSkipsCorruptRecords(t *testing.T) {
	root := t.TempDir()
	testsupport.WriteRecord(t, root, results.Record{Class: "a", VideoID: "1", BaselineTokens: 4})
	testsupport.WriteRawRecord(t, root, "a", "2", `{"class":"a"`)
	testsupport.WriteRawRecord(t, root, "b", "3", `{"class":"b","diff_tokens":3}`)

	records, skipped, err := analysis.Collect(results.NewStore(root), nil)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(records) != 2 || skipped != 1 {
		t.Fatalf("expected 2 records and 1 skipped, got %d/%d", len(records), skipped)
	}
	rows := analysis.Aggregate(records)
	if len(rows) != 2 || rows[1].AvgBaselineTokens != 0 || rows[1].AvgDiffTokens != 3 {
		t.Fatalf("missing fields should default to zero: %+v", rows)
	}
}

func TestCollectKeepsRecordWithWrongTypedField(t *testing.T) {
	root := t.TempDir()
	testsupport.WriteRawRecord(t, root, "a", "1", `{"class":"a","baseline_tokens":100,"diff_tokens":40,"num_frames":"8"}`)
	testsupport.WriteRawRecord(t, root, "a", "2", `{"class":"a","baseline_tokens":"lots","diff_tokens":20}`)
	testsupport.WriteRawRecord(t, root, "a", "3", `[1, 2]`)

	records, skipped, err := analysis.Collect(results.NewStore(root), nil)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(records) != 2 || skipped != 1 {
		t.Fatalf("expected 2 records and 1 skipped, got %d/%d", len(records), skipped)
	}
	rows := analysis.Aggregate(records)
	if len(rows) != 1 || rows[0].Class != "a" || rows[0].AvgBaselineTokens != 50 || rows[0].AvgDiffTokens != 30 {
		t.Fatalf("unexpected rows %+v", rows)
	}
}

func TestWriteCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "summary.csv")
	rows := []analysis.ClassAggregate{{Class: "a, with comma", NumVideos: 2, AvgBaselineTokens: 10, AvgDiffTokens: 5, AvgTokenReduction: 0.5}}
	wrote, err := analysis.WriteCSV(path, rows)
	if err != nil || !wrote {
		t.Fatalf("WriteCSV: wrote=%v err=%v", wrote, err)
	}
	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer file.Close()
	lines, err := csv.NewReader(file).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("expected header and one row, got %d", len(lines))
	}
	if strings.Join(lines[0], ",") != strings.Join(analysis.CSVHeader, ",") {
		t.Fatalf("unexpected header %v", lines[0])
	}
	if lines[1][0] != "a, with comma" || lines[1][1] != "2" || lines[1][4] != "0.5" {
		t.Fatalf("unexpected row %v", lines[1])
	}
}

func TestWriteCSVNoRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summary.csv")
	wrote, err := analysis.WriteCSV(path, nil)
	if err != nil || wrote {
		t.Fatalf("expected no write, got wrote=%v err=%v", wrote, err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("expected no file to be created")
	}
}

func TestRenderTable(t *testing.T) {
	out := analysis.RenderTable([]analysis.ClassAggregate{{Class: "folding something", NumVideos: 3, AvgBaselineTokens: 120, AvgDiffTokens: 30, AvgTokenReduction: 0.75, AvgInfoDensityDiff: 0.125}})
	for _, want := range []string{"Class", "tok_red%", "folding something", "120.0", "75.0%", "0.125"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in table:\n%s", want, out)
		}
	}
}
