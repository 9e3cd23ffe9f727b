package analysis

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// CSVHeader is the summary file header row.
var CSVHeader = []string{
	"class",
	"num_videos",
	"avg_baseline_tokens",
	"avg_diff_tokens",
	"avg_token_reduction",
	"avg_lexical_redundancy_baseline",
	"avg_lexical_redundancy_diff",
	"avg_info_density_baseline",
	"avg_info_density_diff",
}

// WriteCSV writes rows to path. It returns false without touching the file
// when rows is empty.
func WriteCSV(path string, rows []ClassAggregate) (bool, error) {
	if len(rows) == 0 {
		return false, nil
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return false, fmt.Errorf("create summary directory: %w", err)
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return false, fmt.Errorf("create summary: %w", err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(CSVHeader); err != nil {
		return false, fmt.Errorf("write summary header: %w", err)
	}
	for _, row := range rows {
		record := []string{
			row.Class,
			strconv.Itoa(row.NumVideos),
			formatFloat(row.AvgBaselineTokens),
			formatFloat(row.AvgDiffTokens),
			formatFloat(row.AvgTokenReduction),
			formatFloat(row.AvgLexicalRedundancyBaseline),
			formatFloat(row.AvgLexicalRedundancyDiff),
			formatFloat(row.AvgInfoDensityBaseline),
			formatFloat(row.AvgInfoDensityDiff),
		}
		if err := w.Write(record); err != nil {
			return false, fmt.Errorf("write summary row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return false, fmt.Errorf("flush summary: %w", err)
	}
	return true, file.Close()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// RenderTable formats rows for the console.
func RenderTable(rows []ClassAggregate) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Class", "N", "tok_base", "tok_diff", "tok_red%", "lex_base", "lex_diff", "info_base", "info_diff"})
	for _, row := range rows {
		tw.AppendRow(table.Row{
			row.Class,
			row.NumVideos,
			fmt.Sprintf("%.1f", row.AvgBaselineTokens),
			fmt.Sprintf("%.1f", row.AvgDiffTokens),
			fmt.Sprintf("%.1f%%", row.AvgTokenReduction*100),
			fmt.Sprintf("%.3f", row.AvgLexicalRedundancyBaseline),
			fmt.Sprintf("%.3f", row.AvgLexicalRedundancyDiff),
			fmt.Sprintf("%.3f", row.AvgInfoDensityBaseline),
			fmt.Sprintf("%.3f", row.AvgInfoDensityDiff),
		})
	}
	configs := []table.ColumnConfig{{Number: 1, Align: text.AlignLeft, AlignHeader: text.AlignLeft}}
	for i := 2; i <= 9; i++ {
		configs = append(configs, table.ColumnConfig{Number: i, Align: text.AlignRight, AlignHeader: text.AlignLeft})
	}
	tw.SetColumnConfigs(configs)
	return tw.Render()
}
