package analysis

import (
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/text/cases"

	"framediff/internal/logging"
	"framediff/internal/results"
)

// UnknownClass labels records whose class is missing or empty.
const UnknownClass = "UNKNOWN"

// ClassAggregate holds per-class averages.
type ClassAggregate struct {
	Class                        string  `json:"class"`
	NumVideos                    int     `json:"num_videos"`
	AvgBaselineTokens            float64 `json:"avg_baseline_tokens"`
	AvgDiffTokens                float64 `json:"avg_diff_tokens"`
	AvgTokenReduction            float64 `json:"avg_token_reduction"`
	AvgLexicalRedundancyBaseline float64 `json:"avg_lexical_redundancy_baseline"`
	AvgLexicalRedundancyDiff     float64 `json:"avg_lexical_redundancy_diff"`
	AvgInfoDensityBaseline       float64 `json:"avg_info_density_baseline"`
	AvgInfoDensityDiff           float64 `json:"avg_info_density_diff"`
}

// TokenReduction returns 1 - diff/baseline, or 0 when baseline is 0.
func TokenReduction(avgBaseline, avgDiff float64) float64 {
	if avgBaseline == 0 {
		return 0
	}
	return 1 - avgDiff/avgBaseline
}

type accumulator struct {
	count                                    int
	baseTokens, diffTokens                   float64
	lexBase, lexDiff, densityBase, densityDiff float64
}

// Aggregate groups records by class and averages each metric.
func Aggregate(records []results.Record) []ClassAggregate {
	groups := make(map[string]*accumulator)
	for _, rec := range records {
		class := rec.Class
		if class == "" {
			class = UnknownClass
		}
		acc, ok := groups[class]
		if !ok {
			acc = &accumulator{}
			groups[class] = acc
		}
		acc.count++
		acc.baseTokens += float64(rec.BaselineTokens)
		acc.diffTokens += float64(rec.DiffTokens)
		acc.lexBase += rec.LexicalRedundancyBaselineAvg
		acc.lexDiff += rec.LexicalRedundancyDiffAvg
		acc.densityBase += rec.InfoDensityBaseline
		acc.densityDiff += rec.InfoDensityDiff
	}

	rows := make([]ClassAggregate, 0, len(groups))
	for class, acc := range groups {
		n := float64(acc.count)
		row := ClassAggregate{
			Class:                        class,
			NumVideos:                    acc.count,
			AvgBaselineTokens:            acc.baseTokens / n,
			AvgDiffTokens:                acc.diffTokens / n,
			AvgLexicalRedundancyBaseline: acc.lexBase / n,
			AvgLexicalRedundancyDiff:     acc.lexDiff / n,
			AvgInfoDensityBaseline:       acc.densityBase / n,
			AvgInfoDensityDiff:           acc.densityDiff / n,
		}
		row.AvgTokenReduction = TokenReduction(row.AvgBaselineTokens, row.AvgDiffTokens)
		rows = append(rows, row)
	}
	SortRows(rows)
	return rows
}

// SortRows orders rows case-insensitively by class, breaking ties on the
// exact label.
func SortRows(rows []ClassAggregate) {
	fold := cases.Fold()
	keys := make(map[string]string, len(rows))
	for _, row := range rows {
		keys[row.Class] = fold.String(row.Class)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		ki, kj := keys[rows[i].Class], keys[rows[j].Class]
		if ki != kj {
			return ki < kj
		}
		return rows[i].Class < rows[j].Class
	})
}

// Collect loads every record in store. A file that is not a JSON object is
// logged and counted in skipped; a wrong-typed field only zeroes that field.
func Collect(store *results.Store, logger *slog.Logger) ([]results.Record, int, error) {
	logger = logging.NewComponentLogger(logger, "analysis")
	paths, err := store.List()
	if err != nil {
		return nil, 0, err
	}
	records := make([]results.Record, 0, len(paths))
	skipped := 0
	for _, path := range paths {
		doc, err := results.LoadDocument(path)
		if err != nil {
			logging.WarnWithContext(logger, "record skipped", "malformed_record",
				logging.String("path", path),
				logging.Error(err),
				logging.String(logging.FieldImpact, "record excluded from aggregate"),
			)
			skipped++
			continue
		}
		rec, bad := doc.Fields()
		if len(bad) > 0 {
			logging.WarnWithContext(logger, "record fields ignored", "malformed_field",
				logging.String("path", path),
				logging.String("fields", strings.Join(bad, ",")),
				logging.String(logging.FieldImpact, "fields count as 0 in the aggregate"),
			)
		}
		records = append(records, rec)
	}
	return records, skipped, nil
}
