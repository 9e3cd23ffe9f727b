package results

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"framediff/internal/services"
)

// Record is the persisted outcome of describing and scoring one video.
type Record struct {
	VideoID    string   `json:"video_id"`
	Class      string   `json:"class"`
	NumFrames  int      `json:"num_frames"`
	FrameDir   string   `json:"frame_dir"`
	FrameFiles []string `json:"frame_files"`

	BaselineTexts []string `json:"baseline_texts"`
	DiffTexts     []string `json:"diff_texts"`

	BaselineTokens int `json:"baseline_tokens"`
	DiffTokens     int `json:"diff_tokens"`

	LexicalRedundancyBaselineAvg float64   `json:"lexical_redundancy_baseline_avg"`
	LexicalRedundancyDiffAvg     float64   `json:"lexical_redundancy_diff_avg"`
	LexicalRedundancyBaselineAll []float64 `json:"lexical_redundancy_baseline_all"`
	LexicalRedundancyDiffAll     []float64 `json:"lexical_redundancy_diff_all"`

	InfoDensityBaseline         float64   `json:"info_density_baseline"`
	InfoDensityDiff             float64   `json:"info_density_diff"`
	InfoDensityBaselinePerFrame []float64 `json:"info_density_baseline_per_frame"`
	InfoDensityDiffPerFrame     []float64 `json:"info_density_diff_per_frame"`
}

// HasTexts reports whether both description sequences are present.
func (r Record) HasTexts() bool {
	return len(r.BaselineTexts) > 0 && len(r.DiffTexts) > 0
}

// Marshal renders the record the way it is stored on disk.
func (r Record) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal record: %w", err)
	}
	return append(data, '\n'), nil
}

// Load reads a record file. Missing fields decode as zero values; a file
// that is not a JSON object of the expected shape is a malformed record.
func Load(path string) (Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Record{}, fmt.Errorf("read record: %w", err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, services.Wrap(services.ErrMalformedRecord, "results", "decode", path, err)
	}
	return rec, nil
}

// Document is a record decoded field by field so unknown keys survive a
// rewrite.
type Document map[string]json.RawMessage

// LoadDocument reads a record file as a Document.
func LoadDocument(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read record: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, services.Wrap(services.ErrMalformedRecord, "results", "decode", path, err)
	}
	if doc == nil {
		return nil, services.Wrap(services.ErrMalformedRecord, "results", "decode", path+": not an object", nil)
	}
	return doc, nil
}

// Fields decodes the known fields one at a time. A field that is missing,
// null or of the wrong type keeps its zero value; the keys of wrong-typed
// fields are returned so callers can report them.
func (d Document) Fields() (Record, []string) {
	var bad []string
	rec := Record{
		VideoID:                      decodeField[string](d, "video_id", &bad),
		Class:                        decodeField[string](d, "class", &bad),
		NumFrames:                    int(decodeField[float64](d, "num_frames", &bad)),
		FrameDir:                     decodeField[string](d, "frame_dir", &bad),
		FrameFiles:                   decodeField[[]string](d, "frame_files", &bad),
		BaselineTexts:                decodeField[[]string](d, "baseline_texts", &bad),
		DiffTexts:                    decodeField[[]string](d, "diff_texts", &bad),
		BaselineTokens:               int(decodeField[float64](d, "baseline_tokens", &bad)),
		DiffTokens:                   int(decodeField[float64](d, "diff_tokens", &bad)),
		LexicalRedundancyBaselineAvg: decodeField[float64](d, "lexical_redundancy_baseline_avg", &bad),
		LexicalRedundancyDiffAvg:     decodeField[float64](d, "lexical_redundancy_diff_avg", &bad),
		LexicalRedundancyBaselineAll: decodeField[[]float64](d, "lexical_redundancy_baseline_all", &bad),
		LexicalRedundancyDiffAll:     decodeField[[]float64](d, "lexical_redundancy_diff_all", &bad),
		InfoDensityBaseline:          decodeField[float64](d, "info_density_baseline", &bad),
		InfoDensityDiff:              decodeField[float64](d, "info_density_diff", &bad),
		InfoDensityBaselinePerFrame:  decodeField[[]float64](d, "info_density_baseline_per_frame", &bad),
		InfoDensityDiffPerFrame:      decodeField[[]float64](d, "info_density_diff_per_frame", &bad),
	}
	return rec, bad
}

func decodeField[T any](d Document, key string, bad *[]string) T {
	var v T
	raw, ok := d[key]
	if !ok || string(bytes.TrimSpace(raw)) == "null" {
		return v
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		*bad = append(*bad, key)
		var zero T
		return zero
	}
	return v
}

// MetricKeys are the fields derived from the description texts.
var MetricKeys = []string{
	"baseline_tokens",
	"diff_tokens",
	"lexical_redundancy_baseline_avg",
	"lexical_redundancy_diff_avg",
	"lexical_redundancy_baseline_all",
	"lexical_redundancy_diff_all",
	"info_density_baseline",
	"info_density_diff",
	"info_density_baseline_per_frame",
	"info_density_diff_per_frame",
}

// MergeMetrics overwrites the document's MetricKeys with rec's values and
// leaves every other key as it was.
func (d Document) MergeMetrics(rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("split record: %w", err)
	}
	for _, key := range MetricKeys {
		d[key] = fields[key]
	}
	return nil
}

// Delete removes keys from the document and returns how many were present.
func (d Document) Delete(keys ...string) int {
	removed := 0
	for _, key := range keys {
		if _, ok := d[key]; ok {
			delete(d, key)
			removed++
		}
	}
	return removed
}

// Marshal renders the document with sorted keys.
func (d Document) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(map[string]json.RawMessage(d), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	return append(data, '\n'), nil
}
