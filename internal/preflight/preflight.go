package preflight

import (
	"context"

	"framediff/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// RunAll executes the directory checks and, when includeModel is set, the
// model service check.
func RunAll(ctx context.Context, cfg *config.Config, includeModel bool) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Frames directory", cfg.Paths.FramesDir, false),
		CheckDirectoryAccess("Results directory", cfg.Paths.ResultsDir, true),
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir, true),
	}

	if includeModel {
		results = append(results, CheckModel(ctx, cfg))
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
