package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"framediff/internal/config"
)

// ConfigOption adjusts a test config after the temp layout is applied.
type ConfigOption func(t testing.TB, base string, cfg *config.Config)

// NewConfig returns defaults with every path under a fresh temp directory, a
// placeholder API key, and all call delays and retry waits zeroed.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.VLM.APIKey = "test"
	cfg.Paths = config.Paths{
		FramesDir:  filepath.Join(base, "frames"),
		ResultsDir: filepath.Join(base, "results"),
		VideosDir:  filepath.Join(base, "videos"),
		SummaryCSV: filepath.Join(base, "analysis_summary.csv"),
		StateDir:   filepath.Join(base, "state"),
	}
	cfg.Pipeline.CallDelaySeconds = 0
	cfg.Retry.RateLimitBaseSeconds = 0
	cfg.Retry.TransientDelaySeconds = 0

	for _, opt := range opts {
		opt(t, base, &cfg)
	}
	return &cfg
}

func WithAPIKey(key string) ConfigOption {
	return func(_ testing.TB, _ string, cfg *config.Config) { cfg.VLM.APIKey = key }
}

// WithBaseURL points the model client at a test server.
func WithBaseURL(url string) ConfigOption {
	return func(_ testing.TB, _ string, cfg *config.Config) { cfg.VLM.BaseURL = url }
}

// WithStubbedTools writes no-op ffmpeg and ffprobe executables and points the
// extract settings at them by absolute path.
func WithStubbedTools() ConfigOption {
	return func(t testing.TB, base string, cfg *config.Config) {
		dir := filepath.Join(base, "bin")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir bin: %v", err)
		}
		for _, name := range []string{"ffmpeg", "ffprobe"} {
			path := filepath.Join(dir, name)
			if err := os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
				t.Fatalf("write stub %s: %v", name, err)
			}
		}
		cfg.Extract.FFmpegBinary = filepath.Join(dir, "ffmpeg")
		cfg.Extract.FFprobeBinary = filepath.Join(dir, "ffprobe")
	}
}
