package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeVLM()
	c.normalizePipeline()
	c.normalizeExtract()
	c.Tokenizer.Encoding = strings.ToLower(strings.TrimSpace(c.Tokenizer.Encoding))
	if c.Tokenizer.Encoding == "" {
		c.Tokenizer.Encoding = defaultEncoding
	}
	if err := c.normalizeMetrics(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	fields := []struct {
		key      string
		value    *string
		fallback string
	}{
		{"paths.frames_dir", &c.Paths.FramesDir, defaultFramesDir},
		{"paths.results_dir", &c.Paths.ResultsDir, defaultResultsDir},
		{"paths.videos_dir", &c.Paths.VideosDir, defaultVideosDir},
		{"paths.summary_csv", &c.Paths.SummaryCSV, defaultSummaryCSV},
		{"paths.state_dir", &c.Paths.StateDir, defaultStateDir},
		{"paths.log_dir", &c.Paths.LogDir, ""},
	}
	for _, field := range fields {
		trimmed := strings.TrimSpace(*field.value)
		if trimmed == "" {
			trimmed = field.fallback
		}
		expanded, err := expandPath(trimmed)
		if err != nil {
			return fmt.Errorf("%s: %w", field.key, err)
		}
		*field.value = expanded
	}
	return nil
}

func (c *Config) normalizeVLM() {
	c.VLM.APIKey = strings.TrimSpace(c.VLM.APIKey)
	if c.VLM.APIKey == "" {
		if value, ok := os.LookupEnv("OPENAI_API_KEY"); ok {
			c.VLM.APIKey = strings.TrimSpace(value)
		}
	}
	c.VLM.BaseURL = strings.TrimSpace(c.VLM.BaseURL)
	if c.VLM.BaseURL == "" {
		c.VLM.BaseURL = defaultVLMBaseURL
	}
	c.VLM.Model = strings.TrimSpace(c.VLM.Model)
	if c.VLM.Model == "" {
		c.VLM.Model = defaultVLMModel
	}
	if c.VLM.TimeoutSeconds <= 0 {
		c.VLM.TimeoutSeconds = defaultVLMTimeout
	}
	if c.VLM.MaxOutputTokens <= 0 {
		c.VLM.MaxOutputTokens = defaultMaxOutputTokens
	}
}

func (c *Config) normalizePipeline() {
	c.Pipeline.BaselinePrompt = strings.TrimSpace(c.Pipeline.BaselinePrompt)
	if c.Pipeline.BaselinePrompt == "" {
		c.Pipeline.BaselinePrompt = DefaultBaselinePrompt
	}
	c.Pipeline.DiffPrompt = strings.TrimSpace(c.Pipeline.DiffPrompt)
	if c.Pipeline.DiffPrompt == "" {
		c.Pipeline.DiffPrompt = DefaultDiffPrompt
	}
	c.Pipeline.InitialFrameText = strings.TrimSpace(c.Pipeline.InitialFrameText)
	if c.Pipeline.InitialFrameText == "" {
		c.Pipeline.InitialFrameText = DefaultInitialFrameText
	}
}

func (c *Config) normalizeExtract() {
	c.Extract.FFmpegBinary = strings.TrimSpace(c.Extract.FFmpegBinary)
	if c.Extract.FFmpegBinary == "" {
		c.Extract.FFmpegBinary = defaultFFmpegBinary
	}
	c.Extract.FFprobeBinary = strings.TrimSpace(c.Extract.FFprobeBinary)
	if c.Extract.FFprobeBinary == "" {
		c.Extract.FFprobeBinary = defaultFFprobeBinary
	}
}

func (c *Config) normalizeMetrics() error {
	path := strings.TrimSpace(c.Metrics.VocabularyPath)
	if path == "" {
		c.Metrics.VocabularyPath = ""
		return nil
	}
	expanded, err := expandPath(path)
	if err != nil {
		return fmt.Errorf("metrics.vocabulary_path: %w", err)
	}
	c.Metrics.VocabularyPath = expanded
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
