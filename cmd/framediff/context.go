package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"framediff/internal/config"
	"framediff/internal/logging"
	"framediff/internal/metrics"
	"framediff/internal/services/vlm"
	"framediff/internal/tokenizer"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) configPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(c.configPath())
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.NewFromConfig(cfg)
	})
	return c.logger, c.loggerErr
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

// scoring bundles the token counter and vocabulary shared by run and recompute.
type scoring struct {
	counter tokenizer.Counter
	vocab   *metrics.Vocabulary
}

func loadScoring(cfg *config.Config) (scoring, error) {
	counter, err := tokenizer.New(cfg.Tokenizer.Encoding)
	if err != nil {
		return scoring{}, fmt.Errorf("load tokenizer: %w", err)
	}
	vocab, err := loadVocabulary(cfg)
	if err != nil {
		return scoring{}, err
	}
	return scoring{counter: counter, vocab: vocab}, nil
}

// loadVocabulary returns the configured override merged over the built-in
// table, or the built-in table when no override is set.
func loadVocabulary(cfg *config.Config) (*metrics.Vocabulary, error) {
	path := strings.TrimSpace(cfg.Metrics.VocabularyPath)
	if path == "" {
		return metrics.DefaultVocabulary(), nil
	}
	vocab, err := metrics.LoadVocabulary(path)
	if err != nil {
		return nil, fmt.Errorf("load vocabulary: %w", err)
	}
	return vocab, nil
}

func newModelClient(cfg *config.Config) (*vlm.Client, error) {
	if err := cfg.RequireAPIKey(); err != nil {
		return nil, err
	}
	return vlm.NewClient(vlm.Config{
		APIKey:          cfg.VLM.APIKey,
		BaseURL:         cfg.VLM.BaseURL,
		Model:           cfg.VLM.Model,
		TimeoutSeconds:  cfg.VLM.TimeoutSeconds,
		MaxOutputTokens: cfg.VLM.MaxOutputTokens,
	}, vlm.WithRetryPolicy(vlm.RetryPolicy{
		MaxAttempts:    cfg.Retry.MaxAttempts,
		RateLimitBase:  cfg.RateLimitBase(),
		TransientDelay: cfg.TransientDelay(),
	})), nil
}
