package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"framediff/internal/services"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains the directory layout for frames, videos, results and state.
type Paths struct {
	FramesDir  string `toml:"frames_dir"`
	ResultsDir string `toml:"results_dir"`
	VideosDir  string `toml:"videos_dir"`
	SummaryCSV string `toml:"summary_csv"`
	StateDir   string `toml:"state_dir"`
	LogDir     string `toml:"log_dir"`
}

// VLM contains connection settings for the vision-language model service.
type VLM struct {
	APIKey          string `toml:"api_key"`
	BaseURL         string `toml:"base_url"`
	Model           string `toml:"model"`
	TimeoutSeconds  int    `toml:"timeout_seconds"`
	MaxOutputTokens int    `toml:"max_output_tokens"`
}

// Retry bounds how model calls are retried.
type Retry struct {
	MaxAttempts           int     `toml:"max_attempts"`
	RateLimitBaseSeconds  float64 `toml:"rate_limit_base_seconds"`
	TransientDelaySeconds float64 `toml:"transient_delay_seconds"`
}

// Pipeline contains per-video description settings.
type Pipeline struct {
	MaxFrames        int     `toml:"max_frames"`
	CallDelaySeconds float64 `toml:"call_delay_seconds"`
	BaselinePrompt   string  `toml:"baseline_prompt"`
	DiffPrompt       string  `toml:"diff_prompt"`
	InitialFrameText string  `toml:"initial_frame_text"`
}

// Extract contains video-to-frames settings.
type Extract struct {
	MaxFrames     int    `toml:"max_frames"`
	FFmpegBinary  string `toml:"ffmpeg_binary"`
	FFprobeBinary string `toml:"ffprobe_binary"`
}

// Tokenizer selects the reference subword vocabulary.
type Tokenizer struct {
	Encoding string `toml:"encoding"`
}

// Metrics contains scoring settings.
type Metrics struct {
	VocabularyPath string `toml:"vocabulary_path"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for framediff.
type Config struct {
	Paths     Paths     `toml:"paths"`
	VLM       VLM       `toml:"vlm"`
	Retry     Retry     `toml:"retry"`
	Pipeline  Pipeline  `toml:"pipeline"`
	Extract   Extract   `toml:"extract"`
	Tokenizer Tokenizer `toml:"tokenizer"`
	Metrics   Metrics   `toml:"metrics"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/framediff/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, services.Wrap(services.ErrConfiguration, "config", "parse", resolvedPath, err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("framediff.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the results and state directories.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.ResultsDir, c.Paths.StateDir}
	if c.Paths.LogDir != "" {
		dirs = append(dirs, c.Paths.LogDir)
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// RequireAPIKey reports a configuration error when no model credentials are set.
func (c *Config) RequireAPIKey() error {
	if strings.TrimSpace(c.VLM.APIKey) != "" {
		return nil
	}
	defaultPath, err := DefaultConfigPath()
	if err != nil {
		defaultPath = "~/.config/framediff/config.toml"
	}
	return services.Wrap(services.ErrConfiguration, "config", "vlm.api_key",
		fmt.Sprintf("required. Set OPENAI_API_KEY or edit %s (create with 'framediff config init')", defaultPath), nil)
}

// RequireReadableDir reports a configuration error when dir cannot be listed.
func RequireReadableDir(key, dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "config", key, dir, err)
	}
	if !info.IsDir() {
		return services.Wrap(services.ErrConfiguration, "config", key, dir+" is not a directory", nil)
	}
	if _, err := os.ReadDir(dir); err != nil {
		return services.Wrap(services.ErrConfiguration, "config", key, dir, err)
	}
	return nil
}

// LedgerPath returns the run ledger database location.
func (c *Config) LedgerPath() string {
	return filepath.Join(c.Paths.StateDir, "ledger.db")
}

// LockPath returns the single-runner lock file inside the results directory.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.ResultsDir, ".framediff.lock")
}

// CallDelay returns the pause after each successful model call.
func (c *Config) CallDelay() time.Duration {
	return seconds(c.Pipeline.CallDelaySeconds)
}

// RateLimitBase returns the first rate-limit backoff delay.
func (c *Config) RateLimitBase() time.Duration {
	return seconds(c.Retry.RateLimitBaseSeconds)
}

// TransientDelay returns the fixed delay after a transient failure.
func (c *Config) TransientDelay() time.Duration {
	return seconds(c.Retry.TransientDelaySeconds)
}

func seconds(value float64) time.Duration {
	if value <= 0 {
		return 0
	}
	return time.Duration(value * float64(time.Second))
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// SampleConfig returns the embedded sample configuration text.
func SampleConfig() string {
	return sampleConfig
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
