package config

const (
	defaultFramesDir        = "frames"
	defaultResultsDir       = "results"
	defaultVideosDir        = "videos"
	defaultSummaryCSV       = "analysis_summary.csv"
	defaultStateDir         = "~/.local/share/framediff"
	defaultVLMBaseURL       = "https://api.openai.com/v1/chat/completions"
	defaultVLMModel         = "gpt-4.1-mini"
	defaultVLMTimeout       = 60
	defaultMaxOutputTokens  = 200
	defaultRetryAttempts    = 5
	defaultRateLimitBase    = 1.0
	defaultTransientDelay   = 5.0
	defaultPipelineFrames   = 8
	defaultCallDelaySeconds = 3.0
	defaultExtractFrames    = 16
	defaultFFmpegBinary     = "ffmpeg"
	defaultFFprobeBinary    = "ffprobe"
	defaultEncoding         = "gpt2"
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"

	// DefaultBaselinePrompt asks for an independent description of one frame.
	DefaultBaselinePrompt = "Describe this frame."
	// DefaultDiffPrompt asks for only the change between two consecutive frames.
	DefaultDiffPrompt = "You are given two consecutive frames from a video. " +
		"Describe only what changed in the current frame compared to the previous one. " +
		"Focus on the main object and its motion. " +
		"Do not repeat static background, lighting, or objects that stay the same."
	// DefaultInitialFrameText is the diff entry for the first frame.
	DefaultInitialFrameText = "Initial frame. No previous frame to compare."
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			FramesDir:  defaultFramesDir,
			ResultsDir: defaultResultsDir,
			VideosDir:  defaultVideosDir,
			SummaryCSV: defaultSummaryCSV,
			StateDir:   defaultStateDir,
		},
		VLM: VLM{
			BaseURL:         defaultVLMBaseURL,
			Model:           defaultVLMModel,
			TimeoutSeconds:  defaultVLMTimeout,
			MaxOutputTokens: defaultMaxOutputTokens,
		},
		Retry: Retry{
			MaxAttempts:           defaultRetryAttempts,
			RateLimitBaseSeconds:  defaultRateLimitBase,
			TransientDelaySeconds: defaultTransientDelay,
		},
		Pipeline: Pipeline{
			MaxFrames:        defaultPipelineFrames,
			CallDelaySeconds: defaultCallDelaySeconds,
			BaselinePrompt:   DefaultBaselinePrompt,
			DiffPrompt:       DefaultDiffPrompt,
			InitialFrameText: DefaultInitialFrameText,
		},
		Extract: Extract{
			MaxFrames:     defaultExtractFrames,
			FFmpegBinary:  defaultFFmpegBinary,
			FFprobeBinary: defaultFFprobeBinary,
		},
		Tokenizer: Tokenizer{Encoding: defaultEncoding},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
