package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"framediff/internal/config"
	"framediff/internal/frames"
	"framediff/internal/logging"
)

// ErrNoFrames is returned when a video reports or yields zero frames.
var ErrNoFrames = errors.New("video has no frames")

// VideoExtensions lists the container formats ExtractTree picks up.
var VideoExtensions = []string{".mp4", ".webm", ".mkv", ".avi", ".mov", ".m4v"}

// Runner executes an external binary and returns its combined output.
type Runner func(ctx context.Context, binary string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, binary string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	return cmd.CombinedOutput()
}

// Extractor samples frames from videos.
type Extractor struct {
	ffmpeg  string
	ffprobe string
	run     Runner
	logger  *slog.Logger
}

// Option customizes an Extractor.
type Option func(*Extractor)

// WithRunner replaces process execution, mainly for tests.
func WithRunner(run Runner) Option {
	return func(e *Extractor) {
		if run != nil {
			e.run = run
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) {
		e.logger = logging.NewComponentLogger(logger, "extract")
	}
}

// New builds an extractor for the given binaries. Empty names fall back to
// ffmpeg and ffprobe on PATH.
func New(ffmpegBinary, ffprobeBinary string, opts ...Option) *Extractor {
	e := &Extractor{
		ffmpeg:  strings.TrimSpace(ffmpegBinary),
		ffprobe: strings.TrimSpace(ffprobeBinary),
		run:     execRunner,
		logger:  logging.NewComponentLogger(nil, "extract"),
	}
	if e.ffmpeg == "" {
		e.ffmpeg = "ffmpeg"
	}
	if e.ffprobe == "" {
		e.ffprobe = "ffprobe"
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NewFromConfig builds an extractor from the [extract] section.
func NewFromConfig(cfg *config.Config, opts ...Option) *Extractor {
	return New(cfg.Extract.FFmpegBinary, cfg.Extract.FFprobeBinary, opts...)
}

// Stride returns the sampling interval for total frames and a cap.
func Stride(total, maxFrames int) int {
	if maxFrames <= 0 {
		return 1
	}
	stride := total / maxFrames
	if stride < 1 {
		return 1
	}
	return stride
}

// Extract samples up to maxFrames frames of videoPath into outDir and
// returns the number written. maxFrames <= 0 keeps every frame.
func (e *Extractor) Extract(ctx context.Context, videoPath, outDir string, maxFrames int) (int, error) {
	if _, err := os.Stat(videoPath); err != nil {
		return 0, fmt.Errorf("cannot open video %s: %w", videoPath, err)
	}
	probe, err := e.Probe(ctx, videoPath)
	if err != nil {
		return 0, fmt.Errorf("cannot open video %s: %w", videoPath, err)
	}
	total := probe.FrameCount()
	if total == 0 {
		return 0, fmt.Errorf("%w: %s", ErrNoFrames, videoPath)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return 0, fmt.Errorf("create frame directory: %w", err)
	}

	stride := Stride(total, maxFrames)
	args := []string{
		"-v", "error", "-hide_banner", "-nostdin", "-y",
		"-i", videoPath,
		"-vf", fmt.Sprintf("select='not(mod(n\\,%d))'", stride),
		"-fps_mode", "vfr",
	}
	if maxFrames > 0 {
		args = append(args, "-frames:v", fmt.Sprint(maxFrames))
	}
	args = append(args, "-q:v", "2", "-start_number", "0", filepath.Join(outDir, "frame_%03d.jpg"))

	if output, err := e.run(ctx, e.ffmpeg, args...); err != nil {
		return 0, fmt.Errorf("ffmpeg failed: %w: %s", err, strings.TrimSpace(string(output)))
	}

	written, err := frames.ListFrames(outDir)
	if err != nil {
		return 0, err
	}
	if len(written) == 0 {
		return 0, fmt.Errorf("%w: %s", ErrNoFrames, videoPath)
	}
	e.logger.Info("frames extracted",
		logging.String("video", filepath.Base(videoPath)),
		logging.Int("frames", len(written)),
		logging.Int("stride", stride),
		logging.Int("total_frames", total),
		logging.String("output_dir", outDir),
	)
	return len(written), nil
}

// TreeSummary reports what ExtractTree did.
type TreeSummary struct {
	Extracted int `json:"extracted"`
	Existing  int `json:"existing"`
	Failed    int `json:"failed"`
}

// ExtractTree walks videosRoot/<class>/<file> and writes frames to
// framesRoot/<class>/<stem>/. Per-video failures are logged and counted; a
// cancelled context stops the walk.
func (e *Extractor) ExtractTree(ctx context.Context, videosRoot, framesRoot string, maxFrames int) (TreeSummary, error) {
	var summary TreeSummary
	videos, err := ListVideos(videosRoot)
	if err != nil {
		return summary, err
	}
	for _, video := range videos {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		class := filepath.Base(filepath.Dir(video))
		stem := strings.TrimSuffix(filepath.Base(video), filepath.Ext(video))
		outDir := filepath.Join(framesRoot, class, stem)

		if existing, err := frames.ListFrames(outDir); err == nil && len(existing) > 0 {
			e.logger.Debug("frames already present",
				logging.String(logging.FieldClass, class),
				logging.String(logging.FieldVideoID, stem),
				logging.Int("frames", len(existing)),
			)
			summary.Existing++
			continue
		}
		if _, err := e.Extract(ctx, video, outDir, maxFrames); err != nil {
			if ctx.Err() != nil {
				return summary, ctx.Err()
			}
			logging.WarnWithContext(e.logger, "frame extraction failed", "extract_failed",
				logging.String(logging.FieldClass, class),
				logging.String(logging.FieldVideoID, stem),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check that ffmpeg can decode the file"),
			)
			summary.Failed++
			continue
		}
		summary.Extracted++
	}
	return summary, nil
}

// ListVideos returns videosRoot/<class>/<file> paths with a known video
// extension, sorted.
func ListVideos(videosRoot string) ([]string, error) {
	classes, err := os.ReadDir(videosRoot)
	if err != nil {
		return nil, fmt.Errorf("read videos root: %w", err)
	}
	var videos []string
	for _, classEntry := range classes {
		if !classEntry.IsDir() || strings.HasPrefix(classEntry.Name(), ".") {
			continue
		}
		classDir := filepath.Join(videosRoot, classEntry.Name())
		entries, err := os.ReadDir(classDir)
		if err != nil {
			return nil, fmt.Errorf("read class directory: %w", err)
		}
		for _, entry := range entries {
			if entry.IsDir() || !isVideo(entry.Name()) {
				continue
			}
			videos = append(videos, filepath.Join(classDir, entry.Name()))
		}
	}
	sort.Strings(videos)
	return videos, nil
}

func isVideo(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, candidate := range VideoExtensions {
		if ext == candidate {
			return true
		}
	}
	return false
}
