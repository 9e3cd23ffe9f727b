package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"framediff/internal/config"
	"framediff/internal/extract"
)

func newExtractCommand(ctx *commandContext) *cobra.Command {
	var videoPath string
	var outDir string
	var maxFrames int
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Sample frames from source videos into the frames tree",
		Long: "Without --video, converts <videos_dir>/<class>/<file> into <frames_dir>/<class>/<stem>/,\n" +
			"leaving videos whose frame directory already holds frames untouched.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			limit := cfg.Extract.MaxFrames
			if cmd.Flags().Changed("max-frames") {
				limit = maxFrames
			}
			ex := extract.NewFromConfig(cfg, extract.WithLogger(logger))
			out := cmd.OutOrStdout()

			if strings.TrimSpace(videoPath) != "" {
				target := strings.TrimSpace(outDir)
				if target == "" {
					stem := strings.TrimSuffix(filepath.Base(videoPath), filepath.Ext(videoPath))
					target = filepath.Join(cfg.Paths.FramesDir, stem)
				}
				n, err := ex.Extract(cmd.Context(), videoPath, target, limit)
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, map[string]any{"video": videoPath, "output_dir": target, "frames": n})
				}
				fmt.Fprintf(out, "%s -> %d frames saved to %s\n", filepath.Base(videoPath), n, target)
				return nil
			}

			if err := config.RequireReadableDir("paths.videos_dir", cfg.Paths.VideosDir); err != nil {
				return err
			}
			if err := os.MkdirAll(cfg.Paths.FramesDir, 0o755); err != nil {
				return fmt.Errorf("create frames directory: %w", err)
			}
			summary, err := ex.ExtractTree(cmd.Context(), cfg.Paths.VideosDir, cfg.Paths.FramesDir, limit)
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, summary)
			}
			fmt.Fprintf(out, "Extracted: %d  Already present: %d  Failed: %d\n",
				summary.Extracted, summary.Existing, summary.Failed)
			return nil
		},
	}

	cmd.Flags().StringVar(&videoPath, "video", "", "Extract a single video instead of the whole videos tree")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Output directory for --video (default <frames_dir>/<stem>)")
	cmd.Flags().IntVar(&maxFrames, "max-frames", 0, "Frames to keep per video (default extract.max_frames)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output the result as JSON")
	return cmd
}
