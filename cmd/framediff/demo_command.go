package main

import (
	"fmt"
	"image"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"framediff/internal/extract"
	"framediff/internal/frames"
	"framediff/internal/pipeline"
	"framediff/internal/results"
)

const demoMaxFrames = 8

type demoReport struct {
	Video           string   `json:"video"`
	FrameDir        string   `json:"frame_dir"`
	BaselineTexts   []string `json:"baseline_texts"`
	DiffTexts       []string `json:"diff_texts"`
	BaselineSummary string   `json:"baseline_summary"`
	DiffSummary     string   `json:"diff_summary"`
	BaselineTokens  int      `json:"baseline_tokens"`
	DiffTokens      int      `json:"diff_tokens"`
}

func newDemoCommand(ctx *commandContext) *cobra.Command {
	var videoPath string
	var frameDir string
	var maxFrames int
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Describe one video in both modes and compare summary token counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			videoPath = strings.TrimSpace(videoPath)
			if videoPath == "" {
				return fmt.Errorf("--video is required")
			}
			client, err := newModelClient(cfg)
			if err != nil {
				return err
			}
			sc, err := loadScoring(cfg)
			if err != nil {
				return err
			}

			dir := strings.TrimSpace(frameDir)
			if dir == "" {
				stem := strings.TrimSuffix(filepath.Base(videoPath), filepath.Ext(videoPath))
				dir = filepath.Join(cfg.Paths.StateDir, "demo", stem)
			}
			if existing, err := frames.ListFrames(dir); err != nil || len(existing) == 0 {
				ex := extract.NewFromConfig(cfg, extract.WithLogger(logger))
				if _, err := ex.Extract(cmd.Context(), videoPath, dir, maxFrames); err != nil {
					return err
				}
			}

			frameList, err := frames.Load(dir, maxFrames)
			if err != nil {
				return err
			}
			images := make([]image.Image, 0, len(frameList))
			for _, frame := range frameList {
				img, err := frame.Decode()
				if err != nil {
					return err
				}
				images = append(images, img)
			}

			orchestrator := pipeline.New(client, results.NewStore(cfg.Paths.ResultsDir), sc.counter, sc.vocab, pipeline.Settings{
				MaxFrames:        maxFrames,
				CallDelay:        cfg.CallDelay(),
				MaxOutputTokens:  cfg.VLM.MaxOutputTokens,
				BaselinePrompt:   cfg.Pipeline.BaselinePrompt,
				DiffPrompt:       cfg.Pipeline.DiffPrompt,
				InitialFrameText: cfg.Pipeline.InitialFrameText,
			}, pipeline.WithLogger(logger))

			baseline, err := orchestrator.DescribeBaseline(cmd.Context(), images)
			if err != nil {
				return err
			}
			diff, err := orchestrator.DescribeDiff(cmd.Context(), images)
			if err != nil {
				return err
			}

			report := demoReport{
				Video:           videoPath,
				FrameDir:        dir,
				BaselineTexts:   baseline,
				DiffTexts:       diff,
				BaselineSummary: pipeline.FrameSummary(baseline),
				DiffSummary:     pipeline.FrameSummary(diff),
			}
			report.BaselineTokens = sc.counter.Count(report.BaselineSummary)
			report.DiffTokens = sc.counter.Count(report.DiffSummary)

			if jsonOut {
				return writeJSON(cmd, report)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "=== Baseline Summary ===")
			fmt.Fprintln(out, report.BaselineSummary)
			fmt.Fprintln(out)
			fmt.Fprintln(out, "=== Diff Summary ===")
			fmt.Fprintln(out, report.DiffSummary)
			fmt.Fprintln(out)
			fmt.Fprintln(out, "=== Token Comparison ===")
			fmt.Fprintf(out, "Baseline summary tokens: %d\n", report.BaselineTokens)
			fmt.Fprintf(out, "Diff summary tokens    : %d\n", report.DiffTokens)
			return nil
		},
	}

	cmd.Flags().StringVar(&videoPath, "video", "", "Source video to describe")
	cmd.Flags().StringVar(&frameDir, "frames", "", "Frame directory to extract into or reuse (default <state_dir>/demo/<stem>)")
	cmd.Flags().IntVar(&maxFrames, "max-frames", demoMaxFrames, "Frames to sample and describe")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output the comparison as JSON")
	return cmd
}
