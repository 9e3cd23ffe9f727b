package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"framediff/internal/frames"
	"framediff/internal/preflight"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	var skipModel bool
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify directories, external tools and model credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			checks := preflight.RunAll(cmd.Context(), cfg, !skipModel)
			tools := preflight.CheckSystemDeps(cfg)

			if jsonOut {
				if err := writeJSON(cmd, map[string]any{"checks": checks, "dependencies": tools}); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				colorize := isTerminal(out)
				for _, check := range checks {
					kind := statusOK
					if !check.Passed {
						kind = statusError
					}
					detail := check.Detail
					if check.Passed && strings.HasPrefix(check.Name, "Frames") {
						if tasks, err := frames.ScanTasks(cfg.Paths.FramesDir); err == nil {
							detail = fmt.Sprintf("%s, %d videos", detail, len(tasks))
						}
					}
					fmt.Fprintln(out, renderStatusLine(check.Name, kind, detail, colorize))
				}
				for _, tool := range tools {
					switch {
					case tool.Available:
						fmt.Fprintln(out, renderStatusLine(tool.Name, statusOK, tool.Path, colorize))
					case tool.Optional:
						fmt.Fprintln(out, renderStatusLine(tool.Name, statusWarn, tool.Detail+" (needed for extract and demo)", colorize))
					default:
						fmt.Fprintln(out, renderStatusLine(tool.Name, statusError, tool.Detail, colorize))
					}
				}
				if skipModel {
					fmt.Fprintln(out, renderStatusLine("Model", statusInfo, "skipped", colorize))
				}
			}

			if failed := preflight.Failed(checks); len(failed) > 0 {
				return fmt.Errorf("%d check(s) failed", len(failed))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipModel, "skip-model", false, "Do not call the model service")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output results as JSON")
	return cmd
}
