package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"framediff/internal/ledger"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "List recent runs, or the per-video outcomes of one run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			book, err := ledger.OpenFromConfig(cfg)
			if err != nil {
				return err
			}
			defer book.Close()

			if len(args) == 1 {
				return showRun(cmd, book, args[0], jsonOut)
			}

			runs, err := book.RecentRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if jsonOut {
				if runs == nil {
					runs = []ledger.Run{}
				}
				return writeJSON(cmd, runs)
			}
			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded.")
				return nil
			}
			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				rows = append(rows, []string{
					run.ID,
					run.Kind,
					run.Status,
					run.StartedAt.Local().Format("2006-01-02 15:04:05"),
					formatRunDuration(run),
					fmt.Sprint(run.Processed),
					fmt.Sprint(run.Skipped),
					fmt.Sprint(run.Failed),
				})
			}
			fmt.Fprintln(out, renderTable([]column{
				textCol("Run"), textCol("Kind"), textCol("Status"), textCol("Started"),
				numCol("Duration"), numCol("Processed"), numCol("Skipped"), numCol("Failed"),
			}, rows))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to show")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func showRun(cmd *cobra.Command, book *ledger.Store, id string, jsonOut bool) error {
	run, err := book.GetRun(cmd.Context(), id)
	if err != nil {
		return err
	}
	outcomes, err := book.Outcomes(cmd.Context(), id)
	if err != nil {
		return err
	}
	if jsonOut {
		return writeJSON(cmd, struct {
			ledger.Run
			Outcomes []ledger.VideoOutcome `json:"outcomes"`
		}{Run: run, Outcomes: outcomes})
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run %s (%s, %s)\n", run.ID, run.Kind, run.Status)
	if len(outcomes) == 0 {
		fmt.Fprintln(out, "No per-video outcomes recorded.")
		return nil
	}
	rows := make([][]string, 0, len(outcomes))
	for _, o := range outcomes {
		rows = append(rows, []string{o.Class, o.VideoID, o.Result, o.State, fmt.Sprint(o.Calls), o.Duration.Round(time.Millisecond).String(), o.Error})
	}
	fmt.Fprintln(out, renderTable([]column{
		textCol("Class"), textCol("Video"), textCol("Result"), textCol("State"),
		numCol("Calls"), numCol("Duration"), textCol("Error"),
	}, rows))
	return nil
}

func formatRunDuration(run ledger.Run) string {
	if run.FinishedAt == nil {
		return "-"
	}
	return run.FinishedAt.Sub(run.StartedAt).Round(time.Second).String()
}
