package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"framediff/internal/analysis"
	"framediff/internal/ledger"
	"framediff/internal/logging"
	"framediff/internal/results"
)

func newAnalyzeCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	var csvPath string

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Aggregate stored records per class and write the summary CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			target := cfg.Paths.SummaryCSV
			if cmd.Flags().Changed("csv") {
				target = csvPath
			}

			records, skipped, err := analysis.Collect(results.NewStore(cfg.Paths.ResultsDir), logger)
			if err != nil {
				return err
			}
			rows := analysis.Aggregate(records)

			wrote, err := analysis.WriteCSV(target, rows)
			if err != nil {
				return err
			}

			if len(rows) > 0 {
				runCtx := cmd.Context()
				if runCtx == nil {
					runCtx = context.Background()
				}
				if book, run := startLedgerRun(runCtx, cfg, logger, ledger.KindAnalyze); book != nil {
					if err := book.RecordSnapshot(runCtx, run.ID, rows); err != nil {
						logger.Warn("ledger write failed", logging.Error(err))
					}
					counts := ledger.Counts{Processed: len(records), Skipped: skipped}
					if err := book.FinishRun(runCtx, run.ID, ledger.StatusCompleted, counts); err != nil {
						logger.Warn("ledger write failed", logging.Error(err))
					}
					_ = book.Close()
				}
			}

			if jsonOut {
				return writeJSON(cmd, rows)
			}
			out := cmd.OutOrStdout()
			if len(rows) == 0 {
				fmt.Fprintln(out, "No rows to write.")
				return nil
			}
			fmt.Fprintln(out, analysis.RenderTable(rows))
			if skipped > 0 {
				fmt.Fprintf(out, "Skipped %d unreadable record(s)\n", skipped)
			}
			if wrote {
				fmt.Fprintf(out, "Saved CSV to %s\n", target)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output aggregate rows as JSON")
	cmd.Flags().StringVar(&csvPath, "csv", "", "Write the summary CSV here instead of paths.summary_csv")
	return cmd
}
