package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"framediff/internal/ledger"
	"framediff/internal/logging"
	"framediff/internal/recompute"
	"framediff/internal/results"
)

func newRecomputeCommand(ctx *commandContext) *cobra.Command {
	var dryRun bool
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "recompute",
		Short: "Rescore stored records from their saved description texts",
		Long: "Recomputes token counts, lexical redundancy and information density for every\n" +
			"record in the results tree without calling the model. Obsolete metric fields are\n" +
			"removed and all other fields are preserved.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			sc, err := loadScoring(cfg)
			if err != nil {
				return err
			}

			runCtx := cmd.Context()
			if runCtx == nil {
				runCtx = context.Background()
			}
			runner := recompute.New(results.NewStore(cfg.Paths.ResultsDir), sc.counter, sc.vocab,
				recompute.WithLogger(logger),
				recompute.WithDryRun(dryRun),
			)
			summary, runErr := runner.Run(runCtx)

			if !dryRun {
				if book, run := startLedgerRun(context.WithoutCancel(runCtx), cfg, logger, ledger.KindRecompute); book != nil {
					status := ledger.StatusCompleted
					if runErr != nil {
						status = ledger.StatusFailed
					}
					counts := ledger.Counts{Processed: summary.Updated, Skipped: summary.Skipped}
					if err := book.FinishRun(context.WithoutCancel(runCtx), run.ID, status, counts); err != nil {
						logger.Warn("ledger write failed", logging.Error(err))
					}
					_ = book.Close()
				}
			}
			if runErr != nil {
				return runErr
			}

			if jsonOut {
				return writeJSON(cmd, summary)
			}
			out := cmd.OutOrStdout()
			verb := "Updated"
			if dryRun {
				verb = "Would update"
			}
			fmt.Fprintf(out, "%s %d record(s); skipped %d; removed %d obsolete field(s)\n",
				verb, summary.Updated, summary.Skipped, summary.Removed)
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report what would change without writing files")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output the summary as JSON")
	return cmd
}
