package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"gridpolicy/ledger"
	"gridpolicy/logx"
)

func newHistoryCmd() *cobra.Command {
	var dbPath, runID string
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded runs and their improvements",
		Long: `List runs recorded in the history database, newest first.
With --run, list the improvements of that run instead.

Examples:
  gridpolicy history --db history.db
  gridpolicy history --db history.db --run 5f0c2a9e-8d41-4b7a-9e0f-3c2d1b6a7e55`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHistory(cmd.Context(), cmd.OutOrStdout(), dbPath, runID)
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "history database (SQLite)")
	cmd.Flags().StringVar(&runID, "run", "", "show improvements of one run")
	_ = cmd.MarkFlagRequired("db")
	return cmd
}

func runHistory(ctx context.Context, w io.Writer, dbPath, runID string) error {
	led, err := ledger.Open(dbPath)
	if err != nil {
		return err
	}
	defer led.Close()

	if runID != "" {
		recs, err := led.Improvements(ctx, runID)
		if err != nil {
			return err
		}
		if len(recs) == 0 {
			return fmt.Errorf("run %s: no improvements recorded", runID)
		}
		iters := make([]int, len(recs))
		scores := make([]float64, len(recs))
		emissions := make([]float64, len(recs))
		costs := make([]float64, len(recs))
		for i, r := range recs {
			iters[i], scores[i], emissions[i], costs[i] = r.Iteration, r.Score, r.NetEmissions, r.TotalCost
		}
		return logx.PrintImprovementTable(w, iters, scores, emissions, costs)
	}

	runs, err := led.Runs(ctx)
	if err != nil {
		return err
	}
	tw := logx.NewTableWriter(w)
	fmt.Fprintln(tw, "RUN\tSTARTED\tITERATIONS\tMODE\tIMPROVEMENTS\tBEST")
	for _, r := range runs {
		best := "-"
		if r.Improvements > 0 {
			best = fmt.Sprintf("%.4f", r.BestScore)
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%d\t%s\n",
			r.ID, r.Started.UTC().Format("2006-01-02 15:04:05"), r.Iterations, r.Mode, r.Improvements, best)
	}
	return tw.Flush()
}
