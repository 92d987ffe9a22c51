package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"gridpolicy/checkpoint"
	"gridpolicy/logx"
	"gridpolicy/policy"
	"gridpolicy/score"
)

func newInspectCmd() *cobra.Command {
	var (
		year int
		top  int
		mode string
	)
	cmd := &cobra.Command{
		Use:   "inspect <file|dir>",
		Short: "Summarize a checkpoint",
		Long: `Summarize a saved weights file and list the heaviest actions for one year.

The argument may be a weights file, a run directory, or a checkpoint root,
in which case the newest run is used.

Examples:
  gridpolicy inspect checkpoints
  gridpolicy inspect checkpoints/20250314_093000 --year 2040 --top 5`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := score.ParseMode(mode)
			if err != nil {
				return err
			}
			return runInspect(cmd.OutOrStdout(), args[0], year, top, m)
		},
	}
	cmd.Flags().IntVarP(&year, "year", "y", policy.StartYear, "year to list actions for")
	cmd.Flags().IntVarP(&top, "top", "k", 10, "number of actions to list (-1 = all)")
	cmd.Flags().StringVar(&mode, "mode", score.Balanced.String(), "scoring mode used to load the weights")
	return cmd
}

// resolveWeights maps a file, run directory or checkpoint root to a weights file.
func resolveWeights(path string) (string, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if !fi.IsDir() {
		return path, nil
	}
	weights := filepath.Join(path, checkpoint.WeightsFile)
	if _, err := os.Stat(weights); err == nil {
		return weights, nil
	}
	dir, err := checkpoint.LatestRunDir(path, time.Now())
	if err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	return filepath.Join(dir, checkpoint.WeightsFile), nil
}

func runInspect(w io.Writer, path string, year, top int, mode score.Mode) error {
	if year < policy.StartYear || year > policy.EndYear {
		return fmt.Errorf("year %d outside %d..%d", year, policy.StartYear, policy.EndYear)
	}
	weights, err := resolveWeights(path)
	if err != nil {
		return err
	}
	sum, err := checkpoint.Inspect(weights)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "%s", logx.BoxHeader("CHECKPOINT", 60))
	fmt.Fprintf(w, "│ file: %s\n", sum.Path)
	fmt.Fprintf(w, "│ iterations: %s │ stagnation: %d │ mode: %s\n",
		logx.FormatNumberSimple(sum.IterationCount), sum.Stagnation, sum.Mode)
	if sum.HasBest {
		bm := sum.BestMetrics
		tier := score.Tier(bm, mode)
		fmt.Fprintf(w, "│ best: %s (tier %d) │ improvements: %d\n", logx.ScoreColor(sum.BestScore, tier), tier, sum.Improvements)
		fmt.Fprintf(w, "│ net CO2: %s │ cost: %s │ opinion: %s │ reliability: %s (worst %s)\n",
			logx.EmissionsColor(bm.FinalNetEmissions), logx.FormatCost(bm.TotalCost), logx.OpinionColor(bm.AveragePublicOpinion),
			logx.ReliabilityColor(bm.PowerReliability), logx.ReliabilityColor(bm.WorstPowerReliability))
	} else {
		fmt.Fprintf(w, "│ best: %s\n", logx.Dim("(none yet)"))
	}
	fmt.Fprintf(w, "%s", logx.BoxFooter(60))

	opts := policy.DefaultOptions()
	opts.Mode = mode
	st, err := policy.LoadFromFile(weights, opts)
	if err != nil {
		return err
	}
	ranked := st.TopActions(year, top)
	labels := make([]string, len(ranked))
	values := make([]float64, len(ranked))
	for i, wa := range ranked {
		labels[i], values[i] = wa.Action.String(), wa.Weight
	}
	if err := logx.PrintWeightTable(w, year, labels, values); err != nil {
		return err
	}

	if st.HasBestActions() {
		fmt.Fprintf(w, "best trajectory %d: deficit=%v actions=%v\n",
			year, actionNames(st.BestDeficitActions(year)), actionNames(st.BestActions(year)))
	}
	return nil
}
