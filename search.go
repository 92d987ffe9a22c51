package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"gridpolicy/action"
	"gridpolicy/checkpoint"
	"gridpolicy/grid"
	"gridpolicy/ledger"
	"gridpolicy/logx"
	"gridpolicy/optimizer"
	"gridpolicy/policy"
	"gridpolicy/score"
	"gridpolicy/tui"
)

func newSearchCmd() *cobra.Command {
	var configPath string
	flags := DefaultConfig()

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Run the policy search",
		Long: `Run the policy search with a pool of workers.

Examples:
  gridpolicy search -n 5000
  gridpolicy search --config search.yaml --tui
  gridpolicy search --mode cost_only --resume=false --seed 42`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := DefaultConfig()
			if configPath != "" {
				var err error
				if cfg, err = LoadConfig(configPath, cfg); err != nil {
					return err
				}
			}
			cfg.overlayFlags(cmd.Flags(), flags)
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			sig := make(chan os.Signal, 1)
			signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(sig)
			go func() {
				select {
				case <-sig:
					fmt.Printf("\n\nReceived stop signal. Finishing current trajectories and saving...\n")
					SendStatus(StatusData{Status: "stopping"})
					cancel()
				case <-ctx.Done():
				}
			}()

			_, err := runSearch(ctx, cfg)
			return err
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "YAML config file")
	flags.bindFlags(cmd.Flags())
	return cmd
}

// runSearch runs one search to completion or cancellation. Cancellation is
// not an error: the final checkpoint has been written by then.
func runSearch(ctx context.Context, cfg Config) (optimizer.Summary, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	opts, err := cfg.PolicyOptions()
	if err != nil {
		return optimizer.Summary{}, err
	}
	logx.SetLearningVerbose(cfg.Debug)

	st, start := policy.New(opts), 0
	if cfg.Resume {
		r, err := checkpoint.Resume(cfg.CheckpointDir, time.Now(), opts)
		switch {
		case errors.Is(err, checkpoint.ErrNoCheckpoint):
			fmt.Printf("%s  %s  no checkpoint under %s, starting fresh\n",
				logx.TS(time.Now().UTC().Format("15:04:05Z")), logx.Channel("CKPT"), cfg.CheckpointDir)
		case err != nil:
			fmt.Printf("%s  %s  %s\n",
				logx.TS(time.Now().UTC().Format("15:04:05Z")), logx.Channel("CKPT"),
				logx.Warnf("resume failed, starting fresh: %v", err))
		default:
			logx.LogCheckpointLoad(r.Dir, r.Start, r.State.BestScore(), len(r.State.ImprovementHistory()))
		}
		st, start = r.State, r.Start
	}

	store, err := checkpoint.NewStore(cfg.CheckpointDir, time.Now())
	if err != nil {
		return optimizer.Summary{}, err
	}
	runID := store.Info().ID

	var led *ledger.Ledger
	if cfg.HistoryDB != "" {
		if led, err = ledger.Open(cfg.HistoryDB); err != nil {
			return optimizer.Summary{}, err
		}
		defer led.Close()
		if err := led.StartRun(ctx, runID, store.Info().Started, cfg.Iterations, opts.Mode.String()); err != nil {
			return optimizer.Summary{}, err
		}
	}

	useTUI := false
	if cfg.TUI {
		if err := tui.Start(ctx, tui.TUIConfig{
			Title:  "gridpolicy",
			Mode:   opts.Mode.String(),
			RunID:  runID,
			OnQuit: cancel,
		}); err != nil {
			logx.LogFailure(err.Error())
		} else {
			useTUI = true
			defer tui.Stop()
		}
	}

	if cfg.WebPort > 0 {
		port := FindAvailablePort(cfg.WebPort)
		if port != cfg.WebPort {
			logx.LogConfigAdjust("web_port", cfg.WebPort, port)
		}
		go func() {
			if err := StartWebServer(ctx, port); err != nil {
				logx.LogFailure(fmt.Sprintf("dashboard: %v", err))
			}
		}()
	}

	dash := &dashboard{
		runID:   runID,
		mode:    opts.Mode,
		started: time.Now(),
		weights: store.WeightsPath(),
		ledger:  led,
		tui:     useTUI,
	}
	if st.HasBestActions() {
		dash.prevBest, dash.hasBest = st.BestScore(), true
	}

	dcfg := cfg.DriverConfig(start, opts.Seed)
	driver, err := optimizer.NewDriver(dcfg, grid.NewModel(), st, store, dash.hooks())
	if err != nil {
		return optimizer.Summary{}, err
	}

	logx.LogRunStart(runID, opts.Mode.String(), start, cfg.Iterations, dcfg.Workers)
	SendStatus(StatusData{Status: "running", RunID: runID, Mode: opts.Mode.String()})

	sum, err := driver.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		SendError(err.Error())
		return sum, err
	}
	SendStatus(StatusData{Status: "done", RunID: runID, Mode: opts.Mode.String()})

	printSummary(runID, opts.Mode, sum)
	if cfg.ShowTrajectory && sum.HasBest {
		printTrajectory(sum.Best, opts.Mode)
	}
	return sum, nil
}

func printSummary(runID string, mode score.Mode, sum optimizer.Summary) {
	s := logx.SummarySnapshot{
		RunID:        runID,
		Mode:         mode.String(),
		Completed:    sum.Completed,
		Distinct:     sum.Distinct,
		Improvements: len(sum.State.ImprovementHistory()),
		Elapsed:      sum.Elapsed,
	}
	if m, ok := sum.State.BestMetrics(); ok {
		s.BestScore = sum.State.BestScore()
		s.BestTier = score.Tier(m, mode)
		s.NetEmission = m.FinalNetEmissions
		s.TotalCost = m.TotalCost
		s.Opinion = m.AveragePublicOpinion
		s.Reliability = m.PowerReliability
		s.WorstRel = m.WorstPowerReliability
	}
	logx.LogSummary(s)
}

func printTrajectory(best optimizer.IterationResult, mode score.Mode) {
	for _, y := range best.Yearly {
		logx.LogYearBlock(y.Year, actionNames(best.DeficitActions[y.Year]), actionNames(best.Actions[y.Year]), y)
	}
	logx.LogTrajectoryFooter(best.Index, best.Score, score.Tier(best.Metrics, mode), best.Replayed)
	_ = logx.PrintYearTable(os.Stdout, best.Yearly)
}

func actionNames(list []action.Action) []string {
	out := make([]string, len(list))
	for i, a := range list {
		out[i] = a.String()
	}
	return out
}
