package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gridpolicy/ledger"
	"gridpolicy/logx"
	"gridpolicy/optimizer"
	"gridpolicy/policy"
	"gridpolicy/score"
	"gridpolicy/tui"
)

// stagnationWarnEvery is how often, in iterations without improvement, a warning is logged.
const stagnationWarnEvery = 500

// dashboard fans optimizer events out to the terminal, the TUI, the web
// dashboard and the ledger. Its methods run on worker goroutines.
type dashboard struct {
	runID   string
	mode    score.Mode
	started time.Time
	weights string // checkpoint weights path
	ledger  *ledger.Ledger
	tui     bool

	mu       sync.Mutex
	prevBest float64
	hasBest  bool
	lastWarn int
	last     tui.TrajectoryInfo
}

func (d *dashboard) hooks() optimizer.Hooks {
	return optimizer.Hooks{
		Iteration:  d.SendTrajectoryUpdate,
		NewBest:    d.SendBestUpdate,
		Progress:   d.SendProgressUpdate,
		Checkpoint: d.SendCheckpointUpdate,
	}
}

// SendProgressUpdate broadcasts progress to web dashboard and TUI
func (d *dashboard) SendProgressUpdate(p optimizer.Progress) {
	Broadcast(MsgTypeProgress, ProgressData{
		Completed:     p.Completed,
		Total:         p.Total,
		Rate:          p.Rate,
		TimeElapsed:   logx.FormatDuration(p.Elapsed),
		ETA:           logx.FormatDuration(p.ETA),
		BestScore:     p.BestScore,
		BestTier:      p.BestTier,
		Stagnation:    p.Stagnation,
		Distinct:      p.Distinct,
		DistinctRatio: p.DistinctRatio,
		RecentMean:    p.RecentMean,
		RecentStdDev:  p.RecentStdDev,
	})

	if d.tui {
		d.mu.Lock()
		last := d.last
		d.mu.Unlock()
		tui.PushState(tui.StateSnapshot{
			ProjectName:    "gridpolicy",
			Mode:           d.mode.String(),
			RunID:          d.runID,
			StartTime:      d.started,
			Completed:      p.Completed,
			Total:          p.Total,
			RatePerSec:     p.Rate,
			ETA:            p.ETA,
			BestScore:      p.BestScore,
			BestTier:       p.BestTier,
			Stagnation:     p.Stagnation,
			Distinct:       p.Distinct,
			DistinctRatio:  p.DistinctRatio,
			RecentMean:     p.RecentMean,
			RecentStdDev:   p.RecentStdDev,
			LastTrajectory: last,
		})
		return
	}

	// Also print to terminal
	logx.LogProgress(logx.ProgressLine{
		Completed:     p.Completed,
		Total:         p.Total,
		Rate:          p.Rate,
		ETA:           p.ETA,
		BestScore:     p.BestScore,
		BestTier:      p.BestTier,
		Stagnation:    p.Stagnation,
		DistinctRatio: p.DistinctRatio,
		RecentMean:    p.RecentMean,
		RecentStdDev:  p.RecentStdDev,
	})

	d.mu.Lock()
	warn := p.Stagnation >= stagnationWarnEvery && p.Stagnation/stagnationWarnEvery > d.lastWarn/stagnationWarnEvery
	if warn || p.Stagnation < d.lastWarn {
		d.lastWarn = p.Stagnation
	}
	d.mu.Unlock()
	if warn {
		logx.LogStagnation(p.Stagnation)
		SendWarning(fmt.Sprintf("no improvement for %d iterations", p.Stagnation))
	}
}

// SendBestUpdate logs, broadcasts and records a new global best
func (d *dashboard) SendBestUpdate(res optimizer.IterationResult) {
	d.mu.Lock()
	prev := d.prevBest
	d.prevBest, d.hasBest = res.Score, true
	d.mu.Unlock()

	tier := score.Tier(res.Metrics, d.mode)
	m := res.Metrics
	Broadcast(MsgTypeBest, BestData{
		Iteration:    res.Index,
		Score:        res.Score,
		Tier:         tier,
		NetEmissions: m.FinalNetEmissions,
		TotalCost:    m.TotalCost,
		Opinion:      m.AveragePublicOpinion,
		Reliability:  m.PowerReliability,
		WorstRel:     m.WorstPowerReliability,
		Actions:      res.ActionCount(),
		Timestamp:    time.Now().Format("2006-01-02 15:04:05"),
	})
	logx.LogNewBest(res.Index, prev, res.Score, tier)

	if d.ledger != nil {
		rec := policy.ImprovementRecord{
			Iteration:        res.Index,
			Score:            res.Score,
			NetEmissions:     m.FinalNetEmissions,
			TotalCost:        m.TotalCost,
			PublicOpinion:    m.AveragePublicOpinion,
			PowerReliability: m.PowerReliability,
			Timestamp:        time.Now(),
		}
		if err := d.ledger.RecordImprovement(context.Background(), d.runID, rec); err != nil {
			logx.LogFailure(fmt.Sprintf("ledger: %v", err))
		}
	}
}

// SendTrajectoryUpdate broadcasts a compact record of every finished iteration
func (d *dashboard) SendTrajectoryUpdate(res optimizer.IterationResult) {
	if d.tui {
		d.mu.Lock()
		d.last = tui.TrajectoryInfo{
			Index:        res.Index,
			Score:        res.Score,
			Reliability:  res.Metrics.PowerReliability,
			NetEmissions: res.Metrics.FinalNetEmissions,
			Actions:      res.ActionCount(),
			Replayed:     res.Replayed,
			Timestamp:    time.Now(),
		}
		d.mu.Unlock()
	}
	Broadcast(MsgTypeTrajectory, TrajectoryData{
		Iteration: res.Index,
		Score:     res.Score,
		Actions:   res.ActionCount(),
		Replayed:  res.Replayed,
		Improved:  res.Improved,
	})
}

// SendCheckpointUpdate reports a checkpoint write
func (d *dashboard) SendCheckpointUpdate(iteration int, err error) {
	data := CheckpointData{Iteration: iteration, Path: d.weights}
	if err != nil {
		data.Error = err.Error()
		Broadcast(MsgTypeCheckpoint, data)
		logx.LogFailure(fmt.Sprintf("checkpoint at iteration %d: %v", iteration, err))
		return
	}
	Broadcast(MsgTypeCheckpoint, data)

	d.mu.Lock()
	best := d.prevBest
	d.mu.Unlock()
	logx.LogCheckpoint(d.weights, iteration, best, time.Since(d.started))
	tui.PushEvent(tui.Event{
		Timestamp: time.Now(),
		Type:      "CHECKPOINT",
		Severity:  "info",
		Message:   fmt.Sprintf("Checkpoint saved at iteration %d", iteration),
	})
}
