package optimizer

import (
	"context"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"

	"gridpolicy/score"
)

const recentWindow = 256

// Progress is one monitor sample.
type Progress struct {
	Completed     int           `json:"completed"`
	Total         int           `json:"total"`
	Rate          float64       `json:"rate"`
	Elapsed       time.Duration `json:"elapsed"`
	ETA           time.Duration `json:"eta"`
	BestScore     float64       `json:"best_score"`
	BestTier      int           `json:"best_tier"`
	Stagnation    int           `json:"stagnation"`
	Distinct      int           `json:"distinct"`
	DistinctRatio float64       `json:"distinct_ratio"`
	RecentMean    float64       `json:"recent_mean"`
	RecentStdDev  float64       `json:"recent_std_dev"`
}

// scoreWindow keeps the most recent iteration scores.
type scoreWindow struct {
	mu     sync.Mutex
	buf    []float64
	next   int
	filled bool
}

func newScoreWindow(n int) *scoreWindow {
	return &scoreWindow{buf: make([]float64, n)}
}

func (w *scoreWindow) push(v float64) {
	w.mu.Lock()
	w.buf[w.next] = v
	w.next = (w.next + 1) % len(w.buf)
	if w.next == 0 {
		w.filled = true
	}
	w.mu.Unlock()
}

func (w *scoreWindow) stats() (mean, std float64) {
	w.mu.Lock()
	n := w.next
	if w.filled {
		n = len(w.buf)
	}
	vals := append([]float64(nil), w.buf[:n]...)
	w.mu.Unlock()
	if len(vals) == 0 {
		return 0, 0
	}
	if len(vals) == 1 {
		return vals[0], 0
	}
	return stat.MeanStdDev(vals, nil)
}

// sample builds a Progress from the driver's counters without taking the state lock.
func (d *Driver) sample(started time.Time) Progress {
	done := int(d.completed.Load())
	total := d.cfg.Iterations - d.cfg.StartIteration
	elapsed := time.Since(started)

	p := Progress{
		Completed:  d.cfg.StartIteration + done,
		Total:      d.cfg.Iterations,
		Elapsed:    elapsed,
		Stagnation: int(d.stagnation.Load()),
		Distinct:   d.seen.Len(),
	}
	if secs := elapsed.Seconds(); secs > 0 {
		p.Rate = float64(done) / secs
	}
	if p.Rate > 0 && total > done {
		p.ETA = time.Duration(float64(total-done) / p.Rate * float64(time.Second))
	}
	if best, ok := d.best.Best(); ok {
		p.BestScore = best.Score
		p.BestTier = score.Tier(best.Metrics, d.mode)
	}
	if done > 0 {
		p.DistinctRatio = float64(p.Distinct) / float64(done)
	}
	p.RecentMean, p.RecentStdDev = d.recent.stats()
	return p
}

// monitor reports progress every interval until ctx is done.
func (d *Driver) monitor(ctx context.Context, started time.Time) {
	if d.cfg.ProgressInterval <= 0 || d.hooks.Progress == nil {
		return
	}
	t := time.NewTicker(d.cfg.ProgressInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			d.hooks.Progress(d.sample(started))
		}
	}
}
