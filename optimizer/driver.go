package optimizer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"gridpolicy/action"
	"gridpolicy/grid"
	"gridpolicy/policy"
	"gridpolicy/score"
)

var ErrBadConfig = errors.New("optimizer: bad config")

// Config controls a multi-iteration search.
type Config struct {
	Iterations         int           // total iterations, including StartIteration
	StartIteration     int           // iterations already completed by a resumed run
	Workers            int           // concurrent trajectories
	MergeEvery         int           // iterations a worker runs before folding into the shared state
	CheckpointEvery    int           // 0 disables periodic checkpoints
	ProgressInterval   time.Duration // 0 disables the progress monitor
	ReplayFinalPercent int           // trailing share of iterations that replay the best trajectory
	Seed               int64
}

func (c Config) Validate() error {
	switch {
	case c.Iterations <= 0:
		return fmt.Errorf("%w: iterations must be positive", ErrBadConfig)
	case c.StartIteration < 0:
		return fmt.Errorf("%w: start iteration must not be negative", ErrBadConfig)
	case c.Workers <= 0:
		return fmt.Errorf("%w: workers must be positive", ErrBadConfig)
	case c.MergeEvery <= 0:
		return fmt.Errorf("%w: merge interval must be positive", ErrBadConfig)
	case c.CheckpointEvery < 0:
		return fmt.Errorf("%w: checkpoint interval must not be negative", ErrBadConfig)
	case c.ReplayFinalPercent < 0 || c.ReplayFinalPercent > 100:
		return fmt.Errorf("%w: replay percent must be within [0,100]", ErrBadConfig)
	}
	return nil
}

// replayFrom is the first iteration index that replays the best trajectory.
func (c Config) replayFrom() int {
	return c.Iterations - c.Iterations*c.ReplayFinalPercent/100
}

// Checkpointer persists the shared state. Save is called with the driver's
// write lock held, so implementations may read st freely.
type Checkpointer interface {
	Save(st *policy.State, iteration int) error
}

// Hooks receive driver events. They are called from worker goroutines and
// must be safe for concurrent use. Any of them may be nil.
type Hooks struct {
	Iteration  func(IterationResult)
	NewBest    func(IterationResult)
	Progress   func(Progress)
	Checkpoint func(iteration int, err error)
}

// Summary is what a finished (or cancelled) run leaves behind.
type Summary struct {
	Best      IterationResult
	HasBest   bool
	State     *policy.State
	Completed int
	Distinct  int
	Elapsed   time.Duration
}

// Driver runs iterations on a pool of workers. Each worker learns on a
// private fork of the shared policy state and merges back periodically.
type Driver struct {
	cfg   Config
	base  grid.State
	store Checkpointer
	hooks Hooks
	mode  score.Mode

	mu     sync.RWMutex
	shared *policy.State
	merged int // iterations folded into shared by this run, guarded by mu

	best       BestTracker
	seen       *TrajectorySet
	recent     *scoreWindow
	completed  atomic.Int64
	stagnation atomic.Int64
}

// NewDriver builds a driver around shared. base is cloned for every
// iteration and never mutated. store may be nil.
func NewDriver(cfg Config, base grid.State, shared *policy.State, store Checkpointer, hooks Hooks) (*Driver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if base == nil || shared == nil {
		return nil, fmt.Errorf("%w: grid and policy state are required", ErrBadConfig)
	}
	d := &Driver{
		cfg:    cfg,
		base:   base,
		store:  store,
		hooks:  hooks,
		mode:   shared.Mode(),
		shared: shared,
		seen:   NewTrajectorySet(),
		recent: newScoreWindow(recentWindow),
	}
	if r, ok := resumedBest(shared, cfg.StartIteration); ok {
		d.best.Offer(r)
	}
	return d, nil
}

// resumedBest rebuilds the best trajectory a loaded state remembers, so a
// resumed run only reports trajectories that beat it. Yearly aggregates are
// not persisted and stay empty.
func resumedBest(st *policy.State, start int) (IterationResult, bool) {
	m, ok := st.BestMetrics()
	if !ok || !st.HasBestActions() {
		return IterationResult{}, false
	}
	r := IterationResult{
		Index:          start - 1,
		Metrics:        m,
		Score:          st.BestScore(),
		Actions:        make(map[int][]action.Action, policy.NumYears),
		DeficitActions: make(map[int][]action.Action),
		Replayed:       true,
	}
	for _, year := range policy.Years() {
		r.Actions[year] = st.BestActions(year)
		if d := st.BestDeficitActions(year); len(d) > 0 {
			r.DeficitActions[year] = d
		}
	}
	return r, true
}

// Snapshot returns a copy of the shared state.
func (d *Driver) Snapshot() *policy.State {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.shared.Clone()
}

// Best returns the best trajectory seen so far by any worker.
func (d *Driver) Best() (IterationResult, bool) { return d.best.Best() }

// Run executes the remaining iterations. On cancellation workers finish
// their current trajectory, merge, and a final checkpoint is written.
func (d *Driver) Run(ctx context.Context) (Summary, error) {
	started := time.Now()
	monCtx, stopMonitor := context.WithCancel(context.Background())
	var monWG sync.WaitGroup
	monWG.Add(1)
	go func() {
		defer monWG.Done()
		d.monitor(monCtx, started)
	}()

	g, gctx := errgroup.WithContext(ctx)
	jobs := make(chan int)
	g.Go(func() error {
		defer close(jobs)
		for i := d.cfg.StartIteration; i < d.cfg.Iterations; i++ {
			select {
			case <-gctx.Done():
				return nil
			case jobs <- i:
			}
		}
		return nil
	})
	for w := 0; w < d.cfg.Workers; w++ {
		id := w
		g.Go(func() error { return d.worker(gctx, id, jobs) })
	}
	runErr := g.Wait()

	stopMonitor()
	monWG.Wait()

	done := d.cfg.StartIteration + int(d.completed.Load())
	if err := d.checkpoint(); err != nil && runErr == nil {
		runErr = err
	}
	if d.hooks.Progress != nil {
		d.hooks.Progress(d.sample(started))
	}

	sum := Summary{
		State:     d.Snapshot(),
		Completed: done,
		Distinct:  d.seen.Len(),
		Elapsed:   time.Since(started),
	}
	sum.Best, sum.HasBest = d.best.Best()
	if runErr == nil && ctx.Err() != nil {
		runErr = ctx.Err()
	}
	return sum, runErr
}

func (d *Driver) fork(id, generation int) *policy.State {
	seed := d.cfg.Seed + int64(id+1)*1_000_003 + int64(generation)*7_919
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.shared.Fork(seed)
}

// merge folds local, which has run n iterations since its fork, into the shared state.
func (d *Driver) merge(local *policy.State, n int) {
	d.mu.Lock()
	d.shared = policy.Merge(d.shared, local)
	d.merged += n
	d.mu.Unlock()
}

func (d *Driver) worker(ctx context.Context, id int, jobs <-chan int) error {
	generation := 0
	local := d.fork(id, generation)
	pending := 0
	defer func() {
		if pending > 0 {
			d.merge(local, pending)
		}
	}()

	replayFrom := d.cfg.replayFrom()
	for {
		var idx int
		var ok bool
		select {
		case <-ctx.Done():
			return nil
		case idx, ok = <-jobs:
			if !ok {
				return nil
			}
		}

		res, err := RunIteration(d.base.Clone(), local, idx, RunOptions{Replay: idx >= replayFrom})
		if err != nil {
			return fmt.Errorf("iteration %d: %w", idx, err)
		}
		pending++
		d.observe(res)

		n := d.cfg.StartIteration + int(d.completed.Add(1))
		due := d.cfg.CheckpointEvery > 0 && n%d.cfg.CheckpointEvery == 0

		if pending >= d.cfg.MergeEvery || due {
			d.merge(local, pending)
			pending = 0
			generation++
			local = d.fork(id, generation)
		}
		if due {
			if err := d.checkpoint(); err != nil {
				return err
			}
		}
	}
}

func (d *Driver) observe(res IterationResult) {
	d.seen.Add(res)
	d.recent.push(res.Score)
	if d.best.Offer(res) {
		d.stagnation.Store(0)
		if d.hooks.NewBest != nil {
			d.hooks.NewBest(res)
		}
	} else {
		d.stagnation.Add(1)
	}
	if d.hooks.Iteration != nil {
		d.hooks.Iteration(res)
	}
}

// checkpoint saves the shared state together with the number of iterations
// it actually contains. Iterations still pending in other workers are not
// counted, so a resume replays them instead of skipping their learning.
func (d *Driver) checkpoint() error {
	if d.store == nil {
		return nil
	}
	d.mu.Lock()
	iteration := d.cfg.StartIteration + d.merged
	err := d.store.Save(d.shared, iteration)
	d.mu.Unlock()
	if d.hooks.Checkpoint != nil {
		d.hooks.Checkpoint(iteration, err)
	}
	if err != nil {
		return fmt.Errorf("checkpoint at %d: %w", iteration, err)
	}
	return nil
}
