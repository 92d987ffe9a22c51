package optimizer

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gridpolicy/action"
	"gridpolicy/grid"
	"gridpolicy/policy"
)

// improvingGrid hands out clones whose metrics get strictly better with
// every clone, so the globally best iteration is the last one cloned.
type improvingGrid struct {
	clones *atomic.Int64
	level  int64
}

func newImprovingGrid() *improvingGrid {
	return &improvingGrid{clones: new(atomic.Int64)}
}

func (g *improvingGrid) Clone() grid.State {
	return &improvingGrid{clones: g.clones, level: g.clones.Add(1)}
}

func (g *improvingGrid) ApplyAction(action.Action, int) error { return nil }

func (g *improvingGrid) ReadMetrics(year int) grid.YearlyAggregates {
	return grid.YearlyAggregates{
		Year:            year,
		PowerUsage:      100,
		PowerGeneration: 120,
		Emissions:       150_000_000 - float64(g.level)*1_000_000,
		TotalCost:       1e9,
		PublicOpinion:   0.5,
		Reliability:     1,
	}
}

type failingGrid struct{ improvingGrid }

func (g *failingGrid) Clone() grid.State { return g }

func (g *failingGrid) ApplyAction(action.Action, int) error { return errors.New("boom") }

func (g *failingGrid) ReadMetrics(year int) grid.YearlyAggregates {
	return grid.YearlyAggregates{Year: year, PowerUsage: 100, Reliability: 1}
}

type countingStore struct {
	mu      sync.Mutex
	saved   []int
	learned []int // IterationCount of the state at each save
	fail    error
}

func (s *countingStore) Save(st *policy.State, iteration int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, iteration)
	s.learned = append(s.learned, st.IterationCount())
	return s.fail
}

func TestConcurrentWorkersMergeEveryIteration(t *testing.T) {
	var (
		mu     sync.Mutex
		scores []float64
	)
	hooks := Hooks{Iteration: func(r IterationResult) {
		mu.Lock()
		scores = append(scores, r.Score)
		mu.Unlock()
	}}
	cfg := Config{Iterations: 40, Workers: 8, MergeEvery: 2, Seed: 9}
	d, err := NewDriver(cfg, newImprovingGrid(), newState(9), nil, hooks)
	require.NoError(t, err)

	sum, err := d.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 40, sum.Completed)
	assert.Equal(t, 40, sum.State.IterationCount())
	require.Len(t, scores, 40)

	globalBest := scores[0]
	for _, s := range scores {
		if s > globalBest {
			globalBest = s
		}
	}
	require.True(t, sum.HasBest)
	assert.Equal(t, globalBest, sum.Best.Score)
	assert.Equal(t, globalBest, sum.State.BestScore())
	best, ok := sum.State.BestMetrics()
	require.True(t, ok)
	assert.Equal(t, sum.Best.Metrics, best)
}

func TestSingleWorkerMatchesSequentialCount(t *testing.T) {
	cfg := Config{Iterations: 12, Workers: 1, MergeEvery: 5, Seed: 1}
	d, err := NewDriver(cfg, newImprovingGrid(), newState(1), nil, Hooks{})
	require.NoError(t, err)
	sum, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 12, sum.State.IterationCount())
	assert.Equal(t, 0, sum.State.IterationsWithoutImprovement())
	assert.Len(t, sum.State.ImprovementHistory(), 12)
}

func TestCheckpointsOnInterval(t *testing.T) {
	store := &countingStore{}
	var hooked atomic.Int64
	hooks := Hooks{Checkpoint: func(int, error) { hooked.Add(1) }}
	cfg := Config{Iterations: 20, Workers: 1, MergeEvery: 1, CheckpointEvery: 5, Seed: 2}
	d, err := NewDriver(cfg, newImprovingGrid(), newState(2), store, hooks)
	require.NoError(t, err)

	_, err = d.Run(context.Background())
	require.NoError(t, err)

	// four periodic saves and the final one
	assert.Equal(t, []int{5, 10, 15, 20, 20}, store.saved)
	assert.Equal(t, store.saved, store.learned)
	assert.Equal(t, int64(5), hooked.Load())
}

func TestCheckpointMergesPendingIterations(t *testing.T) {
	store := &countingStore{}
	cfg := Config{Iterations: 10, Workers: 1, MergeEvery: 5, CheckpointEvery: 2, Seed: 12}
	d, err := NewDriver(cfg, newImprovingGrid(), newState(12), store, Hooks{})
	require.NoError(t, err)

	_, err = d.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{2, 4, 6, 8, 10, 10}, store.saved)
	assert.Equal(t, store.saved, store.learned)
}

func TestConcurrentCheckpointsNeverOvercount(t *testing.T) {
	store := &countingStore{}
	cfg := Config{Iterations: 60, Workers: 4, MergeEvery: 7, CheckpointEvery: 3, Seed: 13}
	d, err := NewDriver(cfg, newImprovingGrid(), newState(13), store, Hooks{})
	require.NoError(t, err)

	sum, err := d.Run(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, store.saved)
	assert.Equal(t, store.saved, store.learned)
	assert.Equal(t, 60, store.saved[len(store.saved)-1])
	assert.Equal(t, 60, sum.State.IterationCount())
}

func TestResumeRunsOnlyRemainingIterations(t *testing.T) {
	cfg := Config{Iterations: 10, StartIteration: 6, Workers: 2, MergeEvery: 1, Seed: 4}
	var seen atomic.Int64
	d, err := NewDriver(cfg, newImprovingGrid(), newState(4), nil, Hooks{Iteration: func(r IterationResult) {
		assert.GreaterOrEqual(t, r.Index, 6)
		seen.Add(1)
	}})
	require.NoError(t, err)
	sum, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(4), seen.Load())
	assert.Equal(t, 10, sum.Completed)
}

func TestCheckpointFailureStopsRun(t *testing.T) {
	store := &countingStore{fail: errors.New("disk full")}
	cfg := Config{Iterations: 50, Workers: 2, MergeEvery: 1, CheckpointEvery: 3, Seed: 3}
	d, err := NewDriver(cfg, newImprovingGrid(), newState(3), store, Hooks{})
	require.NoError(t, err)
	sum, err := d.Run(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, "disk full")
	assert.Less(t, sum.Completed, 50)
}

func TestIterationErrorPropagates(t *testing.T) {
	cfg := Config{Iterations: 5, Workers: 2, MergeEvery: 1}
	d, err := NewDriver(cfg, &failingGrid{}, newState(0), nil, Hooks{})
	require.NoError(t, err)
	_, err = d.Run(context.Background())
	assert.ErrorContains(t, err, "boom")
}

func TestCancelMergesAndReturns(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var once sync.Once
	hooks := Hooks{Iteration: func(IterationResult) { once.Do(cancel) }}
	cfg := Config{Iterations: 100_000, Workers: 4, MergeEvery: 1000, Seed: 5}
	d, err := NewDriver(cfg, newImprovingGrid(), newState(5), nil, hooks)
	require.NoError(t, err)

	sum, err := d.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, sum.Completed, 100_000)
	// unmerged work is folded in when workers exit
	assert.Equal(t, sum.Completed, sum.State.IterationCount())
}

func TestProgressHookReceivesFinalSample(t *testing.T) {
	var last atomic.Value
	hooks := Hooks{Progress: func(p Progress) { last.Store(p) }}
	cfg := Config{Iterations: 6, Workers: 2, MergeEvery: 1, ProgressInterval: time.Hour}
	d, err := NewDriver(cfg, newImprovingGrid(), newState(0), nil, hooks)
	require.NoError(t, err)
	_, err = d.Run(context.Background())
	require.NoError(t, err)

	p, ok := last.Load().(Progress)
	require.True(t, ok)
	assert.Equal(t, 6, p.Completed)
	assert.Equal(t, 6, p.Total)
	assert.Equal(t, 2, p.BestTier)
	assert.Greater(t, p.BestScore, 1.0)
	assert.GreaterOrEqual(t, p.Stagnation, 0)
}

func TestConfigValidate(t *testing.T) {
	good := Config{Iterations: 1, Workers: 1, MergeEvery: 1}
	require.NoError(t, good.Validate())

	for name, mut := range map[string]func(*Config){
		"iterations":  func(c *Config) { c.Iterations = 0 },
		"workers":     func(c *Config) { c.Workers = 0 },
		"merge":       func(c *Config) { c.MergeEvery = 0 },
		"checkpoint":  func(c *Config) { c.CheckpointEvery = -1 },
		"replay":      func(c *Config) { c.ReplayFinalPercent = 101 },
		"start index": func(c *Config) { c.StartIteration = -1 },
	} {
		c := good
		mut(&c)
		assert.ErrorIs(t, c.Validate(), ErrBadConfig, name)
	}

	c := Config{Iterations: 200, ReplayFinalPercent: 5}
	assert.Equal(t, 190, c.replayFrom())
}

func TestTrajectorySetCountsDistinct(t *testing.T) {
	ts := NewTrajectorySet()
	a := IterationResult{Actions: map[int][]action.Action{2030: {action.DoNothing()}}}
	b := IterationResult{Actions: map[int][]action.Action{2031: {action.DoNothing()}}}
	c := IterationResult{DeficitActions: map[int][]action.Action{2030: {action.DoNothing()}}}

	assert.True(t, ts.Add(a))
	assert.False(t, ts.Add(a))
	assert.True(t, ts.Add(b))
	assert.True(t, ts.Add(c))
	assert.Equal(t, 3, ts.Len())
}

func TestBestTrackerStrict(t *testing.T) {
	var b BestTracker
	_, ok := b.Best()
	assert.False(t, ok)
	assert.True(t, b.Offer(IterationResult{Index: 1, Score: 1}))
	assert.False(t, b.Offer(IterationResult{Index: 2, Score: 1}))
	assert.True(t, b.Offer(IterationResult{Index: 3, Score: 1.5}))
	best, _ := b.Best()
	assert.Equal(t, 3, best.Index)
	assert.Equal(t, 1.5, b.Score())
}

func TestResumedDriverStartsFromRememberedBest(t *testing.T) {
	cfg := Config{Iterations: 6, Workers: 2, MergeEvery: 1, Seed: 9}
	first, err := NewDriver(cfg, newImprovingGrid(), newState(9), nil, Hooks{})
	require.NoError(t, err)
	sum, err := first.Run(context.Background())
	require.NoError(t, err)
	require.True(t, sum.HasBest)

	cfg.StartIteration, cfg.Iterations = 6, 8
	prev := sum.State.BestScore()
	var worse atomic.Int64
	second, err := NewDriver(cfg, newImprovingGrid(), sum.State, nil, Hooks{NewBest: func(r IterationResult) {
		if r.Score <= prev {
			worse.Add(1)
		}
	}})
	require.NoError(t, err)
	best, ok := second.Best()
	require.True(t, ok)
	assert.Equal(t, prev, best.Score)
	assert.Equal(t, 5, best.Index)

	_, err = second.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, worse.Load())
}
