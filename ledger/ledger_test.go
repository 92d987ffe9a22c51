package ledger

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gridpolicy/policy"
)

func open(t *testing.T) *Ledger {
	t.Helper()
	l, err := Open(filepath.Join(t.TempDir(), "sub", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func TestRecordAndList(t *testing.T) {
	ctx := context.Background()
	l := open(t)
	t0 := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	require.NoError(t, l.StartRun(ctx, "run-a", t0, 100, "balanced"))
	require.NoError(t, l.StartRun(ctx, "run-b", t0.Add(time.Hour), 50, "cost_only"))
	require.NoError(t, l.StartRun(ctx, "run-a", t0.Add(2*time.Hour), 999, "balanced"))

	recs := []policy.ImprovementRecord{
		{Iteration: 1, Score: 0.5, NetEmissions: 1e8, TotalCost: 1e10, PublicOpinion: 0.4, PowerReliability: 0.9, Timestamp: t0},
		{Iteration: 7, Score: 1.2, NetEmissions: 5e7, TotalCost: 2e10, PublicOpinion: 0.5, PowerReliability: 0.97, Timestamp: t0.Add(time.Minute)},
	}
	for _, r := range recs {
		require.NoError(t, l.RecordImprovement(ctx, "run-a", r))
	}

	got, err := l.Improvements(ctx, "run-a")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, recs[1].Iteration, got[1].Iteration)
	assert.Equal(t, recs[1].Score, got[1].Score)
	assert.True(t, got[0].Timestamp.Equal(t0))

	runs, err := l.Runs(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-b", runs[0].ID)
	assert.Equal(t, 0, runs[0].Improvements)
	assert.Equal(t, "run-a", runs[1].ID)
	assert.Equal(t, 100, runs[1].Iterations, "second StartRun keeps the first row")
	assert.Equal(t, 2, runs[1].Improvements)
	assert.Equal(t, 1.2, runs[1].BestScore)
}

func TestConcurrentWrites(t *testing.T) {
	ctx := context.Background()
	l := open(t)
	require.NoError(t, l.StartRun(ctx, "run", time.Now(), 10, "balanced"))

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 5; i++ {
				assert.NoError(t, l.RecordImprovement(ctx, "run", policy.ImprovementRecord{Iteration: w*5 + i, Score: float64(i)}))
			}
		}(w)
	}
	wg.Wait()

	got, err := l.Improvements(ctx, "run")
	require.NoError(t, err)
	assert.Len(t, got, 40)
}

func TestReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "h.db")
	l, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, l.StartRun(ctx, "r", time.Now(), 1, "balanced"))
	require.NoError(t, l.Close())

	l, err = Open(path)
	require.NoError(t, err)
	defer l.Close()
	runs, err := l.Runs(ctx)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
	assert.Equal(t, path, l.Path())
}
