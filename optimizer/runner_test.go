package optimizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gridpolicy/grid"
	"gridpolicy/policy"
	"gridpolicy/score"
)

func newState(seed int64) *policy.State {
	opts := policy.DefaultOptions()
	opts.Seed = seed
	return policy.New(opts)
}

func TestRunIterationCoversEveryYear(t *testing.T) {
	st := newState(7)
	res, err := RunIteration(grid.NewModel(), st, 0, RunOptions{})
	require.NoError(t, err)

	require.Len(t, res.Yearly, policy.NumYears)
	assert.Equal(t, 2025, res.Yearly[0].Year)
	assert.Equal(t, 2050, res.Yearly[policy.NumYears-1].Year)
	assert.LessOrEqual(t, res.Metrics.WorstPowerReliability, res.Metrics.PowerReliability)
	assert.Equal(t, score.Score(res.Metrics, score.Balanced), res.Score)

	assert.True(t, res.Improved, "first run always becomes the best")
	assert.Equal(t, 1, st.IterationCount())
	best, ok := st.BestMetrics()
	require.True(t, ok)
	assert.Equal(t, res.Metrics, best)
}

func TestStartingDeficitIsAttacked(t *testing.T) {
	st := newState(11)
	res, err := RunIteration(grid.NewModel(), st, 0, RunOptions{})
	require.NoError(t, err)

	assert.NotEmpty(t, res.DeficitActions[2025], "2025 starts short of demand")
	assert.LessOrEqual(t, len(res.DeficitActions[2025]), policy.MaxActionCount)
	for _, a := range res.DeficitActions[2025] {
		assert.True(t, a.IsAddGenerator(), a.String())
	}
}

func TestReplayReproducesBestTrajectory(t *testing.T) {
	st := newState(3)
	first, err := RunIteration(grid.NewModel(), st, 0, RunOptions{})
	require.NoError(t, err)

	// learn a bit so the weights drift away from the best snapshot
	for i := 1; i < 5; i++ {
		_, err := RunIteration(grid.NewModel(), st, i, RunOptions{})
		require.NoError(t, err)
	}
	bestScore := st.BestScore()
	bestMetrics, _ := st.BestMetrics()

	replay, err := RunIteration(grid.NewModel(), st, 5, RunOptions{Replay: true})
	require.NoError(t, err)
	assert.True(t, replay.Replayed)
	assert.Equal(t, bestScore, replay.Score)
	assert.Equal(t, bestMetrics, replay.Metrics)
	assert.GreaterOrEqual(t, bestScore, first.Score)
}

func TestBestScoreNeverDecreases(t *testing.T) {
	st := newState(42)
	prev := 0.0
	for i := 0; i < 30; i++ {
		res, err := RunIteration(grid.NewModel(), st, i, RunOptions{})
		require.NoError(t, err)
		assert.GreaterOrEqual(t, st.BestScore(), prev)
		assert.GreaterOrEqual(t, st.BestScore(), res.Score)
		prev = st.BestScore()
	}
	assert.Equal(t, 30, st.IterationCount())
	assert.NotEmpty(t, st.ImprovementHistory())
}

func TestActionCount(t *testing.T) {
	st := newState(5)
	res, err := RunIteration(grid.NewModel(), st, 0, RunOptions{})
	require.NoError(t, err)
	n := 0
	for _, year := range policy.Years() {
		n += len(res.Actions[year]) + len(res.DeficitActions[year])
	}
	assert.Equal(t, n, res.ActionCount())
}

func TestFinalMetricsUsesWorstReliability(t *testing.T) {
	yearly := []grid.YearlyAggregates{
		{Year: 2025, Reliability: 0.9},
		{Year: 2026, Reliability: 1, Emissions: 10, CarbonOffset: 4, TotalCost: 7, PublicOpinion: 0.6},
	}
	m := finalMetrics(yearly)
	assert.Equal(t, 0.9, m.WorstPowerReliability)
	assert.Equal(t, 1.0, m.PowerReliability)
	assert.Equal(t, 6.0, m.FinalNetEmissions)
	assert.Equal(t, 7.0, m.TotalCost)
	assert.Equal(t, 0.6, m.AveragePublicOpinion)
	assert.Equal(t, score.Metrics{}, finalMetrics(nil))
}
