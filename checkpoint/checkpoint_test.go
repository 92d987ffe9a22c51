package checkpoint

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gridpolicy/action"
	"gridpolicy/policy"
	"gridpolicy/score"
)

var day = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

func trained(t *testing.T) *policy.State {
	t.Helper()
	st := policy.New(policy.DefaultOptions())
	st.StartNewIteration()
	st.RecordAction(2030, action.AddGenerator(action.UtilitySolar, 1))
	st.UpdateBestStrategy(score.Metrics{
		FinalNetEmissions:     5_000_000,
		AveragePublicOpinion:  0.6,
		TotalCost:             2e10,
		PowerReliability:      0.99,
		WorstPowerReliability: 0.97,
	})
	return st
}

func TestNewStoreWritesRunInfo(t *testing.T) {
	root := t.TempDir()
	s, err := NewStore(root, day)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "20250314_093000"), s.Dir())

	info, err := ReadRunInfo(s.Dir())
	require.NoError(t, err)
	_, err = uuid.Parse(info.ID)
	assert.NoError(t, err)
	assert.Equal(t, s.Info().ID, info.ID)
	assert.True(t, info.Started.Equal(day))
	assert.Equal(t, 1, info.Version)
}

func TestSaveAndResume(t *testing.T) {
	root := t.TempDir()
	s, err := NewStore(root, day)
	require.NoError(t, err)
	require.NoError(t, s.Save(trained(t), 250))

	n, err := ReadIteration(s.Dir())
	require.NoError(t, err)
	assert.Equal(t, 250, n)

	r, err := Resume(root, day, policy.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, s.Dir(), r.Dir)
	assert.Equal(t, 250, r.Start)
	assert.Equal(t, 1, r.State.IterationCount())
	assert.True(t, r.State.HasBestActions())
	assert.Len(t, r.State.BestActions(2030), 1)
}

func TestResumeFallsBackToFresh(t *testing.T) {
	root := t.TempDir()
	r, err := Resume(root, day, policy.DefaultOptions())
	assert.True(t, errors.Is(err, ErrNoCheckpoint))
	require.NotNil(t, r.State)
	assert.Equal(t, 0, r.Start)
	assert.Empty(t, r.Dir)
	assert.False(t, r.State.HasBestActions())

	// a corrupt weights file degrades the same way
	dir := filepath.Join(root, "20250101_000000")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, WeightsFile), []byte("{"), 0o644))
	r, err = Resume(root, day, policy.DefaultOptions())
	assert.Error(t, err)
	require.NotNil(t, r.State)
	assert.Equal(t, 0, r.State.IterationCount())
}

func TestResumeWithoutIterationFileUsesStateCount(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "20250102_000000")
	require.NoError(t, trained(t).SaveToFile(filepath.Join(dir, WeightsFile)))

	r, err := Resume(root, day, policy.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 1, r.Start)
}

func TestLatestRunDir(t *testing.T) {
	root := t.TempDir()
	_, err := LatestRunDir(filepath.Join(root, "missing"), day)
	assert.ErrorIs(t, err, ErrNoCheckpoint)

	mk := func(name string, withWeights bool) {
		dir := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(dir, 0o755))
		if withWeights {
			require.NoError(t, os.WriteFile(filepath.Join(dir, WeightsFile), []byte("{}"), 0o644))
		}
	}
	mk("20250310_120000", true)
	mk("20250314_235959", true) // later today still counts
	mk("20250315_000001", true) // tomorrow
	mk("20250314_235000", false)
	mk("not-a-run", true)
	require.NoError(t, os.WriteFile(filepath.Join(root, "20250313_000000"), nil, 0o644))

	got, err := LatestRunDir(root, day)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "20250314_235959"), got)

	got, err = LatestRunDir(root, day.AddDate(0, 0, -1))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "20250310_120000"), got)

	_, err = LatestRunDir(root, day.AddDate(0, -1, 0))
	assert.ErrorIs(t, err, ErrNoCheckpoint)
}

func TestSaveFailsOnUnwritableDir(t *testing.T) {
	root := t.TempDir()
	s, err := NewStore(root, day)
	require.NoError(t, err)
	// replace the run dir with a file so writes fail
	require.NoError(t, os.RemoveAll(s.Dir()))
	require.NoError(t, os.WriteFile(s.Dir(), nil, 0o644))
	assert.Error(t, s.Save(trained(t), 1))
}

func TestInspect(t *testing.T) {
	root := t.TempDir()
	s, err := NewStore(root, day)
	require.NoError(t, err)
	require.NoError(t, s.Save(trained(t), 10))

	sum, err := Inspect(s.Dir())
	require.NoError(t, err)
	assert.Equal(t, 1, sum.IterationCount)
	assert.Equal(t, 0, sum.Stagnation)
	assert.Equal(t, "balanced", sum.Mode)
	assert.True(t, sum.HasBest)
	assert.Equal(t, 1, sum.Improvements)
	assert.Equal(t, policy.NumYears, sum.Years)
	assert.Equal(t, 0.97, sum.BestMetrics.WorstPowerReliability)
	assert.InDelta(t, score.Score(sum.BestMetrics, score.Balanced), sum.BestScore, 1e-12)

	bad := filepath.Join(root, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("[1,"), 0o644))
	_, err = Inspect(bad)
	assert.Error(t, err)

	other := filepath.Join(root, "other.json")
	require.NoError(t, os.WriteFile(other, []byte(`{"a":1}`), 0o644))
	_, err = Inspect(other)
	assert.ErrorContains(t, err, "not a weights file")
}
