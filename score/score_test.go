package score

import (
	"encoding/json"
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScoreTierOneExact(t *testing.T) {
	got := Score(Metrics{WorstPowerReliability: 0.5, FinalNetEmissions: 0}, Balanced)
	assert.InDelta(t, 0.5*0.8/0.95, got, 1e-12)
	assert.InDelta(t, 0.4211, got, 1e-4)
}

func TestScoreTierTwoExact(t *testing.T) {
	got := Score(Metrics{WorstPowerReliability: 1.0, FinalNetEmissions: 100_000_000}, Balanced)
	assert.InDelta(t, 1+math.Sqrt(0.5)*0.8, got, 1e-12)
	assert.InDelta(t, 1.5657, got, 1e-4)
}

func TestScoreTierThree(t *testing.T) {
	cheap := Metrics{WorstPowerReliability: 1, FinalNetEmissions: -5, TotalCost: 10e9, AveragePublicOpinion: 0.5}
	assert.InDelta(t, 2+1*0.6+0.5*0.4, Score(cheap, Balanced), 1e-12)

	// normalized cost 4 => cost weight 0.8
	pricey := cheap
	pricey.TotalCost = 200e9
	cs := 1 - math.Log(4)/math.Log(100)
	assert.InDelta(t, 2+cs*0.8+0.5*0.2, Score(pricey, Balanced), 1e-12)
	assert.Equal(t, 3, Tier(pricey, Balanced))
}

func TestScoreCostOnlyIgnoresOtherMetrics(t *testing.T) {
	a := Metrics{TotalCost: 40e9, WorstPowerReliability: 0.1, FinalNetEmissions: 1e9}
	b := Metrics{TotalCost: 40e9, WorstPowerReliability: 1, FinalNetEmissions: -1, AveragePublicOpinion: 1}
	assert.Equal(t, Score(a, CostOnly), Score(b, CostOnly))
	assert.Equal(t, 2.0, Score(a, CostOnly))

	huge := Metrics{TotalCost: 500e12}
	assert.Equal(t, 1.0, Score(huge, CostOnly))
	assert.Equal(t, 0, Tier(huge, CostOnly))
}

func randomMetrics(r *rand.Rand, tier int) Metrics {
	m := Metrics{
		AveragePublicOpinion: r.Float64(),
		TotalCost:            r.Float64() * 1e13,
		PowerReliability:     r.Float64(),
	}
	switch tier {
	case 1:
		m.WorstPowerReliability = r.Float64() * 0.9499
		m.FinalNetEmissions = r.NormFloat64() * 1e8
	case 2:
		m.WorstPowerReliability = 0.95 + r.Float64()*0.05
		m.FinalNetEmissions = 1 + r.Float64()*1e9
	case 3:
		m.WorstPowerReliability = 0.95 + r.Float64()*0.05
		m.FinalNetEmissions = -r.Float64() * 1e7
	}
	return m
}

func TestScoreTierOrderingProperty(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for i := 0; i < 5000; i++ {
		m1, m2, m3 := randomMetrics(r, 1), randomMetrics(r, 2), randomMetrics(r, 3)
		s1, s2, s3 := Score(m1, Balanced), Score(m2, Balanced), Score(m3, Balanced)
		if !(s3 > s2 && s2 > s1) {
			t.Fatalf("tier ordering violated: t1=%v t2=%v t3=%v (%+v %+v %+v)", s1, s2, s3, m1, m2, m3)
		}
		require.Equal(t, 1, Tier(m1, Balanced))
		require.Equal(t, 2, Tier(m2, Balanced))
		require.Equal(t, 3, Tier(m3, Balanced))
	}
}

func TestModeParseAndJSON(t *testing.T) {
	m, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, Balanced, m)

	_, err = ParseMode("cheapest")
	assert.True(t, errors.Is(err, ErrUnknownMode))

	b, err := json.Marshal(CostOnly)
	require.NoError(t, err)
	assert.Equal(t, `"cost_only"`, string(b))

	var back Mode
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, CostOnly, back)

	require.NoError(t, json.Unmarshal([]byte(`null`), &back))
	assert.Equal(t, Balanced, back)
}

func TestEvaluateImpact(t *testing.T) {
	cur := ActionResult{NetEmissions: 1000, TotalCost: 100, PublicOpinion: 0.5}
	next := ActionResult{NetEmissions: 900, TotalCost: 120, PublicOpinion: 0.4}
	assert.InDelta(t, 0.1, EvaluateImpact(cur, next, Balanced), 1e-12)
	assert.InDelta(t, -0.2, EvaluateImpact(cur, next, CostOnly), 1e-12)

	cur.NetEmissions, next.NetEmissions = -1, -2
	// cost -0.2 * 0.5 + opinion -0.1 * 0.5
	assert.InDelta(t, -0.15, EvaluateImpact(cur, next, Balanced), 1e-12)
}

func TestIsNetZero(t *testing.T) {
	assert.True(t, IsNetZero(Metrics{FinalNetEmissions: 0}))
	assert.False(t, IsNetZero(Metrics{FinalNetEmissions: 1}))
}
