package grid

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gridpolicy/action"
)

var _ State = (*Model)(nil)

func TestStartingFleetIsShortOfDemand(t *testing.T) {
	m := NewModel()
	y := m.ReadMetrics(2025)
	assert.True(t, y.Deficit(), "2025 starts in deficit: gen=%.0f usage=%.0f", y.PowerGeneration, y.PowerUsage)
	assert.Greater(t, y.Emissions, 0.0)
	assert.Less(t, y.Reliability, 1.0)
	assert.Equal(t, 23, m.AssetCount(2025))

	later := m.ReadMetrics(2050)
	assert.Greater(t, later.PowerUsage, y.PowerUsage)
}

func TestAddGeneratorRaisesGenerationAndCost(t *testing.T) {
	m := NewModel()
	before := m.ReadMetrics(2030)
	require.NoError(t, m.ApplyAction(action.AddGenerator(action.OffshoreWind, 1), 2030))
	after := m.ReadMetrics(2030)
	assert.InDelta(t, 12_000, after.PowerGeneration-before.PowerGeneration, 1e-6)
	assert.InDelta(t, 4.2e9, after.CapitalCost-before.CapitalCost, 1)

	// the build is not visible before its year
	assert.Equal(t, m.ReadMetrics(2029).PowerGeneration, before.PowerGeneration)
}

func TestCostMultiplierScalesCapital(t *testing.T) {
	a, b := NewModel(), NewModel()
	require.NoError(t, a.ApplyAction(action.AddGenerator(action.Nuclear, 1), 2026))
	require.NoError(t, b.ApplyAction(action.AddGenerator(action.Nuclear, 1.5), 2026))
	assert.InDelta(t, 10e9, b.ReadMetrics(2026).CapitalCost-a.ReadMetrics(2026).CapitalCost, 1)
}

func TestCloseGeneratorTargetsOldestFossil(t *testing.T) {
	m := NewModel()
	before := m.ReadMetrics(2027)
	require.NoError(t, m.ApplyAction(action.CloseGenerator(""), 2027))
	after := m.ReadMetrics(2027)
	assert.InDelta(t, 15_000, before.PowerGeneration-after.PowerGeneration, 1e-6)
	assert.Less(t, after.Emissions, before.Emissions)
	assert.Less(t, after.PublicOpinion, before.PublicOpinion+0.05)
	assert.Equal(t, before.PowerGeneration, m.ReadMetrics(2026).PowerGeneration)
}

func TestUnknownAssetIsAnError(t *testing.T) {
	m := NewModel()
	err := m.ApplyAction(action.UpgradeEfficiency("G-9999"), 2030)
	assert.True(t, errors.Is(err, ErrUnknownAsset))
	assert.Error(t, m.ApplyAction(action.DoNothing(), 2051))
}

func TestOffsetsReduceNetEmissions(t *testing.T) {
	m := NewModel()
	before := m.ReadMetrics(2040)
	require.NoError(t, m.ApplyAction(action.AddCarbonOffset(action.ActiveCapture, 1), 2040))
	after := m.ReadMetrics(2040)
	assert.InDelta(t, 4_000_000, before.NetEmissions()-after.NetEmissions(), 1e-3)
	assert.Equal(t, after.NetEmissions(), after.ActionResult().NetEmissions)
}

func TestAdjustAndUpgrade(t *testing.T) {
	m := NewModel()
	base := m.ReadMetrics(2035).PowerGeneration
	require.NoError(t, m.ApplyAction(action.AdjustOperation("G-0001", 50), 2035))
	assert.InDelta(t, 7_500, base-m.ReadMetrics(2035).PowerGeneration, 1e-6)

	require.NoError(t, m.ApplyAction(action.UpgradeEfficiency("G-0004"), 2035))
	assert.Greater(t, m.ReadMetrics(2035).PowerGeneration, base-7_500)
}

func TestCloneIsIndependent(t *testing.T) {
	m := NewModel()
	c := m.Clone()
	require.NoError(t, c.ApplyAction(action.AddGenerator(action.BatteryStorage, 1), 2025))
	assert.Equal(t, 23, m.AssetCount(2025))
	assert.Equal(t, 24, c.(*Model).AssetCount(2025))
	assert.NotEqual(t, m.ReadMetrics(2025).TotalCost, c.ReadMetrics(2025).TotalCost)
}
