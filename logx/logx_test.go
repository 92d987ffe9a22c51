package logx

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gridpolicy/grid"
)

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "0", formatNumber(0))
	assert.Equal(t, "999", formatNumber(999))
	assert.Equal(t, "12,345", formatNumber(12345))
	assert.Equal(t, "1,000,000", formatNumber(1000000))
	assert.Equal(t, "-12,345", formatNumber(-12345))
	assert.Equal(t, "-12", formatNumber(-12))
}

func TestFormatCostAndTonnes(t *testing.T) {
	assert.Equal(t, "12.30B", FormatCost(12.3e9))
	assert.Equal(t, "4.5M", FormatCost(4.5e6))
	assert.Equal(t, "-2.00B", FormatCost(-2e9))
	assert.Equal(t, "950", FormatCost(950))

	assert.Equal(t, "1.50Mt", formatTonnes(1.5e6))
	assert.Equal(t, "-2.00Mt", formatTonnes(-2e6))
	assert.Equal(t, "420t", formatTonnes(420))
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "42s", FormatDuration(42*time.Second))
	assert.Equal(t, "5m", FormatDuration(5*time.Minute+10*time.Second))
	assert.Equal(t, "2h5m", FormatDuration(2*time.Hour+5*time.Minute))
}

func TestPrintYearTable(t *testing.T) {
	var buf bytes.Buffer
	rows := []grid.YearlyAggregates{
		{Year: 2025, PowerUsage: 300000, PowerGeneration: 290000, Emissions: 5e7, TotalCost: 3e9, PublicOpinion: 0.6, Reliability: 0.97},
		{Year: 2026, PowerUsage: 305000, PowerGeneration: 310000, Emissions: 4e7, CarbonOffset: 1e6, TotalCost: 3.2e9, PublicOpinion: 0.62, Reliability: 1},
	}
	require.NoError(t, PrintYearTable(&buf, rows))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "RELIABILITY")
	assert.Contains(t, lines[1], "-10,000")
	assert.Contains(t, lines[2], "39.00Mt")
}

func TestPrintWeightTableOrder(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PrintWeightTable(&buf, 2030, []string{"AddGenerator(Nuclear)", "CloseGenerator(CoalPlant)"}, []float64{2.5, 1.25}))
	out := buf.String()
	assert.Contains(t, out, "2030")
	assert.Less(t, strings.Index(out, "Nuclear"), strings.Index(out, "CoalPlant"))
	assert.Contains(t, out, "2.5000")
}
