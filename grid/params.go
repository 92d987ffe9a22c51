package grid

import (
	"github.com/shopspring/decimal"

	"gridpolicy/action"
)

// assetParams are per-type build characteristics for the reference model.
type assetParams struct {
	output  float64 // GWh per year at full operation
	capital decimal.Decimal
	opex    decimal.Decimal // per GWh generated
	co2     float64         // tonnes per GWh
	opinion float64         // 0..1
}

func d(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

var assetTable = map[action.GeneratorType]assetParams{
	action.OnshoreWind:      {output: 6_000, capital: d(1.5e9), opex: d(9e3), co2: 11, opinion: 0.7},
	action.OffshoreWind:     {output: 12_000, capital: d(4.2e9), opex: d(14e3), co2: 12, opinion: 0.8},
	action.DomesticSolar:    {output: 800, capital: d(0.4e9), opex: d(5e3), co2: 40, opinion: 0.9},
	action.CommercialSolar:  {output: 1_500, capital: d(0.6e9), opex: d(5e3), co2: 38, opinion: 0.85},
	action.UtilitySolar:     {output: 4_000, capital: d(1.1e9), opex: d(4e3), co2: 35, opinion: 0.75},
	action.Nuclear:          {output: 25_000, capital: d(20e9), opex: d(12e3), co2: 12, opinion: 0.45},
	action.CoalPlant:        {output: 15_000, capital: d(2.5e9), opex: d(30e3), co2: 900, opinion: 0.15},
	action.GasCombinedCycle: {output: 12_000, capital: d(1.0e9), opex: d(45e3), co2: 400, opinion: 0.4},
	action.GasPeaker:        {output: 3_000, capital: d(0.3e9), opex: d(80e3), co2: 550, opinion: 0.35},
	action.Biomass:          {output: 5_000, capital: d(1.4e9), opex: d(35e3), co2: 230, opinion: 0.5},
	action.HydroDam:         {output: 4_000, capital: d(3.0e9), opex: d(6e3), co2: 24, opinion: 0.6},
	action.PumpedStorage:    {output: 2_500, capital: d(1.8e9), opex: d(7e3), co2: 0, opinion: 0.6},
	action.BatteryStorage:   {output: 2_000, capital: d(0.7e9), opex: d(6e3), co2: 0, opinion: 0.7},
	action.TidalGenerator:   {output: 2_000, capital: d(2.2e9), opex: d(15e3), co2: 8, opinion: 0.75},
	action.WaveEnergy:       {output: 1_200, capital: d(1.6e9), opex: d(18e3), co2: 8, opinion: 0.75},
}

// offsetParams are per-type carbon offset characteristics.
type offsetParams struct {
	tonnes  float64 // removed per year
	capital decimal.Decimal
	opinion float64
}

var offsetTable = map[action.OffsetType]offsetParams{
	action.Forest:        {tonnes: 1_500_000, capital: d(0.25e9), opinion: 0.8},
	action.Wetland:       {tonnes: 1_000_000, capital: d(0.2e9), opinion: 0.75},
	action.ActiveCapture: {tonnes: 4_000_000, capital: d(1.6e9), opinion: 0.5},
	action.CarbonCredit:  {tonnes: 800_000, capital: d(0.12e9), opinion: 0.35},
}

const (
	basePopulation     = 67_000_000
	populationGrowth   = 0.004
	usagePerCapitaGWh  = 0.0045
	electrificationPct = 0.012

	upgradeStep       = 0.05
	upgradeMax        = 1.25
	upgradeCostShare  = 0.12
	closureOpinionHit = 0.01
)
