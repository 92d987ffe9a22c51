// Package grid defines what the optimizer needs from a grid simulation and
// ships a small deterministic reference model.
package grid

import (
	"gridpolicy/action"
	"gridpolicy/score"
)

// State is a mutable grid simulation. The optimizer gives each iteration
// its own Clone and drives it one action and one year at a time.
type State interface {
	Clone() State
	ApplyAction(a action.Action, year int) error
	ReadMetrics(year int) YearlyAggregates
}

// YearlyAggregates is the grid's position at the end of one year.
// Energy is in GWh, emissions and offsets in tonnes CO2, costs in currency units.
type YearlyAggregates struct {
	Year            int     `json:"year"`
	Population      float64 `json:"population"`
	PowerUsage      float64 `json:"power_usage"`
	PowerGeneration float64 `json:"power_generation"`
	Emissions       float64 `json:"emissions"`
	CarbonOffset    float64 `json:"carbon_offset"`
	CapitalCost     float64 `json:"capital_cost"`
	OperatingCost   float64 `json:"operating_cost"`
	TotalCost       float64 `json:"total_cost"`
	PublicOpinion   float64 `json:"public_opinion"`
	Reliability     float64 `json:"reliability"`
}

func (y YearlyAggregates) NetEmissions() float64 { return y.Emissions - y.CarbonOffset }

func (y YearlyAggregates) PowerBalance() float64 { return y.PowerGeneration - y.PowerUsage }

// Deficit reports whether generation falls short of demand.
func (y YearlyAggregates) Deficit() bool { return y.PowerBalance() < 0 }

// ActionResult projects the aggregates onto what action scoring compares.
func (y YearlyAggregates) ActionResult() score.ActionResult {
	return score.ActionResult{
		NetEmissions:  y.NetEmissions(),
		PublicOpinion: y.PublicOpinion,
		PowerBalance:  y.PowerBalance(),
		TotalCost:     y.TotalCost,
	}
}
