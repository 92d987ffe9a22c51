package score

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

const (
	// MaxAcceptableCost normalizes total cost in every tier.
	MaxAcceptableCost = 50_000_000_000.0
	// MaxAcceptableEmissions is the tonnage at which tier-2 progress reaches zero.
	MaxAcceptableEmissions = 200_000_000.0
	// ReliabilityFloor separates tier 1 from the higher tiers.
	ReliabilityFloor = 0.95
)

var ErrUnknownMode = errors.New("unknown optimization mode")

// Mode selects the scoring branch.
type Mode uint8

const (
	Balanced Mode = iota
	CostOnly
)

func (m Mode) String() string {
	switch m {
	case Balanced:
		return "balanced"
	case CostOnly:
		return "cost_only"
	}
	return fmt.Sprintf("Mode(%d)", m)
}

// ParseMode accepts "", "balanced" and "cost_only".
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "balanced":
		return Balanced, nil
	case "cost_only":
		return CostOnly, nil
	}
	return Balanced, fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

func (m Mode) MarshalJSON() ([]byte, error) {
	if m != Balanced && m != CostOnly {
		return nil, fmt.Errorf("%w: %d", ErrUnknownMode, m)
	}
	return json.Marshal(m.String())
}

func (m *Mode) UnmarshalJSON(b []byte) error {
	var s *string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == nil {
		*m = Balanced
		return nil
	}
	parsed, err := ParseMode(*s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Metrics is the outcome of one full 2025-2050 trajectory.
type Metrics struct {
	FinalNetEmissions     float64 `json:"final_net_emissions"`
	AveragePublicOpinion  float64 `json:"average_public_opinion"`
	TotalCost             float64 `json:"total_cost"`
	PowerReliability      float64 `json:"power_reliability"`
	WorstPowerReliability float64 `json:"worst_power_reliability"`
}

// IsNetZero reports whether the trajectory ends at or below zero net emissions.
func IsNetZero(m Metrics) bool {
	return m.FinalNetEmissions <= 0
}

func costScore(totalCost float64) (float64, float64) {
	normalized := math.Max(1, totalCost/MaxAcceptableCost)
	return 1 - math.Min(1, math.Log(normalized)/math.Log(100)), normalized
}

// Score maps metrics to a real value where higher is better. In Balanced
// mode any tier-3 outcome outranks any tier-2 outcome, which outranks any
// tier-1 outcome.
func Score(m Metrics, mode Mode) float64 {
	if mode == CostOnly {
		cs, _ := costScore(m.TotalCost)
		return 1 + cs
	}
	if m.WorstPowerReliability < ReliabilityFloor {
		return m.WorstPowerReliability * 0.8 / ReliabilityFloor
	}
	if m.FinalNetEmissions > 0 {
		progress := 1 - math.Min(1, m.FinalNetEmissions/MaxAcceptableEmissions)
		return 1 + math.Sqrt(progress)*0.8
	}
	cs, normalized := costScore(m.TotalCost)
	cw := 0.6
	if normalized > 2 {
		cw = 0.8
	}
	return 2 + cs*cw + m.AveragePublicOpinion*(1-cw)
}

// Tier returns 1, 2 or 3 for balanced scoring and 0 for cost-only runs.
func Tier(m Metrics, mode Mode) int {
	switch {
	case mode == CostOnly:
		return 0
	case m.WorstPowerReliability < ReliabilityFloor:
		return 1
	case m.FinalNetEmissions > 0:
		return 2
	}
	return 3
}
