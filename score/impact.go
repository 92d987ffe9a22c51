package score

import "math"

// ActionResult is the grid's aggregate position after one action.
type ActionResult struct {
	NetEmissions  float64
	PublicOpinion float64
	PowerBalance  float64
	TotalCost     float64
}

// EvaluateImpact returns the signed immediate improvement between two
// positions. Positive means next is better than current.
func EvaluateImpact(current, next ActionResult, mode Mode) float64 {
	if mode == CostOnly {
		return (current.TotalCost - next.TotalCost) / math.Max(math.Abs(current.TotalCost), 1)
	}

	if current.NetEmissions > 0 {
		return (current.NetEmissions - next.NetEmissions) / math.Max(current.NetEmissions, 1)
	}

	costImprovement := (current.TotalCost - next.TotalCost) / math.Max(math.Abs(current.TotalCost), 1)
	opinionImprovement := next.PublicOpinion - current.PublicOpinion
	cw := 0.5
	if next.TotalCost > MaxAcceptableCost*8 {
		cw = 0.8
	}
	return costImprovement*cw + opinionImprovement*(1-cw)
}
