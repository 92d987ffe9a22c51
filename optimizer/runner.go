package optimizer

import (
	"fmt"
	"math"

	"gridpolicy/action"
	"gridpolicy/grid"
	"gridpolicy/policy"
	"gridpolicy/score"
)

const (
	// storageOverrideAttempt is the deficit attempt from which battery storage is forced.
	storageOverrideAttempt = 5
	deficitSuccessBonus    = 0.1
	deficitOverallShare    = 0.5
	nearZeroEmissions      = 1000.0
)

// RunOptions configures one trajectory.
type RunOptions struct {
	// Replay forces the best known trajectory instead of sampling.
	Replay bool
}

// IterationResult is the outcome of one full 2025-2050 trajectory.
type IterationResult struct {
	Index          int                     `json:"index"`
	Metrics        score.Metrics           `json:"metrics"`
	Score          float64                 `json:"score"`
	Actions        map[int][]action.Action `json:"actions"`
	DeficitActions map[int][]action.Action `json:"deficit_actions"`
	Yearly         []grid.YearlyAggregates `json:"yearly"`
	Replayed       bool                    `json:"replayed"`
	Improved       bool                    `json:"improved"`
}

// ActionCount returns the number of actions taken across all years.
func (r IterationResult) ActionCount() int {
	n := 0
	for _, list := range r.Actions {
		n += len(list)
	}
	for _, list := range r.DeficitActions {
		n += len(list)
	}
	return n
}

// RunIteration drives g through every year using st to choose actions,
// then lets st learn from the outcome. g is mutated; pass a clone.
func RunIteration(g grid.State, st *policy.State, index int, opts RunOptions) (IterationResult, error) {
	st.SetGuaranteedBestActions(opts.Replay)
	st.StartNewIteration()
	replaying := st.ForceBestActions()
	mode := st.Mode()

	res := IterationResult{
		Index:          index,
		Actions:        make(map[int][]action.Action, policy.NumYears),
		DeficitActions: make(map[int][]action.Action, policy.NumYears),
		Yearly:         make([]grid.YearlyAggregates, 0, policy.NumYears),
		Replayed:       replaying,
	}
	additional := make([]int, policy.NumYears)

	for _, year := range policy.Years() {
		if err := resolveDeficit(g, st, year, replaying, mode); err != nil {
			return res, err
		}

		n := st.SampleAdditionalActions(year)
		if replaying {
			n = len(st.BestActions(year))
		}
		additional[policy.YearIndex(year)] = n

		for i := 0; i < n; i++ {
			a := st.SampleAction(year)
			before := g.ReadMetrics(year)
			if err := g.ApplyAction(a, year); err != nil {
				return res, fmt.Errorf("year %d apply %s: %w", year, a, err)
			}
			if !replaying {
				st.RecordAction(year, a)
			}
			after := g.ReadMetrics(year)
			st.UpdateWeights(a, year, score.EvaluateImpact(before.ActionResult(), after.ActionResult(), mode))
		}

		res.Yearly = append(res.Yearly, g.ReadMetrics(year))
		res.Actions[year] = st.CurrentActions(year)
		res.DeficitActions[year] = st.CurrentDeficitActions(year)
	}

	res.Metrics = finalMetrics(res.Yearly)
	res.Score = score.Score(res.Metrics, mode)

	prevBest := st.BestScore()
	hadBest := st.HasBestActions()

	st.ApplyContrastLearning(res.Metrics)
	res.Improved = st.UpdateBestStrategy(res.Metrics)
	st.ApplyDeficitContrastLearning()

	relative := 0.0
	if hadBest && prevBest > 0 {
		relative = (res.Score - prevBest) / prevBest
	}
	for _, year := range policy.Years() {
		st.UpdateActionCountWeights(year, additional[policy.YearIndex(year)], relative)
	}
	return res, nil
}

// resolveDeficit adds generation until year is no longer short of demand or
// the per-year action budget is spent.
func resolveDeficit(g grid.State, st *policy.State, year int, replaying bool, mode score.Mode) error {
	initial := g.ReadMetrics(year)
	if !initial.Deficit() {
		return nil
	}

	current := initial
	for attempt := 1; current.Deficit() && attempt <= policy.MaxActionCount; attempt++ {
		var a action.Action
		if attempt >= storageOverrideAttempt {
			a = action.AddGenerator(action.BatteryStorage, action.DefaultCostMultiplier)
			st.RecordDeficitAction(year, a)
		} else {
			a = st.SampleDeficitAction(year)
			if !replaying {
				st.RecordDeficitAction(year, a)
			}
		}
		if err := g.ApplyAction(a, year); err != nil {
			return fmt.Errorf("year %d deficit apply %s: %w", year, a, err)
		}

		next := g.ReadMetrics(year)
		cur, nxt := current.ActionResult(), next.ActionResult()
		overall := score.EvaluateImpact(cur, nxt, mode)
		st.UpdateDeficitWeights(a, year, deficitImpact(cur, nxt, overall))
		st.UpdateWeights(a, year, overall*deficitOverallShare)
		current = next
	}

	success := score.EvaluateImpact(initial.ActionResult(), current.ActionResult(), mode)
	if !current.Deficit() && success > 0 {
		for _, a := range st.CurrentDeficitActions(year) {
			st.UpdateDeficitWeights(a, year, deficitSuccessBonus*success)
		}
	}
	return nil
}

// deficitImpact blends the overall impact with emissions, cost and opinion signals.
func deficitImpact(cur, next score.ActionResult, overall float64) float64 {
	var emissions, cost, opinion float64
	if next.NetEmissions < cur.NetEmissions {
		emissions = (cur.NetEmissions - next.NetEmissions) / math.Max(math.Abs(cur.NetEmissions), 1)
	}
	if next.NetEmissions < nearZeroEmissions {
		cost = -(next.TotalCost - cur.TotalCost) / math.Max(math.Abs(cur.TotalCost), 1)
	}
	if next.TotalCost < score.MaxAcceptableCost*8 {
		opinion = (next.PublicOpinion - cur.PublicOpinion) / math.Max(1-cur.PublicOpinion, 0.1)
	}
	return overall*0.7 + emissions*0.15 + cost*0.1 + opinion*0.05
}

// finalMetrics takes the last year's position and the worst reliability over all years.
func finalMetrics(yearly []grid.YearlyAggregates) score.Metrics {
	if len(yearly) == 0 {
		return score.Metrics{}
	}
	last := yearly[len(yearly)-1]
	worst := last.Reliability
	for _, y := range yearly {
		worst = math.Min(worst, y.Reliability)
	}
	return score.Metrics{
		FinalNetEmissions:     last.NetEmissions(),
		AveragePublicOpinion:  last.PublicOpinion,
		TotalCost:             last.TotalCost,
		PowerReliability:      last.Reliability,
		WorstPowerReliability: worst,
	}
}
