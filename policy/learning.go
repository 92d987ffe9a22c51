package policy

import (
	"math"

	"gridpolicy/action"
	"gridpolicy/score"
)

// adjustmentFactor is 1+lr*x for gains and 1/(1+lr*|x|) for losses.
func adjustmentFactor(lr, improvement float64) float64 {
	if improvement > 0 {
		return 1 + lr*improvement
	}
	return 1 / (1 + lr*math.Abs(improvement))
}

// relativeToBest compares the last finished run against the best score.
// Best already includes the last run, so this is never positive once best > 0.
func (s *State) relativeToBest() float64 {
	if !s.hasLastRun {
		return 0
	}
	if s.bestScore > 0 {
		return (s.lastRunScore - s.bestScore) / s.bestScore
	}
	return s.lastRunScore
}

// UpdateWeights reinforces a in year by a signed immediate improvement,
// blended with how the last finished run compared to the best.
func (s *State) UpdateWeights(a action.Action, year int, improvement float64) {
	yw := s.weights.Year(year)

	relative := s.relativeToBest()
	immediate := bestBlendNegative
	if relative > 0 {
		immediate = bestBlendPositive
	}
	combined := immediate*improvement + (1-immediate)*relative

	before := yw.GetOrInsert(a)
	after := yw.Scale(a, adjustmentFactor(s.learningRate, combined))
	if s.debug && after != before*adjustmentFactor(s.learningRate, combined) {
		debugf("weight clamped year=%d action=%s value=%.6f", year, a, after)
	}

	if combined < 0 {
		s.boostAlternatives(yw, a)
		if s.bestMetrics != nil && score.IsNetZero(*s.bestMetrics) &&
			s.bestMetrics.TotalCost > score.MaxAcceptableCost*8 {
			yw.Scale(action.DoNothing(), 1+s.learningRate*doNothingBoost)
		}
	}
}

// boostAlternatives nudges every other AddGenerator action up after a bad outcome.
func (s *State) boostAlternatives(yw *YearWeights, except action.Action) {
	boost := 1 + s.learningRate*alternativeBoost
	for i, other := range yw.actions {
		if other != except && other.IsAddGenerator() {
			yw.weights[i] = clampWeight(yw.weights[i] * boost)
		}
	}
}

// UpdateActionCountWeights reinforces taking count additional actions in
// year. Successful low counts get a larger reward. The row stays normalized.
func (s *State) UpdateActionCountWeights(year, count int, improvement float64) {
	if count < 0 || count > MaxActionCount {
		return
	}
	row := s.counts.Row(year)
	bonus := 1.0
	if improvement > 0 {
		bonus = 1 + float64(MaxActionCount-count)/MaxActionCount
	}
	adjusted := improvement * bonus
	// the floor only keeps a row from reaching zero; it never lifts a value
	floor := math.Min(minCountWeight, row[count])
	row[count] = clampf(row[count]*adjustmentFactor(s.learningRate, adjusted), floor, maxCountWeight)
	row.normalize()
	if s.debug && math.Abs(improvement) > 0.05 {
		debugf("count weight year=%d count=%d now %.4f (improvement %.4f)", year, count, row[count], improvement)
	}
}

// UpdateDeficitWeights reinforces a generation-adding choice made while in deficit.
func (s *State) UpdateDeficitWeights(a action.Action, year int, improvement float64) {
	yw := s.deficit.Year(year)
	if improvement > 0 {
		improvement *= deficitPositiveMult
	}
	yw.GetOrInsert(a)
	yw.Scale(a, adjustmentFactor(s.learningRate, improvement))
	if improvement < 0 {
		s.boostAlternatives(yw, a)
	}
}
