package policy

import (
	"math"

	"gridpolicy/action"
)

// SampleAction picks the next non-deficit action for year.
//
// While replaying, the best trajectory's actions are returned in order and
// recorded into the current run; once the year's list is exhausted the
// smart fallback pool is used. Otherwise the choice is epsilon-greedy over
// the year's weights, with the distribution sharpened as stagnation grows.
func (s *State) SampleAction(year int) action.Action {
	yi := YearIndex(year)
	if s.forceBest {
		var a action.Action
		if s.bestActions != nil && s.replayIndex[yi] < len(s.bestActions[yi]) {
			a = s.bestActions[yi][s.replayIndex[yi]]
			s.replayIndex[yi]++
		} else {
			if s.debug {
				debugf("replay fallback year=%d cursor=%d", year, s.replayIndex[yi])
			}
			a = s.smartFallback(year)
		}
		s.currentActions[yi] = append(s.currentActions[yi], a)
		return a
	}

	yw := s.weights.Year(year)
	exploration := s.explorationRate
	if s.stagnation > lowStagnation {
		exploration = s.explorationRate / (1 + explorationDecay*float64(s.stagnation))
	}

	if s.rng.Float64() < exploration {
		if yw.Len() == 0 {
			return safeDefault
		}
		return yw.actions[s.rng.Intn(yw.Len())]
	}

	total := yw.Total()
	if total <= 0 {
		return safeDefault
	}

	if s.stagnation > midStagnation {
		return s.sharpenedDraw(yw)
	}

	r := s.rng.Float64() * total
	for i, w := range yw.weights {
		r -= w
		if r <= 0 {
			return yw.actions[i]
		}
	}
	return safeDefault
}

// sharpenedDraw raises every weight to a power in [1,3] that grows with stagnation.
func (s *State) sharpenedDraw(yw *YearWeights) action.Action {
	p := powerScaleMin + powerScaleFactor*math.Min(float64(s.stagnation)/stagnationDivisor, stagnationScaleMax)
	p = clampf(p, powerScaleMin, powerScaleCap)

	scaled := make([]float64, yw.Len())
	var total float64
	best := 0
	for i, w := range yw.weights {
		scaled[i] = math.Pow(w, p)
		total += scaled[i]
		if w > yw.weights[best] {
			best = i
		}
	}
	r := s.rng.Float64() * total
	for i, w := range scaled {
		r -= w
		if r <= 0 {
			return yw.actions[i]
		}
	}
	return yw.actions[best]
}

// SampleDeficitAction picks a generation-adding action for a year in deficit.
func (s *State) SampleDeficitAction(year int) action.Action {
	yi := YearIndex(year)
	if s.forceBest {
		var a action.Action
		if s.bestDeficitActions != nil && s.deficitReplayIndex[yi] < len(s.bestDeficitActions[yi]) {
			a = s.bestDeficitActions[yi][s.deficitReplayIndex[yi]]
			s.deficitReplayIndex[yi]++
		} else {
			if s.debug {
				debugf("deficit replay fallback year=%d cursor=%d", year, s.deficitReplayIndex[yi])
			}
			a = s.smartDeficitFallback()
		}
		s.currentDeficit[yi] = append(s.currentDeficit[yi], a)
		return a
	}

	yw := s.deficit.Year(year)
	var candidates []int
	var total float64
	for i, a := range yw.actions {
		if a.IsAddGenerator() {
			candidates = append(candidates, i)
			total += yw.weights[i]
		}
	}

	if s.rng.Float64() < s.explorationRate {
		if len(candidates) == 0 {
			return safeDefault
		}
		return yw.actions[candidates[s.rng.Intn(len(candidates))]]
	}

	if total <= 0 {
		return safeDefault
	}
	r := s.rng.Float64() * total
	for _, i := range candidates {
		r -= yw.weights[i]
		if r <= 0 {
			return yw.actions[i]
		}
	}
	return safeDefault
}

// SampleAdditionalActions draws how many regular actions to take in year,
// capped so deficit plus additional actions never exceed MaxActionCount.
func (s *State) SampleAdditionalActions(year int) int {
	yi := YearIndex(year)
	capacity := MaxActionCount - len(s.currentDeficit[yi])
	if capacity <= 0 {
		if s.debug {
			debugf("year %d already has %d deficit actions, no additional actions", year, len(s.currentDeficit[yi]))
		}
		return 0
	}

	row := &s.counts[yi]
	r := s.rng.Float64()
	var total float64
	for _, w := range row {
		total += w
	}
	if total <= 0 {
		return 0
	}
	r *= total
	for c, w := range row {
		r -= w
		if r <= 0 {
			return min(c, capacity)
		}
	}
	return min(additionalFallback, capacity)
}
