package policy

import (
	"math"
	"slices"

	"gridpolicy/action"
	"gridpolicy/score"
)

// ContrastThreshold is the deterioration a run must exceed before contrast
// learning fires. It starts at 0.25 and decays toward 0.03 with stagnation.
func ContrastThreshold(stagnation int) float64 {
	return contrastThresholdMin + (contrastThresholdMax-contrastThresholdMin)*math.Exp(-float64(stagnation)/contrastThresholdDecay)
}

type contrastFactors struct {
	penalty, boost, mild float64
}

func (s *State) contrastFactors(deterioration float64) contrastFactors {
	st := float64(s.stagnation)
	stagnationFactor := 1 + contrastStagnationFactor*math.Pow(st/10, contrastStagnationExp)
	combined := math.Pow(deterioration, contrastDetExp) * stagnationFactor
	alr := s.learningRate * (1 + adaptiveRateFactor*st)
	return contrastFactors{
		penalty: 1 / (1 + alr*contrastPenaltyMult*combined),
		boost:   1 + alr*contrastBoostMult*stagnationFactor,
		mild:    1 / (1 + alr*combined*contrastMildPenaltyMult),
	}
}

// ApplyContrastLearning pushes the normal weights toward the best trajectory
// when the finished run fell far enough behind it. Returns true if it fired.
func (s *State) ApplyContrastLearning(current score.Metrics) bool {
	if s.bestMetrics == nil || s.bestActions == nil {
		return false
	}
	best := s.bestScore
	cur := score.Score(current, s.mode)
	deterioration := 0.0
	if best > 0 {
		deterioration = math.Max(0, (best-cur)/best)
	}
	if deterioration <= ContrastThreshold(s.stagnation) && s.stagnation <= midStagnation {
		return false
	}

	f := s.contrastFactors(deterioration)
	for yi := range s.bestActions {
		yw := s.weights.years[yi]
		bestYear := append(append([]action.Action(nil), s.bestActions[yi]...), s.bestDeficitYear(yi)...)
		currentYear := append(append([]action.Action(nil), s.currentActions[yi]...), s.currentDeficit[yi]...)

		for _, a := range bestYear {
			if yw.Contains(a) {
				yw.Scale(a, f.boost)
			}
		}
		for i, a := range currentYear {
			if !yw.Contains(a) {
				continue
			}
			if !slices.Contains(bestYear, a) {
				yw.Scale(a, f.penalty)
			} else if i < len(bestYear) && bestYear[i] != a {
				// positions are over regular+deficit; deficit slots shift when regular counts differ
				yw.Scale(a, f.mild)
			}
		}
	}
	if s.debug {
		debugf("contrast: deterioration=%.4f stagnation=%d penalty=%.6f boost=%.4f", deterioration, s.stagnation, f.penalty, f.boost)
	}

	if s.stagnation > highStagnation {
		if s.primeWeights != nil {
			s.weights = s.primeWeights.Clone()
		}
		s.jitter(s.weights)
	}
	return true
}

func (s *State) bestDeficitYear(yi int) []action.Action {
	if s.bestDeficitActions == nil {
		return nil
	}
	return s.bestDeficitActions[yi]
}

// ApplyDeficitContrastLearning does the same for the deficit table, using
// stagnation as the deterioration proxy.
func (s *State) ApplyDeficitContrastLearning() bool {
	if s.bestMetrics == nil || s.bestDeficitActions == nil {
		return false
	}
	deterioration := float64(s.stagnation) / 10
	if deterioration <= 0 {
		return false
	}

	f := s.contrastFactors(deterioration)
	for yi, bestYear := range s.bestDeficitActions {
		yw := s.deficit.years[yi]
		for _, a := range bestYear {
			if yw.Contains(a) {
				yw.Scale(a, f.boost)
			}
		}
		for _, a := range s.currentDeficit[yi] {
			if yw.Contains(a) && !slices.Contains(bestYear, a) {
				yw.Scale(a, f.penalty)
			}
		}
	}

	if s.stagnation > highStagnation {
		s.jitter(s.deficit)
	}
	return true
}

// jitter multiplies every weight by a factor in [0.9, 1.1] and clamps.
func (s *State) jitter(t *WeightTable) {
	for _, yw := range t.years {
		for i := range yw.weights {
			yw.weights[i] = clampWeight(yw.weights[i] * (1 + jitterAmplitude*(2*s.rng.Float64()-1)))
		}
	}
}
