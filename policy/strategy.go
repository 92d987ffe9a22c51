package policy

import (
	"time"

	"gridpolicy/score"
)

// UpdateBestStrategy is the only place the best snapshot changes. It counts
// the iteration, and on a strict improvement (or the first result) records
// the run as the new best and resets stagnation. It reports whether the
// run became the new best.
func (s *State) UpdateBestStrategy(m score.Metrics) bool {
	s.iterationCount++
	sc := score.Score(m, s.mode)
	s.lastRunScore, s.hasLastRun = sc, true

	if s.bestMetrics != nil && sc <= s.bestScore {
		s.stagnation++
		return false
	}

	s.history = append(s.history, ImprovementRecord{
		Iteration:        s.iterationCount,
		Score:            sc,
		NetEmissions:     m.FinalNetEmissions,
		TotalCost:        m.TotalCost,
		PublicOpinion:    m.AveragePublicOpinion,
		PowerReliability: m.PowerReliability,
		Timestamp:        time.Now().UTC(),
	})

	bm := m
	s.bestMetrics = &bm
	s.bestScore = sc
	s.bestWeights = s.weights.Clone()
	s.primeWeights = s.weights.Clone()

	// every year gets an entry, empty years included
	best := s.currentActions.clone()
	bestDeficit := s.currentDeficit.clone()
	s.bestActions = &best
	s.bestDeficitActions = &bestDeficit
	s.stagnation = 0
	return true
}
