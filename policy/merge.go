package policy

import (
	"math"

	"gridpolicy/action"
)

// Fork returns a private copy for one worker. The copy remembers its
// iteration count and history length so Merge can tell what it added.
func (s *State) Fork(seed int64) *State {
	c := s.CloneWithSeed(seed)
	c.forkIteration = s.iterationCount
	c.forkHistory = len(s.history)
	return c
}

// Merge folds a worker's fork back into the shared state and returns the
// result; neither argument is modified. Weight tables are last writer wins
// per key, iteration counts add the fork's own iterations, and the best
// snapshot moves only when the fork found something strictly better.
func Merge(shared, local *State) *State {
	out := shared.CloneWithSeed(shared.seed)
	out.forkIteration, out.forkHistory = 0, 0

	local.weights.Each(func(year int, a action.Action, w float64) {
		out.weights.Year(year).Set(a, w)
	})
	local.deficit.Each(func(year int, a action.Action, w float64) {
		out.deficit.Year(year).Set(a, w)
	})
	out.counts = local.counts

	delta := local.iterationCount - local.forkIteration
	if delta < 0 {
		delta = 0
	}
	out.iterationCount += delta

	running := math.Inf(-1)
	if out.bestMetrics != nil {
		running = out.bestScore
	}
	if local.forkHistory <= len(local.history) {
		for _, rec := range local.history[local.forkHistory:] {
			if rec.Score > running {
				out.history = append(out.history, rec)
				running = rec.Score
			}
		}
	}

	if local.bestMetrics != nil && (out.bestMetrics == nil || local.bestScore > out.bestScore) {
		m := *local.bestMetrics
		out.bestMetrics = &m
		out.bestScore = local.bestScore
		if local.bestWeights != nil {
			out.bestWeights = local.bestWeights.Clone()
		}
		if local.primeWeights != nil {
			out.primeWeights = local.primeWeights.Clone()
		}
		if local.bestActions != nil {
			b := local.bestActions.clone()
			out.bestActions = &b
		}
		if local.bestDeficitActions != nil {
			b := local.bestDeficitActions.clone()
			out.bestDeficitActions = &b
		}
		out.stagnation = local.stagnation
	} else {
		out.stagnation += delta
	}

	if local.hasLastRun {
		out.lastRunScore, out.hasLastRun = local.lastRunScore, true
	}
	out.explorationRate = local.explorationRate
	return out
}
