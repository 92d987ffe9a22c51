package policy

import (
	"fmt"
	"sort"

	"gridpolicy/action"
	"gridpolicy/logx"
)

// WeightedAction pairs an action with its current weight.
type WeightedAction struct {
	Action action.Action
	Weight float64
}

// TopActions returns the n highest-weighted actions for year, heaviest first.
// Ties keep registration order.
func (s *State) TopActions(year, n int) []WeightedAction {
	yw := s.weights.Year(year)
	out := make([]WeightedAction, 0, yw.Len())
	yw.Each(func(a action.Action, w float64) bool {
		out = append(out, WeightedAction{a, w})
		return true
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].Weight > out[j].Weight })
	if n >= 0 && n < len(out) {
		out = out[:n]
	}
	return out
}

func debugf(format string, args ...any) {
	logx.LogLearning(fmt.Sprintf(format, args...))
}
