package policy

import "gridpolicy/action"

type weightedAction struct {
	action action.Action
	weight int
}

// fallbackPool is the year-phase pool used when replay has nothing left.
// Early years lean on wind, solar and gas; later years shift toward storage and offsets.
func fallbackPool(year int) []weightedAction {
	battery := 10
	if year >= 2035 {
		battery = 20
	}
	offset, gas := 5, 15
	switch {
	case year >= 2045:
		offset, gas = 25, 5
	case year >= 2035:
		offset, gas = 15, 10
	}
	return []weightedAction{
		{action.AddGenerator(action.OnshoreWind, 1), 15},
		{action.AddGenerator(action.OffshoreWind, 1), 10},
		{action.AddGenerator(action.UtilitySolar, 1), 15},
		{action.AddGenerator(action.BatteryStorage, 1), battery},
		{action.AddCarbonOffset(action.Forest, 1), offset},
		{action.AddCarbonOffset(action.ActiveCapture, 1), offset},
		{action.AddGenerator(action.GasCombinedCycle, 1), gas},
	}
}

var deficitPool = []weightedAction{
	{action.AddGenerator(action.GasPeaker, 1), 30},
	{action.AddGenerator(action.BatteryStorage, 1), 30},
	{action.AddGenerator(action.GasCombinedCycle, 1), 20},
	{action.AddGenerator(action.OnshoreWind, 1), 10},
	{action.AddGenerator(action.UtilitySolar, 1), 3},
}

func (s *State) drawPool(pool []weightedAction) action.Action {
	total := 0
	for _, p := range pool {
		total += p.weight
	}
	if total <= 0 {
		return safeDefault
	}
	r := s.rng.Intn(total)
	for _, p := range pool {
		if r < p.weight {
			return p.action
		}
		r -= p.weight
	}
	return pool[len(pool)-1].action
}

func (s *State) smartFallback(year int) action.Action {
	return s.drawPool(fallbackPool(year))
}

func (s *State) smartDeficitFallback() action.Action {
	return s.drawPool(deficitPool)
}
