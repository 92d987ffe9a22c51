package policy

import (
	"fmt"

	"gridpolicy/action"
)

const (
	StartYear = 2025
	EndYear   = 2050
	NumYears  = EndYear - StartYear + 1

	MinWeight     = 1e-4
	MaxWeight     = 0.999
	DefaultWeight = 0.5

	// MaxActionCount bounds deficit plus additional actions in one year.
	MaxActionCount = 20

	DefaultLearningRate           = 0.2
	DefaultExplorationRate        = 0.2
	DefaultForceReplayProbability = 0.9

	// below every seeded count probability
	minCountWeight = 1e-12
	maxCountWeight = 1.0
)

// stagnation thresholds
const (
	lowStagnation      = 100
	midStagnation      = 500
	highStagnation     = 1000
	restoreStagnation  = 800
	restoreEvery       = 100
	restoreFactor      = 0.75
	forceReplayRampLen = 500.0

	explorationDecay   = 0.01
	iterationDecay     = 0.1
	stagnationDivisor  = 1000.0
	stagnationScaleMax = 3.0
	powerScaleMin      = 1.0
	powerScaleFactor   = 2.0
	powerScaleCap      = 3.0

	contrastThresholdMin     = 0.03
	contrastThresholdMax     = 0.25
	contrastThresholdDecay   = 100.0
	contrastPenaltyMult      = 2.0
	contrastBoostMult        = 3.0
	contrastMildPenaltyMult  = 0.5
	contrastStagnationFactor = 0.2
	contrastStagnationExp    = 1.8
	contrastDetExp           = 0.3
	adaptiveRateFactor       = 0.05
	jitterAmplitude          = 0.1

	deficitPositiveMult  = 1.5
	alternativeBoost     = 0.1
	doNothingBoost       = 0.2
	additionalFallback   = 5
	bestBlendPositive    = 0.7
	bestBlendNegative    = 0.3
	deficitReplayRecords = MaxActionCount
)

// YearIndex maps a year to its table slot. Out-of-range years are a programming error.
func YearIndex(year int) int {
	if year < StartYear || year > EndYear {
		panic(fmt.Sprintf("policy: year %d outside %d..%d", year, StartYear, EndYear))
	}
	return year - StartYear
}

// Years returns 2025..2050 in order.
func Years() []int {
	out := make([]int, NumYears)
	for i := range out {
		out[i] = StartYear + i
	}
	return out
}

func clampf(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

func clampWeight(w float64) float64 {
	if w != w {
		return MinWeight
	}
	return clampf(w, MinWeight, MaxWeight)
}

var generatorSeed = map[action.GeneratorType]float64{
	action.OnshoreWind:      0.08,
	action.OffshoreWind:     0.08,
	action.DomesticSolar:    0.05,
	action.CommercialSolar:  0.05,
	action.UtilitySolar:     0.08,
	action.Nuclear:          0.03,
	action.CoalPlant:        0.04,
	action.GasCombinedCycle: 0.06,
	action.GasPeaker:        0.02,
	action.Biomass:          0.04,
	action.HydroDam:         0.06,
	action.PumpedStorage:    0.06,
	action.BatteryStorage:   0.07,
	action.TidalGenerator:   0.05,
	action.WaveEnergy:       0.05,
}

var offsetSeed = map[action.OffsetType]float64{
	action.Forest:        1.0,
	action.Wetland:       0.8,
	action.ActiveCapture: 1.2,
	action.CarbonCredit:  0.6,
}

const (
	upgradeSeed   = 0.04
	adjustSeed    = 0.04
	offsetBase    = 0.02
	closeSeed     = 0.02
	doNothingSeed = 0.1
)

var deficitSeed = map[action.GeneratorType]float64{
	action.GasPeaker:        0.15,
	action.GasCombinedCycle: 0.15,
	action.BatteryStorage:   0.15,
	action.PumpedStorage:    0.10,
	action.Biomass:          0.10,
	action.OnshoreWind:      0.07,
	action.UtilitySolar:     0.06,
	action.HydroDam:         0.06,
	action.Nuclear:          0.05,
}

const deficitSeedDefault = 0.01

// safeDefault is returned whenever sampling has nothing usable to draw from.
var safeDefault = action.AddGenerator(action.GasPeaker, 1)
