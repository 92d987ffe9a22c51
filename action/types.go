package action

import "fmt"

// GeneratorType is the closed set of buildable asset types.
type GeneratorType uint8

const (
	OnshoreWind GeneratorType = iota
	OffshoreWind
	DomesticSolar
	CommercialSolar
	UtilitySolar
	Nuclear
	CoalPlant
	GasCombinedCycle
	GasPeaker
	Biomass
	HydroDam
	PumpedStorage
	BatteryStorage
	TidalGenerator
	WaveEnergy
)

var generatorNames = [...]string{
	OnshoreWind:      "OnshoreWind",
	OffshoreWind:     "OffshoreWind",
	DomesticSolar:    "DomesticSolar",
	CommercialSolar:  "CommercialSolar",
	UtilitySolar:     "UtilitySolar",
	Nuclear:          "Nuclear",
	CoalPlant:        "CoalPlant",
	GasCombinedCycle: "GasCombinedCycle",
	GasPeaker:        "GasPeaker",
	Biomass:          "Biomass",
	HydroDam:         "HydroDam",
	PumpedStorage:    "PumpedStorage",
	BatteryStorage:   "BatteryStorage",
	TidalGenerator:   "TidalGenerator",
	WaveEnergy:       "WaveEnergy",
}

// GeneratorTypes lists every generator type in declaration order.
func GeneratorTypes() []GeneratorType {
	out := make([]GeneratorType, len(generatorNames))
	for i := range generatorNames {
		out[i] = GeneratorType(i)
	}
	return out
}

func (g GeneratorType) String() string {
	if int(g) < len(generatorNames) {
		return generatorNames[g]
	}
	return fmt.Sprintf("GeneratorType(%d)", g)
}

func ParseGeneratorType(s string) (GeneratorType, error) {
	for i, n := range generatorNames {
		if n == s {
			return GeneratorType(i), nil
		}
	}
	return 0, fmt.Errorf("%w: generator_type %q", ErrUnknownAction, s)
}

// IsFossil reports whether the type burns fuel.
func (g GeneratorType) IsFossil() bool {
	switch g {
	case CoalPlant, GasCombinedCycle, GasPeaker, Biomass:
		return true
	}
	return false
}

// IsStorage reports whether the type shifts energy rather than producing it.
func (g GeneratorType) IsStorage() bool {
	return g == PumpedStorage || g == BatteryStorage
}

type OffsetType uint8

const (
	Forest OffsetType = iota
	Wetland
	ActiveCapture
	CarbonCredit
)

var offsetNames = [...]string{
	Forest:        "Forest",
	Wetland:       "Wetland",
	ActiveCapture: "ActiveCapture",
	CarbonCredit:  "CarbonCredit",
}

func OffsetTypes() []OffsetType {
	return []OffsetType{Forest, Wetland, ActiveCapture, CarbonCredit}
}

func (o OffsetType) String() string {
	if int(o) < len(offsetNames) {
		return offsetNames[o]
	}
	return fmt.Sprintf("OffsetType(%d)", o)
}

func ParseOffsetType(s string) (OffsetType, error) {
	for i, n := range offsetNames {
		if n == s {
			return OffsetType(i), nil
		}
	}
	return 0, fmt.Errorf("%w: offset_type %q", ErrUnknownAction, s)
}
