package action

import (
	"errors"
	"fmt"
	"math"
)

// ErrUnknownAction is returned when a wire action cannot be decoded.
var ErrUnknownAction = errors.New("unknown action")

// DefaultCostMultiplier is applied when a caller passes a non-positive or non-finite multiplier.
const DefaultCostMultiplier = 1.0

type Kind uint8

const (
	KindAddGenerator Kind = iota
	KindUpgradeEfficiency
	KindAdjustOperation
	KindAddCarbonOffset
	KindCloseGenerator
	KindDoNothing
)

var kindNames = [...]string{
	KindAddGenerator:      "AddGenerator",
	KindUpgradeEfficiency: "UpgradeEfficiency",
	KindAdjustOperation:   "AdjustOperation",
	KindAddCarbonOffset:   "AddCarbonOffset",
	KindCloseGenerator:    "CloseGenerator",
	KindDoNothing:         "DoNothing",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

func parseKind(s string) (Kind, error) {
	for i, n := range kindNames {
		if n == s {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("%w: action_type %q", ErrUnknownAction, s)
}

// Action is one discrete grid modification for a single year.
// It is a comparable value: two actions are equal when every field is equal,
// so it can be used directly as a map key. Build it with the constructors
// below; fields that do not belong to the kind stay zero.
type Action struct {
	Kind           Kind
	Generator      GeneratorType
	Offset         OffsetType
	AssetID        string
	Percent        uint8
	CostMultiplier float64
}

func normalizeMultiplier(m float64) float64 {
	if m <= 0 || math.IsNaN(m) || math.IsInf(m, 0) {
		return DefaultCostMultiplier
	}
	return m
}

func AddGenerator(g GeneratorType, costMultiplier float64) Action {
	return Action{Kind: KindAddGenerator, Generator: g, CostMultiplier: normalizeMultiplier(costMultiplier)}
}

func UpgradeEfficiency(assetID string) Action {
	return Action{Kind: KindUpgradeEfficiency, AssetID: assetID}
}

// AdjustOperation sets an asset's operating level; percent is clamped to 0..100.
func AdjustOperation(assetID string, percent int) Action {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	return Action{Kind: KindAdjustOperation, AssetID: assetID, Percent: uint8(percent)}
}

func AddCarbonOffset(o OffsetType, costMultiplier float64) Action {
	return Action{Kind: KindAddCarbonOffset, Offset: o, CostMultiplier: normalizeMultiplier(costMultiplier)}
}

func CloseGenerator(assetID string) Action {
	return Action{Kind: KindCloseGenerator, AssetID: assetID}
}

func DoNothing() Action {
	return Action{Kind: KindDoNothing}
}

// IsAddGenerator reports whether a is a generation-adding action.
func (a Action) IsAddGenerator() bool {
	return a.Kind == KindAddGenerator
}

func (a Action) String() string {
	switch a.Kind {
	case KindAddGenerator:
		if a.CostMultiplier != DefaultCostMultiplier {
			return fmt.Sprintf("AddGenerator(%s x%.2f)", a.Generator, a.CostMultiplier)
		}
		return fmt.Sprintf("AddGenerator(%s)", a.Generator)
	case KindUpgradeEfficiency:
		return fmt.Sprintf("UpgradeEfficiency(%s)", idOrAny(a.AssetID))
	case KindAdjustOperation:
		return fmt.Sprintf("AdjustOperation(%s, %d%%)", idOrAny(a.AssetID), a.Percent)
	case KindAddCarbonOffset:
		if a.CostMultiplier != DefaultCostMultiplier {
			return fmt.Sprintf("AddCarbonOffset(%s x%.2f)", a.Offset, a.CostMultiplier)
		}
		return fmt.Sprintf("AddCarbonOffset(%s)", a.Offset)
	case KindCloseGenerator:
		return fmt.Sprintf("CloseGenerator(%s)", idOrAny(a.AssetID))
	case KindDoNothing:
		return "DoNothing"
	}
	return a.Kind.String()
}

func idOrAny(id string) string {
	if id == "" {
		return "*"
	}
	return id
}
