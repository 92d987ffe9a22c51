package action

import (
	"encoding/json"
	"fmt"
)

// wireAction is the persisted form of an Action.
type wireAction struct {
	ActionType          string   `json:"action_type"`
	GeneratorType       *string  `json:"generator_type,omitempty"`
	GeneratorID         *string  `json:"generator_id,omitempty"`
	OperationPercentage *uint8   `json:"operation_percentage,omitempty"`
	OffsetType          *string  `json:"offset_type,omitempty"`
	CostMultiplier      *float64 `json:"cost_multiplier,omitempty"`
}

func (a Action) MarshalJSON() ([]byte, error) {
	w := wireAction{ActionType: a.Kind.String()}
	switch a.Kind {
	case KindAddGenerator:
		name := a.Generator.String()
		m := a.CostMultiplier
		w.GeneratorType, w.CostMultiplier = &name, &m
	case KindUpgradeEfficiency, KindCloseGenerator:
		id := a.AssetID
		w.GeneratorID = &id
	case KindAdjustOperation:
		id, pct := a.AssetID, a.Percent
		w.GeneratorID, w.OperationPercentage = &id, &pct
	case KindAddCarbonOffset:
		name := a.Offset.String()
		m := a.CostMultiplier
		w.OffsetType, w.CostMultiplier = &name, &m
	case KindDoNothing:
	default:
		return nil, fmt.Errorf("%w: kind %d", ErrUnknownAction, a.Kind)
	}
	return json.Marshal(w)
}

func (a *Action) UnmarshalJSON(b []byte) error {
	var w wireAction
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	kind, err := parseKind(w.ActionType)
	if err != nil {
		return err
	}
	mult := DefaultCostMultiplier
	if w.CostMultiplier != nil {
		mult = *w.CostMultiplier
	}
	id := ""
	if w.GeneratorID != nil {
		id = *w.GeneratorID
	}

	switch kind {
	case KindAddGenerator:
		if w.GeneratorType == nil {
			return fmt.Errorf("%w: AddGenerator missing generator_type", ErrUnknownAction)
		}
		g, err := ParseGeneratorType(*w.GeneratorType)
		if err != nil {
			return err
		}
		*a = AddGenerator(g, mult)
	case KindUpgradeEfficiency:
		*a = UpgradeEfficiency(id)
	case KindAdjustOperation:
		pct := 0
		if w.OperationPercentage != nil {
			pct = int(*w.OperationPercentage)
		}
		*a = AdjustOperation(id, pct)
	case KindAddCarbonOffset:
		o := Forest
		if w.OffsetType != nil {
			if o, err = ParseOffsetType(*w.OffsetType); err != nil {
				return err
			}
		}
		*a = AddCarbonOffset(o, mult)
	case KindCloseGenerator:
		*a = CloseGenerator(id)
	case KindDoNothing:
		*a = DoNothing()
	}
	return nil
}
