package grid

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"gridpolicy/action"
)

// ErrUnknownAsset is returned when an action names an asset id that does not exist.
var ErrUnknownAsset = errors.New("unknown asset")

const (
	firstYear = 2025
	lastYear  = 2050
	numYears  = lastYear - firstYear + 1
)

type asset struct {
	id         string
	kind       action.GeneratorType
	built      int
	closed     int // year closed, 0 while open
	efficiency float64
	operation  float64
}

func (a *asset) activeIn(year int) bool {
	return a.built <= year && (a.closed == 0 || a.closed > year)
}

type offset struct {
	kind  action.OffsetType
	added int
	scale float64
}

// Model is a deterministic reference grid: a fleet of assets and offsets,
// demand that grows with population and electrification, and costs kept
// in exact decimal arithmetic.
type Model struct {
	assets   []asset
	offsets  []offset
	capital  [numYears]decimal.Decimal
	closures [numYears]int
	nextID   int
}

// NewModel returns the 2025 starting fleet.
func NewModel() *Model {
	m := &Model{}
	for i := range m.capital {
		m.capital[i] = decimal.Zero
	}
	seed := []struct {
		kind  action.GeneratorType
		count int
	}{
		{action.CoalPlant, 3},
		{action.GasCombinedCycle, 10},
		{action.Nuclear, 3},
		{action.HydroDam, 2},
		{action.OnshoreWind, 5},
	}
	for _, s := range seed {
		for i := 0; i < s.count; i++ {
			m.addAsset(s.kind, firstYear-1)
		}
	}
	return m
}

func (m *Model) addAsset(kind action.GeneratorType, year int) string {
	m.nextID++
	id := fmt.Sprintf("G-%04d", m.nextID)
	m.assets = append(m.assets, asset{id: id, kind: kind, built: year, efficiency: 1, operation: 1})
	return id
}

func yearSlot(year int) (int, error) {
	if year < firstYear || year > lastYear {
		return 0, fmt.Errorf("year %d outside %d..%d", year, firstYear, lastYear)
	}
	return year - firstYear, nil
}

func (m *Model) Clone() State {
	c := &Model{
		assets:   append([]asset(nil), m.assets...),
		offsets:  append([]offset(nil), m.offsets...),
		capital:  m.capital,
		closures: m.closures,
		nextID:   m.nextID,
	}
	return c
}

// find resolves id to an open asset. An empty id picks the oldest open
// asset accepted by match.
func (m *Model) find(id string, year int, match func(*asset) bool) (*asset, error) {
	if id != "" {
		for i := range m.assets {
			if m.assets[i].id == id {
				if !m.assets[i].activeIn(year) {
					return nil, nil
				}
				return &m.assets[i], nil
			}
		}
		return nil, fmt.Errorf("%w: %s", ErrUnknownAsset, id)
	}
	for i := range m.assets {
		a := &m.assets[i]
		if a.activeIn(year) && (match == nil || match(a)) {
			return a, nil
		}
	}
	return nil, nil
}

func (m *Model) ApplyAction(a action.Action, year int) error {
	slot, err := yearSlot(year)
	if err != nil {
		return err
	}
	switch a.Kind {
	case action.KindAddGenerator:
		p, ok := assetTable[a.Generator]
		if !ok {
			return fmt.Errorf("%w: generator %s", action.ErrUnknownAction, a.Generator)
		}
		m.addAsset(a.Generator, year)
		m.capital[slot] = m.capital[slot].Add(p.capital.Mul(d(a.CostMultiplier)))

	case action.KindUpgradeEfficiency:
		target, err := m.find(a.AssetID, year, func(x *asset) bool { return x.efficiency < upgradeMax })
		if err != nil || target == nil {
			return err
		}
		target.efficiency = math.Min(upgradeMax, target.efficiency+upgradeStep)
		m.capital[slot] = m.capital[slot].Add(assetTable[target.kind].capital.Mul(d(upgradeCostShare)))

	case action.KindAdjustOperation:
		target, err := m.find(a.AssetID, year, func(x *asset) bool { return x.kind.IsFossil() })
		if err != nil || target == nil {
			return err
		}
		target.operation = float64(a.Percent) / 100

	case action.KindAddCarbonOffset:
		p, ok := offsetTable[a.Offset]
		if !ok {
			return fmt.Errorf("%w: offset %s", action.ErrUnknownAction, a.Offset)
		}
		m.offsets = append(m.offsets, offset{kind: a.Offset, added: year, scale: 1})
		m.capital[slot] = m.capital[slot].Add(p.capital.Mul(d(a.CostMultiplier)))

	case action.KindCloseGenerator:
		target, err := m.find(a.AssetID, year, func(x *asset) bool { return x.kind.IsFossil() })
		if err != nil || target == nil {
			return err
		}
		target.closed = year
		m.closures[slot]++

	case action.KindDoNothing:
	default:
		return fmt.Errorf("%w: kind %s", action.ErrUnknownAction, a.Kind)
	}
	return nil
}

// ReadMetrics evaluates the grid as it stands for year.
func (m *Model) ReadMetrics(year int) YearlyAggregates {
	slot, err := yearSlot(year)
	if err != nil {
		return YearlyAggregates{Year: year}
	}
	t := float64(year - firstYear)
	pop := basePopulation * math.Pow(1+populationGrowth, t)
	usage := pop * usagePerCapitaGWh * math.Pow(1+electrificationPct, t)

	var gen, emissions, opinionWeighted float64
	opex := decimal.Zero
	for i := range m.assets {
		a := &m.assets[i]
		if !a.activeIn(year) {
			continue
		}
		p := assetTable[a.kind]
		out := p.output * a.efficiency * a.operation
		gen += out
		emissions += out * p.co2 / a.efficiency
		opinionWeighted += out * p.opinion
		opex = opex.Add(p.opex.Mul(d(out)))
	}

	var offsetTonnes, offsetOpinion float64
	for _, o := range m.offsets {
		if o.added <= year {
			p := offsetTable[o.kind]
			offsetTonnes += p.tonnes * o.scale
			offsetOpinion += p.opinion
		}
	}

	opinion := 0.5
	if gen > 0 {
		opinion = opinionWeighted / gen
	}
	if n := len(m.offsets); n > 0 {
		opinion = 0.85*opinion + 0.15*offsetOpinion/float64(n)
	}
	closures := 0
	for i := 0; i <= slot; i++ {
		closures += m.closures[i]
	}
	opinion = clamp01(opinion - closureOpinionHit*float64(closures))

	capital := decimal.Zero
	for i := 0; i <= slot; i++ {
		capital = capital.Add(m.capital[i])
	}
	// operating spend is charged for every year elapsed at today's run rate
	cumulativeOpex := opex.Mul(decimal.NewFromInt(int64(slot + 1)))

	reliability := 1.0
	if usage > 0 {
		reliability = clamp01(gen / usage)
	}

	return YearlyAggregates{
		Year:            year,
		Population:      pop,
		PowerUsage:      usage,
		PowerGeneration: gen,
		Emissions:       emissions,
		CarbonOffset:    offsetTonnes,
		CapitalCost:     capital.InexactFloat64(),
		OperatingCost:   opex.InexactFloat64(),
		TotalCost:       capital.Add(cumulativeOpex).InexactFloat64(),
		PublicOpinion:   opinion,
		Reliability:     reliability,
	}
}

// AssetCount returns the number of assets open in year.
func (m *Model) AssetCount(year int) int {
	n := 0
	for i := range m.assets {
		if m.assets[i].activeIn(year) {
			n++
		}
	}
	return n
}

func clamp01(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}
