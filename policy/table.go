package policy

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"gridpolicy/action"
)

// YearWeights maps actions to bounded weights for one year. Iteration order
// is insertion order so seeded runs are reproducible.
type YearWeights struct {
	actions []action.Action
	weights []float64
	index   map[action.Action]int
}

func newYearWeights() *YearWeights {
	return &YearWeights{index: make(map[action.Action]int)}
}

func (y *YearWeights) Len() int { return len(y.actions) }

func (y *YearWeights) Get(a action.Action) (float64, bool) {
	i, ok := y.index[a]
	if !ok {
		return 0, false
	}
	return y.weights[i], true
}

// GetOrInsert returns the weight of a, registering it at DefaultWeight first if needed.
func (y *YearWeights) GetOrInsert(a action.Action) float64 {
	if i, ok := y.index[a]; ok {
		return y.weights[i]
	}
	y.insert(a, DefaultWeight)
	return DefaultWeight
}

func (y *YearWeights) insert(a action.Action, w float64) {
	y.index[a] = len(y.actions)
	y.actions = append(y.actions, a)
	y.weights = append(y.weights, w)
}

// Set stores w clamped to [MinWeight, MaxWeight].
func (y *YearWeights) Set(a action.Action, w float64) {
	w = clampWeight(w)
	if i, ok := y.index[a]; ok {
		y.weights[i] = w
		return
	}
	y.insert(a, w)
}

// Scale multiplies the weight of a by factor and clamps the result.
func (y *YearWeights) Scale(a action.Action, factor float64) float64 {
	w := clampWeight(y.GetOrInsert(a) * factor)
	y.weights[y.index[a]] = w
	return w
}

func (y *YearWeights) Contains(a action.Action) bool {
	_, ok := y.index[a]
	return ok
}

// Each visits entries in insertion order until fn returns false.
func (y *YearWeights) Each(fn func(a action.Action, w float64) bool) {
	for i, a := range y.actions {
		if !fn(a, y.weights[i]) {
			return
		}
	}
}

func (y *YearWeights) Actions() []action.Action {
	out := make([]action.Action, len(y.actions))
	copy(out, y.actions)
	return out
}

func (y *YearWeights) Total() float64 {
	return floats.Sum(y.weights)
}

func (y *YearWeights) Clone() *YearWeights {
	c := &YearWeights{
		actions: make([]action.Action, len(y.actions)),
		weights: make([]float64, len(y.weights)),
		index:   make(map[action.Action]int, len(y.index)),
	}
	copy(c.actions, y.actions)
	copy(c.weights, y.weights)
	for k, v := range y.index {
		c.index[k] = v
	}
	return c
}

// Equal compares entries and order within tol.
func (y *YearWeights) Equal(o *YearWeights, tol float64) bool {
	if y.Len() != o.Len() {
		return false
	}
	for i, a := range y.actions {
		if o.actions[i] != a || math.Abs(o.weights[i]-y.weights[i]) > tol {
			return false
		}
	}
	return true
}

// WeightTable holds one YearWeights per year 2025..2050.
type WeightTable struct {
	years [NumYears]*YearWeights
}

func newEmptyTable() *WeightTable {
	t := &WeightTable{}
	for i := range t.years {
		t.years[i] = newYearWeights()
	}
	return t
}

// Year returns the weights for year; it panics outside 2025..2050.
func (t *WeightTable) Year(year int) *YearWeights {
	return t.years[YearIndex(year)]
}

func (t *WeightTable) Clone() *WeightTable {
	c := &WeightTable{}
	for i, y := range t.years {
		c.years[i] = y.Clone()
	}
	return c
}

func (t *WeightTable) Equal(o *WeightTable, tol float64) bool {
	for i := range t.years {
		if !t.years[i].Equal(o.years[i], tol) {
			return false
		}
	}
	return true
}

// Each visits every (year, action, weight) triple.
func (t *WeightTable) Each(fn func(year int, a action.Action, w float64)) {
	for i, y := range t.years {
		y.Each(func(a action.Action, w float64) bool {
			fn(StartYear+i, a, w)
			return true
		})
	}
}

// NormalActions is the action set every year is seeded with.
func NormalActions() []action.Action {
	var out []action.Action
	for _, g := range action.GeneratorTypes() {
		out = append(out, action.AddGenerator(g, 1))
	}
	out = append(out, action.UpgradeEfficiency(""), action.AdjustOperation("", 0))
	for _, o := range action.OffsetTypes() {
		out = append(out, action.AddCarbonOffset(o, 1))
	}
	return append(out, action.CloseGenerator(""), action.DoNothing())
}

func seedWeight(a action.Action) float64 {
	switch a.Kind {
	case action.KindAddGenerator:
		return generatorSeed[a.Generator]
	case action.KindUpgradeEfficiency:
		return upgradeSeed
	case action.KindAdjustOperation:
		return adjustSeed
	case action.KindAddCarbonOffset:
		return offsetBase * offsetSeed[a.Offset]
	case action.KindCloseGenerator:
		return closeSeed
	}
	return doNothingSeed
}

// NewNormalTable seeds every year with the same starting weights.
func NewNormalTable() *WeightTable {
	t := newEmptyTable()
	for _, y := range t.years {
		for _, a := range NormalActions() {
			y.Set(a, seedWeight(a))
		}
	}
	return t
}

// NewDeficitTable seeds AddGenerator actions only, favoring fast dispatchable supply.
func NewDeficitTable() *WeightTable {
	t := newEmptyTable()
	for _, y := range t.years {
		for _, g := range action.GeneratorTypes() {
			w, ok := deficitSeed[g]
			if !ok {
				w = deficitSeedDefault
			}
			y.Set(action.AddGenerator(g, 1), w)
		}
	}
	return t
}

// CountRow is the probability of taking 0..MaxActionCount additional actions.
type CountRow [MaxActionCount + 1]float64

// CountTable holds one normalized CountRow per year.
type CountTable [NumYears]CountRow

func (r *CountRow) normalize() {
	total := floats.Sum(r[:])
	if total <= 0 || math.IsNaN(total) {
		*r = seedCountRow()
		return
	}
	floats.Scale(1/total, r[:])
}

func countMultiplier(c int) float64 {
	switch c {
	case 0:
		return 4
	case 1:
		return 3.5
	case 2:
		return 3
	case 3:
		return 2.5
	case 4:
		return 2
	case 5:
		return 1.5
	}
	return 1
}

func seedCountRow() CountRow {
	var r CountRow
	for c := range r {
		r[c] = math.Exp(-0.8*float64(c)) * countMultiplier(c)
	}
	floats.Scale(1/floats.Sum(r[:]), r[:])
	return r
}

func NewCountTable() CountTable {
	var t CountTable
	row := seedCountRow()
	for i := range t {
		t[i] = row
	}
	return t
}

// Row returns the count row for year; it panics outside 2025..2050.
func (t *CountTable) Row(year int) *CountRow {
	return &t[YearIndex(year)]
}
