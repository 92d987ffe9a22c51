package policy

import (
	"math"
	"math/rand"
	"time"

	"gridpolicy/action"
	"gridpolicy/score"
)

// ImprovementRecord is appended each time a new best trajectory is found.
type ImprovementRecord struct {
	Iteration        int       `json:"iteration"`
	Score            float64   `json:"score"`
	NetEmissions     float64   `json:"net_emissions"`
	TotalCost        float64   `json:"total_cost"`
	PublicOpinion    float64   `json:"public_opinion"`
	PowerReliability float64   `json:"power_reliability"`
	Timestamp        time.Time `json:"timestamp"`
}

// Options configures a new State.
type Options struct {
	Mode            score.Mode
	LearningRate    float64
	ExplorationRate float64
	// ForceReplayProbability caps the stagnation-driven chance of replaying the best trajectory.
	ForceReplayProbability float64
	Seed                   int64
	// Debug enables clamp and fallback diagnostics.
	Debug bool
}

// DefaultOptions returns the rates used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		LearningRate:           DefaultLearningRate,
		ExplorationRate:        DefaultExplorationRate,
		ForceReplayProbability: DefaultForceReplayProbability,
		Seed:                   1,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.LearningRate <= 0 {
		o.LearningRate = d.LearningRate
	}
	if o.ExplorationRate <= 0 {
		o.ExplorationRate = d.ExplorationRate
	}
	if o.ForceReplayProbability <= 0 || o.ForceReplayProbability > 1 {
		o.ForceReplayProbability = d.ForceReplayProbability
	}
	return o
}

// yearActions holds one ordered action list per year.
type yearActions [NumYears][]action.Action

func (y *yearActions) clone() yearActions {
	var c yearActions
	for i, list := range y {
		if list != nil {
			c[i] = append([]action.Action(nil), list...)
		}
	}
	return c
}

func (y *yearActions) reset() {
	for i := range y {
		y[i] = y[i][:0]
	}
}

// State is the learning engine: weight tables, rates, stagnation counters,
// the best known trajectory and the improvement log. A State is not safe
// for concurrent use; the optimizer gives every worker its own fork.
type State struct {
	weights *WeightTable
	deficit *WeightTable
	counts  CountTable

	learningRate           float64
	baseExploration        float64
	explorationRate        float64
	forceReplayProbability float64
	mode                   score.Mode
	debug                  bool

	iterationCount int
	stagnation     int
	lastRunScore   float64
	hasLastRun     bool

	bestMetrics        *score.Metrics
	bestScore          float64
	bestWeights        *WeightTable
	primeWeights       *WeightTable
	bestActions        *yearActions
	bestDeficitActions *yearActions

	currentActions     yearActions
	currentDeficit     yearActions
	replayIndex        [NumYears]int
	deficitReplayIndex [NumYears]int

	forceBest      bool
	guaranteedBest bool

	history []ImprovementRecord

	seed int64
	rng  *rand.Rand

	// merge base, set by Fork
	forkIteration int
	forkHistory   int
}

// New builds a fresh State seeded with the default weight tables.
func New(opts Options) *State {
	opts = opts.withDefaults()
	return &State{
		weights:                NewNormalTable(),
		deficit:                NewDeficitTable(),
		counts:                 NewCountTable(),
		learningRate:           opts.LearningRate,
		baseExploration:        opts.ExplorationRate,
		explorationRate:        opts.ExplorationRate,
		forceReplayProbability: opts.ForceReplayProbability,
		mode:                   opts.Mode,
		debug:                  opts.Debug,
		seed:                   opts.Seed,
		rng:                    rand.New(rand.NewSource(opts.Seed)),
	}
}

// StartNewIteration clears per-run state and decides whether this run replays the best trajectory.
func (s *State) StartNewIteration() {
	s.currentActions.reset()
	s.currentDeficit.reset()
	s.replayIndex = [NumYears]int{}
	s.deficitReplayIndex = [NumYears]int{}

	s.explorationRate = s.baseExploration / (1 + iterationDecay*float64(s.iterationCount))

	if s.stagnation > restoreStagnation && s.stagnation%restoreEvery == 0 {
		s.RestoreBestWeights(restoreFactor)
	}

	s.forceBest = s.guaranteedBest
	if !s.forceBest && s.stagnation > highStagnation {
		p := math.Min(float64(s.stagnation-highStagnation)/forceReplayRampLen, s.forceReplayProbability)
		s.forceBest = s.rng.Float64() < p
	}
}

// RestoreBestWeights pulls the current tables toward the best snapshot:
// w = factor*best + (1-factor)*current.
func (s *State) RestoreBestWeights(factor float64) {
	if s.bestWeights == nil {
		return
	}
	factor = clampf(factor, 0, 1)
	s.bestWeights.Each(func(year int, a action.Action, best float64) {
		yw := s.weights.Year(year)
		cur := yw.GetOrInsert(a)
		yw.Set(a, factor*best+(1-factor)*cur)
	})
	if s.debug {
		debugf("restored best weights (factor=%.2f, stagnation=%d)", factor, s.stagnation)
	}
}

// SetGuaranteedBestActions forces every following iteration to replay the best trajectory.
func (s *State) SetGuaranteedBestActions(v bool) { s.guaranteedBest = v }

func (s *State) ForceBestActions() bool { return s.forceBest }

// RecordAction appends a to the current run's actions for year.
func (s *State) RecordAction(year int, a action.Action) {
	i := YearIndex(year)
	s.currentActions[i] = append(s.currentActions[i], a)
}

// RecordDeficitAction appends a to the current run's deficit actions for year.
func (s *State) RecordDeficitAction(year int, a action.Action) {
	i := YearIndex(year)
	s.currentDeficit[i] = append(s.currentDeficit[i], a)
}

func (s *State) CurrentActions(year int) []action.Action {
	return append([]action.Action(nil), s.currentActions[YearIndex(year)]...)
}

func (s *State) CurrentDeficitActions(year int) []action.Action {
	return append([]action.Action(nil), s.currentDeficit[YearIndex(year)]...)
}

func (s *State) BestMetrics() (score.Metrics, bool) {
	if s.bestMetrics == nil {
		return score.Metrics{}, false
	}
	return *s.bestMetrics, true
}

// BestScore returns the best score seen, or 0 before the first result.
func (s *State) BestScore() float64 { return s.bestScore }

func (s *State) ImprovementHistory() []ImprovementRecord {
	return append([]ImprovementRecord(nil), s.history...)
}

func (s *State) IterationCount() int               { return s.iterationCount }
func (s *State) IterationsWithoutImprovement() int { return s.stagnation }
func (s *State) ExplorationRate() float64          { return s.explorationRate }
func (s *State) LearningRate() float64             { return s.learningRate }
func (s *State) Mode() score.Mode                  { return s.mode }
func (s *State) HasBestActions() bool              { return s.bestActions != nil }

func (s *State) BestActions(year int) []action.Action {
	if s.bestActions == nil {
		return nil
	}
	return append([]action.Action(nil), s.bestActions[YearIndex(year)]...)
}

func (s *State) BestDeficitActions(year int) []action.Action {
	if s.bestDeficitActions == nil {
		return nil
	}
	return append([]action.Action(nil), s.bestDeficitActions[YearIndex(year)]...)
}

// Weights exposes the normal weight table. Callers must not retain it across iterations.
func (s *State) Weights() *WeightTable        { return s.weights }
func (s *State) DeficitWeights() *WeightTable { return s.deficit }
func (s *State) CountRow(year int) CountRow   { return *s.counts.Row(year) }

// Clone returns a deep copy with an RNG seeded from the parent's seed and iteration count.
// It does not touch the parent, so concurrent readers may clone under a shared lock.
func (s *State) Clone() *State {
	return s.CloneWithSeed(s.seed*6364136223846793005 + int64(s.iterationCount) + 1)
}

// CloneWithSeed returns a deep copy whose RNG starts from seed.
func (s *State) CloneWithSeed(seed int64) *State {
	c := *s
	c.weights = s.weights.Clone()
	c.deficit = s.deficit.Clone()
	if s.bestMetrics != nil {
		m := *s.bestMetrics
		c.bestMetrics = &m
	}
	if s.bestWeights != nil {
		c.bestWeights = s.bestWeights.Clone()
	}
	if s.primeWeights != nil {
		c.primeWeights = s.primeWeights.Clone()
	}
	if s.bestActions != nil {
		b := s.bestActions.clone()
		c.bestActions = &b
	}
	if s.bestDeficitActions != nil {
		b := s.bestDeficitActions.clone()
		c.bestDeficitActions = &b
	}
	c.currentActions = s.currentActions.clone()
	c.currentDeficit = s.currentDeficit.clone()
	c.history = append([]ImprovementRecord(nil), s.history...)
	c.seed = seed
	c.rng = rand.New(rand.NewSource(seed))
	return &c
}
