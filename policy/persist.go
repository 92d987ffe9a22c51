package policy

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"

	"gridpolicy/action"
	"gridpolicy/score"
)

// weightEntry is persisted as an [action, weight] pair.
type weightEntry struct {
	Action action.Action
	Weight float64
}

func (e weightEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{e.Action, e.Weight})
}

func (e *weightEntry) UnmarshalJSON(b []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if len(raw) != 2 {
		return fmt.Errorf("weight entry: want [action, weight], got %d elements", len(raw))
	}
	if err := json.Unmarshal(raw[0], &e.Action); err != nil {
		return err
	}
	return json.Unmarshal(raw[1], &e.Weight)
}

type snapshot struct {
	Weights            map[int][]weightEntry   `json:"weights"`
	DeficitWeights     map[int][]weightEntry   `json:"deficit_weights"`
	ActionCountWeights map[int][]float64       `json:"action_count_weights"`
	BestWeights        map[int][]weightEntry   `json:"best_weights,omitempty"`
	PrimeWeights       map[int][]weightEntry   `json:"prime_weights,omitempty"`
	BestActions        map[int][]action.Action `json:"best_actions,omitempty"`
	BestDeficitActions map[int][]action.Action `json:"best_deficit_actions,omitempty"`
	BestMetrics        *score.Metrics          `json:"best_metrics,omitempty"`
	BestScore          float64                 `json:"best_score"`
	LastRunScore       *float64                `json:"last_run_score,omitempty"`
	LearningRate       float64                 `json:"learning_rate"`
	ExplorationRate    float64                 `json:"exploration_rate"`
	BaseExploration    float64                 `json:"base_exploration_rate"`
	IterationCount     int                     `json:"iteration_count"`
	Stagnation         int                     `json:"iterations_without_improvement"`
	OptimizationMode   score.Mode              `json:"optimization_mode"`
	ImprovementHistory []ImprovementRecord     `json:"improvement_history"`
}

func encodeTable(t *WeightTable) map[int][]weightEntry {
	if t == nil {
		return nil
	}
	out := make(map[int][]weightEntry, NumYears)
	for i, yw := range t.years {
		entries := make([]weightEntry, 0, yw.Len())
		yw.Each(func(a action.Action, w float64) bool {
			entries = append(entries, weightEntry{a, w})
			return true
		})
		out[StartYear+i] = entries
	}
	return out
}

func decodeTable(m map[int][]weightEntry) (*WeightTable, error) {
	if m == nil {
		return nil, nil
	}
	t := newEmptyTable()
	for year, entries := range m {
		if year < StartYear || year > EndYear {
			return nil, fmt.Errorf("year %d outside %d..%d", year, StartYear, EndYear)
		}
		yw := t.years[year-StartYear]
		for _, e := range entries {
			if math.IsNaN(e.Weight) {
				return nil, fmt.Errorf("year %d: NaN weight for %s", year, e.Action)
			}
			yw.Set(e.Action, e.Weight)
		}
	}
	return t, nil
}

func encodeActions(y *yearActions) map[int][]action.Action {
	if y == nil {
		return nil
	}
	out := make(map[int][]action.Action, NumYears)
	for i, list := range y {
		if list == nil {
			list = []action.Action{}
		}
		out[StartYear+i] = list
	}
	return out
}

func decodeActions(m map[int][]action.Action) (*yearActions, error) {
	if m == nil {
		return nil, nil
	}
	var y yearActions
	for i := range y {
		y[i] = []action.Action{}
	}
	for year, list := range m {
		if year < StartYear || year > EndYear {
			return nil, fmt.Errorf("year %d outside %d..%d", year, StartYear, EndYear)
		}
		y[year-StartYear] = append([]action.Action{}, list...)
	}
	return &y, nil
}

func (s *State) snapshot() snapshot {
	snap := snapshot{
		Weights:            encodeTable(s.weights),
		DeficitWeights:     encodeTable(s.deficit),
		ActionCountWeights: make(map[int][]float64, NumYears),
		BestWeights:        encodeTable(s.bestWeights),
		PrimeWeights:       encodeTable(s.primeWeights),
		BestActions:        encodeActions(s.bestActions),
		BestDeficitActions: encodeActions(s.bestDeficitActions),
		BestMetrics:        s.bestMetrics,
		BestScore:          s.bestScore,
		LearningRate:       s.learningRate,
		ExplorationRate:    s.explorationRate,
		BaseExploration:    s.baseExploration,
		IterationCount:     s.iterationCount,
		Stagnation:         s.stagnation,
		OptimizationMode:   s.mode,
		ImprovementHistory: s.history,
	}
	if snap.ImprovementHistory == nil {
		snap.ImprovementHistory = []ImprovementRecord{}
	}
	if s.hasLastRun {
		v := s.lastRunScore
		snap.LastRunScore = &v
	}
	for i := range s.counts {
		row := s.counts[i]
		snap.ActionCountWeights[StartYear+i] = row[:]
	}
	return snap
}

// SaveToFile writes the full state as one indented JSON document. Parent
// directories are created and the file is replaced atomically.
func (s *State) SaveToFile(path string) error {
	data, err := json.MarshalIndent(s.snapshot(), "", "  ")
	if err != nil {
		return fmt.Errorf("encode weights: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create weights dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write weights: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename weights: %w", err)
	}
	return nil
}

// LoadFromFile builds a new State from a document written by SaveToFile.
// Rates and counters come from the file. Seed, debug and the
// replay cap come from opts, and so does the scoring mode, with the best
// score recomputed under it.
func LoadFromFile(path string, opts Options) (*State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read weights %s: %w", path, err)
	}
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode weights %s: %w", path, err)
	}
	st, err := fromSnapshot(snap, opts)
	if err != nil {
		return nil, fmt.Errorf("load weights %s: %w", path, err)
	}
	return st, nil
}

func fromSnapshot(snap snapshot, opts Options) (*State, error) {
	opts = opts.withDefaults()
	s := New(opts)

	if snap.Weights == nil {
		return nil, fmt.Errorf("missing weights")
	}
	var err error
	if s.weights, err = decodeTable(snap.Weights); err != nil {
		return nil, fmt.Errorf("weights: %w", err)
	}
	if snap.DeficitWeights != nil {
		if s.deficit, err = decodeTable(snap.DeficitWeights); err != nil {
			return nil, fmt.Errorf("deficit_weights: %w", err)
		}
	}
	if s.bestWeights, err = decodeTable(snap.BestWeights); err != nil {
		return nil, fmt.Errorf("best_weights: %w", err)
	}
	if s.primeWeights, err = decodeTable(snap.PrimeWeights); err != nil {
		return nil, fmt.Errorf("prime_weights: %w", err)
	}
	if s.bestActions, err = decodeActions(snap.BestActions); err != nil {
		return nil, fmt.Errorf("best_actions: %w", err)
	}
	if s.bestDeficitActions, err = decodeActions(snap.BestDeficitActions); err != nil {
		return nil, fmt.Errorf("best_deficit_actions: %w", err)
	}

	for year, row := range snap.ActionCountWeights {
		if year < StartYear || year > EndYear {
			return nil, fmt.Errorf("action_count_weights: year %d outside %d..%d", year, StartYear, EndYear)
		}
		if len(row) != MaxActionCount+1 {
			return nil, fmt.Errorf("action_count_weights: year %d has %d entries, want %d", year, len(row), MaxActionCount+1)
		}
		r := &s.counts[year-StartYear]
		for c, w := range row {
			r[c] = clampf(w, 0, maxCountWeight)
		}
		r.normalize()
	}

	if snap.LearningRate > 0 {
		s.learningRate = snap.LearningRate
	}
	if snap.BaseExploration > 0 {
		s.baseExploration = snap.BaseExploration
	}
	if snap.ExplorationRate > 0 {
		s.explorationRate = snap.ExplorationRate
	}
	s.iterationCount = max(snap.IterationCount, 0)
	s.stagnation = max(snap.Stagnation, 0)
	s.history = append([]ImprovementRecord(nil), snap.ImprovementHistory...)
	if snap.LastRunScore != nil {
		s.lastRunScore, s.hasLastRun = *snap.LastRunScore, true
	}
	if snap.BestMetrics != nil {
		m := *snap.BestMetrics
		s.bestMetrics = &m
		s.bestScore = score.Score(m, s.mode)
	}
	s.rng = rand.New(rand.NewSource(opts.Seed))
	return s, nil
}
