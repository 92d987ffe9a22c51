package checkpoint

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/tidwall/gjson"

	"gridpolicy/score"
)

// Summary is a cheap view of a weights file.
type Summary struct {
	Path           string
	IterationCount int
	Stagnation     int
	Mode           string
	HasBest        bool
	BestScore      float64
	BestMetrics    score.Metrics
	Improvements   int
	Years          int
}

// Inspect summarizes a weights file, or the weights file inside a run
// directory, without decoding the weight tables.
func Inspect(path string) (Summary, error) {
	if fi, err := os.Stat(path); err == nil && fi.IsDir() {
		path = filepath.Join(path, WeightsFile)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Summary{}, err
	}
	if !gjson.ValidBytes(b) {
		return Summary{}, fmt.Errorf("%s: invalid JSON", path)
	}
	doc := gjson.ParseBytes(b)
	if !doc.Get("weights").Exists() {
		return Summary{}, fmt.Errorf("%s: not a weights file", path)
	}

	s := Summary{
		Path:           path,
		IterationCount: int(doc.Get("iteration_count").Int()),
		Stagnation:     int(doc.Get("iterations_without_improvement").Int()),
		Mode:           score.Balanced.String(),
		BestScore:      doc.Get("best_score").Float(),
		Improvements:   int(doc.Get("improvement_history.#").Int()),
	}
	if m := doc.Get("optimization_mode"); m.Type == gjson.String {
		s.Mode = m.String()
	}
	doc.Get("weights").ForEach(func(_, _ gjson.Result) bool {
		s.Years++
		return true
	})
	if bm := doc.Get("best_metrics"); bm.IsObject() {
		s.HasBest = true
		s.BestMetrics = score.Metrics{
			FinalNetEmissions:     bm.Get("final_net_emissions").Float(),
			AveragePublicOpinion:  bm.Get("average_public_opinion").Float(),
			TotalCost:             bm.Get("total_cost").Float(),
			PowerReliability:      bm.Get("power_reliability").Float(),
			WorstPowerReliability: bm.Get("worst_power_reliability").Float(),
		}
	}
	return s, nil
}
