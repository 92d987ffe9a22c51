package logx

import (
	"fmt"
	"sync/atomic"
	"time"

	"gridpolicy/tui"
)

// Convenience functions that print a line and forward to TUI

var learningVerbose atomic.Bool

// SetLearningVerbose controls whether LogLearning also prints to stdout.
// The TUI always receives the event.
func SetLearningVerbose(v bool) { learningVerbose.Store(v) }

func LogNewBest(iteration int, oldScore, newScore float64, tier int) {
	fmt.Printf("%s  %s  iteration %d: %.4f → %s (tier %d)\n",
		C(gray, time.Now().UTC().Format("15:04:05Z")),
		Channel("BEST"),
		iteration, oldScore, ScoreColor(newScore, tier), tier,
	)
	tui.PushEvent(tui.Event{
		Timestamp: time.Now(),
		Type:      "BEST",
		Severity:  "info",
		Message:   fmt.Sprintf("Best score improved at iteration %d: %.4f → %.4f", iteration, oldScore, newScore),
	})
}

func LogStagnation(iterationsNoImprove int) {
	fmt.Printf("%s  %s  %s\n",
		C(gray, time.Now().UTC().Format("15:04:05Z")),
		Channel("LRN "),
		Warnf("no improvement for %d iterations", iterationsNoImprove),
	)
	tui.PushEvent(tui.Event{
		Timestamp: time.Now(),
		Type:      "STAGNATION",
		Severity:  "warning",
		Message:   fmt.Sprintf("No improvement for %d iterations", iterationsNoImprove),
	})
}

// LogLearning reports weight-table adjustments made by the policy.
func LogLearning(message string) {
	if learningVerbose.Load() {
		fmt.Printf("%s  %s  %s\n",
			C(gray, time.Now().UTC().Format("15:04:05Z")),
			Channel("LRN "),
			Dim(message),
		)
	}
	tui.PushEvent(tui.Event{
		Timestamp: time.Now(),
		Type:      "LEARN",
		Severity:  "info",
		Message:   message,
	})
}

func LogFailure(message string) {
	fmt.Printf("%s  %s  %s\n",
		C(gray, time.Now().UTC().Format("15:04:05Z")),
		Channel("ERR "),
		Error(message),
	)
	tui.PushEvent(tui.Event{
		Timestamp: time.Now(),
		Type:      "ERROR",
		Severity:  "error",
		Message:   message,
	})
}
