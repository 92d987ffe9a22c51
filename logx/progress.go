package logx

import (
	"fmt"
	"strings"
	"time"
)

// ProgressLine is what the optimizer reports on each progress tick.
type ProgressLine struct {
	Completed     int
	Total         int
	Rate          float64 // iterations per second
	ETA           time.Duration
	BestScore     float64
	BestTier      int
	Stagnation    int
	DistinctRatio float64 // 0..1
	RecentMean    float64
	RecentStdDev  float64
}

// LogProgress - single line progress log
func LogProgress(p ProgressLine) {
	pct := 0.0
	if p.Total > 0 {
		pct = 100 * float64(p.Completed) / float64(p.Total)
	}
	fmt.Printf("%s  %s  %s/%s (%.1f%%) | Rate: %.1f/s | ETA: %s | Best: %s | Stag: %d | Distinct: %s | Recent: %.4f±%.4f\n",
		C(gray, time.Now().UTC().Format("15:04:05Z")),
		Channel("PROG"),
		formatNumber(p.Completed), formatNumber(p.Total), pct,
		p.Rate, formatDuration(p.ETA),
		ScoreColor(p.BestScore, p.BestTier),
		p.Stagnation,
		ColorPercent(100*p.DistinctRatio),
		p.RecentMean, p.RecentStdDev,
	)
}

// ColorPercent returns a color-coded share of distinct trajectories
// High (>50%) is green, medium (20-50%) is yellow, low is red
func ColorPercent(pct float64) string {
	if pct > 50 {
		return Success(fmt.Sprintf("%.1f%%", pct))
	}
	if pct >= 20 {
		return Warn(fmt.Sprintf("%.1f%%", pct))
	}
	return Error(fmt.Sprintf("%.1f%%", pct))
}

// formatDuration formats a duration in a human-readable way
// Shows hours, minutes, and seconds (e.g., "1h23m" or "45m32s" or "23s")
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh%dm", hours, minutes)
}

// LogCheckpoint - checkpoint saved message
func LogCheckpoint(path string, iteration int, bestScore float64, elapsed time.Duration) {
	fmt.Printf("%s  %s  checkpoint saved: %s (iteration=%d, best=%.4f, runtime=%s)\n",
		C(gray, time.Now().UTC().Format("15:04:05Z")),
		Channel("CKPT"),
		path, iteration, bestScore, formatDuration(elapsed),
	)
}

// LogCheckpointLoad - checkpoint loaded message
func LogCheckpointLoad(path string, iteration int, bestScore float64, improvements int) {
	fmt.Printf("%s  %s  CHECKPOINT loaded: %s (iteration=%d, best=%.4f, improvements=%d)\n",
		C(gray, time.Now().UTC().Format("15:04:05Z")),
		Channel("CKPT"),
		path, iteration, bestScore, improvements,
	)
}

// LogRunStart - one line describing the run about to start
func LogRunStart(runID, mode string, start, total, workers int) {
	fmt.Printf("%s  %s  run %s mode=%s iterations=%d..%d workers=%d\n",
		C(gray, time.Now().UTC().Format("15:04:05Z")),
		Channel("RUN "),
		Highlight(runID), mode, start, total, workers,
	)
}

// Box formatting helpers for compact display

// BoxHeader creates a top border for a boxed section with title
func BoxHeader(title string, width int) string {
	if width < 20 {
		width = 50
	}
	// Create border like: ┌─ TITLE ─────────────────┐
	padding := width - len(title) - 6
	if padding < 2 {
		padding = 2
	}
	return fmt.Sprintf("┌─ %s %s┐\n", C(bold, title), C(gray, strings.Repeat("─", padding)+"─"))
}

// BoxFooter creates a bottom border for a boxed section
func BoxFooter(width int) string {
	if width < 20 {
		width = 50
	}
	return C(gray, "└"+strings.Repeat("─", width-2)+"┘") + "\n"
}

// BoxRow creates a content row for a boxed section (auto-pads to width)
func BoxRow(content string, width int) string {
	if width < 20 {
		width = 50
	}
	padding := width - len(content) - 4 // -4 for "│ " and " │"
	if padding < 0 {
		padding = 0
	}
	return fmt.Sprintf("│ %s%s │\n", content, C(gray, strings.Repeat(" ", padding)))
}

// formatNumber formats a number with thousands separators (e.g., 12,345)
func formatNumber(n int) string {
	s := fmt.Sprintf("%d", n)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	if len(s) <= 3 {
		if neg {
			return "-" + s
		}
		return s
	}
	var result []string
	for i := len(s); i > 0; i -= 3 {
		start := i - 3
		if start < 0 {
			start = 0
		}
		result = append([]string{s[start:i]}, result...)
	}
	out := strings.Join(result, ",")
	if neg {
		out = "-" + out
	}
	return out
}

// FormatNumberSimple formats a number with thousands separators (exported version)
func FormatNumberSimple(n int) string {
	return formatNumber(n)
}

// SummarySnapshot holds the end-of-run numbers
type SummarySnapshot struct {
	RunID       string
	Mode        string
	BestScore   float64
	BestTier    int
	NetEmission float64
	TotalCost   float64
	Opinion     float64
	Reliability float64
	WorstRel    float64

	Completed    int
	Distinct     int
	Improvements int

	Elapsed time.Duration
}

// LogSummary - end-of-run summary box
func LogSummary(m SummarySnapshot) {
	const width = 60
	fmt.Printf("\n%s  %s\n", C(gray, time.Now().UTC().Format("15:04:05Z")), Channel("RUN "))
	fmt.Printf("%s", BoxHeader("SUMMARY "+m.RunID, width))

	fmt.Printf("│ Score: %s │ Tier: %d │ Mode: %s\n",
		ScoreColor(m.BestScore, m.BestTier), m.BestTier, m.Mode)
	fmt.Printf("│ Net CO2: %s │ Cost: %s │ Opinion: %s\n",
		EmissionsColor(m.NetEmission), FormatCost(m.TotalCost), OpinionColor(m.Opinion))
	fmt.Printf("│ Reliability: %s (worst %s)\n",
		ReliabilityColor(m.Reliability), ReliabilityColor(m.WorstRel))
	fmt.Printf("│ Iterations: %s │ Distinct: %s │ Improvements: %d\n",
		formatNumber(m.Completed), formatNumber(m.Distinct), m.Improvements)
	fmt.Printf("│ Runtime: %s\n", C(gray, FormatDuration(m.Elapsed)))

	fmt.Printf("%s\n", BoxFooter(width))
}
