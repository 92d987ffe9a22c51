package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Styles (defined at package init for reuse)
var (
	// Color styles
	styleGreen  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	styleYellow = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	styleRed    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	styleCyan   = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	styleGray   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	styleDim    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	// Panel styles
	stylePanel = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("238")).
		Padding(0, 1)

	styleHeader = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("212")).
		Padding(0, 1)

	styleEventInfo  = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	styleEventWarn  = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	styleEventError = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// View renders the UI
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	body := lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		m.renderProgress(),
		lipgloss.JoinHorizontal(lipgloss.Top, m.renderStats(), m.renderSearch()),
		m.renderTrajectory(),
		m.renderEvents(),
		m.renderFooter(),
	)

	return body
}

func (m Model) renderHeader() string {
	runtime := time.Since(m.snapshot.StartTime)
	return styleHeader.Render(fmt.Sprintf(
		"%s │ mode=%s │ run=%s │ runtime=%s",
		m.snapshot.ProjectName,
		m.snapshot.Mode,
		m.snapshot.RunID,
		FormatDuration(runtime),
	))
}

func (m Model) renderProgress() string {
	pct := 0.0
	if m.snapshot.Total > 0 {
		pct = float64(m.snapshot.Completed) / float64(m.snapshot.Total)
	}
	return stylePanel.Render(fmt.Sprintf(
		"%s %d/%d │ %.1f it/s │ eta %s",
		m.progress.ViewAs(pct),
		m.snapshot.Completed,
		m.snapshot.Total,
		m.snapshot.RatePerSec,
		FormatDuration(m.snapshot.ETA),
	))
}

func (m Model) renderStats() string {
	return stylePanel.Width(50).Render(fmt.Sprintf(
		"Best: score=%s │ tier=%s",
		m.scoreChangeColor(m.snapshot.BestScore),
		m.tierColor(m.snapshot.BestTier),
	))
}

func (m Model) renderSearch() string {
	return stylePanel.Width(50).Render(fmt.Sprintf(
		"Search: distinct=%s │ stagnation=%d │ recent=%.4f±%.4f",
		m.percentColor(100*m.snapshot.DistinctRatio),
		m.snapshot.Stagnation,
		m.snapshot.RecentMean,
		m.snapshot.RecentStdDev,
	))
}

func (m Model) renderTrajectory() string {
	c := m.snapshot.LastTrajectory

	// snapshots arrive on progress ticks, so allow a few ticks before going idle
	if c.Timestamp.IsZero() || time.Since(c.Timestamp) > 30*time.Second {
		return stylePanel.Render(fmt.Sprintf(
			"Trajectory: %s", styleDim.Render("(idle)"),
		))
	}

	tag := ""
	if c.Replayed {
		tag = styleCyan.Render(" replay")
	}
	return stylePanel.Render(fmt.Sprintf(
		"Trajectory #%d: score=%.4f │ reliability=%s │ netCO2=%.0ft │ actions=%d%s",
		c.Index,
		c.Score,
		m.reliabilityColor(c.Reliability),
		c.NetEmissions,
		c.Actions,
		tag,
	))
}

func (m Model) renderEvents() string {
	// viewport.Model is a struct, not a pointer - never nil
	// Content is updated in Update() on MsgEvent, not here
	if !m.ready || m.width == 0 {
		return stylePanel.Render("Events: initializing...")
	}
	return stylePanel.Render("Events (scroll):") + "\n" + m.viewport.View()
}

func (m Model) renderFooter() string {
	hints := []string{"q: stop", "p: pause", "d: learning events"}
	if m.paused {
		hints = append(hints, "(PAUSED)")
	}
	if m.learning {
		hints = append(hints, "(LEARN)")
	}
	if m.stopping {
		hints = append(hints, "(STOPPING)")
	}

	hintStrings := make([]string, len(hints))
	for i, h := range hints {
		hintStrings[i] = styleDim.Render(h)
	}

	return styleGray.Render("│ " + strings.Join(hintStrings, " │ ") + " │")
}

// Color helper functions
func (m Model) tierColor(tier int) string {
	switch tier {
	case 3:
		return styleGreen.Render("3")
	case 2:
		return styleYellow.Render("2")
	case 1:
		return styleRed.Render("1")
	}
	return styleDim.Render("-")
}

func (m Model) scoreChangeColor(score float64) string {
	// Compare with previous best score
	if score > m.prevBest {
		return styleGreen.Render(fmt.Sprintf("%.4f ↑", score))
	}
	if score < m.prevBest {
		return styleRed.Render(fmt.Sprintf("%.4f ↓", score))
	}
	return styleDim.Render(fmt.Sprintf("%.4f =", score))
}

func (m Model) percentColor(pct float64) string {
	if pct > 50 {
		return styleGreen.Render(fmt.Sprintf("%.1f%%", pct))
	}
	if pct >= 20 {
		return styleYellow.Render(fmt.Sprintf("%.1f%%", pct))
	}
	return styleRed.Render(fmt.Sprintf("%.1f%%", pct))
}

func (m Model) reliabilityColor(r float64) string {
	if r >= 0.95 {
		return styleGreen.Render(fmt.Sprintf("%.1f%%", r*100))
	}
	if r > 0.80 {
		return styleYellow.Render(fmt.Sprintf("%.1f%%", r*100))
	}
	return styleRed.Render(fmt.Sprintf("%.1f%%", r*100))
}

func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	if minutes > 0 {
		return fmt.Sprintf("%dh%dm", hours, minutes)
	}
	return fmt.Sprintf("%dh", hours)
}
