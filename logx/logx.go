package logx

import (
	"fmt"
	"os"
	"time"

	"golang.org/x/term"
)

const (
	reset   = "\x1b[0m"
	bold    = "\x1b[1m"
	gray    = "\x1b[90m"
	cyan    = "\x1b[36m"
	blue    = "\x1b[34m"
	yellow  = "\x1b[33m"
	green   = "\x1b[32m"
	magenta = "\x1b[35m"
	red     = "\x1b[31m"
	white   = "\x1b[37m"
)

var enableColor = true

func init() {
	// Disable color if NO_COLOR is set or stdout is not a terminal
	if os.Getenv("NO_COLOR") != "" {
		enableColor = false
	}
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		enableColor = false
	}
}

// C returns a color-coded string (or plain string if color disabled)
func C(color, s string) string {
	if !enableColor {
		return s
	}
	return color + s + reset
}

// Cf returns a color-coded formatted string
func Cf(color, format string, args ...any) string {
	return C(color, fmt.Sprintf(format, args...))
}

// Channel returns a consistently-padded colored channel tag
// All channels are 6 chars: [PROG] [BEST] [CKPT] [LRN ] [GRID] [RUN ]
// IMPORTANT: Pass 4-char channel names: "PROG", "BEST", "CKPT", "LRN ", "GRID", "RUN "
func Channel(ch string) string {
	// Map by channel name (ch), then build padded label
	color := map[string]string{
		"PROG": cyan,
		"BEST": green,
		"CKPT": blue,
		"LRN ": magenta,
		"GRID": yellow,
		"RUN ": white,
		"ERR ": red,
	}[ch]

	// Create padded label [XXXX] - left-justify in 4-char width
	label := fmt.Sprintf("[%-4s]", ch)
	return C(color, label)
}

// TS returns a gray UTC timestamp (caller controls time value)
func TS(ts string) string {
	return C(gray, ts)
}

// Colored output helpers for common use cases

// Success returns a green success message (for ✓, PASS, etc.)
func Success(s string) string {
	return C(green, s)
}

// Successf returns a formatted green success message
func Successf(format string, args ...any) string {
	return C(green, fmt.Sprintf(format, args...))
}

// Error returns a red error message (for ✗, FAIL, etc.)
func Error(s string) string {
	return C(red, s)
}

// Errorf returns a formatted red error message
func Errorf(format string, args ...any) string {
	return C(red, fmt.Sprintf(format, args...))
}

// Warn returns a yellow warning message (for ⚠, WARN, etc.)
func Warn(s string) string {
	return C(yellow, s)
}

// Warnf returns a formatted yellow warning message
func Warnf(format string, args ...any) string {
	return C(yellow, fmt.Sprintf(format, args...))
}

// Info returns a cyan info message
func Info(s string) string {
	return C(cyan, s)
}

// Infof returns a formatted cyan info message
func Infof(format string, args ...any) string {
	return C(cyan, fmt.Sprintf(format, args...))
}

// Highlight returns a bold highlighted message
func Highlight(s string) string {
	return C(bold, s)
}

// Highlightf returns a formatted bold highlighted message
func Highlightf(format string, args ...any) string {
	return C(bold, fmt.Sprintf(format, args...))
}

// Dim returns a gray dimmed message (for less important info)
func Dim(s string) string {
	return C(gray, s)
}

// Dimf returns a formatted gray dimmed message
func Dimf(format string, args ...any) string {
	return C(gray, fmt.Sprintf(format, args...))
}

// Checkmark returns a colored checkmark (green) or X (red)
func Checkmark(passed bool) string {
	if passed {
		return Success("✓")
	}
	return Error("✗")
}

// ScoreColor colors a score by tier: green once net zero is reached,
// yellow while emissions remain, red while reliability is below the floor.
func ScoreColor(score float64, tier int) string {
	text := fmt.Sprintf("%.4f", score)
	switch tier {
	case 3:
		return Success(text)
	case 2:
		return Warn(text)
	case 1:
		return Error(text)
	}
	return Info(text)
}

// ReliabilityColor returns color-coded reliability
// At or above 0.95 is green, above 0.80 is yellow, otherwise red
func ReliabilityColor(r float64) string {
	if r >= 0.95 {
		return Success(fmt.Sprintf("%.1f%%", r*100))
	}
	if r > 0.80 {
		return Warn(fmt.Sprintf("%.1f%%", r*100))
	}
	return Error(fmt.Sprintf("%.1f%%", r*100))
}

// EmissionsColor formats tonnes CO2, green at or below zero
func EmissionsColor(t float64) string {
	if t <= 0 {
		return Success(fmt.Sprintf("%.0ft", t))
	}
	return Warn(formatTonnes(t))
}

// OpinionColor returns color-coded public opinion
func OpinionColor(o float64) string {
	if o >= 0.6 {
		return Success(fmt.Sprintf("%.2f", o))
	}
	if o >= 0.4 {
		return Warn(fmt.Sprintf("%.2f", o))
	}
	return Error(fmt.Sprintf("%.2f", o))
}

// FormatCost formats currency units as e.g. 12.3B
func FormatCost(c float64) string {
	switch {
	case c >= 1e9 || c <= -1e9:
		return fmt.Sprintf("%.2fB", c/1e9)
	case c >= 1e6 || c <= -1e6:
		return fmt.Sprintf("%.1fM", c/1e6)
	}
	return fmt.Sprintf("%.0f", c)
}

func formatTonnes(t float64) string {
	if t >= 1e6 || t <= -1e6 {
		return fmt.Sprintf("%.2fMt", t/1e6)
	}
	return fmt.Sprintf("%.0ft", t)
}

// FormatDuration formats a duration in a human-readable way
// Shows hours, minutes, and seconds (e.g., "1h23m" or "45m" or "23s")
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
