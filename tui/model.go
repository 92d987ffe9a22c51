package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

const (
	maxEvents    = 1000
	tickInterval = 250 * time.Millisecond
)

// StateSnapshot is the search state at a point in time
type StateSnapshot struct {
	ProjectName string
	Mode        string
	RunID       string
	StartTime   time.Time

	Completed  int
	Total      int
	RatePerSec float64
	ETA        time.Duration

	BestScore  float64
	BestTier   int
	Stagnation int

	Distinct      int
	DistinctRatio float64
	RecentMean    float64
	RecentStdDev  float64

	LastTrajectory TrajectoryInfo
}

// TrajectoryInfo is the most recently finished iteration
type TrajectoryInfo struct {
	Index        int
	Score        float64
	Reliability  float64
	NetEmissions float64
	Actions      int
	Replayed     bool
	Timestamp    time.Time
}

// Event represents a significant event
type Event struct {
	Timestamp time.Time
	Type      string // "BEST", "LEARN", "STAGNATION", "CHECKPOINT", "ERROR"
	Severity  string // "info", "warning", "error"
	Message   string
}

type (
	MsgStateSnapshot StateSnapshot
	MsgEvent         Event
	MsgShutdown      struct{}
	MsgTick          time.Time
)

type Model struct {
	snapshot StateSnapshot
	held     *StateSnapshot // newest snapshot received while paused
	events   []Event
	paused   bool
	learning bool // show LEARN events

	// set once the user asked to stop; the search keeps running until it
	// has checkpointed and sends MsgShutdown
	stopping bool
	onQuit   func()

	width  int
	height int
	ready  bool

	progress progress.Model
	viewport viewport.Model

	prevBest float64
}

func NewModel() Model {
	return Model{
		snapshot: StateSnapshot{StartTime: time.Now()},
		events:   make([]Event, 0, maxEvents),
		progress: progress.New(progress.WithWidth(40)),
		viewport: viewport.New(0, 10),
	}
}

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg { return MsgTick(t) })
}

func (m Model) Init() tea.Cmd { return tick() }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		var keyCmd, cmd tea.Cmd
		m, keyCmd = m.handleKey(msg)
		m.viewport, cmd = m.viewport.Update(msg)
		return m, tea.Batch(cmd, keyCmd)

	case tea.WindowSizeMsg:
		m.width, m.height, m.ready = msg.Width, msg.Height, true
		m.viewport.Width = m.width - 4
		m.viewport.Height = 10
		return m, nil

	case MsgStateSnapshot:
		s := StateSnapshot(msg)
		if m.paused {
			m.held = &s
			return m, nil
		}
		m.apply(s)
		return m, nil

	case MsgEvent:
		m.addEvent(Event(msg))
		m.updateViewportContent()
		m.viewport.GotoBottom()
		return m, nil

	case MsgTick:
		return m, tick()

	case MsgShutdown:
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) apply(s StateSnapshot) {
	m.prevBest = m.snapshot.BestScore
	m.snapshot = s
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		if m.stopping || m.onQuit == nil {
			// second press, or nobody to tell: leave now
			return m, tea.Quit
		}
		m.stopping = true
		m.onQuit()
		m.addEvent(Event{Timestamp: time.Now(), Type: "STOP", Severity: "warning",
			Message: "Stopping after current trajectories (press q again to leave now)"})
		m.updateViewportContent()
		m.viewport.GotoBottom()
	case "p":
		m.paused = !m.paused
		if !m.paused && m.held != nil {
			m.apply(*m.held)
			m.held = nil
		}
	case "d":
		m.learning = !m.learning
		m.updateViewportContent()
		m.viewport.GotoBottom()
	}
	return m, nil
}

func (m *Model) addEvent(e Event) {
	m.events = append(m.events, e)
	if len(m.events) > maxEvents {
		m.events = m.events[1:]
	}
}

// updateViewportContent rebuilds the event list. Call it when events or the
// LEARN filter change, not on every render.
func (m *Model) updateViewportContent() {
	lines := make([]string, 0, len(m.events))
	for _, e := range m.events {
		if e.Type == "LEARN" && !m.learning {
			continue
		}
		style, icon := styleEventInfo, "•"
		switch {
		case e.Severity == "error":
			style, icon = styleEventError, "✗"
		case e.Severity == "warning":
			style, icon = styleEventWarn, "⚠"
		case e.Type == "CHECKPOINT":
			icon = "✓"
		case e.Type == "BEST":
			icon = "↗"
		}
		lines = append(lines, style.Render(
			fmt.Sprintf("[%s] %s %s", e.Timestamp.Format("15:04:05"), icon, e.Message),
		))
	}
	m.viewport.SetContent(strings.Join(lines, "\n"))
}
