package tui

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"
)

var (
	ErrNotTerminal = errors.New("tui disabled: stdout is not a terminal")
	ErrDumbTerm    = errors.New("tui disabled: TERM=dumb")
)

// shutdownWait bounds how long Stop waits for the terminal to be restored.
const shutdownWait = 2 * time.Second

type TUIConfig struct {
	Title string
	Mode  string
	RunID string

	// OnQuit is called once when the user presses q. The dashboard stays up
	// until Stop so the final checkpoint is still shown.
	OnQuit func()
}

type session struct {
	p    *tea.Program
	done chan struct{}
}

var (
	mu      sync.RWMutex
	current *session
)

// Start runs the dashboard in the background until ctx ends or Stop is called.
func Start(ctx context.Context, cfg TUIConfig) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return ErrNotTerminal
	}
	if os.Getenv("TERM") == "dumb" {
		return ErrDumbTerm
	}

	m := NewModel()
	m.snapshot.ProjectName = cfg.Title
	m.snapshot.Mode = cfg.Mode
	m.snapshot.RunID = cfg.RunID
	if cfg.OnQuit != nil {
		var once sync.Once
		m.onQuit = func() { once.Do(cfg.OnQuit) }
	}

	s := &session{
		p:    tea.NewProgram(m, tea.WithContext(ctx), tea.WithAltScreen()),
		done: make(chan struct{}),
	}
	mu.Lock()
	current = s
	mu.Unlock()

	go func() {
		defer close(s.done)
		_, _ = s.p.Run()
		mu.Lock()
		if current == s {
			current = nil
		}
		mu.Unlock()
	}()
	return nil
}

// Stop asks the dashboard to quit and waits briefly for it to restore the terminal.
func Stop() {
	mu.RLock()
	s := current
	mu.RUnlock()
	if s == nil {
		return
	}
	s.p.Send(MsgShutdown{})
	select {
	case <-s.done:
	case <-time.After(shutdownWait):
	}
}

// Active reports whether a dashboard is running.
func Active() bool {
	mu.RLock()
	defer mu.RUnlock()
	return current != nil
}

func send(msg tea.Msg) {
	mu.RLock()
	s := current
	mu.RUnlock()
	if s != nil {
		s.p.Send(msg)
	}
}

// PushState sends a state snapshot to the dashboard. Safe for concurrent use.
func PushState(s StateSnapshot) { send(MsgStateSnapshot(s)) }

// PushEvent sends an event to the dashboard. Safe for concurrent use.
func PushEvent(e Event) { send(MsgEvent(e)) }
