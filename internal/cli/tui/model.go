package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/RevCBH/reeldeck/internal/coordinator"
	"github.com/RevCBH/reeldeck/internal/events"
	"github.com/RevCBH/reeldeck/internal/jobs"
	"github.com/RevCBH/reeldeck/internal/store"
)

// Controller is what the dashboard drives. The coordinator satisfies it
// through a thin adapter in the cli package.
type Controller interface {
	Refresh(ctx context.Context) error
	SetPage(ctx context.Context, n int) error
	SetFilters(ctx context.Context, f jobs.Filters) error
	Cancel(ctx context.Context, id string) error
	Params() coordinator.Params
	Mode() coordinator.Mode

	// Follow opens a scoped push subscription for one job and returns the
	// function that ends it.
	Follow(id string) func()
}

// actionTimeout bounds each user-triggered request
const actionTimeout = 30 * time.Second

// Model is the bubbletea model for the job dashboard
type Model struct {
	ctrl   Controller
	Styles Styles

	// State
	State     store.State
	Mode      coordinator.Mode
	Cursor    int
	Detail    string // job id shown in detail view; empty for the list
	Events    []string
	EventMax  int
	Flash     string
	StartTime time.Time
	LogLines  []string
	LogLimit  int
	ShowLogs  bool
	Width     int
	Height    int

	stopFollow func()

	// Control
	Quitting bool
	Done     bool
}

// NewModel creates a dashboard model driving ctrl
func NewModel(ctrl Controller) *Model {
	return &Model{
		ctrl:      ctrl,
		Styles:    DefaultStyles(),
		Mode:      ctrl.Mode(),
		EventMax:  12,
		StartTime: time.Now(),
		LogLimit:  500,
	}
}

// Init implements tea.Model. The first window arrives through the store
// once the coordinator has fetched it.
func (m *Model) Init() tea.Cmd {
	return tickCmd()
}

// TickMsg is sent every second to update the timer and mode badge
type TickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// DoneMsg signals the TUI should exit
type DoneMsg struct{}

// QuitMsg signals the user requested quit (q or Ctrl+C)
type QuitMsg struct{}

// StateMsg carries a store snapshot
type StateMsg struct {
	State store.State
}

// NotificationMsg carries a push notification
type NotificationMsg struct {
	Notification events.Notification
}

// ActionMsg reports the outcome of a user-triggered request
type ActionMsg struct {
	Action string
	JobID  string
	Err    error
}

// action wraps a controller call as a tea.Cmd
func (m *Model) action(name string, fn func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		return ActionMsg{Action: name, Err: fn(ctx)}
	}
}

func (m *Model) cancelJob(id string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		return ActionMsg{Action: "cancel", JobID: id, Err: m.ctrl.Cancel(ctx, id)}
	}
}

// selected returns the job under the cursor
func (m *Model) selected() (jobs.Job, bool) {
	if m.Cursor < 0 || m.Cursor >= len(m.State.Window.Jobs) {
		return jobs.Job{}, false
	}
	return m.State.Window.Jobs[m.Cursor], true
}

// Close ends any scoped subscription the dashboard opened
func (m *Model) Close() {
	if m.stopFollow != nil {
		m.stopFollow()
		m.stopFollow = nil
	}
}
