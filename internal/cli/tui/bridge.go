package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/RevCBH/reeldeck/internal/events"
	"github.com/RevCBH/reeldeck/internal/store"
)

// Sender accepts messages for a running program. *tea.Program satisfies it.
type Sender interface {
	Send(msg tea.Msg)
}

// Bridge connects store changes and push notifications to the program
type Bridge struct {
	program Sender
}

// NewBridge creates a new bridge for the given program
func NewBridge(program Sender) *Bridge {
	return &Bridge{
		program: program,
	}
}

// StateListener returns a store.OnChange listener
func (b *Bridge) StateListener() func(store.State) {
	return func(st store.State) {
		b.program.Send(StateMsg{State: st})
	}
}

// Handler returns a notification handler for the coordinator's bus.
// Only job events are forwarded; queue depth arrives through the store.
func (b *Bridge) Handler() events.Handler {
	return func(n events.Notification) {
		if msg := notificationToMsg(n); msg != nil {
			b.program.Send(msg)
		}
	}
}

func notificationToMsg(n events.Notification) tea.Msg {
	if !n.Type.IsJobEvent() {
		return nil
	}
	return NotificationMsg{Notification: n}
}

// SendDone sends a DoneMsg to the program
func (b *Bridge) SendDone() {
	b.program.Send(DoneMsg{})
}

// SendQuit sends a QuitMsg to the program
func (b *Bridge) SendQuit() {
	b.program.Send(QuitMsg{})
}
