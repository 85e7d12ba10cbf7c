package web

import (
	"time"

	"github.com/RevCBH/reeldeck/internal/events"
	"github.com/RevCBH/reeldeck/internal/store"
)

// Config holds configuration for the mirror server
type Config struct {
	// Addr is the TCP listen address (default: 127.0.0.1:8090)
	Addr string

	// ClientBuffer is the per-client SSE event buffer (default: 64)
	ClientBuffer int
}

// DefaultAddr is the listen address used when none is configured
const DefaultAddr = "127.0.0.1:8090"

// Event types sent on the SSE stream
const (
	EventState        = "state"
	EventNotification = "notification"
)

// Event is one message on the SSE stream
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// StatePayload is the JSON form of a store snapshot. The store's error is
// flattened to its message.
type StatePayload struct {
	store.State
	Error     string    `json:"error,omitempty"`
	Mode      string    `json:"mode"`
	Watching  string    `json:"watching,omitempty"`
	Generated time.Time `json:"generatedAt"`
}

func stateEvent(st store.State, mode, watching string) *Event {
	return &Event{Type: EventState, Data: newStatePayload(st, mode, watching)}
}

func notificationEvent(n events.Notification) *Event {
	return &Event{Type: EventNotification, Data: n}
}

func newStatePayload(st store.State, mode, watching string) StatePayload {
	return StatePayload{
		State:     st,
		Error:     st.ErrorMessage(),
		Mode:      mode,
		Watching:  watching,
		Generated: time.Now().UTC(),
	}
}
