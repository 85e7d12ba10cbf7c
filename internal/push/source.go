// Package push delivers job notifications from the service to the client.
//
// Two sources are provided: Channel speaks the service's Socket.IO
// endpoint over WebSocket, and RedisRelay reads the same events from the
// Redis pub/sub channel the service publishes to. Both reconnect with
// bounded exponential backoff and report their state; neither ever
// terminates the process. A source that gives up settles in
// StateDisconnected with a *ChannelError, and callers fall back to polling.
package push

import (
	"context"
	"fmt"

	"github.com/RevCBH/reeldeck/internal/events"
)

// State is the connection state of a push source
type State string

const (
	StateIdle         State = "idle"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
	StateDisconnected State = "disconnected"
)

// Source is a stream of push notifications with per-job subscriptions.
type Source interface {
	// Start begins connecting in the background. It does not wait for the
	// connection to be established.
	Start(ctx context.Context) error

	// Notifications yields decoded notifications in receive order. The
	// channel is closed once the source stops for good.
	Notifications() <-chan events.Notification

	// StateChanges yields connection state transitions. Slow readers may
	// miss intermediate states but always observe the latest one.
	StateChanges() <-chan State

	State() State
	Err() error
	Connected() bool

	// Subscribe and Unsubscribe are idempotent and never fail. Requests
	// made while disconnected are replayed on the next connection.
	Subscribe(jobID string)
	Unsubscribe(jobID string)

	Close() error
}

// ChannelError reports that a source exhausted its reconnect attempts
type ChannelError struct {
	Attempts int
	Err      error
}

func (e *ChannelError) Error() string {
	return fmt.Sprintf("push channel gave up after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ChannelError) Unwrap() error {
	return e.Err
}
