package push

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/RevCBH/reeldeck/internal/events"
	"github.com/RevCBH/reeldeck/internal/logging"
)

var errClosed = errors.New("push source closed")

// base holds what every source shares: connection state, the desired
// subscription set, and the outbound notification and state channels.
type base struct {
	log *logging.Logger

	mu       sync.RWMutex
	state    State
	err      error
	subs     map[string]struct{}
	started  bool
	finished bool
	cancel   context.CancelFunc

	notes  chan events.Notification
	states chan State

	closeOnce sync.Once
	wg        sync.WaitGroup
}

func newBase(log *logging.Logger, buffer int) *base {
	if log == nil {
		log = logging.Nop()
	}
	if buffer <= 0 {
		buffer = 256
	}
	return &base{
		log:    log,
		state:  StateIdle,
		subs:   make(map[string]struct{}),
		notes:  make(chan events.Notification, buffer),
		states: make(chan State, 16),
	}
}

// begin marks the source started and returns the context its run loop uses.
func (b *base) begin(ctx context.Context) (context.Context, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.finished {
		return nil, errClosed
	}
	if b.started {
		return nil, errors.New("push source already started")
	}
	b.started = true
	runCtx, cancel := context.WithCancel(ctx)
	b.cancel = cancel
	return runCtx, nil
}

func (b *base) State() State {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}

func (b *base) Err() error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.err
}

func (b *base) Connected() bool {
	return b.State() == StateConnected
}

func (b *base) Notifications() <-chan events.Notification {
	return b.notes
}

func (b *base) StateChanges() <-chan State {
	return b.states
}

// setState records s and publishes it. When the state channel is full the
// oldest pending state is discarded so the latest always gets through.
func (b *base) setState(s State, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.finished {
		return
	}
	changed := b.state != s
	b.state = s
	b.err = err
	if !changed {
		return
	}
	b.log.Debug("push state changed", "state", s)
	for {
		select {
		case b.states <- s:
			return
		default:
		}
		select {
		case <-b.states:
		default:
		}
	}
}

// deliver blocks until n is queued or ctx ends.
func (b *base) deliver(ctx context.Context, n events.Notification) bool {
	select {
	case b.notes <- n:
		return true
	case <-ctx.Done():
		return false
	}
}

// addSub records jobID and reports whether it was new.
func (b *base) addSub(jobID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[jobID]; ok {
		return false
	}
	b.subs[jobID] = struct{}{}
	return true
}

// removeSub forgets jobID and reports whether it was present.
func (b *base) removeSub(jobID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[jobID]; !ok {
		return false
	}
	delete(b.subs, jobID)
	return true
}

func (b *base) isSubscribed(jobID string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.subs[jobID]
	return ok
}

// subscriptions returns the desired subscription set in stable order
func (b *base) subscriptions() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]string, 0, len(b.subs))
	for id := range b.subs {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// finish closes the outbound channels. Only the run loop calls it, after
// its last delivery, or shutdown when the source never started.
func (b *base) finish() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.finished {
		return
	}
	b.finished = true
	b.state = StateDisconnected
	close(b.notes)
	close(b.states)
}

// cancelRun signals the run loop to stop without waiting for it.
func (b *base) cancelRun() {
	b.mu.RLock()
	cancel := b.cancel
	b.mu.RUnlock()
	if cancel != nil {
		cancel()
	}
}

// shutdown stops the run loop and waits for it.
func (b *base) shutdown() {
	b.closeOnce.Do(func() {
		b.mu.Lock()
		cancel := b.cancel
		started := b.started
		b.mu.Unlock()

		if cancel != nil {
			cancel()
		}
		b.wg.Wait()
		if !started {
			b.finish()
		}
	})
}
