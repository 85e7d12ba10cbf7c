package alert

import (
	"context"
	"sync"
	"time"

	"github.com/RevCBH/reeldeck/internal/events"
	"github.com/RevCBH/reeldeck/internal/logging"
)

// maxSeen bounds the set of jobs already alerted on
const maxSeen = 4096

// DispatcherConfig tunes a Dispatcher
type DispatcherConfig struct {
	// Filter, when set, drops notifications it returns false for
	Filter func(events.Notification) bool

	// Timeout bounds each delivery (default 15s)
	Timeout time.Duration

	// Buffer is how many alerts may wait for delivery (default 32)
	Buffer int

	Logger *logging.Logger
}

// Dispatcher turns notifications into alerts and delivers them off the
// caller's goroutine. Each job alerts at most once.
type Dispatcher struct {
	notifier Notifier
	filter   func(events.Notification) bool
	timeout  time.Duration
	log      *logging.Logger

	queue chan Alert
	done  chan struct{}

	mu     sync.Mutex
	seen   map[string]struct{}
	closed bool
}

// NewDispatcher starts a dispatcher delivering to n
func NewDispatcher(n Notifier, cfg DispatcherConfig) *Dispatcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = 32
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Nop()
	}

	d := &Dispatcher{
		notifier: n,
		filter:   cfg.Filter,
		timeout:  cfg.Timeout,
		log:      cfg.Logger.With("component", "alert", "notifier", n.Name()),
		queue:    make(chan Alert, cfg.Buffer),
		done:     make(chan struct{}),
		seen:     make(map[string]struct{}),
	}
	go d.run()
	return d
}

// Handler returns an events.Handler that never blocks
func (d *Dispatcher) Handler() events.Handler {
	return func(n events.Notification) {
		if d.filter != nil && !d.filter(n) {
			return
		}
		a, ok := FromNotification(n)
		if !ok {
			return
		}

		d.mu.Lock()
		defer d.mu.Unlock()
		if d.closed {
			return
		}
		if _, dup := d.seen[a.JobID]; dup {
			return
		}
		if len(d.seen) >= maxSeen {
			clear(d.seen)
		}
		d.seen[a.JobID] = struct{}{}

		select {
		case d.queue <- a:
		default:
			d.log.Warn("alert dropped; delivery backlog full", "job", a.JobID)
		}
	}
}

// Close delivers queued alerts and stops the dispatcher
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	<-d.done
	return nil
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for a := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		if err := d.notifier.Notify(ctx, a); err != nil {
			d.log.Warn("alert delivery failed", "job", a.JobID, "error", err)
		} else {
			d.log.Debug("alert delivered", "job", a.JobID, "severity", a.Severity)
		}
		cancel()
	}
}
