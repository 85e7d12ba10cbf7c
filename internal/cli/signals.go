package cli

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/RevCBH/reeldeck/internal/logging"
)

// SignalHandler cancels a context on the first SIGINT or SIGTERM and
// runs shutdown callbacks. A second signal calls the force function,
// which exits the process by default.
type SignalHandler struct {
	signals    chan os.Signal
	stopCh     chan struct{}
	done       chan struct{}
	stopOnce   sync.Once
	cancel     context.CancelFunc
	log        *logging.Logger
	force      func()
	mu         sync.Mutex
	onShutdown []func()
}

// NewSignalHandler creates a signal handler with the given context cancel
func NewSignalHandler(cancel context.CancelFunc, log *logging.Logger) *SignalHandler {
	if log == nil {
		log = logging.Nop()
	}
	return &SignalHandler{
		signals: make(chan os.Signal, 2),
		stopCh:  make(chan struct{}),
		done:    make(chan struct{}),
		cancel:  cancel,
		log:     log,
		force:   func() { os.Exit(130) },
	}
}

// Start begins listening for signals
func (h *SignalHandler) Start() {
	h.StartWithNotify(true)
}

// StartWithNotify begins listening; pass false in tests to skip OS
// registration and drive the handler through its channel.
func (h *SignalHandler) StartWithNotify(notify bool) {
	if notify {
		signal.Notify(h.signals, syscall.SIGINT, syscall.SIGTERM)
	}

	go func() {
		defer close(h.done)

		select {
		case sig := <-h.signals:
			h.log.Info("received signal; shutting down", "signal", sig.String())
			h.cancel()

			h.mu.Lock()
			callbacks := append([]func(){}, h.onShutdown...)
			h.mu.Unlock()
			for _, fn := range callbacks {
				fn()
			}
		case <-h.stopCh:
			return
		}

		select {
		case <-h.signals:
			h.log.Warn("second signal; exiting immediately")
			h.force()
		case <-h.stopCh:
		}
	}()
}

// OnShutdown registers a callback to run after the context is cancelled
func (h *SignalHandler) OnShutdown(fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onShutdown = append(h.onShutdown, fn)
}

// Stop unregisters from the OS and waits for the handler goroutine
func (h *SignalHandler) Stop() {
	signal.Stop(h.signals)
	h.stopOnce.Do(func() {
		close(h.stopCh)
	})
	<-h.done
}

// withSignals returns a context cancelled by SIGINT or SIGTERM and a
// function that releases the handler.
func withSignals(parent context.Context, log *logging.Logger) (context.Context, func()) {
	ctx, cancel := context.WithCancel(parent)
	h := NewSignalHandler(cancel, log)
	h.Start()
	return ctx, func() {
		h.Stop()
		cancel()
	}
}
