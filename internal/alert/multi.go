package alert

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Multi delivers each alert to several notifiers concurrently
type Multi struct {
	notifiers []Notifier
}

// NewMulti creates a fan-out notifier
func NewMulti(notifiers ...Notifier) *Multi {
	return &Multi{notifiers: notifiers}
}

// Notify delivers to every notifier. One failing destination does not stop
// the others; all failures are returned joined.
func (m *Multi) Notify(ctx context.Context, a Alert) error {
	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)
	for _, n := range m.notifiers {
		g.Go(func() error {
			if err := n.Notify(ctx, a); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", n.Name(), err))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

// Name returns "multi"
func (m *Multi) Name() string {
	return "multi"
}
