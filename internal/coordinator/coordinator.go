// Package coordinator decides what the job store should hold and keeps
// it fresh. It owns the desired page, page size, filters and sort order,
// turns every change into a sequenced fetch, forwards commands to the
// job service, and manages the single live job subscription.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/RevCBH/reeldeck/internal/client"
	"github.com/RevCBH/reeldeck/internal/events"
	"github.com/RevCBH/reeldeck/internal/jobs"
	"github.com/RevCBH/reeldeck/internal/logging"
	"github.com/RevCBH/reeldeck/internal/push"
	"github.com/RevCBH/reeldeck/internal/store"
)

// Fetcher is the subset of the job service client the coordinator needs
type Fetcher interface {
	FetchWindow(ctx context.Context, f jobs.Filters, p jobs.Pagination) (*jobs.WindowResponse, error)
	Submit(ctx context.Context, req client.SubmitRequest) (string, error)
	Cancel(ctx context.Context, id string) error
}

// Mode reports how the store is being kept fresh
type Mode string

const (
	ModePush    Mode = "push"
	ModePolling Mode = "polling"
)

// Config configures a Coordinator
type Config struct {
	// PageSize is the initial page size (default: 10)
	PageSize int

	// PollInterval is how often to refetch while push is unavailable
	// (default: 15s)
	PollInterval time.Duration

	// SortBy and SortOrder are the initial sort
	SortBy    string
	SortOrder jobs.SortOrder

	Logger *logging.Logger
}

// Coordinator drives fetches into a Store and push notifications into
// its patch entry point.
type Coordinator struct {
	fetcher Fetcher
	source  push.Source
	store   *store.Store
	bus     *events.Bus
	log     *logging.Logger
	poll    time.Duration

	mu     sync.Mutex
	params Params
	watch  *Watch
}

// New creates a coordinator. source may be nil, in which case the
// coordinator runs in polling mode only.
func New(f Fetcher, source push.Source, st *store.Store, cfg Config) *Coordinator {
	if cfg.PageSize < 1 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 15 * time.Second
	}
	log := cfg.Logger
	if log == nil {
		log = logging.Nop()
	}

	return &Coordinator{
		fetcher: f,
		source:  source,
		store:   st,
		bus:     events.NewBus(256),
		log:     log.With("component", "coordinator"),
		poll:    cfg.PollInterval,
		params: Params{
			Page:      1,
			PageSize:  cfg.PageSize,
			SortBy:    cfg.SortBy,
			SortOrder: cfg.SortOrder,
		},
	}
}

// Store returns the store this coordinator feeds
func (c *Coordinator) Store() *store.Store {
	return c.store
}

// Params returns the current desired parameters
func (c *Coordinator) Params() Params {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.params.clone()
}

// update applies fn to the params and issues the fetch sequence under the
// lock, then fetches the result.
func (c *Coordinator) update(ctx context.Context, fn func(p *Params) error) error {
	c.mu.Lock()
	next := c.params.clone()
	if err := fn(&next); err != nil {
		c.mu.Unlock()
		return err
	}
	c.params = next
	p := next.clone()
	seq := c.store.IssueFetch()
	c.mu.Unlock()

	c.store.Publish()
	return c.fetch(ctx, seq, p)
}

// SetFilters replaces the filters and returns to page 1 in the same update.
func (c *Coordinator) SetFilters(ctx context.Context, f jobs.Filters) error {
	if err := validateFilters(f); err != nil {
		return err
	}
	return c.update(ctx, func(p *Params) error {
		p.Filters = f.Clone()
		p.Page = 1
		return nil
	})
}

// SetPage moves to page n (1-indexed).
func (c *Coordinator) SetPage(ctx context.Context, n int) error {
	if n < 1 {
		return fmt.Errorf("page must be at least 1, got %d", n)
	}
	return c.update(ctx, func(p *Params) error {
		p.Page = n
		return nil
	})
}

// SetPageSize changes the page size and returns to page 1.
func (c *Coordinator) SetPageSize(ctx context.Context, n int) error {
	if n < 1 {
		return fmt.Errorf("page size must be at least 1, got %d", n)
	}
	return c.update(ctx, func(p *Params) error {
		p.PageSize = n
		p.Page = 1
		return nil
	})
}

// SetSort changes the sort field and direction.
func (c *Coordinator) SetSort(ctx context.Context, by string, order jobs.SortOrder) error {
	if err := validateSortOrder(order); err != nil {
		return err
	}
	return c.update(ctx, func(p *Params) error {
		p.SortBy = by
		p.SortOrder = order
		return nil
	})
}

// Refresh refetches the current window.
func (c *Coordinator) Refresh(ctx context.Context) error {
	c.mu.Lock()
	p := c.params.clone()
	seq := c.store.IssueFetch()
	c.mu.Unlock()

	c.store.Publish()
	return c.fetch(ctx, seq, p)
}

// fetch runs one fetch under seq, which must have been issued while the
// params lock was held so sequence order matches params order. Its outcome
// always reaches the store; the returned error is for callers that want it
// directly.
func (c *Coordinator) fetch(ctx context.Context, seq uint64, p Params) error {
	c.log.Debug("fetching window", "seq", seq, "page", p.Page, "page_size", p.PageSize)

	resp, err := c.fetcher.FetchWindow(ctx, p.Filters, p.Pagination())
	if err != nil {
		c.store.FailFetch(seq, err)
		return err
	}
	if resp == nil {
		err := errors.New("empty window response")
		c.store.FailFetch(seq, err)
		return err
	}

	resp.Window.Filters = p.Filters.Clone()
	c.store.ApplySnapshot(seq, *resp)
	return nil
}

// Generate submits a prompt at the given priority. See Submit.
func (c *Coordinator) Generate(ctx context.Context, prompt string, priority jobs.Priority) (string, error) {
	return c.Submit(ctx, client.SubmitRequest{Prompt: prompt, Priority: priority})
}

// Submit creates a job and refetches the window. The job id is returned
// even if the refetch fails; that failure is recorded in the store.
func (c *Coordinator) Submit(ctx context.Context, req client.SubmitRequest) (string, error) {
	id, err := c.fetcher.Submit(ctx, req)
	if err != nil {
		return "", err
	}
	c.log.Info("job submitted", "job", id)

	if err := c.Refresh(ctx); err != nil {
		c.log.Debug("refetch after submit failed", "job", id, "error", err)
	}
	return id, nil
}

// Cancel asks the service to cancel a job and refetches the window. A job
// that no longer exists still triggers the refetch so the window drops it.
func (c *Coordinator) Cancel(ctx context.Context, id string) error {
	err := c.fetcher.Cancel(ctx, id)
	if err != nil && !client.IsNotFound(err) {
		return err
	}

	if ferr := c.Refresh(ctx); ferr != nil {
		c.log.Debug("refetch after cancel failed", "job", id, "error", ferr)
	}
	return err
}

// Watch subscribes to live notifications for job id, closing any previous
// watch first. At most one job is watched at a time.
func (c *Coordinator) Watch(id string) *Watch {
	w := &Watch{c: c, id: id}

	c.mu.Lock()
	prev := c.watch
	c.watch = w
	c.mu.Unlock()

	if prev != nil {
		prev.Close()
	}
	if c.source != nil {
		c.source.Subscribe(id)
	}
	c.log.Debug("watching job", "job", id)
	return w
}

// Subscribed returns the id of the watched job, or "" if none
func (c *Coordinator) Subscribed() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.watch == nil {
		return ""
	}
	return c.watch.id
}

// OnNotification registers h for every push notification the coordinator
// receives, after it has been offered to the store.
func (c *Coordinator) OnNotification(h events.Handler) func() {
	return c.bus.Subscribe(h)
}

// Mode reports whether push is currently connected
func (c *Coordinator) Mode() Mode {
	if c.source != nil && c.source.Connected() {
		return ModePush
	}
	return ModePolling
}

// Run starts the push source, feeds its notifications to the store, and
// polls while push is unavailable. It performs an initial fetch and
// returns when ctx ends.
func (c *Coordinator) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	var states <-chan push.State
	if c.source != nil {
		if err := c.source.Start(ctx); err != nil {
			return fmt.Errorf("start push source: %w", err)
		}
		states = c.source.StateChanges()

		notes := c.source.Notifications()
		g.Go(func() error {
			return c.pump(ctx, notes)
		})
	}

	g.Go(func() error {
		return c.pollLoop(ctx, states)
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Close releases the push source and notification bus.
func (c *Coordinator) Close() error {
	c.mu.Lock()
	w := c.watch
	c.mu.Unlock()
	if w != nil {
		w.Close()
	}

	var err error
	if c.source != nil {
		err = c.source.Close()
	}
	_ = c.bus.Close()
	return err
}

// pump applies notifications in delivery order.
func (c *Coordinator) pump(ctx context.Context, notes <-chan events.Notification) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case n, ok := <-notes:
			if !ok {
				c.log.Info("push source stopped; continuing in polling mode")
				return nil
			}
			res := c.store.ApplyPatch(n)
			c.log.Debug("notification", "event", n.Type, "job", n.JobID, "result", res)
			c.bus.Publish(n)
		}
	}
}

// pollLoop refetches every poll interval while push is not connected, and
// once whenever push (re)connects to catch up on anything missed.
func (c *Coordinator) pollLoop(ctx context.Context, states <-chan push.State) error {
	if err := c.Refresh(ctx); err != nil && ctx.Err() == nil {
		c.log.Warn("initial fetch failed", "error", err)
	}

	ticker := time.NewTicker(c.poll)
	defer ticker.Stop()

	connected := c.Mode() == ModePush
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case s, ok := <-states:
			if !ok {
				states = nil
				connected = false
				continue
			}
			if s == push.StateConnected && !connected {
				c.log.Info("push connected; refreshing")
				_ = c.Refresh(ctx)
			}
			if s != push.StateConnected && connected {
				c.log.Info("push unavailable; polling", "interval", c.poll)
			}
			connected = s == push.StateConnected

		case <-ticker.C:
			if connected {
				continue
			}
			if err := c.Refresh(ctx); err != nil && ctx.Err() == nil {
				c.log.Debug("poll fetch failed", "error", err)
			}
		}
	}
}
