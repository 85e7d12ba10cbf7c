package coordinator

import (
	"context"
	"errors"
	"sync"

	"github.com/RevCBH/reeldeck/internal/client"
	"github.com/RevCBH/reeldeck/internal/events"
	"github.com/RevCBH/reeldeck/internal/jobs"
	"github.com/RevCBH/reeldeck/internal/push"
)

// fetchCall records one FetchWindow invocation. When the fake is gated,
// the call blocks until release receives a response.
type fetchCall struct {
	Filters    jobs.Filters
	Pagination jobs.Pagination
	release    chan fetchReply
}

type fetchReply struct {
	resp *jobs.WindowResponse
	err  error
}

type fakeFetcher struct {
	mu        sync.Mutex
	gated     bool
	calls     []*fetchCall
	pending   chan *fetchCall
	respond   func(f jobs.Filters, p jobs.Pagination) (*jobs.WindowResponse, error)
	submitted []client.SubmitRequest
	submitID  string
	submitErr error
	cancelled []string
	cancelErr error
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		pending: make(chan *fetchCall, 16),
		respond: func(f jobs.Filters, p jobs.Pagination) (*jobs.WindowResponse, error) {
			return &jobs.WindowResponse{Window: jobs.Window{Jobs: []jobs.Job{}, PageSize: p.Limit, CurrentPage: 1}}, nil
		},
	}
}

func (f *fakeFetcher) FetchWindow(ctx context.Context, filters jobs.Filters, p jobs.Pagination) (*jobs.WindowResponse, error) {
	call := &fetchCall{Filters: filters.Clone(), Pagination: p, release: make(chan fetchReply, 1)}

	f.mu.Lock()
	f.calls = append(f.calls, call)
	gated := f.gated
	respond := f.respond
	f.mu.Unlock()

	if !gated {
		return respond(filters, p)
	}

	f.pending <- call
	select {
	case r := <-call.release:
		return r.resp, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (f *fakeFetcher) Submit(ctx context.Context, req client.SubmitRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted = append(f.submitted, req)
	return f.submitID, f.submitErr
}

func (f *fakeFetcher) Cancel(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, id)
	return f.cancelErr
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeFetcher) lastCall() *fetchCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		return nil
	}
	return f.calls[len(f.calls)-1]
}

// fakeSource is an in-memory push.Source driven by the test.
type fakeSource struct {
	mu      sync.Mutex
	state   push.State
	subs    []string
	unsubs  []string
	started bool
	closed  bool

	notes  chan events.Notification
	states chan push.State
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		state:  push.StateIdle,
		notes:  make(chan events.Notification, 16),
		states: make(chan push.State, 16),
	}
}

func (s *fakeSource) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return errors.New("already started")
	}
	s.started = true
	return nil
}

func (s *fakeSource) Notifications() <-chan events.Notification { return s.notes }
func (s *fakeSource) StateChanges() <-chan push.State         { return s.states }

func (s *fakeSource) State() push.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *fakeSource) Err() error      { return nil }
func (s *fakeSource) Connected() bool { return s.State() == push.StateConnected }

func (s *fakeSource) Subscribe(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, id)
}

func (s *fakeSource) Unsubscribe(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unsubs = append(s.unsubs, id)
}

func (s *fakeSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *fakeSource) setState(st push.State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
	s.states <- st
}

func (s *fakeSource) subscriptions() (subs, unsubs []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.subs...), append([]string(nil), s.unsubs...)
}
