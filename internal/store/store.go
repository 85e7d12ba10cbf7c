// Package store holds the client's authoritative copy of the job window.
//
// Fetch results replace the window wholesale and are ordered by a sequence
// number issued when the fetch begins; a response is applied only if no
// newer fetch has already settled. Push notifications patch individual
// jobs already in the window and never add or remove jobs.
package store

import (
	"sync"
	"time"

	"github.com/RevCBH/reeldeck/internal/events"
	"github.com/RevCBH/reeldeck/internal/jobs"
	"github.com/RevCBH/reeldeck/internal/logging"
)

// Store maintains the current job window.
// It is safe for concurrent access.
type Store struct {
	mu  sync.Mutex
	log *logging.Logger
	now func() time.Time

	issued  uint64 // newest sequence handed out by BeginFetch
	settled uint64 // newest sequence applied or failed

	window    jobs.Window
	summary   jobs.Summary
	queue     *jobs.QueueStats
	loaded    bool
	err       error
	version   uint64
	updatedAt time.Time

	listeners    map[int]func(State)
	nextListener int
}

// New creates an empty store.
func New(log *logging.Logger) *Store {
	if log == nil {
		log = logging.Nop()
	}
	return &Store{
		log:       log.With("component", "store"),
		now:       time.Now,
		window:    jobs.Window{Jobs: []jobs.Job{}, CurrentPage: 1},
		listeners: make(map[int]func(State)),
	}
}

// BeginFetch issues the sequence number for a new fetch and marks the
// store loading.
func (s *Store) BeginFetch() uint64 {
	seq := s.IssueFetch()
	s.Publish()
	return seq
}

// IssueFetch is BeginFetch without notifying listeners, for callers that
// issue the sequence under a lock of their own. Call Publish once that
// lock is released.
func (s *Store) IssueFetch() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issued++
	s.version++
	return s.issued
}

// Publish sends the current state to every listener.
func (s *Store) Publish() {
	s.mu.Lock()
	state := s.snapshotLocked()
	listeners := s.listenersLocked()
	s.mu.Unlock()

	notify(listeners, state)
}

// ApplySnapshot replaces the window with a fetch result. It returns false
// and changes nothing when a fetch issued at or after seq has already
// settled.
func (s *Store) ApplySnapshot(seq uint64, resp jobs.WindowResponse) bool {
	s.mu.Lock()
	if seq <= s.settled {
		settled := s.settled
		s.mu.Unlock()
		s.log.Debug("discarding stale snapshot", "seq", seq, "settled", settled)
		return false
	}

	win := resp.Window.Clone()
	if win.PageSize > 0 && len(win.Jobs) > win.PageSize {
		s.log.Warn("server returned more jobs than page size; truncating",
			"seq", seq, "jobs", len(win.Jobs), "page_size", win.PageSize)
		win.Jobs = win.Jobs[:win.PageSize]
	}
	if win.Jobs == nil {
		win.Jobs = []jobs.Job{}
	}
	if win.CurrentPage < 1 {
		win.CurrentPage = 1
	}

	if seq > s.issued {
		s.issued = seq
	}
	s.settled = seq
	s.window = win
	s.summary = resp.Summary
	s.loaded = true
	s.err = nil
	s.version++
	s.updatedAt = s.now()

	state := s.snapshotLocked()
	listeners := s.listenersLocked()
	s.mu.Unlock()

	s.log.Debug("snapshot applied", "seq", seq, "jobs", len(win.Jobs), "total", win.Total)
	notify(listeners, state)
	return true
}

// FailFetch records the failure of fetch seq. The window keeps its last
// good contents. Failures of superseded fetches are ignored.
func (s *Store) FailFetch(seq uint64, err error) bool {
	s.mu.Lock()
	if seq <= s.settled {
		s.mu.Unlock()
		s.log.Debug("ignoring stale fetch failure", "seq", seq, "error", err)
		return false
	}

	if seq > s.issued {
		s.issued = seq
	}
	s.settled = seq
	s.err = err
	s.version++
	s.updatedAt = s.now()

	state := s.snapshotLocked()
	listeners := s.listenersLocked()
	s.mu.Unlock()

	s.log.Warn("fetch failed", "seq", seq, "error", err)
	notify(listeners, state)
	return true
}

// ApplyPatch folds a push notification into the window.
func (s *Store) ApplyPatch(n events.Notification) PatchResult {
	at := n.Time
	if at.IsZero() {
		at = s.now()
	}

	s.mu.Lock()
	var res PatchResult
	switch {
	case n.Type == events.QueueUpdated:
		if n.Queue == nil {
			res = PatchDropped
			break
		}
		s.queue = &jobs.QueueStats{Queued: n.Queue.Queued, Processing: n.Queue.Processing, At: at}
		res = PatchApplied

	case n.Type.IsJobEvent():
		i := s.window.IndexOf(n.JobID)
		if i < 0 {
			res = PatchDropped
			break
		}
		res = patchJob(&s.window.Jobs[i], n, at)

	default:
		res = PatchDropped
	}

	if res != PatchApplied {
		s.mu.Unlock()
		switch res {
		case PatchRejected:
			s.log.Warn("rejecting transition out of terminal state", "job", n.JobID, "event", n.Type, "status", n.Status)
		default:
			s.log.Debug("dropping notification", "job", n.JobID, "event", n.Type)
		}
		return res
	}

	s.version++
	s.updatedAt = s.now()
	state := s.snapshotLocked()
	listeners := s.listenersLocked()
	s.mu.Unlock()

	notify(listeners, state)
	return PatchApplied
}

// State returns a deep copy of the current state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Job returns a copy of the job with id if it is in the window.
func (s *Store) Job(id string) (jobs.Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.window.IndexOf(id); i >= 0 {
		return s.window.Jobs[i].Clone(), true
	}
	return jobs.Job{}, false
}

// OnChange registers fn to be called with a fresh State after every
// mutation. fn runs outside the store lock on the mutating goroutine and
// must not block for long. The returned function removes fn.
func (s *Store) OnChange(fn func(State)) func() {
	s.mu.Lock()
	id := s.nextListener
	s.nextListener++
	s.listeners[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

// snapshotLocked must be called with s.mu held.
func (s *Store) snapshotLocked() State {
	st := State{
		Window:    s.window.Clone(),
		Summary:   s.summary,
		Loading:   s.settled < s.issued,
		Loaded:    s.loaded,
		Err:       s.err,
		Seq:       s.settled,
		Version:   s.version,
		UpdatedAt: s.updatedAt,
	}
	if s.queue != nil {
		q := *s.queue
		st.Queue = &q
	}
	return st
}

func (s *Store) listenersLocked() []func(State) {
	if len(s.listeners) == 0 {
		return nil
	}
	out := make([]func(State), 0, len(s.listeners))
	for i := 0; i < s.nextListener; i++ {
		if fn, ok := s.listeners[i]; ok {
			out = append(out, fn)
		}
	}
	return out
}

// notify hands each listener its own copy of st.
func notify(listeners []func(State), st State) {
	for _, fn := range listeners {
		fn(st.Clone())
	}
}
