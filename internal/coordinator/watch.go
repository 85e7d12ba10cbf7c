package coordinator

import (
	"sync"

	"github.com/RevCBH/reeldeck/internal/jobs"
)

// Watch is a live subscription to one job's push notifications. It is
// held for as long as something is showing that job and must be closed
// when it stops; Close is safe to call any number of times.
type Watch struct {
	c    *Coordinator
	id   string
	once sync.Once
}

// ID returns the watched job id
func (w *Watch) ID() string {
	return w.id
}

// Job returns the store's current copy of the watched job. The second
// result is false when the job is not in the current window.
func (w *Watch) Job() (jobs.Job, bool) {
	return w.c.store.Job(w.id)
}

// Close unsubscribes from the job.
func (w *Watch) Close() {
	w.once.Do(func() {
		w.c.mu.Lock()
		if w.c.watch == w {
			w.c.watch = nil
		}
		w.c.mu.Unlock()

		if w.c.source != nil {
			w.c.source.Unsubscribe(w.id)
		}
		w.c.log.Debug("watch closed", "job", w.id)
	})
}
