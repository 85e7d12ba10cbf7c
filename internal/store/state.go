package store

import (
	"time"

	"github.com/RevCBH/reeldeck/internal/jobs"
)

// State is a point-in-time copy of the store. Nothing in it aliases the
// store's own data, so holders may keep or modify it freely.
type State struct {
	// Window is the page of jobs currently held
	Window jobs.Window `json:"window"`

	// Summary holds global counts from the last applied fetch
	Summary jobs.Summary `json:"summary"`

	// Queue is the last pushed queue depth, if any
	Queue *jobs.QueueStats `json:"queue,omitempty"`

	// Loading is true while the newest issued fetch has not settled
	Loading bool `json:"loading"`

	// Loaded is true once any snapshot has been applied
	Loaded bool `json:"loaded"`

	// Err is the failure of the newest settled fetch, if it failed.
	// The window still holds the last good snapshot.
	Err error `json:"-"`

	// Seq is the sequence number of the newest settled fetch
	Seq uint64 `json:"seq"`

	// Version increases with every mutation; listeners use it to discard
	// states that arrive out of order.
	Version uint64 `json:"version"`

	UpdatedAt time.Time `json:"updatedAt"`
}

// Clone returns a deep copy of s
func (s State) Clone() State {
	c := s
	c.Window = s.Window.Clone()
	if s.Queue != nil {
		q := *s.Queue
		c.Queue = &q
	}
	return c
}

// ErrorMessage returns Err as a string, or "" when there is none
func (s State) ErrorMessage() string {
	if s.Err == nil {
		return ""
	}
	return s.Err.Error()
}

// Job returns the window's copy of the job with id
func (s State) Job(id string) (jobs.Job, bool) {
	if i := s.Window.IndexOf(id); i >= 0 {
		return s.Window.Jobs[i], true
	}
	return jobs.Job{}, false
}
