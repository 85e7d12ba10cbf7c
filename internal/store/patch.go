package store

import (
	"time"

	"github.com/RevCBH/reeldeck/internal/events"
	"github.com/RevCBH/reeldeck/internal/jobs"
)

// PatchResult describes what ApplyPatch did with a notification
type PatchResult int

const (
	// PatchApplied means the notification changed the store
	PatchApplied PatchResult = iota

	// PatchDropped means the notification was stale, irrelevant, or
	// addressed to a job outside the window
	PatchDropped

	// PatchRejected means the notification tried to move a job out of a
	// terminal state
	PatchRejected
)

func (r PatchResult) String() string {
	switch r {
	case PatchApplied:
		return "applied"
	case PatchDropped:
		return "dropped"
	case PatchRejected:
		return "rejected"
	}
	return "unknown"
}

// patchJob applies a job notification to j in place.
func patchJob(j *jobs.Job, n events.Notification, at time.Time) PatchResult {
	switch n.Type {
	case events.JobStatusUpdate:
		if j.Status.IsTerminal() {
			return PatchRejected
		}
		if !n.Status.Valid() {
			return PatchDropped
		}
		if n.Status == jobs.StatusFailed || n.Status == jobs.StatusCancelled {
			t := at
			j.Status = n.Status
			j.Progress.CurrentStage = n.Status
			j.CompletedAt = &t
			j.UpdatedAt = at
			return PatchApplied
		}
		if n.Status.Rank() < j.Status.Rank() {
			return PatchDropped
		}
		if n.Progress < j.Progress.Percent {
			return PatchDropped
		}
		if n.Status == j.Status && n.Progress == j.Progress.Percent {
			return PatchDropped
		}
		j.Status = n.Status
		j.Progress.CurrentStage = n.Status
		j.Progress.Percent = jobs.ClampPercent(n.Progress)
		if j.Progress.StartedAt.IsZero() && n.Status.IsProcessing() {
			j.Progress.StartedAt = at
		}
		if n.Status.IsTerminal() {
			t := at
			j.CompletedAt = &t
		}
		j.UpdatedAt = at
		return PatchApplied

	case events.JobLogEntry:
		j.Progress.Logs = append(j.Progress.Logs, n.Message)
		j.UpdatedAt = at
		return PatchApplied

	case events.JobCompleted:
		if j.Status.IsTerminal() {
			return PatchRejected
		}
		t := at
		j.Status = jobs.StatusCompleted
		j.Progress.CurrentStage = jobs.StatusCompleted
		j.Progress.Percent = 100
		j.CompletedAt = &t
		if n.VideoURL != "" {
			j.ResultURL = n.VideoURL
		}
		if n.Duration > 0 {
			j.Duration = n.Duration
		}
		j.UpdatedAt = at
		return PatchApplied

	case events.JobFailed:
		if j.Status.IsTerminal() {
			return PatchRejected
		}
		t := at
		j.Status = jobs.StatusFailed
		j.Progress.CurrentStage = jobs.StatusFailed
		j.CompletedAt = &t
		j.ErrorMessage = n.ErrorMessage
		j.UpdatedAt = at
		return PatchApplied
	}

	return PatchDropped
}
