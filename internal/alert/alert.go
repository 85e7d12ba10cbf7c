// Package alert tells people when jobs finish. Terminal job notifications
// become alerts that are delivered to the terminal, Slack, or a webhook.
package alert

import (
	"context"
	"fmt"
	"time"

	"github.com/RevCBH/reeldeck/internal/events"
	"github.com/RevCBH/reeldeck/internal/jobs"
)

// Severity indicates how much attention an alert needs
type Severity string

const (
	SeverityInfo     Severity = "info"     // job finished normally
	SeverityWarning  Severity = "warning"  // job stopped without a result
	SeverityCritical Severity = "critical" // job failed
)

// Alert is one job outcome worth telling someone about
type Alert struct {
	Severity Severity
	JobID    string
	Title    string
	Message  string
	Fields   map[string]string
	Time     time.Time
}

// Notifier delivers alerts to one destination
type Notifier interface {
	// Notify delivers a. Implementations respect ctx cancellation.
	Notify(ctx context.Context, a Alert) error

	// Name returns the destination type for logging
	Name() string
}

// FromNotification converts a terminal job notification into an alert.
// A status update into a terminal state counts, since polled jobs only
// ever produce those. Progress, log and queue events return false.
func FromNotification(n events.Notification) (Alert, bool) {
	a := Alert{JobID: n.JobID, Time: n.Time, Fields: map[string]string{}}
	if a.Time.IsZero() {
		a.Time = time.Now()
	}

	switch {
	case n.Type == events.JobCompleted,
		n.Type == events.JobStatusUpdate && n.Status == jobs.StatusCompleted:
		a.Severity = SeverityInfo
		a.Title = fmt.Sprintf("Job %s completed", n.JobID)
		a.Message = "The video is ready."
		if n.VideoURL != "" {
			a.Fields["video"] = n.VideoURL
		}
		if n.Duration > 0 {
			a.Fields["duration"] = fmt.Sprintf("%.1fs", n.Duration)
		}
	case n.Type == events.JobFailed,
		n.Type == events.JobStatusUpdate && n.Status == jobs.StatusFailed:
		a.Severity = SeverityCritical
		a.Title = fmt.Sprintf("Job %s failed", n.JobID)
		a.Message = n.ErrorMessage
		if a.Message == "" {
			a.Message = n.Message
		}
		if a.Message == "" {
			a.Message = "The service reported no reason."
		}
	case n.Type == events.JobStatusUpdate && n.Status == jobs.StatusCancelled:
		a.Severity = SeverityWarning
		a.Title = fmt.Sprintf("Job %s cancelled", n.JobID)
		a.Message = fmt.Sprintf("Stopped at %.0f%%.", n.Progress)
	default:
		return Alert{}, false
	}
	return a, true
}
