package events

import (
	"fmt"
	"strings"
	"time"

	"github.com/RevCBH/reeldeck/internal/jobs"
)

// Type is the event name used on the push channel
type Type string

// Inbound job lifecycle notifications
const (
	JobStatusUpdate Type = "job_status_update"
	JobLogEntry     Type = "job_log_entry"
	JobCompleted    Type = "job_completed"
	JobFailed       Type = "job_failed"
)

// QueueUpdated carries global queue depth and is not tied to a job
const QueueUpdated Type = "queue_updated"

// Outbound control messages
const (
	SubscribeJob   Type = "subscribe_job"
	UnsubscribeJob Type = "unsubscribe_job"
)

// Server acknowledgements; received but carry no job state
const (
	Connected  Type = "connected"
	Subscribed Type = "subscribed"
)

// IsJobEvent returns true for notifications addressed to a single job
func (t Type) IsJobEvent() bool {
	switch t {
	case JobStatusUpdate, JobLogEntry, JobCompleted, JobFailed:
		return true
	}
	return false
}

// QueueCounts is the payload of a queue_updated notification
type QueueCounts struct {
	Queued     int `json:"queued"`
	Processing int `json:"processing"`
}

// Notification is a decoded push event. Notifications are hints: they may
// be duplicated, late, or addressed to jobs the client does not hold.
type Notification struct {
	// Type identifies what happened
	Type Type `json:"type"`

	// Time is the server timestamp when present, otherwise receive time
	Time time.Time `json:"time"`

	// JobID is empty for queue_updated
	JobID string `json:"jobId,omitempty"`

	// Status and Progress are set by job_status_update
	Status   jobs.Status `json:"status,omitempty"`
	Progress float64     `json:"progress,omitempty"`

	// Level and Message are set by job_log_entry; Message may also
	// accompany a status update
	Level   string `json:"level,omitempty"`
	Message string `json:"message,omitempty"`

	// VideoURL and Duration are set by job_completed
	VideoURL string  `json:"videoUrl,omitempty"`
	Duration float64 `json:"duration,omitempty"`

	// ErrorMessage is set by job_failed
	ErrorMessage string `json:"errorMessage,omitempty"`

	// Queue is set by queue_updated
	Queue *QueueCounts `json:"queue,omitempty"`
}

// StatusUpdate builds a job_status_update notification
func StatusUpdate(jobID string, status jobs.Status, progress float64) Notification {
	return Notification{Type: JobStatusUpdate, JobID: jobID, Status: status, Progress: progress}
}

// LogEntry builds a job_log_entry notification
func LogEntry(jobID, level, message string) Notification {
	return Notification{Type: JobLogEntry, JobID: jobID, Level: level, Message: message}
}

// Completed builds a job_completed notification
func Completed(jobID, videoURL string, duration float64) Notification {
	return Notification{Type: JobCompleted, JobID: jobID, VideoURL: videoURL, Duration: duration}
}

// Failed builds a job_failed notification
func Failed(jobID, errorMessage string) Notification {
	return Notification{Type: JobFailed, JobID: jobID, ErrorMessage: errorMessage}
}

// At returns a copy of the notification stamped with t
func (n Notification) At(t time.Time) Notification {
	n.Time = t
	return n
}

// String returns a human-readable representation of the notification
func (n Notification) String() string {
	var parts []string
	parts = append(parts, fmt.Sprintf("[%s]", n.Type))

	if n.JobID != "" {
		parts = append(parts, n.JobID)
	}

	switch n.Type {
	case JobStatusUpdate:
		parts = append(parts, fmt.Sprintf("status=%s progress=%.0f", n.Status, n.Progress))
	case JobLogEntry:
		if n.Level != "" {
			parts = append(parts, "level="+n.Level)
		}
		parts = append(parts, fmt.Sprintf("%q", n.Message))
	case JobCompleted:
		parts = append(parts, "video="+n.VideoURL)
	case JobFailed:
		parts = append(parts, fmt.Sprintf("error=%q", n.ErrorMessage))
	case QueueUpdated:
		if n.Queue != nil {
			parts = append(parts, fmt.Sprintf("queued=%d processing=%d", n.Queue.Queued, n.Queue.Processing))
		}
	}

	return strings.Join(parts, " ")
}
