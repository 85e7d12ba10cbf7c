package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/RevCBH/reeldeck/internal/jobs"
)

// ErrUnknownEvent is returned when a frame names an event this client does not model.
var ErrUnknownEvent = errors.New("unknown event")

// wirePayload is the union of all inbound payload shapes.
// Field names follow the service's camelCase JSON.
type wirePayload struct {
	JobID        string   `json:"jobId"`
	Status       string   `json:"status"`
	Progress     *float64 `json:"progress"`
	Level        string   `json:"level"`
	Message      string   `json:"message"`
	VideoURL     string   `json:"videoUrl"`
	Duration     float64  `json:"duration"`
	ErrorMessage string   `json:"errorMessage"`
	Queued       *int     `json:"queued"`
	Processing   *int     `json:"processing"`
	Timestamp    string   `json:"timestamp"`
}

// Frame is the {"event": ..., "data": ...} envelope used by relayed events.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Decode parses the payload of a named push event into a Notification.
// received is used when the payload carries no usable timestamp.
func Decode(name string, data []byte, received time.Time) (Notification, error) {
	t := Type(name)
	switch t {
	case JobStatusUpdate, JobLogEntry, JobCompleted, JobFailed, QueueUpdated, Connected, Subscribed:
	default:
		return Notification{}, fmt.Errorf("%w: %q", ErrUnknownEvent, name)
	}

	var p wirePayload
	if len(data) > 0 && string(data) != "null" {
		if err := json.Unmarshal(data, &p); err != nil {
			return Notification{}, fmt.Errorf("decode %s payload: %w", name, err)
		}
	}

	n := Notification{
		Type:         t,
		Time:         parseTimestamp(p.Timestamp, received),
		JobID:        p.JobID,
		Level:        p.Level,
		Message:      p.Message,
		VideoURL:     p.VideoURL,
		Duration:     p.Duration,
		ErrorMessage: p.ErrorMessage,
	}

	switch t {
	case JobStatusUpdate:
		s, err := jobs.ParseStatus(p.Status)
		if err != nil {
			return Notification{}, fmt.Errorf("decode %s payload: %w", name, err)
		}
		n.Status = s
		if p.Progress != nil {
			n.Progress = jobs.ClampPercent(*p.Progress)
		}
	case QueueUpdated:
		q := &QueueCounts{}
		if p.Queued != nil {
			q.Queued = *p.Queued
		}
		if p.Processing != nil {
			q.Processing = *p.Processing
		}
		n.Queue = q
	}

	if t.IsJobEvent() && n.JobID == "" {
		return Notification{}, fmt.Errorf("decode %s payload: missing jobId", name)
	}

	return n, nil
}

// ParseFrame decodes a single {"event","data"} JSON frame.
func ParseFrame(line []byte, received time.Time) (Notification, error) {
	var f Frame
	if err := json.Unmarshal(line, &f); err != nil {
		return Notification{}, fmt.Errorf("invalid JSON: %w", err)
	}
	return Decode(f.Event, f.Data, received)
}

// ControlPayload builds the body of a subscribe_job/unsubscribe_job message.
func ControlPayload(jobID string) map[string]string {
	return map[string]string{"jobId": jobID}
}

func parseTimestamp(v string, fallback time.Time) time.Time {
	if ts, ok := jobs.ParseTime(v); ok {
		return ts
	}
	return fallback
}
