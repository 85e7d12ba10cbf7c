// Package jobs holds the client-side model of video generation jobs.
package jobs

import "time"

// Job is a single video generation request as known to the client.
// Jobs are created server-side; the client only ever receives them.
type Job struct {
	ID           string     `json:"id"`
	Prompt       string     `json:"prompt"`
	Priority     Priority   `json:"priority"`
	Status       Status     `json:"status"`
	Progress     Progress   `json:"progress"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
	Duration     float64    `json:"duration,omitempty"`
	ResultURL    string     `json:"resultUrl,omitempty"`
	StoryboardID string     `json:"storyboardId,omitempty"`
	ErrorMessage string     `json:"errorMessage,omitempty"`
}

// Progress tracks a job's movement through the pipeline.
// Logs is append-only.
type Progress struct {
	CurrentStage       Status    `json:"currentStage"`
	Percent            float64   `json:"progress"`
	StartedAt          time.Time `json:"startedAt,omitempty"`
	EstimatedRemaining *float64  `json:"estimatedTimeRemaining,omitempty"`
	Logs               []string  `json:"logs,omitempty"`
}

// Clone returns a deep copy so callers cannot alias the log slice
// or completion timestamp of the original.
func (j Job) Clone() Job {
	c := j
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		c.CompletedAt = &t
	}
	if j.Progress.EstimatedRemaining != nil {
		v := *j.Progress.EstimatedRemaining
		c.Progress.EstimatedRemaining = &v
	}
	if j.Progress.Logs != nil {
		c.Progress.Logs = make([]string, len(j.Progress.Logs))
		copy(c.Progress.Logs, j.Progress.Logs)
	}
	return c
}

// ClampPercent bounds a progress percentage to [0,100].
func ClampPercent(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
