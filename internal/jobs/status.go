package jobs

import (
	"fmt"
	"strings"
)

// Status is a job lifecycle state as reported by the job service
type Status string

// Pipeline stages in nominal forward order
const (
	StatusQueued          Status = "queued"
	StatusPlanning        Status = "planning"
	StatusRetrieving      Status = "retrieving"
	StatusGeneratingAudio Status = "generating_audio"
	StatusRendering       Status = "rendering"
	StatusCompleted       Status = "completed"
)

// Terminal deviations, reachable from any non-terminal state
const (
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// pipeline lists the forward stages; index is the stage rank.
var pipeline = []Status{
	StatusQueued,
	StatusPlanning,
	StatusRetrieving,
	StatusGeneratingAudio,
	StatusRendering,
	StatusCompleted,
}

// AllStatuses returns every known status in display order.
func AllStatuses() []Status {
	out := make([]Status, 0, len(pipeline)+2)
	out = append(out, pipeline...)
	return append(out, StatusFailed, StatusCancelled)
}

// IsTerminal reports whether no further transition is permitted out of s.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Rank returns the position of s in the forward pipeline.
// Failed and cancelled are not pipeline stages and return -1.
func (s Status) Rank() int {
	for i, p := range pipeline {
		if p == s {
			return i
		}
	}
	return -1
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s.Rank() >= 0 || s == StatusFailed || s == StatusCancelled
}

// IsProcessing reports whether the job is past the queue but not yet terminal.
func (s Status) IsProcessing() bool {
	r := s.Rank()
	return r > 0 && !s.IsTerminal()
}

// legacyStatuses maps stage names still emitted by older pipeline workers.
var legacyStatuses = map[string]Status{
	"pending":          StatusQueued,
	"scene_planning":   StatusPlanning,
	"asset_retrieval":  StatusRetrieving,
	"tts_generation":   StatusGeneratingAudio,
	"audio_processing": StatusGeneratingAudio,
}

// ParseStatus converts user or wire input into a Status.
func ParseStatus(v string) (Status, error) {
	key := strings.ToLower(strings.TrimSpace(v))
	if s, ok := legacyStatuses[key]; ok {
		return s, nil
	}
	s := Status(key)
	if !s.Valid() {
		return "", fmt.Errorf("unknown job status %q", v)
	}
	return s, nil
}

// Priority is the requested scheduling priority of a job
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

var priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical}

// AllPriorities returns priorities from lowest to highest.
func AllPriorities() []Priority {
	out := make([]Priority, len(priorities))
	copy(out, priorities)
	return out
}

// Rank orders priorities from low (0) to critical (3); unknown values return -1.
func (p Priority) Rank() int {
	for i, v := range priorities {
		if v == p {
			return i
		}
	}
	return -1
}

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	return p.Rank() >= 0
}

// ParsePriority converts user or wire input into a Priority.
func ParsePriority(v string) (Priority, error) {
	p := Priority(strings.ToLower(strings.TrimSpace(v)))
	if !p.Valid() {
		return "", fmt.Errorf("unknown priority %q", v)
	}
	return p, nil
}
