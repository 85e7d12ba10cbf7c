package client

import (
	"encoding/json"

	"github.com/RevCBH/reeldeck/internal/jobs"
)

// SubmitRequest contains parameters for a new video generation job
type SubmitRequest struct {
	Prompt   string         `json:"prompt"`
	Priority jobs.Priority  `json:"priority,omitempty"`
	Style    string         `json:"style,omitempty"`
	Duration float64        `json:"duration,omitempty"` // Target length in seconds
	VoiceID  string         `json:"voiceId,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// HealthInfo contains the service health check response
type HealthInfo struct {
	Healthy bool   `json:"healthy"`
	Status  string `json:"status"`
	Service string `json:"service,omitempty"`
}

// envelope is the {success, data, error, message} wrapper some endpoints use.
// Error is either a string or an {code, message} object.
type envelope struct {
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   json.RawMessage `json:"error"`
	Message string          `json:"message"`
}

type envelopeError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// wireJob accepts both the camelCase job shape and the snake_case keys
// the list endpoint falls back to.
type wireJob struct {
	ID              string          `json:"id"`
	JobID           string          `json:"job_id"`
	Prompt          string          `json:"prompt"`
	Priority        json.RawMessage `json:"priority"`
	Status          string          `json:"status"`
	Progress        json.RawMessage `json:"progress"`
	OverallProgress *float64        `json:"overall_progress"`
	CreatedAt       string          `json:"createdAt"`
	CreatedAtSnake  string          `json:"created_at"`
	UpdatedAt       string          `json:"updatedAt"`
	UpdatedAtSnake  string          `json:"updated_at"`
	CompletedAt     string          `json:"completedAt"`
	Duration        *float64        `json:"duration"`
	ResultURL       string          `json:"resultUrl"`
	StoryboardID    string          `json:"storyboardId"`
	ErrorMessage    string          `json:"errorMessage"`
	EstimatedSnake  *float64        `json:"estimated_time_remaining"`
}

type wireProgress struct {
	CurrentStage           string   `json:"currentStage"`
	Progress               float64  `json:"progress"`
	StartedAt              string   `json:"startedAt"`
	CompletedAt            string   `json:"completedAt"`
	EstimatedTimeRemaining *float64 `json:"estimatedTimeRemaining"`
	Logs                   []string `json:"logs"`
}

type wirePagination struct {
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Page   int `json:"page"`
	Pages  int `json:"pages"`
}

type wireSummary struct {
	Total      int  `json:"total"`
	Queued     int  `json:"queued"`
	Processing int  `json:"processing"`
	Completed  int  `json:"completed"`
	Failed     int  `json:"failed"`
	TotalJobs  *int `json:"total_jobs"`
	Pending    *int `json:"pending"`
	InProgress *int `json:"in_progress"`
}

type wireWindow struct {
	Jobs        []wireJob       `json:"jobs"`
	Total       *int            `json:"total"`
	Pages       *int            `json:"pages"`
	CurrentPage *int            `json:"currentPage"`
	PageSize    *int            `json:"pageSize"`
	Pagination  *wirePagination `json:"pagination"`
	Summary     wireSummary     `json:"summary"`
}

type wireSubmitResponse struct {
	JobID      string `json:"jobId"`
	JobIDSnake string `json:"job_id"`
	ID         string `json:"id"`
}

type wireResult struct {
	JobID         string         `json:"jobId"`
	JobIDSnake    string         `json:"job_id"`
	Status        string         `json:"status"`
	VideoURL      string         `json:"videoUrl"`
	VideoURLSnake string         `json:"video_url"`
	Duration      float64        `json:"duration"`
	FileSize      int64          `json:"fileSize"`
	Metadata      map[string]any `json:"metadata"`
}

type wireScene struct {
	ID          string  `json:"id"`
	Description string  `json:"description"`
	Duration    float64 `json:"duration"`
	Order       int     `json:"order"`
	Timestamps  struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
	} `json:"timestamps"`
}

type wireStoryboard struct {
	ID          string      `json:"id"`
	Scenes      []wireScene `json:"scenes"`
	Duration    float64     `json:"duration"`
	AspectRatio string      `json:"aspectRatio"`
	GeneratedAt string      `json:"generatedAt"`
}
