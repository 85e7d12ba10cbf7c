package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/RevCBH/reeldeck/internal/jobs"
)

// wireToJob converts a decoded wire job into the client model
func wireToJob(w wireJob) (jobs.Job, error) {
	j := jobs.Job{
		ID:           firstNonEmpty(w.ID, w.JobID),
		Prompt:       w.Prompt,
		Priority:     wireToPriority(w.Priority),
		ResultURL:    w.ResultURL,
		StoryboardID: w.StoryboardID,
		ErrorMessage: w.ErrorMessage,
	}
	if j.ID == "" {
		return jobs.Job{}, errors.New("job without id")
	}

	status, err := jobs.ParseStatus(firstNonEmpty(w.Status, "queued"))
	if err != nil {
		return jobs.Job{}, fmt.Errorf("job %s: %w", j.ID, err)
	}
	j.Status = status

	j.CreatedAt, _ = jobs.ParseTime(firstNonEmpty(w.CreatedAt, w.CreatedAtSnake))
	j.UpdatedAt, _ = jobs.ParseTime(firstNonEmpty(w.UpdatedAt, w.UpdatedAtSnake))
	if w.Duration != nil {
		j.Duration = *w.Duration
	}

	completedAt := w.CompletedAt
	j.Progress.CurrentStage = status
	switch p := strings.TrimSpace(string(w.Progress)); {
	case strings.HasPrefix(p, "{"):
		var wp wireProgress
		if err := json.Unmarshal(w.Progress, &wp); err != nil {
			return jobs.Job{}, fmt.Errorf("job %s progress: %w", j.ID, err)
		}
		if stage, err := jobs.ParseStatus(wp.CurrentStage); err == nil {
			j.Progress.CurrentStage = stage
		}
		j.Progress.Percent = jobs.ClampPercent(wp.Progress)
		j.Progress.StartedAt, _ = jobs.ParseTime(wp.StartedAt)
		j.Progress.EstimatedRemaining = wp.EstimatedTimeRemaining
		j.Progress.Logs = wp.Logs
		completedAt = firstNonEmpty(completedAt, wp.CompletedAt)
	case p != "" && p != "null":
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return jobs.Job{}, fmt.Errorf("job %s progress: %w", j.ID, err)
		}
		j.Progress.Percent = jobs.ClampPercent(v)
	case w.OverallProgress != nil:
		j.Progress.Percent = jobs.ClampPercent(*w.OverallProgress)
	}
	if j.Progress.EstimatedRemaining == nil && w.EstimatedSnake != nil {
		v := *w.EstimatedSnake
		j.Progress.EstimatedRemaining = &v
	}

	if ts, ok := jobs.ParseTime(completedAt); ok {
		j.CompletedAt = &ts
	}
	return j, nil
}

// wireToPriority accepts the named priorities or the service's legacy 1-10 scale.
func wireToPriority(raw json.RawMessage) jobs.Priority {
	v := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if v == "" || v == "null" {
		return jobs.PriorityMedium
	}
	if p, err := jobs.ParsePriority(v); err == nil {
		return p
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return jobs.PriorityMedium
	}
	switch {
	case n >= 9:
		return jobs.PriorityCritical
	case n >= 7:
		return jobs.PriorityHigh
	case n >= 4:
		return jobs.PriorityMedium
	}
	return jobs.PriorityLow
}

// wireToWindow converts a list response. The request parameters fill in
// whatever the server leaves out.
func wireToWindow(w wireWindow, f jobs.Filters, p jobs.Pagination) (*jobs.WindowResponse, error) {
	list := make([]jobs.Job, 0, len(w.Jobs))
	for _, wj := range w.Jobs {
		j, err := wireToJob(wj)
		if err != nil {
			return nil, err
		}
		list = append(list, j)
	}

	win := jobs.Window{
		Jobs:     list,
		Total:    len(list),
		PageSize: p.Limit,
		Filters:  f.Clone(),
	}
	if w.Pagination != nil {
		win.Total = w.Pagination.Total
		win.Pages = w.Pagination.Pages
		win.CurrentPage = w.Pagination.Page
		if w.Pagination.Limit > 0 {
			win.PageSize = w.Pagination.Limit
		}
	}
	if w.Total != nil {
		win.Total = *w.Total
	}
	if w.Pages != nil {
		win.Pages = *w.Pages
	}
	if w.CurrentPage != nil {
		win.CurrentPage = *w.CurrentPage
	}
	if w.PageSize != nil && *w.PageSize > 0 {
		win.PageSize = *w.PageSize
	}
	if win.PageSize < 1 {
		win.PageSize = max(len(list), 1)
	}
	if win.CurrentPage < 1 {
		win.CurrentPage = p.Offset/win.PageSize + 1
	}
	if win.Pages < 1 && win.Total > 0 {
		win.Pages = (win.Total + win.PageSize - 1) / win.PageSize
	}

	return &jobs.WindowResponse{Window: win, Summary: wireToSummary(w.Summary)}, nil
}

func wireToSummary(w wireSummary) jobs.Summary {
	s := jobs.Summary{
		Total:      w.Total,
		Queued:     w.Queued,
		Processing: w.Processing,
		Completed:  w.Completed,
		Failed:     w.Failed,
	}
	if w.TotalJobs != nil {
		s.Total = *w.TotalJobs
	}
	if w.Pending != nil {
		s.Queued = *w.Pending
	}
	if w.InProgress != nil {
		s.Processing = *w.InProgress
	}
	return s
}

func wireToResult(w wireResult, id string) (*jobs.Result, error) {
	r := &jobs.Result{
		JobID:    firstNonEmpty(w.JobID, w.JobIDSnake, id),
		VideoURL: firstNonEmpty(w.VideoURL, w.VideoURLSnake),
		Duration: w.Duration,
		FileSize: w.FileSize,
		Metadata: w.Metadata,
		Status:   jobs.StatusCompleted,
	}
	if w.Status != "" {
		s, err := jobs.ParseStatus(w.Status)
		if err != nil {
			return nil, fmt.Errorf("result %s: %w", r.JobID, err)
		}
		r.Status = s
	}
	return r, nil
}

func wireToStoryboard(w wireStoryboard) *jobs.Storyboard {
	sb := &jobs.Storyboard{
		ID:          w.ID,
		Duration:    w.Duration,
		AspectRatio: w.AspectRatio,
		Scenes:      make([]jobs.Scene, len(w.Scenes)),
	}
	sb.GeneratedAt, _ = jobs.ParseTime(w.GeneratedAt)
	for i, s := range w.Scenes {
		sb.Scenes[i] = jobs.Scene{
			ID:          s.ID,
			Description: s.Description,
			Duration:    s.Duration,
			Order:       s.Order,
			Start:       s.Timestamps.Start,
			End:         s.Timestamps.End,
		}
	}
	return sb
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
