package cli

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/RevCBH/reeldeck/internal/jobs"
)

func TestRenderProgressBar(t *testing.T) {
	tests := []struct {
		percent float64
		want    string
	}{
		{0, "[░░░░░░░░░░]   0%"},
		{50, "[█████░░░░░]  50%"},
		{100, "[██████████] 100%"},
		{140, "[██████████] 100%"},
		{-5, "[░░░░░░░░░░]   0%"},
	}
	for _, tt := range tests {
		if got := RenderProgressBar(tt.percent, 10); got != tt.want {
			t.Errorf("RenderProgressBar(%v) = %q, want %q", tt.percent, got, tt.want)
		}
	}
}

func TestStatusSymbol(t *testing.T) {
	if StatusSymbol(jobs.StatusCompleted) != "✓" {
		t.Error("completed should be ✓")
	}
	if StatusSymbol(jobs.StatusRendering) != "●" {
		t.Error("rendering should be ●")
	}
	if StatusSymbol(jobs.Status("mystery")) != "?" {
		t.Error("unknown should be ?")
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate("a\n  long   prompt here", 10); got != "a long pr…" {
		t.Errorf("truncate = %q", got)
	}
}

func TestFormatSeconds(t *testing.T) {
	if got := formatSeconds(0); got != "-" {
		t.Errorf("formatSeconds(0) = %q", got)
	}
	if got := formatSeconds(12.5); got != "12.5s" {
		t.Errorf("formatSeconds(12.5) = %q", got)
	}
}

func TestDisplayWindow(t *testing.T) {
	resp := &jobs.WindowResponse{
		Window: jobs.Window{
			Jobs: []jobs.Job{{
				ID:        "A",
				Prompt:    "sunset over ocean",
				Priority:  jobs.PriorityHigh,
				Status:    jobs.StatusRendering,
				Progress:  jobs.Progress{Percent: 60},
				CreatedAt: time.Now().Add(-time.Hour),
			}},
			Total:       1234,
			Pages:       124,
			CurrentPage: 3,
		},
		Summary: jobs.Summary{Queued: 4, Processing: 2, Completed: 1200, Failed: 28},
	}

	var buf bytes.Buffer
	displayWindow(&buf, resp)
	out := buf.String()

	for _, want := range []string{"STATUS", "sunset over ocean", "60%", "1 hour ago", "Page 3/124", "1,234 jobs", "28 failed"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestDisplayStoryboard(t *testing.T) {
	sb := &jobs.Storyboard{
		ID:          "sb1",
		AspectRatio: "16:9",
		Duration:    12,
		Scenes: []jobs.Scene{
			{Order: 1, Start: 0, Duration: 6, Description: "waves"},
			{Order: 2, Start: 6, Duration: 6, Description: "sun dips below horizon"},
		},
	}

	var buf bytes.Buffer
	displayStoryboard(&buf, sb)
	out := buf.String()

	for _, want := range []string{"Storyboard sb1", "2 scenes", "16:9", "waves", "sun dips"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
