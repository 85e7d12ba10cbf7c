package cli

import (
	"slices"
	"testing"

	"github.com/RevCBH/reeldeck/internal/jobs"
)

func TestParseFilters(t *testing.T) {
	f, err := parseFilters("rendering, failed", "high", "Week", "  ocean ")
	if err != nil {
		t.Fatalf("parseFilters: %v", err)
	}
	if !slices.Equal(f.Statuses, []jobs.Status{jobs.StatusRendering, jobs.StatusFailed}) {
		t.Errorf("Statuses = %v", f.Statuses)
	}
	if !slices.Equal(f.Priorities, []jobs.Priority{jobs.PriorityHigh}) {
		t.Errorf("Priorities = %v", f.Priorities)
	}
	if f.DateRange != jobs.DateRangeWeek {
		t.Errorf("DateRange = %q, want week", f.DateRange)
	}
	if f.Search != "ocean" {
		t.Errorf("Search = %q, want ocean", f.Search)
	}
}

func TestParseFilters_Empty(t *testing.T) {
	f, err := parseFilters("", "", "", "")
	if err != nil {
		t.Fatalf("parseFilters: %v", err)
	}
	if !f.IsZero() {
		t.Errorf("expected zero filters, got %+v", f)
	}
}

func TestParseFilters_Errors(t *testing.T) {
	tests := []struct {
		name                              string
		status, priority, dateRange, text string
	}{
		{name: "status", status: "exploded"},
		{name: "priority", priority: "urgent"},
		{name: "date range", dateRange: "decade"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parseFilters(tt.status, tt.priority, tt.dateRange, tt.text); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestJobsOptions_Params(t *testing.T) {
	opts := JobsOptions{Status: "queued", Page: 3, PageSize: 20, SortBy: "createdAt", SortOrder: "DESC"}
	p, err := opts.params()
	if err != nil {
		t.Fatalf("params: %v", err)
	}

	pg := p.Pagination()
	if pg.Limit != 20 || pg.Offset != 40 {
		t.Errorf("pagination = %+v, want limit 20 offset 40", pg)
	}
	if pg.SortBy != "createdAt" || pg.SortOrder != jobs.SortDesc {
		t.Errorf("sort = %q %q", pg.SortBy, pg.SortOrder)
	}
}

func TestJobsOptions_ParamsRejectsBadPaging(t *testing.T) {
	for _, opts := range []JobsOptions{
		{Page: 0, PageSize: 10},
		{Page: 1, PageSize: 0},
		{Page: 1, PageSize: 10, SortOrder: "sideways"},
	} {
		if _, err := opts.params(); err == nil {
			t.Errorf("params(%+v): expected error", opts)
		}
	}
}

func TestParseList(t *testing.T) {
	got := parseList(" a, ,b ,c,")
	if !slices.Equal(got, []string{"a", "b", "c"}) {
		t.Errorf("parseList = %v", got)
	}
}
