package jobs

import (
	"slices"
	"time"
)

// DateRange restricts a listing to jobs created within a recent period
type DateRange string

const (
	DateRangeToday DateRange = "today"
	DateRangeWeek  DateRange = "week"
	DateRangeMonth DateRange = "month"
	DateRangeAll   DateRange = "all"
)

// Valid reports whether r is empty or a known range.
func (r DateRange) Valid() bool {
	switch r {
	case "", DateRangeToday, DateRangeWeek, DateRangeMonth, DateRangeAll:
		return true
	}
	return false
}

// Filters narrows a job listing server-side. Every field is optional
// and fields combine independently.
type Filters struct {
	Statuses   []Status   `json:"status,omitempty"`
	Priorities []Priority `json:"priority,omitempty"`
	DateRange  DateRange  `json:"dateRange,omitempty"`
	Search     string     `json:"search,omitempty"`
}

// IsZero reports whether no filter is active.
func (f Filters) IsZero() bool {
	return len(f.Statuses) == 0 && len(f.Priorities) == 0 &&
		(f.DateRange == "" || f.DateRange == DateRangeAll) && f.Search == ""
}

// Equal compares two filter sets field by field.
func (f Filters) Equal(o Filters) bool {
	return slices.Equal(f.Statuses, o.Statuses) &&
		slices.Equal(f.Priorities, o.Priorities) &&
		f.DateRange == o.DateRange &&
		f.Search == o.Search
}

// Clone returns a copy that does not share slices with f.
func (f Filters) Clone() Filters {
	c := f
	c.Statuses = slices.Clone(f.Statuses)
	c.Priorities = slices.Clone(f.Priorities)
	return c
}

// SortOrder is the direction of a sorted listing
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// Pagination selects a slice of the server-filtered result set.
type Pagination struct {
	Limit     int       `json:"limit"`
	Offset    int       `json:"offset"`
	SortBy    string    `json:"sortBy,omitempty"`
	SortOrder SortOrder `json:"sortOrder,omitempty"`
}

// PageOf converts a 1-indexed page number and page size into a Pagination.
func PageOf(page, size int) Pagination {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 1
	}
	return Pagination{Limit: size, Offset: (page - 1) * size}
}

// Summary holds global job counts reported alongside a listing.
// It describes the whole job population, not the current page.
type Summary struct {
	Total      int `json:"total"`
	Queued     int `json:"queued"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
}

// Window is the page of jobs currently presented, with its metadata.
type Window struct {
	Jobs        []Job   `json:"jobs"`
	Total       int     `json:"total"`
	Pages       int     `json:"pages"`
	CurrentPage int     `json:"currentPage"`
	PageSize    int     `json:"pageSize"`
	Filters     Filters `json:"filters"`
}

// Clone deep-copies the window including every job.
func (w Window) Clone() Window {
	c := w
	c.Filters = w.Filters.Clone()
	c.Jobs = make([]Job, len(w.Jobs))
	for i, j := range w.Jobs {
		c.Jobs[i] = j.Clone()
	}
	return c
}

// IndexOf returns the position of the job with id, or -1.
func (w Window) IndexOf(id string) int {
	for i := range w.Jobs {
		if w.Jobs[i].ID == id {
			return i
		}
	}
	return -1
}

// WindowResponse is one authoritative listing result: a window plus the
// global summary that came with it.
type WindowResponse struct {
	Window  Window  `json:"window"`
	Summary Summary `json:"summary"`
}

// QueueStats is the most recent queue depth pushed by the service.
type QueueStats struct {
	Queued     int       `json:"queued"`
	Processing int       `json:"processing"`
	At         time.Time `json:"at"`
}
