package coordinator

import (
	"fmt"

	"github.com/RevCBH/reeldeck/internal/jobs"
)

// DefaultPageSize is the number of jobs per page when none is configured
const DefaultPageSize = 10

// Params are the desired fetch parameters. Every fetch is derived from
// one consistent Params value.
type Params struct {
	Page      int            `json:"page"`
	PageSize  int            `json:"pageSize"`
	Filters   jobs.Filters   `json:"filters"`
	SortBy    string         `json:"sortBy,omitempty"`
	SortOrder jobs.SortOrder `json:"sortOrder,omitempty"`
}

// Pagination converts the page-based params into a limit/offset request
func (p Params) Pagination() jobs.Pagination {
	pg := jobs.PageOf(p.Page, p.PageSize)
	pg.SortBy = p.SortBy
	pg.SortOrder = p.SortOrder
	return pg
}

func (p Params) clone() Params {
	c := p
	c.Filters = p.Filters.Clone()
	return c
}

func validateSortOrder(o jobs.SortOrder) error {
	switch o {
	case "", jobs.SortAsc, jobs.SortDesc:
		return nil
	}
	return fmt.Errorf("unknown sort order %q", o)
}

func validateFilters(f jobs.Filters) error {
	for _, s := range f.Statuses {
		if !s.Valid() {
			return fmt.Errorf("unknown status filter %q", s)
		}
	}
	for _, p := range f.Priorities {
		if !p.Valid() {
			return fmt.Errorf("unknown priority filter %q", p)
		}
	}
	if !f.DateRange.Valid() {
		return fmt.Errorf("unknown date range %q", f.DateRange)
	}
	return nil
}
