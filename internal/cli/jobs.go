package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/RevCBH/reeldeck/internal/coordinator"
	"github.com/RevCBH/reeldeck/internal/jobs"
)

// JobsOptions holds flags for the jobs command
type JobsOptions struct {
	Status    string
	Priority  string
	DateRange string
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// NewJobsCmd creates the 'jobs' command for listing jobs
func NewJobsCmd(a *App) *cobra.Command {
	var opts JobsOptions

	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List jobs",
		Long: `List one page of jobs from the job service.

Filters combine: --status and --priority take comma-separated values.
Valid statuses: queued, planning, retrieving, generating_audio, rendering,
completed, failed, cancelled. Valid priorities: low, medium, high, critical.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(cmd.Context()); err != nil {
				return err
			}
			if opts.PageSize == 0 {
				opts.PageSize = a.cfg.Dashboard.PageSize
			}

			params, err := opts.params()
			if err != nil {
				return err
			}

			resp, err := a.newClient().FetchWindow(cmd.Context(), params.Filters, params.Pagination())
			if err != nil {
				return err
			}

			if a.outputJSON(cmd) {
				return writeJSON(cmd.OutOrStdout(), resp)
			}
			displayWindow(cmd.OutOrStdout(), resp)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.Status, "status", "", "Filter by status (comma-separated)")
	f.StringVar(&opts.Priority, "priority", "", "Filter by priority (comma-separated)")
	f.StringVar(&opts.DateRange, "date-range", "", "Filter by creation date: today, week, month, all")
	f.StringVar(&opts.Search, "search", "", "Filter by prompt text")
	f.IntVar(&opts.Page, "page", 1, "Page number (1-indexed)")
	f.IntVar(&opts.PageSize, "page-size", 0, "Jobs per page (default from config)")
	f.StringVar(&opts.SortBy, "sort-by", "", "Sort field, e.g. createdAt")
	f.StringVar(&opts.SortOrder, "sort-order", "", "Sort direction: asc or desc")

	return cmd
}

// params validates the flags and converts them to fetch parameters.
func (o JobsOptions) params() (coordinator.Params, error) {
	filters, err := parseFilters(o.Status, o.Priority, o.DateRange, o.Search)
	if err != nil {
		return coordinator.Params{}, err
	}
	if o.Page < 1 {
		return coordinator.Params{}, fmt.Errorf("--page must be at least 1")
	}
	if o.PageSize < 1 {
		return coordinator.Params{}, fmt.Errorf("--page-size must be at least 1")
	}

	order := jobs.SortOrder(strings.ToLower(o.SortOrder))
	switch order {
	case "", jobs.SortAsc, jobs.SortDesc:
	default:
		return coordinator.Params{}, fmt.Errorf("--sort-order must be asc or desc, got %q", o.SortOrder)
	}

	return coordinator.Params{
		Page:      o.Page,
		PageSize:  o.PageSize,
		Filters:   filters,
		SortBy:    o.SortBy,
		SortOrder: order,
	}, nil
}

func parseFilters(status, priority, dateRange, search string) (jobs.Filters, error) {
	var f jobs.Filters
	for _, v := range parseList(status) {
		s, err := jobs.ParseStatus(v)
		if err != nil {
			return jobs.Filters{}, err
		}
		f.Statuses = append(f.Statuses, s)
	}
	for _, v := range parseList(priority) {
		p, err := jobs.ParsePriority(v)
		if err != nil {
			return jobs.Filters{}, err
		}
		f.Priorities = append(f.Priorities, p)
	}
	f.DateRange = jobs.DateRange(strings.ToLower(strings.TrimSpace(dateRange)))
	if !f.DateRange.Valid() {
		return jobs.Filters{}, fmt.Errorf("unknown date range %q (want today, week, month or all)", dateRange)
	}
	f.Search = strings.TrimSpace(search)
	return f, nil
}

// parseList splits comma-separated values and trims whitespace
func parseList(v string) []string {
	parts := strings.Split(v, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
