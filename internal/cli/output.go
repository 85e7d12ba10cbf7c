package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/RevCBH/reeldeck/internal/jobs"
)

// forcedJSON reports whether JSON output was explicitly requested
func (a *App) forcedJSON() bool {
	return a.jsonOut || a.format == "json"
}

// outputJSON decides the format for cmd's output: explicit flags win,
// otherwise JSON whenever stdout is not a terminal.
func (a *App) outputJSON(cmd *cobra.Command) bool {
	if a.forcedJSON() {
		return true
	}
	if a.format == "table" {
		return false
	}
	return !isTerminal(cmd.OutOrStdout())
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// RenderProgressBar renders a progress bar for a 0-100 percentage
func RenderProgressBar(percent float64, width int) string {
	percent = jobs.ClampPercent(percent)
	filled := int(percent / 100 * float64(width))
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return fmt.Sprintf("[%s] %3d%%", bar, int(percent))
}

// StatusSymbol returns a one-character marker for a job status
func StatusSymbol(s jobs.Status) string {
	switch {
	case s == jobs.StatusCompleted:
		return "✓"
	case s == jobs.StatusFailed:
		return "✗"
	case s == jobs.StatusCancelled:
		return "⊘"
	case s == jobs.StatusQueued:
		return "○"
	case s.IsProcessing():
		return "●"
	}
	return "?"
}

// truncate shortens s to n runes, marking the cut with an ellipsis
func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}

func relTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.Time(t)
}

func formatSeconds(sec float64) string {
	if sec <= 0 {
		return "-"
	}
	return (time.Duration(sec * float64(time.Second))).Round(100 * time.Millisecond).String()
}

// displayWindow renders a page of jobs in tabular format using tabwriter.
// Columns: ID, Status, Progress, Priority, Created, Prompt
func displayWindow(out io.Writer, resp *jobs.WindowResponse) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	fmt.Fprintln(w, "ID\tSTATUS\tPROGRESS\tPRIORITY\tCREATED\tPROMPT")
	for _, j := range resp.Window.Jobs {
		fmt.Fprintf(w, "%s\t%s %s\t%s\t%s\t%s\t%s\n",
			j.ID,
			StatusSymbol(j.Status), j.Status,
			RenderProgressBar(j.Progress.Percent, 10),
			j.Priority,
			relTime(j.CreatedAt),
			truncate(j.Prompt, 40),
		)
	}
	w.Flush()

	win := resp.Window
	if len(win.Jobs) == 0 {
		fmt.Fprintln(out, "No jobs found")
	}
	pages := win.Pages
	if pages < 1 {
		pages = 1
	}
	s := resp.Summary
	fmt.Fprintf(out, "\nPage %d/%d · %s jobs · %d queued · %d processing · %d completed · %d failed\n",
		win.CurrentPage, pages, humanize.Comma(int64(win.Total)),
		s.Queued, s.Processing, s.Completed, s.Failed)
}

// displayJob renders one job's details.
func displayJob(out io.Writer, j *jobs.Job) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID:\t%s\n", j.ID)
	fmt.Fprintf(w, "Status:\t%s %s\n", StatusSymbol(j.Status), j.Status)
	fmt.Fprintf(w, "Stage:\t%s\n", j.Progress.CurrentStage)
	fmt.Fprintf(w, "Progress:\t%s\n", RenderProgressBar(j.Progress.Percent, 20))
	fmt.Fprintf(w, "Priority:\t%s\n", j.Priority)
	fmt.Fprintf(w, "Prompt:\t%s\n", j.Prompt)
	fmt.Fprintf(w, "Created:\t%s\n", relTime(j.CreatedAt))
	if !j.Progress.StartedAt.IsZero() {
		fmt.Fprintf(w, "Started:\t%s\n", relTime(j.Progress.StartedAt))
	}
	if j.Progress.EstimatedRemaining != nil {
		fmt.Fprintf(w, "Remaining:\t~%s\n", formatSeconds(*j.Progress.EstimatedRemaining))
	}
	if j.CompletedAt != nil {
		fmt.Fprintf(w, "Finished:\t%s\n", relTime(*j.CompletedAt))
	}
	if j.Duration > 0 {
		fmt.Fprintf(w, "Duration:\t%s\n", formatSeconds(j.Duration))
	}
	if j.ResultURL != "" {
		fmt.Fprintf(w, "Video:\t%s\n", j.ResultURL)
	}
	if j.ErrorMessage != "" {
		fmt.Fprintf(w, "Error:\t%s\n", j.ErrorMessage)
	}
	w.Flush()

	if len(j.Progress.Logs) > 0 {
		fmt.Fprintln(out, "\nLogs:")
		for _, l := range j.Progress.Logs {
			fmt.Fprintf(out, "  %s\n", l)
		}
	}
}

// displayResult renders a finished video.
func displayResult(out io.Writer, r *jobs.Result) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Job:\t%s\n", r.JobID)
	fmt.Fprintf(w, "Status:\t%s\n", r.Status)
	fmt.Fprintf(w, "Video:\t%s\n", r.VideoURL)
	fmt.Fprintf(w, "Duration:\t%s\n", formatSeconds(r.Duration))
	if r.FileSize > 0 {
		fmt.Fprintf(w, "Size:\t%s\n", humanize.Bytes(uint64(r.FileSize)))
	}
	w.Flush()
}

// displayStoryboard renders a storyboard's scene list.
func displayStoryboard(out io.Writer, sb *jobs.Storyboard) {
	fmt.Fprintf(out, "Storyboard %s · %d scenes · %s", sb.ID, len(sb.Scenes), formatSeconds(sb.Duration))
	if sb.AspectRatio != "" {
		fmt.Fprintf(out, " · %s", sb.AspectRatio)
	}
	fmt.Fprintln(out)
	if len(sb.Scenes) > 0 {
		fmt.Fprintln(out)
		displayScenes(out, sb.Scenes)
	}
}

func displayScenes(out io.Writer, scenes []jobs.Scene) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tSTART\tDURATION\tDESCRIPTION")
	for _, s := range scenes {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", s.Order, formatSeconds(s.Start), formatSeconds(s.Duration), truncate(s.Description, 60))
	}
	w.Flush()
}
