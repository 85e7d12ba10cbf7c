package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/RevCBH/reeldeck/internal/coordinator"
	"github.com/RevCBH/reeldeck/internal/jobs"
)

// View implements tea.Model
func (m *Model) View() string {
	if m.Done || m.Quitting {
		return ""
	}

	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderSummary())
	b.WriteString("\n\n")

	if m.Detail != "" {
		b.WriteString(m.renderDetail())
	} else {
		b.WriteString(m.renderList())
	}

	if msg := m.State.ErrorMessage(); msg != "" {
		b.WriteString(m.Styles.Banner.Render("  ! " + msg))
		b.WriteString("\n")
	}
	if m.Flash != "" {
		b.WriteString(m.Styles.Flash.Render("  " + m.Flash))
		b.WriteString("\n")
	}

	if m.ShowLogs {
		b.WriteString(m.renderLogs())
	}

	b.WriteString(m.renderFooter())
	return b.String()
}

// renderHeader renders the title line with timer and connection mode
func (m *Model) renderHeader() string {
	elapsed := time.Since(m.StartTime).Round(time.Second)
	timer := fmt.Sprintf("[%s]", formatDuration(elapsed))

	mode := m.Styles.ModeLive.Render(IconActive + " live")
	if m.Mode == coordinator.ModePolling {
		mode = m.Styles.ModePoll.Render(IconQueued + " polling")
	}

	line := fmt.Sprintf("%s  %s  %s",
		m.Styles.Title.Render("Reeldeck"),
		m.Styles.Timer.Render(timer),
		mode,
	)
	if m.State.Loading {
		line += "  " + m.Styles.Loading.Render("loading...")
	}
	return line
}

// renderSummary renders global counts and the latest pushed queue depth
func (m *Model) renderSummary() string {
	s := m.State.Summary
	text := fmt.Sprintf("  %s jobs | %d queued | %d processing | %d completed | %d failed",
		humanize.Comma(int64(s.Total)), s.Queued, s.Processing, s.Completed, s.Failed)
	if q := m.State.Queue; q != nil {
		text += fmt.Sprintf(" | live queue %d/%d", q.Queued, q.Processing)
	}
	return m.Styles.Summary.Render(text)
}

func (m *Model) renderList() string {
	var b strings.Builder

	w := m.State.Window
	filter := "all"
	if len(w.Filters.Statuses) > 0 {
		parts := make([]string, len(w.Filters.Statuses))
		for i, s := range w.Filters.Statuses {
			parts[i] = string(s)
		}
		filter = strings.Join(parts, ",")
	}
	pages := max(w.Pages, 1)
	b.WriteString(m.Styles.FilterBar.Render(
		fmt.Sprintf("  Status: %s  Page %d/%d  (%s matching)", filter, max(w.CurrentPage, 1), pages, humanize.Comma(int64(w.Total)))))
	b.WriteString("\n\n")

	if !m.State.Loaded {
		b.WriteString("  Loading jobs...\n\n")
		return b.String()
	}
	if len(w.Jobs) == 0 {
		b.WriteString("  No jobs found\n\n")
		return b.String()
	}

	for i, j := range w.Jobs {
		b.WriteString(m.renderRow(j, i == m.Cursor))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	return b.String()
}

// renderRow renders one job line: › ● id status [████░░░░] 40% priority prompt
func (m *Model) renderRow(j jobs.Job, selected bool) string {
	cursor := " "
	if selected {
		cursor = m.Styles.Cursor.Render(IconCursor)
	}
	icon, style := m.Styles.statusStyle(j.Status)

	row := fmt.Sprintf(" %s %s %-10s %s %s %3.0f%% %-8s %s",
		cursor,
		style.Render(icon),
		m.Styles.JobID.Render(shorten(j.ID, 10)),
		style.Render(fmt.Sprintf("%-16s", j.Status)),
		m.renderProgressBar(j.Progress.Percent, 16),
		j.Progress.Percent,
		j.Priority,
		m.Styles.Prompt.Render(shorten(j.Prompt, 40)),
	)
	if selected {
		return m.Styles.Selected.Render(row)
	}
	return row
}

func (m *Model) renderDetail() string {
	var b strings.Builder

	j, ok := m.State.Job(m.Detail)
	if !ok {
		fmt.Fprintf(&b, "  %s %s\n", m.Styles.JobID.Render(m.Detail), m.Styles.Loading.Render("not on the current page; showing live events only"))
	} else {
		icon, style := m.Styles.statusStyle(j.Status)
		fmt.Fprintf(&b, "  %s %s\n\n", style.Render(icon), m.Styles.JobID.Render(j.ID))
		m.field(&b, "Prompt", j.Prompt)
		m.field(&b, "Status", style.Render(string(j.Status)))
		m.field(&b, "Progress", fmt.Sprintf("%s %.0f%%", m.renderProgressBar(j.Progress.Percent, 30), j.Progress.Percent))
		m.field(&b, "Priority", string(j.Priority))
		if !j.CreatedAt.IsZero() {
			m.field(&b, "Created", humanize.Time(j.CreatedAt))
		}
		if j.Progress.EstimatedRemaining != nil {
			m.field(&b, "Remaining", formatDuration(time.Duration(*j.Progress.EstimatedRemaining*float64(time.Second))))
		}
		if j.ResultURL != "" {
			m.field(&b, "Video", j.ResultURL)
		}
		if j.ErrorMessage != "" {
			m.field(&b, "Error", m.Styles.StatusFailed.Render(j.ErrorMessage))
		}

		if logs := j.Progress.Logs; len(logs) > 0 {
			b.WriteString("\n")
			b.WriteString(m.Styles.LogTitle.Render("  Job log"))
			b.WriteString("\n")
			for _, line := range logs[max(len(logs)-8, 0):] {
				b.WriteString(m.Styles.LogLine.Render("    " + line))
				b.WriteString("\n")
			}
		}
	}

	b.WriteString("\n")
	b.WriteString(m.Styles.LogTitle.Render("  Live events"))
	b.WriteString("\n")
	if len(m.Events) == 0 {
		b.WriteString(m.Styles.Event.Render("    waiting for notifications"))
		b.WriteString("\n")
	}
	for _, e := range m.Events {
		b.WriteString(m.Styles.Event.Render("    " + e))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	return b.String()
}

func (m *Model) field(b *strings.Builder, label, value string) {
	fmt.Fprintf(b, "  %s %s\n", m.Styles.Label.Render(label), value)
}

// renderProgressBar creates a progress bar of the given width
func (m *Model) renderProgressBar(percent float64, width int) string {
	filled := min(int(percent/100*float64(width)), width)
	filled = max(filled, 0)

	return "[" +
		m.Styles.ProgressFilled.Render(strings.Repeat("█", filled)) +
		m.Styles.ProgressEmpty.Render(strings.Repeat("░", width-filled)) +
		"]"
}

// renderLogs renders the tail of the application log
func (m *Model) renderLogs() string {
	var b strings.Builder
	b.WriteString(m.Styles.LogTitle.Render("  Logs"))
	b.WriteString("\n")

	n := 8
	if m.Height > 0 {
		n = max(m.Height/4, 3)
	}
	for _, line := range m.LogLines[max(len(m.LogLines)-n, 0):] {
		b.WriteString(m.Styles.LogLine.Render("  " + line))
		b.WriteString("\n")
	}
	return b.String()
}

// renderFooter renders the help text
func (m *Model) renderFooter() string {
	k := m.Styles.FooterKey.Render
	var help string
	if m.Detail != "" {
		help = fmt.Sprintf("  %s back  %s cancel  %s refresh  %s logs  %s quit", k("esc"), k("c"), k("r"), k("L"), k("q"))
	} else {
		help = fmt.Sprintf("  %s move  %s page  %s filter  %s open  %s cancel  %s refresh  %s logs  %s quit",
			k("↑/↓"), k("←/→"), k("f"), k("enter"), k("c"), k("r"), k("L"), k("q"))
	}
	return m.Styles.Footer.Render(help)
}

// formatDuration formats a duration as HH:MM:SS
func formatDuration(d time.Duration) string {
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

func shorten(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}
