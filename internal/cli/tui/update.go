package tui

import (
	"context"
	"fmt"
	"slices"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/RevCBH/reeldeck/internal/client"
	"github.com/RevCBH/reeldeck/internal/jobs"
)

// Update implements tea.Model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height

	case TickMsg:
		m.Mode = m.ctrl.Mode()
		return m, tickCmd()

	case DoneMsg:
		m.Close()
		m.Done = true
		return m, tea.Quit

	case QuitMsg:
		m.Close()
		m.Quitting = true
		return m, tea.Quit

	case StateMsg:
		// listeners run on several goroutines; keep the newest
		if msg.State.Version < m.State.Version {
			return m, nil
		}
		m.State = msg.State
		if n := len(m.State.Window.Jobs); m.Cursor >= n {
			m.Cursor = max(n-1, 0)
		}

	case NotificationMsg:
		n := msg.Notification
		if m.Detail == "" || n.JobID != m.Detail {
			return m, nil
		}
		m.Events = append(m.Events, n.Time.Local().Format("15:04:05")+" "+n.String())
		if len(m.Events) > m.EventMax {
			m.Events = m.Events[len(m.Events)-m.EventMax:]
		}

	case ActionMsg:
		m.Flash = actionFlash(msg)

	case LogMsg:
		m.LogLines = append(m.LogLines, msg.Line)
		if m.LogLimit > 0 && len(m.LogLines) > m.LogLimit {
			m.LogLines = m.LogLines[len(m.LogLines)-m.LogLimit:]
		}
	}

	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.Close()
		m.Quitting = true
		return m, tea.Quit
	case "r":
		return m, m.action("refresh", m.ctrl.Refresh)
	case "L":
		m.ShowLogs = !m.ShowLogs
		return m, nil
	}

	if m.Detail != "" {
		switch msg.String() {
		case "esc", "backspace":
			m.Close()
			m.Detail = ""
			m.Events = nil
		case "c":
			return m, m.cancelJob(m.Detail)
		}
		return m, nil
	}

	switch msg.String() {
	case "up", "k":
		if m.Cursor > 0 {
			m.Cursor--
		}
	case "down", "j":
		if m.Cursor < len(m.State.Window.Jobs)-1 {
			m.Cursor++
		}
	case "left", "h":
		page := m.ctrl.Params().Page
		if page > 1 {
			m.Cursor = 0
			return m, m.action("page", func(ctx context.Context) error {
				return m.ctrl.SetPage(ctx, page-1)
			})
		}
	case "right", "l":
		page := m.ctrl.Params().Page
		if page < m.State.Window.Pages {
			m.Cursor = 0
			return m, m.action("page", func(ctx context.Context) error {
				return m.ctrl.SetPage(ctx, page+1)
			})
		}
	case "f":
		f := m.ctrl.Params().Filters.Clone()
		f.Statuses = nextStatusFilter(f.Statuses)
		m.Cursor = 0
		return m, m.action("filter", func(ctx context.Context) error {
			return m.ctrl.SetFilters(ctx, f)
		})
	case "enter":
		if j, ok := m.selected(); ok {
			m.Close()
			m.Detail = j.ID
			m.Events = nil
			m.stopFollow = m.ctrl.Follow(j.ID)
		}
	case "c":
		if j, ok := m.selected(); ok && !j.Status.IsTerminal() {
			return m, m.cancelJob(j.ID)
		}
	}

	return m, nil
}

// nextStatusFilter steps through no filter, then each status in turn
func nextStatusFilter(cur []jobs.Status) []jobs.Status {
	all := jobs.AllStatuses()
	if len(cur) != 1 {
		return []jobs.Status{all[0]}
	}
	i := slices.Index(all, cur[0])
	if i < 0 || i == len(all)-1 {
		return nil
	}
	return []jobs.Status{all[i+1]}
}

func actionFlash(msg ActionMsg) string {
	if msg.Err == nil {
		if msg.Action == "cancel" {
			return fmt.Sprintf("Cancelled %s", msg.JobID)
		}
		return ""
	}
	if msg.Action == "cancel" && client.IsNotFound(msg.Err) {
		return fmt.Sprintf("Job %s no longer exists", msg.JobID)
	}
	return fmt.Sprintf("%s failed: %v", msg.Action, msg.Err)
}
