package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/RevCBH/reeldeck/internal/jobs"
)

// Styles contains all lipgloss styles for the TUI
type Styles struct {
	// Header styling
	Title     lipgloss.Style
	Timer     lipgloss.Style
	ModeLive  lipgloss.Style
	ModePoll  lipgloss.Style
	Loading   lipgloss.Style
	Summary   lipgloss.Style
	FilterBar lipgloss.Style

	// Job rows
	Cursor   lipgloss.Style
	JobID    lipgloss.Style
	Prompt   lipgloss.Style
	Selected lipgloss.Style

	// Status colors
	StatusActive   lipgloss.Style
	StatusComplete lipgloss.Style
	StatusFailed   lipgloss.Style
	StatusIdle     lipgloss.Style

	// Progress bar colors
	ProgressFilled lipgloss.Style
	ProgressEmpty  lipgloss.Style

	// Detail view
	Label  lipgloss.Style
	Event  lipgloss.Style
	Banner lipgloss.Style
	Flash  lipgloss.Style

	// Footer styling
	Footer    lipgloss.Style
	FooterKey lipgloss.Style

	// Log area styling
	LogTitle lipgloss.Style
	LogLine  lipgloss.Style
}

// DefaultStyles returns the default TUI styles
func DefaultStyles() Styles {
	return Styles{
		Title:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		Timer:     lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		ModeLive:  lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		ModePoll:  lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		Loading:   lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Italic(true),
		Summary:   lipgloss.NewStyle().Foreground(lipgloss.Color("250")),
		FilterBar: lipgloss.NewStyle().Foreground(lipgloss.Color("245")),

		Cursor:   lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true),
		JobID:    lipgloss.NewStyle().Bold(true),
		Prompt:   lipgloss.NewStyle().Foreground(lipgloss.Color("250")),
		Selected: lipgloss.NewStyle().Background(lipgloss.Color("236")),

		StatusActive:   lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		StatusComplete: lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		StatusFailed:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		StatusIdle:     lipgloss.NewStyle().Foreground(lipgloss.Color("245")),

		ProgressFilled: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		ProgressEmpty:  lipgloss.NewStyle().Foreground(lipgloss.Color("240")),

		Label:  lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(12),
		Event:  lipgloss.NewStyle().Foreground(lipgloss.Color("250")).Italic(true),
		Banner: lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		Flash:  lipgloss.NewStyle().Foreground(lipgloss.Color("39")),

		Footer:    lipgloss.NewStyle().Foreground(lipgloss.Color("245")).MarginTop(1),
		FooterKey: lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true),

		LogTitle: lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Bold(true),
		LogLine:  lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
	}
}

// Icons used in the TUI
const (
	IconActive   = "●"
	IconComplete = "✓"
	IconFailed   = "✗"
	IconQueued   = "○"
	IconWaiting  = "⏳"
	IconCursor   = "›"
)

// statusStyle picks the icon and color for a job status
func (s Styles) statusStyle(st jobs.Status) (string, lipgloss.Style) {
	switch {
	case st == jobs.StatusCompleted:
		return IconComplete, s.StatusComplete
	case st == jobs.StatusFailed || st == jobs.StatusCancelled:
		return IconFailed, s.StatusFailed
	case st == jobs.StatusQueued:
		return IconQueued, s.StatusIdle
	default:
		return IconActive, s.StatusActive
	}
}
