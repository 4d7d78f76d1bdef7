// Package tui provides a live terminal dashboard for batch analysis runs.
//
// The TUI uses Bubble Tea for the application framework and Lipgloss for
// styling. It shows per-file progress, task counters, and efficiency as the
// batch works through its inputs.
package tui

import (
	"github.com/charmbracelet/lipgloss"
)

// Colors based on a modern dark theme.
var (
	colorPrimary   = lipgloss.Color("#7C3AED") // Purple
	colorSecondary = lipgloss.Color("#06B6D4") // Cyan

	colorSuccess = lipgloss.Color("#10B981") // Green
	colorWarning = lipgloss.Color("#F59E0B") // Amber
	colorError   = lipgloss.Color("#EF4444") // Red

	colorText      = lipgloss.Color("#E5E7EB") // Light gray
	colorTextMuted = lipgloss.Color("#9CA3AF") // Medium gray
	colorBorder    = lipgloss.Color("#374151") // Border gray
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(colorPrimary).
			Bold(true)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(colorSecondary).
			Bold(true)

	mutedStyle = lipgloss.NewStyle().
			Foreground(colorTextMuted)

	okStyle = lipgloss.NewStyle().
		Foreground(colorSuccess)

	warnStyle = lipgloss.NewStyle().
			Foreground(colorWarning)

	errStyle = lipgloss.NewStyle().
			Foreground(colorError)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1)

	footerStyle = lipgloss.NewStyle().
			Foreground(colorTextMuted).
			MarginTop(1)
)

// statusGlyph returns the styled indicator for a file status.
func statusGlyph(s FileStatus) string {
	switch s {
	case StatusAnalyzing:
		return warnStyle.Render("▶")
	case StatusDone:
		return okStyle.Render("✓")
	case StatusFailed:
		return errStyle.Render("✗")
	default:
		return mutedStyle.Render("·")
	}
}
