package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// View renders the dashboard.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	sections := []string{
		m.renderHeader(),
		m.renderFiles(),
		m.renderFooter(),
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderHeader() string {
	header := fmt.Sprintf(
		" %s │ %d/%d files │ Elapsed: %s ",
		titleStyle.Render("video-analytics"),
		m.doneCount(),
		len(m.files),
		formatDuration(m.Elapsed()),
	)
	return boxStyle.Width(m.width - 2).Render(header)
}

func (m Model) renderFiles() string {
	var lines []string
	lines = append(lines, subtitleStyle.Render("Inputs"))

	for _, f := range m.files {
		line := fmt.Sprintf(" %s %s", statusGlyph(f.Status), truncate(f.Input, m.width-40))
		switch f.Status {
		case StatusDone:
			line += mutedStyle.Render(fmt.Sprintf("  %d ok / %d failed  eff %.0f%%  %s",
				f.Completed, f.Failed, f.Efficiency*100, formatDuration(f.Elapsed)))
		case StatusFailed:
			line += errStyle.Render("  " + truncate(f.Err, 48))
		case StatusAnalyzing:
			line += warnStyle.Render("  analyzing…")
		}
		lines = append(lines, line)
	}

	return strings.Join(lines, "\n")
}

func (m Model) renderFooter() string {
	if m.done {
		return footerStyle.Render(" batch complete · q to exit ")
	}
	return footerStyle.Render(" q: quit ")
}

// formatDuration renders a duration as h:mm:ss or m:ss.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	m := (d % time.Hour) / time.Minute
	s := (d % time.Minute) / time.Second
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// truncate shortens a string to fit the layout.
func truncate(s string, max int) string {
	if max < 8 {
		max = 8
	}
	if len(s) <= max {
		return s
	}
	return "…" + s[len(s)-max+1:]
}
