package watch

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/clouddeck/stackd/internal/events"
)

func renderTransitionStream(log []events.Transition, theme Theme, width int) string {
	innerWidth := width - 4

	if len(log) == 0 {
		content := lipgloss.JoinVertical(lipgloss.Left,
			theme.Title.Render("EVENT STREAM"),
			theme.Dim.Render("  Waiting for events..."),
		)
		return theme.Border.Width(innerWidth).Render(content)
	}

	var lines []string
	for i, tr := range log {
		if i >= 10 {
			break
		}
		lines = append(lines, formatTransition(tr, theme))
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		theme.Title.Render("EVENT STREAM"),
		lipgloss.NewStyle().Padding(0, 1).Render(strings.Join(lines, "\n")),
	)
	return theme.Border.Width(innerWidth).Render(content)
}

func formatTransition(tr events.Transition, theme Theme) string {
	ts := theme.Dim.Render(tr.At.Local().Format("15:04:05"))

	var stateStyle lipgloss.Style
	switch {
	case strings.HasSuffix(tr.State, "_complete"), tr.State == "deleted":
		stateStyle = theme.StatusOK
	case strings.HasSuffix(tr.State, "_failed"):
		stateStyle = theme.StatusFailed
	case strings.HasSuffix(tr.State, "_in_progress"):
		stateStyle = theme.StatusRunning
	default:
		stateStyle = theme.StatusUnknown
	}

	detail := tr.State
	if detail == "" {
		detail = tr.Detail
	} else if tr.Detail != "" {
		detail += " " + theme.Dim.Render(tr.Detail)
	}

	return fmt.Sprintf("%s %s %s %s",
		ts,
		theme.Header.Render(fmt.Sprintf("%-20s", tr.Type)),
		theme.Highlight.Render(tr.Workspace),
		stateStyle.Render(detail),
	)
}
