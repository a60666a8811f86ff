package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// keyEntry is one line of the key legend.
type keyEntry struct {
	key    string
	action string
}

// renderPanelTitle heads the search and help panels. The hint line is
// skipped when empty.
func renderPanelTitle(title, hint string, width int) string {
	lines := []string{HeaderStyle.Render(truncateEnd(title, width-2))}
	if hint != "" {
		lines = append(lines, TrailStyle.UnsetPaddingLeft().Render(truncateEnd(hint, width-2)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// renderSearchBox frames the query input, highlighted while it has focus.
func renderSearchBox(input string, focused bool, inputWidth int) string {
	border := MutedColor
	if focused {
		border = AccentColor
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Padding(0, 1).
		Width(inputWidth + 4).
		Render(input)
}

// renderPlaceholder fills the feed area with the logo and a message while
// there are no story rows to show.
func renderPlaceholder(width, height int, message string) string {
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, GetCompactBanner(message))
}

func renderKeyLegend(entries []keyEntry) string {
	keyWidth := 0
	for _, e := range entries {
		keyWidth = max(keyWidth, lipgloss.Width(e.key))
	}
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, fmt.Sprintf("  %s  %s",
			HeaderStyle.Render(e.key+strings.Repeat(" ", keyWidth-lipgloss.Width(e.key))),
			lipgloss.NewStyle().Foreground(TextColor).Render(e.action)))
	}
	return strings.Join(lines, "\n")
}

func renderStatus(kind StatusKind, text string) string {
	switch kind {
	case StatusSuccess:
		return StatusSuccessStyle.Render(text)
	case StatusWarn:
		return StatusWarnStyle.Render(text)
	case StatusError:
		return StatusErrorStyle.Render(text)
	default:
		return StatusInfoStyle.Render(text)
	}
}
