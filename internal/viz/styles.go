package viz

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

type styles struct {
	canvas   lipgloss.Style
	stats    lipgloss.Style
	header   lipgloss.Style
	label    lipgloss.Style
	value    lipgloss.Style
	graph    lipgloss.Style
	running  lipgloss.Style
	paused   lipgloss.Style
	sleeping lipgloss.Style
	help     lipgloss.Style
	selected lipgloss.Style
}

func newStyles(t Theme) styles {
	return styles{
		canvas: lipgloss.NewStyle().Foreground(t.Frame).Padding(1, 2),
		stats: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(t.Label).
			Padding(1, 2).
			Width(44),
		header:   lipgloss.NewStyle().Foreground(t.Header).Bold(true).MarginBottom(1),
		label:    lipgloss.NewStyle().Foreground(t.Label).Width(12),
		value:    lipgloss.NewStyle().Foreground(t.Value),
		graph:    lipgloss.NewStyle().Foreground(t.Graph).Padding(1, 0),
		running:  lipgloss.NewStyle().Foreground(t.Running).Bold(true),
		paused:   lipgloss.NewStyle().Foreground(t.Paused).Bold(true),
		sleeping: lipgloss.NewStyle().Foreground(t.Sleeping),
		help:     lipgloss.NewStyle().Foreground(t.Label).MarginTop(1),
		selected: lipgloss.NewStyle().Foreground(t.Header).Bold(true),
	}
}

func (s styles) row(label, value string) string {
	return s.label.Render(label) + s.value.Render(value) + "\n"
}

// bar renders fraction in [0, 1] as a fixed-width gauge.
func bar(fraction float64, width int) string {
	filled := int(fraction * float64(width))
	filled = max(0, min(width, filled))
	return "[" + strings.Repeat("=", filled) + strings.Repeat("-", width-filled) + "]"
}
