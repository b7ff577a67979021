// Package tui provides Bubble Tea views for the datablast CLI.
//
// TUI mode is opt-in (--tui) and read-only. Views render the same payloads
// as table, JSON and YAML output; there is no TUI-exclusive data.
package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/justapithecus/datablast/receiver"
)

var (
	accent  = lipgloss.Color("#0EA5E9")
	good    = lipgloss.Color("#22C55E")
	caution = lipgloss.Color("#EAB308")
	bad     = lipgloss.Color("#DC2626")
	dim     = lipgloss.Color("#71717A")
	bright  = lipgloss.Color("#FAFAFA")
)

func fg(c lipgloss.Color) lipgloss.Style { return lipgloss.NewStyle().Foreground(c) }

var (
	TitleStyle = fg(accent).Bold(true).MarginBottom(1)
	LabelStyle = fg(dim).Width(16)
	ValueStyle = fg(bright)
	HelpStyle  = fg(dim).MarginTop(1)

	SuccessStyle = fg(good)
	WarningStyle = fg(caution)
	ErrorStyle   = fg(bad)

	SelectedStyle = fg(accent).Bold(true)

	// BoxStyle frames a whole view.
	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(dim).
			Padding(1, 2)

	// Stat boxes line up horizontally on the stats view.
	StatBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(accent).
			Padding(0, 1).
			Width(18).
			Align(lipgloss.Center)
	StatLabelStyle = fg(dim).Align(lipgloss.Center)
	StatValueStyle = fg(bright).Bold(true).Align(lipgloss.Center)

	// Chunk map cells.
	ChunkPresentStyle = fg(good)
	ChunkPartialStyle = fg(caution)
	ChunkMissingStyle = fg(dim)
)

var stateStyles = map[string]lipgloss.Style{
	receiver.StateComplete: SuccessStyle,
	receiver.StateActive:   WarningStyle,
	receiver.StatePending:  fg(dim),
	receiver.StateFailed:   ErrorStyle,
}

// StateStyle returns the style for a sequence state.
func StateStyle(state string) lipgloss.Style {
	if s, ok := stateStyles[state]; ok {
		return s
	}
	return ValueStyle
}
