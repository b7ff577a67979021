package tui

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/justapithecus/datablast/cli/reader"
)

// tile is one counter on the stats dashboard.
type tile struct {
	label string
	value int64
	color lipgloss.Color
}

// StatsModel shows the latest metrics snapshot of a decode session.
type StatsModel struct {
	viewType string
	data     any
	quitting bool
}

// NewStatsModel creates a new stats model.
func NewStatsModel(viewType string, data any) StatsModel {
	return StatsModel{viewType: viewType, data: data}
}

// Init implements tea.Model.
func (m StatsModel) Init() tea.Cmd { return nil }

// Update implements tea.Model.
func (m StatsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok && key.Matches(k, keys.Quit) {
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}

// View implements tea.Model.
func (m StatsModel) View() string {
	if m.quitting {
		return ""
	}
	if m.viewType != ViewStatsMetrics {
		return fmt.Sprintf("Unknown view type: %s", m.viewType)
	}
	snap, ok := m.data.(*reader.MetricsSnapshot)
	if !ok {
		return "Invalid data type for " + ViewStatsMetrics
	}
	return renderSnapshot(snap) + "\n" + HelpStyle.Render("q / ctrl+c: quit")
}

func renderSnapshot(s *reader.MetricsSnapshot) string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render("Session " + s.SessionID))
	b.WriteString("\n")
	for _, kv := range [][2]string{
		{"Recorded:", s.Ts},
		{"Source:", s.Source},
		{"Storage:", s.StorageBackend},
		{"Adapter:", orDash(s.Adapter)},
	} {
		fmt.Fprintf(&b, "%s %s\n", LabelStyle.Render(kv[0]), ValueStyle.Render(kv[1]))
	}
	b.WriteString("\n")

	rows := [][]tile{
		{
			{"Symbols", s.SymbolsReceived, accent},
			{"Parse errors", s.ParseErrors, caution},
			{"Duplicates", s.Duplicates, dim},
		},
		{
			{"Transfers", s.TransfersCompleted, good},
			{"Integrity fail", s.IntegrityFailures, bad},
			{"Bytes", s.BytesAssembled, accent},
		},
		{
			{"Stored", s.StorageWriteSuccess, good},
			{"Store fail", s.StorageWriteFailure, bad},
			{"Published", s.PublishSuccess, good},
		},
	}
	for _, row := range rows {
		boxes := make([]string, len(row))
		for i, t := range row {
			boxes[i] = t.render()
		}
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, boxes...))
		b.WriteString("\n")
	}

	if len(s.ParseErrorsByKind) > 0 {
		b.WriteString(LabelStyle.Render("Parse errors:"))
		for _, kind := range slices.Sorted(maps.Keys(s.ParseErrorsByKind)) {
			fmt.Fprintf(&b, " %s=%d", kind, s.ParseErrorsByKind[kind])
		}
		b.WriteString("\n")
	}
	return b.String()
}

// render draws the tile; zero counters are dimmed.
func (t tile) render() string {
	color := t.color
	if t.value == 0 {
		color = dim
	}
	body := lipgloss.JoinVertical(lipgloss.Center,
		StatValueStyle.Foreground(color).Render(fmt.Sprintf("%d", t.value)),
		StatLabelStyle.Render(t.label),
	)
	return StatBoxStyle.BorderForeground(color).Render(body)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// RunStatsTUI runs the stats TUI.
func RunStatsTUI(viewType string, data any) error {
	_, err := tea.NewProgram(NewStatsModel(viewType, data), tea.WithAltScreen()).Run()
	return err
}

// RenderStatsStatic renders the stats view once, without a terminal program.
func RenderStatsStatic(viewType string, data any) string {
	return lipgloss.NewStyle().Padding(1, 2).Render(NewStatsModel(viewType, data).View())
}
