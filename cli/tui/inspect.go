package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/justapithecus/datablast/cli/reader"
	"github.com/justapithecus/datablast/receiver"
)

const (
	barWidth      = 24
	chunkMapWidth = 48
	chunkMapRows  = 6
)

// InspectModel is a Bubble Tea model for inspect views.
type InspectModel struct {
	viewType string
	data     any
	selected int
	width    int
	height   int
	quitting bool
}

// NewInspectModel creates a new inspect model.
func NewInspectModel(viewType string, data any) InspectModel {
	return InspectModel{
		viewType: viewType,
		data:     data,
	}
}

// Init implements tea.Model.
func (m InspectModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m InspectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, keys.Up):
			if m.selected > 0 {
				m.selected--
			}
		case key.Matches(msg, keys.Down):
			if m.selected < m.sequenceCount()-1 {
				m.selected++
			}
		}
	}

	return m, nil
}

func (m InspectModel) sequenceCount() int {
	if data, ok := m.data.(*reader.InspectCaptureResponse); ok {
		return len(data.Sequences)
	}
	return 0
}

// View implements tea.Model.
func (m InspectModel) View() string {
	if m.quitting {
		return ""
	}

	var content string
	switch m.viewType {
	case ViewInspectCapture:
		content = m.renderInspectCapture()
	default:
		content = fmt.Sprintf("Unknown view type: %s", m.viewType)
	}

	help := HelpStyle.Render("↑/↓ select • q quit")
	return content + "\n" + help
}

func (m InspectModel) renderInspectCapture() string {
	data, ok := m.data.(*reader.InspectCaptureResponse)
	if !ok {
		return "Invalid data type for inspect_capture"
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Capture " + data.Path))
	b.WriteString("\n")

	rows := [][2]string{
		{"Lines", fmt.Sprintf("%d", data.Lines)},
		{"Meta / Content", fmt.Sprintf("%d / %d", data.MetaSymbols, data.ContentSymbols)},
		{"Parse errors", fmt.Sprintf("%d", data.ParseErrors)},
		{"Rejected", fmt.Sprintf("%d", data.Rejected)},
		{"Complete", fmt.Sprintf("%d", data.Complete)},
		{"Failed", fmt.Sprintf("%d", data.Failed)},
	}
	for _, row := range rows {
		fmt.Fprintf(&b, "%s %s\n", LabelStyle.Render(row[0]+":"), ValueStyle.Render(row[1]))
	}

	if len(data.Sequences) == 0 {
		b.WriteString("\n")
		b.WriteString(HelpStyle.Render("no transfers found"))
		return BoxStyle.Render(b.String())
	}

	b.WriteString("\n")
	for i, seq := range data.Sequences {
		b.WriteString(m.renderSequenceRow(i == m.selected, seq))
		b.WriteString("\n")
	}

	sel := data.Sequences[min(m.selected, len(data.Sequences)-1)]
	b.WriteString("\n")
	b.WriteString(renderSequenceDetail(sel))

	return BoxStyle.Render(b.String())
}

func (m InspectModel) renderSequenceRow(selected bool, seq receiver.SequenceReport) string {
	cursor := "  "
	id := fmt.Sprintf("%02x", seq.SequenceID)
	if selected {
		cursor = SelectedStyle.Render("> ")
		id = SelectedStyle.Render(id)
	}
	name := seq.FileName
	if name == "" {
		name = "(no meta yet)"
	}
	return fmt.Sprintf("%s%s %s %5.1f%% %s %s",
		cursor,
		id,
		ProgressBar(seq.Percent(), barWidth),
		seq.Percent(),
		StateStyle(seq.State).Render(fmt.Sprintf("%-8s", seq.State)),
		ValueStyle.Render(name),
	)
}

func renderSequenceDetail(seq receiver.SequenceReport) string {
	var b strings.Builder
	rows := [][2]string{
		{"Sequence", fmt.Sprintf("%02x", seq.SequenceID)},
		{"Chunks", fmt.Sprintf("%d / %d", seq.Received, seq.Total)},
		{"File length", fmt.Sprintf("%d bytes", seq.FileLength)},
		{"Duplicates", fmt.Sprintf("%d", seq.Duplicates)},
		{"Conflicts", fmt.Sprintf("%d", seq.Conflicts)},
	}
	if seq.Hash != "" {
		rows = append(rows, [2]string{"SHA3", seq.Hash})
	}
	for _, row := range rows {
		fmt.Fprintf(&b, "%s %s\n", LabelStyle.Render(row[0]+":"), ValueStyle.Render(row[1]))
	}
	if seq.State != receiver.StatePending && seq.Total > 0 {
		b.WriteString("\n")
		b.WriteString(ChunkMap(seq.Total, seq.Missing, chunkMapWidth, chunkMapRows))
	}
	return b.String()
}

// keyMap defines key bindings.
type keyMap struct {
	Quit key.Binding
	Up   key.Binding
	Down key.Binding
}

var keys = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
}

// RunInspectTUI runs the inspect TUI.
func RunInspectTUI(viewType string, data any) error {
	model := NewInspectModel(viewType, data)
	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// RenderInspectStatic renders inspect data without full TUI (for fallback).
func RenderInspectStatic(viewType string, data any) string {
	model := NewInspectModel(viewType, data)
	model.width = 80
	model.height = 24
	return lipgloss.NewStyle().Padding(1, 2).Render(model.View())
}
