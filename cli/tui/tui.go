package tui

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// View types with a TUI.
const (
	ViewInspectCapture = "inspect_capture"
	ViewStatsMetrics   = "stats_metrics"
)

// Run starts the appropriate TUI based on the view type.
// Returns an error if the view type doesn't support TUI.
func Run(viewType string, data any) error {
	if !IsTUISupported(viewType) {
		return fmt.Errorf("TUI mode is not supported for %s", viewType)
	}

	switch {
	case strings.HasPrefix(viewType, "inspect_"):
		return RunInspectTUI(viewType, data)
	case strings.HasPrefix(viewType, "stats_"):
		return RunStatsTUI(viewType, data)
	}
	return fmt.Errorf("unknown view type: %s", viewType)
}

// IsTUISupported returns true if the view type supports TUI mode.
func IsTUISupported(viewType string) bool {
	return slices.Contains(SupportedTUIViews(), viewType)
}

// SupportedTUIViews returns a list of view types that support TUI.
func SupportedTUIViews() []string {
	return []string{ViewInspectCapture, ViewStatsMetrics}
}

// DisableColor renders every view without ANSI colors.
func DisableColor() {
	lipgloss.SetColorProfile(termenv.Ascii)
}
