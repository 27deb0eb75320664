package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/1broseidon/deskmate/internal/faults"
	"github.com/1broseidon/deskmate/internal/ipc"
)

var severityColors = map[faults.Severity]lipgloss.Color{
	faults.SeverityLow:      "245",
	faults.SeverityMedium:   "220",
	faults.SeverityHigh:     "208",
	faults.SeverityCritical: "196",
}

// ErrorsTab lists the daemon's recent faults, newest first.
type ErrorsTab struct {
	client *ipc.Client

	width  int
	height int

	entries []*faults.Entry
	loadErr string
	loaded  bool
}

// NewErrorsTab creates an ErrorsTab over the daemon client.
func NewErrorsTab(client *ipc.Client) ErrorsTab {
	return ErrorsTab{client: client}
}

// Refresh reloads the error log from the daemon.
func (e *ErrorsTab) Refresh() {
	e.loaded = true
	data, err := e.client.Errors(ipc.ErrorsQueryPayload{Limit: 50})
	if err != nil {
		e.loadErr = err.Error()
		e.entries = nil
		return
	}
	e.loadErr = ""
	e.entries = data.Entries
}

// Init implements tea.Model.
func (e ErrorsTab) Init() tea.Cmd { return nil }

// Update implements tea.Model.
func (e ErrorsTab) Update(msg tea.Msg) (ErrorsTab, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		e.width = msg.Width
		e.height = msg.Height
	case tea.KeyMsg:
		if msg.String() == "r" {
			e.Refresh()
		}
	}
	if !e.loaded {
		e.Refresh()
	}
	return e, nil
}

// View implements tea.Model.
func (e ErrorsTab) View() string {
	if e.loadErr != "" {
		return errStyle.Render("  " + e.loadErr)
	}
	if len(e.entries) == 0 {
		return dimStyle.Render("  no errors logged")
	}

	var b strings.Builder
	max := e.height
	if max < 1 {
		max = len(e.entries)
	}
	for i, entry := range e.entries {
		if i >= max {
			break
		}
		color, ok := severityColors[entry.Severity]
		if !ok {
			color = "252"
		}
		sev := lipgloss.NewStyle().Foreground(color).Render(fmt.Sprintf("%-8s", entry.Severity))
		line := fmt.Sprintf("%s %s  %-10s %-20s %s",
			entry.Timestamp.Format("15:04:05"), sev,
			entry.Category, entry.Origin.Component, entry.Message)
		if e.width > 0 && len(line) > e.width {
			line = line[:e.width]
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}
