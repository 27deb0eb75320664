package tui

import (
	"fmt"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/1broseidon/deskmate/internal/avatar"
	"github.com/1broseidon/deskmate/internal/ipc"
	"github.com/1broseidon/deskmate/internal/windowing"
)

var (
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(16)
	valueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	shownStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
)

// StatusTab shows the daemon summary and lets the user edit the theme and
// avatar expression through a huh form.
type StatusTab struct {
	client *ipc.Client
	status *ipc.StatusData

	width  int
	height int

	editing bool
	form    *huh.Form

	fTheme      string
	fExpression string
	lastError   string
}

// NewStatusTab creates a StatusTab over the daemon client.
func NewStatusTab(client *ipc.Client) StatusTab {
	return StatusTab{client: client}
}

// SetStatus updates the cached daemon summary.
func (s *StatusTab) SetStatus(status *ipc.StatusData) {
	s.status = status
}

// Init implements tea.Model.
func (s StatusTab) Init() tea.Cmd { return nil }

// Update implements tea.Model.
func (s StatusTab) Update(msg tea.Msg) (StatusTab, tea.Cmd) {
	if s.editing {
		return s.updateEditing(msg)
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "e" && s.status != nil {
			s.startEditing()
			return s, s.form.Init()
		}
	case tea.WindowSizeMsg:
		s.width = msg.Width
		s.height = msg.Height
	}
	return s, nil
}

func (s StatusTab) updateEditing(msg tea.Msg) (StatusTab, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "esc" {
			s.editing = false
			s.form = nil
			return s, nil
		}
	case tea.WindowSizeMsg:
		s.width = msg.Width
		s.height = msg.Height
	}

	form, cmd := s.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		s.form = f
	}

	if s.form.State == huh.StateCompleted {
		s.applyForm()
		s.editing = false
		s.form = nil
		return s, nil
	}
	return s, cmd
}

func (s *StatusTab) startEditing() {
	s.fTheme = s.status.Theme
	s.fExpression = s.status.Expression
	s.lastError = ""

	exprOptions := make([]huh.Option[string], 0, len(avatar.Expressions()))
	for _, name := range avatar.Expressions() {
		exprOptions = append(exprOptions, huh.NewOption(name, name))
	}

	s.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Theme").
				Value(&s.fTheme),
			huh.NewSelect[string]().
				Title("Expression").
				Options(exprOptions...).
				Value(&s.fExpression),
		),
	)
	s.editing = true
}

func (s *StatusTab) applyForm() {
	if s.fTheme != s.status.Theme {
		if err := s.client.SetTheme(s.fTheme); err != nil {
			s.lastError = err.Error()
			return
		}
	}
	if s.fExpression != s.status.Expression {
		if err := s.client.SetExpression(s.fExpression); err != nil {
			s.lastError = err.Error()
			return
		}
	}
}

// View implements tea.Model.
func (s StatusTab) View() string {
	if s.editing && s.form != nil {
		return s.form.View()
	}
	if s.status == nil {
		return dimStyle.Render("  daemon not reachable — start it with `deskmate daemon`")
	}

	var b strings.Builder
	row := func(label, value string) {
		b.WriteString(labelStyle.Render(label) + valueStyle.Render(value) + "\n")
	}

	row("Uptime", fmt.Sprintf("%ds", s.status.UptimeSeconds))
	if s.status.ChatConfigured {
		row("Chat", fmt.Sprintf("configured (%d turns)", s.status.ChatTurns))
	} else {
		row("Chat", "not configured")
	}
	row("Errors logged", fmt.Sprintf("%d", s.status.ErrorCount))
	b.WriteString("\n")

	names := make([]string, 0, len(s.status.Windows))
	for name := range s.status.Windows {
		names = append(names, string(name))
	}
	sort.Strings(names)
	for _, name := range names {
		st := s.status.Windows[windowing.Name(name)]
		state := dimStyle.Render("closed")
		if st.Exists && st.Visible {
			state = shownStyle.Render("visible")
		} else if st.Exists {
			state = valueStyle.Render("hidden")
		}
		b.WriteString(labelStyle.Render(name) + state + "\n")
	}

	if s.lastError != "" {
		b.WriteString("\n" + lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render(s.lastError))
	}
	return b.String()
}
