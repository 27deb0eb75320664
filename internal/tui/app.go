// Package tui is the interactive terminal dashboard for the companion
// daemon: a live status view, a chat transcript, and the error log, all
// driven over the daemon's IPC socket.
package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/1broseidon/deskmate/internal/ipc"
)

// model is the root bubbletea model for the TUI.
type model struct {
	client *ipc.Client

	activeTab Tab

	statusTab StatusTab
	chatTab   ChatTab
	errorsTab ErrorsTab

	// Daemon state, refreshed on startup and on demand.
	daemonConnected bool
	theme           string
	expression      string

	width  int
	height int
}

func newModel() model {
	m := model{client: ipc.NewClient()}
	m.statusTab = NewStatusTab(m.client)
	m.chatTab = NewChatTab(m.client)
	m.errorsTab = NewErrorsTab(m.client)
	m.refreshDaemonStatus()
	return m
}

// Run starts the TUI. Blocks until the user quits.
func Run() error {
	p := tea.NewProgram(newModel(), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("tui failed: %w", err)
	}
	return nil
}

func (m *model) refreshDaemonStatus() {
	status, err := m.client.Status()
	if err != nil {
		m.daemonConnected = false
		m.theme = ""
		m.expression = ""
		return
	}
	m.daemonConnected = true
	m.theme = status.Theme
	m.expression = status.Expression
	m.statusTab.SetStatus(status)
}

// contentHeight returns the height available for tab content.
func (m model) contentHeight() int {
	// status bar (1) + tab bar (2 with margin) + help bar (1)
	h := m.height - 4
	if h < 1 {
		h = 1
	}
	return h
}

// Init implements tea.Model.
func (m model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// When a sub-model captures input, delegate everything to it; only
	// ctrl+c escapes to quit.
	capturing := (m.activeTab == TabStatus && m.statusTab.editing) ||
		m.activeTab == TabChat
	if capturing {
		switch msg := msg.(type) {
		case tea.KeyMsg:
			switch msg.String() {
			case "ctrl+c":
				return m, tea.Quit
			case "tab", "shift+tab":
				// Chat has no edit overlay, so tab switching stays live there.
				if m.activeTab == TabChat {
					capturing = false
				}
			}
		case tea.WindowSizeMsg:
			m.width = msg.Width
			m.height = msg.Height
			m.forwardSize()
			return m, nil
		}
	}
	if capturing {
		var cmd tea.Cmd
		switch m.activeTab {
		case TabStatus:
			m.statusTab, cmd = m.statusTab.Update(msg)
			if !m.statusTab.editing {
				m.refreshDaemonStatus()
			}
		case TabChat:
			m.chatTab, cmd = m.chatTab.Update(msg)
		}
		return m, cmd
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit

		case "tab":
			m.activeTab = (m.activeTab + 1) % tabCount
			return m, nil

		case "shift+tab":
			m.activeTab = (m.activeTab - 1 + tabCount) % tabCount
			return m, nil

		case "1":
			m.activeTab = TabStatus
			return m, nil
		case "2":
			m.activeTab = TabChat
			return m, nil
		case "3":
			m.activeTab = TabErrors
			return m, nil

		case "r":
			m.refreshDaemonStatus()
			if m.activeTab == TabErrors {
				m.errorsTab.Refresh()
			}
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.forwardSize()
		return m, nil
	}

	var cmd tea.Cmd
	switch m.activeTab {
	case TabStatus:
		m.statusTab, cmd = m.statusTab.Update(msg)
	case TabChat:
		m.chatTab, cmd = m.chatTab.Update(msg)
	case TabErrors:
		m.errorsTab, cmd = m.errorsTab.Update(msg)
	}
	return m, cmd
}

func (m *model) forwardSize() {
	subMsg := tea.WindowSizeMsg{Width: m.width, Height: m.contentHeight()}
	m.statusTab, _ = m.statusTab.Update(subMsg)
	m.chatTab, _ = m.chatTab.Update(subMsg)
	m.errorsTab, _ = m.errorsTab.Update(subMsg)
}

// View implements tea.Model.
func (m model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	statusBar := renderStatusBar(m.daemonConnected, m.theme, m.expression, m.width)
	tabBar := renderTabBar(m.activeTab, m.width)
	helpBar := renderHelpBar(m.activeTab, m.width)

	usedHeight := lipgloss.Height(statusBar) + lipgloss.Height(tabBar) + lipgloss.Height(helpBar)
	contentHeight := m.height - usedHeight
	if contentHeight < 1 {
		contentHeight = 1
	}

	var content string
	switch m.activeTab {
	case TabStatus:
		content = m.statusTab.View()
	case TabChat:
		content = m.chatTab.View()
	case TabErrors:
		content = m.errorsTab.View()
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		statusBar,
		tabBar,
		content,
		helpBar,
	)
}
