package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/1broseidon/deskmate/internal/ipc"
)

var (
	userStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("62")).Bold(true)
	assistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	promptStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// chatReplyMsg carries the daemon's chat reply back into the update loop.
type chatReplyMsg struct {
	reply string
	err   error
}

type chatLine struct {
	role string // "you", "mate", "error"
	text string
}

// ChatTab is a minimal chat transcript over the daemon's chat channel.
type ChatTab struct {
	client *ipc.Client

	width  int
	height int

	lines   []chatLine
	input   string
	waiting bool
}

// NewChatTab creates a ChatTab over the daemon client.
func NewChatTab(client *ipc.Client) ChatTab {
	return ChatTab{client: client}
}

// Init implements tea.Model.
func (c ChatTab) Init() tea.Cmd { return nil }

// Update implements tea.Model.
func (c ChatTab) Update(msg tea.Msg) (ChatTab, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		c.width = msg.Width
		c.height = msg.Height
		return c, nil

	case chatReplyMsg:
		c.waiting = false
		if msg.err != nil {
			c.lines = append(c.lines, chatLine{role: "error", text: msg.err.Error()})
		} else {
			c.lines = append(c.lines, chatLine{role: "mate", text: msg.reply})
		}
		return c, nil

	case tea.KeyMsg:
		if c.waiting {
			return c, nil
		}
		switch msg.String() {
		case "enter":
			text := strings.TrimSpace(c.input)
			if text == "" {
				return c, nil
			}
			c.lines = append(c.lines, chatLine{role: "you", text: text})
			c.input = ""
			c.waiting = true
			client := c.client
			return c, func() tea.Msg {
				reply, err := client.ChatSend(text)
				return chatReplyMsg{reply: reply, err: err}
			}
		case "ctrl+l":
			if err := c.client.ChatClear(); err == nil {
				c.lines = nil
			}
			return c, nil
		case "backspace":
			if len(c.input) > 0 {
				c.input = c.input[:len(c.input)-1]
			}
			return c, nil
		case "space":
			c.input += " "
			return c, nil
		default:
			if msg.Type == tea.KeyRunes {
				c.input += string(msg.Runes)
			}
			return c, nil
		}
	}
	return c, nil
}

// View implements tea.Model.
func (c ChatTab) View() string {
	var b strings.Builder

	// Keep the transcript within the content area, newest lines last.
	visible := c.lines
	maxLines := c.height - 2
	if maxLines > 0 && len(visible) > maxLines {
		visible = visible[len(visible)-maxLines:]
	}

	for _, line := range visible {
		switch line.role {
		case "you":
			b.WriteString(userStyle.Render("you: ") + line.text + "\n")
		case "mate":
			b.WriteString(assistantStyle.Render("mate: "+line.text) + "\n")
		case "error":
			b.WriteString(errStyle.Render(line.text) + "\n")
		}
	}

	b.WriteString("\n")
	if c.waiting {
		b.WriteString(dimStyle.Render("thinking..."))
	} else {
		b.WriteString(promptStyle.Render("> ") + c.input + "▌")
	}
	return b.String()
}
