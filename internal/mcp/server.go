// Package mcp exposes the companion daemon to MCP clients over stdio. Every
// tool proxies the daemon's unix-socket IPC surface, so an external agent can
// drive the same operations the CLI does.
package mcp

import (
	"context"
	"fmt"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/deskmate/internal/faults"
	"github.com/1broseidon/deskmate/internal/ipc"
	"github.com/1broseidon/deskmate/internal/windowing"
)

const (
	ServerName    = "deskmate"
	ServerVersion = "0.1.0"
)

// daemonClient is the slice of the IPC client the tools drive. Tests
// substitute a fake; production uses *ipc.Client.
type daemonClient interface {
	ShowWindow(name windowing.Name) error
	HideWindow(name windowing.Name) error
	ToggleWindow(name windowing.Name) error
	SetWindowBounds(name windowing.Name, b windowing.Bounds) error
	Say(text string) error
	ChatSend(text string) (string, error)
	Errors(q ipc.ErrorsQueryPayload) (*ipc.ErrorsData, error)
	Status() (*ipc.StatusData, error)
}

// Server is the MCP server for deskmate companion control.
type Server struct {
	mcpServer *mcpsdk.Server
	client    daemonClient
}

// NewServer creates an MCP server over the daemon's IPC socket.
func NewServer() *Server {
	return newServerWith(ipc.NewClient())
}

func newServerWith(client daemonClient) *Server {
	s := &Server{client: client}
	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    ServerName,
			Version: ServerVersion,
		},
		nil,
	)
	s.registerTools()
	return s
}

// Run starts the MCP server on stdio transport, blocking until done.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "show_window",
		Description: "Show one of the companion's windows (main, chat, settings). Creates the window if it does not exist yet.",
	}, s.handleShowWindow)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "hide_window",
		Description: "Hide one of the companion's windows without destroying it.",
	}, s.handleHideWindow)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "toggle_window",
		Description: "Toggle a window between visible and hidden.",
	}, s.handleToggleWindow)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "set_window_bounds",
		Description: "Move and resize a window. Bounds below the window's class minimum size are rejected, not clamped.",
	}, s.handleSetBounds)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "say",
		Description: "Make the companion speak: the text appears in a speech bubble above the main window and auto-hides after the configured timeout.",
	}, s.handleSay)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "chat",
		Description: "Send a message to the companion's chat model and return the reply. Fails when no chat provider is configured.",
	}, s.handleChat)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_errors",
		Description: "Query the daemon's in-memory error log, newest first. Optionally filter by category or severity.",
	}, s.handleListErrors)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "status",
		Description: "Report daemon status: uptime, window states, chat availability, error count, theme, and avatar expression.",
	}, s.handleStatus)
}

func parseWindow(raw string) (windowing.Name, error) {
	name := windowing.Name(raw)
	if !name.Valid() {
		return "", fmt.Errorf("unknown window %q; valid names: %v", raw, windowing.Names())
	}
	return name, nil
}

// windowState reads back the window's state after an operation. Best-effort:
// a status failure leaves the state fields zeroed.
func (s *Server) windowState(name windowing.Name) WindowOutput {
	out := WindowOutput{Window: string(name)}
	status, err := s.client.Status()
	if err != nil {
		return out
	}
	st := status.Windows[name]
	out.Exists = st.Exists
	out.Visible = st.Visible
	return out
}

func (s *Server) handleShowWindow(_ context.Context, _ *mcpsdk.CallToolRequest, args WindowInput) (*mcpsdk.CallToolResult, WindowOutput, error) {
	name, err := parseWindow(args.Window)
	if err != nil {
		return nil, WindowOutput{}, err
	}
	if err := s.client.ShowWindow(name); err != nil {
		return nil, WindowOutput{}, err
	}
	return nil, s.windowState(name), nil
}

func (s *Server) handleHideWindow(_ context.Context, _ *mcpsdk.CallToolRequest, args WindowInput) (*mcpsdk.CallToolResult, WindowOutput, error) {
	name, err := parseWindow(args.Window)
	if err != nil {
		return nil, WindowOutput{}, err
	}
	if err := s.client.HideWindow(name); err != nil {
		return nil, WindowOutput{}, err
	}
	return nil, s.windowState(name), nil
}

func (s *Server) handleToggleWindow(_ context.Context, _ *mcpsdk.CallToolRequest, args WindowInput) (*mcpsdk.CallToolResult, WindowOutput, error) {
	name, err := parseWindow(args.Window)
	if err != nil {
		return nil, WindowOutput{}, err
	}
	if err := s.client.ToggleWindow(name); err != nil {
		return nil, WindowOutput{}, err
	}
	return nil, s.windowState(name), nil
}

func (s *Server) handleSetBounds(_ context.Context, _ *mcpsdk.CallToolRequest, args SetBoundsInput) (*mcpsdk.CallToolResult, SetBoundsOutput, error) {
	name, err := parseWindow(args.Window)
	if err != nil {
		return nil, SetBoundsOutput{}, err
	}
	b := windowing.Bounds{X: args.X, Y: args.Y, Width: args.Width, Height: args.Height}
	if err := s.client.SetWindowBounds(name, b); err != nil {
		return nil, SetBoundsOutput{}, err
	}
	return nil, SetBoundsOutput{
		Window: args.Window,
		X:      b.X, Y: b.Y, Width: b.Width, Height: b.Height,
	}, nil
}

func (s *Server) handleSay(_ context.Context, _ *mcpsdk.CallToolRequest, args SayInput) (*mcpsdk.CallToolResult, SayOutput, error) {
	if args.Text == "" {
		return nil, SayOutput{}, fmt.Errorf("text is required")
	}
	if err := s.client.Say(args.Text); err != nil {
		return nil, SayOutput{}, err
	}
	return nil, SayOutput{Delivered: true}, nil
}

func (s *Server) handleChat(_ context.Context, _ *mcpsdk.CallToolRequest, args ChatInput) (*mcpsdk.CallToolResult, ChatOutput, error) {
	if args.Text == "" {
		return nil, ChatOutput{}, fmt.Errorf("text is required")
	}
	reply, err := s.client.ChatSend(args.Text)
	if err != nil {
		return nil, ChatOutput{}, err
	}
	return nil, ChatOutput{Reply: reply}, nil
}

func (s *Server) handleListErrors(_ context.Context, _ *mcpsdk.CallToolRequest, args ListErrorsInput) (*mcpsdk.CallToolResult, ListErrorsOutput, error) {
	limit := args.Limit
	if limit <= 0 {
		limit = 20
	}
	data, err := s.client.Errors(ipc.ErrorsQueryPayload{
		Category: faults.Category(args.Category),
		Severity: faults.Severity(args.Severity),
		Limit:    limit,
	})
	if err != nil {
		return nil, ListErrorsOutput{}, err
	}

	out := ListErrorsOutput{Total: len(data.Entries)}
	for _, e := range data.Entries {
		out.Entries = append(out.Entries, ErrorEntry{
			ID:        e.ID,
			Timestamp: e.Timestamp.Format(time.RFC3339),
			Category:  string(e.Category),
			Severity:  string(e.Severity),
			Component: e.Origin.Component,
			Message:   e.Message,
		})
	}
	return nil, out, nil
}

func (s *Server) handleStatus(_ context.Context, _ *mcpsdk.CallToolRequest, _ StatusInput) (*mcpsdk.CallToolResult, StatusOutput, error) {
	status, err := s.client.Status()
	if err != nil {
		return nil, StatusOutput{}, err
	}

	windows := make(map[string]WindowOutput, len(status.Windows))
	for name, st := range status.Windows {
		windows[string(name)] = WindowOutput{
			Window:  string(name),
			Exists:  st.Exists,
			Visible: st.Visible,
		}
	}
	return nil, StatusOutput{
		DaemonRunning:  status.DaemonRunning,
		UptimeSeconds:  status.UptimeSeconds,
		ChatConfigured: status.ChatConfigured,
		ErrorCount:     status.ErrorCount,
		Theme:          status.Theme,
		Expression:     status.Expression,
		Windows:        windows,
	}, nil
}
