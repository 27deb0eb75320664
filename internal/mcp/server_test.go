package mcp

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/1broseidon/deskmate/internal/faults"
	"github.com/1broseidon/deskmate/internal/ipc"
	"github.com/1broseidon/deskmate/internal/windowing"
)

// fakeDaemon records tool-driven IPC calls without a running daemon.
type fakeDaemon struct {
	visible map[windowing.Name]bool
	bounds  map[windowing.Name]windowing.Bounds
	said    []string
	chatErr error
	entries []*faults.Entry
}

func newFakeDaemon() *fakeDaemon {
	return &fakeDaemon{
		visible: make(map[windowing.Name]bool),
		bounds:  make(map[windowing.Name]windowing.Bounds),
	}
}

func (f *fakeDaemon) ShowWindow(name windowing.Name) error {
	f.visible[name] = true
	return nil
}

func (f *fakeDaemon) HideWindow(name windowing.Name) error {
	f.visible[name] = false
	return nil
}

func (f *fakeDaemon) ToggleWindow(name windowing.Name) error {
	f.visible[name] = !f.visible[name]
	return nil
}

func (f *fakeDaemon) SetWindowBounds(name windowing.Name, b windowing.Bounds) error {
	if b.Width < 200 || b.Height < 300 {
		return fmt.Errorf("daemon error: bounds below minimum size")
	}
	f.bounds[name] = b
	return nil
}

func (f *fakeDaemon) Say(text string) error {
	f.said = append(f.said, text)
	return nil
}

func (f *fakeDaemon) ChatSend(text string) (string, error) {
	if f.chatErr != nil {
		return "", f.chatErr
	}
	return "echo: " + text, nil
}

func (f *fakeDaemon) Errors(q ipc.ErrorsQueryPayload) (*ipc.ErrorsData, error) {
	out := &ipc.ErrorsData{}
	for _, e := range f.entries {
		if q.Category != "" && e.Category != q.Category {
			continue
		}
		out.Entries = append(out.Entries, e)
	}
	return out, nil
}

func (f *fakeDaemon) Status() (*ipc.StatusData, error) {
	windows := make(map[windowing.Name]windowing.State)
	for _, name := range windowing.Names() {
		_, exists := f.visible[name]
		windows[name] = windowing.State{Exists: exists, Visible: f.visible[name]}
	}
	return &ipc.StatusData{
		DaemonRunning: true,
		UptimeSeconds: 42,
		Windows:       windows,
		Theme:         "light",
		Expression:    "neutral",
	}, nil
}

func newTestMCP() (*Server, *fakeDaemon) {
	daemon := newFakeDaemon()
	return newServerWith(daemon), daemon
}

func TestHandleShowWindow(t *testing.T) {
	s, daemon := newTestMCP()

	_, out, err := s.handleShowWindow(context.Background(), nil, WindowInput{Window: "chat"})
	if err != nil {
		t.Fatalf("show_window: %v", err)
	}
	if !daemon.visible[windowing.Chat] {
		t.Fatalf("expected chat shown")
	}
	if !out.Visible {
		t.Fatalf("expected visible state reported, got %+v", out)
	}
}

func TestHandleShowWindow_UnknownName(t *testing.T) {
	s, _ := newTestMCP()

	_, _, err := s.handleShowWindow(context.Background(), nil, WindowInput{Window: "popup"})
	if err == nil {
		t.Fatalf("expected unknown window rejected")
	}
	if !strings.Contains(err.Error(), "popup") {
		t.Fatalf("error should name the bad window: %v", err)
	}
}

func TestHandleSetBounds(t *testing.T) {
	s, daemon := newTestMCP()

	_, _, err := s.handleSetBounds(context.Background(), nil, SetBoundsInput{
		Window: "main", X: 10, Y: 20, Width: 400, Height: 600,
	})
	if err != nil {
		t.Fatalf("set_window_bounds: %v", err)
	}
	if got := daemon.bounds[windowing.Main]; got.Width != 400 || got.Height != 600 {
		t.Fatalf("unexpected bounds %+v", got)
	}

	_, _, err = s.handleSetBounds(context.Background(), nil, SetBoundsInput{
		Window: "main", Width: 50, Height: 50,
	})
	if err == nil {
		t.Fatalf("expected undersized bounds rejected")
	}
}

func TestHandleSay(t *testing.T) {
	s, daemon := newTestMCP()

	_, out, err := s.handleSay(context.Background(), nil, SayInput{Text: "hello"})
	if err != nil {
		t.Fatalf("say: %v", err)
	}
	if !out.Delivered || len(daemon.said) != 1 || daemon.said[0] != "hello" {
		t.Fatalf("say not delivered: %+v %v", out, daemon.said)
	}

	if _, _, err := s.handleSay(context.Background(), nil, SayInput{}); err == nil {
		t.Fatalf("empty say must be rejected")
	}
}

func TestHandleChat(t *testing.T) {
	s, daemon := newTestMCP()

	_, out, err := s.handleChat(context.Background(), nil, ChatInput{Text: "hi"})
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if out.Reply != "echo: hi" {
		t.Fatalf("unexpected reply %q", out.Reply)
	}

	daemon.chatErr = fmt.Errorf("daemon error: chat is not configured")
	if _, _, err := s.handleChat(context.Background(), nil, ChatInput{Text: "hi"}); err == nil {
		t.Fatalf("expected chat error surfaced")
	}
}

func TestHandleListErrors(t *testing.T) {
	s, daemon := newTestMCP()
	daemon.entries = []*faults.Entry{
		{
			ID:        "err-1",
			Category:  faults.CategoryNetwork,
			Severity:  faults.SeverityHigh,
			Message:   "connection refused",
			Timestamp: time.Now(),
			Origin:    faults.Origin{Component: "ipc.client"},
		},
		{
			ID:        "err-2",
			Category:  faults.CategoryChat,
			Severity:  faults.SeverityMedium,
			Message:   "rate limited",
			Timestamp: time.Now(),
			Origin:    faults.Origin{Component: "chat.service"},
		},
	}

	_, out, err := s.handleListErrors(context.Background(), nil, ListErrorsInput{Category: "network"})
	if err != nil {
		t.Fatalf("list_errors: %v", err)
	}
	if out.Total != 1 || out.Entries[0].ID != "err-1" {
		t.Fatalf("unexpected entries %+v", out)
	}
	if out.Entries[0].Component != "ipc.client" {
		t.Fatalf("expected component carried through, got %+v", out.Entries[0])
	}
}

func TestHandleStatus(t *testing.T) {
	s, daemon := newTestMCP()
	daemon.ShowWindow(windowing.Main)

	_, out, err := s.handleStatus(context.Background(), nil, StatusInput{})
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !out.DaemonRunning || out.UptimeSeconds != 42 {
		t.Fatalf("unexpected status %+v", out)
	}
	if !out.Windows["main"].Visible {
		t.Fatalf("expected main visible in status")
	}
	if len(out.Windows) != len(windowing.Names()) {
		t.Fatalf("expected a state per window")
	}
}
