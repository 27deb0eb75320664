package controller

import (
	"testing"

	"github.com/1broseidon/deskmate/internal/bus"
	"github.com/1broseidon/deskmate/internal/windowing"
)

func newTestOrchestrator(t *testing.T) (*Orchestrator, Deps, *windowing.MemoryBackend) {
	t.Helper()
	d, backend := newTestDeps(t)
	o := NewOrchestrator(d, &fakeRenderer{})
	o.bubble.timeout = 80 * testDebounce
	return o, d, backend
}

func TestStart_OpensMainWindow(t *testing.T) {
	o, _, backend := newTestOrchestrator(t)

	if err := o.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if got := backend.CreateCount(); got != 1 {
		t.Fatalf("expected only the main window created, got %d", got)
	}
	if st := o.WindowState(windowing.Main); !st.Exists {
		t.Fatalf("expected main window to exist")
	}
}

func TestStart_RestoresPersistedVisibility(t *testing.T) {
	d, _ := newTestDeps(t)
	if err := d.Store.SetWindowVisible(windowing.Chat, true); err != nil {
		t.Fatalf("seed visibility: %v", err)
	}
	o := NewOrchestrator(d, &fakeRenderer{})

	if err := o.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	st := o.WindowState(windowing.Chat)
	if !st.Exists || !st.Visible {
		t.Fatalf("expected chat restored visible, got %+v", st)
	}
	if st := o.WindowState(windowing.Settings); st.Exists {
		t.Fatalf("settings was never persisted visible, got %+v", st)
	}
}

func TestMainMove_RepositionsBubble(t *testing.T) {
	o, _, backend := newTestOrchestrator(t)
	if err := o.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := o.Say("hi"); err != nil {
		t.Fatalf("say: %v", err)
	}

	mainWin := backend.Window(windowing.Main)
	moved := windowing.Bounds{X: 600, Y: 500, Width: 320, Height: 480}
	if err := mainWin.SetBounds(moved); err != nil {
		t.Fatalf("move main: %v", err)
	}

	bubble := backend.Window(windowing.SpeechBubble)
	got, _ := bubble.Bounds()
	work, _ := backend.WorkArea()
	want := BubblePosition(got.Width, got.Height, moved, work, 2, 10)
	if got != want {
		t.Fatalf("expected bubble to follow main to %+v, got %+v", want, got)
	}
}

func TestChatVisibility_NotifiesMainContent(t *testing.T) {
	o, _, backend := newTestOrchestrator(t)
	if err := o.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	if err := o.ShowWindow(windowing.Chat); err != nil {
		t.Fatalf("show chat: %v", err)
	}
	if err := o.HideWindow(windowing.Chat); err != nil {
		t.Fatalf("hide chat: %v", err)
	}

	var notices []bus.VisibilityPayload
	for _, p := range backend.Window(windowing.Main).Posts() {
		if p.Channel == ChatVisibilityChannel {
			notices = append(notices, p.Payload.(bus.VisibilityPayload))
		}
	}
	if len(notices) != 2 || !notices[0].Visible || notices[1].Visible {
		t.Fatalf("expected shown then hidden notices, got %+v", notices)
	}
}

func TestToggleWindow(t *testing.T) {
	o, _, _ := newTestOrchestrator(t)

	if err := o.ToggleWindow(windowing.Settings); err != nil {
		t.Fatalf("first toggle: %v", err)
	}
	if st := o.WindowState(windowing.Settings); !st.Visible {
		t.Fatalf("expected settings visible after first toggle, got %+v", st)
	}

	if err := o.ToggleWindow(windowing.Settings); err != nil {
		t.Fatalf("second toggle: %v", err)
	}
	if st := o.WindowState(windowing.Settings); st.Visible {
		t.Fatalf("expected settings hidden after second toggle, got %+v", st)
	}
}

func TestSetWindowBounds_RoutesValidation(t *testing.T) {
	o, _, _ := newTestOrchestrator(t)
	if err := o.ShowWindow(windowing.Main); err != nil {
		t.Fatalf("show main: %v", err)
	}

	if err := o.SetWindowBounds(windowing.Main, windowing.Bounds{Width: 50, Height: 50}); err == nil {
		t.Fatalf("expected undersized bounds rejected")
	}
	if err := o.SetWindowBounds(windowing.Main, windowing.Bounds{X: 1, Y: 1, Width: 300, Height: 400}); err != nil {
		t.Fatalf("valid bounds rejected: %v", err)
	}
}

func TestUnknownWindowName(t *testing.T) {
	o, _, _ := newTestOrchestrator(t)
	if err := o.ShowWindow(windowing.Name("popup")); err == nil {
		t.Fatalf("expected unknown name rejected")
	}
}

func TestWindowStates_CoversEveryName(t *testing.T) {
	o, _, _ := newTestOrchestrator(t)
	if err := o.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	states := o.WindowStates()
	if len(states) != len(windowing.Names()) {
		t.Fatalf("expected a state per logical window, got %d", len(states))
	}
	if !states[windowing.Main].Exists {
		t.Fatalf("expected main to exist")
	}
	if states[windowing.SpeechBubble].Exists {
		t.Fatalf("bubble should not exist before the first say")
	}
}

func TestShutdown_ClosesEverything(t *testing.T) {
	o, d, _ := newTestOrchestrator(t)
	if err := o.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := o.Say("bye"); err != nil {
		t.Fatalf("say: %v", err)
	}

	o.Shutdown()

	for _, name := range windowing.Names() {
		if st := d.Registry.StateOf(name); st.Exists {
			t.Fatalf("window %q still registered after shutdown", name)
		}
	}
	if o.bubble.AutoHideActive() {
		t.Fatalf("expected bubble countdown cancelled by shutdown")
	}
}
