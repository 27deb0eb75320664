package windowing

import (
	"errors"
	"testing"
)

func TestCreate_IsIdempotentForLiveWindow(t *testing.T) {
	backend := NewMemoryBackend()
	reg := NewRegistry(backend, nil)

	first, err := reg.Create(Main, DefaultConfig(Main), "main.html")
	if err != nil {
		t.Fatalf("first create: %v", err)
	}
	second, err := reg.Create(Main, DefaultConfig(Main), "main.html")
	if err != nil {
		t.Fatalf("second create: %v", err)
	}

	if first != second {
		t.Fatalf("expected the same handle on duplicate create")
	}
	if got := backend.CreateCount(); got != 1 {
		t.Fatalf("expected 1 native construction, got %d", got)
	}
	if got := backend.Window(Main).FocusCount(); got != 1 {
		t.Fatalf("expected duplicate create to focus existing window once, got %d", got)
	}
}

func TestCreate_RejectsUnknownName(t *testing.T) {
	reg := NewRegistry(NewMemoryBackend(), nil)
	if _, err := reg.Create(Name("popup"), Config{Width: 10, Height: 10}, ""); err == nil {
		t.Fatalf("expected error for unknown window name")
	}
}

func TestCreate_PropagatesBackendFailure(t *testing.T) {
	backend := NewMemoryBackend()
	backend.FailCreate = errors.New("display gone")
	reg := NewRegistry(backend, nil)

	if _, err := reg.Create(Main, DefaultConfig(Main), ""); err == nil {
		t.Fatalf("expected create failure")
	}
	if _, ok := reg.Get(Main); ok {
		t.Fatalf("failed create must not register a handle")
	}
}

func TestGet_AbsentAfterClose(t *testing.T) {
	backend := NewMemoryBackend()
	reg := NewRegistry(backend, nil)

	h, err := reg.Create(Chat, DefaultConfig(Chat), "chat.html")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, ok := reg.Get(Chat); !ok {
		t.Fatalf("expected live handle before close")
	}

	if err := h.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, ok := reg.Get(Chat); ok {
		t.Fatalf("expected absent after closed event")
	}
	if got := reg.StateOf(Chat); got.Exists {
		t.Fatalf("expected Exists=false after close, got %+v", got)
	}
}

func TestCreate_AfterCloseConstructsNewWindow(t *testing.T) {
	backend := NewMemoryBackend()
	reg := NewRegistry(backend, nil)

	h, err := reg.Create(Main, DefaultConfig(Main), "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := h.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	again, err := reg.Create(Main, DefaultConfig(Main), "")
	if err != nil {
		t.Fatalf("re-create: %v", err)
	}
	if again == h {
		t.Fatalf("expected a fresh handle after close")
	}
	if got := backend.CreateCount(); got != 2 {
		t.Fatalf("expected 2 native constructions, got %d", got)
	}
}

func TestCloseAll_ToleratesDestroyedHandles(t *testing.T) {
	backend := NewMemoryBackend()
	reg := NewRegistry(backend, nil)

	hMain, _ := reg.Create(Main, DefaultConfig(Main), "")
	hChat, _ := reg.Create(Chat, DefaultConfig(Chat), "")

	if err := hChat.Close(); err != nil {
		t.Fatalf("close chat: %v", err)
	}

	reg.CloseAll()

	if !hMain.Destroyed() {
		t.Fatalf("expected main to be closed by CloseAll")
	}
	if len(reg.Names()) != 0 {
		t.Fatalf("expected empty registry, got %v", reg.Names())
	}
}

func TestPrune_DropsVanishedWindows(t *testing.T) {
	backend := NewMemoryBackend()
	reg := NewRegistry(backend, nil)

	if _, err := reg.Create(Settings, DefaultConfig(Settings), ""); err != nil {
		t.Fatalf("create: %v", err)
	}

	// Simulate the native window dying without a closed event reaching the
	// registry: mark destroyed directly on the backing window.
	backend.Window(Settings).destroyed = true

	dropped := reg.Prune()
	if len(dropped) != 1 || dropped[0] != Settings {
		t.Fatalf("expected settings pruned, got %v", dropped)
	}
	if _, ok := reg.Get(Settings); ok {
		t.Fatalf("expected settings absent after prune")
	}
}

func TestMemoryWindow_SameKindEventsPreserveOrder(t *testing.T) {
	backend := NewMemoryBackend()
	h, err := backend.CreateWindow(Main, DefaultConfig(Main), "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	var seen []int
	h.Subscribe(EventMoved, func(ev Event) {
		seen = append(seen, ev.Bounds.X)
	})

	for i := 1; i <= 5; i++ {
		if err := h.SetBounds(Bounds{X: i * 10, Y: 0, Width: 320, Height: 480}); err != nil {
			t.Fatalf("set bounds: %v", err)
		}
	}

	if len(seen) != 5 {
		t.Fatalf("expected 5 moved events, got %d", len(seen))
	}
	for i, x := range seen {
		if x != (i+1)*10 {
			t.Fatalf("event %d out of order: got x=%d", i, x)
		}
	}
}
