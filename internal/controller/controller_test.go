package controller

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/1broseidon/deskmate/internal/bus"
	"github.com/1broseidon/deskmate/internal/config"
	"github.com/1broseidon/deskmate/internal/faults"
	"github.com/1broseidon/deskmate/internal/settings"
	"github.com/1broseidon/deskmate/internal/windowing"
)

const testDebounce = 30 * time.Millisecond

func newTestDeps(t *testing.T) (Deps, *windowing.MemoryBackend) {
	t.Helper()
	backend := windowing.NewMemoryBackend()
	return newTestDepsWith(t, backend), backend
}

func newTestDepsWith(t *testing.T, backend windowing.Backend) Deps {
	t.Helper()

	store, err := settings.NewStore(filepath.Join(t.TempDir(), "state.yaml"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	cfg := config.DefaultConfig()
	cfg.DebounceMs = int(testDebounce / time.Millisecond)

	return Deps{
		Registry: windowing.NewRegistry(backend, logger),
		Backend:  backend,
		Store:    store,
		Bus:      bus.New(),
		Faults:   faults.NewHandler(faults.NewLog(50), logger),
		Config:   cfg,
		Logger:   logger,
	}
}

// slowBackend stretches native construction so a second caller can reach
// Open while the first is still inside CreateWindow.
type slowBackend struct {
	*windowing.MemoryBackend
	delay time.Duration
}

func (b *slowBackend) CreateWindow(name windowing.Name, cfg windowing.Config, content string) (windowing.Handle, error) {
	time.Sleep(b.delay)
	return b.MemoryBackend.CreateWindow(name, cfg, content)
}

// fakeRenderer records expression resets for the bubble tests.
type fakeRenderer struct {
	mu     sync.Mutex
	resets int
}

func (f *fakeRenderer) SetExpression(string) error { return nil }
func (f *fakeRenderer) Current() string            { return "neutral" }

func (f *fakeRenderer) ResetToDefault() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets++
	return true
}

func (f *fakeRenderer) Resets() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.resets
}

func TestOpen_SecondCallFocusesExistingWindow(t *testing.T) {
	d, backend := newTestDeps(t)
	c := NewMainController(d)

	h1, err := c.Open()
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	h2, err := c.Open()
	if err != nil {
		t.Fatalf("second open: %v", err)
	}

	if h1 != h2 {
		t.Fatalf("expected the same handle from both opens")
	}
	if got := backend.CreateCount(); got != 1 {
		t.Fatalf("expected one native construction, got %d", got)
	}
	if got := backend.Window(windowing.Main).FocusCount(); got != 1 {
		t.Fatalf("expected the second open to focus, got %d focuses", got)
	}
	if got := c.Phase(); got != PhaseOpen {
		t.Fatalf("expected open phase, got %q", got)
	}
}

func TestOpen_FailureLeavesUnopenedAndRecordsFault(t *testing.T) {
	d, backend := newTestDeps(t)
	backend.FailCreate = errors.New("window creation failed")
	c := NewMainController(d)

	if _, err := c.Open(); err == nil {
		t.Fatalf("expected construction failure")
	}
	if got := c.Phase(); got != PhaseUnopened {
		t.Fatalf("expected unopened phase after failure, got %q", got)
	}
	if got := d.Faults.Log().Len(); got != 1 {
		t.Fatalf("expected one recorded fault, got %d", got)
	}
}

func TestOpen_AppliesPersistedBounds(t *testing.T) {
	d, backend := newTestDeps(t)
	want := windowing.Bounds{X: 70, Y: 80, Width: 330, Height: 490}
	if err := d.Store.SetWindowBounds(windowing.Main, want); err != nil {
		t.Fatalf("seed bounds: %v", err)
	}

	c := NewMainController(d)
	if _, err := c.Open(); err != nil {
		t.Fatalf("open: %v", err)
	}

	got, err := backend.Window(windowing.Main).Bounds()
	if err != nil {
		t.Fatalf("bounds: %v", err)
	}
	if got != want {
		t.Fatalf("expected window at persisted bounds %+v, got %+v", want, got)
	}
}

func TestOpen_ConcurrentCallsWireListenersOnce(t *testing.T) {
	backend := &slowBackend{MemoryBackend: windowing.NewMemoryBackend(), delay: 50 * time.Millisecond}
	d := newTestDepsWith(t, backend)
	c := NewMainController(d)

	var (
		wg      sync.WaitGroup
		handles [2]windowing.Handle
		errs    [2]error
	)
	for i := range handles {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			handles[i], errs[i] = c.Open()
		}(i)
		// The second caller arrives while the first is inside CreateWindow.
		time.Sleep(10 * time.Millisecond)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("open %d: %v", i, err)
		}
	}
	if handles[0] != handles[1] {
		t.Fatalf("expected both opens to return the same handle")
	}
	if got := backend.CreateCount(); got != 1 {
		t.Fatalf("expected one native construction, got %d", got)
	}
	// One registry closed-listener plus the controller's five subscriptions;
	// a double-wired controller would show up as five extras.
	if got := backend.Window(windowing.Main).SubscriberCount(); got != 6 {
		t.Fatalf("expected 6 listeners after concurrent opens, got %d", got)
	}
}

func TestOpen_UndersizedPersistedBoundsFallBackToDefaults(t *testing.T) {
	d, backend := newTestDeps(t)

	// The store rejects undersized writes, so a hand-edited state file is the
	// only way such bounds reach Open.
	statePath := filepath.Join(t.TempDir(), "state.yaml")
	corrupt := "windows:\n  main:\n    bounds: {x: 5, y: 5, width: 10, height: 10}\n"
	if err := os.WriteFile(statePath, []byte(corrupt), 0600); err != nil {
		t.Fatalf("seed state file: %v", err)
	}
	store, err := settings.NewStore(statePath)
	if err != nil {
		t.Fatalf("open seeded store: %v", err)
	}
	d.Store = store

	c := NewMainController(d)
	if _, err := c.Open(); err != nil {
		t.Fatalf("open: %v", err)
	}

	got, err := backend.Window(windowing.Main).Bounds()
	if err != nil {
		t.Fatalf("bounds: %v", err)
	}
	def := windowing.DefaultConfig(windowing.Main)
	if got.Width != def.Width || got.Height != def.Height {
		t.Fatalf("expected default size %dx%d, got %dx%d",
			def.Width, def.Height, got.Width, got.Height)
	}
}

func TestBounds_BurstCoalescesToOnePersistedWrite(t *testing.T) {
	d, _ := newTestDeps(t)
	c := NewMainController(d)
	h, err := c.Open()
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	var last windowing.Bounds
	for i := 1; i <= 5; i++ {
		last = windowing.Bounds{X: 10 * i, Y: 20, Width: 320, Height: 480}
		if err := h.SetBounds(last); err != nil {
			t.Fatalf("set bounds %d: %v", i, err)
		}
	}

	// Inside the debounce window: nothing persisted yet.
	if _, ok := d.Store.WindowBounds(windowing.Main); ok {
		t.Fatalf("bounds persisted before the debounce elapsed")
	}

	time.Sleep(testDebounce + 30*time.Millisecond)

	got, ok := d.Store.WindowBounds(windowing.Main)
	if !ok {
		t.Fatalf("expected persisted bounds after debounce")
	}
	if got != last {
		t.Fatalf("expected the latest bounds %+v, got %+v", last, got)
	}
}

func TestVisibility_PersistedSynchronouslyAndAnnounced(t *testing.T) {
	d, _ := newTestDeps(t)

	var events []bus.VisibilityPayload
	d.Bus.Subscribe(bus.VisibilityChanged, func(ev bus.Event) {
		if ev.Source == windowing.Chat {
			events = append(events, ev.Payload.(bus.VisibilityPayload))
		}
	})

	c := NewChatController(d)
	if err := c.Show(); err != nil {
		t.Fatalf("show: %v", err)
	}

	// Synchronous: no debounce wait.
	if v, ok := d.Store.WindowVisible(windowing.Chat); !ok || !v {
		t.Fatalf("expected visible=true persisted immediately")
	}

	if err := c.Hide(); err != nil {
		t.Fatalf("hide: %v", err)
	}
	if v, ok := d.Store.WindowVisible(windowing.Chat); !ok || v {
		t.Fatalf("expected visible=false persisted immediately")
	}

	if len(events) != 2 || !events[0].Visible || events[1].Visible {
		t.Fatalf("expected shown then hidden on the bus, got %+v", events)
	}
}

func TestSetBounds_RejectsBelowMinimum(t *testing.T) {
	d, _ := newTestDeps(t)
	c := NewMainController(d)
	h, err := c.Open()
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	good := windowing.Bounds{X: 5, Y: 5, Width: 320, Height: 480}
	if err := c.SetBounds(good); err != nil {
		t.Fatalf("good bounds: %v", err)
	}
	time.Sleep(testDebounce + 30*time.Millisecond)

	if err := c.SetBounds(windowing.Bounds{Width: 50, Height: 50}); err == nil {
		t.Fatalf("expected 50x50 to be rejected for main")
	}

	if live, _ := h.Bounds(); live != good {
		t.Fatalf("live bounds must be unchanged after rejection, got %+v", live)
	}
	if persisted, ok := d.Store.WindowBounds(windowing.Main); !ok || persisted != good {
		t.Fatalf("persisted bounds must be unchanged after rejection, got %+v", persisted)
	}
}

func TestClose_TeardownCancelsTimersAndListeners(t *testing.T) {
	d, backend := newTestDeps(t)
	c := NewMainController(d)
	h, err := c.Open()
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	// Leave a debounced write pending, then close before it fires.
	if err := h.SetBounds(windowing.Bounds{X: 11, Y: 22, Width: 320, Height: 480}); err != nil {
		t.Fatalf("set bounds: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	time.Sleep(testDebounce + 30*time.Millisecond)
	if _, ok := d.Store.WindowBounds(windowing.Main); ok {
		t.Fatalf("pending debounce must not fire after close")
	}

	if got := c.Phase(); got != PhaseClosed {
		t.Fatalf("expected closed phase, got %q", got)
	}
	if _, ok := c.Handle(); ok {
		t.Fatalf("expected no handle after close")
	}
	if got := backend.Window(windowing.Main).SubscriberCount(); got != 0 {
		t.Fatalf("expected all listeners removed, %d remain", got)
	}

	// Closing again is a no-op.
	if err := c.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}

func TestOpen_AfterCloseCreatesFreshWindow(t *testing.T) {
	d, backend := newTestDeps(t)
	c := NewMainController(d)

	h1, err := c.Open()
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	h2, err := c.Open()
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if h1 == h2 {
		t.Fatalf("expected a fresh handle after close")
	}
	if got := backend.CreateCount(); got != 2 {
		t.Fatalf("expected two native constructions, got %d", got)
	}
}

func TestHide_WhenNotOpenIsNoOp(t *testing.T) {
	d, _ := newTestDeps(t)
	c := NewSettingsController(d)
	if err := c.Hide(); err != nil {
		t.Fatalf("hide on unopened window must be a no-op, got %v", err)
	}
}
