// Package controller owns per-window lifecycle policy. Each controller wraps
// exactly one logical window: it opens it through the registry, persists
// bounds (debounced) and visibility (synchronous), and announces changes on
// the event bus. The orchestrator composes the four controllers and wires
// their cross-window reactions.
package controller

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/1broseidon/deskmate/internal/bus"
	"github.com/1broseidon/deskmate/internal/config"
	"github.com/1broseidon/deskmate/internal/faults"
	"github.com/1broseidon/deskmate/internal/settings"
	"github.com/1broseidon/deskmate/internal/timing"
	"github.com/1broseidon/deskmate/internal/windowing"
)

// Phase is the controller lifecycle state.
type Phase string

const (
	PhaseUnopened Phase = "unopened"
	PhaseOpening  Phase = "opening"
	PhaseOpen     Phase = "open"
	PhaseClosed   Phase = "closed"
)

// Deps are the injected services every controller builds on. There are no
// package-level singletons; tests construct Deps over the in-memory backend.
type Deps struct {
	Registry *windowing.Registry
	Backend  windowing.Backend
	Store    *settings.Store
	Bus      *bus.Bus
	Faults   *faults.Handler
	Config   *config.Config
	Logger   *slog.Logger
}

func (d Deps) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

// contentFor maps a logical window to the UI bundle it loads.
func contentFor(name windowing.Name) string {
	return "ui/" + string(name) + "/index.html"
}

// Controller is the common per-window surface the orchestrator and the
// message layer drive.
type Controller interface {
	Name() windowing.Name
	Open() (windowing.Handle, error)
	Show() error
	Hide() error
	ToggleVisible() error
	Close() error
	Bounds() (windowing.Bounds, bool)
	SetBounds(windowing.Bounds) error
	Phase() Phase
	Handle() (windowing.Handle, bool)
}

// windowController is the shared lifecycle state machine
// (Unopened → Opening → Open → Closed).
type windowController struct {
	name     windowing.Name
	deps     Deps
	logger   *slog.Logger
	debounce *timing.Debouncer

	// openMu serializes the whole open sequence (create + wire); mu alone
	// would let a second caller slip past the phase check during native
	// construction and register the event subscriptions twice.
	openMu sync.Mutex

	mu         sync.Mutex
	phase      Phase
	handle     windowing.Handle
	cancels    []func()
	onTeardown []func()

	// persistPaused suppresses the debounced bounds write while the window
	// is in a transient geometry (collapsed chat).
	persistPaused bool
}

func newWindowController(name windowing.Name, d Deps) windowController {
	return windowController{
		name:     name,
		deps:     d,
		logger:   d.logger().With("window", name),
		debounce: timing.NewDebouncer(d.Config.Debounce()),
		phase:    PhaseUnopened,
	}
}

// Name returns the logical window this controller owns.
func (c *windowController) Name() windowing.Name { return c.name }

// Phase returns the current lifecycle phase.
func (c *windowController) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Handle returns the live window handle, if the controller is open.
func (c *windowController) Handle() (windowing.Handle, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.handle == nil || c.handle.Destroyed() {
		return nil, false
	}
	return c.handle, true
}

// Open brings the window up, creating it when needed. When the window is
// already open it is focused and returned; creation is idempotent through the
// registry, and concurrent calls serialize so the event subscriptions are
// wired exactly once. On construction failure the phase returns to Unopened.
func (c *windowController) Open() (windowing.Handle, error) {
	c.openMu.Lock()
	defer c.openMu.Unlock()

	c.mu.Lock()
	if c.phase == PhaseOpen && c.handle != nil && !c.handle.Destroyed() {
		h := c.handle
		c.mu.Unlock()
		if err := h.Focus(); err != nil {
			c.logger.Warn("focus failed", "error", err)
		}
		return h, nil
	}
	c.phase = PhaseOpening
	c.mu.Unlock()

	cfg := windowing.DefaultConfig(c.name)
	if b, ok := c.deps.Store.WindowBounds(c.name); ok {
		// State files are edited by hand and survive minimum changes;
		// bounds below the class minimum fall back to the defaults.
		if err := settings.ValidateBounds(c.name, b); err != nil {
			c.logger.Warn("ignoring persisted bounds", "error", err)
		} else {
			cfg.Width, cfg.Height = b.Width, b.Height
			x, y := b.X, b.Y
			cfg.X, cfg.Y = &x, &y
		}
	}

	h, err := c.deps.Registry.Create(c.name, cfg, contentFor(c.name))
	if err != nil {
		c.mu.Lock()
		c.phase = PhaseUnopened
		c.mu.Unlock()
		c.deps.Faults.Report(err,
			faults.Origin{Component: "controller." + string(c.name), Operation: "Open"}, nil)
		return nil, err
	}

	c.mu.Lock()
	c.handle = h
	c.phase = PhaseOpen
	c.persistPaused = false
	c.cancels = append(c.cancels,
		h.Subscribe(windowing.EventMoved, c.onBoundsEvent),
		h.Subscribe(windowing.EventResized, c.onBoundsEvent),
		h.Subscribe(windowing.EventShown, func(windowing.Event) { c.onVisibility(true) }),
		h.Subscribe(windowing.EventHidden, func(windowing.Event) { c.onVisibility(false) }),
		h.Subscribe(windowing.EventClosed, func(windowing.Event) { c.teardown() }),
	)
	c.mu.Unlock()

	return h, nil
}

// Show opens the window if needed and makes it visible.
func (c *windowController) Show() error {
	h, err := c.Open()
	if err != nil {
		return err
	}
	return h.Show()
}

// Hide makes the window invisible. A window that is not open is a no-op, not
// an error.
func (c *windowController) Hide() error {
	h, ok := c.Handle()
	if !ok {
		c.logger.Debug("hide ignored, window not open")
		return nil
	}
	return h.Hide()
}

// ToggleVisible flips visibility, opening the window when absent.
func (c *windowController) ToggleVisible() error {
	if h, ok := c.Handle(); ok && h.Visible() {
		return h.Hide()
	}
	return c.Show()
}

// Bounds returns the window's live bounds.
func (c *windowController) Bounds() (windowing.Bounds, bool) {
	h, ok := c.Handle()
	if !ok {
		return windowing.Bounds{}, false
	}
	b, err := h.Bounds()
	if err != nil {
		c.logger.Warn("read bounds failed", "error", err)
		return windowing.Bounds{}, false
	}
	return b, true
}

// SetBounds validates against the class minimum and applies the bounds.
// Violations are rejected, never clamped.
func (c *windowController) SetBounds(b windowing.Bounds) error {
	if err := settings.ValidateBounds(c.name, b); err != nil {
		return err
	}
	h, ok := c.Handle()
	if !ok {
		return fmt.Errorf("window %q is not open", c.name)
	}
	return h.SetBounds(b)
}

// Close closes the native window. Teardown runs once via the closed event.
func (c *windowController) Close() error {
	h, ok := c.Handle()
	if !ok {
		return nil
	}
	return h.Close()
}

// onBoundsEvent announces the move immediately and schedules the debounced
// persistent write. A burst of events produces one write with the latest
// bounds.
func (c *windowController) onBoundsEvent(ev windowing.Event) {
	b := ev.Bounds
	c.deps.Bus.Publish(bus.Event{
		Kind:    bus.BoundsChanged,
		Source:  c.name,
		Payload: bus.BoundsPayload{Bounds: b},
	})

	c.mu.Lock()
	paused := c.persistPaused
	c.mu.Unlock()
	if paused {
		return
	}

	c.debounce.Schedule(func() {
		if err := c.deps.Store.SetWindowBounds(c.name, b); err != nil {
			c.deps.Faults.Report(err,
				faults.Origin{Component: "controller." + string(c.name), Operation: "persistBounds"},
				map[string]any{"bounds": b})
		}
	})
}

// onVisibility persists visibility synchronously and announces the change.
func (c *windowController) onVisibility(visible bool) {
	if err := c.deps.Store.SetWindowVisible(c.name, visible); err != nil {
		c.deps.Faults.Report(err,
			faults.Origin{Component: "controller." + string(c.name), Operation: "persistVisibility"}, nil)
	}
	c.deps.Bus.Publish(bus.Event{
		Kind:    bus.VisibilityChanged,
		Source:  c.name,
		Payload: bus.VisibilityPayload{Visible: visible},
	})
}

// setPersistPaused controls the transient-geometry persistence guard.
func (c *windowController) setPersistPaused(paused bool) {
	c.mu.Lock()
	c.persistPaused = paused
	c.mu.Unlock()
	if paused {
		c.debounce.Stop()
	}
}

// teardown runs exactly once per open window: it stops every pending timer,
// drops the event subscriptions, and clears the handle so no callback can
// fire against a destroyed window.
func (c *windowController) teardown() {
	c.mu.Lock()
	if c.phase == PhaseClosed {
		c.mu.Unlock()
		return
	}
	c.phase = PhaseClosed
	cancels := c.cancels
	hooks := c.onTeardown
	c.cancels = nil
	c.handle = nil
	c.mu.Unlock()

	c.debounce.Stop()
	for _, cancel := range cancels {
		cancel()
	}
	for _, hook := range hooks {
		hook()
	}

	c.deps.Bus.Publish(bus.Event{Kind: bus.WindowClosed, Source: c.name})
	c.logger.Info("window torn down")
}

// MainController owns the avatar surface.
type MainController struct {
	windowController
}

// NewMainController builds the main window's controller.
func NewMainController(d Deps) *MainController {
	return &MainController{windowController: newWindowController(windowing.Main, d)}
}

// SettingsController owns the settings panel.
type SettingsController struct {
	windowController
}

// NewSettingsController builds the settings window's controller.
func NewSettingsController(d Deps) *SettingsController {
	return &SettingsController{windowController: newWindowController(windowing.Settings, d)}
}
