package controller

import (
	"fmt"
	"log/slog"

	"github.com/1broseidon/deskmate/internal/avatar"
	"github.com/1broseidon/deskmate/internal/bus"
	"github.com/1broseidon/deskmate/internal/windowing"
)

// ChatVisibilityChannel tells the main window content whether the chat panel
// is on screen, so the avatar can glance at it.
const ChatVisibilityChannel = "chat:visibility"

// Orchestrator composes the four controllers and wires their cross-window
// reactions. It is the single facade the message layer drives.
type Orchestrator struct {
	deps   Deps
	logger *slog.Logger

	main     *MainController
	chat     *ChatController
	settings *SettingsController
	bubble   *SpeechBubbleController
}

// NewOrchestrator builds the controllers over the shared deps and wires the
// cross-window reactions.
func NewOrchestrator(d Deps, renderer avatar.Renderer) *Orchestrator {
	o := &Orchestrator{deps: d, logger: d.logger()}

	o.main = NewMainController(d)
	o.chat = NewChatController(d)
	o.settings = NewSettingsController(d)
	o.bubble = NewSpeechBubbleController(d, renderer, o.main.Bounds)

	o.wire()
	return o
}

func (o *Orchestrator) wire() {
	// Main window moved: the bubble follows. Repositioning never toggles
	// visibility, so a hidden bubble just tracks silently.
	o.deps.Bus.Subscribe(bus.BoundsChanged, func(ev bus.Event) {
		if ev.Source != windowing.Main {
			return
		}
		o.bubble.Reposition()
	})

	// Chat visibility changed: tell the main window content.
	o.deps.Bus.Subscribe(bus.VisibilityChanged, func(ev bus.Event) {
		if ev.Source != windowing.Chat {
			return
		}
		h, ok := o.main.Handle()
		if !ok {
			return
		}
		if err := h.Post(ChatVisibilityChannel, ev.Payload); err != nil {
			o.logger.Warn("notify main of chat visibility failed", "error", err)
		}
	})
}

// Start opens the main window and restores any windows persisted as visible.
func (o *Orchestrator) Start() error {
	if _, err := o.main.Open(); err != nil {
		return fmt.Errorf("open main window: %w", err)
	}
	for _, c := range []Controller{o.chat, o.settings} {
		if v, ok := o.deps.Store.WindowVisible(c.Name()); ok && v {
			if err := c.Show(); err != nil {
				o.logger.Warn("restore window failed", "window", c.Name(), "error", err)
			}
		}
	}
	return nil
}

// Shutdown closes every window. Each controller's teardown cancels its
// pending timers.
func (o *Orchestrator) Shutdown() {
	o.deps.Registry.CloseAll()
}

// Main returns the main window's controller.
func (o *Orchestrator) Main() *MainController { return o.main }

// Chat returns the chat panel's controller.
func (o *Orchestrator) Chat() *ChatController { return o.chat }

// Settings returns the settings panel's controller.
func (o *Orchestrator) Settings() *SettingsController { return o.settings }

// Bubble returns the speech bubble's controller.
func (o *Orchestrator) Bubble() *SpeechBubbleController { return o.bubble }

// controllerFor resolves a logical name to its controller.
func (o *Orchestrator) controllerFor(name windowing.Name) (Controller, error) {
	switch name {
	case windowing.Main:
		return o.main, nil
	case windowing.Chat:
		return o.chat, nil
	case windowing.Settings:
		return o.settings, nil
	case windowing.SpeechBubble:
		return o.bubble, nil
	}
	return nil, fmt.Errorf("unknown window name %q", name)
}

// ShowWindow opens (if needed) and shows the named window.
func (o *Orchestrator) ShowWindow(name windowing.Name) error {
	c, err := o.controllerFor(name)
	if err != nil {
		return err
	}
	return c.Show()
}

// HideWindow hides the named window; absent windows are a no-op.
func (o *Orchestrator) HideWindow(name windowing.Name) error {
	c, err := o.controllerFor(name)
	if err != nil {
		return err
	}
	return c.Hide()
}

// ToggleWindow flips the named window's visibility.
func (o *Orchestrator) ToggleWindow(name windowing.Name) error {
	c, err := o.controllerFor(name)
	if err != nil {
		return err
	}
	return c.ToggleVisible()
}

// WindowBounds returns the named window's live bounds.
func (o *Orchestrator) WindowBounds(name windowing.Name) (windowing.Bounds, error) {
	c, err := o.controllerFor(name)
	if err != nil {
		return windowing.Bounds{}, err
	}
	b, ok := c.Bounds()
	if !ok {
		return windowing.Bounds{}, fmt.Errorf("window %q is not open", name)
	}
	return b, nil
}

// SetWindowBounds validates and applies bounds on the named window.
func (o *Orchestrator) SetWindowBounds(name windowing.Name, b windowing.Bounds) error {
	c, err := o.controllerFor(name)
	if err != nil {
		return err
	}
	return c.SetBounds(b)
}

// WindowState derives the registry's view of the named window.
func (o *Orchestrator) WindowState(name windowing.Name) windowing.State {
	return o.deps.Registry.StateOf(name)
}

// WindowStates reports the state of every logical window.
func (o *Orchestrator) WindowStates() map[windowing.Name]windowing.State {
	states := make(map[windowing.Name]windowing.State, len(windowing.Names()))
	for _, name := range windowing.Names() {
		states[name] = o.deps.Registry.StateOf(name)
	}
	return states
}

// Say shows text in the speech bubble over the main window.
func (o *Orchestrator) Say(text string) error {
	return o.bubble.ShowWithText(text)
}

// HideSpeech dismisses the bubble before its countdown expires.
func (o *Orchestrator) HideSpeech() error {
	return o.bubble.HideNow()
}
