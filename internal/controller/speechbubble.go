package controller

import (
	"math"
	"time"

	"github.com/1broseidon/deskmate/internal/avatar"
	"github.com/1broseidon/deskmate/internal/bus"
	"github.com/1broseidon/deskmate/internal/faults"
	"github.com/1broseidon/deskmate/internal/timing"
	"github.com/1broseidon/deskmate/internal/windowing"
)

// SpeechTextChannel carries the bubble text into the window content.
const SpeechTextChannel = "speech:text"

// SpeechBubbleController owns the ephemeral speech bubble: its position
// relative to the main window and the auto-hide countdown.
type SpeechBubbleController struct {
	windowController

	renderer   avatar.Renderer
	mainBounds func() (windowing.Bounds, bool)
	autoHide   timing.RestartTimer
	timeout    time.Duration
	gap        int
	margin     int
}

// NewSpeechBubbleController builds the bubble's controller. mainBounds
// resolves the main window's live bounds for the position algorithm.
func NewSpeechBubbleController(d Deps, renderer avatar.Renderer, mainBounds func() (windowing.Bounds, bool)) *SpeechBubbleController {
	c := &SpeechBubbleController{
		windowController: newWindowController(windowing.SpeechBubble, d),
		renderer:         renderer,
		mainBounds:       mainBounds,
		timeout:          d.Config.BubbleTimeout(),
		gap:              d.Config.Bubble.GapPx,
		margin:           d.Config.Bubble.WorkMarginPx,
	}
	// Destroying the window must cancel the countdown so the hide callback
	// never fires against a dead handle.
	c.onTeardown = append(c.onTeardown, c.autoHide.Stop)
	return c
}

// BubblePosition computes where the bubble sits relative to the main window:
// centered horizontally, bottom edge a small gap above the main window's top.
// Only the vertical position is clamped to the work area; size below the
// class minimum is raised to it.
func BubblePosition(w, h int, main windowing.Bounds, work windowing.Rect, gap, margin int) windowing.Bounds {
	minW, minH := windowing.MinSize(windowing.SpeechBubble)
	if w < minW {
		w = minW
	}
	if h < minH {
		h = minH
	}

	bx := main.X + int(math.Round(float64(main.Width-w)/2))
	by := main.Y - h - gap
	if by < work.Y+margin {
		by = work.Y + margin
	}
	return windowing.Bounds{X: bx, Y: by, Width: w, Height: h}
}

// ShowWithText loads text into the bubble, positions it over the main window,
// shows it, and (re)starts the auto-hide countdown. A second call before the
// countdown expires restarts it; timers never stack.
func (c *SpeechBubbleController) ShowWithText(text string) error {
	h, err := c.Open()
	if err != nil {
		return err
	}

	if err := h.Post(SpeechTextChannel, text); err != nil {
		c.deps.Faults.Report(err,
			faults.Origin{Component: "controller.speechBubble", Operation: "postText"}, nil)
	}

	c.Reposition()

	if !h.Visible() {
		if err := h.Show(); err != nil {
			return err
		}
	}
	c.deps.Bus.Publish(bus.Event{Kind: bus.SpeechShown, Source: c.name})

	c.autoHide.Start(c.timeout, c.expire)
	return nil
}

// HideNow hides the bubble immediately and cancels the countdown.
func (c *SpeechBubbleController) HideNow() error {
	c.autoHide.Stop()
	c.hideAndReset()
	return nil
}

// Reposition recomputes the bubble's bounds from the main window's current
// position. Visibility is never toggled here; only the explicit show/hide
// paths do that.
func (c *SpeechBubbleController) Reposition() {
	h, ok := c.Handle()
	if !ok {
		return
	}
	main, ok := c.mainBounds()
	if !ok {
		c.logger.Debug("reposition skipped, main window not open")
		return
	}
	work, err := c.deps.Backend.WorkArea()
	if err != nil {
		c.logger.Warn("work area unavailable", "error", err)
		work = windowing.Rect{}
	}

	cur, err := h.Bounds()
	if err != nil {
		c.logger.Warn("read bubble bounds failed", "error", err)
		return
	}

	pos := BubblePosition(cur.Width, cur.Height, main, work, c.gap, c.margin)
	if err := h.SetBounds(pos); err != nil {
		c.logger.Warn("reposition failed", "error", err)
	}
}

// AutoHideActive reports whether the countdown is pending.
func (c *SpeechBubbleController) AutoHideActive() bool {
	return c.autoHide.Active()
}

func (c *SpeechBubbleController) expire() {
	c.hideAndReset()
}

func (c *SpeechBubbleController) hideAndReset() {
	if h, ok := c.Handle(); ok && h.Visible() {
		if err := h.Hide(); err != nil {
			c.logger.Warn("hide bubble failed", "error", err)
		}
	}
	if c.renderer != nil {
		c.renderer.ResetToDefault()
	}
	c.deps.Bus.Publish(bus.Event{Kind: bus.SpeechHidden, Source: c.name})
}
