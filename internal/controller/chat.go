package controller

import (
	"fmt"
	"sync"

	"github.com/1broseidon/deskmate/internal/windowing"
)

// Collapsed chat keeps only the header bar visible. The class minimum is
// lowered for the duration so the native window accepts the small height.
const (
	chatCollapsedHeight    = 48
	chatCollapsedMinHeight = 40
)

// ChatController owns the chat panel and its collapsed/expanded size mode.
type ChatController struct {
	windowController

	collapseMu sync.Mutex
	// expandedBounds is the snapshot taken on collapse; nil means expanded.
	expandedBounds *windowing.Bounds
}

// NewChatController builds the chat window's controller.
func NewChatController(d Deps) *ChatController {
	c := &ChatController{windowController: newWindowController(windowing.Chat, d)}
	// A destroyed window comes back expanded.
	c.onTeardown = append(c.onTeardown, func() {
		c.collapseMu.Lock()
		c.expandedBounds = nil
		c.collapseMu.Unlock()
	})
	return c
}

// Collapsed reports whether the panel is in collapsed mode.
func (c *ChatController) Collapsed() bool {
	c.collapseMu.Lock()
	defer c.collapseMu.Unlock()
	return c.expandedBounds != nil
}

// Collapse shrinks the panel to its header while keeping the bottom edge
// fixed: the top edge moves down by the height delta. The expanded bounds are
// snapshotted once; repeated calls without an expand are no-ops.
func (c *ChatController) Collapse() error {
	h, ok := c.Handle()
	if !ok {
		return fmt.Errorf("window %q is not open", c.name)
	}

	c.collapseMu.Lock()
	defer c.collapseMu.Unlock()
	if c.expandedBounds != nil {
		return nil
	}

	cur, err := h.Bounds()
	if err != nil {
		return fmt.Errorf("read bounds before collapse: %w", err)
	}

	minW, _ := windowing.MinSize(windowing.Chat)
	if err := h.SetMinSize(minW, chatCollapsedMinHeight); err != nil {
		return fmt.Errorf("lower min size: %w", err)
	}

	// The collapsed geometry is transient and must not overwrite the
	// persisted expanded bounds.
	c.setPersistPaused(true)

	collapsed := windowing.Bounds{
		X:      cur.X,
		Y:      cur.Y + cur.Height - chatCollapsedHeight,
		Width:  cur.Width,
		Height: chatCollapsedHeight,
	}
	if err := h.SetBounds(collapsed); err != nil {
		c.setPersistPaused(false)
		minW, minH := windowing.MinSize(windowing.Chat)
		h.SetMinSize(minW, minH)
		return fmt.Errorf("apply collapsed bounds: %w", err)
	}

	snap := cur
	c.expandedBounds = &snap
	return nil
}

// Expand restores the snapshotted bounds and the class minimum. A panel that
// is already expanded is a no-op.
func (c *ChatController) Expand() error {
	h, ok := c.Handle()
	if !ok {
		return fmt.Errorf("window %q is not open", c.name)
	}

	c.collapseMu.Lock()
	defer c.collapseMu.Unlock()
	if c.expandedBounds == nil {
		return nil
	}

	minW, minH := windowing.MinSize(windowing.Chat)
	if err := h.SetMinSize(minW, minH); err != nil {
		return fmt.Errorf("restore min size: %w", err)
	}
	c.setPersistPaused(false)
	if err := h.SetBounds(*c.expandedBounds); err != nil {
		return fmt.Errorf("restore expanded bounds: %w", err)
	}

	c.expandedBounds = nil
	return nil
}

// ToggleCollapsed flips the size mode.
func (c *ChatController) ToggleCollapsed() error {
	if c.Collapsed() {
		return c.Expand()
	}
	return c.Collapse()
}
