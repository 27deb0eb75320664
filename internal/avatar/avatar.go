// Package avatar tracks the companion's current expression and resolves the
// configured default. Rendering itself happens in the UI layer; the daemon
// only manages which expression is active.
package avatar

import (
	"fmt"
	"sync"

	"github.com/1broseidon/deskmate/internal/settings"
)

// FallbackExpression is used when no default has been persisted.
const FallbackExpression = "neutral"

// knownExpressions is the closed set the renderer supports.
var knownExpressions = map[string]bool{
	"neutral":  true,
	"happy":    true,
	"thinking": true,
	"sleepy":   true,
	"excited":  true,
	"confused": true,
}

// Renderer is the surface the speech bubble lifecycle drives.
type Renderer interface {
	// SetExpression switches to the named expression.
	SetExpression(name string) error
	// ResetToDefault restores the persisted default expression. It reports
	// whether the expression actually changed.
	ResetToDefault() bool
	// Current returns the active expression.
	Current() string
}

// Controller is the store-backed Renderer.
type Controller struct {
	mu      sync.Mutex
	store   *settings.Store
	current string
}

// NewController builds a Controller starting at the persisted default.
func NewController(store *settings.Store) *Controller {
	c := &Controller{store: store}
	c.current = c.defaultExpression()
	return c
}

// Known reports whether name is a supported expression.
func Known(name string) bool {
	return knownExpressions[name]
}

// Expressions lists the supported expression names.
func Expressions() []string {
	names := make([]string, 0, len(knownExpressions))
	for name := range knownExpressions {
		names = append(names, name)
	}
	return names
}

// SetExpression switches to the named expression.
func (c *Controller) SetExpression(name string) error {
	if !Known(name) {
		return fmt.Errorf("avatar: unknown expression %q", name)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = name
	return nil
}

// ResetToDefault restores the persisted default expression.
func (c *Controller) ResetToDefault() bool {
	def := c.defaultExpression()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == def {
		return false
	}
	c.current = def
	return true
}

// Current returns the active expression.
func (c *Controller) Current() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// SetDefault validates and persists the default expression.
func (c *Controller) SetDefault(name string) error {
	if !Known(name) {
		return fmt.Errorf("avatar: unknown expression %q", name)
	}
	return c.store.SetDefaultExpression(name)
}

// Default returns the persisted default expression, or the fallback.
func (c *Controller) Default() string {
	return c.defaultExpression()
}

func (c *Controller) defaultExpression() string {
	if def := c.store.DefaultExpression(); def != "" && Known(def) {
		return def
	}
	return FallbackExpression
}
