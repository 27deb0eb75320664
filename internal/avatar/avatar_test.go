package avatar

import (
	"path/filepath"
	"testing"

	"github.com/1broseidon/deskmate/internal/settings"
)

func newTestController(t *testing.T) *Controller {
	t.Helper()
	store, err := settings.NewStore(filepath.Join(t.TempDir(), "state.yaml"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return NewController(store)
}

func TestNewController_StartsAtFallback(t *testing.T) {
	c := newTestController(t)
	if got := c.Current(); got != FallbackExpression {
		t.Fatalf("expected %q, got %q", FallbackExpression, got)
	}
}

func TestSetExpression_RejectsUnknown(t *testing.T) {
	c := newTestController(t)
	if err := c.SetExpression("grumpy"); err == nil {
		t.Fatalf("expected rejection of unknown expression")
	}
	if err := c.SetExpression("happy"); err != nil {
		t.Fatalf("happy should be accepted: %v", err)
	}
	if got := c.Current(); got != "happy" {
		t.Fatalf("expected happy, got %q", got)
	}
}

func TestResetToDefault_ReportsChange(t *testing.T) {
	c := newTestController(t)

	if c.ResetToDefault() {
		t.Fatalf("already at default, reset should report no change")
	}

	if err := c.SetExpression("thinking"); err != nil {
		t.Fatalf("set expression: %v", err)
	}
	if !c.ResetToDefault() {
		t.Fatalf("reset from thinking should report a change")
	}
	if got := c.Current(); got != FallbackExpression {
		t.Fatalf("expected %q after reset, got %q", FallbackExpression, got)
	}
}

func TestSetDefault_PersistsAndDrivesReset(t *testing.T) {
	c := newTestController(t)

	if err := c.SetDefault("sleepy"); err != nil {
		t.Fatalf("set default: %v", err)
	}
	if err := c.SetExpression("excited"); err != nil {
		t.Fatalf("set expression: %v", err)
	}
	c.ResetToDefault()
	if got := c.Current(); got != "sleepy" {
		t.Fatalf("expected persisted default sleepy, got %q", got)
	}
}

func TestSetDefault_RejectsUnknown(t *testing.T) {
	c := newTestController(t)
	if err := c.SetDefault("grumpy"); err == nil {
		t.Fatalf("expected rejection of unknown default")
	}
}
