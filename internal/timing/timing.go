// Package timing provides the cancellable timers the controllers build their
// debounce and auto-hide behavior on. Every timer owned by a controller must
// be stopped in its teardown path so no callback fires against a destroyed
// window.
package timing

import (
	"sync"
	"time"
)

// Debouncer coalesces a burst of calls into one delayed invocation of the
// most recently scheduled function.
type Debouncer struct {
	mu    sync.Mutex
	delay time.Duration
	timer *time.Timer
}

// NewDebouncer creates a debouncer with the given delay.
func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{delay: delay}
}

// Schedule arranges for fn to run after the delay. A pending invocation is
// replaced, so a burst of calls runs fn exactly once with the latest fn.
func (d *Debouncer) Schedule(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		d.timer = nil
		d.mu.Unlock()
		fn()
	})
}

// Stop cancels any pending invocation.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// Pending reports whether an invocation is scheduled.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}

// RestartTimer is a single-shot timer whose Start replaces any pending
// expiry rather than queueing another one. The speech bubble's auto-hide
// uses it: a new show restarts the countdown, it never stacks.
type RestartTimer struct {
	mu    sync.Mutex
	timer *time.Timer
}

// Start schedules fn after d, cancelling any pending expiry first.
func (t *RestartTimer) Start(d time.Duration, fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.timer != nil {
		t.timer.Stop()
	}
	t.timer = time.AfterFunc(d, func() {
		t.mu.Lock()
		t.timer = nil
		t.mu.Unlock()
		fn()
	})
}

// Stop cancels a pending expiry.
func (t *RestartTimer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}

// Active reports whether an expiry is pending.
func (t *RestartTimer) Active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.timer != nil
}
