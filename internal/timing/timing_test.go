package timing

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestDebouncer_CoalescesBurstToSingleFire(t *testing.T) {
	d := NewDebouncer(40 * time.Millisecond)

	var fired int32
	var last int32
	for i := 1; i <= 5; i++ {
		v := int32(i)
		d.Schedule(func() {
			atomic.AddInt32(&fired, 1)
			atomic.StoreInt32(&last, v)
		})
		time.Sleep(5 * time.Millisecond)
	}

	time.Sleep(100 * time.Millisecond)

	if got := atomic.LoadInt32(&fired); got != 1 {
		t.Fatalf("expected exactly 1 fire, got %d", got)
	}
	if got := atomic.LoadInt32(&last); got != 5 {
		t.Fatalf("expected latest scheduled fn to win, got %d", got)
	}
}

func TestDebouncer_StopCancelsPendingFire(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)

	var fired int32
	d.Schedule(func() { atomic.AddInt32(&fired, 1) })
	if !d.Pending() {
		t.Fatalf("expected pending after schedule")
	}
	d.Stop()
	if d.Pending() {
		t.Fatalf("expected no pending after stop")
	}

	time.Sleep(70 * time.Millisecond)
	if got := atomic.LoadInt32(&fired); got != 0 {
		t.Fatalf("expected no fire after stop, got %d", got)
	}
}

func TestRestartTimer_StartReplacesPendingExpiry(t *testing.T) {
	var rt RestartTimer
	var fired int32

	rt.Start(60*time.Millisecond, func() { atomic.AddInt32(&fired, 1) })
	time.Sleep(30 * time.Millisecond)
	// Restart before the first expiry: countdown begins again, it does not
	// stack a second expiry.
	rt.Start(60*time.Millisecond, func() { atomic.AddInt32(&fired, 1) })

	time.Sleep(40 * time.Millisecond)
	if got := atomic.LoadInt32(&fired); got != 0 {
		t.Fatalf("expected no fire before restarted deadline, got %d", got)
	}

	time.Sleep(50 * time.Millisecond)
	if got := atomic.LoadInt32(&fired); got != 1 {
		t.Fatalf("expected exactly 1 fire after restart, got %d", got)
	}
}

func TestRestartTimer_StopPreventsFire(t *testing.T) {
	var rt RestartTimer
	var fired int32

	rt.Start(30*time.Millisecond, func() { atomic.AddInt32(&fired, 1) })
	rt.Stop()
	if rt.Active() {
		t.Fatalf("expected inactive after stop")
	}

	time.Sleep(70 * time.Millisecond)
	if got := atomic.LoadInt32(&fired); got != 0 {
		t.Fatalf("expected no fire after stop, got %d", got)
	}
}
