package controller

import (
	"sync"
	"testing"
	"time"

	"github.com/1broseidon/deskmate/internal/bus"
	"github.com/1broseidon/deskmate/internal/windowing"
)

func TestBubblePosition_CentersAndSitsAboveMain(t *testing.T) {
	main := windowing.Bounds{X: 200, Y: 400, Width: 400, Height: 600}
	work := windowing.Rect{X: 0, Y: 0, Width: 1920, Height: 1080}

	got := BubblePosition(300, 150, main, work, 2, 10)

	if got.X != 250 {
		t.Fatalf("expected centered x=250, got %d", got.X)
	}
	if got.Y != 400-150-2 {
		t.Fatalf("expected bottom edge 2px above main top, got y=%d", got.Y)
	}
}

func TestBubblePosition_VerticalClampAtWorkAreaTop(t *testing.T) {
	// Main close to the top: the raw position would be off screen.
	main := windowing.Bounds{X: 100, Y: 5, Width: 400, Height: 600}
	work := windowing.Rect{X: 0, Y: 0, Width: 1920, Height: 1080}

	got := BubblePosition(300, 150, main, work, 2, 10)

	if got.Y != work.Y+10 {
		t.Fatalf("expected y clamped to work-area top + margin (10), got %d", got.Y)
	}
	// Horizontal position is never clamped, only centered.
	if got.X != 150 {
		t.Fatalf("expected x=150, got %d", got.X)
	}
}

func TestBubblePosition_SizeRaisedToClassMinimum(t *testing.T) {
	main := windowing.Bounds{X: 0, Y: 500, Width: 400, Height: 400}
	got := BubblePosition(10, 10, main, windowing.Rect{}, 2, 10)

	minW, minH := windowing.MinSize(windowing.SpeechBubble)
	if got.Width != minW || got.Height != minH {
		t.Fatalf("expected %dx%d, got %dx%d", minW, minH, got.Width, got.Height)
	}
}

func newTestBubble(t *testing.T, d Deps, renderer *fakeRenderer, main windowing.Bounds) *SpeechBubbleController {
	t.Helper()
	c := NewSpeechBubbleController(d, renderer, func() (windowing.Bounds, bool) {
		return main, true
	})
	c.timeout = 80 * time.Millisecond
	return c
}

func TestShowWithText_PostsPositionsAndShows(t *testing.T) {
	d, backend := newTestDeps(t)
	renderer := &fakeRenderer{}
	main := windowing.Bounds{X: 200, Y: 400, Width: 400, Height: 600}
	c := newTestBubble(t, d, renderer, main)

	if err := c.ShowWithText("hello there"); err != nil {
		t.Fatalf("show with text: %v", err)
	}

	w := backend.Window(windowing.SpeechBubble)
	if !w.Visible() {
		t.Fatalf("expected bubble visible")
	}

	posts := w.Posts()
	if len(posts) != 1 || posts[0].Channel != SpeechTextChannel || posts[0].Payload != "hello there" {
		t.Fatalf("expected one speech text post, got %+v", posts)
	}

	got, _ := w.Bounds()
	want := BubblePosition(got.Width, got.Height, main, windowing.Rect{X: 0, Y: 0, Width: 1920, Height: 1080}, d.Config.Bubble.GapPx, d.Config.Bubble.WorkMarginPx)
	if got != want {
		t.Fatalf("expected computed position %+v, got %+v", want, got)
	}
}

func TestAutoHide_SecondShowRestartsCountdown(t *testing.T) {
	d, backend := newTestDeps(t)
	renderer := &fakeRenderer{}
	c := newTestBubble(t, d, renderer, windowing.Bounds{X: 0, Y: 500, Width: 400, Height: 400})

	var mu sync.Mutex
	hides := 0
	d.Bus.Subscribe(bus.SpeechHidden, func(bus.Event) {
		mu.Lock()
		hides++
		mu.Unlock()
	})

	if err := c.ShowWithText("first"); err != nil {
		t.Fatalf("first show: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	if err := c.ShowWithText("second"); err != nil {
		t.Fatalf("second show: %v", err)
	}

	// 100ms after the first show: the restarted countdown keeps it visible.
	time.Sleep(50 * time.Millisecond)
	if !backend.Window(windowing.SpeechBubble).Visible() {
		t.Fatalf("bubble hidden too early, countdown did not restart")
	}

	// 80ms after the second show has now passed.
	time.Sleep(80 * time.Millisecond)
	if backend.Window(windowing.SpeechBubble).Visible() {
		t.Fatalf("expected bubble hidden after the restarted countdown")
	}

	mu.Lock()
	defer mu.Unlock()
	if hides != 1 {
		t.Fatalf("expected exactly one hide, got %d", hides)
	}
	if renderer.Resets() != 1 {
		t.Fatalf("expected one expression reset, got %d", renderer.Resets())
	}
}

func TestHideNow_CancelsCountdownAndResets(t *testing.T) {
	d, backend := newTestDeps(t)
	renderer := &fakeRenderer{}
	c := newTestBubble(t, d, renderer, windowing.Bounds{X: 0, Y: 500, Width: 400, Height: 400})

	if err := c.ShowWithText("bye"); err != nil {
		t.Fatalf("show: %v", err)
	}
	if err := c.HideNow(); err != nil {
		t.Fatalf("hide now: %v", err)
	}

	if backend.Window(windowing.SpeechBubble).Visible() {
		t.Fatalf("expected bubble hidden")
	}
	if c.AutoHideActive() {
		t.Fatalf("expected countdown cancelled")
	}
	if renderer.Resets() != 1 {
		t.Fatalf("expected one expression reset, got %d", renderer.Resets())
	}

	// The old countdown must not fire later.
	time.Sleep(120 * time.Millisecond)
	if renderer.Resets() != 1 {
		t.Fatalf("cancelled countdown fired anyway")
	}
}

func TestTeardown_CancelsAutoHide(t *testing.T) {
	d, _ := newTestDeps(t)
	renderer := &fakeRenderer{}
	c := newTestBubble(t, d, renderer, windowing.Bounds{X: 0, Y: 500, Width: 400, Height: 400})

	if err := c.ShowWithText("doomed"); err != nil {
		t.Fatalf("show: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if c.AutoHideActive() {
		t.Fatalf("expected teardown to stop the countdown")
	}

	time.Sleep(120 * time.Millisecond)
	if got := renderer.Resets(); got != 0 {
		t.Fatalf("countdown fired against a destroyed window, %d resets", got)
	}
}

func TestReposition_DoesNotToggleVisibility(t *testing.T) {
	d, backend := newTestDeps(t)
	renderer := &fakeRenderer{}
	c := newTestBubble(t, d, renderer, windowing.Bounds{X: 0, Y: 500, Width: 400, Height: 400})

	if _, err := c.Open(); err != nil {
		t.Fatalf("open: %v", err)
	}
	// Bubble starts hidden (no ShowOnCreate): repositioning must keep it so.
	c.Reposition()
	if backend.Window(windowing.SpeechBubble).Visible() {
		t.Fatalf("reposition must not show the bubble")
	}
}
