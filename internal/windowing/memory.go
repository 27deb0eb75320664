package windowing

import (
	"fmt"
	"sort"
	"sync"
)

// MemoryBackend is an in-process window system. It backs headless runs (no
// DISPLAY) and every test in the orchestration layer; events fire
// synchronously in subscription order, mirroring the per-window ordering
// guarantee of the X11 backend.
type MemoryBackend struct {
	mu       sync.Mutex
	workArea Rect
	windows  map[Name]*MemoryWindow
	created  int

	// FailCreate, when set, makes CreateWindow return this error. Tests use
	// it to exercise the native-construction failure path.
	FailCreate error
}

// NewMemoryBackend creates a backend with a 1920×1080 work area starting at
// the origin.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		workArea: Rect{X: 0, Y: 0, Width: 1920, Height: 1080},
		windows:  make(map[Name]*MemoryWindow),
	}
}

// SetWorkArea overrides the reported usable screen region.
func (b *MemoryBackend) SetWorkArea(r Rect) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.workArea = r
}

// WorkArea implements Backend.
func (b *MemoryBackend) WorkArea() (Rect, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.workArea, nil
}

// CreateWindow implements Backend.
func (b *MemoryBackend) CreateWindow(name Name, cfg Config, content string) (Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.FailCreate != nil {
		return nil, b.FailCreate
	}

	x, y := 0, 0
	if cfg.X != nil {
		x = *cfg.X
	}
	if cfg.Y != nil {
		y = *cfg.Y
	}

	w := &MemoryWindow{
		name:    name,
		content: content,
		bounds:  Bounds{X: x, Y: y, Width: cfg.Width, Height: cfg.Height},
		minW:    cfg.MinWidth,
		minH:    cfg.MinHeight,
		visible: cfg.ShowOnCreate,
		subs:    make(map[EventKind][]*memorySub),
	}
	b.windows[name] = w
	b.created++
	return w, nil
}

// Alive implements Backend.
func (b *MemoryBackend) Alive(h Handle) bool {
	return h != nil && !h.Destroyed()
}

// CreateCount reports how many native constructions have happened.
func (b *MemoryBackend) CreateCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.created
}

// Window returns the backing window for a name, for test inspection.
func (b *MemoryBackend) Window(name Name) *MemoryWindow {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.windows[name]
}

type memorySub struct {
	id int
	fn func(Event)
}

// PostedMessage records one fire-and-forget message sent to window content.
type PostedMessage struct {
	Channel string
	Payload any
}

// MemoryWindow is the in-memory Handle implementation.
type MemoryWindow struct {
	mu        sync.Mutex
	name      Name
	content   string
	bounds    Bounds
	minW      int
	minH      int
	visible   bool
	destroyed bool
	focused   int
	posts     []PostedMessage
	subs      map[EventKind][]*memorySub
	nextSub   int
}

// Name implements Handle.
func (w *MemoryWindow) Name() Name { return w.name }

// Bounds implements Handle.
func (w *MemoryWindow) Bounds() (Bounds, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.destroyed {
		return Bounds{}, fmt.Errorf("window %q is destroyed", w.name)
	}
	return w.bounds, nil
}

// SetBounds implements Handle. Position and size changes emit moved and
// resized events respectively, in that order.
func (w *MemoryWindow) SetBounds(b Bounds) error {
	w.mu.Lock()
	if w.destroyed {
		w.mu.Unlock()
		return fmt.Errorf("window %q is destroyed", w.name)
	}
	prev := w.bounds
	w.bounds = b
	w.mu.Unlock()

	if prev.X != b.X || prev.Y != b.Y {
		w.emit(EventMoved, b)
	}
	if prev.Width != b.Width || prev.Height != b.Height {
		w.emit(EventResized, b)
	}
	return nil
}

// SetMinSize implements Handle.
func (w *MemoryWindow) SetMinSize(width, height int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.destroyed {
		return fmt.Errorf("window %q is destroyed", w.name)
	}
	w.minW, w.minH = width, height
	return nil
}

// MinSize returns the current minimum-size constraint, for test inspection.
func (w *MemoryWindow) MinSize() (int, int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.minW, w.minH
}

// Show implements Handle.
func (w *MemoryWindow) Show() error {
	w.mu.Lock()
	if w.destroyed {
		w.mu.Unlock()
		return fmt.Errorf("window %q is destroyed", w.name)
	}
	already := w.visible
	w.visible = true
	b := w.bounds
	w.mu.Unlock()

	if !already {
		w.emit(EventShown, b)
	}
	return nil
}

// Hide implements Handle.
func (w *MemoryWindow) Hide() error {
	w.mu.Lock()
	if w.destroyed {
		w.mu.Unlock()
		return fmt.Errorf("window %q is destroyed", w.name)
	}
	wasVisible := w.visible
	w.visible = false
	b := w.bounds
	w.mu.Unlock()

	if wasVisible {
		w.emit(EventHidden, b)
	}
	return nil
}

// Focus implements Handle.
func (w *MemoryWindow) Focus() error {
	w.mu.Lock()
	if w.destroyed {
		w.mu.Unlock()
		return fmt.Errorf("window %q is destroyed", w.name)
	}
	w.focused++
	b := w.bounds
	w.mu.Unlock()

	w.emit(EventFocused, b)
	return nil
}

// FocusCount reports how many times the window was focused.
func (w *MemoryWindow) FocusCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.focused
}

// Close implements Handle. Closing twice is a no-op.
func (w *MemoryWindow) Close() error {
	w.mu.Lock()
	if w.destroyed {
		w.mu.Unlock()
		return nil
	}
	w.destroyed = true
	w.visible = false
	b := w.bounds
	w.mu.Unlock()

	w.emit(EventClosed, b)
	return nil
}

// Visible implements Handle.
func (w *MemoryWindow) Visible() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.visible && !w.destroyed
}

// Destroyed implements Handle.
func (w *MemoryWindow) Destroyed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.destroyed
}

// Post implements Handle.
func (w *MemoryWindow) Post(channel string, payload any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.destroyed {
		return fmt.Errorf("window %q is destroyed", w.name)
	}
	w.posts = append(w.posts, PostedMessage{Channel: channel, Payload: payload})
	return nil
}

// Posts returns every message posted to the window content.
func (w *MemoryWindow) Posts() []PostedMessage {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]PostedMessage, len(w.posts))
	copy(out, w.posts)
	return out
}

// Subscribe implements Handle.
func (w *MemoryWindow) Subscribe(kind EventKind, fn func(Event)) func() {
	w.mu.Lock()
	w.nextSub++
	sub := &memorySub{id: w.nextSub, fn: fn}
	w.subs[kind] = append(w.subs[kind], sub)
	w.mu.Unlock()

	return func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		list := w.subs[kind]
		for i, s := range list {
			if s == sub {
				w.subs[kind] = append(list[:i:i], list[i+1:]...)
				return
			}
		}
	}
}

// SubscriberCount reports active subscriptions across all kinds, for tests
// asserting teardown removed every listener.
func (w *MemoryWindow) SubscriberCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := 0
	for _, list := range w.subs {
		n += len(list)
	}
	return n
}

// emit delivers an event synchronously to subscribers in subscription order.
// The subscriber list is copied so handlers may subscribe or cancel freely.
func (w *MemoryWindow) emit(kind EventKind, b Bounds) {
	w.mu.Lock()
	list := make([]*memorySub, len(w.subs[kind]))
	copy(list, w.subs[kind])
	w.mu.Unlock()

	sort.Slice(list, func(i, j int) bool { return list[i].id < list[j].id })
	ev := Event{Kind: kind, Window: w.name, Bounds: b}
	for _, s := range list {
		s.fn(ev)
	}
}
