package x11

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/xevent"
	"github.com/BurntSushi/xgbutil/xprop"
	"github.com/BurntSushi/xgbutil/xwindow"

	"github.com/1broseidon/deskmate/internal/windowing"
)

// messageProperty carries fire-and-forget messages to the window content.
// The embedded UI watches PropertyNotify on it.
const messageProperty = "_DESKMATE_MESSAGE"

type winSub struct {
	id int
	fn func(windowing.Event)
}

// Window implements windowing.Handle over one X window. Bounds and
// visibility are caches updated from ConfigureNotify/MapNotify/UnmapNotify;
// the X server stays authoritative through the reconciler's Alive checks.
type Window struct {
	conn *Connection
	name windowing.Name
	win  *xwindow.Window

	mu        sync.Mutex
	bounds    windowing.Bounds
	visible   bool
	destroyed bool
	subs      map[windowing.EventKind][]*winSub
	nextSub   int
}

func newWindow(conn *Connection, name windowing.Name, win *xwindow.Window, bounds windowing.Bounds) *Window {
	return &Window{
		conn:   conn,
		name:   name,
		win:    win,
		bounds: bounds,
		subs:   make(map[windowing.EventKind][]*winSub),
	}
}

// connectEvents wires the X event stream into lifecycle events. Per-window
// ordering follows X's own event ordering on the connection.
func (w *Window) connectEvents() {
	xu := w.conn.XUtil
	id := w.win.Id

	xevent.ConfigureNotifyFun(func(_ *xgbutil.XUtil, ev xevent.ConfigureNotifyEvent) {
		w.onConfigure(int(ev.X), int(ev.Y), int(ev.Width), int(ev.Height))
	}).Connect(xu, id)

	xevent.MapNotifyFun(func(_ *xgbutil.XUtil, _ xevent.MapNotifyEvent) {
		w.onVisibility(true)
	}).Connect(xu, id)

	xevent.UnmapNotifyFun(func(_ *xgbutil.XUtil, _ xevent.UnmapNotifyEvent) {
		w.onVisibility(false)
	}).Connect(xu, id)

	xevent.DestroyNotifyFun(func(_ *xgbutil.XUtil, _ xevent.DestroyNotifyEvent) {
		w.onDestroy()
	}).Connect(xu, id)

	xevent.FocusInFun(func(_ *xgbutil.XUtil, _ xevent.FocusInEvent) {
		w.emit(windowing.EventFocused)
	}).Connect(xu, id)

	xevent.FocusOutFun(func(_ *xgbutil.XUtil, _ xevent.FocusOutEvent) {
		w.emit(windowing.EventBlurred)
	}).Connect(xu, id)
}

func (w *Window) onConfigure(x, y, width, height int) {
	w.mu.Lock()
	prev := w.bounds
	w.bounds = windowing.Bounds{X: x, Y: y, Width: width, Height: height}
	w.mu.Unlock()

	if prev.X != x || prev.Y != y {
		w.emit(windowing.EventMoved)
	}
	if prev.Width != width || prev.Height != height {
		w.emit(windowing.EventResized)
	}
}

func (w *Window) onVisibility(visible bool) {
	w.mu.Lock()
	changed := w.visible != visible
	w.visible = visible
	w.mu.Unlock()

	if !changed {
		return
	}
	if visible {
		w.emit(windowing.EventShown)
	} else {
		w.emit(windowing.EventHidden)
	}
}

func (w *Window) onDestroy() {
	w.mu.Lock()
	if w.destroyed {
		w.mu.Unlock()
		return
	}
	w.destroyed = true
	w.visible = false
	w.mu.Unlock()

	w.emit(windowing.EventClosed)
	xevent.Detach(w.conn.XUtil, w.win.Id)
}

// Name implements windowing.Handle.
func (w *Window) Name() windowing.Name { return w.name }

// Bounds implements windowing.Handle.
func (w *Window) Bounds() (windowing.Bounds, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.destroyed {
		return windowing.Bounds{}, fmt.Errorf("window %q is destroyed", w.name)
	}
	return w.bounds, nil
}

// SetBounds implements windowing.Handle. EWMH moveresize is preferred for WM
// compatibility, with direct configuration as the fallback.
func (w *Window) SetBounds(b windowing.Bounds) error {
	if w.Destroyed() {
		return fmt.Errorf("window %q is destroyed", w.name)
	}
	err := ewmh.MoveresizeWindow(w.conn.XUtil, w.win.Id, b.X, b.Y, b.Width, b.Height)
	if err != nil {
		w.win.MoveResize(b.X, b.Y, b.Width, b.Height)
	}
	return nil
}

// SetMinSize implements windowing.Handle.
func (w *Window) SetMinSize(width, height int) error {
	if w.Destroyed() {
		return fmt.Errorf("window %q is destroyed", w.name)
	}
	return setMinSizeHint(w.conn.XUtil, w.win.Id, width, height)
}

// Show implements windowing.Handle. The shown event follows from MapNotify.
func (w *Window) Show() error {
	if w.Destroyed() {
		return fmt.Errorf("window %q is destroyed", w.name)
	}
	w.win.Map()
	return nil
}

// Hide implements windowing.Handle.
func (w *Window) Hide() error {
	if w.Destroyed() {
		return fmt.Errorf("window %q is destroyed", w.name)
	}
	w.win.Unmap()
	return nil
}

// Focus implements windowing.Handle.
func (w *Window) Focus() error {
	if w.Destroyed() {
		return fmt.Errorf("window %q is destroyed", w.name)
	}
	return ewmh.ActiveWindowReq(w.conn.XUtil, w.win.Id)
}

// Close implements windowing.Handle. The closed event follows from
// DestroyNotify.
func (w *Window) Close() error {
	if w.Destroyed() {
		return nil
	}
	w.win.Destroy()
	return nil
}

// Visible implements windowing.Handle.
func (w *Window) Visible() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.visible && !w.destroyed
}

// Destroyed implements windowing.Handle.
func (w *Window) Destroyed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.destroyed
}

// Post implements windowing.Handle: the message is written as a UTF-8 JSON
// property on the window, which the content process observes via
// PropertyNotify.
func (w *Window) Post(channel string, payload any) error {
	if w.Destroyed() {
		return fmt.Errorf("window %q is destroyed", w.name)
	}

	msg, err := json.Marshal(struct {
		Channel string `json:"channel"`
		Payload any    `json:"payload,omitempty"`
	}{Channel: channel, Payload: payload})
	if err != nil {
		return fmt.Errorf("failed to encode message for %q: %w", w.name, err)
	}

	return xprop.ChangeProp(w.conn.XUtil, w.win.Id, 8, messageProperty, "UTF8_STRING", msg)
}

// Subscribe implements windowing.Handle.
func (w *Window) Subscribe(kind windowing.EventKind, fn func(windowing.Event)) func() {
	w.mu.Lock()
	w.nextSub++
	sub := &winSub{id: w.nextSub, fn: fn}
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

func (w *Window) emit(kind windowing.EventKind) {
	w.mu.Lock()
	b := w.bounds
	list := make([]*winSub, len(w.subs[kind]))
	copy(list, w.subs[kind])
	w.mu.Unlock()

	sort.Slice(list, func(i, j int) bool { return list[i].id < list[j].id })
	ev := windowing.Event{Kind: kind, Window: w.name, Bounds: b}
	for _, s := range list {
		s.fn(ev)
	}
}
