// Package bus carries cross-window events between controllers. It replaces
// per-controller callback arrays with one typed publish/subscribe surface so
// the orchestrator can wire N:M reactions without controllers knowing their
// siblings.
package bus

import (
	"sync"

	"github.com/1broseidon/deskmate/internal/windowing"
)

// Kind identifies a cross-window event type.
type Kind string

const (
	VisibilityChanged Kind = "visibilityChanged"
	BoundsChanged     Kind = "boundsChanged"
	WindowClosed      Kind = "windowClosed"
	SpeechShown       Kind = "speechShown"
	SpeechHidden      Kind = "speechHidden"
)

// Event is a fire-and-forget notification from one controller to zero or
// more subscribers. Ordering is preserved for repeated events of the same
// kind from the same source; nothing is guaranteed across kinds.
type Event struct {
	Kind    Kind
	Source  windowing.Name
	Payload any
}

// VisibilityPayload accompanies VisibilityChanged events.
type VisibilityPayload struct {
	Visible bool
}

// BoundsPayload accompanies BoundsChanged events.
type BoundsPayload struct {
	Bounds windowing.Bounds
}

type subscriber struct {
	id int
	fn func(Event)
}

// Bus delivers events synchronously to subscribers in subscription order.
type Bus struct {
	mu     sync.Mutex
	subs   map[Kind][]*subscriber
	nextID int
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{subs: make(map[Kind][]*subscriber)}
}

// Subscribe registers fn for events of the given kind. The returned cancel
// func removes the subscription; cancelling twice is harmless.
func (b *Bus) Subscribe(kind Kind, fn func(Event)) (cancel func()) {
	b.mu.Lock()
	b.nextID++
	sub := &subscriber{id: b.nextID, fn: fn}
	b.subs[kind] = append(b.subs[kind], sub)
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		list := b.subs[kind]
		for i, s := range list {
			if s == sub {
				b.subs[kind] = append(list[:i:i], list[i+1:]...)
				return
			}
		}
	}
}

// Publish delivers ev to every subscriber of its kind. The subscriber list
// is copied first so handlers may subscribe or cancel during delivery.
func (b *Bus) Publish(ev Event) {
	b.mu.Lock()
	list := make([]*subscriber, len(b.subs[ev.Kind]))
	copy(list, b.subs[ev.Kind])
	b.mu.Unlock()

	for _, s := range list {
		s.fn(ev)
	}
}
