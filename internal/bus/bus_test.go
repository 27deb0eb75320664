package bus

import (
	"testing"

	"github.com/1broseidon/deskmate/internal/windowing"
)

func TestPublish_DeliversToSubscribedKindOnly(t *testing.T) {
	b := New()

	var visibility, bounds int
	b.Subscribe(VisibilityChanged, func(Event) { visibility++ })
	b.Subscribe(BoundsChanged, func(Event) { bounds++ })

	b.Publish(Event{Kind: VisibilityChanged, Source: windowing.Chat, Payload: VisibilityPayload{Visible: true}})
	b.Publish(Event{Kind: VisibilityChanged, Source: windowing.Chat, Payload: VisibilityPayload{Visible: false}})

	if visibility != 2 {
		t.Fatalf("expected 2 visibility events, got %d", visibility)
	}
	if bounds != 0 {
		t.Fatalf("expected no bounds events, got %d", bounds)
	}
}

func TestPublish_SameKindSameSourceOrderPreserved(t *testing.T) {
	b := New()

	var xs []int
	b.Subscribe(BoundsChanged, func(ev Event) {
		xs = append(xs, ev.Payload.(BoundsPayload).Bounds.X)
	})

	for i := 1; i <= 4; i++ {
		b.Publish(Event{
			Kind:    BoundsChanged,
			Source:  windowing.Main,
			Payload: BoundsPayload{Bounds: windowing.Bounds{X: i}},
		})
	}

	for i, x := range xs {
		if x != i+1 {
			t.Fatalf("event %d out of order: got x=%d", i, x)
		}
	}
}

func TestSubscribe_CancelRemovesSubscription(t *testing.T) {
	b := New()

	var n int
	cancel := b.Subscribe(WindowClosed, func(Event) { n++ })

	b.Publish(Event{Kind: WindowClosed, Source: windowing.Settings})
	cancel()
	cancel() // second cancel is harmless
	b.Publish(Event{Kind: WindowClosed, Source: windowing.Settings})

	if n != 1 {
		t.Fatalf("expected 1 delivery, got %d", n)
	}
}

func TestPublish_SubscriberMayCancelDuringDelivery(t *testing.T) {
	b := New()

	var first, second int
	var cancelFirst func()
	cancelFirst = b.Subscribe(SpeechShown, func(Event) {
		first++
		cancelFirst()
	})
	b.Subscribe(SpeechShown, func(Event) { second++ })

	b.Publish(Event{Kind: SpeechShown, Source: windowing.SpeechBubble})
	b.Publish(Event{Kind: SpeechShown, Source: windowing.SpeechBubble})

	if first != 1 {
		t.Fatalf("expected cancelled subscriber to fire once, got %d", first)
	}
	if second != 2 {
		t.Fatalf("expected remaining subscriber to fire twice, got %d", second)
	}
}
