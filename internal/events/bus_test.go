package events

import (
	"testing"
	"time"
)

func TestPublishFansOut(t *testing.T) {
	bus := New()
	a, unsubA := bus.Subscribe(1)
	defer unsubA()
	b, unsubB := bus.Subscribe(1)
	defer unsubB()

	bus.Publish(Event{Type: TypeTasksMissed, Data: TasksMissed{Before: "2026-03-06", Count: 2}})

	for _, ch := range []<-chan Event{a, b} {
		select {
		case ev := <-ch:
			if ev.Type != TypeTasksMissed || ev.Time.IsZero() {
				t.Fatalf("unexpected event %+v", ev)
			}
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for event")
		}
	}
}

func TestPublishDropsForSlowSubscriber(t *testing.T) {
	bus := New()
	ch, unsub := bus.Subscribe(1)
	defer unsub()

	bus.Publish(Event{Type: "first"})
	bus.Publish(Event{Type: "second"})

	ev := <-ch
	if ev.Type != "first" {
		t.Fatalf("unexpected event %q", ev.Type)
	}
	select {
	case ev := <-ch:
		t.Fatalf("second event must have been dropped, got %q", ev.Type)
	default:
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	bus := New()
	ch, unsub := bus.Subscribe(1)
	unsub()
	unsub()
	if _, ok := <-ch; ok {
		t.Fatal("expected closed channel")
	}
	bus.Publish(Event{Type: "after"})
}
