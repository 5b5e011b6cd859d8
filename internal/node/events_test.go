package node

import (
	"testing"
	"time"
)

func TestBroadcasterFanout(t *testing.T) {
	b := NewBroadcaster()
	_, ch1 := b.Subscribe(4)
	_, ch2 := b.Subscribe(4)

	b.Send(Event{Time: time.Now(), Type: EventFrame, Text: "received: hi - 1"})

	for i, ch := range []<-chan Event{ch1, ch2} {
		select {
		case e := <-ch:
			if e.Type != EventFrame || e.Text != "received: hi - 1" {
				t.Fatalf("listener %d got %+v", i, e)
			}
		default:
			t.Fatalf("listener %d got nothing", i)
		}
	}
}

func TestBroadcasterDropsForSlowConsumer(t *testing.T) {
	b := NewBroadcaster()
	_, ch := b.Subscribe(1)

	b.Send(Event{Type: EventBurst, Text: "first"})
	b.Send(Event{Type: EventBurst, Text: "second"})

	if len(ch) != 1 {
		t.Fatalf("expected 1 buffered event, got %d", len(ch))
	}
	if e := <-ch; e.Text != "first" {
		t.Fatalf("expected first event kept, got %q", e.Text)
	}
}

func TestBroadcasterUnsubscribeClosesChannel(t *testing.T) {
	b := NewBroadcaster()
	id, ch := b.Subscribe(1)
	b.Unsubscribe(id)

	if _, ok := <-ch; ok {
		t.Fatal("expected closed channel after unsubscribe")
	}
	// Sending after unsubscribe must not panic.
	b.Send(Event{Type: EventRole, Text: "gone"})
}
