package events

import (
	"testing"
	"testing/synctest"
)

func TestPublish_DeliveredInOrder(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		bus := NewBus()
		defer bus.Close()
		sub := bus.Subscribe()

		for i := 0; i < 100; i++ {
			bus.Publish(Message{Type: PlayerStarted, SlotIndex: 0, Sequence: uint64(i)})
		}

		for i := 0; i < 100; i++ {
			msg := <-sub.C
			if msg.Sequence != uint64(i) {
				t.Fatalf("message #%d has sequence %d, want %d", i, msg.Sequence, i)
			}
		}
		sub.Close()
		for range sub.C {
		}
	})
}

func TestPublish_NeverBlocksOnSlowConsumer(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		bus := NewBus()
		defer bus.Close()

		slow := bus.Subscribe()
		fast := bus.Subscribe()

		// The slow subscription is never read while publishing.
		for i := 0; i < 1000; i++ {
			bus.Publish(Message{Type: PlaybackStateChanged, Sequence: uint64(i)})
		}

		// The fast consumer still gets everything in order.
		for i := 0; i < 1000; i++ {
			msg := <-fast.C
			if msg.Sequence != uint64(i) {
				t.Fatalf("fast consumer got sequence %d, want %d", msg.Sequence, i)
			}
		}

		fast.Close()
		slow.Close()
		for range fast.C {
		}
		for range slow.C {
		}
	})
}

func TestSubscriptionClose_DrainsPendingThenCloses(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		bus := NewBus()
		defer bus.Close()
		sub := bus.Subscribe()

		bus.Publish(Message{Type: PlayerStarted, Sequence: 1})
		bus.Publish(Message{Type: PlayerEnded, Sequence: 2})
		sub.Close()

		var got []Message
		for msg := range sub.C {
			got = append(got, msg)
		}
		if len(got) != 2 {
			t.Fatalf("drained %d messages, want 2", len(got))
		}
		if got[0].Type != PlayerStarted || got[1].Type != PlayerEnded {
			t.Errorf("messages out of order: %v, %v", got[0].Type, got[1].Type)
		}
	})
}

func TestPublish_AfterSubscriptionClose_Discarded(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		bus := NewBus()
		defer bus.Close()
		sub := bus.Subscribe()

		sub.Close()
		bus.Publish(Message{Type: PlayerStarted, Sequence: 1})

		for range sub.C {
			t.Error("message delivered to closed subscription")
		}
	})
}

func TestBusClose_ClosesAllSubscriptions(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		bus := NewBus()
		a := bus.Subscribe()
		b := bus.Subscribe()

		bus.Publish(Message{Type: VolumeChanged, SlotIndex: -1})
		bus.Close()

		na, nb := 0, 0
		for range a.C {
			na++
		}
		for range b.C {
			nb++
		}
		if na != 1 || nb != 1 {
			t.Errorf("drained (%d, %d) messages, want (1, 1)", na, nb)
		}

		// Publish after close is a no-op.
		bus.Publish(Message{Type: VolumeChanged})
	})
}

func TestSubscribe_AfterBusClose_Closed(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		bus := NewBus()
		bus.Close()

		sub := bus.Subscribe()
		for range sub.C {
			t.Error("subscription on closed bus delivered a message")
		}
	})
}
