package events

import (
	"testing"
	"time"

	"trading-core/internal/ports"
)

func TestPublishReachesSubscriber(t *testing.T) {
	bus := NewBus()
	ch, unsub := bus.Subscribe(EventSignalClosed, 4)
	defer unsub()

	payload := ports.SignalClosed{ID: "sig-1", CloseTime: 42, ClosePrice: 100}
	bus.Publish(EventSignalClosed, payload)

	select {
	case got := <-ch:
		closed, ok := got.(ports.SignalClosed)
		if !ok || closed.ID != "sig-1" {
			t.Fatalf("payload=%v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
	}
}

func TestSlowSubscriberDoesNotBlockPublish(t *testing.T) {
	bus := NewBus()
	_, unsub := bus.Subscribe(EventSignalEmitted, 1)
	defer unsub()

	// Buffer of one: the second publish must drop, not block.
	done := make(chan struct{})
	go func() {
		bus.Publish(EventSignalEmitted, 1)
		bus.Publish(EventSignalEmitted, 2)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	bus := NewBus()
	ch, unsub := bus.Subscribe(EventSignalMAEUpdated, 1)
	unsub()

	if _, open := <-ch; open {
		t.Fatal("channel still open after unsubscribe")
	}

	// Publishing after unsubscribe must not panic.
	bus.Publish(EventSignalMAEUpdated, ports.MAEUpdate{ID: "x"})
}
