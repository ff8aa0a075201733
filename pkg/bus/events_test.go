package bus

import (
	"context"
	"testing"
	"time"
)

func TestEventFanout(t *testing.T) {
	buf := NewReplyBuffer()

	ctx := context.Background()
	eventsA, unsubA := buf.SubscribeEvents(ctx, 4)
	defer unsubA()
	eventsB, unsubB := buf.SubscribeEvents(ctx, 4)
	defer unsubB()

	buf.Put("hello")
	if _, err := buf.TryGet(); err != nil {
		t.Fatalf("TryGet error: %v", err)
	}

	for name, events := range map[string]<-chan Event{"A": eventsA, "B": eventsB} {
		for _, want := range []EventType{EventReplyEnqueued, EventReplyDelivered} {
			select {
			case got := <-events:
				if got.Type != want {
					t.Fatalf("subscriber %s event type = %q, want %q", name, got.Type, want)
				}
				if got.At.IsZero() {
					t.Fatalf("subscriber %s event missing timestamp", name)
				}
			case <-time.After(500 * time.Millisecond):
				t.Fatalf("subscriber %s did not receive %s", name, want)
			}
		}
	}
}

func TestEventReportsPendingCount(t *testing.T) {
	buf := NewReplyBuffer()

	events, unsubscribe := buf.SubscribeEvents(context.Background(), 4)
	defer unsubscribe()

	buf.Put("one")
	buf.Put("two")

	for _, want := range []int{1, 2} {
		select {
		case got := <-events:
			if got.Pending != want {
				t.Fatalf("pending = %d, want %d", got.Pending, want)
			}
		case <-time.After(500 * time.Millisecond):
			t.Fatal("expected enqueue event")
		}
	}
}

func TestConversionFailureEvent(t *testing.T) {
	buf := NewReplyBuffer(brokenPayload{})

	events, unsubscribe := buf.SubscribeEvents(context.Background(), 1)
	defer unsubscribe()

	if _, err := buf.TryGet(); err == nil {
		t.Fatal("expected conversion error")
	}

	select {
	case got := <-events:
		if got.Type != EventReplyConversionFailed {
			t.Fatalf("event type = %q, want %q", got.Type, EventReplyConversionFailed)
		}
		if got.Error == "" {
			t.Fatal("expected error text on failure event")
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("expected conversion failure event")
	}
}

func TestSlowSubscriberDoesNotBlockPut(t *testing.T) {
	buf := NewReplyBuffer()

	events, unsubscribe := buf.SubscribeEvents(context.Background(), 1)
	defer unsubscribe()

	start := time.Now()
	for i := 0; i < 50; i++ {
		buf.Put(i)
	}
	if time.Since(start) > 100*time.Millisecond {
		t.Fatal("put blocked on slow subscriber")
	}

	select {
	case <-events:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("expected at least one event")
	}
	if got := buf.Len(); got != 50 {
		t.Fatalf("len = %d, want 50", got)
	}
}

func TestUnsubscribeStopsEvents(t *testing.T) {
	buf := NewReplyBuffer()

	events, unsubscribe := buf.SubscribeEvents(context.Background(), 1)
	unsubscribe()
	unsubscribe()

	buf.Put("ignored")

	select {
	case _, ok := <-events:
		if ok {
			t.Fatal("expected closed event channel")
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("expected event channel close after unsubscribe")
	}
}

func TestSubscribeEventsEndsWithContext(t *testing.T) {
	buf := NewReplyBuffer()

	ctx, cancel := context.WithCancel(context.Background())
	events, _ := buf.SubscribeEvents(ctx, 1)
	cancel()

	select {
	case _, ok := <-events:
		if ok {
			t.Fatal("expected event channel to be closed")
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("event subscription did not end after cancel")
	}
}
