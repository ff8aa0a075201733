package bus

import (
	"context"
	"sync"
	"time"
)

type EventType string

const (
	EventReplyEnqueued         EventType = "reply_enqueued"
	EventReplyDelivered        EventType = "reply_delivered"
	EventReplyConversionFailed EventType = "reply_conversion_failed"
)

type Event struct {
	Type    EventType `json:"type"`
	At      time.Time `json:"at"`
	Pending int       `json:"pending"`
	Error   string    `json:"error,omitempty"`
}

func (b *ReplyBuffer) publishEvent(event Event) {
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}

	b.subMu.RLock()
	defer b.subMu.RUnlock()

	for _, ch := range b.eventSubscribers {
		select {
		case ch <- event:
		default:
			// Drop instead of blocking Put/Get on slow subscribers.
		}
	}
}

// SubscribeEvents streams buffer activity until ctx is done or the returned
// unsubscribe func is called. Events are dropped for subscribers that fall behind.
func (b *ReplyBuffer) SubscribeEvents(ctx context.Context, buffer int) (<-chan Event, func()) {
	if ctx == nil {
		ctx = context.Background()
	}
	if buffer <= 0 {
		buffer = defaultBufferSize
	}

	ch := make(chan Event, buffer)

	b.subMu.Lock()
	id := b.nextEventSubscriberID
	b.nextEventSubscriberID++
	b.eventSubscribers[id] = ch
	b.subMu.Unlock()

	stop := make(chan struct{})
	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			close(stop)
			b.subMu.Lock()
			if eventCh, ok := b.eventSubscribers[id]; ok {
				delete(b.eventSubscribers, id)
				close(eventCh)
			}
			b.subMu.Unlock()
		})
	}

	go func() {
		select {
		case <-ctx.Done():
			unsubscribe()
		case <-stop:
		}
	}()

	return ch, unsubscribe
}
