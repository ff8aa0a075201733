package bus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"chatcore/pkg/message"
)

const defaultBufferSize = 100

// NoTimeout makes a blocking Get wait until a payload arrives.
const NoTimeout time.Duration = -1

// ReplyBuffer is an unbounded FIFO of payloads that are turned into
// message.Reply values as they are removed. It is safe for any number of
// producers and consumers.
type ReplyBuffer struct {
	mu    sync.Mutex
	items []any
	wake  chan struct{}
	log   *slog.Logger

	metrics *Metrics

	eventSubscribers      map[uint64]chan Event
	nextEventSubscriberID uint64
	subMu                 sync.RWMutex
}

// NewReplyBuffer creates a buffer and enqueues every initial payload in order.
func NewReplyBuffer(initial ...any) *ReplyBuffer {
	b := &ReplyBuffer{
		wake:             make(chan struct{}, 1),
		metrics:          DefaultMetrics,
		eventSubscribers: make(map[uint64]chan Event),
	}
	for _, payload := range initial {
		b.Put(payload)
	}

	return b
}

// ReplyBufferFrom creates a buffer pre-loaded with items in order.
func ReplyBufferFrom[T any](items []T) *ReplyBuffer {
	b := NewReplyBuffer()
	for _, item := range items {
		b.Put(item)
	}

	return b
}

// SetLogger sets the logger used for delivery diagnostics. A nil logger
// restores slog.Default.
func (b *ReplyBuffer) SetLogger(log *slog.Logger) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if log != nil {
		log = log.With("component", "bus.reply_buffer")
	}
	b.log = log
}

// SetMetrics replaces the collectors this buffer reports to. It must be called
// before the first Put; nil disables metrics.
func (b *ReplyBuffer) SetMetrics(m *Metrics) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.metrics = m
}

// Put appends payload to the tail. It never blocks.
func (b *ReplyBuffer) Put(payload any) {
	b.mu.Lock()
	b.items = append(b.items, payload)
	pending := len(b.items)
	b.metrics.observePut()
	b.mu.Unlock()

	b.signal()
	b.publishEvent(Event{Type: EventReplyEnqueued, Pending: pending})
}

// Get removes the head payload and returns it as a Reply.
//
// With block false it fails with ErrEmpty at once when nothing is pending and
// timeout is ignored. With block true a negative timeout (NoTimeout) waits
// until a payload arrives; any other timeout bounds the wait exactly as
// GetTimeout does, so zero fails at once when nothing is pending.
func (b *ReplyBuffer) Get(block bool, timeout time.Duration) (message.Reply, error) {
	if !block {
		return b.TryGet()
	}
	if timeout < 0 {
		return b.Wait(context.Background())
	}

	return b.GetTimeout(timeout)
}

// TryGet removes the head payload without waiting.
func (b *ReplyBuffer) TryGet() (message.Reply, error) {
	payload, ok := b.pop()
	if !ok {
		return message.Reply{}, ErrEmpty
	}

	return b.deliver(payload)
}

// GetTimeout waits up to timeout for a payload. A timeout of zero or less does
// not wait.
func (b *ReplyBuffer) GetTimeout(timeout time.Duration) (message.Reply, error) {
	if timeout <= 0 {
		return b.TryGet()
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	return b.Wait(ctx)
}

// Wait blocks until a payload is available or ctx is done. When ctx ends first
// the error wraps both ErrEmpty and the context cause.
func (b *ReplyBuffer) Wait(ctx context.Context) (message.Reply, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	for {
		if payload, ok := b.pop(); ok {
			return b.deliver(payload)
		}

		select {
		case <-ctx.Done():
			return message.Reply{}, fmt.Errorf("%w: %w", ErrEmpty, context.Cause(ctx))
		case <-b.wake:
		}
	}
}

// Drain removes every pending payload without waiting. Payloads that cannot be
// converted are dropped and their errors joined into the returned error.
func (b *ReplyBuffer) Drain() ([]message.Reply, error) {
	var (
		replies []message.Reply
		errs    []error
	)
	for {
		reply, err := b.TryGet()
		if err == nil {
			replies = append(replies, reply)
			continue
		}
		if errors.Is(err, ErrEmpty) {
			break
		}
		errs = append(errs, err)
	}

	return replies, errors.Join(errs...)
}

// Len returns the number of pending payloads.
func (b *ReplyBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}

// Empty reports whether no payload is pending.
func (b *ReplyBuffer) Empty() bool {
	return b.Len() == 0
}

func (b *ReplyBuffer) pop() (any, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.items) == 0 {
		return nil, false
	}

	payload := b.items[0]
	b.items[0] = nil
	b.items = b.items[1:]
	b.metrics.observePop()
	if len(b.items) > 0 {
		// Pass the wake-up on so another waiter picks up the remainder.
		b.signal()
	}

	return payload, true
}

func (b *ReplyBuffer) signal() {
	select {
	case b.wake <- struct{}{}:
	default:
	}
}

func (b *ReplyBuffer) deliver(payload any) (message.Reply, error) {
	reply, err := message.AsReply(payload)
	b.mu.Lock()
	b.metrics.observeDelivery(err)
	b.mu.Unlock()
	if err != nil {
		b.logger().Warn("Dropped reply payload", "payload_type", fmt.Sprintf("%T", payload), "error", err)
		b.publishEvent(Event{Type: EventReplyConversionFailed, Pending: b.Len(), Error: err.Error()})
		return message.Reply{}, err
	}

	pending := b.Len()
	b.logger().Debug("Delivered reply", "tokens", len(reply.Tokens()), "pending", pending)
	b.publishEvent(Event{Type: EventReplyDelivered, Pending: pending})

	return reply, nil
}

func (b *ReplyBuffer) logger() *slog.Logger {
	b.mu.Lock()
	log := b.log
	b.mu.Unlock()
	if log == nil {
		return slog.Default().With("component", "bus.reply_buffer")
	}

	return log
}
