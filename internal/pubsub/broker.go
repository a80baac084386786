// Package pubsub implements a small generic fan-out broker.
//
// Subscribers receive events on a buffered channel that is closed when the
// subscription context is cancelled or the broker is shut down. Publishing
// never blocks: when a subscriber falls behind its buffer, the event is
// dropped for that subscriber and counted.
package pubsub

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v3"
)

// DefaultBufferSize is the per-subscriber channel capacity.
const DefaultBufferSize = 128

// EventType tags what happened to the payload.
type EventType string

const (
	CreatedEvent EventType = "created"
	UpdatedEvent EventType = "updated"
	DeletedEvent EventType = "deleted"
)

// Event wraps a payload published through a Broker.
type Event[T any] struct {
	Type    EventType
	Payload T
}

type subscriber[T any] struct {
	mu     sync.RWMutex
	ch     chan Event[T]
	closed bool
}

// send reports false when the event had to be dropped.
func (s *subscriber[T]) send(evt Event[T]) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return true
	}
	select {
	case s.ch <- evt:
		return true
	default:
		return false
	}
}

func (s *subscriber[T]) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}

// Broker fans events out to every active subscriber.
type Broker[T any] struct {
	subs    *xsync.MapOf[uint64, *subscriber[T]]
	nextID  atomic.Uint64
	dropped atomic.Uint64
	closed  atomic.Bool
	buffer  int
}

// NewBroker creates a broker with DefaultBufferSize subscriber buffers.
func NewBroker[T any]() *Broker[T] {
	return NewBrokerWithBuffer[T](DefaultBufferSize)
}

// NewBrokerWithBuffer creates a broker with the given subscriber buffer size.
func NewBrokerWithBuffer[T any](size int) *Broker[T] {
	if size <= 0 {
		size = DefaultBufferSize
	}
	return &Broker[T]{
		subs:   xsync.NewMapOf[uint64, *subscriber[T]](),
		buffer: size,
	}
}

// Subscribe registers a subscriber for the lifetime of ctx.
// The returned channel is closed once ctx is done or the broker shuts down.
func (b *Broker[T]) Subscribe(ctx context.Context) <-chan Event[T] {
	sub := &subscriber[T]{ch: make(chan Event[T], b.buffer)}
	if b.closed.Load() {
		sub.close()
		return sub.ch
	}

	id := b.nextID.Add(1)
	b.subs.Store(id, sub)

	go func() {
		<-ctx.Done()
		if s, ok := b.subs.LoadAndDelete(id); ok {
			s.close()
		}
	}()

	return sub.ch
}

// Publish delivers an event to every subscriber without blocking.
func (b *Broker[T]) Publish(typ EventType, payload T) {
	if b.closed.Load() {
		return
	}
	evt := Event[T]{Type: typ, Payload: payload}
	b.subs.Range(func(_ uint64, s *subscriber[T]) bool {
		if !s.send(evt) {
			b.dropped.Add(1)
		}
		return true
	})
}

// SubscriberCount reports the number of active subscribers.
func (b *Broker[T]) SubscriberCount() int {
	return b.subs.Size()
}

// Dropped reports how many deliveries were skipped because a subscriber was full.
func (b *Broker[T]) Dropped() uint64 {
	return b.dropped.Load()
}

// Shutdown closes every subscriber channel. Later publishes are ignored.
func (b *Broker[T]) Shutdown() {
	if !b.closed.CompareAndSwap(false, true) {
		return
	}
	b.subs.Range(func(id uint64, s *subscriber[T]) bool {
		b.subs.Delete(id)
		s.close()
		return true
	})
}
