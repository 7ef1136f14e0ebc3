package notify

import (
	"context"
	"sync"
)

// MemoryBus is an in-process notifier for single-process runs and tests.
// Each subscriber consumes from its own buffered queue so handlers see
// changes in publish order without blocking the publisher.
type MemoryBus struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan Change
}

const memoryBusBuffer = 64

// NewMemoryBus creates an in-process notifier
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{subs: make(map[int]chan Change)}
}

// Publish delivers the change to every current subscriber
func (b *MemoryBus) Publish(_ context.Context, change Change) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs {
		select {
		case ch <- change:
		default:
			// Subscriber is too far behind; at-most-once delivery allows
			// dropping rather than blocking the publisher.
		}
	}
	return nil
}

// Subscribe registers a handler for subsequent changes
func (b *MemoryBus) Subscribe(_ context.Context, handler Handler) (func(), error) {
	ch := make(chan Change, memoryBusBuffer)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	go func() {
		for change := range ch {
			handler(change)
		}
	}()

	var once sync.Once
	stop := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
	return stop, nil
}
