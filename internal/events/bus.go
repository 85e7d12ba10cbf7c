package events

import (
	"sync"
	"sync/atomic"
)

// Bus fans notifications out to subscribed handlers. Publish never blocks
// the caller; when the buffer is full the notification is dropped.
type Bus struct {
	Capacity int

	events  chan Notification
	done    chan struct{}
	dropped atomic.Int64

	mu       sync.RWMutex
	handlers map[int]Handler
	nextID   int
	closed   bool
}

// NewBus creates a bus with the given buffer capacity and starts dispatching
func NewBus(capacity int) *Bus {
	if capacity < 1 {
		capacity = 1
	}
	b := &Bus{
		Capacity: capacity,
		events:   make(chan Notification, capacity),
		done:     make(chan struct{}),
		handlers: make(map[int]Handler),
	}
	go b.dispatch()
	return b
}

// Subscribe registers h and returns a function that removes it.
// The returned function is safe to call more than once.
func (b *Bus) Subscribe(h Handler) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.handlers[id] = h
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.handlers, id)
			b.mu.Unlock()
		})
	}
}

// Publish queues n for delivery. It returns false if n was dropped.
func (b *Bus) Publish(n Notification) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return false
	}
	select {
	case b.events <- n:
		return true
	default:
		b.dropped.Add(1)
		return false
	}
}

// Dropped returns how many notifications were discarded for lack of buffer
func (b *Bus) Dropped() int {
	return int(b.dropped.Load())
}

// Close stops the bus after delivering anything already queued
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	close(b.events)
	b.mu.Unlock()

	<-b.done
	return nil
}

func (b *Bus) dispatch() {
	defer close(b.done)
	for n := range b.events {
		b.mu.RLock()
		hs := make([]Handler, 0, len(b.handlers))
		for _, h := range b.handlers {
			hs = append(hs, h)
		}
		b.mu.RUnlock()

		for _, h := range hs {
			h(n)
		}
	}
}
