package engine

import (
	"context"
	"sync"
)

// mailbox is an unbounded multi producer queue. Push never blocks.
type mailbox[T any] struct {
	mu     sync.Mutex
	items  []T
	notify chan struct{}
}

func newMailbox[T any]() *mailbox[T] {
	return &mailbox[T]{notify: make(chan struct{}, 1)}
}

func (m *mailbox[T]) Push(v T) {
	m.mu.Lock()
	m.items = append(m.items, v)
	m.mu.Unlock()

	select {
	case m.notify <- struct{}{}:
	default:
	}
}

func (m *mailbox[T]) HasPending() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items) > 0
}

func (m *mailbox[T]) TryPop() (T, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var zero T
	if len(m.items) == 0 {
		return zero, false
	}

	v := m.items[0]
	m.items[0] = zero
	m.items = m.items[1:]
	return v, true
}

// Drain takes everything queued right now, in order
func (m *mailbox[T]) Drain() []T {
	m.mu.Lock()
	defer m.mu.Unlock()

	items := m.items
	m.items = nil
	return items
}

// Wait blocks until at least one item is queued, then drains the queue
func (m *mailbox[T]) Wait(ctx context.Context) ([]T, error) {
	for {
		if items := m.Drain(); len(items) > 0 {
			return items, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-m.notify:
		}
	}
}
