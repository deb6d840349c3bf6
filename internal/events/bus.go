// Package events is a minimal typed publish/subscribe bus. Each event type
// gets its own Bus, so subscribers never type-switch on payloads.
package events

import (
	"sort"
	"sync"
)

type Bus[T any] struct {
	mu   sync.RWMutex
	subs map[int]func(T)
	next int
}

func NewBus[T any]() *Bus[T] {
	return &Bus[T]{subs: make(map[int]func(T))}
}

// Subscribe registers fn and returns a function that removes it. Calling the
// returned function more than once is fine.
func (b *Bus[T]) Subscribe(fn func(T)) func() {
	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = fn
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

// Publish delivers ev synchronously to every subscriber in subscription
// order. Subscribers may subscribe or unsubscribe from inside the callback.
func (b *Bus[T]) Publish(ev T) {
	b.mu.RLock()
	ids := make([]int, 0, len(b.subs))
	for id := range b.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(T), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, b.subs[id])
	}
	b.mu.RUnlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// Len reports the number of subscribers.
func (b *Bus[T]) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
