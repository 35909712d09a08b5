// Package batch implements a double-buffered, mutex-guarded queue used for
// actions that may be produced on any goroutine but must be applied while the
// owning instance's execution lock is held.
//
// The two buffers swap on every drain, so the steady state allocates nothing:
// producers append into one buffer while the previous drain's buffer is being
// applied and then recycled. If a burst grows a buffer past the configured
// ceiling, its storage is released after the drain, trading reallocation cost
// for bounded steady-state memory.
package batch

import "sync"

// Queue is a double-buffered multi-producer queue. Push may be called from
// any goroutine; Drain must only be called by the queue's single consumer.
type Queue[T any] struct {
	mu         sync.Mutex
	active     []T
	spare      []T
	initialCap int
	maxCap     int
}

// New creates a queue with the given initial buffer capacity and the capacity
// ceiling past which a drained buffer is discarded instead of recycled.
func New[T any](initialCap, maxCap int) *Queue[T] {
	return &Queue[T]{
		active:     make([]T, 0, initialCap),
		spare:      make([]T, 0, initialCap),
		initialCap: initialCap,
		maxCap:     maxCap,
	}
}

// Push enqueues an item. Safe to call from any goroutine at any time.
func (q *Queue[T]) Push(item T) {
	q.mu.Lock()
	q.active = append(q.active, item)
	q.mu.Unlock()
}

// Drain moves the entire backlog out under the mutex, then applies fn to each
// item in enqueue order outside of it, so arbitrarily expensive apply work
// never blocks producers. Items pushed before Drain is called are guaranteed
// to be applied by this drain; items pushed concurrently land in this drain
// or the next, never lost.
func (q *Queue[T]) Drain(fn func(T)) {
	q.mu.Lock()
	items := q.active
	q.active = q.spare[:0]
	q.spare = nil
	q.mu.Unlock()

	for i := range items {
		fn(items[i])
	}

	clear(items)
	if cap(items) > q.maxCap {
		items = make([]T, 0, q.initialCap)
	}

	q.mu.Lock()
	q.spare = items[:0]
	q.mu.Unlock()
}

// Len returns the current backlog size.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.active)
}

// Cap returns the active buffer's capacity. Exposed for capacity-policy
// verification.
func (q *Queue[T]) Cap() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return cap(q.active)
}
