package buffer

import (
	"sync"

	"github.com/eapache/queue"
)

// Ring is a thread-safe bounded FIFO that never blocks producers.
// When full, Send evicts the oldest unread item to make room.
type Ring[T any] struct {
	mu       sync.Mutex
	cond     *sync.Cond
	items    *queue.Queue
	capacity int
	closed   bool

	// Stats
	totalReceived int64
	totalSent     int64
	dropped       int64
}

// NewRing creates a ring holding at most capacity unread items.
func NewRing[T any](capacity int) *Ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	r := &Ring[T]{
		items:    queue.New(),
		capacity: capacity,
	}
	r.cond = sync.NewCond(&r.mu)
	return r
}

// Send appends an item, evicting the oldest one if the ring is full.
// Returns false if the ring is closed.
func (r *Ring[T]) Send(item T) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return false
	}

	if r.items.Length() >= r.capacity {
		r.items.Remove()
		r.dropped++
	}

	r.items.Add(item)
	r.totalReceived++

	r.cond.Signal()
	return true
}

// Receive removes and returns the oldest item.
// Blocks until an item is available or the ring is closed.
// Returns the zero value and false once the ring is closed, even if
// unread items remain. TryReceive and DrainTo still return them.
func (r *Ring[T]) Receive() (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for r.items.Length() == 0 && !r.closed {
		r.cond.Wait()
	}

	if r.closed {
		var zero T
		return zero, false
	}

	return r.pop(), true
}

// TryReceive attempts to receive without blocking.
func (r *Ring[T]) TryReceive() (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.items.Length() == 0 {
		var zero T
		return zero, false
	}

	return r.pop(), true
}

// Close closes the ring. After closing, Send returns false and
// blocked receivers wake up.
func (r *Ring[T]) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true
	r.cond.Broadcast()
}

// Closed reports whether Close has been called.
func (r *Ring[T]) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// Len returns the number of unread items.
func (r *Ring[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.items.Length()
}

// Cap returns the maximum number of unread items.
func (r *Ring[T]) Cap() int {
	return r.capacity
}

// Stats returns ring statistics.
func (r *Ring[T]) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Stats{
		Count:         r.items.Length(),
		Capacity:      r.capacity,
		TotalReceived: r.totalReceived,
		TotalSent:     r.totalSent,
		Dropped:       r.dropped,
	}
}

// Stats contains ring statistics.
type Stats struct {
	Count         int
	Capacity      int
	TotalReceived int64
	TotalSent     int64
	Dropped       int64 // Items evicted unread because the ring was full
}

// DrainTo removes up to max items (all if max <= 0) without blocking.
// Useful for batch processing.
func (r *Ring[T]) DrainTo(max int) []T {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := r.items.Length()
	if n == 0 {
		return nil
	}
	if max > 0 && max < n {
		n = max
	}

	result := make([]T, n)
	for i := 0; i < n; i++ {
		result[i] = r.pop()
	}
	return result
}

// pop removes the head item. Must be called with lock held and a non-empty queue.
func (r *Ring[T]) pop() T {
	item, _ := r.items.Remove().(T)
	r.totalSent++
	return item
}
