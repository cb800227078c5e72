// Package ring implements the fixed-capacity circular slot array behind the deque.
//
// Slots are addressed by logical indices: monotonically increasing counters that
// are never wrapped by the caller. The ring maps them onto physical slots modulo
// its capacity. Ring performs no synchronization of its own.
package ring

// Ring is a fixed-size circular array of T.
type Ring[T any] struct {
	slots []T
	size  int64
}

// New allocates a ring with the given capacity. Capacity must be positive.
func New[T any](capacity int) *Ring[T] {
	if capacity <= 0 {
		panic("ring: capacity must be positive")
	}
	return &Ring[T]{
		slots: make([]T, capacity),
		size:  int64(capacity),
	}
}

// Cap returns the number of slots.
func (r *Ring[T]) Cap() int {
	return len(r.slots)
}

// Index maps a logical index to its physical slot. The result is always in
// [0, Cap()), including for negative logical indices.
func (r *Ring[T]) Index(i int64) int {
	n := i % r.size
	if n < 0 {
		n += r.size
	}
	return int(n)
}

// At returns the value stored at logical index i.
func (r *Ring[T]) At(i int64) T {
	return r.slots[r.Index(i)]
}

// Set stores v at logical index i.
func (r *Ring[T]) Set(i int64, v T) {
	r.slots[r.Index(i)] = v
}

// Clear resets the slot at logical index i to the zero value so the ring stops
// referencing whatever was stored there.
func (r *Ring[T]) Clear(i int64) {
	var zero T
	r.slots[r.Index(i)] = zero
}

// ShiftDown moves every slot in (from, to] one position toward from, so slot k
// receives the value of slot k+1 for k in [from, to). The slot at to keeps its
// old value; callers usually Clear it afterwards.
func (r *Ring[T]) ShiftDown(from, to int64) {
	for k := from; k < to; k++ {
		r.slots[r.Index(k)] = r.slots[r.Index(k+1)]
	}
}

// Reset zeroes every slot.
func (r *Ring[T]) Reset() {
	clear(r.slots)
}
