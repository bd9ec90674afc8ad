// Package ring provides a fixed-capacity FIFO used for the bounded history
// buffers in the cascade. Eviction happens on push; there is never a
// separate cleanup pass, so history memory is bounded by construction.
package ring

// Buffer is a fixed-capacity FIFO. The zero value is not usable; construct
// with New. Not safe for concurrent use: each pipeline component owns its
// buffer exclusively.
type Buffer[T any] struct {
	items []T
	head  int
	size  int
}

// New allocates a buffer with the given capacity. Capacities below 1 are
// raised to 1.
func New[T any](capacity int) *Buffer[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Buffer[T]{items: make([]T, capacity)}
}

// Push appends an item, evicting the oldest when full.
func (b *Buffer[T]) Push(item T) {
	if b.size < len(b.items) {
		b.items[(b.head+b.size)%len(b.items)] = item
		b.size++
		return
	}
	b.items[b.head] = item
	b.head = (b.head + 1) % len(b.items)
}

// Len returns the number of stored items.
func (b *Buffer[T]) Len() int { return b.size }

// Cap returns the fixed capacity.
func (b *Buffer[T]) Cap() int { return len(b.items) }

// At returns the item at position i, oldest first. Panics when out of range,
// matching slice semantics.
func (b *Buffer[T]) At(i int) T {
	if i < 0 || i >= b.size {
		panic("ring: index out of range")
	}
	return b.items[(b.head+i)%len(b.items)]
}

// Last returns the most recently pushed item and whether one exists.
func (b *Buffer[T]) Last() (T, bool) {
	var zero T
	if b.size == 0 {
		return zero, false
	}
	return b.At(b.size - 1), true
}

// Items copies the contents oldest-first into a fresh slice.
func (b *Buffer[T]) Items() []T {
	out := make([]T, b.size)
	for i := 0; i < b.size; i++ {
		out[i] = b.At(i)
	}
	return out
}

// Clear drops all items without reallocating.
func (b *Buffer[T]) Clear() {
	var zero T
	for i := range b.items {
		b.items[i] = zero
	}
	b.head = 0
	b.size = 0
}
