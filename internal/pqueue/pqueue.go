// Package pqueue provides a fixed-capacity binary min-heap keyed by a
// float64 value.
//
// The queue never grows. A Push that would exceed the capacity given to New is
// dropped silently, leaving every entry already queued untouched. This is the
// overflow policy the k-d tree search relies on: the queue bounds memory per
// query and degrades the approximation instead of failing.
//
// A Queue is not safe for concurrent use.
package pqueue

// entry is a single heap slot.
type entry[T any] struct {
	value float64
	ref   T
}

// Queue is a bounded min-heap. The zero value has capacity 0 and drops every
// push; use New.
type Queue[T any] struct {
	items []entry[T]
	size  int
}

// New creates a queue that holds at most capacity entries. The backing storage
// is allocated once here and reused across Clear calls.
func New[T any](capacity int) *Queue[T] {
	if capacity < 0 {
		capacity = 0
	}
	return &Queue[T]{items: make([]entry[T], capacity)}
}

// Cap returns the maximum number of entries.
func (q *Queue[T]) Cap() int { return len(q.items) }

// Len returns the number of queued entries.
func (q *Queue[T]) Len() int { return q.size }

// Clear resets the logical size to zero without releasing storage.
func (q *Queue[T]) Clear() {
	var zero T
	for i := 0; i < q.size; i++ {
		q.items[i].ref = zero
	}
	q.size = 0
}

// Push inserts ref keyed by value. When the queue is full the push is dropped
// and false is returned; the caller may ignore the result.
func (q *Queue[T]) Push(value float64, ref T) bool {
	if q.size >= len(q.items) {
		return false
	}

	i := q.size
	q.size++
	q.items[i] = entry[T]{value: value, ref: ref}

	// sift up
	for i > 0 {
		parent := (i - 1) / 2
		if q.items[parent].value <= q.items[i].value {
			break
		}
		q.items[parent], q.items[i] = q.items[i], q.items[parent]
		i = parent
	}
	return true
}

// Peek returns the minimum entry without removing it. ok is false when the
// queue is empty.
func (q *Queue[T]) Peek() (value float64, ref T, ok bool) {
	if q.size == 0 {
		return 0, ref, false
	}
	return q.items[0].value, q.items[0].ref, true
}

// Pop removes and returns the minimum entry. ok is false when the queue is
// empty.
func (q *Queue[T]) Pop() (value float64, ref T, ok bool) {
	if q.size == 0 {
		return 0, ref, false
	}

	top := q.items[0]
	q.size--
	last := q.items[q.size]
	var zero T
	q.items[q.size].ref = zero

	if q.size > 0 {
		q.items[0] = last
		q.siftDown(0)
	}
	return top.value, top.ref, true
}

func (q *Queue[T]) siftDown(i int) {
	for {
		left := 2*i + 1
		if left >= q.size {
			return
		}
		smallest := left
		if right := left + 1; right < q.size && q.items[right].value < q.items[left].value {
			smallest = right
		}
		if q.items[i].value <= q.items[smallest].value {
			return
		}
		q.items[i], q.items[smallest] = q.items[smallest], q.items[i]
		i = smallest
	}
}
