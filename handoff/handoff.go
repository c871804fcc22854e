// Package handoff passes a value from one step to the next through a
// single slot that can be consumed at most once.
package handoff

import "sync"

// Slot holds at most one pending value. The zero value is an empty slot
// ready for use.
type Slot[T any] struct {
	mu      sync.Mutex
	value   T
	pending bool
}

// Put stores v, replacing any value that was never taken.
func (s *Slot[T]) Put(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.value = v
	s.pending = true
}

// Take returns the pending value and empties the slot. ok is false when
// there was nothing to take.
func (s *Slot[T]) Take() (v T, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.pending {
		return v, false
	}
	v = s.value
	var zero T
	s.value = zero
	s.pending = false
	return v, true
}

// Peek returns the pending value without taking it.
func (s *Slot[T]) Peek() (v T, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value, s.pending
}

// Pending reports whether a value is waiting to be taken.
func (s *Slot[T]) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}
