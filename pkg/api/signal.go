package api

import "sync"

// Signal is a shared mutable cell. Readers poll it; there is no change
// notification.
//
// The zero value holds the zero value of T and is ready to use. A Signal must
// not be copied after first use; share it by pointer.
type Signal[T any] struct {
	mu sync.RWMutex
	v  T
}

// NewSignal returns a Signal holding v.
func NewSignal[T any](v T) *Signal[T] {
	return &Signal[T]{v: v}
}

// Get returns the current value.
func (s *Signal[T]) Get() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.v
}

// Set replaces the current value.
func (s *Signal[T]) Set(v T) {
	s.mu.Lock()
	s.v = v
	s.mu.Unlock()
}

// Swap stores v and returns the previous value.
func (s *Signal[T]) Swap(v T) T {
	s.mu.Lock()
	defer s.mu.Unlock()
	old := s.v
	s.v = v
	return old
}
