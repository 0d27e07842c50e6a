package catalog

import "sync"

// orderedSet is an append-only, insertion-ordered set that is safe for
// concurrent use. Items are never removed; removal semantics are modelled
// by a second set, not by mutating this one.
type orderedSet[T comparable] struct {
	mu    sync.RWMutex
	items []T
	index map[T]struct{}
}

// Add inserts v and reports whether it was not already present.
func (s *orderedSet[T]) Add(v T) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.index[v]; ok {
		return false
	}
	if s.index == nil {
		s.index = make(map[T]struct{})
	}
	s.index[v] = struct{}{}
	s.items = append(s.items, v)
	return true
}

func (s *orderedSet[T]) Contains(v T) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.index[v]
	return ok
}

func (s *orderedSet[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Snapshot returns the items visible at call time, in insertion order.
// Since items are only appended, the returned slice header never observes
// later writes.
func (s *orderedSet[T]) Snapshot() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.items[:len(s.items):len(s.items)]
}
