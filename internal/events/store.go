package events

import "sync"

// Store is a bounded in-memory ring of recently emitted events, kept
// for the query API. When full, the oldest entry is dropped.
type Store[T any] struct {
	mu    sync.RWMutex
	buf   []T
	limit int
	total int
}

func NewStore[T any](limit int) *Store[T] {
	if limit <= 0 {
		limit = 1000
	}
	return &Store[T]{limit: limit}
}

func (s *Store[T]) Add(ev T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.total++
	if len(s.buf) < s.limit {
		s.buf = append(s.buf, ev)
		return
	}
	copy(s.buf, s.buf[1:])
	s.buf[len(s.buf)-1] = ev
}

// List returns up to limit of the most recent events, oldest first.
// limit <= 0 returns everything retained.
func (s *Store[T]) List(limit int) []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 || limit > len(s.buf) {
		limit = len(s.buf)
	}
	out := make([]T, limit)
	copy(out, s.buf[len(s.buf)-limit:])
	return out
}

// Total counts every event ever added, including evicted ones.
func (s *Store[T]) Total() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.total
}

func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.buf)
}

func (s *Store[T]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf = nil
	s.total = 0
}
