// Package listeners holds change callbacks for SDK implementations.
package listeners

import "sync"

type Set struct {
	mu   sync.Mutex
	next int
	fns  map[int]func()
}

// Add registers fn and returns a func that removes it.
func (s *Set) Add(fn func()) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fns == nil {
		s.fns = make(map[int]func())
	}
	id := s.next
	s.next++
	s.fns[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.fns, id)
		})
	}
}

// Notify calls every listener outside the lock.
func (s *Set) Notify() {
	s.mu.Lock()
	fns := make([]func(), 0, len(s.fns))
	for _, fn := range s.fns {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

func (s *Set) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fns = nil
}
