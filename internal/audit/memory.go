package audit

import (
	"context"
	"sync"
)

// MemoryStore keeps events in process, indexed by domain.
type MemoryStore struct {
	mu       sync.RWMutex
	events   []Event
	byDomain map[string][]int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byDomain: make(map[string][]int)}
}

func (s *MemoryStore) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	if event.Domain != "" {
		s.byDomain[event.Domain] = append(s.byDomain[event.Domain], len(s.events)-1)
	}
	return nil
}

// ListByDomain returns the events for name in append order.
func (s *MemoryStore) ListByDomain(_ context.Context, name string) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := s.byDomain[name]
	out := make([]Event, 0, len(idx))
	for _, i := range idx {
		out = append(out, s.events[i])
	}
	return out, nil
}

// ListRecent returns up to limit of the newest events, oldest first.
func (s *MemoryStore) ListRecent(_ context.Context, limit int) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	start := len(s.events) - limit
	if start < 0 || limit <= 0 {
		start = 0
	}
	return append([]Event{}, s.events[start:]...), nil
}

func (s *MemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
	s.byDomain = make(map[string][]int)
}
