package history

import (
	"context"
	"sync"

	"relief-hq/relief/pkg/roster"
)

// MemoryStore keeps history in memory.
type MemoryStore struct {
	mu   sync.RWMutex
	subs []roster.Substitution
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Append(ctx context.Context, subs ...roster.Substitution) error {
	for _, sub := range subs {
		if err := check(sub); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sub := range subs {
		if !s.contains(sub) {
			s.subs = append(s.subs, sub)
		}
	}
	sortRecords(s.subs)
	return nil
}

func (s *MemoryStore) contains(sub roster.Substitution) bool {
	for _, have := range s.subs {
		if compare(have, sub) == 0 {
			return true
		}
	}
	return false
}

func (s *MemoryStore) Between(ctx context.Context, from, to roster.Date) ([]roster.Substitution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []roster.Substitution{}
	for _, sub := range s.subs {
		if sub.Date.Before(from.Time) || sub.Date.After(to.Time) {
			continue
		}
		out = append(out, sub)
	}
	return out, nil
}

func (s *MemoryStore) All(ctx context.Context) ([]roster.Substitution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]roster.Substitution{}, s.subs...), nil
}

func (s *MemoryStore) Close() error {
	return nil
}
