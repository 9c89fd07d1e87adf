package source

import (
	"context"
	"sync"
	"time"

	"relief-hq/relief/pkg/policy/ast"
)

// MemorySource holds policies in memory. Set replaces them and notifies
// watchers, which makes it the source of choice for tests.
type MemorySource struct {
	mu       sync.RWMutex
	policies []*ast.Policy
	err      error
	watchers []chan Event
}

// NewMemorySource creates a source holding policies.
func NewMemorySource(policies ...*ast.Policy) *MemorySource {
	return &MemorySource{policies: policies}
}

// Name returns "memory".
func (s *MemorySource) Name() string {
	return "memory"
}

// LoadPolicies returns clones of the held policies, or the error set by Fail.
func (s *MemorySource) LoadPolicies(ctx context.Context) ([]*ast.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.err != nil {
		return nil, s.err
	}
	out := make([]*ast.Policy, len(s.policies))
	for i, p := range s.policies {
		out[i] = p.Clone()
	}
	return out, nil
}

// Set replaces the held policies and emits EventModified.
func (s *MemorySource) Set(policies ...*ast.Policy) {
	s.mu.Lock()
	s.policies = policies
	s.err = nil
	s.mu.Unlock()
	s.notify(Event{Type: EventModified, Path: "memory", Time: time.Now()})
}

// Fail makes subsequent loads return err until the next Set.
func (s *MemorySource) Fail(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
	s.notify(Event{Type: EventModified, Path: "memory", Time: time.Now()})
}

// Watch returns a channel that receives an event for every Set or Fail.
func (s *MemorySource) Watch(ctx context.Context) (<-chan Event, error) {
	ch := make(chan Event, 16)

	s.mu.Lock()
	s.watchers = append(s.watchers, ch)
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, w := range s.watchers {
			if w == ch {
				s.watchers = append(s.watchers[:i], s.watchers[i+1:]...)
				break
			}
		}
		close(ch)
	}()
	return ch, nil
}

// Close is a no-op.
func (s *MemorySource) Close() error {
	return nil
}

// notify delivers ev to every watcher without blocking; a watcher with a
// full buffer misses the event.
func (s *MemorySource) notify(ev Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, w := range s.watchers {
		select {
		case w <- ev:
		default:
		}
	}
}
