package kvstore

import (
	"context"
	"sync"

	"github.com/smartspendr/bfa-go/internal/domain"
)

// MemoryStore implements port.ResourceStore and port.MutationQueue in
// process memory. Nothing survives a restart; it exists for tests and
// for deployments that run without a database file.
type MemoryStore struct {
	mu        sync.RWMutex
	gens      map[string]map[string]domain.CachedResource
	mutations []domain.QueuedMutation
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{gens: make(map[string]map[string]domain.CachedResource)}
}

func (s *MemoryStore) Put(_ context.Context, generation, key string, res domain.CachedResource) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gens[generation] == nil {
		s.gens[generation] = make(map[string]domain.CachedResource)
	}
	s.gens[generation][key] = res
	return nil
}

func (s *MemoryStore) Match(_ context.Context, generation, key string) (domain.CachedResource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if res, ok := s.gens[generation][key]; ok {
		return res, nil
	}
	return domain.CachedResource{}, &domain.ErrCacheMiss{Key: key}
}

func (s *MemoryStore) Generations(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.gens))
	for g := range s.gens {
		out = append(out, g)
	}
	return out, nil
}

func (s *MemoryStore) DeleteGeneration(_ context.Context, generation string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.gens, generation)
	return nil
}

func (s *MemoryStore) Enqueue(_ context.Context, m domain.QueuedMutation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mutations = append(s.mutations, m)
	return nil
}

func (s *MemoryStore) Pending(_ context.Context) ([]domain.QueuedMutation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.QueuedMutation, len(s.mutations))
	copy(out, s.mutations)
	return out, nil
}

func (s *MemoryStore) Ack(_ context.Context, clientID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, m := range s.mutations {
		if m.ClientID == clientID {
			s.mutations = append(s.mutations[:i], s.mutations[i+1:]...)
			return nil
		}
	}
	return nil
}
