// Package store provides compose queue backends: in-memory for tests and
// single-process deployments, redis for shared deployments.
package store

import (
	"context"
	"sync"

	"lanegate/internal/compose/models"
	id "lanegate/pkg/domain"
)

// InMemoryStore implements ports.Store over a map with one mutex, making both
// transitions atomic compare-and-set operations.
type InMemoryStore struct {
	mu    sync.Mutex
	slots map[models.Key]id.PayloadHash
}

// NewInMemoryStore creates an empty queue.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{slots: make(map[models.Key]id.PayloadHash)}
}

func (s *InMemoryStore) Enqueue(_ context.Context, key models.Key, hash id.PayloadHash) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.slots[key].IsEmpty() {
		return models.ErrComposeExists
	}
	s.slots[key] = hash
	return nil
}

func (s *InMemoryStore) MarkDelivered(_ context.Context, key models.Key, expected id.PayloadHash) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.slots[key] != expected {
		return models.ErrComposeNotFound
	}
	s.slots[key] = models.DeliveredSentinel
	return nil
}

func (s *InMemoryStore) Hash(_ context.Context, key models.Key) (id.PayloadHash, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.slots[key], nil
}
