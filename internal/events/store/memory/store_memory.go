// Package memory is the in-memory event store used in tests and single
// process deployments.
package memory

import (
	"context"
	"sync"

	"lanegate/internal/events"
	id "lanegate/pkg/domain"
)

// Store keeps events in append order.
type Store struct {
	mu     sync.RWMutex
	events []events.Event
}

// New creates an empty store.
func New() *Store {
	return &Store{}
}

func (s *Store) Append(_ context.Context, event events.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *Store) ListByLane(_ context.Context, srcDomain id.DomainID, sender, receiver id.AppID) ([]events.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]events.Event, 0, len(s.events))
	for _, e := range s.events {
		if srcDomain != 0 && e.SrcDomain != srcDomain {
			continue
		}
		if !sender.IsNone() && e.Sender != sender {
			continue
		}
		if !receiver.IsNone() && e.Receiver != receiver {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}
