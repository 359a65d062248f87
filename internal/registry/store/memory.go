// Package store holds the routing tables: registered libraries, defaults,
// overrides, migration timeouts, and delegates. Plain CRUD under one RWMutex;
// the service layer owns every rule.
package store

import (
	"sync"

	"lanegate/internal/registry/models"
	"lanegate/internal/registry/ports"
	id "lanegate/pkg/domain"
)

// InMemoryRouteStore implements the registry's persisted layout over maps.
type InMemoryRouteStore struct {
	mu sync.RWMutex

	libraries map[models.LibraryID]ports.MessageLibrary

	sendDefaults map[id.DomainID]models.LibraryID
	recvDefaults map[id.DomainID]models.LibraryID

	sendOverrides map[models.RouteKey]models.LibraryID
	recvOverrides map[models.RouteKey]models.LibraryID

	defaultTimeouts  map[id.DomainID]models.TimeoutRecord
	overrideTimeouts map[models.RouteKey]models.TimeoutRecord

	delegates map[id.AppID]id.AppID
}

// NewInMemoryRouteStore creates empty routing tables.
func NewInMemoryRouteStore() *InMemoryRouteStore {
	return &InMemoryRouteStore{
		libraries:        make(map[models.LibraryID]ports.MessageLibrary),
		sendDefaults:     make(map[id.DomainID]models.LibraryID),
		recvDefaults:     make(map[id.DomainID]models.LibraryID),
		sendOverrides:    make(map[models.RouteKey]models.LibraryID),
		recvOverrides:    make(map[models.RouteKey]models.LibraryID),
		defaultTimeouts:  make(map[id.DomainID]models.TimeoutRecord),
		overrideTimeouts: make(map[models.RouteKey]models.TimeoutRecord),
		delegates:        make(map[id.AppID]id.AppID),
	}
}

// AddLibrary appends a handle. Duplicate detection is the service's job.
func (s *InMemoryRouteStore) AddLibrary(lib ports.MessageLibrary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.libraries[lib.ID()] = lib
}

// Library looks up a registered handle.
func (s *InMemoryRouteStore) Library(libID models.LibraryID) (ports.MessageLibrary, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lib, ok := s.libraries[libID]
	return lib, ok
}

// Libraries lists registered ids; order is unspecified.
func (s *InMemoryRouteStore) Libraries() []models.LibraryID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]models.LibraryID, 0, len(s.libraries))
	for libID := range s.libraries {
		ids = append(ids, libID)
	}
	return ids
}

func (s *InMemoryRouteStore) Default(direction models.Direction, domain id.DomainID) models.LibraryID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if direction == models.DirectionSend {
		return s.sendDefaults[domain]
	}
	return s.recvDefaults[domain]
}

func (s *InMemoryRouteStore) SetDefault(direction models.Direction, domain id.DomainID, libID models.LibraryID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if direction == models.DirectionSend {
		s.sendDefaults[domain] = libID
		return
	}
	s.recvDefaults[domain] = libID
}

func (s *InMemoryRouteStore) Override(direction models.Direction, key models.RouteKey) models.LibraryID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if direction == models.DirectionSend {
		return s.sendOverrides[key]
	}
	return s.recvOverrides[key]
}

func (s *InMemoryRouteStore) SetOverride(direction models.Direction, key models.RouteKey, libID models.LibraryID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if direction == models.DirectionSend {
		if libID.IsDefault() {
			delete(s.sendOverrides, key)
		} else {
			s.sendOverrides[key] = libID
		}
		return
	}
	if libID.IsDefault() {
		delete(s.recvOverrides, key)
	} else {
		s.recvOverrides[key] = libID
	}
}

func (s *InMemoryRouteStore) DefaultTimeout(domain id.DomainID) models.TimeoutRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.defaultTimeouts[domain]
}

func (s *InMemoryRouteStore) SetDefaultTimeout(domain id.DomainID, record models.TimeoutRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record.IsZero() {
		delete(s.defaultTimeouts, domain)
		return
	}
	s.defaultTimeouts[domain] = record
}

func (s *InMemoryRouteStore) OverrideTimeout(key models.RouteKey) models.TimeoutRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.overrideTimeouts[key]
}

func (s *InMemoryRouteStore) SetOverrideTimeout(key models.RouteKey, record models.TimeoutRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record.IsZero() {
		delete(s.overrideTimeouts, key)
		return
	}
	s.overrideTimeouts[key] = record
}

func (s *InMemoryRouteStore) Delegate(app id.AppID) id.AppID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.delegates[app]
}

func (s *InMemoryRouteStore) SetDelegate(app, delegate id.AppID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if delegate.IsNone() {
		delete(s.delegates, app)
		return
	}
	s.delegates[app] = delegate
}
