// Package service implements the compose queue: applications schedule
// follow-up messages for other local applications, and executors deliver them
// exactly once.
package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"lanegate/internal/compose/models"
	"lanegate/internal/compose/ports"
	"lanegate/internal/events"
	id "lanegate/pkg/domain"
	derrors "lanegate/pkg/errors"
	"lanegate/pkg/platform/sentinel"
)

// Service coordinates slot transitions and target callbacks.
type Service struct {
	store  ports.Store
	events *events.Publisher
	logger *slog.Logger

	mu      sync.RWMutex
	targets map[id.AppID]ports.Target
}

// Option configures the service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithEvents(publisher *events.Publisher) Option {
	return func(s *Service) { s.events = publisher }
}

// New builds a compose queue over the given slot store.
func New(store ports.Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, derrors.New(derrors.CodeInvalidInput, "compose store is required")
	}

	svc := &Service{
		store:   store,
		logger:  slog.Default(),
		targets: make(map[id.AppID]ports.Target),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// RegisterTarget binds a local application to its compose callback. Later
// registrations replace earlier ones.
func (s *Service) RegisterTarget(app id.AppID, target ports.Target) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.targets[app] = target
}

// Enqueue records the digest of message under (from, to, guid, index). The
// slot must be absent; entries are never overwritten or reused.
func (s *Service) Enqueue(ctx context.Context, from, to id.AppID, guid id.GUID, index uint16, message []byte) error {
	if from.IsNone() || to.IsNone() {
		return derrors.New(derrors.CodeInvalidInput, "compose sender and receiver are required")
	}
	key := models.Key{From: from, To: to, GUID: guid, Index: index}
	hash := id.HashPayload(message)
	if err := s.store.Enqueue(ctx, key, hash); err != nil {
		return storeErr(err)
	}

	s.logger.InfoContext(ctx, "compose queued",
		"from", from, "to", to, "guid", guid, "index", index)
	_ = s.events.Emit(ctx, events.Event{
		Type:        events.TypeComposeQueued,
		Sender:      from,
		Receiver:    to,
		GUID:        guid.String(),
		PayloadHash: hash.String(),
	})
	return nil
}

// Deliver consumes a pending slot and invokes the receiver's callback. The
// slot is moved to the delivered sentinel before the callback runs, so a
// reentrant deliver of the same entry fails the compare-and-set; a later
// deliver of the same entry fails it too. The slot stays consumed even when
// the callback returns an error.
func (s *Service) Deliver(ctx context.Context, executor, from, to id.AppID, guid id.GUID, index uint16, message, extraData []byte) error {
	target, err := s.target(to)
	if err != nil {
		return err
	}

	key := models.Key{From: from, To: to, GUID: guid, Index: index}
	if err := s.store.MarkDelivered(ctx, key, id.HashPayload(message)); err != nil {
		return storeErr(err)
	}

	if err := target.DeliverCompose(ctx, from, guid, message, executor, extraData); err != nil {
		return derrors.Wrap(err, derrors.CodeInternal, "compose callback failed")
	}

	s.logger.InfoContext(ctx, "compose delivered",
		"from", from, "to", to, "guid", guid, "index", index, "executor", executor)
	_ = s.events.Emit(ctx, events.Event{
		Type:     events.TypeComposeDelivered,
		Sender:   from,
		Receiver: to,
		GUID:     guid.String(),
		Executor: executor,
	})
	return nil
}

// Alert records that an executor attempted a delivery off-channel and wants
// the failure visible. Purely advisory: no slot state changes.
func (s *Service) Alert(ctx context.Context, executor, from, to id.AppID, guid id.GUID, index uint16, reason string) error {
	s.logger.WarnContext(ctx, "compose alert",
		"from", from, "to", to, "guid", guid, "index", index,
		"executor", executor, "reason", reason)
	return s.events.Emit(ctx, events.Event{
		Type:     events.TypeComposeAlert,
		Sender:   from,
		Receiver: to,
		GUID:     guid.String(),
		Executor: executor,
		Reason:   reason,
	})
}

// Hash returns the slot's stored value: empty when absent, the payload digest
// while pending, the delivered sentinel after consumption.
func (s *Service) Hash(ctx context.Context, from, to id.AppID, guid id.GUID, index uint16) (id.PayloadHash, error) {
	hash, err := s.store.Hash(ctx, models.Key{From: from, To: to, GUID: guid, Index: index})
	if err != nil {
		return id.EmptyPayloadHash, storeErr(err)
	}
	return hash, nil
}

// storeErr translates infrastructure sentinels from the slot store into coded
// errors; domain errors pass through untouched.
func storeErr(err error) error {
	if errors.Is(err, sentinel.ErrUnavailable) {
		return derrors.Wrap(err, derrors.CodeUnavailable, "compose store unavailable")
	}
	return err
}

func (s *Service) target(app id.AppID) (ports.Target, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	target, ok := s.targets[app]
	if !ok {
		return nil, derrors.Newf(derrors.CodeUnavailable, "no compose target registered for %s", app)
	}
	return target, nil
}
