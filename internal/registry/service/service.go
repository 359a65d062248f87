// Package service implements the library registry and router: which modules
// exist, which one is authoritative for a route, and the timed migration
// windows that keep in-flight messages deliverable while a route changes.
package service

import (
	"context"
	"log/slog"
	"time"

	"lanegate/internal/events"
	"lanegate/internal/registry/models"
	"lanegate/internal/registry/ports"
	"lanegate/internal/registry/store"
	id "lanegate/pkg/domain"
	derrors "lanegate/pkg/errors"
)

// HeightFunc supplies the current height used for timeout expiry. The
// production default is wall-clock seconds, so grace periods are expressed in
// seconds; deployments with a native block height inject their own source.
type HeightFunc func() uint64

// Service owns the routing rules over a dumb route store.
type Service struct {
	owner  id.AppID
	store  *store.InMemoryRouteStore
	height HeightFunc
	events *events.Publisher
	logger *slog.Logger
}

// Option configures the service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithEvents(publisher *events.Publisher) Option {
	return func(s *Service) { s.events = publisher }
}

// WithHeight injects the height source used for migration expiry.
func WithHeight(height HeightFunc) Option {
	return func(s *Service) { s.height = height }
}

// New builds a registry owned by owner. The caller must register the
// synthetic blocked library immediately after construction (the coordinator
// wiring does this) so routes can always be pointed at a safe default.
func New(owner id.AppID, routeStore *store.InMemoryRouteStore, opts ...Option) (*Service, error) {
	if owner.IsNone() {
		return nil, derrors.New(derrors.CodeInvalidInput, "registry owner is required")
	}
	if routeStore == nil {
		return nil, derrors.New(derrors.CodeInvalidInput, "route store is required")
	}

	svc := &Service{
		owner:  owner,
		store:  routeStore,
		height: func() uint64 { return uint64(time.Now().Unix()) },
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Height returns the current height from the injected source.
func (s *Service) Height() uint64 { return s.height() }

// Authorized reports whether caller may act for app: the app itself or its
// registered delegate.
func (s *Service) Authorized(caller, app id.AppID) bool {
	if caller == app && !caller.IsNone() {
		return true
	}
	return !caller.IsNone() && s.store.Delegate(app) == caller
}

// Register adds a module to the append-only registered set. Owner-gated.
func (s *Service) Register(ctx context.Context, caller id.AppID, lib ports.MessageLibrary) error {
	if err := s.requireOwner(caller); err != nil {
		return err
	}
	if lib == nil || !lib.Type().IsValid() {
		return models.ErrUnsupportedInterface
	}
	if lib.ID().IsDefault() {
		return models.ErrUnsupportedInterface
	}
	if _, exists := s.store.Library(lib.ID()); exists {
		return models.ErrAlreadyRegistered
	}
	s.store.AddLibrary(lib)

	s.logger.InfoContext(ctx, "library registered", "library", lib.ID(), "type", lib.Type())
	_ = s.events.Emit(ctx, events.Event{
		Type:    events.TypeLibraryRegistered,
		Library: lib.ID().String(),
		Caller:  caller,
	})
	return nil
}

// Libraries lists registered module ids.
func (s *Service) Libraries() []models.LibraryID {
	return s.store.Libraries()
}

// Library returns a registered handle or ErrNotRegistered.
func (s *Service) Library(libID models.LibraryID) (ports.MessageLibrary, error) {
	lib, ok := s.store.Library(libID)
	if !ok {
		return nil, models.ErrNotRegistered
	}
	return lib, nil
}

// SetDefaultSendLibrary sets the send default for a destination domain.
// Owner-gated.
func (s *Service) SetDefaultSendLibrary(ctx context.Context, caller id.AppID, domain id.DomainID, libID models.LibraryID) error {
	if err := s.requireOwner(caller); err != nil {
		return err
	}
	if err := s.checkRoutable(models.DirectionSend, domain, libID); err != nil {
		return err
	}
	if s.store.Default(models.DirectionSend, domain) == libID {
		return models.ErrSameValue
	}
	s.store.SetDefault(models.DirectionSend, domain, libID)

	s.emitDefaultSet(ctx, caller, models.DirectionSend, domain, libID)
	return nil
}

// SetDefaultReceiveLibrary sets the receive default for a source domain. A
// non-zero gracePeriod keeps the previous default valid until
// height+gracePeriod; zero clears any recorded window immediately.
// Owner-gated.
func (s *Service) SetDefaultReceiveLibrary(ctx context.Context, caller id.AppID, domain id.DomainID, libID models.LibraryID, gracePeriod uint64) error {
	if err := s.requireOwner(caller); err != nil {
		return err
	}
	if err := s.checkRoutable(models.DirectionReceive, domain, libID); err != nil {
		return err
	}
	old := s.store.Default(models.DirectionReceive, domain)
	if old == libID {
		return models.ErrSameValue
	}
	s.store.SetDefault(models.DirectionReceive, domain, libID)

	if gracePeriod > 0 {
		s.store.SetDefaultTimeout(domain, models.TimeoutRecord{
			Library: old,
			Expiry:  s.height() + gracePeriod,
		})
	} else {
		s.store.SetDefaultTimeout(domain, models.TimeoutRecord{})
	}

	s.emitDefaultSet(ctx, caller, models.DirectionReceive, domain, libID)
	return nil
}

// SetSendLibrary sets or clears (DefaultLibrary sentinel) an application's
// send override for a destination domain. App-or-delegate gated.
func (s *Service) SetSendLibrary(ctx context.Context, caller, app id.AppID, domain id.DomainID, libID models.LibraryID) error {
	if !s.Authorized(caller, app) {
		return derrors.New(derrors.CodeUnauthorized, "caller is not the application or its delegate")
	}
	if !libID.IsDefault() {
		if err := s.checkRoutable(models.DirectionSend, domain, libID); err != nil {
			return err
		}
	}
	key := models.RouteKey{App: app, Domain: domain}
	if s.store.Override(models.DirectionSend, key) == libID {
		return models.ErrSameValue
	}
	s.store.SetOverride(models.DirectionSend, key, libID)

	s.emitOverrideSet(ctx, caller, app, models.DirectionSend, domain, libID)
	return nil
}

// SetReceiveLibrary sets or clears an application's receive override. A
// gracePeriod > 0 records a migration window from the old override to the new
// one; both must be concrete modules, never the defer-to-default sentinel.
// App-or-delegate gated.
func (s *Service) SetReceiveLibrary(ctx context.Context, caller, app id.AppID, domain id.DomainID, libID models.LibraryID, gracePeriod uint64) error {
	if !s.Authorized(caller, app) {
		return derrors.New(derrors.CodeUnauthorized, "caller is not the application or its delegate")
	}
	if !libID.IsDefault() {
		if err := s.checkRoutable(models.DirectionReceive, domain, libID); err != nil {
			return err
		}
	}
	key := models.RouteKey{App: app, Domain: domain}
	old := s.store.Override(models.DirectionReceive, key)
	if old == libID {
		return models.ErrSameValue
	}

	if gracePeriod > 0 {
		if old.IsDefault() || libID.IsDefault() {
			return models.ErrOnlyNonDefaultLib
		}
		s.store.SetOverrideTimeout(key, models.TimeoutRecord{
			Library: old,
			Expiry:  s.height() + gracePeriod,
		})
	} else {
		s.store.SetOverrideTimeout(key, models.TimeoutRecord{})
	}
	s.store.SetOverride(models.DirectionReceive, key, libID)

	s.emitOverrideSet(ctx, caller, app, models.DirectionReceive, domain, libID)
	return nil
}

// SetReceiveLibraryTimeout explicitly sets or clears (expiry zero) the
// migration window for an application's receive route. App-or-delegate gated.
func (s *Service) SetReceiveLibraryTimeout(ctx context.Context, caller, app id.AppID, domain id.DomainID, libID models.LibraryID, expiry uint64) error {
	if !s.Authorized(caller, app) {
		return derrors.New(derrors.CodeUnauthorized, "caller is not the application or its delegate")
	}
	key := models.RouteKey{App: app, Domain: domain}
	if expiry == 0 {
		s.store.SetOverrideTimeout(key, models.TimeoutRecord{})
	} else {
		if err := s.checkRoutable(models.DirectionReceive, domain, libID); err != nil {
			return err
		}
		if expiry <= s.height() {
			return derrors.New(derrors.CodeInvalidInput, "timeout expiry is already past")
		}
		s.store.SetOverrideTimeout(key, models.TimeoutRecord{Library: libID, Expiry: expiry})
	}

	_ = s.events.Emit(ctx, events.Event{
		Type:      events.TypeReceiveTimeoutSet,
		SrcDomain: domain,
		Receiver:  app,
		Library:   libID.String(),
		Caller:    caller,
	})
	return nil
}

// ResolveSend returns the authoritative send library for (app, dstDomain):
// override if set, else the domain default.
func (s *Service) ResolveSend(app id.AppID, domain id.DomainID) (ports.MessageLibrary, error) {
	libID := s.store.Override(models.DirectionSend, models.RouteKey{App: app, Domain: domain})
	if libID.IsDefault() {
		libID = s.store.Default(models.DirectionSend, domain)
	}
	if libID.IsDefault() {
		return nil, models.ErrDefaultSendLibUnavailable
	}
	lib, ok := s.store.Library(libID)
	if !ok {
		return nil, models.ErrDefaultSendLibUnavailable
	}
	return lib, nil
}

// ResolveReceive returns the authoritative receive library for
// (app, srcDomain) and whether it came from the domain default.
func (s *Service) ResolveReceive(app id.AppID, domain id.DomainID) (ports.MessageLibrary, bool, error) {
	isDefault := false
	libID := s.store.Override(models.DirectionReceive, models.RouteKey{App: app, Domain: domain})
	if libID.IsDefault() {
		libID = s.store.Default(models.DirectionReceive, domain)
		isDefault = true
	}
	if libID.IsDefault() {
		return nil, false, models.ErrDefaultReceiveLibUnavailable
	}
	lib, ok := s.store.Library(libID)
	if !ok {
		return nil, false, models.ErrDefaultReceiveLibUnavailable
	}
	return lib, isDefault, nil
}

// IsValidReceiveLibrary reports whether candidate may verify messages for
// (app, srcDomain): the currently resolved library, or the still-unexpired
// migration-window library for the resolved scope.
func (s *Service) IsValidReceiveLibrary(app id.AppID, domain id.DomainID, candidate models.LibraryID) bool {
	lib, isDefault, err := s.ResolveReceive(app, domain)
	if err != nil {
		return false
	}
	if lib.ID() == candidate {
		return true
	}

	var record models.TimeoutRecord
	if isDefault {
		record = s.store.DefaultTimeout(domain)
	} else {
		record = s.store.OverrideTimeout(models.RouteKey{App: app, Domain: domain})
	}
	return !record.IsZero() && record.Library == candidate && s.height() < record.Expiry
}

// SetConfig passes an opaque config blob through to a registered library.
// App-or-delegate gated; the registry never interprets the payload.
func (s *Service) SetConfig(ctx context.Context, caller, app id.AppID, libID models.LibraryID, configType uint32, payload []byte) error {
	if !s.Authorized(caller, app) {
		return derrors.New(derrors.CodeUnauthorized, "caller is not the application or its delegate")
	}
	lib, ok := s.store.Library(libID)
	if !ok {
		return models.ErrNotRegistered
	}
	if err := lib.SetConfig(ctx, app, configType, payload); err != nil {
		return err
	}

	_ = s.events.Emit(ctx, events.Event{
		Type:     events.TypeLibraryConfigSet,
		Library:  libID.String(),
		Caller:   caller,
		Receiver: app,
	})
	return nil
}

// GetConfig reads an opaque config blob from a registered library.
func (s *Service) GetConfig(ctx context.Context, app id.AppID, libID models.LibraryID, configType uint32) ([]byte, error) {
	lib, ok := s.store.Library(libID)
	if !ok {
		return nil, models.ErrNotRegistered
	}
	return lib.GetConfig(ctx, app, configType)
}

// SetDelegate lets an application name (or clear) the account allowed to act
// for it. Self-service: only the application itself.
func (s *Service) SetDelegate(ctx context.Context, caller, app id.AppID, delegate id.AppID) error {
	if caller != app || caller.IsNone() {
		return derrors.New(derrors.CodeUnauthorized, "only the application may set its delegate")
	}
	s.store.SetDelegate(app, delegate)

	_ = s.events.Emit(ctx, events.Event{
		Type:     events.TypeDelegateSet,
		Receiver: app,
		Caller:   caller,
		Reason:   delegate.String(),
	})
	return nil
}

func (s *Service) requireOwner(caller id.AppID) error {
	if caller != s.owner {
		return derrors.New(derrors.CodeUnauthorized, "caller is not the registry owner")
	}
	return nil
}

// checkRoutable enforces registration, capability direction, and domain
// support for a concrete library id.
func (s *Service) checkRoutable(direction models.Direction, domain id.DomainID, libID models.LibraryID) error {
	lib, ok := s.store.Library(libID)
	if !ok {
		return models.ErrNotRegistered
	}
	switch direction {
	case models.DirectionSend:
		if !lib.Type().CanSend() {
			return models.ErrOnlyReceiveLib
		}
	case models.DirectionReceive:
		if !lib.Type().CanReceive() {
			return models.ErrOnlySendLib
		}
	}
	if !lib.SupportsDomain(domain) {
		return models.ErrUnsupportedDomain
	}
	return nil
}

func (s *Service) emitDefaultSet(ctx context.Context, caller id.AppID, direction models.Direction, domain id.DomainID, libID models.LibraryID) {
	s.logger.InfoContext(ctx, "default library set",
		"direction", direction, "domain", domain, "library", libID)
	_ = s.events.Emit(ctx, events.Event{
		Type:      events.TypeDefaultLibrarySet,
		Library:   libID.String(),
		Caller:    caller,
		Reason:    string(direction),
		DstDomain: domain,
	})
}

func (s *Service) emitOverrideSet(ctx context.Context, caller, app id.AppID, direction models.Direction, domain id.DomainID, libID models.LibraryID) {
	s.logger.InfoContext(ctx, "library override set",
		"app", app, "direction", direction, "domain", domain, "library", libID)
	_ = s.events.Emit(ctx, events.Event{
		Type:      events.TypeLibraryOverrideSet,
		Library:   libID.String(),
		Caller:    caller,
		Receiver:  app,
		Reason:    string(direction),
		DstDomain: domain,
	})
}
