// Package models defines library registry types: capability tags, route
// keys, migration timeout records, and the routing protocol errors.
package models

import (
	id "lanegate/pkg/domain"
	derrors "lanegate/pkg/errors"
)

// LibraryID names a registered verification/transport module.
type LibraryID string

// DefaultLibrary is the "defer to the domain default" override sentinel.
const DefaultLibrary LibraryID = ""

// BlockedLibrary is the synthetic always-blocking module registered at
// initialization; routing to it disables a lane safely.
const BlockedLibrary LibraryID = "blocked"

// IsDefault reports whether the id is the defer-to-default sentinel.
func (l LibraryID) IsDefault() bool { return l == DefaultLibrary }

func (l LibraryID) String() string { return string(l) }

// LibraryType is the declared capability of a module.
type LibraryType string

const (
	TypeSend           LibraryType = "send"
	TypeReceive        LibraryType = "receive"
	TypeSendAndReceive LibraryType = "send_and_receive"
)

// IsValid checks the capability tag against the supported enum values.
func (t LibraryType) IsValid() bool {
	switch t {
	case TypeSend, TypeReceive, TypeSendAndReceive:
		return true
	}
	return false
}

// CanSend reports whether the capability covers the send direction.
func (t LibraryType) CanSend() bool { return t == TypeSend || t == TypeSendAndReceive }

// CanReceive reports whether the capability covers the receive direction.
func (t LibraryType) CanReceive() bool { return t == TypeReceive || t == TypeSendAndReceive }

// Direction selects the send or receive routing table.
type Direction string

const (
	DirectionSend    Direction = "send"
	DirectionReceive Direction = "receive"
)

// IsValid checks the direction against the supported enum values.
func (d Direction) IsValid() bool {
	return d == DirectionSend || d == DirectionReceive
}

// RouteKey scopes a per-application override to one remote domain.
type RouteKey struct {
	App    id.AppID
	Domain id.DomainID
}

// TimeoutRecord keeps the previous receive library valid until Expiry during
// a migration, so in-flight messages verified under it still land.
type TimeoutRecord struct {
	Library LibraryID `json:"library"`
	Expiry  uint64    `json:"expiry"`
}

// IsZero reports whether no timeout window is recorded.
func (t TimeoutRecord) IsZero() bool { return t == TimeoutRecord{} }

// Routing protocol errors.
var (
	// ErrUnsupportedInterface rejects registration of a module that does not
	// declare a recognized capability.
	ErrUnsupportedInterface = derrors.New(derrors.CodeInvalidInput, "unsupported library interface")

	// ErrAlreadyRegistered rejects repeat registration; the set is append-only.
	ErrAlreadyRegistered = derrors.New(derrors.CodeConflict, "library already registered")

	// ErrNotRegistered means the referenced library was never registered.
	ErrNotRegistered = derrors.New(derrors.CodeNotFound, "library not registered")

	// ErrOnlySendLib rejects routing a send-only module on the receive side.
	ErrOnlySendLib = derrors.New(derrors.CodeInvalidInput, "library only sends")

	// ErrOnlyReceiveLib rejects routing a receive-only module on the send side.
	ErrOnlyReceiveLib = derrors.New(derrors.CodeInvalidInput, "library only receives")

	// ErrUnsupportedDomain means the module does not declare support for the
	// requested domain.
	ErrUnsupportedDomain = derrors.New(derrors.CodeInvalidInput, "domain not supported by library")

	// ErrOnlyNonDefaultLib requires graced receive migrations to run between
	// two concrete modules, never the defer-to-default sentinel.
	ErrOnlyNonDefaultLib = derrors.New(derrors.CodeInvalidInput, "grace window requires concrete libraries")

	// ErrSameValue rejects redundant no-op writes.
	ErrSameValue = derrors.New(derrors.CodeConflict, "value unchanged")

	// ErrDefaultSendLibUnavailable means no override nor default resolves the
	// send side of a route.
	ErrDefaultSendLibUnavailable = derrors.New(derrors.CodeUnavailable, "default send library unavailable")

	// ErrDefaultReceiveLibUnavailable is the receive-side counterpart.
	ErrDefaultReceiveLibUnavailable = derrors.New(derrors.CodeUnavailable, "default receive library unavailable")
)
