package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and backends return these
// (optionally wrapped) so services can translate them into coded domain
// errors without inspecting driver-specific types.
//
// These represent factual states about resources, not protocol violations:
// - ErrNotFound: entity does not exist in the backing store
// - ErrConflict: a write collided with existing state
// - ErrUnavailable: the backend is unreachable or not ready
//
// Protocol errors (sequencing, integrity, authorization) use pkg/errors
// directly.
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrUnavailable = errors.New("unavailable")
)
