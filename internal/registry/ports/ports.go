// Package ports defines the library capability surface the registry tracks.
// The routing layer never interprets packets, options, or configs; it only
// checks capability tags and domain support.
package ports

import (
	"context"

	"lanegate/internal/registry/models"
	id "lanegate/pkg/domain"
)

// MessageLibrary is the minimal capability every registered module declares.
// Send-capable modules additionally implement the coordinator's SendLibrary
// interface; the registry only cares about identity, type, and domains.
type MessageLibrary interface {
	// ID is the stable registration identity of the module.
	ID() models.LibraryID

	// Type declares the module's capability.
	Type() models.LibraryType

	// SupportsDomain reports whether the module serves the given domain.
	SupportsDomain(domain id.DomainID) bool

	// SetConfig applies an opaque per-application configuration blob. The
	// registry passes it through uninterpreted.
	SetConfig(ctx context.Context, app id.AppID, configType uint32, payload []byte) error

	// GetConfig reads an opaque per-application configuration blob.
	GetConfig(ctx context.Context, app id.AppID, configType uint32) ([]byte, error)
}
