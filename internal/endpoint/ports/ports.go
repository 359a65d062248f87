// Package ports defines what the coordinator requires from send libraries
// and local applications.
package ports

import (
	"context"

	channelmodels "lanegate/internal/channel/models"
	"lanegate/internal/endpoint/models"
	registryports "lanegate/internal/registry/ports"
	id "lanegate/pkg/domain"
)

// SendLibrary is a send-capable module: it owns the wire encoding and the
// authoritative fee for outbound packets. Options stay opaque end to end.
type SendLibrary interface {
	registryports.MessageLibrary

	// Quote prices a packet without side effects.
	Quote(ctx context.Context, packet models.Packet, options []byte, payInFeeToken bool) (models.Fee, error)

	// Send encodes the packet for the wire and returns the authoritative fee
	// together with the encoded bytes.
	Send(ctx context.Context, packet models.Packet, options []byte, payInFeeToken bool) (models.Fee, []byte, error)

	// FeeCollector is the account collected fees are settled to.
	FeeCollector() id.AppID
}

// Application is a locally registered message receiver.
type Application interface {
	// ID is the application's address on this domain.
	ID() id.AppID

	// Receive handles one delivered message. Called only after the ledger has
	// cleared the slot.
	Receive(ctx context.Context, origin channelmodels.Origin, guid id.GUID, message, extraData []byte, executor id.AppID) error

	// AllowInitializePath authorizes the first-ever verify on a lane from
	// this exact origin.
	AllowInitializePath(origin channelmodels.Origin) bool
}
