// Package models defines the channel ledger's keys and protocol errors. A
// lane is never materialized; it is derived from the composite keys below.
package models

import (
	id "lanegate/pkg/domain"
	derrors "lanegate/pkg/errors"
)

// Origin identifies where an inbound message came from and its position in
// the lane.
type Origin struct {
	SrcDomain id.DomainID `json:"src_domain"`
	Sender    id.AppID    `json:"sender"`
	Nonce     id.Nonce    `json:"nonce"`
}

// OutboundKey addresses one outbound nonce counter: everything about the lane
// except the local source domain, which is fixed per process.
type OutboundKey struct {
	Sender    id.AppID
	DstDomain id.DomainID
	Receiver  id.AppID
}

// InboundKey addresses the inbound records and lazy cursor of one lane as
// seen by the receiving side.
type InboundKey struct {
	Receiver  id.AppID
	SrcDomain id.DomainID
	Sender    id.AppID
}

// InboundKeyFor derives the inbound key for an origin delivered to receiver.
func InboundKeyFor(receiver id.AppID, origin Origin) InboundKey {
	return InboundKey{Receiver: receiver, SrcDomain: origin.SrcDomain, Sender: origin.Sender}
}

// Ledger protocol errors. Stores return these unwrapped so the coordinator
// and transports can branch with errors.Is / HasCode.
var (
	// ErrInvalidPayloadHash rejects the zero sentinel as a submitted hash.
	ErrInvalidPayloadHash = derrors.New(derrors.CodeIntegrity, "invalid payload hash")

	// ErrInvalidNonce covers ordering precondition failures: holes in the
	// lane, skip of a non-next nonce, nilify/burn boundary violations.
	ErrInvalidNonce = derrors.New(derrors.CodeSequencing, "invalid nonce")

	// ErrPayloadHashNotFound means the stored hash does not match the
	// supplied one, including slots already cleared back to unset.
	ErrPayloadHashNotFound = derrors.New(derrors.CodeIntegrity, "payload hash not found")
)
