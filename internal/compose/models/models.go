// Package models defines the compose queue's key space and errors. Entries
// move one way: absent, then a pending hash, then the delivered sentinel.
package models

import (
	id "lanegate/pkg/domain"
	derrors "lanegate/pkg/errors"
)

// Key addresses one compose slot. Index allows an application to schedule
// several follow-ups for the same primary message.
type Key struct {
	From  id.AppID
	To    id.AppID
	GUID  id.GUID
	Index uint16
}

// DeliveredSentinel marks a consumed slot. It is a fixed constant, so it can
// never equal a real payload digest; a replayed deliver naturally fails the
// hash comparison.
var DeliveredSentinel = id.PayloadHash{31: 0x01}

var (
	// ErrComposeExists rejects enqueueing into an occupied slot; entries are
	// never reused.
	ErrComposeExists = derrors.New(derrors.CodeConflict, "compose message exists")

	// ErrComposeNotFound means the supplied message does not hash to the
	// slot's pending value: absent, already delivered, or tampered.
	ErrComposeNotFound = derrors.New(derrors.CodeNotFound, "compose message not found")
)
