// Package ports defines the compose queue's storage and callback interfaces.
package ports

import (
	"context"

	"lanegate/internal/compose/models"
	id "lanegate/pkg/domain"
)

// Store persists compose slots. Both operations must be atomic
// compare-and-set so a reentrant deliver can never observe the pending state
// twice.
type Store interface {
	// Enqueue stores hash into an absent slot, failing with ErrComposeExists
	// otherwise.
	Enqueue(ctx context.Context, key models.Key, hash id.PayloadHash) error

	// MarkDelivered transitions the slot to the delivered sentinel if and
	// only if its current value equals expected; otherwise it fails with
	// ErrComposeNotFound and changes nothing.
	MarkDelivered(ctx context.Context, key models.Key, expected id.PayloadHash) error

	// Hash returns the slot's current value, or the zero sentinel when absent.
	Hash(ctx context.Context, key models.Key) (id.PayloadHash, error)
}

// Target is the capability a compose receiver implements.
type Target interface {
	// DeliverCompose handles a compose message scheduled for this
	// application. Failures propagate to the caller; the queue neither
	// catches nor retries.
	DeliverCompose(ctx context.Context, from id.AppID, guid id.GUID, message []byte, executor id.AppID, extraData []byte) error
}
