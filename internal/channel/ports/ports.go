// Package ports defines the channel ledger interface consumed by the
// coordinator. Implementations must make each operation whole-operation
// atomic: multi-step mutations either fully apply or leave no trace.
package ports

import (
	"context"

	"lanegate/internal/channel/models"
	id "lanegate/pkg/domain"
)

// Ledger is the per-lane ordering and replay-protection primitive: outbound
// nonce counters plus inbound payload-hash slots with a lazy cursor.
type Ledger interface {
	// Outbound returns the last assigned nonce for the lane without
	// consuming one. Zero means nothing has been sent.
	Outbound(ctx context.Context, key models.OutboundKey) (id.Nonce, error)

	// NextOutbound increments and returns the lane's counter. The first
	// value is 1; the sequence is strictly increasing with no gaps.
	NextOutbound(ctx context.Context, key models.OutboundKey) (id.Nonce, error)

	// RecordInbound stores hash for the slot. The zero sentinel is rejected
	// with ErrInvalidPayloadHash. Overwriting a non-cleared record is
	// permitted; gating re-verification is the caller's responsibility.
	RecordInbound(ctx context.Context, key models.InboundKey, nonce id.Nonce, hash id.PayloadHash) error

	// InboundHash returns the stored hash for a slot, or the zero sentinel
	// when unset.
	InboundHash(ctx context.Context, key models.InboundKey, nonce id.Nonce) (id.PayloadHash, error)

	// LazyCursor returns the highest nonce known to have been advanced past
	// (executed, skipped, or nilified-and-advanced-over).
	LazyCursor(ctx context.Context, key models.InboundKey) (id.Nonce, error)

	// ContiguousVerified walks forward from the lazy cursor while
	// consecutive slots are non-unset and returns the watermark reached.
	// The walk is bounded by the store's configured gap-scan cap.
	ContiguousVerified(ctx context.Context, key models.InboundKey) (id.Nonce, error)

	// AdvanceAndClear is the single execution choke point: it requires every
	// slot in (cursor, target] to be non-unset (ErrInvalidNonce on a hole),
	// advances the cursor to target (never backward), compares H(payload)
	// against the stored hash (ErrPayloadHashNotFound on mismatch or a
	// cleared slot), deletes the record, and returns the hash.
	AdvanceAndClear(ctx context.Context, key models.InboundKey, target id.Nonce, payload []byte) (id.PayloadHash, error)

	// Skip advances the cursor over a nonce that will never be deliverable.
	// The nonce must be exactly ContiguousVerified+1 (ErrInvalidNonce).
	Skip(ctx context.Context, key models.InboundKey, nonce id.Nonce) error

	// Nilify overwrites a slot with the permanently-blocked sentinel. The
	// stored hash must equal expected (ErrPayloadHashNotFound) and the slot
	// must not be an unset one at or below the cursor (ErrInvalidNonce).
	Nilify(ctx context.Context, key models.InboundKey, nonce id.Nonce, expected id.PayloadHash) error

	// Burn deletes an already-advanced-over record to reclaim storage. The
	// nonce must be at or below the cursor with a non-unset record
	// (ErrInvalidNonce) matching expected (ErrPayloadHashNotFound).
	Burn(ctx context.Context, key models.InboundKey, nonce id.Nonce, expected id.PayloadHash) error
}
