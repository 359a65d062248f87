// Package store provides ledger implementations. The in-memory ledger keeps
// all four key spaces under one mutex so every operation is whole-operation
// atomic without an external transaction.
package store

import (
	"context"
	"sync"

	"lanegate/internal/channel/models"
	id "lanegate/pkg/domain"
)

// DefaultGapScanCap bounds the ContiguousVerified forward walk. Unbounded gap
// growth is an operational risk of the lazy-cursor design; the cap makes the
// worst case explicit and configurable.
const DefaultGapScanCap = 65536

// InMemoryLedger implements ports.Ledger over plain maps.
type InMemoryLedger struct {
	mu         sync.Mutex
	outbound   map[models.OutboundKey]id.Nonce
	inbound    map[models.InboundKey]map[id.Nonce]id.PayloadHash
	cursors    map[models.InboundKey]id.Nonce
	gapScanCap int
}

// Option configures the in-memory ledger.
type Option func(*InMemoryLedger)

// WithGapScanCap overrides the contiguity walk bound.
func WithGapScanCap(n int) Option {
	return func(l *InMemoryLedger) {
		if n > 0 {
			l.gapScanCap = n
		}
	}
}

// NewInMemoryLedger creates an empty ledger.
func NewInMemoryLedger(opts ...Option) *InMemoryLedger {
	l := &InMemoryLedger{
		outbound:   make(map[models.OutboundKey]id.Nonce),
		inbound:    make(map[models.InboundKey]map[id.Nonce]id.PayloadHash),
		cursors:    make(map[models.InboundKey]id.Nonce),
		gapScanCap: DefaultGapScanCap,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *InMemoryLedger) Outbound(_ context.Context, key models.OutboundKey) (id.Nonce, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.outbound[key], nil
}

func (l *InMemoryLedger) NextOutbound(_ context.Context, key models.OutboundKey) (id.Nonce, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	next := l.outbound[key] + 1
	l.outbound[key] = next
	return next, nil
}

func (l *InMemoryLedger) RecordInbound(_ context.Context, key models.InboundKey, nonce id.Nonce, hash id.PayloadHash) error {
	if hash.IsEmpty() {
		return models.ErrInvalidPayloadHash
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.slots(key)[nonce] = hash
	return nil
}

func (l *InMemoryLedger) InboundHash(_ context.Context, key models.InboundKey, nonce id.Nonce) (id.PayloadHash, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inbound[key][nonce], nil
}

func (l *InMemoryLedger) LazyCursor(_ context.Context, key models.InboundKey) (id.Nonce, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cursors[key], nil
}

func (l *InMemoryLedger) ContiguousVerified(_ context.Context, key models.InboundKey) (id.Nonce, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.contiguousLocked(key), nil
}

func (l *InMemoryLedger) AdvanceAndClear(_ context.Context, key models.InboundKey, target id.Nonce, payload []byte) (id.PayloadHash, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	slots := l.slots(key)
	cursor := l.cursors[key]

	// The cursor only ever moves forward. A target at or below it is a
	// re-clear of an already-advanced slot and touches no cursor state.
	if target > cursor {
		for n := cursor + 1; n <= target; n++ {
			if slots[n].IsEmpty() {
				return id.EmptyPayloadHash, models.ErrInvalidNonce
			}
		}
	}

	// All checks pass before any state changes so a failure leaves no trace.
	hash := id.HashPayload(payload)
	if slots[target] != hash {
		return id.EmptyPayloadHash, models.ErrPayloadHashNotFound
	}

	if target > cursor {
		l.cursors[key] = target
	}
	delete(slots, target)
	return hash, nil
}

func (l *InMemoryLedger) Skip(_ context.Context, key models.InboundKey, nonce id.Nonce) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if nonce != l.contiguousLocked(key)+1 {
		return models.ErrInvalidNonce
	}
	l.cursors[key] = nonce
	return nil
}

func (l *InMemoryLedger) Nilify(_ context.Context, key models.InboundKey, nonce id.Nonce, expected id.PayloadHash) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	stored := l.inbound[key][nonce]
	if stored != expected {
		return models.ErrPayloadHashNotFound
	}
	// An unset slot at or below the cursor was already executed or skipped;
	// blocking it retroactively makes no sense.
	if nonce <= l.cursors[key] && stored.IsEmpty() {
		return models.ErrInvalidNonce
	}
	l.slots(key)[nonce] = id.NilPayloadHash
	return nil
}

func (l *InMemoryLedger) Burn(_ context.Context, key models.InboundKey, nonce id.Nonce, expected id.PayloadHash) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	stored := l.inbound[key][nonce]
	if nonce > l.cursors[key] || stored.IsEmpty() {
		return models.ErrInvalidNonce
	}
	if stored != expected {
		return models.ErrPayloadHashNotFound
	}
	delete(l.inbound[key], nonce)
	return nil
}

// contiguousLocked walks forward from the cursor while slots are non-unset,
// up to the gap-scan cap. Callers must hold l.mu.
func (l *InMemoryLedger) contiguousLocked(key models.InboundKey) id.Nonce {
	slots := l.inbound[key]
	nonce := l.cursors[key]
	for i := 0; i < l.gapScanCap; i++ {
		if slots[nonce+1].IsEmpty() {
			return nonce
		}
		nonce++
	}
	return nonce
}

func (l *InMemoryLedger) slots(key models.InboundKey) map[id.Nonce]id.PayloadHash {
	slots, ok := l.inbound[key]
	if !ok {
		slots = make(map[id.Nonce]id.PayloadHash)
		l.inbound[key] = slots
	}
	return slots
}
