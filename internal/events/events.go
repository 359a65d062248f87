// Package events captures the channel's observable records: sent, verified,
// delivered, compose activity, and administrative changes. Events are
// advisory and append-only; protocol state never depends on them.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	id "lanegate/pkg/domain"
	"lanegate/pkg/requestcontext"
)

// Type names one observable action.
type Type string

const (
	TypePacketSent      Type = "packet_sent"
	TypePacketVerified  Type = "packet_verified"
	TypePacketDelivered Type = "packet_delivered"
	TypePacketNilified  Type = "packet_nilified"
	TypePacketBurnt     Type = "packet_burnt"
	TypeNonceSkipped    Type = "inbound_nonce_skipped"

	TypeComposeQueued    Type = "compose_queued"
	TypeComposeDelivered Type = "compose_delivered"
	TypeComposeAlert     Type = "compose_alert"

	TypeLibraryRegistered  Type = "library_registered"
	TypeDefaultLibrarySet  Type = "default_library_set"
	TypeLibraryOverrideSet Type = "library_override_set"
	TypeReceiveTimeoutSet  Type = "receive_library_timeout_set"
	TypeDelegateSet        Type = "delegate_set"
	TypeFeeTokenSet        Type = "fee_token_set"
	TypeLibraryConfigSet   Type = "library_config_set"
)

// Event is one flat observable record. Keep it transport-agnostic so stores
// and sinks can fan out.
type Event struct {
	ID        string    `json:"id"`
	Type      Type      `json:"type"`
	Timestamp time.Time `json:"timestamp"`

	SrcDomain id.DomainID `json:"src_domain,omitempty"`
	DstDomain id.DomainID `json:"dst_domain,omitempty"`
	Sender    id.AppID    `json:"sender,omitempty"`
	Receiver  id.AppID    `json:"receiver,omitempty"`
	Nonce     id.Nonce    `json:"nonce,omitempty"`
	GUID      string      `json:"guid,omitempty"`

	Library  string   `json:"library,omitempty"`
	Executor id.AppID `json:"executor,omitempty"`
	Caller   id.AppID `json:"caller,omitempty"`

	// Fee amounts as decimal strings; zero-values omitted.
	NativeFee string `json:"native_fee,omitempty"`
	TokenFee  string `json:"token_fee,omitempty"`

	// Reason carries free-form diagnostic context (compose alerts, admin ops).
	Reason string `json:"reason,omitempty"`

	// EncodedPacket carries the library's wire encoding on packet_sent,
	// hex-encoded and fully opaque to this system.
	EncodedPacket string `json:"encoded_packet,omitempty"`

	PayloadHash string `json:"payload_hash,omitempty"`
}

// Store persists events. Implementations must be append-only.
type Store interface {
	Append(ctx context.Context, event Event) error
	// ListByLane returns events for one (srcDomain, sender, receiver) lane in
	// append order. Zero/empty fields match everything.
	ListByLane(ctx context.Context, srcDomain id.DomainID, sender, receiver id.AppID) ([]Event, error)
}

// Publisher stamps and appends events. A nil *Publisher is a safe no-op so
// components can treat eventing as optional wiring.
type Publisher struct {
	store Store
}

// NewPublisher wraps a store.
func NewPublisher(store Store) *Publisher {
	return &Publisher{store: store}
}

// Emit assigns id and timestamp if unset and appends the event.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if p == nil || p.store == nil {
		return nil
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	return p.store.Append(ctx, event)
}

// List exposes the store's lane listing for the query surface.
func (p *Publisher) List(ctx context.Context, srcDomain id.DomainID, sender, receiver id.AppID) ([]Event, error) {
	if p == nil || p.store == nil {
		return nil, nil
	}
	return p.store.ListByLane(ctx, srcDomain, sender, receiver)
}
