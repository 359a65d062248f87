// Package postgres is the durable event store. Events are appended inside
// the caller's transaction when one travels in the context, so a protocol
// mutation and its event commit together.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"lanegate/internal/events"
	id "lanegate/pkg/domain"
	txcontext "lanegate/pkg/platform/tx"
)

// Store implements events.Store on PostgreSQL.
type Store struct {
	db *sql.DB
}

// New creates a store over an open database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Schema creates the events table. Called at startup; safe to re-run.
const Schema = `
CREATE TABLE IF NOT EXISTS events (
	id             UUID PRIMARY KEY,
	type           TEXT NOT NULL,
	timestamp      TIMESTAMPTZ NOT NULL,
	src_domain     BIGINT NOT NULL DEFAULT 0,
	dst_domain     BIGINT NOT NULL DEFAULT 0,
	sender         TEXT NOT NULL DEFAULT '',
	receiver       TEXT NOT NULL DEFAULT '',
	nonce          BIGINT NOT NULL DEFAULT 0,
	guid           TEXT NOT NULL DEFAULT '',
	library        TEXT NOT NULL DEFAULT '',
	executor       TEXT NOT NULL DEFAULT '',
	caller         TEXT NOT NULL DEFAULT '',
	native_fee     TEXT NOT NULL DEFAULT '',
	token_fee      TEXT NOT NULL DEFAULT '',
	reason         TEXT NOT NULL DEFAULT '',
	encoded_packet TEXT NOT NULL DEFAULT '',
	payload_hash   TEXT NOT NULL DEFAULT '',
	seq            BIGSERIAL
);
CREATE INDEX IF NOT EXISTS events_lane_idx ON events (src_domain, sender, receiver, seq);
`

// Migrate applies the schema.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("migrate events schema: %w", err)
	}
	return nil
}

func (s *Store) Append(ctx context.Context, event events.Event) error {
	query := `
		INSERT INTO events (
			id, type, timestamp, src_domain, dst_domain, sender, receiver,
			nonce, guid, library, executor, caller, native_fee, token_fee,
			reason, encoded_packet, payload_hash
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`
	_, err := txcontext.RunnerFor(ctx, s.db).ExecContext(ctx, query,
		event.ID,
		string(event.Type),
		event.Timestamp,
		int64(event.SrcDomain),
		int64(event.DstDomain),
		event.Sender.String(),
		event.Receiver.String(),
		int64(event.Nonce),
		event.GUID,
		event.Library,
		event.Executor.String(),
		event.Caller.String(),
		event.NativeFee,
		event.TokenFee,
		event.Reason,
		event.EncodedPacket,
		event.PayloadHash,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func (s *Store) ListByLane(ctx context.Context, srcDomain id.DomainID, sender, receiver id.AppID) ([]events.Event, error) {
	query := `
		SELECT id, type, timestamp, src_domain, dst_domain, sender, receiver,
		       nonce, guid, library, executor, caller, native_fee, token_fee,
		       reason, encoded_packet, payload_hash
		FROM events
		WHERE ($1 = 0 OR src_domain = $1)
		  AND ($2 = '' OR sender = $2)
		  AND ($3 = '' OR receiver = $3)
		ORDER BY seq
	`
	rows, err := s.db.QueryContext(ctx, query, int64(srcDomain), sender.String(), receiver.String())
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var out []events.Event
	for rows.Next() {
		var (
			e                  events.Event
			eventType          string
			ts                 time.Time
			srcDom, dstDom, n  int64
			sender, recv, exec string
			caller             string
		)
		err := rows.Scan(
			&e.ID, &eventType, &ts, &srcDom, &dstDom, &sender, &recv,
			&n, &e.GUID, &e.Library, &exec, &caller, &e.NativeFee, &e.TokenFee,
			&e.Reason, &e.EncodedPacket, &e.PayloadHash,
		)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.Type = events.Type(eventType)
		e.Timestamp = ts
		e.SrcDomain = id.DomainID(srcDom)
		e.DstDomain = id.DomainID(dstDom)
		e.Sender = id.AppID(sender)
		e.Receiver = id.AppID(recv)
		e.Nonce = id.Nonce(n)
		e.Executor = id.AppID(exec)
		e.Caller = id.AppID(caller)
		out = append(out, e)
	}
	return out, rows.Err()
}
