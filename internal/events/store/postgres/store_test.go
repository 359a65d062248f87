//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lanegate/internal/events"
	id "lanegate/pkg/domain"
	txcontext "lanegate/pkg/platform/tx"
	"lanegate/pkg/testutil/containers"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	pg := containers.NewPostgresContainer(t)
	store := New(pg.DB)
	require.NoError(t, store.Migrate(context.Background()))
	return store
}

func event(eventType events.Type, sender, receiver id.AppID, nonce id.Nonce) events.Event {
	return events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		SrcDomain: 1,
		Sender:    sender,
		Receiver:  receiver,
		Nonce:     nonce,
	}
}

func TestAppendAndListByLane(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	require.NoError(t, store.Append(ctx, event(events.TypePacketSent, "alice", "bob", 1)))
	require.NoError(t, store.Append(ctx, event(events.TypePacketVerified, "alice", "bob", 1)))
	require.NoError(t, store.Append(ctx, event(events.TypePacketSent, "carol", "bob", 1)))

	list, err := store.ListByLane(ctx, 1, "alice", "bob")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, events.TypePacketSent, list[0].Type, "append order preserved")
	assert.Equal(t, events.TypePacketVerified, list[1].Type)

	all, err := store.ListByLane(ctx, 0, id.None, id.None)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestAppendJoinsCallerTransaction(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	tx, err := store.db.BeginTx(ctx, nil)
	require.NoError(t, err)

	txCtx := txcontext.WithTx(ctx, tx)
	require.NoError(t, store.Append(txCtx, event(events.TypePacketSent, "alice", "bob", 1)))
	require.NoError(t, tx.Rollback())

	list, err := store.ListByLane(ctx, 0, id.None, id.None)
	require.NoError(t, err)
	assert.Empty(t, list, "rolled-back append must not be visible")
}
