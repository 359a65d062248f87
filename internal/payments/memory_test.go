package payments

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "lanegate/pkg/domain"
)

func balance(t *testing.T, v *InMemoryVault, token, account id.AppID) *big.Int {
	t.Helper()
	got, err := v.Balance(context.Background(), token, account)
	require.NoError(t, err)
	return got
}

func TestMintAndTransfer(t *testing.T) {
	ctx := context.Background()
	v := NewInMemoryVault()

	require.NoError(t, v.Mint(ctx, NativeToken, "alice", big.NewInt(100)))
	require.NoError(t, v.Transfer(ctx, NativeToken, "alice", "bob", big.NewInt(30)))

	assert.Equal(t, big.NewInt(70), balance(t, v, NativeToken, "alice"))
	assert.Equal(t, big.NewInt(30), balance(t, v, NativeToken, "bob"))
}

func TestTransferInsufficient(t *testing.T) {
	ctx := context.Background()
	v := NewInMemoryVault()

	require.NoError(t, v.Mint(ctx, NativeToken, "alice", big.NewInt(10)))
	err := v.Transfer(ctx, NativeToken, "alice", "bob", big.NewInt(11))
	require.ErrorIs(t, err, ErrInsufficientBalance)

	assert.Equal(t, big.NewInt(10), balance(t, v, NativeToken, "alice"), "failed transfer must not move funds")
	assert.Equal(t, big.NewInt(0), balance(t, v, NativeToken, "bob"))
}

func TestTokensAreIndependent(t *testing.T) {
	ctx := context.Background()
	v := NewInMemoryVault()

	require.NoError(t, v.Mint(ctx, NativeToken, "alice", big.NewInt(5)))
	require.NoError(t, v.Mint(ctx, "fee-token", "alice", big.NewInt(50)))

	err := v.Transfer(ctx, NativeToken, "alice", "bob", big.NewInt(50))
	require.ErrorIs(t, err, ErrInsufficientBalance)

	require.NoError(t, v.Transfer(ctx, "fee-token", "alice", "bob", big.NewInt(50)))
	assert.Equal(t, big.NewInt(50), balance(t, v, "fee-token", "bob"))
}

func TestZeroTransferIsNoop(t *testing.T) {
	ctx := context.Background()
	v := NewInMemoryVault()

	require.NoError(t, v.Transfer(ctx, NativeToken, "alice", "bob", big.NewInt(0)))
	assert.Equal(t, big.NewInt(0), balance(t, v, NativeToken, "bob"))
}

func TestInvalidAmounts(t *testing.T) {
	ctx := context.Background()
	v := NewInMemoryVault()

	require.ErrorIs(t, v.Mint(ctx, NativeToken, "alice", nil), ErrInvalidAmount)
	require.ErrorIs(t, v.Mint(ctx, NativeToken, "alice", big.NewInt(-1)), ErrInvalidAmount)
	require.ErrorIs(t, v.Transfer(ctx, NativeToken, "alice", "bob", big.NewInt(-1)), ErrInvalidAmount)
}

func TestBalanceIsACopy(t *testing.T) {
	ctx := context.Background()
	v := NewInMemoryVault()

	require.NoError(t, v.Mint(ctx, NativeToken, "alice", big.NewInt(10)))
	got := balance(t, v, NativeToken, "alice")
	got.SetInt64(0)

	assert.Equal(t, big.NewInt(10), balance(t, v, NativeToken, "alice"))
}
