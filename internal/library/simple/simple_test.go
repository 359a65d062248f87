package simple

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	endpointmodels "lanegate/internal/endpoint/models"
	derrors "lanegate/pkg/errors"
)

func testPacket() endpointmodels.Packet {
	return endpointmodels.NewPacket(7, 1, "alice", 2, "bob", []byte("hello"))
}

func TestFlatFee(t *testing.T) {
	ctx := context.Background()
	lib := New("simple-v1", big.NewInt(100), "treasury", WithTokenFee(big.NewInt(40)))

	fee, err := lib.Quote(ctx, testPacket(), nil, false)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(100), fee.Native)
	assert.Equal(t, big.NewInt(0), fee.Token, "token fee only when requested")

	fee, err = lib.Quote(ctx, testPacket(), nil, true)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(100), fee.Native)
	assert.Equal(t, big.NewInt(40), fee.Token)
}

func TestSendMatchesQuote(t *testing.T) {
	ctx := context.Background()
	lib := New("simple-v1", big.NewInt(100), "treasury")

	quoted, err := lib.Quote(ctx, testPacket(), nil, false)
	require.NoError(t, err)
	charged, encoded, err := lib.Send(ctx, testPacket(), nil, false)
	require.NoError(t, err)

	assert.Equal(t, quoted, charged)
	assert.NotEmpty(t, encoded)
}

func TestEncodeDecode(t *testing.T) {
	packet := testPacket()

	decoded, err := Decode(Encode(packet))
	require.NoError(t, err)
	assert.Equal(t, packet, decoded)

	t.Run("truncated", func(t *testing.T) {
		raw := Encode(packet)
		_, err := Decode(raw[:len(raw)-3])
		require.True(t, derrors.HasCode(err, derrors.CodeInvalidInput))
	})

	t.Run("trailing garbage", func(t *testing.T) {
		raw := append(Encode(packet), 0xde, 0xad)
		_, err := Decode(raw)
		require.True(t, derrors.HasCode(err, derrors.CodeInvalidInput))
	})
}

func TestDomainRestriction(t *testing.T) {
	lib := New("simple-v1", big.NewInt(1), "treasury", WithDomains(2, 3))

	assert.True(t, lib.SupportsDomain(2))
	assert.False(t, lib.SupportsDomain(4))

	unrestricted := New("simple-v2", big.NewInt(1), "treasury")
	assert.True(t, unrestricted.SupportsDomain(9999))
}

func TestConfigPassThrough(t *testing.T) {
	ctx := context.Background()
	lib := New("simple-v1", big.NewInt(1), "treasury")

	_, err := lib.GetConfig(ctx, "alice", 1)
	require.True(t, derrors.HasCode(err, derrors.CodeNotFound))

	require.NoError(t, lib.SetConfig(ctx, "alice", 1, []byte(`{"confirmations":3}`)))
	payload, err := lib.GetConfig(ctx, "alice", 1)
	require.NoError(t, err)
	assert.JSONEq(t, `{"confirmations":3}`, string(payload))
}
