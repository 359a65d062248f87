package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	derrors "lanegate/pkg/errors"
)

func TestParseDomainID(t *testing.T) {
	t.Run("rejects zero", func(t *testing.T) {
		_, err := ParseDomainID("0")
		require.Error(t, err)
		assert.True(t, derrors.HasCode(err, derrors.CodeInvalidInput))
	})

	t.Run("rejects non-numeric", func(t *testing.T) {
		_, err := ParseDomainID("mainnet")
		require.Error(t, err)
		assert.True(t, derrors.HasCode(err, derrors.CodeInvalidInput))
	})

	t.Run("accepts uint32", func(t *testing.T) {
		d, err := ParseDomainID("30101")
		require.NoError(t, err)
		assert.Equal(t, DomainID(30101), d)
	})
}

func TestParseAppID(t *testing.T) {
	_, err := ParseAppID("")
	require.Error(t, err)
	assert.True(t, derrors.HasCode(err, derrors.CodeInvalidInput))

	a, err := ParseAppID("app-alpha")
	require.NoError(t, err)
	assert.Equal(t, AppID("app-alpha"), a)
}

func TestPayloadHashSentinels(t *testing.T) {
	assert.True(t, EmptyPayloadHash.IsEmpty())
	assert.True(t, NilPayloadHash.IsNil())
	assert.False(t, NilPayloadHash.IsEmpty())

	// A real digest never equals either sentinel.
	h := HashPayload([]byte("hello"))
	assert.False(t, h.IsEmpty())
	assert.False(t, h.IsNil())
}

func TestParsePayloadHash_RoundTrip(t *testing.T) {
	h := HashPayload([]byte("payload"))
	parsed, err := ParsePayloadHash(h.String())
	require.NoError(t, err)
	assert.Equal(t, h, parsed)

	_, err = ParsePayloadHash("abc")
	require.Error(t, err)
}

// ComputeGUID must be a pure function of the lane and nonce: same inputs,
// same id; any differing field, different id.
func TestComputeGUID(t *testing.T) {
	base := ComputeGUID(1, 1, "alice", 2, "bob")

	t.Run("deterministic", func(t *testing.T) {
		assert.Equal(t, base, ComputeGUID(1, 1, "alice", 2, "bob"))
	})

	t.Run("nonce changes id", func(t *testing.T) {
		assert.NotEqual(t, base, ComputeGUID(2, 1, "alice", 2, "bob"))
	})

	t.Run("lane fields change id", func(t *testing.T) {
		assert.NotEqual(t, base, ComputeGUID(1, 3, "alice", 2, "bob"))
		assert.NotEqual(t, base, ComputeGUID(1, 1, "alicx", 2, "bob"))
		assert.NotEqual(t, base, ComputeGUID(1, 1, "alice", 3, "bob"))
		assert.NotEqual(t, base, ComputeGUID(1, 1, "alice", 2, "bab"))
	})

	t.Run("length delimiting prevents boundary collisions", func(t *testing.T) {
		assert.NotEqual(t,
			ComputeGUID(1, 1, "ab", 2, "c"),
			ComputeGUID(1, 1, "a", 2, "bc"))
	})
}
