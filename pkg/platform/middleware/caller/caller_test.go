package caller

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "lanegate/pkg/domain"
	"lanegate/pkg/requestcontext"
)

var secret = []byte("test-secret")

func protected(t *testing.T) (http.Handler, *id.AppID) {
	t.Helper()
	var got id.AppID
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = requestcontext.Caller(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	return RequireCaller(secret, slog.Default())(handler), &got
}

func TestValidToken(t *testing.T) {
	handler, got := protected(t)

	token, err := Token(secret, "alice", time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, id.AppID("alice"), *got)
}

func TestMissingToken(t *testing.T) {
	handler, _ := protected(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestExpiredToken(t *testing.T) {
	handler, _ := protected(t)

	token, err := Token(secret, "alice", -time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestWrongSecret(t *testing.T) {
	handler, _ := protected(t)

	token, err := Token([]byte("other-secret"), "alice", time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRejectsUnsignedAlgorithm(t *testing.T) {
	handler, _ := protected(t)

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "alice"})
	raw, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
