// Package caller authenticates API requests. The caller identity travels as
// the subject of a bearer JWT; protocol authorization (owner, app, delegate)
// stays in the services, which only see the resolved identity.
package caller

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	id "lanegate/pkg/domain"
	derrors "lanegate/pkg/errors"
	"lanegate/pkg/platform/httputil"
	"lanegate/pkg/requestcontext"
)

const bearerPrefix = "Bearer "

// RequireCaller rejects requests without a valid HS256 bearer token and
// injects the token subject as the caller identity.
func RequireCaller(secret []byte, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, bearerPrefix) {
				httputil.WriteError(w, derrors.New(derrors.CodeUnauthorized, "missing bearer token"))
				return
			}

			caller, err := parseCaller(strings.TrimPrefix(header, bearerPrefix), secret)
			if err != nil {
				logger.WarnContext(r.Context(), "rejected bearer token", "error", err)
				httputil.WriteError(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(requestcontext.WithCaller(r.Context(), caller)))
		})
	}
}

func parseCaller(raw string, secret []byte) (id.AppID, error) {
	token, err := jwt.Parse(raw,
		func(t *jwt.Token) (any, error) { return secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil || !token.Valid {
		return id.None, derrors.New(derrors.CodeUnauthorized, "invalid bearer token")
	}

	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return id.None, derrors.New(derrors.CodeUnauthorized, "token has no subject")
	}
	return id.AppID(sub), nil
}

// Token mints a caller token. Used by the CLI and tests; the server only
// verifies.
func Token(secret []byte, caller id.AppID, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   caller.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	})
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", derrors.Wrap(err, derrors.CodeInternal, "sign caller token")
	}
	return signed, nil
}
