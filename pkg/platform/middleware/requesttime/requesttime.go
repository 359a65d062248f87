// Package requesttime pins one "now" per HTTP request. Everything a request
// touches (event timestamps, migration-window checks) reads the same instant
// instead of sampling the clock repeatedly.
package requesttime

import (
	"net/http"
	"time"

	"lanegate/pkg/requestcontext"
)

// Middleware captures the current time at the start of the request and
// stores it in the context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
