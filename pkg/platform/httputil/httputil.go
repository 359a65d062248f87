// Package httputil holds the small JSON helpers every handler shares.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	derrors "lanegate/pkg/errors"
)

// ErrorResponse is the uniform error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates a coded error into its HTTP status and envelope.
// Unrecognized errors map to 500 without leaking internals.
func WriteError(w http.ResponseWriter, err error) {
	code := derrors.CodeOf(err)
	resp := ErrorResponse{Error: string(code)}

	var coded *derrors.Error
	if errors.As(err, &coded) {
		resp.Message = coded.Message
	}
	WriteJSON(w, derrors.ToHTTPStatus(code), resp)
}

// Decode parses a JSON request body into T, rejecting unknown fields.
func Decode[T any](r *http.Request) (T, error) {
	var v T
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&v); err != nil {
		return v, derrors.Wrap(err, derrors.CodeInvalidInput, "invalid request body")
	}
	return v, nil
}
