// Package errors provides coded domain errors. Components construct errors
// with a stable machine-readable code plus a human message; transports map
// codes to status lines and callers branch on HasCode rather than string
// matching.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies an error by what the caller can do about it.
type Code string

const (
	// CodeUnauthorized: the caller is not the owner, application, or delegate
	// the operation requires.
	CodeUnauthorized Code = "unauthorized"
	// CodeNotFound: the referenced entity does not exist.
	CodeNotFound Code = "not_found"
	// CodeInvalidInput: the request is malformed or references an unsupported value.
	CodeInvalidInput Code = "invalid_input"
	// CodeConflict: the operation collides with existing state (duplicate
	// registration, duplicate compose entry, redundant write).
	CodeConflict Code = "conflict"
	// CodeSequencing: a nonce/ordering precondition is unmet (gaps, replays,
	// skip/nilify/burn boundaries).
	CodeSequencing Code = "sequencing"
	// CodeIntegrity: a payload hash check failed or a forbidden sentinel was supplied.
	CodeIntegrity Code = "integrity"
	// CodePayment: fee settlement cannot proceed (insufficient fee, fee token
	// unconfigured).
	CodePayment Code = "payment"
	// CodeUnavailable: a required collaborator is not configured or reachable.
	CodeUnavailable Code = "unavailable"
	// CodeInternal: unexpected failure; safe fallback code.
	CodeInternal Code = "internal"
)

// Error carries a code, a message, and an optional wrapped cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is makes two coded errors match when their codes and messages agree, so
// package-level protocol errors work with errors.Is even after wrapping.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// New builds a coded error.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf builds a coded error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap annotates a cause with a code and message. A nil cause yields nil.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Err: err}
}

// CodeOf extracts the code from an error chain, defaulting to CodeInternal.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// HasCode reports whether any error in the chain carries the given code.
func HasCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// ToHTTPStatus maps a code onto the closest HTTP status for transport layers.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeNotFound:
		return http.StatusNotFound
	case CodeInvalidInput:
		return http.StatusBadRequest
	case CodeConflict:
		return http.StatusConflict
	case CodeSequencing, CodeIntegrity:
		return http.StatusUnprocessableEntity
	case CodePayment:
		return http.StatusPaymentRequired
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
