package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrBadRequest = errors.New("bad request")
	ErrDependency = errors.New("dependency failure")
)

// Stable machine-readable error codes returned to API clients.
const (
	CodeMissingParams   = "MISSING_PARAMS"
	CodeInvalidFormat   = "INVALID_FORMAT"
	CodeInvalidBody     = "INVALID_BODY"
	CodeSessionNotFound = "SESSION_NOT_FOUND"
	CodeAlreadyVerified = "ALREADY_VERIFIED"
	CodeOTPExpired      = "OTP_EXPIRED"
	CodeMaxAttempts     = "MAX_ATTEMPTS"
	CodeInvalidOTP      = "INVALID_OTP"
	CodeInvalidCurrency = "INVALID_CURRENCY"
	CodeTooManyRequests = "TOO_MANY_REQUESTS"
	CodeInternal        = "INTERNAL_ERROR"
)

// Error is a user-visible failure carrying a stable code and a human-readable message.
// It unwraps to one of the sentinel errors above, which decides the HTTP status.
type Error struct {
	Code              string
	Message           string
	RemainingAttempts *int
	kind              error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.kind }

// Validation reports missing or malformed input.
func Validation(code, msg string) *Error {
	return &Error{Code: code, Message: msg, kind: ErrBadRequest}
}

// NotFound reports an absent record.
func NotFound(code, msg string) *Error {
	return &Error{Code: code, Message: msg, kind: ErrNotFound}
}

// StateConflict reports a record in a state that forbids the requested transition.
func StateConflict(code, msg string) *Error {
	return &Error{Code: code, Message: msg, kind: ErrConflict}
}

// Dependency wraps a failure of the store or another external collaborator.
func Dependency(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrDependency, err)
}

// CodeOf returns the stable code of err, or CodeInternal when err carries none.
func CodeOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}
