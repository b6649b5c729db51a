// internal/core/errors.go
package core

import (
	"errors"
	"fmt"
	"time"
)

// Error represents a structured error with code and optional cause.
type Error struct {
	Code    string
	Message string
	Cause   error

	// RetryAfter is set on UPSTREAM_UNAVAILABLE errors.
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is matching by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WrapError creates a new error with the same code but with a cause.
func WrapError(base *Error, cause error) *Error {
	return &Error{
		Code:       base.Code,
		Message:    base.Message,
		Cause:      cause,
		RetryAfter: base.RetryAfter,
	}
}

// Validation returns an ErrValidation carrying a client-facing message.
func Validation(format string, args ...any) *Error {
	return &Error{
		Code:    ErrValidation.Code,
		Message: fmt.Sprintf(format, args...),
	}
}

// NotFound returns an ErrNotFound carrying a client-facing message.
func NotFound(format string, args ...any) *Error {
	return &Error{
		Code:    ErrNotFound.Code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Conflict returns an ErrConflict carrying a client-facing message.
func Conflict(format string, args ...any) *Error {
	return &Error{
		Code:    ErrConflict.Code,
		Message: fmt.Sprintf(format, args...),
	}
}

// MinRetryAfter is the smallest retry hint attached to an unavailable error.
const MinRetryAfter = 300 * time.Second

// Unavailable returns an ErrUpstreamUnavailable with a retry hint of at
// least MinRetryAfter.
func Unavailable(retryAfter time.Duration, cause error) *Error {
	if retryAfter < MinRetryAfter {
		retryAfter = MinRetryAfter
	}
	return &Error{
		Code:       ErrUpstreamUnavailable.Code,
		Message:    ErrUpstreamUnavailable.Message,
		Cause:      cause,
		RetryAfter: retryAfter,
	}
}

// RetryAfterOf extracts the retry hint from err, or 0.
func RetryAfterOf(err error) time.Duration {
	var e *Error
	if errors.As(err, &e) {
		return e.RetryAfter
	}
	return 0
}

// Predefined errors
var (
	// Request errors
	ErrValidation = &Error{Code: "VALIDATION_FAILED", Message: "invalid request"}
	ErrNotFound   = &Error{Code: "NOT_FOUND", Message: "resource not found"}
	ErrConflict   = &Error{Code: "CONFLICT", Message: "resource already exists"}

	// Auth errors
	ErrInvalidCredentials = &Error{Code: "INVALID_CREDENTIALS", Message: "invalid email or password"}
	ErrUnauthorized       = &Error{Code: "UNAUTHORIZED", Message: "missing or invalid bearer token"}
	ErrForbidden          = &Error{Code: "FORBIDDEN", Message: "insufficient permissions"}
	ErrResetTokenInvalid  = &Error{Code: "RESET_TOKEN_INVALID", Message: "invalid or expired reset token"}

	// Upstream provider errors
	ErrUpstreamUnavailable  = &Error{Code: "UPSTREAM_UNAVAILABLE", Message: "market data temporarily unavailable", RetryAfter: MinRetryAfter}
	ErrUpstreamSchema       = &Error{Code: "UPSTREAM_SCHEMA", Message: "unexpected response from market data provider"}
	ErrUpstreamUnauthorized = &Error{Code: "UPSTREAM_UNAUTHORIZED", Message: "market data provider rejected credentials"}
	ErrUpstreamFailed       = &Error{Code: "UPSTREAM_FAILED", Message: "market data provider request failed"}

	// Notifier errors
	ErrNotifierFailed = &Error{Code: "NOTIFIER_FAILED", Message: "notifier failed"}

	// Storage errors
	ErrStorageFailed = &Error{Code: "STORAGE_FAILED", Message: "storage operation failed"}

	// Config errors
	ErrConfigInvalid = &Error{Code: "CONFIG_INVALID", Message: "configuration invalid"}
	ErrConfigMissing = &Error{Code: "CONFIG_MISSING", Message: "required configuration missing"}
)
