// Package collector holds the pieces shared by the upstream quote clients:
// response classification, the HTTP wrapper and locale-invariant parsing.
package collector

import (
	"fmt"
	"net/http"
	"time"
)

// Outcome classifies one upstream call.
type Outcome int

const (
	// OutcomeOK means a parseable body with data.
	OutcomeOK Outcome = iota
	// OutcomeEmpty means a parseable body carrying the provider's no-data marker.
	OutcomeEmpty
	// OutcomeRateLimited is HTTP 429.
	OutcomeRateLimited
	// OutcomeUnauthorized is HTTP 401: credentials are wrong and retrying
	// another parameter set will not help.
	OutcomeUnauthorized
	// OutcomeRejected is a parameter rejection (400, 403, 404, 417).
	OutcomeRejected
	// OutcomeTransient covers transport errors, timeouts and other statuses.
	OutcomeTransient
	// OutcomeSchema means a 200 whose body did not match the expected shape.
	OutcomeSchema
)

var outcomeNames = [...]string{
	OutcomeOK:           "ok",
	OutcomeEmpty:        "empty",
	OutcomeRateLimited:  "rate_limited",
	OutcomeUnauthorized: "unauthorized",
	OutcomeRejected:     "rejected",
	OutcomeTransient:    "transient",
	OutcomeSchema:       "schema_error",
}

func (o Outcome) String() string {
	if int(o) < len(outcomeNames) {
		return outcomeNames[o]
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Classify maps a non-200 HTTP status to an outcome.
func Classify(status int) Outcome {
	switch status {
	case http.StatusOK:
		return OutcomeOK
	case http.StatusTooManyRequests:
		return OutcomeRateLimited
	case http.StatusUnauthorized:
		return OutcomeUnauthorized
	case http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound, http.StatusExpectationFailed:
		return OutcomeRejected
	default:
		return OutcomeTransient
	}
}

// Result is the value of one upstream call together with its outcome.
// Value is only meaningful when Outcome is OutcomeOK.
type Result[T any] struct {
	Outcome    Outcome
	Value      T
	StatusCode int
	RetryAfter time.Duration
	Err        error
}

// OK reports whether the call produced data.
func (r Result[T]) OK() bool { return r.Outcome == OutcomeOK }

// Success wraps a value.
func Success[T any](v T) Result[T] {
	return Result[T]{Outcome: OutcomeOK, Value: v, StatusCode: http.StatusOK}
}

// Empty is a successful call with no data.
func Empty[T any]() Result[T] {
	return Result[T]{Outcome: OutcomeEmpty, StatusCode: http.StatusOK}
}

// SchemaError is a 200 response that could not be decoded.
func SchemaError[T any](err error) Result[T] {
	return Result[T]{Outcome: OutcomeSchema, StatusCode: http.StatusOK, Err: err}
}

// Failed carries a non-data response across value types.
func Failed[T any](r Response) Result[T] {
	return Result[T]{
		Outcome:    r.Outcome,
		StatusCode: r.StatusCode,
		RetryAfter: r.RetryAfter,
		Err:        r.Err,
	}
}

// Convert carries a non-OK result across value types.
func Convert[T, U any](r Result[U]) Result[T] {
	return Result[T]{
		Outcome:    r.Outcome,
		StatusCode: r.StatusCode,
		RetryAfter: r.RetryAfter,
		Err:        r.Err,
	}
}
