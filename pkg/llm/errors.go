package llm

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a generation failure.
type ErrorKind string

const (
	KindNetworkFailure ErrorKind = "network_failure"
	KindInvalidShape   ErrorKind = "invalid_response_shape"
	KindRateLimited    ErrorKind = "upstream_rate_limited"
	KindAuthFailure    ErrorKind = "upstream_auth_failure"
)

// Error is a typed generation failure.
type Error struct {
	Kind   ErrorKind
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("generation failed (%s, status %d): %v", e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("generation failed (%s): %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the failure kind of err, or "" if err is not a
// generation error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
