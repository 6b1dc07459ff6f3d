package tianapi

import (
	"errors"
	"fmt"

	"daily-digest/internal/domain/entity"
)

// ErrMissingKey is returned when no credential is configured.
var ErrMissingKey = errors.New("tianapi: key not configured")

// Error is a classified upstream failure.
type Error struct {
	Endpoint Endpoint
	Reason   entity.Reason
	// Code is the envelope code, or the HTTP status when the envelope was never read.
	Code int
	Msg  string
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("tianapi %s: %s: %v", e.Endpoint, e.Reason, e.Err)
	case e.Code != 0:
		return fmt.Sprintf("tianapi %s: %s (code %d: %s)", e.Endpoint, e.Reason, e.Code, e.Msg)
	default:
		return fmt.Sprintf("tianapi %s: %s", e.Endpoint, e.Reason)
	}
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsRateLimited reports whether err is an upstream rate-limit rejection.
func IsRateLimited(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Reason == entity.ReasonRateLimited
}
