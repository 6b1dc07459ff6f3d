// Package digest aggregates the daily feeds and caches them per day.
package digest

import (
	"fmt"
	"net/http"

	"daily-digest/internal/domain/entity"
)

// FeedError is returned by the single-item feeds when the fetch degraded.
// Status is what an HTTP surface should answer with.
type FeedError struct {
	Feed    string
	Reason  entity.Reason
	Status  int
	Message string
	Err     error
}

// Error implements the error interface.
func (e *FeedError) Error() string {
	return fmt.Sprintf("%s: %s (%d): %s", e.Feed, e.Reason, e.Status, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *FeedError) Unwrap() error {
	return e.Err
}

// newFeedError mirrors an upstream code that is a valid HTTP error status; anything else is a 500.
func newFeedError(feed string, r entity.FeedResult) *FeedError {
	status := http.StatusInternalServerError
	if r.Code >= 400 && r.Code <= 599 {
		status = r.Code
	}
	return &FeedError{
		Feed:    feed,
		Reason:  r.Reason,
		Status:  status,
		Message: r.ReasonText,
	}
}
