// Package feed turns upstream calls into FeedResult values.
// Fetchers retry within a Policy, classify what went wrong, and never let an upstream error escape.
package feed

import "errors"

// Sentinel errors for feed operations.
var (
	// ErrNotConfigured indicates that no upstream credential is set.
	// It is returned before any network call is made.
	ErrNotConfigured = errors.New("feed: upstream credential not configured")
)
