// Package spacing runs a list of calls one at a time with a minimum gap
// between call starts.
package spacing

import (
	"context"
	"time"

	"daily-digest/internal/resilience/retry"
)

// DefaultInterval is the wait before each upstream call in a sweep.
const DefaultInterval = 1100 * time.Millisecond

// Sequential iterates items strictly in order.
type Sequential struct {
	// Interval is slept before every call, including the first, so that two
	// sweeps started back to back still respect the gap.
	Interval time.Duration

	// Sleep defaults to retry.Sleep.
	Sleep retry.Sleeper
}

// New returns a Sequential with the given interval.
func New(interval time.Duration) *Sequential {
	return &Sequential{Interval: interval}
}

// Each calls fn for every item, in order, after waiting Interval.
// Index i is the item's position. Each stops early only when ctx is done;
// the returned error is then the context's error.
func Each[T any](ctx context.Context, s *Sequential, items []T, fn func(ctx context.Context, i int, item T)) error {
	sleep := retry.Sleep
	if s.Sleep != nil {
		sleep = s.Sleep
	}
	for i, item := range items {
		if err := sleep(ctx, s.Interval); err != nil {
			return err
		}
		fn(ctx, i, item)
	}
	return nil
}
