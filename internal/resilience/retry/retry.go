// Package retry provides bounded retry logic with linear backoff.
// It wraps a single upstream call and reports exhaustion through one well-defined error.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Policy holds the retry budget for one call.
type Policy struct {
	// MaxRetries is the number of retries after the initial attempt.
	MaxRetries int

	// BaseDelay is multiplied by the attempt number to get the wait before the
	// next attempt: 1x after attempt 1, 2x after attempt 2, and so on.
	BaseDelay time.Duration
}

// ClientPolicy is the budget for calls triggered directly by a caller.
func ClientPolicy() Policy {
	return Policy{
		MaxRetries: 2,
		BaseDelay:  1 * time.Second,
	}
}

// SweepPolicy is the per-category budget inside a sequential sweep.
// It is smaller than ClientPolicy because the sweep as a whole is already slow.
func SweepPolicy() Policy {
	return Policy{
		MaxRetries: 1,
		BaseDelay:  500 * time.Millisecond,
	}
}

// Attempts returns the total number of attempts the policy allows.
func (p Policy) Attempts() int {
	if p.MaxRetries < 0 {
		return 1
	}
	return p.MaxRetries + 1
}

// Delay returns the wait after the given failed attempt (1-based).
func (p Policy) Delay(attempt int) time.Duration {
	return p.BaseDelay * time.Duration(attempt)
}

// Validate checks that the policy is usable.
func (p Policy) Validate() error {
	if p.MaxRetries < 0 {
		return fmt.Errorf("max retries must be >= 0, got %d", p.MaxRetries)
	}
	if p.BaseDelay < 0 {
		return fmt.Errorf("base delay must be >= 0, got %v", p.BaseDelay)
	}
	return nil
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Sleep is the real-time Sleeper.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Executor runs calls under a Policy.
type Executor struct {
	// Sleep defaults to the real-time Sleep.
	Sleep Sleeper

	// OnRetry, if set, is called before each backoff wait.
	OnRetry func(attempt int, delay time.Duration, err error)

	Logger *slog.Logger
}

// ExhaustedError is returned when every allowed attempt failed.
type ExhaustedError struct {
	Attempts int
	Last     error
}

// Error implements the error interface.
func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("max retry attempts (%d) exceeded: %v", e.Attempts, e.Last)
}

// Unwrap exposes the last attempt's error.
func (e *ExhaustedError) Unwrap() error {
	return e.Last
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsRetryable determines if an error is worth retrying.
// Everything is retryable except nil, context cancellation and errors marked Permanent.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var perm *permanentError
	return !errors.As(err, &perm)
}

// Do runs fn with the default Executor.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context, attempt int) error) error {
	return Executor{}.Do(ctx, p, fn)
}

// Do attempts fn up to p.Attempts() times.
//
// It returns nil on the first success. A non-retryable error is returned as-is
// right away. When the budget runs out the result is an *ExhaustedError wrapping
// the last failure; that is the only exhaustion exit.
func (e Executor) Do(ctx context.Context, p Policy, fn func(ctx context.Context, attempt int) error) error {
	sleep := e.Sleep
	if sleep == nil {
		sleep = Sleep
	}
	logger := e.Logger
	if logger == nil {
		logger = slog.Default()
	}

	attempts := p.Attempts()
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = fn(ctx, attempt)
		if lastErr == nil {
			if attempt > 1 {
				logger.Info("operation succeeded after retry",
					slog.Int("attempt", attempt))
			}
			return nil
		}

		if !IsRetryable(lastErr) {
			logger.Warn("non-retryable error, aborting",
				slog.Int("attempt", attempt),
				slog.Any("error", lastErr))
			return lastErr
		}

		if attempt == attempts {
			break
		}

		delay := p.Delay(attempt)
		logger.Warn("operation failed, retrying",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", attempts),
			slog.Duration("delay", delay),
			slog.Any("error", lastErr))
		if e.OnRetry != nil {
			e.OnRetry(attempt, delay, lastErr)
		}

		if err := sleep(ctx, delay); err != nil {
			return fmt.Errorf("retry aborted: %w", err)
		}
	}

	return &ExhaustedError{Attempts: attempts, Last: lastErr}
}
