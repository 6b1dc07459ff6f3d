package feed

import (
	"context"
	"log/slog"
	"time"

	"daily-digest/internal/domain/entity"
	"daily-digest/internal/infra/bing"
	"daily-digest/internal/infra/tianapi"
	"daily-digest/internal/observability/logging"
	"daily-digest/internal/observability/metrics"
	"daily-digest/internal/resilience/retry"
)

// Feed names used in logs and metrics.
const (
	NameLunar     = "lunar"
	NameHoroscope = "horoscope"
	NameQuote     = "quote"
	NameImage     = "image"
)

// TianAPI is the subset of the tianapi client the fetchers use.
type TianAPI interface {
	Configured() bool
	Lunar(ctx context.Context, day entity.Day) (*tianapi.LunarResult, error)
	Star(ctx context.Context, astro string, day entity.Day) (*tianapi.StarResult, error)
	Dictum(ctx context.Context, num int) (*tianapi.DictumResult, error)
}

// ImageArchive is the subset of the bing client the image fetcher uses.
type ImageArchive interface {
	Today(ctx context.Context) (*bing.Image, error)
	ImageURL(urlBase string) string
}

// Fetcher runs the feed-specific calls.
type Fetcher struct {
	API    TianAPI
	Images ImageArchive

	// Sleep is used for retry backoff. Nil means real time.
	Sleep retry.Sleeper
}

// NewFetcher creates a Fetcher.
func NewFetcher(api TianAPI, images ImageArchive) *Fetcher {
	return &Fetcher{API: api, Images: images}
}

// Configured reports whether the credentialed upstream can be called.
func (f *Fetcher) Configured() bool {
	return f.API != nil && f.API.Configured()
}

// feedLogger returns the request logger tagged with feed and any extra attributes.
func feedLogger(ctx context.Context, feed string, attrs ...any) *slog.Logger {
	return logging.FromContext(ctx).With(append([]any{slog.String("feed", feed)}, attrs...)...)
}

// call runs fn under policy and records retries for feed.
// The returned error is the last classified failure. A missing key or a
// malformed payload ends the loop on the first attempt.
func call[T any](ctx context.Context, f *Fetcher, logger *slog.Logger, feed string, policy retry.Policy, fn func(ctx context.Context) (*T, error)) (*T, error) {
	exec := retry.Executor{
		Sleep:  f.Sleep,
		Logger: logger,
		OnRetry: func(attempt int, delay time.Duration, err error) {
			metrics.RecordRetry(feed)
		},
	}

	var out *T
	err := exec.Do(ctx, policy, func(ctx context.Context, attempt int) error {
		v, err := fn(ctx)
		if err != nil {
			if reason, _, _ := Classify(err); !reason.Retryable() {
				return retry.Permanent(err)
			}
			return err
		}
		out = v
		return nil
	})
	return out, err
}

// degrade converts a failure into a degraded result and records it.
func degrade(logger *slog.Logger, feed, label string, day entity.Day, err error) entity.FeedResult {
	reason, code, msg := Classify(err)
	result := entity.Degrade(reason, ReasonText(label, reason, code, msg), day).WithCode(code)

	metrics.RecordDegraded(feed, string(reason))
	logger.Warn("feed degraded",
		slog.String("day", day.String()),
		slog.String("reason", string(reason)),
		slog.Int("code", code),
		slog.Any("error", err))
	return result
}
