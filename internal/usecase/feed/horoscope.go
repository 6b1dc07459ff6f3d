package feed

import (
	"context"
	"log/slog"
	"strings"

	"daily-digest/internal/domain/entity"
	"daily-digest/internal/infra/tianapi"
	"daily-digest/internal/resilience/retry"
)

// overviewType marks the list entry holding the day's summary.
const overviewType = "今日概述"

// Horoscope fetches one constellation's forecast for day.
//
// A well-formed response without an overview entry is a success carrying the
// "not yet updated" placeholder; it never consumes retries.
func (f *Fetcher) Horoscope(ctx context.Context, c entity.Constellation, day entity.Day, policy retry.Policy) entity.FeedResult {
	logger := feedLogger(ctx, NameHoroscope, slog.String("category", c.APIKey))

	if !f.Configured() {
		return degrade(logger, NameHoroscope, "运势", day, ErrNotConfigured)
	}

	res, err := call(ctx, f, logger, NameHoroscope, policy, func(ctx context.Context) (*tianapi.StarResult, error) {
		return f.API.Star(ctx, strings.ToLower(c.APIKey), day)
	})
	if err != nil {
		return degrade(logger, NameHoroscope, "运势", day, err)
	}

	for _, item := range res.List {
		if item.Type != overviewType {
			continue
		}
		forecast := day
		if item.Date != "" {
			forecast = entity.Day(item.Date)
		}
		return entity.Succeeded(item.Content, forecast)
	}
	return entity.Succeeded(entity.TextNotYetUpdated, day)
}
