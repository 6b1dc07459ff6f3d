package feed

import (
	"context"
	"errors"

	"daily-digest/internal/domain/entity"
	"daily-digest/internal/infra/bing"
	"daily-digest/internal/resilience/retry"
)

var errNoArchive = errors.New("feed: image archive not configured")

// ImageOutcome is the background image result plus its metadata on success.
type ImageOutcome struct {
	Result entity.FeedResult
	Image  entity.DailyImage
}

// Image fetches today's background image. It needs no credential.
func (f *Fetcher) Image(ctx context.Context, day entity.Day, policy retry.Policy) ImageOutcome {
	logger := feedLogger(ctx, NameImage)
	if f.Images == nil {
		return ImageOutcome{Result: degrade(logger, NameImage, "背景图片", day, &bing.Error{Reason: entity.ReasonNotConfigured, Err: errNoArchive})}
	}

	img, err := call(ctx, f, logger, NameImage, policy, func(ctx context.Context) (*bing.Image, error) {
		return f.Images.Today(ctx)
	})
	if err != nil {
		return ImageOutcome{Result: degrade(logger, NameImage, "背景图片", day, err)}
	}

	out := entity.DailyImage{
		URL:       f.Images.ImageURL(img.URLBase),
		Title:     img.Title,
		Copyright: img.Copyright,
		StartDate: img.StartDate,
	}
	return ImageOutcome{Result: entity.Succeeded(out.URL, day), Image: out}
}
