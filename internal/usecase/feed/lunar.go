package feed

import (
	"context"
	"fmt"

	"daily-digest/internal/domain/entity"
	"daily-digest/internal/infra/tianapi"
	"daily-digest/internal/resilience/retry"
)

// LunarOutcome is the almanac result plus its structured fields on success.
type LunarOutcome struct {
	Result entity.FeedResult
	Digest entity.LunarDigest
}

// FormatLunar renders the almanac text shown to readers.
func FormatLunar(fitness, taboo string) string {
	return fmt.Sprintf("宜：%s\n忌：%s", fitness, taboo)
}

// Lunar fetches the almanac for day.
func (f *Fetcher) Lunar(ctx context.Context, day entity.Day, policy retry.Policy) LunarOutcome {
	logger := feedLogger(ctx, NameLunar)
	if !f.Configured() {
		return LunarOutcome{Result: degrade(logger, NameLunar, "农历运势", day, ErrNotConfigured)}
	}

	res, err := call(ctx, f, logger, NameLunar, policy, func(ctx context.Context) (*tianapi.LunarResult, error) {
		res, err := f.API.Lunar(ctx, day)
		if err != nil {
			return nil, err
		}
		if res.Fitness == "" || res.Taboo == "" {
			return nil, &tianapi.Error{
				Endpoint: tianapi.EndpointLunar,
				Reason:   entity.ReasonMalformed,
				Code:     tianapi.CodeSuccess,
				Msg:      "缺少宜忌数据",
			}
		}
		return res, nil
	})
	if err != nil {
		return LunarOutcome{Result: degrade(logger, NameLunar, "农历运势", day, err)}
	}

	digest := entity.LunarDigest{
		Text: FormatLunar(res.Fitness, res.Taboo),
		Raw: entity.LunarFields{
			Fitness:   res.Fitness,
			Taboo:     res.Taboo,
			LunarDate: res.LunarDate,
		},
	}
	return LunarOutcome{
		Result: entity.Succeeded(digest.Text, day),
		Digest: digest,
	}
}
