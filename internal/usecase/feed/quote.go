package feed

import (
	"context"

	"daily-digest/internal/domain/entity"
	"daily-digest/internal/infra/tianapi"
	"daily-digest/internal/resilience/retry"
)

// QuoteOutcome is the quotation result plus the quote on success.
type QuoteOutcome struct {
	Result entity.FeedResult
	Quote  entity.Quote
}

// Quote fetches one quotation. The day only labels the result; the upstream ignores it.
// It returns ErrNotConfigured without calling out when no credential is set.
func (f *Fetcher) Quote(ctx context.Context, day entity.Day, policy retry.Policy) (QuoteOutcome, error) {
	if !f.Configured() {
		return QuoteOutcome{}, ErrNotConfigured
	}

	logger := feedLogger(ctx, NameQuote)
	res, err := call(ctx, f, logger, NameQuote, policy, func(ctx context.Context) (*tianapi.DictumResult, error) {
		res, err := f.API.Dictum(ctx, 1)
		if err != nil {
			return nil, err
		}
		if len(res.List) == 0 {
			return nil, &tianapi.Error{
				Endpoint: tianapi.EndpointDictum,
				Reason:   entity.ReasonMalformed,
				Code:     tianapi.CodeSuccess,
				Msg:      "未能获取到名言数据",
			}
		}
		return res, nil
	})
	if err != nil {
		return QuoteOutcome{Result: degrade(logger, NameQuote, "名言", day, err)}, nil
	}

	item := res.List[0]
	return QuoteOutcome{
		Result: entity.Succeeded(item.Content, day),
		Quote: entity.Quote{
			ID:      item.ID,
			Content: item.Content,
			Author:  item.MRName,
		},
	}, nil
}
