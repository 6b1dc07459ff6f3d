package feed

import (
	"context"
	"errors"
	"fmt"

	"daily-digest/internal/domain/entity"
	"daily-digest/internal/infra/bing"
	"daily-digest/internal/infra/tianapi"
)

// Classify extracts the degradation reason, upstream code and message from err.
func Classify(err error) (reason entity.Reason, code int, msg string) {
	var apiErr *tianapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Reason, apiErr.Code, apiErr.Msg
	}
	var imgErr *bing.Error
	if errors.As(err, &imgErr) {
		return imgErr.Reason, imgErr.Code, ""
	}
	switch {
	case errors.Is(err, tianapi.ErrMissingKey), errors.Is(err, ErrNotConfigured):
		return entity.ReasonNotConfigured, 0, ""
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return entity.ReasonNetwork, 0, ""
	default:
		return entity.ReasonUpstreamError, 0, ""
	}
}

// ReasonText renders the user-facing fallback text. Label names the feed, e.g. "运势".
func ReasonText(label string, reason entity.Reason, code int, msg string) string {
	switch reason {
	case entity.ReasonRateLimited:
		if msg == "" {
			msg = "已达最大重试次数"
		}
		return fmt.Sprintf("%s获取失败 (频率超限): %s", label, msg)
	case entity.ReasonMalformed:
		return label + "数据格式错误"
	case entity.ReasonNetwork:
		return label + "加载出错 (网络问题)"
	case entity.ReasonNotConfigured:
		return entity.TextNotConfigured
	case entity.ReasonUnavailable:
		return entity.TextFetchFailed
	default:
		if msg == "" {
			msg = "未知API错误"
		}
		if code == 0 {
			return fmt.Sprintf("%s获取失败: %s", label, msg)
		}
		return fmt.Sprintf("%s获取失败 (代码: %d): %s", label, code, msg)
	}
}
