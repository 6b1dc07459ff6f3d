package entity

import (
	"fmt"
	"maps"
)

// Kind tags a FeedResult as either a usable value or a terminal fallback.
type Kind string

const (
	KindSuccess  Kind = "success"
	KindDegraded Kind = "degraded"
)

// Reason classifies why a feed item degraded.
// Presentation code decides on retry affordances from the Reason, never from the text.
type Reason string

const (
	ReasonRateLimited   Reason = "rate_limited"
	ReasonMalformed     Reason = "malformed"
	ReasonNetwork       Reason = "network"
	ReasonUpstreamError Reason = "upstream_error"
	ReasonNotConfigured Reason = "not_configured"
	ReasonUnavailable   Reason = "unavailable"
)

// Retryable reports whether a later attempt could plausibly succeed.
// A missing credential stays missing and a bad payload is not re-requested.
func (r Reason) Retryable() bool {
	return r != ReasonNotConfigured && r != ReasonMalformed
}

// Placeholder texts shown to users.
const (
	TextNotYetUpdated  = "当日数据暂未更新"
	TextFetchFailed    = "获取失败，请稍后重试"
	TextNotConfigured  = "服务未配置"
	TextNotLoaded      = "当前星座数据未能加载。"
	TextMalformed      = "运势数据格式错误"
	TextNetworkFailure = "运势加载出错 (网络问题)"
)

// FeedResult is the outcome of one attempted feed item.
// Every attempted call produces exactly one FeedResult.
type FeedResult struct {
	Kind         Kind
	Content      string
	ForecastDate Day

	// Set only when Kind is KindDegraded.
	Reason     Reason
	ReasonText string
	Code       int
}

// Succeeded builds a success result.
func Succeeded(content string, forecastDate Day) FeedResult {
	return FeedResult{Kind: KindSuccess, Content: content, ForecastDate: forecastDate}
}

// Degrade builds a degraded result with a user-presentable reason text.
func Degrade(reason Reason, text string, forecastDate Day) FeedResult {
	return FeedResult{Kind: KindDegraded, Reason: reason, ReasonText: text, ForecastDate: forecastDate}
}

// WithCode attaches the upstream status code to a degraded result.
func (r FeedResult) WithCode(code int) FeedResult {
	r.Code = code
	return r
}

// IsDegraded reports whether r is a fallback rather than upstream content.
func (r FeedResult) IsDegraded() bool {
	return r.Kind == KindDegraded
}

// Text returns what a reader should see: the content or the fallback text.
func (r FeedResult) Text() string {
	if r.IsDegraded() {
		return r.ReasonText
	}
	return r.Content
}

// String implements fmt.Stringer for log output.
func (r FeedResult) String() string {
	if r.IsDegraded() {
		return fmt.Sprintf("degraded(%s): %s", r.Reason, r.ReasonText)
	}
	return fmt.Sprintf("success(%s)", r.ForecastDate)
}

// DigestSnapshot is the per-day aggregate of one multi-category feed.
type DigestSnapshot struct {
	FetchAttemptDay Day
	Items           map[string]FeedResult
	// PartialFailure is set when at least one item degraded. It is
	// informational; Items is always fully populated.
	PartialFailure bool
}

// DegradedCount returns the number of degraded items.
func (s DigestSnapshot) DegradedCount() int {
	n := 0
	for _, item := range s.Items {
		if item.IsDegraded() {
			n++
		}
	}
	return n
}

// Clone returns a copy whose Items map can be modified freely.
func (s DigestSnapshot) Clone() DigestSnapshot {
	s.Items = maps.Clone(s.Items)
	return s
}

// LunarDigest is the daily almanac text plus the raw upstream fields.
type LunarDigest struct {
	Text string
	Raw  LunarFields
}

// LunarFields are the almanac fields the digest relies on.
type LunarFields struct {
	Fitness string `json:"fitness"`
	Taboo   string `json:"taboo"`
	// LunarDate is the traditional calendar date when the upstream reports it.
	LunarDate string `json:"lunardate,omitempty"`
}

// Quote is the daily quotation.
type Quote struct {
	ID      int
	Content string
	Author  string
}

// DailyImage is the daily background image.
type DailyImage struct {
	URL       string
	Title     string
	Copyright string
	StartDate string
}
