// Package tianapi is the HTTP client for the almanac, horoscope and quotation APIs.
package tianapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"daily-digest/internal/domain/entity"
	"daily-digest/internal/observability/logging"
	"daily-digest/internal/observability/metrics"
	"daily-digest/internal/observability/tracing"
	"daily-digest/internal/resilience/circuitbreaker"
)

// DefaultBaseURL is the production API host.
const DefaultBaseURL = "https://apis.tianapi.com"

// maxBodyBytes caps how much of an upstream body is read.
const maxBodyBytes = 1 << 20

// Endpoint names one upstream API.
type Endpoint string

const (
	EndpointLunar  Endpoint = "lunar"
	EndpointStar   Endpoint = "star"
	EndpointDictum Endpoint = "dictum"
)

// Config contains the client configuration.
type Config struct {
	// BaseURL is the API host without trailing slash
	BaseURL string

	// Key is the opaque credential sent as the "key" query parameter
	Key string

	// Timeout bounds each HTTP request
	Timeout time.Duration

	// RatePerSecond and Burst configure the token bucket shared by all endpoints
	RatePerSecond float64
	Burst         int
}

// DefaultConfig returns production defaults without a key.
func DefaultConfig() Config {
	return Config{
		BaseURL:       DefaultBaseURL,
		Timeout:       10 * time.Second,
		RatePerSecond: 1,
		Burst:         1,
	}
}

// Client calls the upstream APIs.
// Each endpoint has its own circuit breaker; all endpoints share one rate limiter.
type Client struct {
	config      Config
	httpClient  *http.Client
	rateLimiter *RateLimiter
	breakers    map[Endpoint]*circuitbreaker.CircuitBreaker
}

// NewClient creates a Client. A zero Timeout falls back to 10s.
func NewClient(config Config) *Client {
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")

	breakers := make(map[Endpoint]*circuitbreaker.CircuitBreaker, 3)
	for _, ep := range []Endpoint{EndpointLunar, EndpointStar, EndpointDictum} {
		cfg := circuitbreaker.TianAPIConfig("tianapi-" + string(ep))
		cfg.Ignore = func(err error) bool {
			var apiErr *Error
			// Rate limiting and bad credentials are answers, not outages.
			return errors.As(err, &apiErr) &&
				(apiErr.Reason == entity.ReasonRateLimited || apiErr.Reason == entity.ReasonNotConfigured)
		}
		breakers[ep] = circuitbreaker.New(cfg)
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		rateLimiter: NewRateLimiter(config.RatePerSecond, config.Burst),
		breakers:    breakers,
	}
}

// Configured reports whether a credential is present.
func (c *Client) Configured() bool {
	return strings.TrimSpace(c.config.Key) != ""
}

// Breakers returns the per-endpoint circuit breakers, for health reporting.
func (c *Client) Breakers() []*circuitbreaker.CircuitBreaker {
	return []*circuitbreaker.CircuitBreaker{
		c.breakers[EndpointLunar],
		c.breakers[EndpointStar],
		c.breakers[EndpointDictum],
	}
}

// Lunar fetches the almanac for day.
func (c *Client) Lunar(ctx context.Context, day entity.Day) (*LunarResult, error) {
	params := url.Values{}
	params.Set("date", day.String())
	return get[LunarResult](ctx, c, EndpointLunar, params)
}

// Star fetches the forecast of one constellation for day.
// The constellation key is sent lower-cased.
func (c *Client) Star(ctx context.Context, astro string, day entity.Day) (*StarResult, error) {
	params := url.Values{}
	params.Set("astro", strings.ToLower(astro))
	params.Set("date", day.String())
	return get[StarResult](ctx, c, EndpointStar, params)
}

// Dictum fetches num quotations.
func (c *Client) Dictum(ctx context.Context, num int) (*DictumResult, error) {
	params := url.Values{}
	params.Set("num", strconv.Itoa(num))
	return get[DictumResult](ctx, c, EndpointDictum, params)
}

// get performs one guarded call and decodes the envelope into T.
func get[T any](ctx context.Context, c *Client, ep Endpoint, params url.Values) (*T, error) {
	if !c.Configured() {
		return nil, ErrMissingKey
	}

	ctx, span := tracing.Start(ctx, "tianapi."+string(ep), attribute.String("tianapi.endpoint", string(ep)))
	defer span.End()

	if err := c.rateLimiter.Allow(ctx); err != nil {
		return nil, fmt.Errorf("tianapi %s: rate limiter: %w", ep, err)
	}

	start := time.Now()
	out, err := c.breakers[ep].Execute(func() (interface{}, error) {
		return do[T](ctx, c, ep, params)
	})
	duration := time.Since(start)

	if err != nil {
		if circuitbreaker.IsRejected(err) {
			err = &Error{Endpoint: ep, Reason: entity.ReasonUnavailable, Err: err}
		}
		outcome := "error"
		var apiErr *Error
		if errors.As(err, &apiErr) {
			outcome = string(apiErr.Reason)
		}
		metrics.RecordUpstreamCall(string(ep), outcome, duration)
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		logging.FromContext(ctx).Debug("tianapi call failed",
			slog.String("endpoint", string(ep)),
			slog.String("outcome", outcome),
			slog.Duration("duration", duration),
			slog.Any("error", err))
		return nil, err
	}

	metrics.RecordUpstreamCall(string(ep), "success", duration)
	return out.(*T), nil
}

func do[T any](ctx context.Context, c *Client, ep Endpoint, params url.Values) (*T, error) {
	params.Set("key", c.config.Key)
	endpoint := fmt.Sprintf("%s/%s/index?%s", c.config.BaseURL, ep, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create http request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		// *url.Error embeds the request URL, which carries the key.
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return nil, &Error{Endpoint: ep, Reason: entity.ReasonNetwork, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &Error{Endpoint: ep, Reason: entity.ReasonNetwork, Err: err}
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &Error{Endpoint: ep, Reason: entity.ReasonRateLimited, Code: resp.StatusCode, Msg: http.StatusText(resp.StatusCode)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &Error{Endpoint: ep, Reason: entity.ReasonUpstreamError, Code: resp.StatusCode, Msg: http.StatusText(resp.StatusCode)}
	}

	return decode[T](ep, body)
}

// decode validates the envelope before trusting result.
func decode[T any](ep Endpoint, body []byte) (*T, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, &Error{Endpoint: ep, Reason: entity.ReasonMalformed, Err: fmt.Errorf("decode envelope: %w", err)}
	}

	switch env.Code {
	case CodeSuccess:
	case CodeRateLimited:
		return nil, &Error{Endpoint: ep, Reason: entity.ReasonRateLimited, Code: env.Code, Msg: env.Msg}
	default:
		return nil, &Error{Endpoint: ep, Reason: entity.ReasonUpstreamError, Code: env.Code, Msg: env.Msg}
	}

	if len(env.Result) == 0 || string(env.Result) == "null" {
		return nil, &Error{Endpoint: ep, Reason: entity.ReasonMalformed, Code: env.Code, Msg: "missing result"}
	}

	var out T
	if err := json.Unmarshal(env.Result, &out); err != nil {
		return nil, &Error{Endpoint: ep, Reason: entity.ReasonMalformed, Err: fmt.Errorf("decode result: %w", err)}
	}
	return &out, nil
}
