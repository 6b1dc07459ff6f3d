// Package bing fetches the daily background image from the Bing image archive.
package bing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"daily-digest/internal/domain/entity"
	"daily-digest/internal/observability/metrics"
	"daily-digest/internal/observability/tracing"
	"daily-digest/internal/resilience/circuitbreaker"
)

const (
	// DefaultBaseURL is the archive host. Image URLs are always built against it.
	DefaultBaseURL = "https://www.bing.com"

	// DefaultResolution is appended to urlbase.
	DefaultResolution = "1920x1080"

	defaultMarket = "zh-CN"
	metricsFeed   = "bing"
	maxBodyBytes  = 1 << 20
)

// Config contains the client configuration.
type Config struct {
	BaseURL    string
	Market     string
	Resolution string
	Timeout    time.Duration
}

// Image is one archive entry.
type Image struct {
	StartDate string `json:"startdate"`
	EndDate   string `json:"enddate"`
	URL       string `json:"url"`
	URLBase   string `json:"urlbase"`
	Copyright string `json:"copyright"`
	Title     string `json:"title"`
}

type archive struct {
	Images []Image `json:"images"`
}

// Error is a classified archive failure.
type Error struct {
	Reason entity.Reason
	Code   int
	Err    error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("bing: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("bing: %s (status %d)", e.Reason, e.Code)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Client reads the image archive.
type Client struct {
	config     Config
	httpClient *http.Client
	breaker    *circuitbreaker.CircuitBreaker
}

// NewClient creates a Client, filling unset fields with defaults.
func NewClient(config Config) *Client {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.Market == "" {
		config.Market = defaultMarket
	}
	if config.Resolution == "" {
		config.Resolution = DefaultResolution
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		breaker:    circuitbreaker.New(circuitbreaker.BingImageConfig()),
	}
}

// Breaker returns the client's circuit breaker, for health reporting.
func (c *Client) Breaker() *circuitbreaker.CircuitBreaker {
	return c.breaker
}

// Today returns today's image metadata.
func (c *Client) Today(ctx context.Context) (*Image, error) {
	ctx, span := tracing.Start(ctx, "bing.today")
	defer span.End()

	start := time.Now()
	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.fetch(ctx)
	})
	if err != nil {
		if circuitbreaker.IsRejected(err) {
			err = &Error{Reason: entity.ReasonUnavailable, Err: err}
		}
		outcome := "error"
		var bErr *Error
		if errors.As(err, &bErr) {
			outcome = string(bErr.Reason)
		}
		metrics.RecordUpstreamCall(metricsFeed, outcome, time.Since(start))
		span.RecordError(err)
		return nil, err
	}
	metrics.RecordUpstreamCall(metricsFeed, "success", time.Since(start))
	return out.(*Image), nil
}

// ImageURL builds the full-resolution URL for urlbase.
func (c *Client) ImageURL(urlBase string) string {
	return fmt.Sprintf("%s%s_%s.jpg", DefaultBaseURL, urlBase, c.config.Resolution)
}

func (c *Client) fetch(ctx context.Context) (*Image, error) {
	params := url.Values{}
	params.Set("format", "js")
	params.Set("idx", "0")
	params.Set("n", "1")
	params.Set("mkt", c.config.Market)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+"/HPImageArchive.aspx?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create http request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &Error{Reason: entity.ReasonNetwork, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, &Error{Reason: entity.ReasonUpstreamError, Code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &Error{Reason: entity.ReasonNetwork, Err: err}
	}

	var a archive
	if err := json.Unmarshal(body, &a); err != nil {
		return nil, &Error{Reason: entity.ReasonMalformed, Err: err}
	}
	if len(a.Images) == 0 || a.Images[0].URLBase == "" {
		return nil, &Error{Reason: entity.ReasonMalformed, Err: errors.New("no image in archive")}
	}
	return &a.Images[0], nil
}
