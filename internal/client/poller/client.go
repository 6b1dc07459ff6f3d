// Package poller is the presentation-side client of the digest server.
// It fetches the digest endpoints independently and keeps the loading, error
// and selection state a UI or CLI renders from.
package poller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	digesthttp "daily-digest/internal/handler/http/digest"
	"daily-digest/internal/handler/http/requestid"
	"daily-digest/internal/handler/http/respond"
	digestUC "daily-digest/internal/usecase/digest"
)

const maxBodyBytes = 1 << 20

// HTTPError is a non-2xx answer from the digest server.
// Message is the server's {"error"} text and may be empty.
type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("digest server: HTTP %d", e.Status)
	}
	return fmt.Sprintf("digest server: HTTP %d: %s", e.Status, e.Message)
}

// Client calls the digest server over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Client for the server at baseURL.
// The timeout must cover a cold horoscope sweep, which takes well over ten seconds.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Status fetches GET /digest/status.
func (c *Client) Status(ctx context.Context) (digestUC.Status, error) {
	var out digestUC.Status
	err := c.get(ctx, "/digest/status", &out)
	return out, err
}

// Lunar fetches GET /digest/lunar.
func (c *Client) Lunar(ctx context.Context) (digesthttp.LunarDTO, error) {
	var out digesthttp.LunarDTO
	err := c.get(ctx, "/digest/lunar", &out)
	return out, err
}

// Horoscopes fetches GET /digest/horoscope.
func (c *Client) Horoscopes(ctx context.Context) (map[string]digesthttp.HoroscopeDTO, error) {
	var out map[string]digesthttp.HoroscopeDTO
	err := c.get(ctx, "/digest/horoscope", &out)
	return out, err
}

// Quote fetches GET /digest/quote.
func (c *Client) Quote(ctx context.Context) (digesthttp.QuoteDTO, error) {
	var out digesthttp.QuoteDTO
	err := c.get(ctx, "/digest/quote", &out)
	return out, err
}

// Image fetches GET /digest/image.
func (c *Client) Image(ctx context.Context) (digesthttp.ImageDTO, error) {
	var out digesthttp.ImageDTO
	err := c.get(ctx, "/digest/image", &out)
	return out, err
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create http request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(requestid.RequestIDHeader, requestid.New())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("read %s body: %w", path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var eb respond.ErrorBody
		// A body that is not the error shape still yields an HTTPError.
		_ = json.Unmarshal(body, &eb)
		return &HTTPError{Status: resp.StatusCode, Message: eb.Error}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// asHTTPError unwraps an HTTPError.
func asHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	ok := errors.As(err, &he)
	return he, ok
}
