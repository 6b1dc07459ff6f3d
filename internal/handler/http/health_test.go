package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"daily-digest/internal/resilience/circuitbreaker"
	"daily-digest/internal/usecase/digest"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubStatus struct{ configured bool }

func (s stubStatus) Status() digest.Status {
	return digest.Status{Configured: s.configured, Day: "2024-03-05"}
}

type stubBreaker struct {
	name  string
	state gobreaker.State
}

func (b stubBreaker) Name() string           { return b.name }
func (b stubBreaker) State() gobreaker.State { return b.state }

type stubPrewarm struct {
	at  time.Time
	err error
}

func (p stubPrewarm) LastRun() (time.Time, error) { return p.at, p.err }

func serveHealth(t *testing.T, h *HealthHandler) HealthResponse {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no-cache, no-store, must-revalidate", rec.Header().Get("Cache-Control"))
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestHealthHandler_Healthy(t *testing.T) {
	fixed := time.Date(2024, 3, 5, 1, 2, 3, 0, time.UTC)
	resp := serveHealth(t, &HealthHandler{
		Version:  "1.2.3",
		Service:  stubStatus{configured: true},
		Breakers: []Breaker{stubBreaker{"tianapi-lunar", gobreaker.StateClosed}, stubBreaker{"bing", gobreaker.StateHalfOpen}},
		Now:      func() time.Time { return fixed },
	})

	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "1.2.3", resp.Version)
	assert.Equal(t, "2024-03-05T01:02:03Z", resp.Timestamp)
	assert.Equal(t, "2024-03-05", resp.Checks["upstream"].Details["day"])
	assert.Equal(t, "half-open", resp.Checks["circuit_breakers"].Details["bing"])
	_, hasPrewarm := resp.Checks["prewarm"]
	assert.False(t, hasPrewarm)
}

func TestHealthHandler_NotConfiguredIsDegraded(t *testing.T) {
	resp := serveHealth(t, &HealthHandler{Service: stubStatus{configured: false}})

	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, "degraded", resp.Checks["upstream"].Status)
	assert.Equal(t, "healthy", resp.Checks["circuit_breakers"].Status)
}

func TestHealthHandler_OpenBreakerIsDegraded(t *testing.T) {
	resp := serveHealth(t, &HealthHandler{
		Service:  stubStatus{configured: true},
		Breakers: []Breaker{stubBreaker{"tianapi-star", gobreaker.StateOpen}},
	})

	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, "circuit breaker open", resp.Checks["circuit_breakers"].Message)
	assert.Equal(t, "open", resp.Checks["circuit_breakers"].Details["tianapi-star"])
}

func TestHealthHandler_RealBreakers(t *testing.T) {
	cb := circuitbreaker.New(circuitbreaker.DefaultConfig("probe"))
	resp := serveHealth(t, &HealthHandler{
		Service:  stubStatus{configured: true},
		Breakers: []Breaker{cb},
	})

	assert.Equal(t, "closed", resp.Checks["circuit_breakers"].Details["probe"])
}

func TestHealthHandler_Prewarm(t *testing.T) {
	last := time.Date(2024, 3, 5, 0, 5, 0, 0, time.UTC)

	tests := []struct {
		name       string
		prewarm    stubPrewarm
		wantStatus string
		wantMsg    string
	}{
		{name: "not run", prewarm: stubPrewarm{}, wantStatus: "healthy", wantMsg: "not run yet"},
		{name: "succeeded", prewarm: stubPrewarm{at: last}, wantStatus: "healthy"},
		{
			name:       "failed with key in error",
			prewarm:    stubPrewarm{at: last, err: errors.New("GET https://apis.tianapi.com/lunar/index?key=secret: timeout")},
			wantStatus: "degraded",
			wantMsg:    "GET https://apis.tianapi.com/lunar/index?key=****: timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := serveHealth(t, &HealthHandler{Service: stubStatus{configured: true}, Prewarm: tt.prewarm})
			check := resp.Checks["prewarm"]
			assert.Equal(t, tt.wantStatus, check.Status)
			assert.Equal(t, tt.wantMsg, check.Message)
		})
	}
}

func TestHealthHandler_NoService(t *testing.T) {
	resp := serveHealth(t, &HealthHandler{})
	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, "digest service not wired", resp.Checks["upstream"].Message)
}

func TestLiveHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	(&LiveHandler{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/live", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alive", rec.Body.String())
	assert.Equal(t, "text/plain", rec.Header().Get("Content-Type"))
}
