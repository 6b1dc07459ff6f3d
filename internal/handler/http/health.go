// Package http provides the HTTP middleware and operational endpoints of the
// digest server: request logging, panic recovery, rate limiting, timeouts,
// Prometheus metrics, and the health and liveness probes.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"daily-digest/internal/handler/http/respond"
	"daily-digest/internal/usecase/digest"

	"github.com/sony/gobreaker"
)

// HealthResponse represents the JSON response for the health endpoint.
type HealthResponse struct {
	Status    string                 `json:"status"`    // "healthy" or "degraded"
	Timestamp string                 `json:"timestamp"` // RFC 3339, UTC
	Checks    map[string]CheckStatus `json:"checks"`
	Version   string                 `json:"version"`
}

// CheckStatus represents the status of a single health check.
type CheckStatus struct {
	Status  string         `json:"status"`
	Message string         `json:"message,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// StatusReporter is implemented by digest.Service.
type StatusReporter interface {
	Status() digest.Status
}

// Breaker is the read-only view of a circuit breaker.
type Breaker interface {
	Name() string
	State() gobreaker.State
}

// PrewarmReporter reports the last scheduled cache prewarm.
type PrewarmReporter interface {
	LastRun() (at time.Time, err error)
}

// HealthHandler reports whether the server can reach its upstreams.
//
// The digest degrades gracefully instead of failing, so the handler always
// answers 200. Status is "degraded" when any check is not healthy.
type HealthHandler struct {
	Version  string
	Service  StatusReporter
	Breakers []Breaker
	Prewarm  PrewarmReporter
	Now      func() time.Time
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	now := time.Now
	if h.Now != nil {
		now = h.Now
	}

	checks := map[string]CheckStatus{
		"upstream":         h.checkUpstream(),
		"circuit_breakers": h.checkBreakers(),
	}
	if h.Prewarm != nil {
		checks["prewarm"] = h.checkPrewarm()
	}

	status := "healthy"
	for name, c := range checks {
		if c.Status != "healthy" {
			status = "degraded"
			slog.Debug("health check not healthy", slog.String("check", name), slog.String("message", c.Message))
		}
	}

	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	respond.JSON(w, http.StatusOK, HealthResponse{
		Status:    status,
		Timestamp: now().UTC().Format(time.RFC3339),
		Checks:    checks,
		Version:   h.Version,
	})
}

func (h *HealthHandler) checkUpstream() CheckStatus {
	if h.Service == nil {
		return CheckStatus{Status: "degraded", Message: "digest service not wired"}
	}
	st := h.Service.Status()
	details := map[string]any{"day": st.Day.String()}
	if !st.Configured {
		return CheckStatus{Status: "degraded", Message: "upstream credential not configured", Details: details}
	}
	return CheckStatus{Status: "healthy", Details: details}
}

// checkBreakers is degraded while any breaker is open. Half-open is a recovery
// probe and still counts as healthy.
func (h *HealthHandler) checkBreakers() CheckStatus {
	details := make(map[string]any, len(h.Breakers))
	open := 0
	for _, b := range h.Breakers {
		state := b.State()
		details[b.Name()] = state.String()
		if state == gobreaker.StateOpen {
			open++
		}
	}
	if open > 0 {
		return CheckStatus{Status: "degraded", Message: "circuit breaker open", Details: details}
	}
	return CheckStatus{Status: "healthy", Details: details}
}

func (h *HealthHandler) checkPrewarm() CheckStatus {
	at, err := h.Prewarm.LastRun()
	if at.IsZero() {
		return CheckStatus{Status: "healthy", Message: "not run yet"}
	}
	details := map[string]any{"last_run": at.UTC().Format(time.RFC3339)}
	if err != nil {
		return CheckStatus{Status: "degraded", Message: respond.SanitizeString(err.Error()), Details: details}
	}
	return CheckStatus{Status: "healthy", Details: details}
}

// LiveHandler handles liveness probe requests.
type LiveHandler struct{}

// ServeHTTP always returns 200 OK while the process can respond.
func (h *LiveHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("alive")); err != nil {
		slog.Warn("alive: failed to write response", slog.Any("error", err))
	}
}
