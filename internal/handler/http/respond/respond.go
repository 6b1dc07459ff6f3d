// Package respond writes JSON responses for the digest API.
// Error bodies always have the shape {"error": "..."} and never carry upstream credentials.
package respond

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error string `json:"error"`
}

// JSON writes a JSON response with the given status code and data.
func JSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	if v != nil {
		if err := json.NewEncoder(w).Encode(v); err != nil {
			// Headers are already sent; all we can do is log.
			slog.Default().Error("failed to encode JSON response",
				slog.Int("status_code", code),
				slog.Any("error", err))
		}
	}
}

// Error writes err's message as a JSON error body, with credentials masked.
func Error(w http.ResponseWriter, code int, err error) {
	JSON(w, code, ErrorBody{Error: SanitizeError(err)})
}

// safeFragments mark client errors whose message can be shown as is.
var safeFragments = []string{
	"required",
	"invalid",
	"not found",
	"not allowed",
	"must be",
	"rate limit",
	"timeout",
}

// SafeError returns the message only for recognised client errors.
// Anything else, and every 5xx, is logged and replaced by "internal server error".
func SafeError(w http.ResponseWriter, code int, err error) {
	if err == nil {
		return
	}

	msg := err.Error()
	isSafe := false
	lowerMsg := strings.ToLower(msg)
	for _, safe := range safeFragments {
		if strings.Contains(lowerMsg, safe) {
			isSafe = true
			break
		}
	}
	if code >= 500 {
		isSafe = false
	}

	if isSafe {
		JSON(w, code, ErrorBody{Error: msg})
		return
	}
	slog.Default().Error("internal server error",
		slog.String("status", http.StatusText(code)),
		slog.Int("code", code),
		slog.Any("error", SanitizeError(err)))
	JSON(w, code, ErrorBody{Error: "internal server error"})
}

// AppError carries a user-facing message next to the internal cause.
type AppError struct {
	UserMsg string // shown to the caller
	Err     error  // logged only
	Code    int    // HTTP status
}

// Error returns the internal message when there is one.
func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.UserMsg
}

// Unwrap returns the internal cause.
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new AppError with the given parameters.
func NewAppError(code int, userMsg string, err error) *AppError {
	return &AppError{Code: code, UserMsg: userMsg, Err: err}
}

// Problem writes an AppError's user message with its own status code.
// Other errors fall back to SafeError with the supplied code.
func Problem(w http.ResponseWriter, code int, err error) {
	if err == nil {
		return
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		if appErr.Err != nil {
			slog.Default().Warn("application error",
				slog.String("status", http.StatusText(appErr.Code)),
				slog.Int("code", appErr.Code),
				slog.String("user_message", appErr.UserMsg),
				slog.Any("error", SanitizeError(appErr.Err)))
		}
		JSON(w, appErr.Code, ErrorBody{Error: SanitizeString(appErr.UserMsg)})
		return
	}

	SafeError(w, code, err)
}
