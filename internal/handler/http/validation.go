package http

import (
	"fmt"
	"net/http"

	"daily-digest/internal/handler/http/respond"
)

// Input limits. Every digest route is a parameterless GET.
const (
	maxPathLength  = 2048
	maxQueryLength = 1024
	maxBodyBytes   = 1 << 10
)

// InputValidation returns middleware that rejects oversized or unsupported requests.
// It enforces limits on:
//   - method (GET, HEAD, OPTIONS)
//   - URI path length (2KB)
//   - raw query length (1KB)
//   - request body size (1KB)
func InputValidation() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
			default:
				w.Header().Set("Allow", "GET, HEAD, OPTIONS")
				respond.SafeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
				return
			}

			if len(r.URL.Path) > maxPathLength {
				respond.JSON(w, http.StatusRequestURITooLong, respond.ErrorBody{Error: "URI too long"})
				return
			}

			if len(r.URL.RawQuery) > maxQueryLength {
				respond.SafeError(w, http.StatusBadRequest, fmt.Errorf("invalid query: too long"))
				return
			}

			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
			}

			next.ServeHTTP(w, r)
		})
	}
}
