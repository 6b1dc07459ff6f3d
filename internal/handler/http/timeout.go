package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"daily-digest/internal/handler/http/respond"
)

// Timeout returns middleware that answers 504 when the handler runs longer than duration.
// The handler's context is canceled. A horoscope sweep already in flight keeps
// running and still fills the cache, so a retry shortly after usually hits it.
//
// A zero or negative duration disables the middleware.
// Panics in the handler are re-raised on the serving goroutine so Recover sees them.
func Timeout(duration time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if duration <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), duration)
			defer cancel()
			r = r.WithContext(ctx)

			done := make(chan struct{})
			panicked := make(chan any, 1)
			var mu sync.Mutex
			timedOut := false

			tw := &timeoutResponseWriter{
				ResponseWriter: w,
				mu:             &mu,
				timedOut:       &timedOut,
			}

			go func() {
				defer func() {
					if p := recover(); p != nil {
						panicked <- p
					}
				}()
				next.ServeHTTP(tw, r)
				close(done)
			}()

			select {
			case p := <-panicked:
				panic(p)
			case <-done:
				return
			case <-ctx.Done():
				mu.Lock()
				defer mu.Unlock()
				timedOut = true
				if !tw.written {
					respond.JSON(w, http.StatusGatewayTimeout, respond.ErrorBody{Error: "request timeout"})
				}
			}
		})
	}
}

// timeoutResponseWriter drops writes once the timeout response has been sent.
type timeoutResponseWriter struct {
	http.ResponseWriter
	mu       *sync.Mutex
	timedOut *bool
	written  bool
}

// WriteHeader writes the status code if timeout hasn't occurred
func (w *timeoutResponseWriter) WriteHeader(statusCode int) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !*w.timedOut && !w.written {
		w.written = true
		w.ResponseWriter.WriteHeader(statusCode)
	}
}

// Write writes data if timeout hasn't occurred
func (w *timeoutResponseWriter) Write(data []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if *w.timedOut {
		return 0, http.ErrHandlerTimeout
	}
	if !w.written {
		w.written = true
		w.ResponseWriter.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(data)
}
