package http

import (
	"net/http"
	"strconv"
	"time"

	"daily-digest/internal/handler/http/responsewriter"
	"daily-digest/internal/observability/metrics"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// knownRoutes are the only path label values; everything else is "other"
// so that scanners cannot blow up label cardinality.
var knownRoutes = map[string]struct{}{
	"/digest/lunar":     {},
	"/digest/horoscope": {},
	"/digest/quote":     {},
	"/digest/image":     {},
	"/digest/status":    {},
	"/health":           {},
	"/live":             {},
	"/metrics":          {},
}

// routeLabel maps a request path to a bounded metrics label.
func routeLabel(path string) string {
	if len(path) > 1 && path[len(path)-1] == '/' {
		path = path[:len(path)-1]
	}
	if _, ok := knownRoutes[path]; ok {
		return path
	}
	return "other"
}

// MetricsMiddleware records request count, duration, response size and in-flight requests.
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		metrics.HTTPRequestsInFlight.Inc()
		defer metrics.HTTPRequestsInFlight.Dec()

		rw := responsewriter.Wrap(w)
		start := time.Now()
		next.ServeHTTP(rw, r)

		metrics.RecordHTTPRequest(
			r.Method,
			routeLabel(r.URL.Path),
			strconv.Itoa(rw.StatusCode()),
			time.Since(start),
			rw.BytesWritten(),
		)
	})
}

// MetricsHandler returns an HTTP handler for the Prometheus metrics endpoint.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
