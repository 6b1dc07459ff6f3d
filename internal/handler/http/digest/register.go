package digest

import "net/http"

// Register registers the digest endpoints with the given mux.
func Register(mux *http.ServeMux, svc Service) {
	mux.Handle("GET /digest/lunar", LunarHandler{svc})
	mux.Handle("GET /digest/horoscope", HoroscopeHandler{svc})
	mux.Handle("GET /digest/quote", QuoteHandler{svc})
	mux.Handle("GET /digest/image", ImageHandler{svc})
	mux.Handle("GET /digest/status", StatusHandler{svc})
}
