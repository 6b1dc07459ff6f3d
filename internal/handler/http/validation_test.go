package http

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestInputValidation_Success(t *testing.T) {
	reached := false
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/digest/horoscope?lang=zh", nil)
	rec := httptest.NewRecorder()
	InputValidation()(handler).ServeHTTP(rec, req)

	if !reached {
		t.Error("expected handler to be reached with valid inputs")
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
}

func TestInputValidation_Methods(t *testing.T) {
	tests := []struct {
		method string
		want   int
	}{
		{http.MethodGet, http.StatusOK},
		{http.MethodHead, http.StatusOK},
		{http.MethodOptions, http.StatusOK},
		{http.MethodPost, http.StatusMethodNotAllowed},
		{http.MethodDelete, http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			})
			rec := httptest.NewRecorder()
			InputValidation()(handler).ServeHTTP(rec, httptest.NewRequest(tt.method, "/digest/lunar", nil))

			if rec.Code != tt.want {
				t.Errorf("expected status %d, got %d", tt.want, rec.Code)
			}
			if tt.want == http.StatusMethodNotAllowed {
				if got := rec.Header().Get("Allow"); got != "GET, HEAD, OPTIONS" {
					t.Errorf("unexpected Allow header %q", got)
				}
				if !strings.Contains(rec.Body.String(), "method not allowed") {
					t.Errorf("unexpected body %q", rec.Body.String())
				}
			}
		})
	}
}

func TestInputValidation_PathTooLong(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be reached")
	})

	req := httptest.NewRequest(http.MethodGet, "/"+strings.Repeat("a", 2048), nil)
	rec := httptest.NewRecorder()
	InputValidation()(handler).ServeHTTP(rec, req)

	if rec.Code != http.StatusRequestURITooLong {
		t.Errorf("expected status 414, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "URI too long") {
		t.Errorf("expected error message about URI length, got %q", rec.Body.String())
	}
}

func TestInputValidation_PathExactLimit(t *testing.T) {
	reached := false
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
	})

	req := httptest.NewRequest(http.MethodGet, "/"+strings.Repeat("a", 2047), nil)
	InputValidation()(handler).ServeHTTP(httptest.NewRecorder(), req)

	if !reached {
		t.Error("a path of exactly 2048 bytes should be accepted")
	}
}

func TestInputValidation_QueryTooLong(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be reached")
	})

	req := httptest.NewRequest(http.MethodGet, "/digest/quote?q="+strings.Repeat("x", 1100), nil)
	rec := httptest.NewRecorder()
	InputValidation()(handler).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "invalid query") {
		t.Errorf("unexpected body %q", rec.Body.String())
	}
}

func TestInputValidation_BodySizeLimit(t *testing.T) {
	var readErr error
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, readErr = io.ReadAll(r.Body)
	})

	req := httptest.NewRequest(http.MethodOptions, "/digest/lunar", strings.NewReader(strings.Repeat("b", 2048)))
	InputValidation()(handler).ServeHTTP(httptest.NewRecorder(), req)

	if readErr == nil {
		t.Error("expected body read to fail past the limit")
	}
}
