package respond

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestJSON(t *testing.T) {
	tests := []struct {
		name         string
		code         int
		data         any
		expectedCode int
		expectedBody string
	}{
		{
			name:         "success with map",
			code:         http.StatusOK,
			data:         map[string]string{"text": "宜：祭祀"},
			expectedCode: http.StatusOK,
			expectedBody: `{"text":"宜：祭祀"}`,
		},
		{
			name:         "success with struct",
			code:         http.StatusOK,
			data:         struct{ ID int }{ID: 123},
			expectedCode: http.StatusOK,
			expectedBody: `{"ID":123}`,
		},
		{
			name:         "success with nil",
			code:         http.StatusNoContent,
			data:         nil,
			expectedCode: http.StatusNoContent,
			expectedBody: "",
		},
		{
			name:         "error body",
			code:         http.StatusBadGateway,
			data:         ErrorBody{Error: "bad gateway"},
			expectedCode: http.StatusBadGateway,
			expectedBody: `{"error":"bad gateway"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			JSON(w, tt.code, tt.data)

			if w.Code != tt.expectedCode {
				t.Errorf("Code = %v, want %v", w.Code, tt.expectedCode)
			}
			if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
				t.Errorf("Content-Type = %v, want application/json", ct)
			}
			body := strings.TrimSpace(w.Body.String())
			if body != tt.expectedBody {
				t.Errorf("Body = %v, want %v", body, tt.expectedBody)
			}
		})
	}
}

func TestJSON_EncodingError(t *testing.T) {
	w := httptest.NewRecorder()
	JSON(w, http.StatusOK, make(chan int))

	if w.Code != http.StatusOK {
		t.Errorf("Code = %v, want %v", w.Code, http.StatusOK)
	}
}

func TestError_MasksKey(t *testing.T) {
	w := httptest.NewRecorder()
	Error(w, http.StatusBadGateway, errors.New(`Get "https://apis.tianapi.com/lunar/index?date=2024-03-05&key=abc123": EOF`))

	var body ErrorBody
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if strings.Contains(body.Error, "abc123") {
		t.Errorf("error body leaked key: %q", body.Error)
	}
	if !strings.Contains(body.Error, "key=****") {
		t.Errorf("error body = %q, want masked key", body.Error)
	}
}

func TestSafeError(t *testing.T) {
	tests := []struct {
		name     string
		code     int
		err      error
		wantBody string
	}{
		{
			name:     "client error passes through",
			code:     http.StatusTooManyRequests,
			err:      errors.New("rate limit exceeded"),
			wantBody: "rate limit exceeded",
		},
		{
			name:     "validation error passes through",
			code:     http.StatusBadRequest,
			err:      fmt.Errorf("invalid sign %q", "dragon"),
			wantBody: `invalid sign "dragon"`,
		},
		{
			name:     "unknown client error is hidden",
			code:     http.StatusBadRequest,
			err:      errors.New("something odd"),
			wantBody: "internal server error",
		},
		{
			name:     "5xx is always hidden",
			code:     http.StatusInternalServerError,
			err:      errors.New("invalid state"),
			wantBody: "internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			SafeError(w, tt.code, tt.err)

			if w.Code != tt.code {
				t.Errorf("Code = %v, want %v", w.Code, tt.code)
			}
			var body ErrorBody
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if body.Error != tt.wantBody {
				t.Errorf("error = %q, want %q", body.Error, tt.wantBody)
			}
		})
	}
}

func TestSafeError_Nil(t *testing.T) {
	w := httptest.NewRecorder()
	SafeError(w, http.StatusBadRequest, nil)

	if w.Body.Len() != 0 {
		t.Errorf("expected no body, got %q", w.Body.String())
	}
}

func TestProblem(t *testing.T) {
	t.Run("app error uses its own code and message", func(t *testing.T) {
		w := httptest.NewRecorder()
		err := fmt.Errorf("wrapped: %w", NewAppError(http.StatusForbidden, "农历运势获取失败: 无权限", errors.New("upstream 403")))
		Problem(w, http.StatusInternalServerError, err)

		if w.Code != http.StatusForbidden {
			t.Errorf("Code = %v, want %v", w.Code, http.StatusForbidden)
		}
		var body ErrorBody
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if body.Error != "农历运势获取失败: 无权限" {
			t.Errorf("error = %q", body.Error)
		}
	})

	t.Run("plain error falls back to SafeError", func(t *testing.T) {
		w := httptest.NewRecorder()
		Problem(w, http.StatusInternalServerError, errors.New("boom"))

		if w.Code != http.StatusInternalServerError {
			t.Errorf("Code = %v, want %v", w.Code, http.StatusInternalServerError)
		}
		if !strings.Contains(w.Body.String(), "internal server error") {
			t.Errorf("body = %q", w.Body.String())
		}
	})
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("cause")
	appErr := NewAppError(http.StatusBadGateway, "user", cause)

	if !errors.Is(appErr, cause) {
		t.Error("errors.Is should find the cause")
	}
	if appErr.Error() != "cause" {
		t.Errorf("Error() = %q, want %q", appErr.Error(), "cause")
	}
	if NewAppError(http.StatusBadGateway, "user", nil).Error() != "user" {
		t.Error("Error() without cause should return the user message")
	}
}
