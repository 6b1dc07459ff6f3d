package responsewriter

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrap(t *testing.T) {
	rec := httptest.NewRecorder()
	wrapped := Wrap(rec)

	assert.NotNil(t, wrapped)
	assert.Equal(t, http.StatusOK, wrapped.StatusCode())
	assert.Equal(t, 0, wrapped.BytesWritten())
	assert.False(t, wrapped.Written())
}

func TestWrap_Idempotent(t *testing.T) {
	wrapped := Wrap(httptest.NewRecorder())
	assert.Same(t, wrapped, Wrap(wrapped))
}

func TestResponseWriter_WriteHeader(t *testing.T) {
	for _, code := range []int{http.StatusOK, http.StatusBadGateway, http.StatusInternalServerError} {
		t.Run(http.StatusText(code), func(t *testing.T) {
			rec := httptest.NewRecorder()
			wrapped := Wrap(rec)

			wrapped.WriteHeader(code)

			assert.Equal(t, code, wrapped.StatusCode())
			assert.True(t, wrapped.Written())
			assert.Equal(t, code, rec.Code)
		})
	}
}

func TestResponseWriter_WriteHeader_MultipleCallsIgnored(t *testing.T) {
	rec := httptest.NewRecorder()
	wrapped := Wrap(rec)

	wrapped.WriteHeader(http.StatusForbidden)
	wrapped.WriteHeader(http.StatusOK)

	assert.Equal(t, http.StatusForbidden, wrapped.StatusCode())
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestResponseWriter_Write(t *testing.T) {
	rec := httptest.NewRecorder()
	wrapped := Wrap(rec)

	n, err := wrapped.Write([]byte(`{"text":"宜"}`))
	require.NoError(t, err)
	_, err = wrapped.Write([]byte("\n"))
	require.NoError(t, err)

	assert.Equal(t, len(`{"text":"宜"}`), n)
	assert.Equal(t, n+1, wrapped.BytesWritten())
	assert.Equal(t, http.StatusOK, wrapped.StatusCode())
	assert.True(t, wrapped.Written())
}

func TestResponseWriter_Flush(t *testing.T) {
	rec := httptest.NewRecorder()
	wrapped := Wrap(rec)

	wrapped.Flush()

	assert.True(t, rec.Flushed)
	assert.True(t, wrapped.Written())
}

func TestResponseWriter_Unwrap(t *testing.T) {
	rec := httptest.NewRecorder()
	assert.Equal(t, rec, Wrap(rec).Unwrap())
}
