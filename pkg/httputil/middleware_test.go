package httputil

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumapix/photark/pkg/observability"
)

func TestLoggingMiddleware_InstallsRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := observability.NewLogger(observability.InfoLevel, &buf)

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		observability.FromContext(r.Context()).Info("inside handler")
		w.WriteHeader(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/photos/search", nil)
	req.Header.Set("X-Request-ID", "req-abc-123")
	rec := httptest.NewRecorder()

	RequestIDMiddleware(LoggingMiddleware(logger)(handler)).ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)

	out := buf.String()
	// the handler's line must carry the request ID picked up from context
	assert.Contains(t, out, "inside handler")
	assert.Contains(t, out, "req-abc-123")
	assert.Contains(t, out, "http request")
	assert.Contains(t, out, "/photos/search")
}

func TestRecoveryMiddleware_RecoversPanicWith500(t *testing.T) {
	var buf bytes.Buffer
	logger := observability.NewLogger(observability.InfoLevel, &buf)

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})

	req := httptest.NewRequest(http.MethodGet, "/photos/7", nil)
	rec := httptest.NewRecorder()

	LoggingMiddleware(logger)(RecoveryMiddleware(handler)).ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, buf.String(), "PANIC recovered")
	assert.Contains(t, buf.String(), "boom")
}

func TestRecoveryMiddleware_PassesThroughNormalRequests(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/photos/7", nil)
	rec := httptest.NewRecorder()

	RecoveryMiddleware(handler).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMaxBytesMiddleware_RejectsOversizedBody(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Name string `json:"name"`
		}
		if !ParseJSONOrError(w, r, &payload) {
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	body := bytes.NewBufferString(`{"name":"` + string(bytes.Repeat([]byte("x"), 64)) + `"}`)
	req := httptest.NewRequest(http.MethodPost, "/photos/search", body)
	rec := httptest.NewRecorder()

	MaxBytesMiddleware(16)(handler).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
