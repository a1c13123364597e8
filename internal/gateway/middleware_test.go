package gateway

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tempopilot/coach-gateway/internal/config"
	"github.com/tempopilot/coach-gateway/internal/logging"
)

func middlewareHandler() http.Handler {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(RequestID(r)))
	})
	return withMiddleware(inner, logging.New(io.Discard, "silent"), []string{"https://app.example.com"})
}

func TestRequestIDAssigned(t *testing.T) {
	h := middlewareHandler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	id := rec.Header().Get("X-Request-ID")
	require.NotEmpty(t, id)
	assert.Equal(t, id, rec.Body.String(), "handler sees the same ID the response carries")
}

func TestRequestIDPreserved(t *testing.T) {
	h := middlewareHandler()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-abc")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "req-abc", rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "req-abc", rec.Body.String())
}

func TestCORSAllowedOrigin(t *testing.T) {
	h := middlewareHandler()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSDeniedOrigin(t *testing.T) {
	h := middlewareHandler()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSPreflight(t *testing.T) {
	h := middlewareHandler()

	req := httptest.NewRequest(http.MethodOptions, "/v1/chat", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "GET, POST, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
}

func TestResolveBindAddr(t *testing.T) {
	tests := []struct {
		bind string
		host string
		want string
	}{
		{"loopback", "", "127.0.0.1:8787"},
		{"lan", "", "0.0.0.0:8787"},
		{"custom", "10.0.0.5", "10.0.0.5:8787"},
		{"custom", "", "0.0.0.0:8787"},
		{"", "", "127.0.0.1:8787"},
	}
	for _, tt := range tests {
		got := resolveBindAddr(config.GatewayConfig{Port: 8787, Bind: tt.bind, CustomBindHost: tt.host})
		assert.Equal(t, tt.want, got)
	}
}
