package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func doGet(h http.Handler, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	req.Header.Set("X-Forwarded-For", ip)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRateLimit_DisabledWhenNonPositive(t *testing.T) {
	h := RateLimit(0)(okHandler())

	for i := 0; i < 50; i++ {
		assert.Equal(t, http.StatusOK, doGet(h, "10.0.0.1").Code)
	}
}

func TestRateLimit_BurstExhaustion(t *testing.T) {
	// 6/min yields a burst of one token refilled every 10s, so the second
	// immediate request must be throttled.
	h := RateLimit(6)(okHandler())

	first := doGet(h, "10.0.0.1")
	require.Equal(t, http.StatusOK, first.Code)

	second := doGet(h, "10.0.0.1")
	require.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "1", second.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"error":"rate limit exceeded"}`, second.Body.String())
}

func TestRateLimit_PerClientBuckets(t *testing.T) {
	h := RateLimit(6)(okHandler())

	require.Equal(t, http.StatusOK, doGet(h, "10.0.0.1").Code)
	require.Equal(t, http.StatusTooManyRequests, doGet(h, "10.0.0.1").Code)

	// A different client IP has its own untouched bucket.
	assert.Equal(t, http.StatusOK, doGet(h, "10.0.0.2").Code)
}

func TestExtractClientIP(t *testing.T) {
	cases := []struct {
		name       string
		xff        string
		realIP     string
		remoteAddr string
		want       string
	}{
		{"xff single", "1.2.3.4", "", "9.9.9.9:1234", "1.2.3.4"},
		{"xff chain takes first", "1.2.3.4, 5.6.7.8", "", "9.9.9.9:1234", "1.2.3.4"},
		{"x-real-ip", "", "5.6.7.8", "9.9.9.9:1234", "5.6.7.8"},
		{"remote addr", "", "", "9.9.9.9:1234", "9.9.9.9"},
		{"remote addr without port", "", "", "9.9.9.9", "9.9.9.9"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tc.remoteAddr
			if tc.xff != "" {
				req.Header.Set("X-Forwarded-For", tc.xff)
			}
			if tc.realIP != "" {
				req.Header.Set("X-Real-IP", tc.realIP)
			}
			assert.Equal(t, tc.want, extractClientIP(req))
		})
	}
}
