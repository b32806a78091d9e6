package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// maxTrackedClients bounds the limiter map; idle entries are evicted once the
// map grows past it.
const maxTrackedClients = 1024

// RateLimit returns middleware that applies a per-client token bucket
// allowing perMin requests per minute. Client identity is the IP taken from
// standard proxy headers, falling back to the direct remote address. A
// non-positive perMin disables limiting.
func RateLimit(perMin int) func(http.Handler) http.Handler {
	if perMin <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	burst := perMin / 6
	if burst < 1 {
		burst = 1
	}
	clients := &clientLimiters{
		limit: rate.Every(time.Minute / time.Duration(perMin)),
		burst: burst,
		seen:  make(map[string]*clientEntry),
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !clients.allow(extractClientIP(r)) {
				w.Header().Set("Content-Type", "application/json; charset=utf-8")
				w.Header().Set("Retry-After", "1")
				w.WriteHeader(http.StatusTooManyRequests)
				w.Write([]byte(`{"error":"rate limit exceeded"}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientEntry pairs a limiter with its last activity time for eviction.
type clientEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// clientLimiters tracks one token bucket per client IP.
type clientLimiters struct {
	mu    sync.Mutex
	limit rate.Limit
	burst int
	seen  map[string]*clientEntry
}

// allow reports whether the client may proceed, creating its bucket on first
// sight. Idle entries are evicted opportunistically once the map grows past
// maxTrackedClients.
func (c *clientLimiters) allow(ip string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.seen[ip]
	if !ok {
		e = &clientEntry{limiter: rate.NewLimiter(c.limit, c.burst)}
		c.seen[ip] = e
	}
	e.lastSeen = time.Now()

	if len(c.seen) > maxTrackedClients {
		cutoff := time.Now().Add(-10 * time.Minute)
		for k, v := range c.seen {
			if v.lastSeen.Before(cutoff) {
				delete(c.seen, k)
			}
		}
	}

	return e.limiter.Allow()
}

// extractClientIP attempts to determine the real client IP from standard
// proxy headers, falling back to the direct remote address.
func extractClientIP(r *http.Request) string {
	// Check X-Forwarded-For first (may contain multiple IPs).
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.SplitN(xff, ",", 2)
		ip := strings.TrimSpace(parts[0])
		if ip != "" {
			return ip
		}
	}

	// Check X-Real-IP.
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	// Fall back to RemoteAddr.
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
