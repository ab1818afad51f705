package api

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitConfig configures the IP-based HTTP rate limiter.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
	CleanupInterval   time.Duration
}

// DefaultRateLimitConfig returns production-safe defaults for HTTP routes
// (lobby listing, health, metrics, and the /ws upgrade request itself).
var DefaultRateLimitConfig = RateLimitConfig{
	RequestsPerSecond: 10,
	Burst:             20,
	CleanupInterval:   5 * time.Minute,
}

type ipLimiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPRateLimiter provides IP-based rate limiting for HTTP requests.
type IPRateLimiter struct {
	limiters sync.Map // map[string]*ipLimiterEntry
	config   RateLimitConfig
	stopChan chan struct{}
	stopOnce sync.Once

	rejectedCount uint64
	allowedCount  uint64
}

// NewIPRateLimiter creates a new IP-based rate limiter.
func NewIPRateLimiter(cfg RateLimitConfig) *IPRateLimiter {
	rl := &IPRateLimiter{config: cfg, stopChan: make(chan struct{})}
	go rl.cleanupLoop()
	return rl
}

// Stop stops the rate limiter's cleanup goroutine.
func (rl *IPRateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopChan) })
}

func (rl *IPRateLimiter) getLimiter(ip string) *rate.Limiter {
	now := time.Now()
	if entry, ok := rl.limiters.Load(ip); ok {
		e := entry.(*ipLimiterEntry)
		e.lastSeen = now
		return e.limiter
	}
	entry := &ipLimiterEntry{
		limiter:  rate.NewLimiter(rate.Limit(rl.config.RequestsPerSecond), rl.config.Burst),
		lastSeen: now,
	}
	actual, _ := rl.limiters.LoadOrStore(ip, entry)
	return actual.(*ipLimiterEntry).limiter
}

func (rl *IPRateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-rl.stopChan:
			return
		case <-ticker.C:
			rl.cleanup()
		}
	}
}

func (rl *IPRateLimiter) cleanup() {
	cutoff := time.Now().Add(-rl.config.CleanupInterval * 2)
	rl.limiters.Range(func(key, value interface{}) bool {
		entry := value.(*ipLimiterEntry)
		if entry.lastSeen.Before(cutoff) {
			rl.limiters.Delete(key)
		}
		return true
	})
}

// Allow checks whether a request from ip should be allowed.
func (rl *IPRateLimiter) Allow(ip string) bool {
	if rl.getLimiter(ip).Allow() {
		atomic.AddUint64(&rl.allowedCount, 1)
		return true
	}
	atomic.AddUint64(&rl.rejectedCount, 1)
	return false
}

// Middleware returns an HTTP middleware enforcing the per-IP limit.
func (rl *IPRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := GetClientIP(r)
		if !rl.Allow(ip) {
			RecordConnectionRejected("rate_limit")
			w.Header().Set("Retry-After", "1")
			http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetClientIP extracts the client IP from an HTTP request, honoring
// X-Forwarded-For/X-Real-IP for proxied deployments.
func GetClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx >= 0 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// WebSocketRateLimiter limits concurrent WebSocket connections per IP.
type WebSocketRateLimiter struct {
	connections sync.Map // map[string]*int32
	maxPerIP    int

	rejectedCount uint64
}

// NewWebSocketRateLimiter creates a WebSocket connection limiter.
func NewWebSocketRateLimiter(maxPerIP int) *WebSocketRateLimiter {
	return &WebSocketRateLimiter{maxPerIP: maxPerIP}
}

// Allow admits a new WebSocket connection from ip, if under the per-IP cap.
func (wrl *WebSocketRateLimiter) Allow(ip string) bool {
	actual, _ := wrl.connections.LoadOrStore(ip, new(int32))
	counter := actual.(*int32)
	for {
		current := atomic.LoadInt32(counter)
		if int(current) >= wrl.maxPerIP {
			atomic.AddUint64(&wrl.rejectedCount, 1)
			return false
		}
		if atomic.CompareAndSwapInt32(counter, current, current+1) {
			return true
		}
	}
}

// Release decrements the connection count for ip.
func (wrl *WebSocketRateLimiter) Release(ip string) {
	if val, ok := wrl.connections.Load(ip); ok {
		atomic.AddInt32(val.(*int32), -1)
	}
}

// SocketMessageLimiter enforces spec.md §4.8/§5's 180 msg/s per-socket
// budget on inbound frames after the WebSocket upgrade. One instance is
// created per connection.
type SocketMessageLimiter struct {
	limiter *rate.Limiter
}

// NewSocketMessageLimiter returns a limiter allowing ratePerSecond messages
// per second, with a one-second burst.
func NewSocketMessageLimiter(ratePerSecond float64) *SocketMessageLimiter {
	return &SocketMessageLimiter{limiter: rate.NewLimiter(rate.Limit(ratePerSecond), int(ratePerSecond))}
}

// Allow reports whether the next inbound message should be processed.
func (s *SocketMessageLimiter) Allow() bool {
	return s.limiter.Allow()
}

// AllowedOrigins lists origins permitted to open a WebSocket connection.
var AllowedOrigins = []string{
	"http://localhost",
	"http://localhost:3000",
	"http://localhost:8080",
}

// IsAllowedOrigin reports whether origin may open a WebSocket connection.
// Additional origins can be appended to AllowedOrigins at startup from
// config.ServerConfig.AllowedOrigins.
func IsAllowedOrigin(origin string) bool {
	if origin == "" {
		return false
	}
	if strings.HasPrefix(origin, "http://localhost") {
		return true
	}
	for _, allowed := range AllowedOrigins {
		if origin == allowed {
			return true
		}
	}
	return false
}
