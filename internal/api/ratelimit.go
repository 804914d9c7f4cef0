package api

import (
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"cell-arena/internal/metrics"

	"golang.org/x/time/rate"
)

// RateLimitConfig configures the per-IP HTTP limiter.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
	CleanupInterval   time.Duration // Idle limiters older than twice this are evicted
}

// DefaultRateLimitConfig returns production-safe defaults
var DefaultRateLimitConfig = RateLimitConfig{
	RequestsPerSecond: 10,
	Burst:             20,
	CleanupInterval:   5 * time.Minute,
}

// limiterSet hands out one token bucket per key and forgets keys that go
// quiet, so abandoned IPs do not accumulate.
type limiterSet struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	limit   rate.Limit
	burst   int
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newLimiterSet(perSecond float64, burst int) *limiterSet {
	return &limiterSet{
		buckets: make(map[string]*bucket),
		limit:   rate.Limit(perSecond),
		burst:   burst,
	}
}

func (s *limiterSet) allow(key string, now time.Time) bool {
	s.mu.Lock()
	b, ok := s.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.buckets[key] = b
	}
	b.lastSeen = now
	s.mu.Unlock()

	return b.limiter.AllowN(now, 1)
}

func (s *limiterSet) evictIdle(cutoff time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, b := range s.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(s.buckets, key)
		}
	}
}

// IPRateLimiter throttles HTTP requests per client IP.
type IPRateLimiter struct {
	set      *limiterSet
	idle     time.Duration
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewIPRateLimiter creates the limiter and starts its eviction loop.
// Call Stop to end the loop.
func NewIPRateLimiter(cfg RateLimitConfig) *IPRateLimiter {
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = DefaultRateLimitConfig.CleanupInterval
	}
	rl := &IPRateLimiter{
		set:      newLimiterSet(cfg.RequestsPerSecond, cfg.Burst),
		idle:     cfg.CleanupInterval,
		stopChan: make(chan struct{}),
	}
	go rl.evictLoop()
	return rl
}

// Stop ends the eviction loop. Safe to call more than once.
func (rl *IPRateLimiter) Stop() {
	rl.stopOnce.Do(func() {
		close(rl.stopChan)
	})
}

func (rl *IPRateLimiter) evictLoop() {
	ticker := time.NewTicker(rl.idle)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stopChan:
			return
		case now := <-ticker.C:
			rl.set.evictIdle(now.Add(-2 * rl.idle))
		}
	}
}

// Allow reports whether one more request from ip fits its bucket.
func (rl *IPRateLimiter) Allow(ip string) bool {
	return rl.set.allow(ip, time.Now())
}

// Middleware rejects over-limit requests with 429 and a Retry-After hint.
func (rl *IPRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(GetClientIP(r)) {
			metrics.RecordConnectionRejected("rate_limit")
			w.Header().Set("Retry-After", "1")
			http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetClientIP returns the caller's address, preferring the first hop of
// X-Forwarded-For, then X-Real-IP, then RemoteAddr. Forwarded headers are
// only trusted when they parse as an IP.
// CAUTION: forwarded headers can be spoofed unless a trusted proxy sets them.
func GetClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); net.ParseIP(ip) != nil {
			return ip
		}
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); net.ParseIP(xri) != nil {
		return xri
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// ConnLimiter caps concurrent WebSocket connections per IP.
type ConnLimiter struct {
	mu     sync.Mutex
	open   map[string]int
	maxPer int
}

// NewConnLimiter allows up to maxPerIP concurrent connections per IP.
func NewConnLimiter(maxPerIP int) *ConnLimiter {
	return &ConnLimiter{open: make(map[string]int), maxPer: maxPerIP}
}

// Acquire reserves a slot for ip, or reports false when it is full.
func (cl *ConnLimiter) Acquire(ip string) bool {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	if cl.open[ip] >= cl.maxPer {
		return false
	}
	cl.open[ip]++
	return true
}

// Release frees a slot taken by Acquire.
func (cl *ConnLimiter) Release(ip string) {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	switch n := cl.open[ip]; {
	case n > 1:
		cl.open[ip] = n - 1
	case n == 1:
		delete(cl.open, ip)
	}
}

// Count returns the open connections held by ip.
func (cl *ConnLimiter) Count(ip string) int {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return cl.open[ip]
}

// AllowedOrigins is the origin list used when none is configured.
var AllowedOrigins = []string{
	"http://localhost:3000",
	"http://127.0.0.1:3000",
}

// IsAllowedOrigin checks if an origin may open a WebSocket. Non-browser
// clients (bots, tests) send no Origin header and are allowed, as is any
// loopback host. A nil list falls back to AllowedOrigins; "*" allows everything.
func IsAllowedOrigin(origin string, allowed []string) bool {
	if origin == "" {
		return true
	}

	if u, err := url.Parse(origin); err == nil {
		switch u.Hostname() {
		case "localhost", "127.0.0.1", "::1":
			return true
		}
	}

	if allowed == nil {
		allowed = AllowedOrigins
	}
	for _, o := range allowed {
		if o == "*" || strings.EqualFold(origin, o) {
			return true
		}
	}
	return false
}
