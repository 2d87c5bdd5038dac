package http

import (
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	applog "assetinsight/internal/log"
)

const (
	limiterCleanupInterval = 5 * time.Minute
	limiterTTL             = 10 * time.Minute
)

// rateLimiter keeps one token bucket per client IP.
type rateLimiter struct {
	mu           sync.Mutex
	clients      map[string]*clientInfo
	perSecond    rate.Limit
	perMinute    int
	burst        int
	now          func() time.Time
	stopCleanup  chan struct{}
	shutdownOnce sync.Once
}

type clientInfo struct {
	limiter     *rate.Limiter
	lastRequest time.Time
}

func newRateLimiter(perMinute, burst int) *rateLimiter {
	if perMinute < 1 {
		perMinute = 1
	}
	if burst < 1 {
		burst = 1
	}
	return &rateLimiter{
		clients:     make(map[string]*clientInfo),
		perSecond:   rate.Limit(float64(perMinute) / 60.0),
		perMinute:   perMinute,
		burst:       burst,
		now:         time.Now,
		stopCleanup: make(chan struct{}),
	}
}

// startCleanup runs periodic cleanup to remove stale client entries.
func (rl *rateLimiter) startCleanup() {
	ticker := time.NewTicker(limiterCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanupStaleEntries()
		case <-rl.stopCleanup:
			return
		}
	}
}

// cleanupStaleEntries removes clients idle for longer than limiterTTL.
func (rl *rateLimiter) cleanupStaleEntries() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-limiterTTL)
	removed := 0
	for ip, client := range rl.clients {
		if client.lastRequest.Before(cutoff) {
			delete(rl.clients, ip)
			removed++
		}
	}
	return removed
}

// stop gracefully shuts down the rate limiter cleanup goroutine.
func (rl *rateLimiter) stop() {
	rl.shutdownOnce.Do(func() {
		close(rl.stopCleanup)
	})
}

// allow reports whether clientIP still has a token, and the tokens left.
func (rl *rateLimiter) allow(clientIP string, metrics *securityMetrics) (bool, int) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	client, exists := rl.clients[clientIP]
	if !exists {
		client = &clientInfo{limiter: rate.NewLimiter(rl.perSecond, rl.burst)}
		rl.clients[clientIP] = client
	}
	client.lastRequest = now

	if !client.limiter.AllowN(now, 1) {
		if metrics != nil {
			atomic.AddInt64(&metrics.rateLimitHits, 1)
		}
		return false, 0
	}
	return true, max(int(client.limiter.TokensAt(now)), 0)
}

// retryAfter is the wait, in whole seconds, until one token is back.
func (rl *rateLimiter) retryAfter() int {
	return max((60+rl.perMinute-1)/rl.perMinute, 1)
}

// rateLimitMiddleware rejects clients over their budget with 429 and a Retry-After header.
func (s *Server) rateLimitMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			clientIP := extractClientIP(c.Request())
			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(s.limiter.perMinute))

			ok, remaining := s.limiter.allow(clientIP, s.metrics)
			if !ok {
				retry := s.limiter.retryAfter()
				h.Set("X-RateLimit-Remaining", "0")
				h.Set("Retry-After", strconv.Itoa(retry))

				applog.FromContext(c.Request().Context()).WithComponent(applog.ComponentRateLimit).
					Warn("Rate limit exceeded",
						applog.FieldClientIP, clientIP,
						applog.FieldMethod, c.Request().Method,
						applog.FieldPath, c.Request().URL.Path)

				return writeProblem(c, ProblemDetails{
					Type:     ErrorTypeRateLimit,
					Title:    "Rate Limit Exceeded",
					Status:   http.StatusTooManyRequests,
					Detail:   "Too many requests. Please retry after " + strconv.Itoa(retry) + " seconds.",
					Instance: c.Request().URL.Path,
				})
			}

			h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			return next(c)
		}
	}
}
