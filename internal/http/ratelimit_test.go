package http

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_Allow(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	rl := newRateLimiter(60, 2)
	rl.now = func() time.Time { return now }
	metrics := &securityMetrics{}

	ok, remaining := rl.allow("1.2.3.4", metrics)
	assert.True(t, ok)
	assert.Equal(t, 1, remaining)

	ok, remaining = rl.allow("1.2.3.4", metrics)
	assert.True(t, ok)
	assert.Equal(t, 0, remaining)

	ok, _ = rl.allow("1.2.3.4", metrics)
	assert.False(t, ok, "burst exhausted")
	assert.Equal(t, int64(1), metrics.snapshot().RateLimitHits)

	ok, _ = rl.allow("5.6.7.8", metrics)
	assert.True(t, ok, "clients have separate buckets")

	now = now.Add(time.Second)
	ok, _ = rl.allow("1.2.3.4", metrics)
	assert.True(t, ok, "one token refills per second at 60/min")
}

func TestRateLimiter_Defaults(t *testing.T) {
	rl := newRateLimiter(0, 0)
	assert.Equal(t, 1, rl.perMinute)
	assert.Equal(t, 1, rl.burst)
	assert.Equal(t, 60, rl.retryAfter())

	assert.Equal(t, 1, newRateLimiter(120, 20).retryAfter())
	assert.Equal(t, 2, newRateLimiter(45, 1).retryAfter())
}

func TestRateLimiter_CleanupStaleEntries(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	rl := newRateLimiter(60, 5)
	rl.now = func() time.Time { return now }

	rl.allow("old", nil)
	now = now.Add(limiterTTL - time.Minute)
	rl.allow("recent", nil)
	now = now.Add(2 * time.Minute)

	assert.Equal(t, 1, rl.cleanupStaleEntries())
	assert.Contains(t, rl.clients, "recent")
	assert.NotContains(t, rl.clients, "old")
}

func TestRateLimiter_StopIsIdempotent(t *testing.T) {
	rl := newRateLimiter(60, 5)
	done := make(chan struct{})
	go func() {
		rl.startCleanup()
		close(done)
	}()

	rl.stop()
	rl.stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cleanup goroutine did not exit")
	}
}
