package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimitConfigs(t *testing.T) {
	tests := []struct {
		name       string
		cfg        RateLimitConfig
		rpm, burst int
	}{
		{"default", DefaultRateLimitConfig(), 200, 50},
		{"login", LoginRateLimitConfig(), 10, 5},
		{"upload", UploadRateLimitConfig(), 30, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.rpm, tt.cfg.RequestsPerMinute)
			assert.Equal(t, tt.burst, tt.cfg.BurstSize)
			assert.Equal(t, 5*time.Minute, tt.cfg.CleanupInterval)
		})
	}
}

// newTestLimiter returns a limiter with a controllable clock and no cleanup loop.
func newTestLimiter(rpm, burst int) (*MemoryLimiter, *time.Time) {
	rl := NewMemoryLimiter(RateLimitConfig{RequestsPerMinute: rpm, BurstSize: burst})
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	return rl, &now
}

func TestMemoryLimiter_AllowsUpToBurst(t *testing.T) {
	rl, _ := newTestLimiter(60, 3)
	defer rl.Stop()

	ctx := context.Background()
	allowed := 0
	for i := 0; i < 5; i++ {
		d, err := rl.Allow(ctx, "burst")
		require.NoError(t, err)
		if d.Allowed {
			allowed++
		}
	}
	assert.Equal(t, 3, allowed)
}

func TestMemoryLimiter_RemainingCountsDown(t *testing.T) {
	rl, _ := newTestLimiter(60, 3)
	defer rl.Stop()

	ctx := context.Background()
	for _, want := range []int{2, 1, 0} {
		d, err := rl.Allow(ctx, "k")
		require.NoError(t, err)
		assert.True(t, d.Allowed)
		assert.Equal(t, want, d.Remaining)
	}
}

func TestMemoryLimiter_RefillsOverTime(t *testing.T) {
	rl, now := newTestLimiter(60, 1) // one token per second
	defer rl.Stop()

	ctx := context.Background()
	d, _ := rl.Allow(ctx, "refill")
	require.True(t, d.Allowed)

	d, _ = rl.Allow(ctx, "refill")
	require.False(t, d.Allowed)
	assert.InDelta(t, time.Second.Seconds(), d.RetryAfter.Seconds(), 0.01)

	*now = now.Add(1500 * time.Millisecond)
	d, _ = rl.Allow(ctx, "refill")
	assert.True(t, d.Allowed, "token should refill after 1.5s at 1/s")
}

func TestMemoryLimiter_KeysAreIndependent(t *testing.T) {
	rl, _ := newTestLimiter(60, 1)
	defer rl.Stop()

	ctx := context.Background()
	d, _ := rl.Allow(ctx, "a")
	require.True(t, d.Allowed)
	d, _ = rl.Allow(ctx, "a")
	require.False(t, d.Allowed)

	d, _ = rl.Allow(ctx, "b")
	assert.True(t, d.Allowed)
}

func TestMemoryLimiter_StopTwice(t *testing.T) {
	rl := NewMemoryLimiter(DefaultRateLimitConfig())
	rl.Stop()
	rl.Stop()
}

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string) (Decision, error) {
	return Decision{}, errors.New("redis: connection refused")
}

func newRateLimitRouter(l Limiter) *gin.Engine {
	r := gin.New()
	r.Use(RateLimitMiddleware(l, "api", 60))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func TestRateLimitMiddleware(t *testing.T) {
	rl, _ := newTestLimiter(60, 2)
	defer rl.Stop()
	r := newRateLimitRouter(rl)

	var codes []int
	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "203.0.113.7:5555"
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
		last = w
	}

	assert.Equal(t, []int{200, 200, 429}, codes)
	assert.Equal(t, "60", last.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", last.Header().Get("X-RateLimit-Remaining"))
	retry, err := strconv.Atoi(last.Header().Get("Retry-After"))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, retry, 1)
	assert.Contains(t, last.Body.String(), "Rate limit exceeded")

	// a different client address has its own bucket
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "198.51.100.1:5555"
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimitMiddleware_FailsOpen(t *testing.T) {
	w := httptest.NewRecorder()
	newRateLimitRouter(failingLimiter{}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestNewRedisLimiter_InvalidURL(t *testing.T) {
	_, err := NewRedisLimiter("http://not-redis", "rl:", DefaultRateLimitConfig())
	assert.Error(t, err)
}

// TestRedisLimiter runs against a live Redis when ADMIN_TEST_REDIS_URL is set.
func TestRedisLimiter(t *testing.T) {
	url := os.Getenv("ADMIN_TEST_REDIS_URL")
	if url == "" {
		t.Skip("ADMIN_TEST_REDIS_URL not set")
	}
	rl, err := NewRedisLimiter(url, "test:rl:"+strconv.FormatInt(time.Now().UnixNano(), 10)+":", RateLimitConfig{RequestsPerMinute: 60, BurstSize: 2})
	require.NoError(t, err)
	defer rl.Close()

	ctx := context.Background()
	require.NoError(t, rl.Ping(ctx))

	allowed := 0
	for i := 0; i < 4; i++ {
		d, err := rl.Allow(ctx, "client")
		require.NoError(t, err)
		if d.Allowed {
			allowed++
		}
	}
	assert.Equal(t, 2, allowed)
}
