package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mw "github.com/newscope/newscope/internal/api/middleware"
	"github.com/newscope/newscope/internal/cache"
	"github.com/newscope/newscope/pkg/models"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

// ─── auth ────────────────────────────────────────────────────────────────────

func TestAuth_DisabledWhenKeyEmpty(t *testing.T) {
	h := mw.NewAuth("").Authenticate(okHandler())

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuth_MissingKey(t *testing.T) {
	h := mw.NewAuth("secret").Authenticate(okHandler())

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAuth_WrongKey(t *testing.T) {
	h := mw.NewAuth("secret").Authenticate(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-API-Key", "nope")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAuth_CorrectKey(t *testing.T) {
	h := mw.NewAuth("secret").Authenticate(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-API-Key", "secret")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

// ─── logging ─────────────────────────────────────────────────────────────────

func TestLogger_SetsRequestID(t *testing.T) {
	h := mw.Logger(okHandler())

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

// ─── recovery ────────────────────────────────────────────────────────────────

func TestRecovery(t *testing.T) {
	h := mw.Recovery(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	require.NotPanics(t, func() {
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "INTERNAL_ERROR")
}

// ─── rate limit ──────────────────────────────────────────────────────────────

// counterCache stubs just enough of cache.Cache for the limiter.
type counterCache struct {
	count int64
	err   error
	keys  []string
}

func (c *counterCache) Connect(ctx context.Context) bool { return true }
func (c *counterCache) Reconnect(ctx context.Context) bool { return true }
func (c *counterCache) State() cache.State { return cache.StateConnected }
func (c *counterCache) Get(ctx context.Context, text string) (models.Prediction, bool) {
	return models.Prediction{}, false
}
func (c *counterCache) Set(ctx context.Context, text string, pred models.Prediction) bool {
	return true
}
func (c *counterCache) Delete(ctx context.Context, text string) bool { return true }
func (c *counterCache) FlushAll(ctx context.Context) bool { return true }
func (c *counterCache) HealthCheck(ctx context.Context) cache.HealthStatus {
	return cache.HealthStatus{}
}
func (c *counterCache) Close() error { return nil }

func (c *counterCache) IncrWithExpiry(ctx context.Context, key string, expiry time.Duration) (int64, error) {
	if c.err != nil {
		return 0, c.err
	}
	c.count++
	c.keys = append(c.keys, key)
	return c.count, nil
}

func TestRateLimit_UnderLimit(t *testing.T) {
	cc := &counterCache{}
	h := mw.NewRateLimit(cc, 5).Limit(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:5000"
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "5", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "4", w.Header().Get("X-RateLimit-Remaining"))
	require.Len(t, cc.keys, 1)
	assert.Equal(t, cache.RateLimitKey("192.0.2.1"), cc.keys[0])
}

func TestRateLimit_Exceeded(t *testing.T) {
	cc := &counterCache{}
	h := mw.NewRateLimit(cc, 2).Limit(okHandler())

	var w *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "192.0.2.1:5000"
		w = httptest.NewRecorder()
		h.ServeHTTP(w, req)
	}

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "RATE_LIMIT_EXCEEDED")
}

func TestRateLimit_FailsOpen(t *testing.T) {
	cc := &counterCache{err: context.DeadlineExceeded}
	h := mw.NewRateLimit(cc, 2).Limit(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("X-RateLimit-Limit"))
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	assert.Equal(t, "10.0.0.1", mw.ClientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	assert.Equal(t, "203.0.113.9", mw.ClientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.9")
	assert.Equal(t, "203.0.113.9", mw.ClientIP(req))

	req.Header.Del("X-Forwarded-For")
	req.RemoteAddr = "not-host-port"
	assert.Equal(t, "not-host-port", mw.ClientIP(req))
}

func TestRateLimit_ForwardedForPreferred(t *testing.T) {
	cc := &counterCache{}
	h := mw.NewRateLimit(cc, 5).Limit(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Len(t, cc.keys, 1)
	assert.Equal(t, cache.RateLimitKey("203.0.113.9"), cc.keys[0])
}
