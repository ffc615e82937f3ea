// Package cache implements the cache-aside layer over Redis. The cache
// is a pure performance optimization: every code path must behave
// identically (just slower) whether or not Redis is reachable, so
// request-path operations never surface errors.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/newscope/newscope/internal/config"
	"github.com/newscope/newscope/pkg/models"
)

// State is the connection lifecycle of a cache instance. Degraded is
// terminal for the process lifetime unless Reconnect is invoked.
type State int32

const (
	StateUninitialized State = iota
	StateConnecting
	StateConnected
	StateDegraded
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDegraded:
		return "degraded"
	default:
		return "unknown"
	}
}

// ErrUnavailable is returned by operations that report errors when the
// cache is not in the Connected state.
var ErrUnavailable = errors.New("cache not connected")

// HealthStatus is the best-effort introspection payload for the
// detailed health endpoint.
type HealthStatus struct {
	Status           string `json:"status"`
	Connected        bool   `json:"connected"`
	UsedMemoryBytes  int64  `json:"used_memory_bytes,omitempty"`
	ConnectedClients int64  `json:"connected_clients,omitempty"`
	EvictedKeys      int64  `json:"evicted_keys,omitempty"`
	Message          string `json:"message,omitempty"`
	Error            string `json:"error,omitempty"`
}

// Cache is the caching interface. Implementations must be safe for
// concurrent use. Get and Set follow deliberately asymmetric contracts:
// Get failures are invisible misses, Set failures are invisible no-ops.
// Delete and FlushAll are operator actions and report real outcomes.
type Cache interface {
	Connect(ctx context.Context) bool
	Reconnect(ctx context.Context) bool
	State() State
	Get(ctx context.Context, text string) (models.Prediction, bool)
	Set(ctx context.Context, text string, pred models.Prediction) bool
	Delete(ctx context.Context, text string) bool
	FlushAll(ctx context.Context) bool
	IncrWithExpiry(ctx context.Context, key string, expiry time.Duration) (int64, error)
	HealthCheck(ctx context.Context) HealthStatus
	Close() error
}

// cachedPrediction is the stored subset of a prediction. Timing and the
// cached flag are per-request and never cached.
type cachedPrediction struct {
	Label         string             `json:"label"`
	Confidence    float64            `json:"confidence"`
	Probabilities map[string]float64 `json:"probabilities"`
}

// RedisCache implements Cache using go-redis/v9.
type RedisCache struct {
	client      *redis.Client
	ttl         time.Duration
	opTimeout   time.Duration
	backoffUnit time.Duration
	maxAttempts int
	state       atomic.Int32
}

// Option tweaks connection behavior, mainly for tests.
type Option func(*RedisCache)

// WithOpTimeout overrides the per-operation network timeout (default 5s).
func WithOpTimeout(d time.Duration) Option {
	return func(c *RedisCache) { c.opTimeout = d }
}

// WithBackoffUnit overrides the base unit of the 2^attempt connect
// backoff (default 1s).
func WithBackoffUnit(d time.Duration) Option {
	return func(c *RedisCache) { c.backoffUnit = d }
}

// NewRedisCache creates a RedisCache from config. The only error is a
// malformed URL; connectivity is established later via Connect.
func NewRedisCache(cfg config.CacheConfig, opts ...Option) (*RedisCache, error) {
	redisOpts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}
	redisOpts.PoolSize = cfg.PoolSize

	c := &RedisCache{
		client:      redis.NewClient(redisOpts),
		ttl:         cfg.TTL,
		opTimeout:   5 * time.Second,
		backoffUnit: time.Second,
		maxAttempts: 3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// State reports the current lifecycle state.
func (c *RedisCache) State() State {
	return State(c.state.Load())
}

// Connect pings Redis, retrying up to 3 times with 2^attempt-seconds
// backoff. It never returns an error: exhausting retries transitions
// the cache to Degraded and yields false.
func (c *RedisCache) Connect(ctx context.Context) bool {
	c.state.Store(int32(StateConnecting))

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, c.opTimeout)
		err := c.client.Ping(pingCtx).Err()
		cancel()

		if err == nil {
			c.state.Store(int32(StateConnected))
			slog.Info("redis connected", "ttl", c.ttl)
			return true
		}

		slog.Warn("redis connect failed",
			"attempt", attempt, "max_attempts", c.maxAttempts, "error", err)

		if attempt < c.maxAttempts {
			wait := c.backoffUnit << attempt // 2^attempt units
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				c.state.Store(int32(StateDegraded))
				return false
			}
		}
	}

	slog.Error("redis connection failed after all retries, caching disabled")
	c.state.Store(int32(StateDegraded))
	return false
}

// Reconnect is the explicit operator escape hatch out of Degraded.
func (c *RedisCache) Reconnect(ctx context.Context) bool {
	c.state.Store(int32(StateUninitialized))
	return c.Connect(ctx)
}

// Get returns the cached prediction for a text, or absent. Degraded
// state, timeouts and backend errors all read as misses. A value that
// fails to deserialize is deleted so the corruption cannot recur.
func (c *RedisCache) Get(ctx context.Context, text string) (models.Prediction, bool) {
	if c.State() != StateConnected {
		return models.Prediction{}, false
	}

	key := PredictionKey(text)
	opCtx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	raw, err := c.client.Get(opCtx, key).Bytes()
	if err == redis.Nil {
		return models.Prediction{}, false
	}
	if err != nil {
		slog.Warn("cache get failed", "key", key, "error", err)
		return models.Prediction{}, false
	}

	var stored cachedPrediction
	if err := json.Unmarshal(raw, &stored); err != nil {
		slog.Error("corrupted cache entry, deleting", "key", key, "error", err)
		delCtx, cancelDel := context.WithTimeout(ctx, c.opTimeout)
		defer cancelDel()
		if delErr := c.client.Del(delCtx, key).Err(); delErr != nil {
			slog.Warn("failed to delete corrupted cache entry", "key", key, "error", delErr)
		}
		return models.Prediction{}, false
	}

	return models.Prediction{
		Label:         stored.Label,
		Confidence:    stored.Confidence,
		Probabilities: stored.Probabilities,
	}, true
}

// Set writes a prediction with the configured TTL. A cache write must
// never fail the calling request, so Degraded state, timeouts and
// backend errors all report success.
func (c *RedisCache) Set(ctx context.Context, text string, pred models.Prediction) bool {
	if c.State() != StateConnected {
		return true
	}

	payload, err := json.Marshal(cachedPrediction{
		Label:         pred.Label,
		Confidence:    pred.Confidence,
		Probabilities: pred.Probabilities,
	})
	if err != nil {
		slog.Error("cache serialization failed", "error", err)
		return false
	}

	key := PredictionKey(text)
	opCtx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	if err := c.client.Set(opCtx, key, payload, c.ttl).Err(); err != nil {
		slog.Warn("cache set failed", "key", key, "error", err)
		return true
	}
	return true
}

// Delete removes the entry for a text. Operator-invoked, so it reports
// the real outcome.
func (c *RedisCache) Delete(ctx context.Context, text string) bool {
	if c.State() != StateConnected {
		return false
	}

	opCtx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	if err := c.client.Del(opCtx, PredictionKey(text)).Err(); err != nil {
		slog.Warn("cache delete failed", "error", err)
		return false
	}
	return true
}

// FlushAll wipes the entire cache database, not just prediction keys.
// Operator-invoked, real outcome.
func (c *RedisCache) FlushAll(ctx context.Context) bool {
	if c.State() != StateConnected {
		return false
	}

	opCtx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	if err := c.client.FlushDB(opCtx).Err(); err != nil {
		slog.Error("cache flush failed", "error", err)
		return false
	}
	slog.Warn("cache flushed completely")
	return true
}

// IncrWithExpiry atomically increments a counter and refreshes its
// expiry, for the sliding-window rate limiter. Errors immediately with
// ErrUnavailable when degraded so callers fail open without dialing.
func (c *RedisCache) IncrWithExpiry(ctx context.Context, key string, expiry time.Duration) (int64, error) {
	if c.State() != StateConnected {
		return 0, ErrUnavailable
	}

	opCtx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	pipe := c.client.TxPipeline()
	incr := pipe.Incr(opCtx, key)
	pipe.Expire(opCtx, key, expiry)
	if _, err := pipe.Exec(opCtx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

// HealthCheck reports memory, client and eviction counters. Failures
// degrade to a disconnected payload rather than propagating.
func (c *RedisCache) HealthCheck(ctx context.Context) HealthStatus {
	if c.State() != StateConnected {
		return HealthStatus{
			Status:    "disconnected",
			Connected: false,
			Message:   "redis not connected",
		}
	}

	opCtx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	info, err := c.client.Info(opCtx).Result()
	if err != nil {
		return HealthStatus{
			Status:    "unhealthy",
			Connected: false,
			Error:     err.Error(),
		}
	}

	fields := parseInfo(info)
	return HealthStatus{
		Status:           "healthy",
		Connected:        true,
		UsedMemoryBytes:  fields["used_memory"],
		ConnectedClients: fields["connected_clients"],
		EvictedKeys:      fields["evicted_keys"],
	}
}

// Close releases the connection pool.
func (c *RedisCache) Close() error {
	c.state.Store(int32(StateUninitialized))
	return c.client.Close()
}

var _ Cache = (*RedisCache)(nil)
