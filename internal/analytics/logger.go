// Package analytics implements the asynchronous prediction log over
// PostgreSQL. Like the cache, it degrades rather than fails: a broken
// or absent database must never be visible to a prediction request.
package analytics

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/newscope/newscope/internal/config"
	"github.com/newscope/newscope/pkg/models"
)

const previewMaxBytes = 200

// State mirrors the cache layer's connection lifecycle.
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

// HealthStatus is the best-effort introspection payload for the
// detailed health endpoint.
type HealthStatus struct {
	Status           string    `json:"status"`
	Connected        bool      `json:"connected"`
	ServerTime       time.Time `json:"server_time,omitzero"`
	PoolSize         int32     `json:"pool_size,omitempty"`
	PoolIdle         int32     `json:"pool_idle,omitempty"`
	TotalPredictions int64     `json:"total_predictions"`
	TableSizeBytes   int64     `json:"table_size_bytes,omitempty"`
	Message          string    `json:"message,omitempty"`
	Error            string    `json:"error,omitempty"`
}

// LogParams carries one prediction into the append-only log.
type LogParams struct {
	Text         string
	Label        string
	Confidence   float64
	LatencyMs    float64
	ModelVersion string
	Cached       bool
	IPAddress    string
	UserAgent    string
}

// Logger is the analytics interface. LogPrediction is fire-and-forget:
// it always reports success-equivalent. Read queries return empty
// results, never errors, when the store is unreachable.
type Logger interface {
	Connect(ctx context.Context) bool
	State() State
	LogPrediction(ctx context.Context, p LogParams) bool
	GetStats(ctx context.Context, hours int) models.StatsReport
	GetLowConfidencePredictions(ctx context.Context, threshold float64, limit int) []models.LogRecord
	GetTopicAccuracy(ctx context.Context, hours int) map[string]models.TopicAccuracy
	HealthCheck(ctx context.Context) HealthStatus
	Close()
}

// PostgresLogger implements Logger using pgx/v5.
type PostgresLogger struct {
	cfg         config.DatabaseConfig
	pool        *pgxpool.Pool
	opTimeout   time.Duration
	backoffUnit time.Duration
	maxAttempts int
	state       atomic.Int32
}

// Option tweaks connection behavior, mainly for tests.
type Option func(*PostgresLogger)

// WithOpTimeout overrides the per-operation timeout (default 5s).
func WithOpTimeout(d time.Duration) Option {
	return func(l *PostgresLogger) { l.opTimeout = d }
}

// WithBackoffUnit overrides the base unit of the 2^attempt connect
// backoff (default 1s).
func WithBackoffUnit(d time.Duration) Option {
	return func(l *PostgresLogger) { l.backoffUnit = d }
}

// NewPostgresLogger creates the logger. Connectivity is established
// later via Connect.
func NewPostgresLogger(cfg config.DatabaseConfig, opts ...Option) *PostgresLogger {
	l := &PostgresLogger{
		cfg:         cfg,
		opTimeout:   5 * time.Second,
		backoffUnit: time.Second,
		maxAttempts: 3,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// State reports the current lifecycle state.
func (l *PostgresLogger) State() State {
	return State(l.state.Load())
}

// Connect establishes the pool and idempotently applies the schema,
// retrying up to 3 times with 2^attempt-seconds backoff. Exhausting
// retries transitions to Degraded and yields false; it never errors.
func (l *PostgresLogger) Connect(ctx context.Context) bool {
	l.state.Store(int32(StateConnecting))

	for attempt := 1; attempt <= l.maxAttempts; attempt++ {
		err := l.tryConnect(ctx)
		if err == nil {
			l.state.Store(int32(StateConnected))
			slog.Info("postgres connected", "database", l.cfg.Database)
			return true
		}

		slog.Warn("postgres connect failed",
			"attempt", attempt, "max_attempts", l.maxAttempts, "error", err)

		if attempt < l.maxAttempts {
			wait := l.backoffUnit << attempt // 2^attempt units
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				l.state.Store(int32(StateDegraded))
				return false
			}
		}
	}

	slog.Error("postgres connection failed after all retries, analytics disabled")
	l.state.Store(int32(StateDegraded))
	return false
}

func (l *PostgresLogger) tryConnect(ctx context.Context) error {
	poolCfg, err := pgxpool.ParseConfig(l.cfg.URL())
	if err != nil {
		return err
	}
	poolCfg.MinConns = int32(l.cfg.MinConns)
	poolCfg.MaxConns = int32(l.cfg.MaxConns)

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return err
	}

	pingCtx, cancel := context.WithTimeout(ctx, l.opTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return err
	}

	if err := runMigrations(l.cfg.URL()); err != nil {
		pool.Close()
		return err
	}

	if l.pool != nil {
		l.pool.Close()
	}
	l.pool = pool
	return nil
}

// hashText fingerprints input text for deduplication and indexing.
func hashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// truncate shortens s to maxBytes without splitting UTF-8 runes.
func truncate(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	for maxBytes > 0 && !utf8.RuneStart(s[maxBytes]) {
		maxBytes--
	}
	return s[:maxBytes]
}

// LogPrediction appends one row to the predictions table. Best-effort:
// a Degraded store, a timeout or any backend error is swallowed and
// reported as success so the serving path never notices.
func (l *PostgresLogger) LogPrediction(ctx context.Context, p LogParams) bool {
	if l.State() != StateConnected {
		return true
	}

	var ip, ua any
	if p.IPAddress != "" {
		ip = p.IPAddress
	}
	if p.UserAgent != "" {
		ua = p.UserAgent
	}

	opCtx, cancel := context.WithTimeout(ctx, l.opTimeout)
	defer cancel()

	_, err := l.pool.Exec(opCtx,
		`INSERT INTO predictions
		 (text_hash, text_preview, predicted_topic, confidence, latency_ms,
		  ip_address, user_agent, model_version, cached)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		hashText(p.Text), truncate(p.Text, previewMaxBytes), p.Label,
		p.Confidence, p.LatencyMs, ip, ua, p.ModelVersion, p.Cached)
	if err != nil {
		slog.Warn("failed to log prediction", "error", err)
	}
	return true
}

// GetStats aggregates logged predictions per topic over the trailing
// window. Returns an empty report when the store is unreachable.
func (l *PostgresLogger) GetStats(ctx context.Context, hours int) models.StatsReport {
	report := models.StatsReport{
		Topics: map[string]models.LabelStats{},
		Summary: models.StatsSummary{
			WindowHours: hours,
			GeneratedAt: time.Now().UTC(),
		},
	}

	if l.State() != StateConnected {
		return report
	}

	opCtx, cancel := context.WithTimeout(ctx, l.opTimeout)
	defer cancel()

	rows, err := l.pool.Query(opCtx,
		`SELECT predicted_topic,
		        COUNT(*),
		        AVG(confidence),
		        MIN(confidence),
		        MAX(confidence),
		        AVG(latency_ms),
		        PERCENTILE_CONT(0.95) WITHIN GROUP (ORDER BY latency_ms)
		 FROM predictions
		 WHERE timestamp > NOW() - INTERVAL '1 hour' * $1
		 GROUP BY predicted_topic
		 ORDER BY COUNT(*) DESC`, hours)
	if err != nil {
		slog.Warn("stats query failed", "error", err)
		return report
	}
	defer rows.Close()

	for rows.Next() {
		var topic string
		var s models.LabelStats
		if err := rows.Scan(&topic, &s.Count, &s.AvgConfidence, &s.MinConfidence,
			&s.MaxConfidence, &s.AvgLatencyMs, &s.P95LatencyMs); err != nil {
			slog.Warn("stats scan failed", "error", err)
			return report
		}
		report.Topics[topic] = s
		report.Summary.TotalPredictions += s.Count
	}
	if err := rows.Err(); err != nil {
		slog.Warn("stats rows failed", "error", err)
	}

	report.Summary.NumTopics = len(report.Topics)
	return report
}

// GetLowConfidencePredictions lists the most recent predictions under
// the confidence threshold. Empty (never nil) on any failure.
func (l *PostgresLogger) GetLowConfidencePredictions(ctx context.Context, threshold float64, limit int) []models.LogRecord {
	records := []models.LogRecord{}
	if l.State() != StateConnected {
		return records
	}

	opCtx, cancel := context.WithTimeout(ctx, l.opTimeout)
	defer cancel()

	rows, err := l.pool.Query(opCtx,
		`SELECT id, timestamp, text_preview, predicted_topic, confidence, latency_ms, model_version, cached
		 FROM predictions
		 WHERE confidence < $1
		 ORDER BY timestamp DESC
		 LIMIT $2`, threshold, limit)
	if err != nil {
		slog.Warn("low-confidence query failed", "error", err)
		return records
	}
	defer rows.Close()

	for rows.Next() {
		var r models.LogRecord
		if err := rows.Scan(&r.ID, &r.Timestamp, &r.TextPreview, &r.PredictedTopic,
			&r.Confidence, &r.LatencyMs, &r.ModelVersion, &r.Cached); err != nil {
			slog.Warn("low-confidence scan failed", "error", err)
			return records
		}
		records = append(records, r)
	}
	return records
}

// GetTopicAccuracy buckets confidence per topic over the trailing
// window. Empty on any failure.
func (l *PostgresLogger) GetTopicAccuracy(ctx context.Context, hours int) map[string]models.TopicAccuracy {
	metrics := map[string]models.TopicAccuracy{}
	if l.State() != StateConnected {
		return metrics
	}

	opCtx, cancel := context.WithTimeout(ctx, l.opTimeout)
	defer cancel()

	rows, err := l.pool.Query(opCtx,
		`SELECT predicted_topic,
		        COUNT(*),
		        AVG(confidence),
		        COUNT(*) FILTER (WHERE confidence > 0.8),
		        COUNT(*) FILTER (WHERE confidence < 0.7)
		 FROM predictions
		 WHERE timestamp > NOW() - INTERVAL '1 hour' * $1
		 GROUP BY predicted_topic
		 ORDER BY COUNT(*) DESC`, hours)
	if err != nil {
		slog.Warn("topic accuracy query failed", "error", err)
		return metrics
	}
	defer rows.Close()

	for rows.Next() {
		var topic string
		var total, high, low int64
		var avg float64
		if err := rows.Scan(&topic, &total, &avg, &high, &low); err != nil {
			slog.Warn("topic accuracy scan failed", "error", err)
			return metrics
		}
		m := models.TopicAccuracy{
			TotalPredictions: total,
			AvgConfidence:    avg,
		}
		if total > 0 {
			m.HighConfidencePct = float64(high) / float64(total) * 100
			m.LowConfidencePct = float64(low) / float64(total) * 100
		}
		metrics[topic] = m
	}
	return metrics
}

// HealthCheck reports pool and table statistics. Failures degrade to a
// disconnected payload rather than propagating.
func (l *PostgresLogger) HealthCheck(ctx context.Context) HealthStatus {
	if l.State() != StateConnected {
		return HealthStatus{
			Status:    "disconnected",
			Connected: false,
			Message:   "postgres not connected",
		}
	}

	opCtx, cancel := context.WithTimeout(ctx, l.opTimeout)
	defer cancel()

	var serverTime time.Time
	var totalRows, tableSize int64
	err := l.pool.QueryRow(opCtx,
		`SELECT NOW(),
		        (SELECT COUNT(*) FROM predictions),
		        pg_total_relation_size('predictions')`).
		Scan(&serverTime, &totalRows, &tableSize)
	if err != nil {
		return HealthStatus{
			Status:    "unhealthy",
			Connected: false,
			Error:     err.Error(),
		}
	}

	stat := l.pool.Stat()
	return HealthStatus{
		Status:           "healthy",
		Connected:        true,
		ServerTime:       serverTime,
		PoolSize:         stat.TotalConns(),
		PoolIdle:         stat.IdleConns(),
		TotalPredictions: totalRows,
		TableSizeBytes:   tableSize,
	}
}

// Close releases the pool.
func (l *PostgresLogger) Close() {
	if l.pool != nil {
		l.pool.Close()
	}
	l.state.Store(int32(StateUninitialized))
}

var _ Logger = (*PostgresLogger)(nil)
