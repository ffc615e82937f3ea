package analytics_test

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/newscope/newscope/internal/analytics"
	"github.com/newscope/newscope/internal/config"
)

// setupLogger spins up a Postgres container and returns a connected
// PostgresLogger with the schema applied.
func setupLogger(t *testing.T) *analytics.PostgresLogger {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("newscope_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, pgContainer.Terminate(ctx)) })

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	port, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)
	portNum, err := strconv.Atoi(port.Port())
	require.NoError(t, err)

	logger := analytics.NewPostgresLogger(config.DatabaseConfig{
		Host:     host,
		Port:     portNum,
		Database: "newscope_test",
		User:     "test",
		Password: "test",
		MinConns: 1,
		MaxConns: 4,
	})
	t.Cleanup(logger.Close)

	require.True(t, logger.Connect(ctx))
	require.Equal(t, analytics.StateConnected, logger.State())
	return logger
}

// degradedLogger returns a logger pointed at a dead endpoint, fully
// through its connect retries.
func degradedLogger(t *testing.T) *analytics.PostgresLogger {
	t.Helper()
	logger := analytics.NewPostgresLogger(config.DatabaseConfig{
		Host:     "127.0.0.1",
		Port:     1,
		Database: "nope",
		User:     "nope",
		Password: "nope",
		MinConns: 1,
		MaxConns: 1,
	}, analytics.WithOpTimeout(100*time.Millisecond), analytics.WithBackoffUnit(time.Millisecond))
	t.Cleanup(logger.Close)

	assert.False(t, logger.Connect(context.Background()))
	assert.Equal(t, analytics.StateDegraded, logger.State())
	return logger
}

func sampleParams(text string, confidence float64) analytics.LogParams {
	return analytics.LogParams{
		Text:         text,
		Label:        "SPORTS",
		Confidence:   confidence,
		LatencyMs:    12.5,
		ModelVersion: "test-v1",
		Cached:       false,
		IPAddress:    "192.0.2.10",
		UserAgent:    "go-test/1.0",
	}
}

// --- Degraded behavior (no container needed) ---

func TestDegraded_EverythingIsSilent(t *testing.T) {
	logger := degradedLogger(t)
	ctx := context.Background()

	assert.True(t, logger.LogPrediction(ctx, sampleParams("text", 0.9)))

	report := logger.GetStats(ctx, 24)
	assert.Empty(t, report.Topics)
	assert.Zero(t, report.Summary.TotalPredictions)
	assert.Equal(t, 24, report.Summary.WindowHours)

	records := logger.GetLowConfidencePredictions(ctx, 0.7, 10)
	assert.NotNil(t, records)
	assert.Empty(t, records)

	assert.Empty(t, logger.GetTopicAccuracy(ctx, 24))

	health := logger.HealthCheck(ctx)
	assert.Equal(t, "disconnected", health.Status)
	assert.False(t, health.Connected)
}

// --- Integration ---

func TestLogPredictionAndStats(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	logger := setupLogger(t)
	ctx := context.Background()

	require.True(t, logger.LogPrediction(ctx, sampleParams("first article", 0.95)))
	require.True(t, logger.LogPrediction(ctx, sampleParams("second article", 0.85)))

	business := sampleParams("third article", 0.60)
	business.Label = "BUSINESS"
	require.True(t, logger.LogPrediction(ctx, business))

	report := logger.GetStats(ctx, 24)
	assert.Equal(t, int64(3), report.Summary.TotalPredictions)
	assert.Equal(t, 2, report.Summary.NumTopics)

	sports, ok := report.Topics["SPORTS"]
	require.True(t, ok)
	assert.Equal(t, int64(2), sports.Count)
	assert.InDelta(t, 0.90, sports.AvgConfidence, 1e-9)
	assert.InDelta(t, 0.85, sports.MinConfidence, 1e-9)
	assert.InDelta(t, 0.95, sports.MaxConfidence, 1e-9)
}

func TestLogPrediction_EmptyClientMeta(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	logger := setupLogger(t)

	p := sampleParams("no client metadata", 0.9)
	p.IPAddress = ""
	p.UserAgent = ""
	assert.True(t, logger.LogPrediction(context.Background(), p))

	report := logger.GetStats(context.Background(), 24)
	assert.Equal(t, int64(1), report.Summary.TotalPredictions)
}

func TestLogPrediction_LongTextTruncated(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	logger := setupLogger(t)
	ctx := context.Background()

	long := ""
	for i := 0; i < 100; i++ {
		long += "héllo "
	}
	assert.True(t, logger.LogPrediction(ctx, sampleParams(long, 0.3)))

	records := logger.GetLowConfidencePredictions(ctx, 0.7, 10)
	require.Len(t, records, 1)
	assert.LessOrEqual(t, len(records[0].TextPreview), 200)
}

func TestGetLowConfidencePredictions(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	logger := setupLogger(t)
	ctx := context.Background()

	require.True(t, logger.LogPrediction(ctx, sampleParams("confident", 0.95)))
	require.True(t, logger.LogPrediction(ctx, sampleParams("unsure", 0.55)))
	require.True(t, logger.LogPrediction(ctx, sampleParams("very unsure", 0.25)))

	records := logger.GetLowConfidencePredictions(ctx, 0.7, 10)
	require.Len(t, records, 2)
	for _, r := range records {
		assert.Less(t, r.Confidence, 0.7)
	}
}

func TestGetTopicAccuracy(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	logger := setupLogger(t)
	ctx := context.Background()

	require.True(t, logger.LogPrediction(ctx, sampleParams("high", 0.95)))
	require.True(t, logger.LogPrediction(ctx, sampleParams("mid", 0.75)))
	require.True(t, logger.LogPrediction(ctx, sampleParams("low", 0.50)))

	metrics := logger.GetTopicAccuracy(ctx, 24)
	sports, ok := metrics["SPORTS"]
	require.True(t, ok)
	assert.Equal(t, int64(3), sports.TotalPredictions)
	assert.InDelta(t, 100.0/3, sports.HighConfidencePct, 1e-6)
	assert.InDelta(t, 100.0/3, sports.LowConfidencePct, 1e-6)
}

func TestHealthCheck_Connected(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	logger := setupLogger(t)

	require.True(t, logger.LogPrediction(context.Background(), sampleParams("row", 0.9)))

	health := logger.HealthCheck(context.Background())
	assert.Equal(t, "healthy", health.Status)
	assert.True(t, health.Connected)
	assert.Equal(t, int64(1), health.TotalPredictions)
	assert.False(t, health.ServerTime.IsZero())
	assert.Positive(t, health.TableSizeBytes)
}

func TestConnect_IsIdempotent(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	logger := setupLogger(t)

	// second connect reapplies migrations as a no-op
	assert.True(t, logger.Connect(context.Background()))
	assert.Equal(t, analytics.StateConnected, logger.State())
}
