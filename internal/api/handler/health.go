package handler

import (
	"net/http"
	"time"

	"github.com/newscope/newscope/internal/analytics"
	"github.com/newscope/newscope/internal/api/response"
	"github.com/newscope/newscope/internal/cache"
	"github.com/newscope/newscope/pkg/models"
)

// NewHealthHandler returns the http.HandlerFunc for GET /health.
// Liveness only: a running process is a healthy process.
func NewHealthHandler() http.HandlerFunc {
	started := time.Now()
	return func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, struct {
			Status        string  `json:"status"`
			UptimeSeconds float64 `json:"uptime_seconds"`
		}{Status: "ok", UptimeSeconds: time.Since(started).Seconds()})
	}
}

type readinessResponse struct {
	Status     string `json:"status"`
	Classifier string `json:"classifier"`
	Cache      string `json:"cache"`
	Analytics  string `json:"analytics"`
}

// NewReadinessHandler returns the http.HandlerFunc for GET /readiness.
// Only the classifier gates readiness; cache and analytics are
// reported but a degraded state does not fail the probe.
func NewReadinessHandler(clf models.Classifier, c cache.Cache, log analytics.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := readinessResponse{
			Status:     "ready",
			Classifier: "unavailable",
			Cache:      c.State().String(),
			Analytics:  log.State().String(),
		}
		if clf != nil {
			body.Classifier = "ready"
		}

		if clf == nil {
			body.Status = "not_ready"
			response.JSONStatus(w, http.StatusServiceUnavailable, body)
			return
		}
		response.JSON(w, body)
	}
}

// BackgroundStats exposes queue counters for the detailed health view.
type BackgroundStats interface {
	Dropped() int64
}

// NewDetailedHealthHandler returns the http.HandlerFunc for
// GET /health/detailed, merging the component health payloads.
func NewDetailedHealthHandler(c cache.Cache, log analytics.Logger, tasks BackgroundStats) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, struct {
			Cache        cache.HealthStatus     `json:"cache"`
			Analytics    analytics.HealthStatus `json:"analytics"`
			TasksDropped int64                  `json:"background_tasks_dropped"`
		}{
			Cache:        c.HealthCheck(r.Context()),
			Analytics:    log.HealthCheck(r.Context()),
			TasksDropped: tasks.Dropped(),
		})
	}
}
