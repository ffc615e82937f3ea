package handler

import (
	"net/http"
	"strconv"

	"github.com/newscope/newscope/internal/analytics"
	"github.com/newscope/newscope/internal/api/response"
)

const (
	defaultStatsHours   = 24
	maxStatsHours       = 168
	defaultLowThreshold = 0.7
	defaultLowLimit     = 50
	maxLowLimit         = 500
)

// NewStatsHandler returns the http.HandlerFunc for GET /stats.
func NewStatsHandler(log analytics.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		hours := queryInt(r, "hours", defaultStatsHours, 1, maxStatsHours)
		response.JSON(w, log.GetStats(r.Context(), hours))
	}
}

// NewLowConfidenceHandler returns the http.HandlerFunc for
// GET /stats/low-confidence.
func NewLowConfidenceHandler(log analytics.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		threshold := queryFloat(r, "threshold", defaultLowThreshold, 0, 1)
		limit := queryInt(r, "limit", defaultLowLimit, 1, maxLowLimit)

		records := log.GetLowConfidencePredictions(r.Context(), threshold, limit)
		response.JSON(w, struct {
			Threshold   float64 `json:"threshold"`
			Count       int     `json:"count"`
			Predictions any     `json:"predictions"`
		}{Threshold: threshold, Count: len(records), Predictions: records})
	}
}

// NewTopicAccuracyHandler returns the http.HandlerFunc for
// GET /stats/accuracy.
func NewTopicAccuracyHandler(log analytics.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		hours := queryInt(r, "hours", defaultStatsHours, 1, maxStatsHours)
		response.JSON(w, struct {
			WindowHours int `json:"window_hours"`
			Topics      any `json:"topics"`
		}{WindowHours: hours, Topics: log.GetTopicAccuracy(r.Context(), hours)})
	}
}

func queryInt(r *http.Request, name string, def, min, max int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func queryFloat(r *http.Request, name string, def, min, max float64) float64 {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def
	}
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
