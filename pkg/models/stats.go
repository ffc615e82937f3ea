package models

import (
	"time"
)

// LabelStats aggregates logged predictions for a single topic over a
// trailing time window.
type LabelStats struct {
	Count         int64   `json:"count"`
	AvgConfidence float64 `json:"avg_confidence"`
	MinConfidence float64 `json:"min_confidence"`
	MaxConfidence float64 `json:"max_confidence"`
	AvgLatencyMs  float64 `json:"avg_latency_ms"`
	P95LatencyMs  float64 `json:"p95_latency_ms"`
}

// StatsSummary describes the whole window.
type StatsSummary struct {
	TotalPredictions int64     `json:"total_predictions"`
	NumTopics        int       `json:"num_topics"`
	WindowHours      int       `json:"window_hours"`
	GeneratedAt      time.Time `json:"generated_at"`
}

// StatsReport is the full answer to a stats query. Topics is empty (never
// nil) when the analytics store is unreachable.
type StatsReport struct {
	Topics  map[string]LabelStats `json:"topics"`
	Summary StatsSummary          `json:"summary"`
}

// TopicAccuracy buckets logged confidence per topic. High means
// confidence > 0.8, low means confidence < 0.7.
type TopicAccuracy struct {
	TotalPredictions  int64   `json:"total_predictions"`
	AvgConfidence     float64 `json:"avg_confidence"`
	HighConfidencePct float64 `json:"high_confidence_pct"`
	LowConfidencePct  float64 `json:"low_confidence_pct"`
}
