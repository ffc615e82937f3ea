package models

import (
	"time"
)

// LogRecord is one row of the append-only predictions table. Rows are
// written at most once per served request and never mutated or deleted.
type LogRecord struct {
	ID             int64     `db:"id"              json:"id"`
	Timestamp      time.Time `db:"timestamp"       json:"timestamp"`
	TextHash       string    `db:"text_hash"       json:"text_hash,omitempty"`
	TextPreview    string    `db:"text_preview"    json:"text_preview"`
	PredictedTopic string    `db:"predicted_topic" json:"predicted_topic"`
	Confidence     float64   `db:"confidence"      json:"confidence"`
	LatencyMs      float64   `db:"latency_ms"      json:"latency_ms"`
	ModelVersion   string    `db:"model_version"   json:"model_version"`
	Cached         bool      `db:"cached"          json:"cached"`
}
