// Package models contains shared data models used across the newscope codebase.
package models

import (
	"context"
)

// Classifier is the core interface every scoring backend must implement.
// The model itself is opaque: tokenization and inference live behind this
// boundary. Never call a specific backend directly — always inject this
// interface.
type Classifier interface {
	// Predict scores a single text and returns the full prediction.
	Predict(ctx context.Context, text string) (Prediction, error)
	// PredictBatch scores texts in order. Callers enforce the batch size cap.
	PredictBatch(ctx context.Context, texts []string) ([]Prediction, error)
	// Classes returns the label set the model was trained on.
	Classes() []string
	// Version identifies the loaded model weights (e.g. "distilbert-news-v2").
	Version() string
	// Name returns the backend identifier (e.g. "remote", "mock").
	Name() string
}

// Prediction is the output of a single classification. Probabilities sum
// to ~1.0, Label is the arg-max key of Probabilities, and
// Confidence == Probabilities[Label].
type Prediction struct {
	Label         string             `json:"label"`
	Confidence    float64            `json:"confidence"`
	Probabilities map[string]float64 `json:"probabilities"`
}
