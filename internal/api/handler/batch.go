package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/newscope/newscope/internal/api/response"
	"github.com/newscope/newscope/internal/classifier"
	"github.com/newscope/newscope/internal/evaluate"
	"github.com/newscope/newscope/internal/predict"
)

// BatchPredictor defines the multi-text interface the handler depends on.
type BatchPredictor interface {
	PredictBatch(ctx context.Context, texts []string, meta predict.RequestMeta) ([]predict.Result, error)
	ModelVersion() string
}

// Evaluator runs labeled batches through the model.
type Evaluator interface {
	Run(ctx context.Context, items []evaluate.Item, includeMetrics bool) evaluate.Report
}

type batchResponse struct {
	Predictions  []predictionResponse `json:"predictions"`
	Count        int                  `json:"count"`
	ModelVersion string               `json:"model_version"`
}

// NewBatchHandler returns the http.HandlerFunc for POST /predict/batch.
// The route serves two request shapes: a plain texts list, and a
// labeled items list that is scored by the evaluator.
func NewBatchHandler(svc BatchPredictor, eval Evaluator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Texts          []string        `json:"texts"`
			Items          []evaluate.Item `json:"items"`
			IncludeMetrics bool            `json:"include_metrics"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		switch {
		case len(req.Items) > 0:
			serveLabeledBatch(w, r, eval, req.Items, req.IncludeMetrics)
		case len(req.Texts) > 0:
			serveSimpleBatch(w, r, svc, req.Texts)
		default:
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
				"either texts or items is required", nil)
		}
	}
}

func serveSimpleBatch(w http.ResponseWriter, r *http.Request, svc BatchPredictor, texts []string) {
	if len(texts) > classifier.MaxBatchSize {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
			fmt.Sprintf("texts must contain at most %d entries", classifier.MaxBatchSize), nil)
		return
	}
	for i, text := range texts {
		if msg := validateText(text); msg != "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
				fmt.Sprintf("texts[%d]: %s", i, msg), nil)
			return
		}
	}

	results, err := svc.PredictBatch(r.Context(), texts, requestMeta(r))
	if err != nil {
		writeInferenceError(w, err)
		return
	}

	version := svc.ModelVersion()
	preds := make([]predictionResponse, len(results))
	for i, res := range results {
		preds[i] = predictionResponse{
			PredictedTopic: res.Prediction.Label,
			Confidence:     res.Prediction.Confidence,
			Probabilities:  res.Prediction.Probabilities,
			Cached:         res.Cached,
			LatencyMs:      res.LatencyMs,
			ModelVersion:   version,
		}
	}
	response.JSON(w, batchResponse{
		Predictions:  preds,
		Count:        len(preds),
		ModelVersion: version,
	})
}

func serveLabeledBatch(w http.ResponseWriter, r *http.Request, eval Evaluator, items []evaluate.Item, includeMetrics bool) {
	if len(items) > evaluate.MaxItems {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
			fmt.Sprintf("items must contain at most %d entries", evaluate.MaxItems), nil)
		return
	}
	for i, item := range items {
		if msg := validateText(item.Text); msg != "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
				fmt.Sprintf("items[%d]: %s", i, msg), nil)
			return
		}
	}

	response.JSON(w, eval.Run(r.Context(), items, includeMetrics))
}
