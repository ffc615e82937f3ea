// Package handler contains one constructor per route, each depending
// on a narrow interface rather than a concrete service.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"unicode/utf8"

	mw "github.com/newscope/newscope/internal/api/middleware"
	"github.com/newscope/newscope/internal/api/response"
	"github.com/newscope/newscope/internal/classifier"
	"github.com/newscope/newscope/internal/predict"
)

const maxTextChars = 512

// Predictor defines the single-prediction interface the handler
// depends on.
type Predictor interface {
	Predict(ctx context.Context, text string, useCache bool, meta predict.RequestMeta) (predict.Result, error)
	ModelVersion() string
}

type predictionResponse struct {
	PredictedTopic string             `json:"predicted_topic"`
	Confidence     float64            `json:"confidence"`
	Probabilities  map[string]float64 `json:"probabilities"`
	Cached         bool               `json:"cached"`
	LatencyMs      float64            `json:"latency_ms"`
	ModelVersion   string             `json:"model_version"`
}

// NewPredictHandler returns the http.HandlerFunc for POST /predict.
func NewPredictHandler(svc Predictor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Text     string `json:"text"`
			UseCache *bool  `json:"use_cache"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		if msg := validateText(req.Text); msg != "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", msg, nil)
			return
		}

		useCache := true
		if req.UseCache != nil {
			useCache = *req.UseCache
		}

		res, err := svc.Predict(r.Context(), req.Text, useCache, requestMeta(r))
		if err != nil {
			writeInferenceError(w, err)
			return
		}

		response.JSON(w, predictionResponse{
			PredictedTopic: res.Prediction.Label,
			Confidence:     res.Prediction.Confidence,
			Probabilities:  res.Prediction.Probabilities,
			Cached:         res.Cached,
			LatencyMs:      res.LatencyMs,
			ModelVersion:   svc.ModelVersion(),
		})
	}
}

func validateText(text string) string {
	if text == "" {
		return "text is required"
	}
	if utf8.RuneCountInString(text) > maxTextChars {
		return "text must be at most 512 characters"
	}
	return ""
}

func writeInferenceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, classifier.ErrBackendUnavailable):
		response.Error(w, http.StatusServiceUnavailable, "MODEL_UNAVAILABLE",
			"The classification backend is not available", nil)
	default:
		response.Error(w, http.StatusInternalServerError, "INFERENCE_ERROR",
			"Classification failed", nil)
	}
}

func requestMeta(r *http.Request) predict.RequestMeta {
	return predict.RequestMeta{
		IPAddress: mw.ClientIP(r),
		UserAgent: r.UserAgent(),
	}
}
