// Package predict orchestrates a single prediction request across the
// classifier, the cache and the analytics log. Inference is the only
// stage allowed to fail a request; cache and analytics writes happen
// off the request path on a bounded worker pool.
package predict

import (
	"context"
	"time"

	"github.com/newscope/newscope/internal/analytics"
	"github.com/newscope/newscope/internal/cache"
	"github.com/newscope/newscope/pkg/models"
)

// RequestMeta is per-request client context forwarded to the analytics
// log. Both fields may be empty.
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

// Result is one served prediction plus its serving metadata.
type Result struct {
	Prediction models.Prediction
	Cached     bool
	LatencyMs  float64
}

// Service wires the classifier, cache and analytics log together.
type Service struct {
	classifier models.Classifier
	cache      cache.Cache
	analytics  analytics.Logger
	tasks      *Tasks
}

// NewService builds the orchestrator. All collaborators are required;
// degraded behavior lives inside the cache and analytics layers, not
// here.
func NewService(clf models.Classifier, c cache.Cache, log analytics.Logger, tasks *Tasks) *Service {
	return &Service{
		classifier: clf,
		cache:      c,
		analytics:  log,
		tasks:      tasks,
	}
}

// ModelVersion reports the version string of the serving model.
func (s *Service) ModelVersion() string {
	return s.classifier.Version()
}

// Predict serves one text. With caching enabled, a hit short-circuits
// inference; a miss (including every cache failure mode) falls through
// to the model and repopulates the cache in the background. Every
// served prediction, hit or miss, is logged asynchronously.
func (s *Service) Predict(ctx context.Context, text string, useCache bool, meta RequestMeta) (Result, error) {
	start := time.Now()

	if useCache {
		if pred, ok := s.cache.Get(ctx, text); ok {
			cacheLookups.WithLabelValues("hit").Inc()
			predictionsTotal.WithLabelValues("cache").Inc()

			res := Result{
				Prediction: pred,
				Cached:     true,
				LatencyMs:  msSince(start),
			}
			s.logAsync(text, res, meta)
			return res, nil
		}
		cacheLookups.WithLabelValues("miss").Inc()
	}

	pred, err := s.classifier.Predict(ctx, text)
	if err != nil {
		return Result{}, err
	}
	predictionsTotal.WithLabelValues("model").Inc()

	res := Result{
		Prediction: pred,
		Cached:     false,
		LatencyMs:  msSince(start),
	}

	// Populate even when the caller opted out of the lookup: the next
	// caller who does want the cache should find the entry there.
	s.tasks.TrySubmit(func(ctx context.Context) {
		s.cache.Set(ctx, text, pred)
	})
	s.logAsync(text, res, meta)
	return res, nil
}

// PredictBatch serves up to MaxBatchSize texts in one model call. The
// cache is bypassed; batch traffic is evaluation-shaped and would churn
// it. Per-item latency is the batch latency split evenly.
func (s *Service) PredictBatch(ctx context.Context, texts []string, meta RequestMeta) ([]Result, error) {
	start := time.Now()

	preds, err := s.classifier.PredictBatch(ctx, texts)
	if err != nil {
		return nil, err
	}

	perItemMs := msSince(start)
	if len(texts) > 0 {
		perItemMs /= float64(len(texts))
	}

	results := make([]Result, len(preds))
	for i, pred := range preds {
		predictionsTotal.WithLabelValues("model").Inc()
		results[i] = Result{
			Prediction: pred,
			Cached:     false,
			LatencyMs:  perItemMs,
		}
		s.logAsync(texts[i], results[i], meta)
	}
	return results, nil
}

// logAsync queues the analytics write; dropping it under load is fine.
func (s *Service) logAsync(text string, res Result, meta RequestMeta) {
	version := s.classifier.Version()
	s.tasks.TrySubmit(func(ctx context.Context) {
		s.analytics.LogPrediction(ctx, analytics.LogParams{
			Text:         text,
			Label:        res.Prediction.Label,
			Confidence:   res.Prediction.Confidence,
			LatencyMs:    res.LatencyMs,
			ModelVersion: version,
			Cached:       res.Cached,
			IPAddress:    meta.IPAddress,
			UserAgent:    meta.UserAgent,
		})
	})
}

func msSince(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}
