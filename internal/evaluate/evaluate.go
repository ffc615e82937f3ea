// Package evaluate runs labeled batches through the classifier and
// scores the results. It talks to the model only; evaluation traffic
// never touches the cache or the analytics log.
package evaluate

import (
	"context"
	"time"

	"github.com/newscope/newscope/pkg/models"
)

// MaxItems bounds one evaluation batch.
const MaxItems = 1000

// Item is one labeled example. GroundTruth is optional; unlabeled
// items are still predicted but excluded from metrics.
type Item struct {
	ID          string `json:"id"`
	Text        string `json:"text"`
	GroundTruth string `json:"ground_truth,omitempty"`
}

// ItemResult is one item's outcome. Error is set (and the prediction
// fields zero) when inference failed for that item. IsCorrect is nil
// for unlabeled or failed items.
type ItemResult struct {
	ID             string  `json:"id"`
	Text           string  `json:"text"`
	GroundTruth    string  `json:"ground_truth,omitempty"`
	PredictedTopic string  `json:"predicted_topic,omitempty"`
	Confidence     float64 `json:"confidence,omitempty"`
	IsCorrect      *bool   `json:"is_correct,omitempty"`
	Error          string  `json:"error,omitempty"`
}

// Report is the full outcome of one evaluation run. Metrics is nil
// unless requested and at least one labeled item succeeded.
type Report struct {
	TotalItems  int          `json:"total_items"`
	Successful  int          `json:"successful"`
	Failed      int          `json:"failed"`
	Results     []ItemResult `json:"results"`
	Metrics     *Metrics     `json:"metrics,omitempty"`
	ExecutionMs float64      `json:"execution_ms"`
}

// Runner evaluates batches against one classifier.
type Runner struct {
	classifier models.Classifier
}

// NewRunner binds the runner to a classifier.
func NewRunner(clf models.Classifier) *Runner {
	return &Runner{classifier: clf}
}

// Run predicts every item and, when includeMetrics is set, scores the
// labeled subset. One item failing never aborts the batch; the failure
// is recorded in that item's result.
func (r *Runner) Run(ctx context.Context, items []Item, includeMetrics bool) Report {
	start := time.Now()
	report := Report{
		TotalItems: len(items),
		Results:    make([]ItemResult, 0, len(items)),
	}

	var yTrue, yPred []string

	for _, item := range items {
		res := ItemResult{
			ID:          item.ID,
			Text:        item.Text,
			GroundTruth: item.GroundTruth,
		}

		pred, err := r.classifier.Predict(ctx, item.Text)
		if err != nil {
			res.Error = err.Error()
			report.Failed++
			report.Results = append(report.Results, res)
			continue
		}

		res.PredictedTopic = pred.Label
		res.Confidence = pred.Confidence
		report.Successful++

		if item.GroundTruth != "" {
			correct := pred.Label == item.GroundTruth
			res.IsCorrect = &correct
			yTrue = append(yTrue, item.GroundTruth)
			yPred = append(yPred, pred.Label)
		}
		report.Results = append(report.Results, res)
	}

	if includeMetrics && len(yTrue) > 0 {
		m := ComputeMetrics(yTrue, yPred)
		report.Metrics = &m
	}

	report.ExecutionMs = float64(time.Since(start).Microseconds()) / 1000.0
	return report
}
