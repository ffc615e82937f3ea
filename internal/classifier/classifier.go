// Package classifier wraps the opaque scoring model behind the
// models.Classifier interface. Backends do not retry and do not cache;
// any failure propagates to the caller as-is.
package classifier

import (
	"errors"
	"fmt"
	"sort"

	"github.com/newscope/newscope/pkg/models"
)

// MaxBatchSize is the hard cap on texts per PredictBatch call,
// enforced by callers before reaching a backend.
const MaxBatchSize = 100

// Sentinel errors for classifier failures.
var (
	ErrBackendUnavailable = errors.New("classifier backend unavailable")
	ErrInference          = errors.New("inference failed")
	ErrInvalidResponse    = errors.New("classifier backend returned invalid response")
)

// FromDistribution builds a Prediction from a per-class probability map,
// selecting the arg-max label (lexicographic tie-break) so the
// label/confidence/distribution invariant holds no matter what the
// backend reported.
func FromDistribution(probs map[string]float64) (models.Prediction, error) {
	if len(probs) == 0 {
		return models.Prediction{}, fmt.Errorf("%w: empty probability distribution", ErrInvalidResponse)
	}

	labels := make([]string, 0, len(probs))
	for label := range probs {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	best := labels[0]
	for _, label := range labels[1:] {
		if probs[label] > probs[best] {
			best = label
		}
	}

	return models.Prediction{
		Label:         best,
		Confidence:    probs[best],
		Probabilities: probs,
	}, nil
}
