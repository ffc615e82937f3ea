package classifier

import (
	"context"
	"crypto/sha256"
	"math"

	"github.com/newscope/newscope/pkg/models"
)

// DefaultClasses is the topic set of the shipped news model, used by the
// mock backend and by tests.
var DefaultClasses = []string{
	"BUSINESS", "ENTERTAINMENT", "HEALTH", "NATION",
	"SCIENCE", "SPORTS", "TECHNOLOGY", "WORLD",
}

// Mock satisfies models.Classifier for development and testing. Without
// hooks it scores deterministically: the same text always yields the
// same distribution.
type Mock struct {
	Name_       string
	Version_    string
	Classes_    []string
	PredictFunc func(ctx context.Context, text string) (models.Prediction, error)
}

// NewMock returns a deterministic mock backend.
func NewMock(version string) *Mock {
	return &Mock{
		Name_:    "mock",
		Version_: version,
		Classes_: DefaultClasses,
	}
}

// NewFailingMock returns a mock backend whose predictions always fail
// with the given error.
func NewFailingMock(err error) *Mock {
	return &Mock{
		Name_:    "mock-failing",
		Version_: "mock-v0",
		Classes_: DefaultClasses,
		PredictFunc: func(_ context.Context, _ string) (models.Prediction, error) {
			return models.Prediction{}, err
		},
	}
}

func (m *Mock) Name() string { return m.Name_ }
func (m *Mock) Version() string { return m.Version_ }
func (m *Mock) Classes() []string { return m.Classes_ }

func (m *Mock) Predict(ctx context.Context, text string) (models.Prediction, error) {
	if m.PredictFunc != nil {
		return m.PredictFunc(ctx, text)
	}
	return m.score(text)
}

func (m *Mock) PredictBatch(ctx context.Context, texts []string) ([]models.Prediction, error) {
	preds := make([]models.Prediction, len(texts))
	for i, text := range texts {
		pred, err := m.Predict(ctx, text)
		if err != nil {
			return nil, err
		}
		preds[i] = pred
	}
	return preds, nil
}

// score derives a softmax distribution from the text hash so outputs
// look like real model scores while staying stable across calls.
func (m *Mock) score(text string) (models.Prediction, error) {
	sum := sha256.Sum256([]byte(text))

	logits := make([]float64, len(m.Classes_))
	var total float64
	for i := range m.Classes_ {
		logits[i] = math.Exp(float64(sum[i%len(sum)]) / 64.0)
		total += logits[i]
	}

	probs := make(map[string]float64, len(m.Classes_))
	for i, class := range m.Classes_ {
		probs[class] = logits[i] / total
	}

	return FromDistribution(probs)
}

var _ models.Classifier = (*Mock)(nil)
