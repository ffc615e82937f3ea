package classifier_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newscope/newscope/internal/classifier"
	"github.com/newscope/newscope/internal/config"
)

func TestFromDistribution_ArgMax(t *testing.T) {
	pred, err := classifier.FromDistribution(map[string]float64{
		"SPORTS":     0.1,
		"TECHNOLOGY": 0.7,
		"WORLD":      0.2,
	})
	require.NoError(t, err)

	assert.Equal(t, "TECHNOLOGY", pred.Label)
	assert.Equal(t, 0.7, pred.Confidence)
	assert.Len(t, pred.Probabilities, 3)
}

func TestFromDistribution_TieBreaksLexicographically(t *testing.T) {
	pred, err := classifier.FromDistribution(map[string]float64{
		"WORLD":    0.5,
		"BUSINESS": 0.5,
	})
	require.NoError(t, err)

	assert.Equal(t, "BUSINESS", pred.Label)
	assert.Equal(t, 0.5, pred.Confidence)
}

func TestFromDistribution_Empty(t *testing.T) {
	_, err := classifier.FromDistribution(nil)
	assert.ErrorIs(t, err, classifier.ErrInvalidResponse)
}

func TestMock_Deterministic(t *testing.T) {
	m := classifier.NewMock("mock-v1")
	ctx := context.Background()

	first, err := m.Predict(ctx, "stocks rallied on earnings news")
	require.NoError(t, err)
	second, err := m.Predict(ctx, "stocks rallied on earnings news")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Contains(t, classifier.DefaultClasses, first.Label)
	assert.Equal(t, first.Probabilities[first.Label], first.Confidence)

	var sum float64
	for _, p := range first.Probabilities {
		sum += p
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestMock_DifferentTextsDiffer(t *testing.T) {
	m := classifier.NewMock("mock-v1")
	ctx := context.Background()

	a, err := m.Predict(ctx, "the match went to penalties")
	require.NoError(t, err)
	b, err := m.Predict(ctx, "new vaccine trial results published")
	require.NoError(t, err)

	assert.NotEqual(t, a.Probabilities, b.Probabilities)
}

func TestMock_PredictBatch(t *testing.T) {
	m := classifier.NewMock("mock-v1")

	preds, err := m.PredictBatch(context.Background(), []string{"one", "two", "three"})
	require.NoError(t, err)
	require.Len(t, preds, 3)

	single, err := m.Predict(context.Background(), "two")
	require.NoError(t, err)
	assert.Equal(t, single, preds[1])
}

func TestFailingMock(t *testing.T) {
	m := classifier.NewFailingMock(classifier.ErrInference)

	_, err := m.Predict(context.Background(), "anything")
	assert.ErrorIs(t, err, classifier.ErrInference)

	_, err = m.PredictBatch(context.Background(), []string{"anything"})
	assert.ErrorIs(t, err, classifier.ErrInference)
}

func TestNew_UnknownBackend(t *testing.T) {
	_, err := classifier.New(context.Background(), config.ClassifierConfig{Backend: "onnx"})
	assert.Error(t, err)
}

func TestNew_Mock(t *testing.T) {
	clf, err := classifier.New(context.Background(), config.ClassifierConfig{
		Backend:      "mock",
		ModelVersion: "v9",
	})
	require.NoError(t, err)
	assert.Equal(t, "v9", clf.Version())
	assert.Equal(t, classifier.DefaultClasses, clf.Classes())
}
