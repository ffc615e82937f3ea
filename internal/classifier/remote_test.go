package classifier_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newscope/newscope/internal/classifier"
	"github.com/newscope/newscope/internal/config"
)

// fakeBackend is a minimal scoring service for the Remote backend.
type fakeBackend struct {
	scoreStatus int
	probs       map[string]float64
}

func (f *fakeBackend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/model", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"classes": classifier.DefaultClasses,
			"version": "remote-v3",
		})
	})
	mux.HandleFunc("POST /v1/score", func(w http.ResponseWriter, r *http.Request) {
		if f.scoreStatus != 0 {
			w.WriteHeader(f.scoreStatus)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"probabilities": f.probs})
	})
	mux.HandleFunc("POST /v1/score/batch", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Texts []string `json:"texts"`
		}
		json.NewDecoder(r.Body).Decode(&req)

		results := make([]map[string]any, len(req.Texts))
		for i := range req.Texts {
			results[i] = map[string]any{"probabilities": f.probs}
		}
		json.NewEncoder(w).Encode(map[string]any{"results": results})
	})
	return mux
}

func newRemote(t *testing.T, backend *fakeBackend) *classifier.Remote {
	t.Helper()
	srv := httptest.NewServer(backend.handler())
	t.Cleanup(srv.Close)

	clf, err := classifier.NewRemote(context.Background(), config.ClassifierConfig{
		Backend:      "remote",
		BaseURL:      srv.URL,
		Timeout:      5 * time.Second,
		ModelVersion: "configured-v1",
	})
	require.NoError(t, err)
	return clf
}

func TestRemote_MetadataOverridesVersion(t *testing.T) {
	clf := newRemote(t, &fakeBackend{})

	assert.Equal(t, "remote-v3", clf.Version())
	assert.Equal(t, classifier.DefaultClasses, clf.Classes())
	assert.Equal(t, "remote", clf.Name())
}

func TestRemote_MetadataFailureAbortsConstruction(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	_, err := classifier.NewRemote(context.Background(), config.ClassifierConfig{
		BaseURL: srv.URL,
		Timeout: 5 * time.Second,
	})
	assert.Error(t, err)
}

func TestRemote_Unreachable(t *testing.T) {
	_, err := classifier.NewRemote(context.Background(), config.ClassifierConfig{
		BaseURL: "http://127.0.0.1:1",
		Timeout: time.Second,
	})
	assert.ErrorIs(t, err, classifier.ErrBackendUnavailable)
}

func TestRemote_Predict(t *testing.T) {
	clf := newRemote(t, &fakeBackend{probs: map[string]float64{
		"SPORTS": 0.9, "WORLD": 0.1,
	}})

	pred, err := clf.Predict(context.Background(), "the final whistle blew")
	require.NoError(t, err)
	assert.Equal(t, "SPORTS", pred.Label)
	assert.Equal(t, 0.9, pred.Confidence)
}

func TestRemote_Predict_ServiceUnavailable(t *testing.T) {
	clf := newRemote(t, &fakeBackend{scoreStatus: http.StatusServiceUnavailable})
	// backend goes down after construction
	_, err := clf.Predict(context.Background(), "text")
	assert.ErrorIs(t, err, classifier.ErrBackendUnavailable)
}

func TestRemote_Predict_InferenceError(t *testing.T) {
	clf := newRemote(t, &fakeBackend{scoreStatus: http.StatusInternalServerError})

	_, err := clf.Predict(context.Background(), "text")
	assert.ErrorIs(t, err, classifier.ErrInference)
}

func TestRemote_PredictBatch(t *testing.T) {
	clf := newRemote(t, &fakeBackend{probs: map[string]float64{
		"HEALTH": 0.8, "SCIENCE": 0.2,
	}})

	preds, err := clf.PredictBatch(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, preds, 2)
	assert.Equal(t, "HEALTH", preds[0].Label)
	assert.Equal(t, "HEALTH", preds[1].Label)
}

func TestRemote_PredictBatch_LengthMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/model" {
			json.NewEncoder(w).Encode(map[string]any{"classes": []string{"WORLD"}})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"results": []any{}})
	}))
	t.Cleanup(srv.Close)

	clf, err := classifier.NewRemote(context.Background(), config.ClassifierConfig{
		BaseURL: srv.URL,
		Timeout: 5 * time.Second,
	})
	require.NoError(t, err)

	_, err = clf.PredictBatch(context.Background(), []string{"a", "b"})
	assert.ErrorIs(t, err, classifier.ErrInvalidResponse)
}
