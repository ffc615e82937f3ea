package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/newscope/newscope/internal/config"
	"github.com/newscope/newscope/pkg/models"
)

// Remote implements models.Classifier against an HTTP scoring service
// (e.g. a TorchServe/Triton-style sidecar hosting the fine-tuned model).
type Remote struct {
	baseURL string
	device  string
	version string
	classes []string
	client  *http.Client
}

type modelMetadata struct {
	Classes []string `json:"classes"`
	Version string   `json:"version"`
}

type scoreRequest struct {
	Text   string `json:"text"`
	Device string `json:"device,omitempty"`
}

type scoreBatchRequest struct {
	Texts  []string `json:"texts"`
	Device string   `json:"device,omitempty"`
}

type scoreResponse struct {
	Probabilities map[string]float64 `json:"probabilities"`
}

type scoreBatchResponse struct {
	Results []scoreResponse `json:"results"`
}

// NewRemote creates the backend and loads model metadata. A metadata
// failure is returned to the caller so startup can abort.
func NewRemote(ctx context.Context, cfg config.ClassifierConfig) (*Remote, error) {
	r := &Remote{
		baseURL: cfg.BaseURL,
		device:  cfg.Device,
		version: cfg.ModelVersion,
		client:  &http.Client{Timeout: cfg.Timeout},
	}

	meta, err := r.loadMetadata(ctx)
	if err != nil {
		return nil, fmt.Errorf("load model metadata: %w", err)
	}
	r.classes = meta.Classes
	if meta.Version != "" {
		r.version = meta.Version
	}

	return r, nil
}

func (r *Remote) Name() string { return "remote" }
func (r *Remote) Version() string { return r.version }
func (r *Remote) Classes() []string { return r.classes }

func (r *Remote) loadMetadata(ctx context.Context) (*modelMetadata, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/v1/model", nil)
	if err != nil {
		return nil, err
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: metadata returned status %d", ErrInvalidResponse, resp.StatusCode)
	}

	var meta modelMetadata
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if len(meta.Classes) == 0 {
		return nil, fmt.Errorf("%w: metadata reports no classes", ErrInvalidResponse)
	}
	return &meta, nil
}

// Predict scores a single text. Backend failures map onto the package
// sentinels so the orchestrator can distinguish an unreachable model
// from a bad inference.
func (r *Remote) Predict(ctx context.Context, text string) (models.Prediction, error) {
	var out scoreResponse
	if err := r.post(ctx, "/v1/score", scoreRequest{Text: text, Device: r.device}, &out); err != nil {
		return models.Prediction{}, err
	}
	return FromDistribution(out.Probabilities)
}

// PredictBatch scores texts in order with a single round trip.
func (r *Remote) PredictBatch(ctx context.Context, texts []string) ([]models.Prediction, error) {
	var out scoreBatchResponse
	if err := r.post(ctx, "/v1/score/batch", scoreBatchRequest{Texts: texts, Device: r.device}, &out); err != nil {
		return nil, err
	}
	if len(out.Results) != len(texts) {
		return nil, fmt.Errorf("%w: got %d results for %d texts", ErrInvalidResponse, len(out.Results), len(texts))
	}

	preds := make([]models.Prediction, len(out.Results))
	for i, res := range out.Results {
		pred, err := FromDistribution(res.Probabilities)
		if err != nil {
			return nil, err
		}
		preds[i] = pred
	}
	return preds, nil
}

func (r *Remote) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal score request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusServiceUnavailable {
		return fmt.Errorf("%w: scoring returned status %d", ErrBackendUnavailable, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: scoring returned status %d", ErrInference, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return nil
}

var _ models.Classifier = (*Remote)(nil)
