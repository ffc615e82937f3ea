package classifier

import (
	"context"
	"fmt"

	"github.com/newscope/newscope/internal/config"
	"github.com/newscope/newscope/pkg/models"
)

// New constructs the configured classifier backend. Called once at
// server startup; an error here aborts startup — there is no serving
// without a model.
func New(ctx context.Context, cfg config.ClassifierConfig) (models.Classifier, error) {
	switch cfg.Backend {
	case "remote":
		return NewRemote(ctx, cfg)
	case "mock":
		return NewMock(cfg.ModelVersion), nil
	default:
		return nil, fmt.Errorf("unknown classifier backend %q: must be one of remote, mock", cfg.Backend)
	}
}
