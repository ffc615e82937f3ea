package handler

import (
	"net/http"

	"github.com/newscope/newscope/internal/api/response"
	"github.com/newscope/newscope/internal/cache"
	"github.com/newscope/newscope/pkg/models"
)

// NewInfoHandler returns the http.HandlerFunc for GET /info.
func NewInfoHandler(clf models.Classifier, c cache.Cache, authEnabled bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, struct {
			Service      string   `json:"service"`
			Model        string   `json:"model"`
			ModelVersion string   `json:"model_version"`
			Classes      []string `json:"classes"`
			CacheState   string   `json:"cache_state"`
			AuthEnabled  bool     `json:"auth_enabled"`
		}{
			Service:      "newscope",
			Model:        clf.Name(),
			ModelVersion: clf.Version(),
			Classes:      clf.Classes(),
			CacheState:   c.State().String(),
			AuthEnabled:  authEnabled,
		})
	}
}
