package handler

import (
	"net/http"

	"github.com/newscope/newscope/internal/api/response"
	"github.com/newscope/newscope/internal/cache"
)

// NewCacheClearHandler returns the http.HandlerFunc for GET /cache/clear.
// The flush wipes the whole cache database, not just prediction keys.
func NewCacheClearHandler(c cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !c.FlushAll(r.Context()) {
			response.Error(w, http.StatusServiceUnavailable, "CACHE_UNAVAILABLE",
				"Cache is not connected", nil)
			return
		}
		response.JSON(w, struct {
			Flushed bool `json:"flushed"`
		}{Flushed: true})
	}
}
