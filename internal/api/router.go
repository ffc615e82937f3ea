package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	mw "github.com/newscope/newscope/internal/api/middleware"
	"github.com/newscope/newscope/internal/api/response"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	Auth      *mw.Auth
	RateLimit *mw.RateLimit

	HealthHandler         http.HandlerFunc
	ReadinessHandler      http.HandlerFunc
	DetailedHealthHandler http.HandlerFunc
	InfoHandler           http.HandlerFunc
	PredictHandler        http.HandlerFunc
	BatchHandler          http.HandlerFunc
	BatchFromFileHandler  http.HandlerFunc
	StatsHandler          http.HandlerFunc
	LowConfidenceHandler  http.HandlerFunc
	TopicAccuracyHandler  http.HandlerFunc
	CacheClearHandler     http.HandlerFunc
}

// NewRouter builds the Chi router with the middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.Logger)
	r.Use(mw.Recovery)
	r.Use(mw.Metrics)

	// Public probes and introspection
	r.Get("/health", orNotImplemented(deps.HealthHandler))
	r.Get("/readiness", orNotImplemented(deps.ReadinessHandler))
	r.Get("/health/detailed", orNotImplemented(deps.DetailedHealthHandler))
	r.Get("/info", orNotImplemented(deps.InfoHandler))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// Serving routes
	r.Group(func(r chi.Router) {
		r.Use(deps.Auth.Authenticate)
		r.Use(deps.RateLimit.Limit)

		r.Post("/predict", orNotImplemented(deps.PredictHandler))
		r.Post("/predict/batch", orNotImplemented(deps.BatchHandler))
		r.Post("/predict/batch/from-file", orNotImplemented(deps.BatchFromFileHandler))
	})

	// Analytics and admin
	r.Group(func(r chi.Router) {
		r.Use(deps.Auth.Authenticate)

		r.Get("/stats", orNotImplemented(deps.StatsHandler))
		r.Get("/stats/low-confidence", orNotImplemented(deps.LowConfidenceHandler))
		r.Get("/stats/accuracy", orNotImplemented(deps.TopicAccuracyHandler))
		r.Get("/cache/clear", orNotImplemented(deps.CacheClearHandler))
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
