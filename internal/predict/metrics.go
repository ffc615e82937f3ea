package predict

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	predictionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "newscope_predictions_total",
		Help: "Predictions served, partitioned by path taken.",
	}, []string{"source"}) // "cache" or "model"

	cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "newscope_cache_lookups_total",
		Help: "Cache-aside lookups by outcome.",
	}, []string{"outcome"}) // "hit" or "miss"

	tasksDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "newscope_background_tasks_dropped_total",
		Help: "Fire-and-forget tasks rejected because the queue was full.",
	})
)
