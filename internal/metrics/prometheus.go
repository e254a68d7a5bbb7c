package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	GenerationTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "issueops_generation_total",
			Help: "Total generated artifacts by type and mode (backend or fallback)",
		},
		[]string{"artifact", "mode"},
	)

	GenerationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "issueops_generation_duration_seconds",
			Help:    "Artifact generation duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"artifact"},
	)

	RetrievalResults = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "issueops_retrieval_results",
			Help:    "Number of knowledge entries returned per retrieval",
			Buckets: []float64{0, 1, 2, 3, 5, 10},
		},
	)

	PromotionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "issueops_promotions_total",
			Help: "Knowledge-base promotion outcomes",
		},
		[]string{"outcome"},
	)

	RatingsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "issueops_ratings_total",
			Help: "Ratings received by star value",
		},
		[]string{"rating"},
	)

	TasksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "issueops_worker_tasks_total",
			Help: "Background task completions by type and status",
		},
		[]string{"type", "status"},
	)

	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "issueops_cache_hits_total",
			Help: "Total cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "issueops_cache_misses_total",
			Help: "Total cache misses",
		},
		[]string{"cache_type"},
	)
)

func Init() {
	prometheus.MustRegister(GenerationTotal)
	prometheus.MustRegister(GenerationDuration)
	prometheus.MustRegister(RetrievalResults)
	prometheus.MustRegister(PromotionsTotal)
	prometheus.MustRegister(RatingsTotal)
	prometheus.MustRegister(TasksTotal)
	prometheus.MustRegister(CacheHits)
	prometheus.MustRegister(CacheMisses)
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
