package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	DocumentsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studyhall_documents_processed_total",
			Help: "Documents that finished synchronous processing, by terminal status",
		},
		[]string{"status"},
	)

	PipelineStageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "studyhall_pipeline_stage_duration_seconds",
			Help:    "Duration of each document pipeline stage",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300},
		},
		[]string{"stage"},
	)

	ChunksCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "studyhall_chunks_created_total",
			Help: "Document chunks persisted",
		},
	)

	ConceptsExtracted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "studyhall_concepts_extracted_total",
			Help: "Concepts persisted after merge and ordering",
		},
	)

	ExerciseGenerationFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "studyhall_exercise_generation_failures_total",
			Help: "Per-concept exercise generation failures",
		},
	)

	LLMTokensUsed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studyhall_llm_tokens_used_total",
			Help: "LLM tokens consumed",
		},
		[]string{"model", "type"},
	)

	ReviewSubmissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studyhall_review_submissions_total",
			Help: "Exercise answer submissions, by correctness",
		},
		[]string{"result"},
	)

	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studyhall_cache_hits_total",
			Help: "Read cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studyhall_cache_misses_total",
			Help: "Read cache misses",
		},
		[]string{"cache_type"},
	)
)

func Init() {
	prometheus.MustRegister(DocumentsProcessed)
	prometheus.MustRegister(PipelineStageDuration)
	prometheus.MustRegister(ChunksCreated)
	prometheus.MustRegister(ConceptsExtracted)
	prometheus.MustRegister(ExerciseGenerationFailures)
	prometheus.MustRegister(LLMTokensUsed)
	prometheus.MustRegister(ReviewSubmissions)
	prometheus.MustRegister(CacheHits)
	prometheus.MustRegister(CacheMisses)
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
