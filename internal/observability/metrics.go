package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CaptionsGenerated counts caption generation attempts by content kind and outcome.
	CaptionsGenerated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "captionflow_captions_generated_total",
		Help: "Total number of caption generation attempts",
	}, []string{"kind", "outcome"})

	// CreditsRefunded counts credits returned after a failed generation.
	CreditsRefunded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "captionflow_credits_refunded_total",
		Help: "Total number of credits refunded after a failed caption generation",
	})

	// EnhancementsFinished counts enhancement jobs by terminal status.
	EnhancementsFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "captionflow_enhancements_finished_total",
		Help: "Total number of image enhancement jobs by terminal status",
	}, []string{"status"})

	EnhancementDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "captionflow_enhancement_duration_seconds",
		Help:    "Time from job pickup to terminal status",
		Buckets: []float64{5, 10, 20, 30, 60, 90, 120, 180, 300},
	})

	// PostsPublished counts publish attempts by platform and outcome.
	PostsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "captionflow_posts_published_total",
		Help: "Total number of publish attempts",
	}, []string{"platform", "outcome"})

	PostsScheduled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "captionflow_posts_scheduled_total",
		Help: "Total number of scheduled posts created",
	})

	// CompressionFallbacks counts images uploaded uncompressed because compression failed.
	CompressionFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "captionflow_compression_fallbacks_total",
		Help: "Total number of images uploaded without compression after a compression error",
	})

	// RedisErrors counts tracker cache errors by operation.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "captionflow_redis_errors_total",
		Help: "Total number of Redis errors by operation",
	}, []string{"operation"})
)
