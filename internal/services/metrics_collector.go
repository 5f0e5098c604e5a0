package services

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/temcen/copyink/pkg/models"
)

// MetricsCollector holds the Prometheus series for the generation pipeline
type MetricsCollector struct {
	generationRequests  *prometheus.CounterVec
	rejections          *prometheus.CounterVec
	filteredItems       *prometheus.CounterVec
	backfilledItems     *prometheus.CounterVec
	generatorLatency    *prometheus.HistogramVec
	quotaCommitFailures prometheus.Counter
	publishFailures     prometheus.Counter
}

// NewMetricsCollector registers the pipeline metrics with reg
func NewMetricsCollector(reg prometheus.Registerer) *MetricsCollector {
	factory := promauto.With(reg)

	return &MetricsCollector{
		generationRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "copy_generation_requests_total",
			Help: "Completed generation requests by content type and result source",
		}, []string{"content_type", "source"}),

		rejections: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "copy_generation_rejections_total",
			Help: "Requests rejected before generation",
		}, []string{"content_type", "reason"}),

		filteredItems: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "copy_generation_filtered_items_total",
			Help: "Generated items dropped by the content policy or as duplicates",
		}, []string{"content_type"}),

		backfilledItems: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "copy_generation_backfilled_items_total",
			Help: "Fallback items appended to reach the contract size",
		}, []string{"content_type"}),

		generatorLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "copy_generator_duration_seconds",
			Help:    "Time spent in the external generator including retries",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
		}, []string{"content_type", "outcome"}),

		quotaCommitFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "copy_quota_commit_failures_total",
			Help: "Responses served after the quota increment was refused",
		}),

		publishFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "copy_usage_publish_failures_total",
			Help: "Usage events that could not be published",
		}),
	}
}

func (mc *MetricsCollector) RecordRejection(ct models.ContentType, reason string) {
	mc.rejections.WithLabelValues(string(ct), reason).Inc()
}

func (mc *MetricsCollector) RecordGeneratorCall(ct models.ContentType, outcome string, elapsed time.Duration) {
	mc.generatorLatency.WithLabelValues(string(ct), outcome).Observe(elapsed.Seconds())
}

// RecordResult counts a completed request and its diagnostics
func (mc *MetricsCollector) RecordResult(result *models.GenerationResult) {
	ct := string(result.ContentType)
	mc.generationRequests.WithLabelValues(ct, string(result.Source)).Inc()
	mc.filteredItems.WithLabelValues(ct).Add(float64(result.Diagnostics.FilteredCount + result.Diagnostics.DuplicateCount))
	mc.backfilledItems.WithLabelValues(ct).Add(float64(result.Diagnostics.BackfilledCount))
	if result.Diagnostics.QuotaCommitFailed {
		mc.quotaCommitFailures.Inc()
	}
}

func (mc *MetricsCollector) RecordPublishFailure() {
	mc.publishFailures.Inc()
}
