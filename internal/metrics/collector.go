// Package metrics provides Prometheus metrics for the analysis pipeline and
// the HTTP endpoint that serves them.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	analysesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "video_analytics_analyses_total",
			Help: "Total combined analyses started",
		},
	)

	tasksCompletedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "video_analytics_tasks_completed_total",
			Help: "Analysis tasks completed successfully",
		},
		[]string{"aspect"},
	)

	tasksFailedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "video_analytics_tasks_failed_total",
			Help: "Analysis tasks that failed or timed out",
		},
		[]string{"aspect"},
	)

	taskDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "video_analytics_task_duration_seconds",
			Help:    "Wall clock duration of individual analysis tasks",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		},
		[]string{"aspect"},
	)

	analysisDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "video_analytics_analysis_duration_seconds",
			Help:    "Wall clock duration of combined analyses",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		},
	)

	parallelEfficiency = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "video_analytics_parallel_efficiency",
			Help: "Parallel efficiency of the most recent analysis (0.0 to 1.0)",
		},
	)

	successRate = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "video_analytics_success_rate",
			Help: "Task success rate of the most recent analysis (0.0 to 1.0)",
		},
	)

	metadataCacheSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "video_analytics_metadata_cache_size",
			Help: "Entries currently held in the metadata cache",
		},
	)
)

// Collector registers the pipeline metrics and exposes recording methods.
// It satisfies the engine's Observer interface. Safe for concurrent use.
type Collector struct{}

// NewCollector registers the metrics with the default registry.
func NewCollector() *Collector {
	return NewCollectorWithRegistry(prometheus.DefaultRegisterer)
}

// NewCollectorWithRegistry registers the metrics with a custom registry.
// Tests use this to avoid duplicate-registration panics.
func NewCollectorWithRegistry(registry prometheus.Registerer) *Collector {
	registry.MustRegister(
		analysesTotal,
		tasksCompletedTotal,
		tasksFailedTotal,
		taskDurationSeconds,
		analysisDurationSeconds,
		parallelEfficiency,
		successRate,
		metadataCacheSize,
	)
	return &Collector{}
}

// ObserveTask records one analysis task outcome.
func (c *Collector) ObserveTask(aspect string, d time.Duration, success bool) {
	taskDurationSeconds.WithLabelValues(aspect).Observe(d.Seconds())
	if success {
		tasksCompletedTotal.WithLabelValues(aspect).Inc()
	} else {
		tasksFailedTotal.WithLabelValues(aspect).Inc()
	}
}

// ObserveAnalysis records one combined analysis outcome.
func (c *Collector) ObserveAnalysis(d time.Duration, efficiency, rate float64) {
	analysesTotal.Inc()
	analysisDurationSeconds.Observe(d.Seconds())
	parallelEfficiency.Set(efficiency)
	successRate.Set(rate)
}

// SetCacheSize records the metadata cache population.
func (c *Collector) SetCacheSize(n int) {
	metadataCacheSize.Set(float64(n))
}
