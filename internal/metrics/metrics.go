// SPDX-License-Identifier: MIT

// Package metrics provides Prometheus metrics for the download pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// JobsTotal counts terminal job outcomes by result
	// (completed / interrupted / failed).
	JobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mediadl_jobs_total",
		Help: "Total number of download jobs, by terminal result.",
	}, []string{"result"})

	// DownloadBytesTotal counts bytes streamed to disk across all jobs.
	DownloadBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mediadl_download_bytes_total",
		Help: "Total number of payload bytes streamed to temporary files.",
	})

	// TransformStepsTotal counts post-processing step outcomes by step and
	// outcome (applied / skipped / failed).
	TransformStepsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mediadl_transform_steps_total",
		Help: "Total number of post-processing steps, by step and outcome.",
	}, []string{"step", "outcome"})

	// DeletesTotal counts delete-adjacent operations by kind and result.
	DeletesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mediadl_deletes_total",
		Help: "Total number of delete operations, by kind and result.",
	}, []string{"kind", "result"})

	// ActiveOperations tracks operations currently in flight, by name.
	ActiveOperations = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "mediadl_active_operations",
		Help: "Current number of active named operations.",
	}, []string{"operation"})

	// BusDroppedTotal counts bus publishes abandoned due to context
	// cancellation, by topic and reason.
	BusDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mediadl_bus_dropped_total",
		Help: "Total number of dropped bus publishes, by topic and reason.",
	}, []string{"topic", "reason"})

	// JobDuration observes total job duration by result.
	JobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mediadl_job_duration_seconds",
		Help:    "Download job duration in seconds, by terminal result.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	}, []string{"result"})
)

// RecordJob increments the job counter and observes its duration.
func RecordJob(result string, seconds float64) {
	JobsTotal.WithLabelValues(result).Inc()
	JobDuration.WithLabelValues(result).Observe(seconds)
}

// AddDownloadBytes accumulates streamed payload bytes.
func AddDownloadBytes(n int64) {
	if n > 0 {
		DownloadBytesTotal.Add(float64(n))
	}
}

// RecordTransformStep increments the step counter.
func RecordTransformStep(step, outcome string) {
	TransformStepsTotal.WithLabelValues(step, outcome).Inc()
}

// RecordDelete increments the delete counter.
func RecordDelete(kind, result string) {
	DeletesTotal.WithLabelValues(kind, result).Inc()
}

// IncActiveOperation marks an operation as started.
func IncActiveOperation(name string) {
	ActiveOperations.WithLabelValues(name).Inc()
}

// DecActiveOperation marks an operation as finished.
func DecActiveOperation(name string) {
	ActiveOperations.WithLabelValues(name).Dec()
}

// IncBusDrop counts a dropped bus publish.
func IncBusDrop(topic, reason string) {
	BusDroppedTotal.WithLabelValues(topic, reason).Inc()
}
