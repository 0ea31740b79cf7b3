package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	JobsProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lomokino_jobs_processed_total",
		Help: "Total number of strip jobs processed, by status",
	}, []string{"status"})

	StripProcessingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "lomokino_strip_processing_duration_seconds",
		Help:    "Duration of the strip processing pipeline",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
	}, []string{"stage"})

	BandsDetectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lomokino_bands_detected_total",
		Help: "Total number of candidate frame bands found by boundary detection",
	})

	FramesExtractedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lomokino_frames_extracted_total",
		Help: "Total number of frames extracted across all strips",
	})

	FramesRejectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lomokino_frames_rejected_total",
		Help: "Total number of bands rejected as content-free or zero-area",
	})

	ActiveWorkers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lomokino_active_workers",
		Help: "Number of currently active workers processing strips",
	})

	RetryTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lomokino_retry_total",
		Help: "Total number of retries",
	}, []string{"attempt"})
)
