package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	JobsProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "frame_sampler_jobs_processed_total",
		Help: "Total number of sampling jobs processed, by status",
	}, []string{"status"})

	JobProcessingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "frame_sampler_job_stage_duration_seconds",
		Help:    "Duration of each sampling job stage",
		Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
	}, []string{"stage"})

	ExtractionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "frame_sampler_extractions_total",
		Help: "Total number of extractions, by outcome",
	}, []string{"outcome"})

	FramesSampledTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "frame_sampler_frames_sampled_total",
		Help: "Total number of frames written, by sampling strategy",
	}, []string{"strategy"})

	FramesSkippedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "frame_sampler_frames_skipped_total",
		Help: "Total number of timestamps that produced no frame, by failing stage",
	}, []string{"stage"})

	ActiveExtractions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "frame_sampler_active_extractions",
		Help: "Number of extractions currently running",
	})

	RetryTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "frame_sampler_retry_total",
		Help: "Total number of job retries",
	}, []string{"attempt"})
)
