package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RecordingsProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skitrax_recordings_processed_total",
		Help: "Total number of recordings processed, by outcome",
	}, []string{"status"})

	ExtractionStageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "skitrax_extraction_stage_duration_seconds",
		Help:    "Duration of the extraction pipeline stages",
		Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
	}, []string{"stage"})

	SamplesExtractedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "skitrax_gps_samples_extracted_total",
		Help: "Total number of GPS samples extracted across all recordings",
	})

	BytesStreamedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "skitrax_video_bytes_streamed_total",
		Help: "Total video bytes streamed into the telemetry decoder",
	})

	ActiveWorkers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "skitrax_active_workers",
		Help: "Number of workers currently extracting a recording",
	})

	RetryTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skitrax_retry_total",
		Help: "Total number of extraction retries, by attempt",
	}, []string{"attempt"})
)
