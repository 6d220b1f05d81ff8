package usecase

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/skitrax/skitrax-telemetry-service/internal/domain/entity"
	"github.com/skitrax/skitrax-telemetry-service/internal/domain/port"
	"github.com/skitrax/skitrax-telemetry-service/internal/infra/metrics"
	"github.com/skitrax/skitrax-telemetry-service/internal/trajectory"
)

// DefaultBatchWorkers bounds extraction concurrency when the caller does
// not choose one. Each in-flight recording holds a decoder process and one
// block buffer, so the bound is deliberately small.
const DefaultBatchWorkers = 4

// RecordingExtractor is what the batch needs from the extraction stage.
// *TrackExtractor satisfies it.
type RecordingExtractor interface {
	Extract(ctx context.Context, rec entity.LogicalRecording) (entity.GeoTrack, error)
}

// BatchProcessor fans a set of recordings over a bounded worker pool. One
// recording's failure never touches its siblings; the batch always runs to
// completion and reports every outcome.
type BatchProcessor struct {
	extractor RecordingExtractor
	store     port.TrackStore
	workers   int
	logger    *zap.Logger
}

func NewBatchProcessor(
	extractor RecordingExtractor,
	store port.TrackStore,
	workers int,
	logger *zap.Logger,
) *BatchProcessor {
	if workers <= 0 {
		workers = DefaultBatchWorkers
	}
	return &BatchProcessor{
		extractor: extractor,
		store:     store,
		workers:   workers,
		logger:    logger,
	}
}

// Run processes every recording and returns the finalized batch. prefailed
// carries outcomes settled before extraction started (grouping failures);
// they appear in the result set like any other failure.
func (b *BatchProcessor) Run(
	ctx context.Context,
	recordings []entity.LogicalRecording,
	prefailed []entity.RecordingResult,
) entity.BatchResult {
	tracer := otel.Tracer("usecase")
	ctx, span := tracer.Start(ctx, "BatchProcessor.Run")
	defer span.End()
	span.SetAttributes(
		attribute.Int("batch.recordings", len(recordings)),
		attribute.Int("batch.prefailed", len(prefailed)),
	)

	var batch entity.BatchResult
	for _, r := range prefailed {
		metrics.RecordingsProcessedTotal.WithLabelValues("failed").Inc()
		batch.Add(r)
	}

	jobs := make(chan entity.LogicalRecording)
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < b.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for rec := range jobs {
				res := b.processOne(ctx, rec)
				mu.Lock()
				batch.Add(res)
				mu.Unlock()
			}
		}()
	}

	for _, rec := range recordings {
		jobs <- rec
	}
	close(jobs)
	wg.Wait()

	batch.Finalize()

	b.logger.Info("batch finished",
		zap.Int("succeeded", batch.Succeeded),
		zap.Int("failed", batch.Failed),
	)
	return batch
}

func (b *BatchProcessor) processOne(ctx context.Context, rec entity.LogicalRecording) entity.RecordingResult {
	tracer := otel.Tracer("usecase")
	ctx, span := tracer.Start(ctx, "process_recording")
	defer span.End()
	span.SetAttributes(attribute.String("recording.id", rec.ID))

	metrics.ActiveWorkers.Inc()
	defer metrics.ActiveWorkers.Dec()

	log := b.logger.With(zap.String("recording_id", rec.ID))
	log.Info("recording picked up", zap.Int("chunks", len(rec.Chunks)))

	start := time.Now()
	track, err := b.extractor.Extract(ctx, rec)
	if err != nil {
		return b.failed(rec, err, log)
	}

	writeStart := time.Now()
	path, err := b.store.Write(ctx, track)
	metrics.ExtractionStageDuration.WithLabelValues("write").Observe(time.Since(writeStart).Seconds())
	if err != nil {
		return b.failed(rec, err, log)
	}

	sum := trajectory.Summarize(track)

	metrics.RecordingsProcessedTotal.WithLabelValues("succeeded").Inc()
	metrics.ExtractionStageDuration.WithLabelValues("total").Observe(time.Since(start).Seconds())

	log.Info("recording extracted",
		zap.String("track", path),
		zap.Int("samples", sum.SampleCount),
		zap.Float64("distance_m", sum.TotalDistanceMeters),
		zap.Float64("max_speed_kmh", sum.MaxSpeedKmh),
	)

	return entity.RecordingResult{
		RecordingID:     rec.ID,
		Status:          entity.JobStatusSucceeded,
		TrackPath:       path,
		SampleCount:     sum.SampleCount,
		DistanceMeters:  sum.TotalDistanceMeters,
		MaxSpeedKmh:     sum.MaxSpeedKmh,
		DurationSeconds: sum.DurationSeconds,
	}
}

func (b *BatchProcessor) failed(rec entity.LogicalRecording, err error, log *zap.Logger) entity.RecordingResult {
	kind := entity.KindOf(err)
	log.Error("recording failed",
		zap.String("error_kind", string(kind)),
		zap.Error(err),
	)
	metrics.RecordingsProcessedTotal.WithLabelValues("failed").Inc()
	return entity.RecordingResult{
		RecordingID:  rec.ID,
		Status:       entity.JobStatusFailed,
		ErrorKind:    kind,
		ErrorMessage: err.Error(),
	}
}
