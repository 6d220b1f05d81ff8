package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/skitrax/skitrax-telemetry-service/internal/domain/entity"
	"github.com/skitrax/skitrax-telemetry-service/internal/domain/port"
	"github.com/skitrax/skitrax-telemetry-service/internal/geojson"
	"github.com/skitrax/skitrax-telemetry-service/internal/infra/metrics"
	"github.com/skitrax/skitrax-telemetry-service/internal/trajectory"
)

// ProcessExtractionUseCase drives one queued extraction request end to end:
// chunk download, track extraction, artifact upload, job row upkeep and
// status publishing. Returning a non-nil error from Execute asks the
// consumer to redeliver; deterministic failures are parked on the DLQ and
// acked instead.
type ProcessExtractionUseCase struct {
	repo      port.JobRepository
	storage   port.MediaStorage
	extractor RecordingExtractor
	publisher port.StatusPublisher
	dlq       port.DLQPublisher
	notifier  port.FailureNotifier
	logger    *zap.Logger
	tempDir   string
	maxRetry  int
	notifyTo  string
}

type ProcessExtractionConfig struct {
	TempDir     string
	MaxAttempts int
	// NotifyTo receives permanent-failure mail when the request itself
	// carries no uploader address.
	NotifyTo string
}

func NewProcessExtractionUseCase(
	repo port.JobRepository,
	storage port.MediaStorage,
	extractor RecordingExtractor,
	publisher port.StatusPublisher,
	dlq port.DLQPublisher,
	notifier port.FailureNotifier,
	logger *zap.Logger,
	cfg ProcessExtractionConfig,
) *ProcessExtractionUseCase {
	return &ProcessExtractionUseCase{
		repo:      repo,
		storage:   storage,
		extractor: extractor,
		publisher: publisher,
		dlq:       dlq,
		notifier:  notifier,
		logger:    logger,
		tempDir:   cfg.TempDir,
		maxRetry:  cfg.MaxAttempts,
		notifyTo:  cfg.NotifyTo,
	}
}

func (uc *ProcessExtractionUseCase) Execute(ctx context.Context, rawMsg []byte) error {
	tracer := otel.Tracer("usecase")
	ctx, span := tracer.Start(ctx, "ProcessExtractionUseCase.Execute")
	defer span.End()

	totalTimer := time.Now()

	var msg entity.ExtractionRequestMessage
	if err := json.Unmarshal(rawMsg, &msg); err != nil {
		uc.logger.Error("failed to unmarshal message", zap.Error(err), zap.ByteString("body", rawMsg))
		_ = uc.dlq.PublishToDLQ(ctx, rawMsg, "unmarshal_error: "+err.Error())
		return nil
	}
	if msg.RecordingID == "" || len(msg.ChunkKeys) == 0 {
		uc.logger.Error("rejecting incomplete extraction request", zap.ByteString("body", rawMsg))
		_ = uc.dlq.PublishToDLQ(ctx, rawMsg, "incomplete_request")
		return nil
	}

	span.SetAttributes(
		attribute.String("job.id", msg.JobID.String()),
		attribute.String("job.recording_id", msg.RecordingID),
		attribute.Int("job.chunks", len(msg.ChunkKeys)),
	)

	log := uc.logger.With(
		zap.String("job_id", msg.JobID.String()),
		zap.String("recording_id", msg.RecordingID),
	)

	job, err := uc.repo.FindByID(ctx, msg.JobID)
	if err != nil {
		job = entity.NewExtractionJob(msg.UserID, msg.RecordingID, len(msg.ChunkKeys), uc.maxRetry)
		job.ID = msg.JobID
		if err := uc.repo.Create(ctx, job); err != nil {
			log.Error("failed to create job record", zap.Error(err))
			return fmt.Errorf("create job: %w", err)
		}
	}

	if !job.CanRetry() {
		log.Warn("job exhausted attempts, sending to DLQ")
		_ = uc.handlePermanentFailure(ctx, job, msg, rawMsg, entity.ErrKindIO, "max attempts exceeded")
		return nil
	}

	job.MarkLoading()
	if err := uc.repo.Update(ctx, job); err != nil {
		log.Error("failed to update job to LOADING", zap.Error(err))
		return fmt.Errorf("update job: %w", err)
	}

	metrics.ActiveWorkers.Inc()
	defer metrics.ActiveWorkers.Dec()

	if err := uc.runPipeline(ctx, job, msg, rawMsg, log); err != nil {
		return err
	}

	metrics.ExtractionStageDuration.WithLabelValues("total").Observe(time.Since(totalTimer).Seconds())

	return nil
}

func (uc *ProcessExtractionUseCase) runPipeline(
	ctx context.Context,
	job *entity.ExtractionJob,
	msg entity.ExtractionRequestMessage,
	rawMsg []byte,
	log *zap.Logger,
) error {
	tracer := otel.Tracer("usecase")

	workDir := filepath.Join(uc.tempDir, job.ID.String())
	if err := os.MkdirAll(workDir, 0755); err != nil {
		return fmt.Errorf("create workdir: %w", err)
	}
	defer os.RemoveAll(workDir)

	// Pull every chunk out of object storage, in upload order.
	dlStart := time.Now()
	ctxDl, spanDl := tracer.Start(ctx, "download_chunks")
	chunkPaths := make([]string, 0, len(msg.ChunkKeys))
	for i, key := range msg.ChunkKeys {
		dest := filepath.Join(workDir, fmt.Sprintf("chunk_%03d.mp4", i+1))
		if err := uc.storage.DownloadChunk(ctxDl, key, dest); err != nil {
			spanDl.End()
			log.Error("failed to download chunk", zap.String("chunk_key", key), zap.Error(err))
			return uc.handleRetryableFailure(ctx, job, msg, rawMsg, entity.ErrKindIO, "download_chunk "+key+": "+err.Error(), log)
		}
		chunkPaths = append(chunkPaths, dest)
	}
	spanDl.End()
	metrics.ExtractionStageDuration.WithLabelValues("download").Observe(time.Since(dlStart).Seconds())

	job.MarkDecoding()
	if err := uc.repo.Update(ctx, job); err != nil {
		log.Error("failed to update job to DECODING", zap.Error(err))
		return fmt.Errorf("update job decoding: %w", err)
	}

	// Run the same extraction the batch CLI runs.
	recording := entity.NewRecordingFromPaths(msg.RecordingID, chunkPaths)
	track, err := uc.extractor.Extract(ctx, recording)
	if err != nil {
		kind := entity.KindOf(err)
		log.Error("extraction failed", zap.String("error_kind", string(kind)), zap.Error(err))
		if kind == entity.ErrKindIO {
			return uc.handleRetryableFailure(ctx, job, msg, rawMsg, kind, err.Error(), log)
		}
		// Decode and grouping failures are deterministic; retrying the
		// same bytes cannot succeed.
		_ = uc.handlePermanentFailure(ctx, job, msg, rawMsg, kind, err.Error())
		return nil
	}

	sum := trajectory.Summarize(track)

	// Upload the artifact, empty tracks included: "no GPS data" is a
	// durable answer, not a failure.
	upStart := time.Now()
	ctxUp, spanUp := tracer.Start(ctx, "upload_track")
	data, err := geojson.EncodeTrack(track)
	if err != nil {
		spanUp.End()
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, entity.ErrKindIO, "encode_track: "+err.Error(), log)
	}
	trackKey := fmt.Sprintf("%s/%s.geojson", msg.UserID, msg.RecordingID)
	if err := uc.storage.UploadTrack(ctxUp, trackKey, bytes.NewReader(data), int64(len(data))); err != nil {
		spanUp.End()
		log.Error("track upload failed", zap.Error(err))
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, entity.ErrKindIO, "upload_track: "+err.Error(), log)
	}
	spanUp.End()
	metrics.ExtractionStageDuration.WithLabelValues("upload").Observe(time.Since(upStart).Seconds())
	metrics.SamplesExtractedTotal.Add(float64(sum.SampleCount))

	job.MarkSucceeded(trackKey, sum.SampleCount, sum.TotalDistanceMeters, sum.MaxSpeedKmh, sum.DurationSeconds)
	if err := uc.repo.Update(ctx, job); err != nil {
		log.Error("failed to update job to SUCCEEDED", zap.Error(err))
		return fmt.Errorf("update job succeeded: %w", err)
	}

	uc.publishStatus(ctx, job, log)

	metrics.RecordingsProcessedTotal.WithLabelValues("succeeded").Inc()

	log.Info("extraction completed",
		zap.String("track_key", trackKey),
		zap.Int("sample_count", sum.SampleCount),
		zap.Float64("distance_m", sum.TotalDistanceMeters),
		zap.Float64("max_speed_kmh", sum.MaxSpeedKmh),
	)

	return nil
}

func (uc *ProcessExtractionUseCase) handleRetryableFailure(
	ctx context.Context,
	job *entity.ExtractionJob,
	msg entity.ExtractionRequestMessage,
	rawMsg []byte,
	kind entity.ErrorKind,
	errMsg string,
	log *zap.Logger,
) error {
	job.MarkFailed(kind, errMsg)
	_ = uc.repo.Update(ctx, job)

	if !job.CanRetry() {
		return uc.handlePermanentFailure(ctx, job, msg, rawMsg, kind, errMsg)
	}

	metrics.RetryTotal.WithLabelValues(strconv.Itoa(job.Attempt)).Inc()
	uc.publishStatus(ctx, job, log)

	return fmt.Errorf("retryable failure (attempt %d/%d): %s", job.Attempt, job.MaxAttempts, errMsg)
}

func (uc *ProcessExtractionUseCase) handlePermanentFailure(
	ctx context.Context,
	job *entity.ExtractionJob,
	msg entity.ExtractionRequestMessage,
	rawMsg []byte,
	kind entity.ErrorKind,
	errMsg string,
) error {
	job.MarkFailed(kind, errMsg)
	_ = uc.repo.Update(ctx, job)

	_ = uc.dlq.PublishToDLQ(ctx, rawMsg, errMsg)

	uc.publishStatus(ctx, job, uc.logger)

	metrics.RecordingsProcessedTotal.WithLabelValues("dlq").Inc()

	recipient := msg.UserEmail
	if recipient == "" {
		recipient = uc.notifyTo
	}
	if recipient != "" {
		_ = uc.notifier.NotifyFailure(ctx, recipient, job.ID.String(), job.RecordingID, errMsg)
	}

	return nil
}

func (uc *ProcessExtractionUseCase) publishStatus(ctx context.Context, job *entity.ExtractionJob, log *zap.Logger) {
	statusMsg := entity.ExtractionStatusMessage{
		JobID:           job.ID,
		UserID:          job.UserID,
		RecordingID:     job.RecordingID,
		Status:          job.Status,
		TrackKey:        job.TrackKey,
		SampleCount:     job.SampleCount,
		DistanceMeters:  job.DistanceMeters,
		MaxSpeedKmh:     job.MaxSpeedKmh,
		DurationSeconds: job.DurationSeconds,
		ErrorKind:       job.ErrorKind,
		ErrorMessage:    job.ErrorMessage,
		Attempt:         job.Attempt,
		MaxAttempts:     job.MaxAttempts,
	}
	data, _ := json.Marshal(statusMsg)
	if err := uc.publisher.PublishStatus(ctx, data); err != nil {
		log.Error("failed to publish status", zap.Error(err))
	}
}
