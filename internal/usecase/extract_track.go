package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/skitrax/skitrax-telemetry-service/internal/blockio"
	"github.com/skitrax/skitrax-telemetry-service/internal/domain/entity"
	"github.com/skitrax/skitrax-telemetry-service/internal/domain/port"
	"github.com/skitrax/skitrax-telemetry-service/internal/geojson"
	"github.com/skitrax/skitrax-telemetry-service/internal/infra/metrics"
)

const geojsonPreset = "geojson"

// TrackExtractor turns one logical recording into a normalized GeoTrack:
// every chunk is streamed block-wise through the decoder in index order,
// the collected payloads go through the interpreter once, and the resulting
// document is normalized. Both the batch CLI and the queue worker run their
// recordings through this type.
type TrackExtractor struct {
	decoder     port.TelemetryDecoder
	interpreter port.TrackInterpreter
	blockSize   int
	logger      *zap.Logger
}

func NewTrackExtractor(
	decoder port.TelemetryDecoder,
	interpreter port.TrackInterpreter,
	blockSize int,
	logger *zap.Logger,
) *TrackExtractor {
	if blockSize <= 0 {
		blockSize = blockio.DefaultBlockSize
	}
	return &TrackExtractor{
		decoder:     decoder,
		interpreter: interpreter,
		blockSize:   blockSize,
		logger:      logger,
	}
}

// Extract runs the recording through decode and interpret. A recording
// whose chunks carry no telemetry track yields an empty GeoTrack and a nil
// error; only unreadable files and collaborator failures are errors.
func (ex *TrackExtractor) Extract(ctx context.Context, rec entity.LogicalRecording) (entity.GeoTrack, error) {
	tracer := otel.Tracer("usecase")
	ctx, span := tracer.Start(ctx, "TrackExtractor.Extract")
	defer span.End()
	span.SetAttributes(
		attribute.String("recording.id", rec.ID),
		attribute.Int("recording.chunks", len(rec.Chunks)),
	)

	log := ex.logger.With(zap.String("recording_id", rec.ID))

	decodeStart := time.Now()
	payloads := make([]entity.RawTelemetry, 0, len(rec.Chunks))
	for _, chunk := range rec.Chunks {
		payload, n, err := ex.decodeChunk(ctx, chunk)
		metrics.BytesStreamedTotal.Add(float64(n))
		if err != nil {
			if errors.Is(err, entity.ErrTelemetryUnavailable) {
				log.Info("chunk carries no telemetry track",
					zap.String("chunk", chunk.Path),
					zap.Int("chunk_index", chunk.Index),
				)
				continue
			}
			return entity.GeoTrack{}, fmt.Errorf("chunk %s: %w", chunk.Path, err)
		}
		if len(payload) > 0 {
			payloads = append(payloads, payload)
		}
	}
	metrics.ExtractionStageDuration.WithLabelValues("decode").Observe(time.Since(decodeStart).Seconds())

	if len(payloads) == 0 {
		log.Info("no telemetry in any chunk, emitting empty track")
		return entity.GeoTrack{RecordingID: rec.ID}, nil
	}

	interpretStart := time.Now()
	ctxIn, spanIn := tracer.Start(ctx, "interpret_telemetry")
	doc, err := ex.interpreter.Interpret(ctxIn, payloads, geojsonPreset)
	spanIn.End()
	metrics.ExtractionStageDuration.WithLabelValues("interpret").Observe(time.Since(interpretStart).Seconds())
	if err != nil {
		if errors.Is(err, entity.ErrTelemetryUnavailable) {
			log.Info("interpreter found no GPS stream, emitting empty track")
			return entity.GeoTrack{RecordingID: rec.ID}, nil
		}
		return entity.GeoTrack{}, fmt.Errorf("interpret recording %s: %w", rec.ID, err)
	}

	track, err := geojson.DecodeTrack(doc)
	if err != nil {
		return entity.GeoTrack{}, entity.DecodeError(fmt.Errorf("normalize track for %s: %w", rec.ID, err))
	}
	track.RecordingID = rec.ID

	metrics.SamplesExtractedTotal.Add(float64(len(track.Samples)))
	log.Info("track extracted",
		zap.Int("chunks", len(rec.Chunks)),
		zap.Int("samples", len(track.Samples)),
	)
	return track, nil
}

// decodeChunk streams one chunk file through a fresh decoder process and
// returns its payload plus the number of bytes streamed.
func (ex *TrackExtractor) decodeChunk(ctx context.Context, chunk entity.VideoChunk) (entity.RawTelemetry, int64, error) {
	tracer := otel.Tracer("usecase")
	ctx, span := tracer.Start(ctx, "decode_chunk")
	defer span.End()
	span.SetAttributes(
		attribute.String("chunk.path", chunk.Path),
		attribute.Int("chunk.index", chunk.Index),
	)

	stream, err := ex.decoder.OpenStream(ctx, chunk.Path)
	if err != nil {
		return nil, 0, err
	}

	n, err := blockio.Stream(ctx, chunk.Path, ex.blockSize, stream)
	if err != nil {
		if !errors.Is(err, entity.ErrTelemetryUnavailable) {
			stream.Abort()
		}
		return nil, n, err
	}
	return stream.Telemetry(), n, nil
}
