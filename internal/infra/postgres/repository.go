package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skitrax/skitrax-telemetry-service/internal/domain/entity"
)

type ExtractionJobRepository struct {
	pool *pgxpool.Pool
}

func NewExtractionJobRepository(pool *pgxpool.Pool) *ExtractionJobRepository {
	return &ExtractionJobRepository{pool: pool}
}

func (r *ExtractionJobRepository) Create(ctx context.Context, job *entity.ExtractionJob) error {
	query := `
		INSERT INTO extraction_jobs (
			id, user_id, recording_id, chunk_count, track_key, status,
			sample_count, distance_meters, max_speed_kmh, duration_seconds,
			attempt, max_attempts, error_kind, error_message,
			created_at, updated_at, completed_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`

	_, err := r.pool.Exec(ctx, query,
		job.ID, job.UserID, job.RecordingID, job.ChunkCount, job.TrackKey,
		string(job.Status), job.SampleCount, job.DistanceMeters,
		job.MaxSpeedKmh, job.DurationSeconds, job.Attempt, job.MaxAttempts,
		job.ErrorKind, job.ErrorMessage,
		job.CreatedAt, job.UpdatedAt, job.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

func (r *ExtractionJobRepository) Update(ctx context.Context, job *entity.ExtractionJob) error {
	query := `
		UPDATE extraction_jobs SET
			status=$2, track_key=$3, sample_count=$4, distance_meters=$5,
			max_speed_kmh=$6, duration_seconds=$7, attempt=$8,
			error_kind=$9, error_message=$10, updated_at=$11, completed_at=$12
		WHERE id=$1`

	_, err := r.pool.Exec(ctx, query,
		job.ID, string(job.Status), job.TrackKey, job.SampleCount,
		job.DistanceMeters, job.MaxSpeedKmh, job.DurationSeconds,
		job.Attempt, job.ErrorKind, job.ErrorMessage,
		job.UpdatedAt, job.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	return nil
}

func (r *ExtractionJobRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.ExtractionJob, error) {
	query := `
		SELECT id, user_id, recording_id, chunk_count, track_key, status,
			sample_count, distance_meters, max_speed_kmh, duration_seconds,
			attempt, max_attempts, error_kind, error_message,
			created_at, updated_at, completed_at
		FROM extraction_jobs WHERE id=$1`

	job := &entity.ExtractionJob{}
	var status string
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&job.ID, &job.UserID, &job.RecordingID, &job.ChunkCount,
		&job.TrackKey, &status, &job.SampleCount, &job.DistanceMeters,
		&job.MaxSpeedKmh, &job.DurationSeconds, &job.Attempt,
		&job.MaxAttempts, &job.ErrorKind, &job.ErrorMessage,
		&job.CreatedAt, &job.UpdatedAt, &job.CompletedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("find job by id: %w", err)
	}
	job.Status = entity.JobStatus(status)
	return job, nil
}
