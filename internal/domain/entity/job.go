package entity

import (
	"time"

	"github.com/google/uuid"
)

type JobStatus string

const (
	JobStatusPending   JobStatus = "PENDING"
	JobStatusLoading   JobStatus = "LOADING"
	JobStatusDecoding  JobStatus = "DECODING"
	JobStatusSucceeded JobStatus = "SUCCEEDED"
	JobStatusFailed    JobStatus = "FAILED"
)

// ExtractionJob tracks one logical recording through the pipeline:
// PENDING -> LOADING (chunk data acquired) -> DECODING (telemetry decoded
// and interpreted) -> SUCCEEDED | FAILED. A failed job never blocks sibling
// recordings.
type ExtractionJob struct {
	ID              uuid.UUID
	UserID          string
	RecordingID     string
	ChunkCount      int
	TrackKey        string
	Status          JobStatus
	SampleCount     int
	DistanceMeters  float64
	MaxSpeedKmh     float64
	DurationSeconds float64
	Attempt         int
	MaxAttempts     int
	ErrorKind       string
	ErrorMessage    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	CompletedAt     *time.Time
}

func NewExtractionJob(userID, recordingID string, chunkCount, maxAttempts int) *ExtractionJob {
	now := time.Now().UTC()
	return &ExtractionJob{
		ID:          uuid.New(),
		UserID:      userID,
		RecordingID: recordingID,
		ChunkCount:  chunkCount,
		Status:      JobStatusPending,
		Attempt:     0,
		MaxAttempts: maxAttempts,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// MarkLoading starts an attempt: the job is acquiring its chunk data.
func (j *ExtractionJob) MarkLoading() {
	j.Status = JobStatusLoading
	j.Attempt++
	j.UpdatedAt = time.Now().UTC()
}

// MarkDecoding records that chunk data is in place and telemetry decoding
// started.
func (j *ExtractionJob) MarkDecoding() {
	j.Status = JobStatusDecoding
	j.UpdatedAt = time.Now().UTC()
}

func (j *ExtractionJob) MarkSucceeded(trackKey string, sampleCount int, distanceM, maxSpeedKmh, durationS float64) {
	now := time.Now().UTC()
	j.Status = JobStatusSucceeded
	j.TrackKey = trackKey
	j.SampleCount = sampleCount
	j.DistanceMeters = distanceM
	j.MaxSpeedKmh = maxSpeedKmh
	j.DurationSeconds = durationS
	j.ErrorKind = ""
	j.ErrorMessage = ""
	j.UpdatedAt = now
	j.CompletedAt = &now
}

func (j *ExtractionJob) MarkFailed(kind ErrorKind, errMsg string) {
	j.Status = JobStatusFailed
	j.ErrorKind = string(kind)
	j.ErrorMessage = errMsg
	j.UpdatedAt = time.Now().UTC()
}

func (j *ExtractionJob) CanRetry() bool {
	return j.Attempt < j.MaxAttempts
}
