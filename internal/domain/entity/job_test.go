package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewExtractionJob(t *testing.T) {
	job := NewExtractionJob("user-1", "0001", 2, 5)

	assert.NotEqual(t, job.ID.String(), "00000000-0000-0000-0000-000000000000")
	assert.Equal(t, JobStatusPending, job.Status)
	assert.Equal(t, 0, job.Attempt)
	assert.Equal(t, 5, job.MaxAttempts)
	assert.Equal(t, 2, job.ChunkCount)
	assert.False(t, job.CreatedAt.IsZero())
	assert.Nil(t, job.CompletedAt)
}

func TestJobLifecycleToSuccess(t *testing.T) {
	job := NewExtractionJob("user-1", "0001", 1, 3)

	job.MarkLoading()
	assert.Equal(t, JobStatusLoading, job.Status)
	assert.Equal(t, 1, job.Attempt)

	job.MarkDecoding()
	assert.Equal(t, JobStatusDecoding, job.Status)

	job.MarkSucceeded("user-1/0001.geojson", 42, 1520.5, 38.2, 95.0)
	assert.Equal(t, JobStatusSucceeded, job.Status)
	assert.Equal(t, "user-1/0001.geojson", job.TrackKey)
	assert.Equal(t, 42, job.SampleCount)
	assert.Equal(t, 1520.5, job.DistanceMeters)
	assert.Equal(t, 38.2, job.MaxSpeedKmh)
	assert.Equal(t, 95.0, job.DurationSeconds)
	require.NotNil(t, job.CompletedAt)
}

func TestMarkSucceededClearsEarlierFailure(t *testing.T) {
	job := NewExtractionJob("user-1", "0001", 1, 3)
	job.MarkLoading()
	job.MarkFailed(ErrKindIO, "bucket unreachable")

	job.MarkLoading()
	job.MarkSucceeded("user-1/0001.geojson", 1, 0, 0, 0)

	assert.Empty(t, job.ErrorKind)
	assert.Empty(t, job.ErrorMessage)
	assert.Equal(t, 2, job.Attempt)
}

func TestMarkFailed(t *testing.T) {
	job := NewExtractionJob("user-1", "0001", 1, 3)
	job.MarkLoading()
	job.MarkFailed(ErrKindDecode, "collaborator exited 1")

	assert.Equal(t, JobStatusFailed, job.Status)
	assert.Equal(t, string(ErrKindDecode), job.ErrorKind)
	assert.Equal(t, "collaborator exited 1", job.ErrorMessage)
}

func TestCanRetry(t *testing.T) {
	job := NewExtractionJob("user-1", "0001", 1, 2)

	assert.True(t, job.CanRetry())
	job.MarkLoading()
	assert.True(t, job.CanRetry())
	job.MarkLoading()
	assert.False(t, job.CanRetry(), "attempts exhausted at MaxAttempts")
}
