package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/skitrax/skitrax-telemetry-service/internal/domain/entity"
	"github.com/skitrax/skitrax-telemetry-service/internal/geojson"
)

type fakeRepo struct {
	jobs map[uuid.UUID]*entity.ExtractionJob
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{jobs: map[uuid.UUID]*entity.ExtractionJob{}}
}

func (r *fakeRepo) Create(ctx context.Context, job *entity.ExtractionJob) error {
	r.jobs[job.ID] = job
	return nil
}

func (r *fakeRepo) Update(ctx context.Context, job *entity.ExtractionJob) error {
	r.jobs[job.ID] = job
	return nil
}

func (r *fakeRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.ExtractionJob, error) {
	job, ok := r.jobs[id]
	if !ok {
		return nil, errors.New("job not found")
	}
	return job, nil
}

type fakeMediaStorage struct {
	objects     map[string][]byte
	uploads     map[string][]byte
	downloadErr error
	uploadErr   error
}

func newFakeMediaStorage() *fakeMediaStorage {
	return &fakeMediaStorage{
		objects: map[string][]byte{},
		uploads: map[string][]byte{},
	}
}

func (s *fakeMediaStorage) DownloadChunk(ctx context.Context, objectKey, destPath string) error {
	if s.downloadErr != nil {
		return s.downloadErr
	}
	data, ok := s.objects[objectKey]
	if !ok {
		return fmt.Errorf("no such object %s", objectKey)
	}
	return os.WriteFile(destPath, data, 0o644)
}

func (s *fakeMediaStorage) UploadTrack(ctx context.Context, objectKey string, reader io.Reader, size int64) error {
	if s.uploadErr != nil {
		return s.uploadErr
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	s.uploads[objectKey] = data
	return nil
}

type fakeStatusPublisher struct {
	messages []entity.ExtractionStatusMessage
}

func (p *fakeStatusPublisher) PublishStatus(ctx context.Context, msg []byte) error {
	var m entity.ExtractionStatusMessage
	if err := json.Unmarshal(msg, &m); err != nil {
		return err
	}
	p.messages = append(p.messages, m)
	return nil
}

func (p *fakeStatusPublisher) last() entity.ExtractionStatusMessage {
	return p.messages[len(p.messages)-1]
}

type fakeDLQ struct {
	reasons []string
}

func (d *fakeDLQ) PublishToDLQ(ctx context.Context, msg []byte, reason string) error {
	d.reasons = append(d.reasons, reason)
	return nil
}

type fakeNotifier struct {
	emails []string
}

func (n *fakeNotifier) NotifyFailure(ctx context.Context, userEmail, jobID, recordingID, errorMsg string) error {
	n.emails = append(n.emails, userEmail)
	return nil
}

type workerHarness struct {
	uc        *ProcessExtractionUseCase
	repo      *fakeRepo
	storage   *fakeMediaStorage
	extractor *stubExtractor
	publisher *fakeStatusPublisher
	dlq       *fakeDLQ
	notifier  *fakeNotifier
}

func newWorkerHarness(t *testing.T, maxAttempts int) *workerHarness {
	t.Helper()
	h := &workerHarness{
		repo:      newFakeRepo(),
		storage:   newFakeMediaStorage(),
		extractor: newStubExtractor(),
		publisher: &fakeStatusPublisher{},
		dlq:       &fakeDLQ{},
		notifier:  &fakeNotifier{},
	}
	h.uc = NewProcessExtractionUseCase(
		h.repo, h.storage, h.extractor, h.publisher, h.dlq, h.notifier,
		zap.NewNop(),
		ProcessExtractionConfig{TempDir: t.TempDir(), MaxAttempts: maxAttempts},
	)
	return h
}

func requestBody(t *testing.T, msg entity.ExtractionRequestMessage) []byte {
	t.Helper()
	data, err := json.Marshal(msg)
	require.NoError(t, err)
	return data
}

func TestExecuteHappyPath(t *testing.T) {
	h := newWorkerHarness(t, 3)
	h.storage.objects["u1/GX010001.MP4"] = []byte("chapter one")
	h.storage.objects["u1/GX020001.MP4"] = []byte("chapter two")
	h.extractor.tracks["0001"] = fixSamples(3)

	msg := entity.ExtractionRequestMessage{
		JobID:       uuid.New(),
		UserID:      "u1",
		RecordingID: "0001",
		ChunkKeys:   []string{"u1/GX010001.MP4", "u1/GX020001.MP4"},
	}

	err := h.uc.Execute(context.Background(), requestBody(t, msg))
	require.NoError(t, err)

	job := h.repo.jobs[msg.JobID]
	require.NotNil(t, job)
	assert.Equal(t, entity.JobStatusSucceeded, job.Status)
	assert.Equal(t, "u1/0001.geojson", job.TrackKey)
	assert.Equal(t, 3, job.SampleCount)
	assert.Equal(t, 1, job.Attempt)
	assert.NotNil(t, job.CompletedAt)

	uploaded, ok := h.storage.uploads["u1/0001.geojson"]
	require.True(t, ok)
	track, err := geojson.DecodeTrack(uploaded)
	require.NoError(t, err)
	assert.Len(t, track.Samples, 3)

	require.NotEmpty(t, h.publisher.messages)
	status := h.publisher.last()
	assert.Equal(t, entity.JobStatusSucceeded, status.Status)
	assert.Equal(t, "u1/0001.geojson", status.TrackKey)
	assert.Empty(t, h.dlq.reasons)
}

func TestExecuteEmptyTrackStillSucceedsAndUploads(t *testing.T) {
	h := newWorkerHarness(t, 3)
	h.storage.objects["u1/GX010002.MP4"] = []byte("no gps inside")

	msg := entity.ExtractionRequestMessage{
		JobID:       uuid.New(),
		UserID:      "u1",
		RecordingID: "0002",
		ChunkKeys:   []string{"u1/GX010002.MP4"},
	}

	require.NoError(t, h.uc.Execute(context.Background(), requestBody(t, msg)))

	job := h.repo.jobs[msg.JobID]
	assert.Equal(t, entity.JobStatusSucceeded, job.Status)
	assert.Zero(t, job.SampleCount)

	uploaded := h.storage.uploads["u1/0002.geojson"]
	require.NotNil(t, uploaded)
	track, err := geojson.DecodeTrack(uploaded)
	require.NoError(t, err)
	assert.True(t, track.Empty())
}

func TestExecuteMalformedMessageGoesToDLQ(t *testing.T) {
	h := newWorkerHarness(t, 3)

	err := h.uc.Execute(context.Background(), []byte("{definitely not json"))
	require.NoError(t, err, "malformed messages are acked, not redelivered")

	require.Len(t, h.dlq.reasons, 1)
	assert.Contains(t, h.dlq.reasons[0], "unmarshal_error")
}

func TestExecuteIncompleteRequestGoesToDLQ(t *testing.T) {
	h := newWorkerHarness(t, 3)

	msg := entity.ExtractionRequestMessage{JobID: uuid.New(), UserID: "u1"}
	require.NoError(t, h.uc.Execute(context.Background(), requestBody(t, msg)))

	require.Len(t, h.dlq.reasons, 1)
	assert.Equal(t, "incomplete_request", h.dlq.reasons[0])
}

func TestExecuteDecodeFailureIsPermanent(t *testing.T) {
	h := newWorkerHarness(t, 3)
	h.storage.objects["u1/broken.mp4"] = []byte("junk")
	h.extractor.errs["0003"] = entity.DecodeError(errors.New("bad mp4 atom"))

	msg := entity.ExtractionRequestMessage{
		JobID:       uuid.New(),
		UserID:      "u1",
		RecordingID: "0003",
		ChunkKeys:   []string{"u1/broken.mp4"},
		UserEmail:   "rider@example.com",
	}

	err := h.uc.Execute(context.Background(), requestBody(t, msg))
	require.NoError(t, err, "deterministic failures must not be redelivered")

	job := h.repo.jobs[msg.JobID]
	assert.Equal(t, entity.JobStatusFailed, job.Status)
	assert.Equal(t, string(entity.ErrKindDecode), job.ErrorKind)
	assert.Len(t, h.dlq.reasons, 1)
	assert.Equal(t, []string{"rider@example.com"}, h.notifier.emails)

	status := h.publisher.last()
	assert.Equal(t, entity.JobStatusFailed, status.Status)
	assert.Equal(t, string(entity.ErrKindDecode), status.ErrorKind)
}

func TestExecutePermanentFailureNotifiesFallbackAddress(t *testing.T) {
	h := newWorkerHarness(t, 3)
	h.uc.notifyTo = "ops@example.com"
	h.storage.objects["u1/broken.mp4"] = []byte("junk")
	h.extractor.errs["0007"] = entity.DecodeError(errors.New("bad mp4 atom"))

	msg := entity.ExtractionRequestMessage{
		JobID:       uuid.New(),
		UserID:      "u1",
		RecordingID: "0007",
		ChunkKeys:   []string{"u1/broken.mp4"},
	}

	require.NoError(t, h.uc.Execute(context.Background(), requestBody(t, msg)))
	assert.Equal(t, []string{"ops@example.com"}, h.notifier.emails)
}

func TestExecuteTransientFailureRetriesThenParks(t *testing.T) {
	h := newWorkerHarness(t, 3)
	h.storage.downloadErr = errors.New("object storage unreachable")

	msg := entity.ExtractionRequestMessage{
		JobID:       uuid.New(),
		UserID:      "u1",
		RecordingID: "0004",
		ChunkKeys:   []string{"u1/GX010004.MP4"},
	}
	body := requestBody(t, msg)

	// First two attempts ask for redelivery.
	require.Error(t, h.uc.Execute(context.Background(), body))
	assert.Empty(t, h.dlq.reasons)
	require.Error(t, h.uc.Execute(context.Background(), body))
	assert.Empty(t, h.dlq.reasons)

	// Third attempt exhausts the budget and parks the message.
	require.NoError(t, h.uc.Execute(context.Background(), body))
	assert.Len(t, h.dlq.reasons, 1)

	job := h.repo.jobs[msg.JobID]
	assert.Equal(t, entity.JobStatusFailed, job.Status)
	assert.Equal(t, string(entity.ErrKindIO), job.ErrorKind)
	assert.Equal(t, 3, job.Attempt)
}

func TestExecuteExhaustedJobGoesStraightToDLQ(t *testing.T) {
	h := newWorkerHarness(t, 2)

	job := entity.NewExtractionJob("u1", "0005", 1, 2)
	job.Attempt = 2
	h.repo.jobs[job.ID] = job

	msg := entity.ExtractionRequestMessage{
		JobID:       job.ID,
		UserID:      "u1",
		RecordingID: "0005",
		ChunkKeys:   []string{"u1/GX010005.MP4"},
	}

	require.NoError(t, h.uc.Execute(context.Background(), requestBody(t, msg)))
	require.Len(t, h.dlq.reasons, 1)
	assert.Contains(t, h.dlq.reasons[0], "max attempts")
}

func TestExecuteUploadFailureIsRetryable(t *testing.T) {
	h := newWorkerHarness(t, 3)
	h.storage.objects["u1/GX010006.MP4"] = []byte("fine")
	h.storage.uploadErr = errors.New("bucket gone")
	h.extractor.tracks["0006"] = fixSamples(2)

	msg := entity.ExtractionRequestMessage{
		JobID:       uuid.New(),
		UserID:      "u1",
		RecordingID: "0006",
		ChunkKeys:   []string{"u1/GX010006.MP4"},
	}

	err := h.uc.Execute(context.Background(), requestBody(t, msg))
	require.Error(t, err)

	job := h.repo.jobs[msg.JobID]
	assert.Equal(t, entity.JobStatusFailed, job.Status)
	assert.Equal(t, string(entity.ErrKindIO), job.ErrorKind)
	assert.Empty(t, h.dlq.reasons)
}
