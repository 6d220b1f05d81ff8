package entity

import "github.com/google/uuid"

// ExtractionRequestMessage is the inbound message from the
// telemetry.extraction queue. ChunkKeys are the recording's chunk object
// keys in upload order (chunk 1 first).
type ExtractionRequestMessage struct {
	JobID       uuid.UUID `json:"job_id"`
	UserID      string    `json:"user_id"`
	RecordingID string    `json:"recording_id"`
	ChunkKeys   []string  `json:"chunk_keys"`
	UserEmail   string    `json:"user_email"`
}

// ExtractionStatusMessage is the outbound message published to the
// telemetry.status queue after every state change worth reporting.
type ExtractionStatusMessage struct {
	JobID           uuid.UUID `json:"job_id"`
	UserID          string    `json:"user_id"`
	RecordingID     string    `json:"recording_id"`
	Status          JobStatus `json:"status"`
	TrackKey        string    `json:"track_key,omitempty"`
	SampleCount     int       `json:"sample_count,omitempty"`
	DistanceMeters  float64   `json:"distance_meters,omitempty"`
	MaxSpeedKmh     float64   `json:"max_speed_kmh,omitempty"`
	DurationSeconds float64   `json:"duration_seconds,omitempty"`
	ErrorKind       string    `json:"error_kind,omitempty"`
	ErrorMessage    string    `json:"error_message,omitempty"`
	Attempt         int       `json:"attempt"`
	MaxAttempts     int       `json:"max_attempts"`
}
