package entity

import (
	"errors"
	"fmt"
)

// ErrorKind labels a recording-level failure in job rows, status messages
// and batch summaries.
type ErrorKind string

const (
	ErrKindIO                   ErrorKind = "IO_ERROR"
	ErrKindDecode               ErrorKind = "DECODE_ERROR"
	ErrKindTelemetryUnavailable ErrorKind = "TELEMETRY_UNAVAILABLE"
	ErrKindDuplicateChunk       ErrorKind = "DUPLICATE_CHUNK"
)

// ErrTelemetryUnavailable signals a readable container with no telemetry
// track. Callers treat it as a successful extraction with an empty track,
// not as a failure.
var ErrTelemetryUnavailable = errors.New("no telemetry track present")

// PipelineError attaches an ErrorKind to a recording-level failure so the
// orchestrator can record it without losing the cause chain.
type PipelineError struct {
	Kind ErrorKind
	Err  error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }

// IOError wraps a storage read/write failure.
func IOError(err error) error {
	return &PipelineError{Kind: ErrKindIO, Err: err}
}

// DecodeError wraps a malformed or unreadable container failure.
func DecodeError(err error) error {
	return &PipelineError{Kind: ErrKindDecode, Err: err}
}

// DuplicateChunkError reports two chunks claiming the same index within one
// recording. The recording is ambiguous and fails; siblings are unaffected.
type DuplicateChunkError struct {
	RecordingID string
	Index       int
	Paths       [2]string
}

func (e *DuplicateChunkError) Error() string {
	return fmt.Sprintf("recording %s: duplicate chunk index %d (%s, %s)",
		e.RecordingID, e.Index, e.Paths[0], e.Paths[1])
}

// KindOf classifies an error for reporting. Unclassified errors count as
// decode failures: by the time the pipeline runs, anything not tagged as IO
// or grouping came out of the collaborator boundary.
func KindOf(err error) ErrorKind {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	var de *DuplicateChunkError
	if errors.As(err, &de) {
		return ErrKindDuplicateChunk
	}
	if errors.Is(err, ErrTelemetryUnavailable) {
		return ErrKindTelemetryUnavailable
	}
	return ErrKindDecode
}
