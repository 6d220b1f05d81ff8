package port

import "context"

// StatusPublisher emits ExtractionStatusMessage payloads to the
// telemetry.status queue.
type StatusPublisher interface {
	PublishStatus(ctx context.Context, msg []byte) error
}

// DLQPublisher parks unprocessable extraction requests with a reason header.
type DLQPublisher interface {
	PublishToDLQ(ctx context.Context, msg []byte, reason string) error
}
