package port

import (
	"context"

	"github.com/skitrax/skitrax-telemetry-service/internal/domain/entity"
)

// TelemetryStream is one file's push-style byte stream into the external
// GPMF decoder. Blocks arrive through Append in strictly increasing offset
// order with no gaps; Flush is the end-of-stream signal and blocks until the
// decoder settles. Telemetry is valid only after a nil Flush. Abort releases
// the stream without an end signal (no-op after Flush) so a failed load
// never leaks the collaborator process.
//
// Append must not retain the block slice beyond the call.
type TelemetryStream interface {
	Append(offset int64, block []byte) error
	Flush() error
	Telemetry() entity.RawTelemetry
	Abort()
}

// TelemetryDecoder opens one stream per video chunk. name is only used to
// label errors and logs; the bytes arrive via the stream.
type TelemetryDecoder interface {
	OpenStream(ctx context.Context, name string) (TelemetryStream, error)
}

// TrackInterpreter turns the ordered per-chunk payloads of one recording
// into a structured track document in the named output preset ("geojson").
// It returns entity.ErrTelemetryUnavailable when the payloads carry no GPS
// stream.
type TrackInterpreter interface {
	Interpret(ctx context.Context, payloads []entity.RawTelemetry, preset string) ([]byte, error)
}
