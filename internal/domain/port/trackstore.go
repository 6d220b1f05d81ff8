package port

import (
	"context"

	"github.com/skitrax/skitrax-telemetry-service/internal/domain/entity"
)

// TrackStore persists one track artifact per succeeded recording. Write
// returns the stored location (file path or object key). Implementations
// must never leave a partial artifact behind on error.
type TrackStore interface {
	Write(ctx context.Context, track entity.GeoTrack) (string, error)
}
