package trajectory

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/skitrax/skitrax-telemetry-service/internal/domain/entity"
)

func TestHaversine(t *testing.T) {
	// 0.001 deg of latitude at the equator is about 111.23 m on a sphere
	// of radius 6373 km.
	assert.InDelta(t, 111.23, Haversine(0, 0, 0, 0.001), 0.01)

	// The same longitude step shrinks with cos(lat).
	assert.InDelta(t, 55.61, Haversine(10, 60, 10.001, 60), 0.01)

	assert.Zero(t, Haversine(6.588, 45.296, 6.588, 45.296))
}

// track builds equator samples from latitude steps, one second apart.
func track(lats ...float64) entity.GeoTrack {
	samples := make([]entity.GeoSample, len(lats))
	for i, lat := range lats {
		samples[i] = entity.GeoSample{
			Lat:         lat,
			RelMicroSec: int64(i) * 1000, // milliseconds
		}
	}
	return entity.GeoTrack{RecordingID: "0001", Samples: samples}
}

func TestSummarizeSteadyMovement(t *testing.T) {
	// 0.0001 deg per second at the equator: ~11.12 m/s, ~40.04 km/h.
	s := Summarize(track(0, 0.0001, 0.0002, 0.0003, 0.0004))

	assert.Equal(t, 5, s.SampleCount)
	assert.Zero(t, s.OutlierSamples)
	assert.InDelta(t, 44.49, s.TotalDistanceMeters, 0.01)
	assert.InDelta(t, 40.04, s.MaxSpeedKmh, 0.01)
	assert.InDelta(t, 40.04, s.AvgSpeedKmh, 0.01)
	assert.InDelta(t, 4.0, s.DurationSeconds, 1e-9)
}

func TestSummarizeDropsSingleSpike(t *testing.T) {
	s := Summarize(track(0, 0.0001, 0.5, 0.0002, 0.0003))

	assert.Equal(t, 5, s.SampleCount)
	assert.Equal(t, 1, s.OutlierSamples)
	// Only the three ~11.12 m gaps between surviving fixes remain.
	assert.InDelta(t, 33.37, s.TotalDistanceMeters, 0.01)
}

func TestSummarizeTrailingJumpEatsThePrefix(t *testing.T) {
	// A jump that never heals removes every fix before it.
	s := Summarize(track(0, 0.0001, 0.01))

	assert.Equal(t, 3, s.SampleCount)
	assert.Equal(t, 2, s.OutlierSamples)
	assert.Zero(t, s.TotalDistanceMeters)
	assert.Zero(t, s.DurationSeconds)
}

func TestSummarizeShortTracks(t *testing.T) {
	empty := Summarize(entity.GeoTrack{})
	assert.Zero(t, empty.SampleCount)
	assert.Zero(t, empty.TotalDistanceMeters)

	single := Summarize(track(45.0))
	assert.Equal(t, 1, single.SampleCount)
	assert.Zero(t, single.DurationSeconds)
	assert.Zero(t, single.MaxSpeedKmh)
}

func TestSummarizeZeroTimeSpan(t *testing.T) {
	tr := track(0, 0.0001)
	tr.Samples[1].RelMicroSec = 0 // same timestamp, no speed estimate

	s := Summarize(tr)
	assert.InDelta(t, 11.12, s.TotalDistanceMeters, 0.01)
	assert.Zero(t, s.MaxSpeedKmh)
	assert.Zero(t, s.AvgSpeedKmh)
}
