// Package trajectory derives motion statistics from a GPS track: per-gap
// haversine distances, windowed speeds and totals. The artifact itself is
// never modified; glitchy fixes are only ignored while computing stats.
package trajectory

import (
	"math"

	"github.com/skitrax/skitrax-telemetry-service/internal/domain/entity"
)

const (
	// Approximate Earth radius used by the haversine formula, in meters.
	earthRadiusMeters = 6373000.0

	// A jump larger than this between consecutive fixes marks the earlier
	// fix as a GPS glitch.
	outlierJumpMeters = 20.0

	// Speeds are averaged over this many fixes on each side to smooth out
	// per-fix jitter.
	speedWindow = 10
)

// Summary holds the motion statistics of one track.
type Summary struct {
	// SampleCount is the number of fixes in the track as given.
	SampleCount int
	// OutlierSamples is how many fixes were ignored for the motion stats.
	OutlierSamples      int
	TotalDistanceMeters float64
	MaxSpeedKmh         float64
	AvgSpeedKmh         float64
	DurationSeconds     float64
}

// Haversine returns the great-circle distance in meters between two
// longitude/latitude points given in degrees.
func Haversine(lon1, lat1, lon2, lat2 float64) float64 {
	const degToRad = math.Pi / 180.0

	rlat1 := lat1 * degToRad
	rlat2 := lat2 * degToRad
	dlat := (lat2 - lat1) * degToRad
	dlon := (lon2 - lon1) * degToRad

	a := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(rlat1)*math.Cos(rlat2)*math.Sin(dlon/2)*math.Sin(dlon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c
}

// Summarize computes the track's motion statistics. Fixes on the near side
// of a >20 m jump are dropped from the computation, walking backwards so a
// single spike heals without eating its neighbors. Tracks too short for a
// speed estimate yield zero speeds and duration rather than an error.
func Summarize(track entity.GeoTrack) Summary {
	s := Summary{SampleCount: len(track.Samples)}

	samples := dropOutliers(track.Samples)
	s.OutlierSamples = s.SampleCount - len(samples)

	n := len(samples)
	if n == 0 {
		return s
	}

	times := make([]float64, n) // seconds; RelMicroSec holds milliseconds
	for i := range samples {
		times[i] = float64(samples[i].RelMicroSec) / 1000.0
	}
	s.DurationSeconds = times[n-1] - times[0]

	if n < 2 {
		return s
	}

	gaps := make([]float64, n-1)
	for i := 0; i < n-1; i++ {
		gaps[i] = Haversine(samples[i].Lon, samples[i].Lat, samples[i+1].Lon, samples[i+1].Lat)
		s.TotalDistanceMeters += gaps[i]
	}

	var sumKmh float64
	for i := 0; i < n; i++ {
		from := max(i-speedWindow, 0)
		to := min(i+speedWindow, n)

		var dist float64
		for k := from; k < to-1; k++ {
			dist += gaps[k]
		}
		dt := times[to-1] - times[from]
		if dt <= 0 {
			continue
		}
		kmh := dist / dt / 1000.0 * 3600.0
		sumKmh += kmh
		if kmh > s.MaxSpeedKmh {
			s.MaxSpeedKmh = kmh
		}
	}
	s.AvgSpeedKmh = sumKmh / float64(n)

	return s
}

func dropOutliers(in []entity.GeoSample) []entity.GeoSample {
	out := append([]entity.GeoSample(nil), in...)
	for i := len(out) - 2; i >= 0; i-- {
		if Haversine(out[i].Lon, out[i].Lat, out[i+1].Lon, out[i+1].Lat) > outlierJumpMeters {
			out = append(out[:i], out[i+1:]...)
		}
	}
	return out
}
