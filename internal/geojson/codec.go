// Package geojson reads and writes the track artifact format: a single
// GeoJSON Feature whose LineString carries [lon, lat, ele] positions and
// whose properties hold parallel AbsoluteUtcMicroSec / RelativeMicroSec
// arrays. RelativeMicroSec values are milliseconds despite the key name;
// both sides of this codec keep them verbatim.
package geojson

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/skitrax/skitrax-telemetry-service/internal/domain/entity"
)

type featureDoc struct {
	Type       string        `json:"type"`
	Geometry   geometryDoc   `json:"geometry"`
	Properties propertiesDoc `json:"properties"`
}

type geometryDoc struct {
	Type string `json:"type"`
	// Positions may be null (lost fix) or two-element (no elevation).
	Coordinates [][]float64 `json:"coordinates"`
}

type propertiesDoc struct {
	AbsoluteUtcMicroSec []*int64 `json:"AbsoluteUtcMicroSec"`
	RelativeMicroSec    []*int64 `json:"RelativeMicroSec"`
	Device              string   `json:"device,omitempty"`
}

// EncodeTrack renders the track as a pretty-printed Feature document. Empty
// tracks encode to empty arrays, never null; the artifact itself is how a
// "no GPS data" outcome is recorded.
func EncodeTrack(track entity.GeoTrack) ([]byte, error) {
	coords := make([][]float64, 0, len(track.Samples))
	abs := make([]*int64, 0, len(track.Samples))
	rel := make([]*int64, 0, len(track.Samples))

	for i := range track.Samples {
		s := track.Samples[i]
		pos := []float64{s.Lon, s.Lat}
		if s.Elevation != nil {
			pos = append(pos, *s.Elevation)
		}
		coords = append(coords, pos)
		a, r := s.AbsUTCMicroSec, s.RelMicroSec
		abs = append(abs, &a)
		rel = append(rel, &r)
	}

	doc := featureDoc{
		Type: "Feature",
		Geometry: geometryDoc{
			Type:        "LineString",
			Coordinates: coords,
		},
		Properties: propertiesDoc{
			AbsoluteUtcMicroSec: abs,
			RelativeMicroSec:    rel,
			Device:              track.Device,
		},
	}

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode track: %w", err)
	}
	return out, nil
}

// DecodeTrack parses a Feature document into a GeoTrack, dropping null and
// timeless positions and ordering the survivors by time. The recording ID is
// not part of the document; callers set it. Mismatched coordinate/time array
// lengths are a hard error since the arrays are only meaningful in parallel.
func DecodeTrack(data []byte) (entity.GeoTrack, error) {
	var doc featureDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return entity.GeoTrack{}, fmt.Errorf("decode track: %w", err)
	}
	if doc.Type != "Feature" {
		return entity.GeoTrack{}, fmt.Errorf("decode track: unexpected document type %q", doc.Type)
	}
	if doc.Geometry.Type != "LineString" {
		return entity.GeoTrack{}, fmt.Errorf("decode track: unexpected geometry type %q", doc.Geometry.Type)
	}

	coords := doc.Geometry.Coordinates
	abs := doc.Properties.AbsoluteUtcMicroSec
	rel := doc.Properties.RelativeMicroSec
	if len(abs) != len(coords) || len(rel) != len(coords) {
		return entity.GeoTrack{}, fmt.Errorf(
			"decode track: %d positions but %d/%d time entries",
			len(coords), len(abs), len(rel),
		)
	}

	samples := make([]entity.GeoSample, 0, len(coords))
	for i, pos := range coords {
		if pos == nil || abs[i] == nil || rel[i] == nil {
			continue // lost fix, dropped during normalization
		}
		switch len(pos) {
		case 2, 3:
		default:
			return entity.GeoTrack{}, fmt.Errorf("decode track: position %d has %d elements", i, len(pos))
		}
		s := entity.GeoSample{
			Lon:            pos[0],
			Lat:            pos[1],
			AbsUTCMicroSec: *abs[i],
			RelMicroSec:    *rel[i],
		}
		if len(pos) == 3 {
			ele := pos[2]
			s.Elevation = &ele
		}
		samples = append(samples, s)
	}

	sort.SliceStable(samples, func(i, j int) bool {
		if samples[i].RelMicroSec != samples[j].RelMicroSec {
			return samples[i].RelMicroSec < samples[j].RelMicroSec
		}
		return samples[i].AbsUTCMicroSec < samples[j].AbsUTCMicroSec
	})

	return entity.GeoTrack{Device: doc.Properties.Device, Samples: samples}, nil
}
