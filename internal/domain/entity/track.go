package entity

// RawTelemetry is the decoder's per-chunk output. The pipeline moves it
// between the decoder and the interpreter without looking inside; the
// concrete format is a contract between the two collaborator tools.
type RawTelemetry []byte

// GeoSample is one timestamped GPS fix.
//
// AbsUTCMicroSec is microseconds since the Unix epoch. RelMicroSec keeps the
// interpreter's RelativeMicroSec value as-is; the tooling emits milliseconds
// under that key, so consumers divide by 1e3 (not 1e6) for seconds.
type GeoSample struct {
	Lon            float64
	Lat            float64
	Elevation      *float64
	AbsUTCMicroSec int64
	RelMicroSec    int64
}

// GeoTrack is the ordered GPS fix sequence of one logical recording. An
// empty track is a valid result meaning "video decoded fine, no GPS data";
// it is distinct from a decode failure.
type GeoTrack struct {
	RecordingID string
	Device      string
	Samples     []GeoSample
}

// Empty reports whether the track holds no fixes.
func (t GeoTrack) Empty() bool { return len(t.Samples) == 0 }
