package gopro

import "regexp"

// Convention maps a video filename to the recording identity encoded in it.
// Implementations cover one camera family's chunk-naming scheme; the
// pipeline never parses filenames itself.
type Convention interface {
	// Parse returns the recording id and 1-based chunk index encoded in
	// name (base filename, no directory). ok is false when the name does
	// not follow the convention.
	Parse(name string) (recordingID string, chunkIndex int, ok bool)
}

// chapterPattern matches GoPro HERO6+ chaptered filenames: a GH (AVC) or GX
// (HEVC) prefix, a two-digit chapter number and a four-digit recording
// number, e.g. GH010001.MP4 / GX020001.mp4.
var chapterPattern = regexp.MustCompile(`(?i)^G[HX]([0-9]{2})([0-9]{4})\.MP4$`)

// GoProConvention parses the chapter naming used by GoPro cameras when a
// recording is split across files by the 4 GB limit.
type GoProConvention struct{}

func (GoProConvention) Parse(name string) (string, int, bool) {
	m := chapterPattern.FindStringSubmatch(name)
	if m == nil {
		return "", 0, false
	}
	// Two digits, always parses.
	index := int(m[1][0]-'0')*10 + int(m[1][1]-'0')
	if index == 0 {
		return "", 0, false
	}
	return m[2], index, true
}
