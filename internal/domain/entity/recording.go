package entity

// VideoChunk is one on-disk file of a chaptered GoPro capture. Immutable
// once discovered.
type VideoChunk struct {
	Path        string
	RecordingID string
	Index       int
}

// LogicalRecording is one continuous capture session reassembled from its
// chunks, ordered by chunk index. A single-chunk recording is valid.
type LogicalRecording struct {
	ID     string
	Chunks []VideoChunk
}

// ChunkPaths returns the chunk file paths in index order.
func (r LogicalRecording) ChunkPaths() []string {
	paths := make([]string, len(r.Chunks))
	for i, c := range r.Chunks {
		paths[i] = c.Path
	}
	return paths
}

// NewRecordingFromPaths builds a recording from an already-ordered list of
// chunk files, assigning sequential indices. Used where the chunk order is
// supplied explicitly (queue messages) rather than recovered from filenames.
func NewRecordingFromPaths(id string, paths []string) LogicalRecording {
	rec := LogicalRecording{ID: id, Chunks: make([]VideoChunk, len(paths))}
	for i, p := range paths {
		rec.Chunks[i] = VideoChunk{Path: p, RecordingID: id, Index: i + 1}
	}
	return rec
}
