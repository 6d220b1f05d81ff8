package gopro

import (
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/skitrax/skitrax-telemetry-service/internal/domain/entity"
)

// GroupFailure reports a recording that could not be assembled. Sibling
// recordings in the same batch are unaffected.
type GroupFailure struct {
	RecordingID string
	Err         error
}

// Grouper assembles discovered video files into logical recordings using a
// pluggable naming convention. Files the convention does not recognize
// become single-chunk recordings keyed by their own base name.
type Grouper struct {
	conv Convention
	log  *zap.Logger
}

func NewGrouper(conv Convention, log *zap.Logger) *Grouper {
	return &Grouper{conv: conv, log: log}
}

// Group maps file paths to recordings with chunks sorted by index. A
// duplicate chunk index within one recording is ambiguous and fails that
// recording only. A missing intermediate index is tolerated with a warning:
// no manifest exists to tell a gap from a never-recorded chapter, and the
// chunks that are present still decode independently.
func (g *Grouper) Group(paths []string) ([]entity.LogicalRecording, []GroupFailure) {
	seen := make(map[string]struct{}, len(paths))
	byID := make(map[string][]entity.VideoChunk)

	for _, p := range paths {
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}

		name := filepath.Base(p)
		id, index, ok := g.conv.Parse(name)
		if !ok {
			id = strings.TrimSuffix(name, filepath.Ext(name))
			index = 1
		}
		byID[id] = append(byID[id], entity.VideoChunk{
			Path:        p,
			RecordingID: id,
			Index:       index,
		})
	}

	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var recordings []entity.LogicalRecording
	var failures []GroupFailure

	for _, id := range ids {
		chunks := byID[id]
		sort.Slice(chunks, func(i, j int) bool { return chunks[i].Index < chunks[j].Index })

		if dup := findDuplicate(chunks); dup != nil {
			g.log.Warn("recording has ambiguous chunk numbering, skipping",
				zap.String("recording_id", id),
				zap.Error(dup),
			)
			failures = append(failures, GroupFailure{RecordingID: id, Err: dup})
			continue
		}

		if missing := missingIndices(chunks); len(missing) > 0 {
			g.log.Warn("recording is missing intermediate chunks, proceeding with a gap",
				zap.String("recording_id", id),
				zap.Ints("missing_indices", missing),
			)
		}

		recordings = append(recordings, entity.LogicalRecording{ID: id, Chunks: chunks})
	}

	return recordings, failures
}

func findDuplicate(chunks []entity.VideoChunk) *entity.DuplicateChunkError {
	for i := 1; i < len(chunks); i++ {
		if chunks[i].Index == chunks[i-1].Index {
			return &entity.DuplicateChunkError{
				RecordingID: chunks[i].RecordingID,
				Index:       chunks[i].Index,
				Paths:       [2]string{chunks[i-1].Path, chunks[i].Path},
			}
		}
	}
	return nil
}

func missingIndices(chunks []entity.VideoChunk) []int {
	var missing []int
	next := 1
	for _, c := range chunks {
		for next < c.Index {
			missing = append(missing, next)
			next++
		}
		next = c.Index + 1
	}
	return missing
}
