package gopro

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/skitrax/skitrax-telemetry-service/internal/domain/entity"
)

func newTestGrouper(t *testing.T) *Grouper {
	t.Helper()
	return NewGrouper(GoProConvention{}, zap.NewNop())
}

func TestGroupChapteredRecordings(t *testing.T) {
	g := newTestGrouper(t)

	recs, failures := g.Group([]string{
		"/sd/GX010001.mp4",
		"/sd/GX020001.mp4",
		"/sd/GX010002.mp4",
	})

	require.Empty(t, failures)
	require.Len(t, recs, 2)

	assert.Equal(t, "0001", recs[0].ID)
	require.Len(t, recs[0].Chunks, 2)
	assert.Equal(t, "/sd/GX010001.mp4", recs[0].Chunks[0].Path)
	assert.Equal(t, "/sd/GX020001.mp4", recs[0].Chunks[1].Path)
	assert.Equal(t, 1, recs[0].Chunks[0].Index)
	assert.Equal(t, 2, recs[0].Chunks[1].Index)

	assert.Equal(t, "0002", recs[1].ID)
	require.Len(t, recs[1].Chunks, 1)
}

func TestGroupSortsChunksRegardlessOfInputOrder(t *testing.T) {
	g := newTestGrouper(t)

	recs, failures := g.Group([]string{
		"/sd/GH030007.MP4",
		"/sd/GH010007.MP4",
		"/sd/GH020007.MP4",
	})

	require.Empty(t, failures)
	require.Len(t, recs, 1)

	indices := make([]int, 0, 3)
	for _, c := range recs[0].Chunks {
		indices = append(indices, c.Index)
	}
	assert.Equal(t, []int{1, 2, 3}, indices)
}

func TestGroupDuplicateChunkIndexFailsOnlyThatRecording(t *testing.T) {
	g := newTestGrouper(t)

	recs, failures := g.Group([]string{
		"/a/GX010001.MP4",
		"/b/GX010001.MP4", // same chapter, different card copy
		"/a/GX010002.MP4",
	})

	require.Len(t, failures, 1)
	assert.Equal(t, "0001", failures[0].RecordingID)

	var dup *entity.DuplicateChunkError
	require.True(t, errors.As(failures[0].Err, &dup))
	assert.Equal(t, 1, dup.Index)
	assert.Equal(t, entity.ErrKindDuplicateChunk, entity.KindOf(failures[0].Err))

	require.Len(t, recs, 1)
	assert.Equal(t, "0002", recs[0].ID)
}

func TestGroupToleratesChunkGap(t *testing.T) {
	g := newTestGrouper(t)

	recs, failures := g.Group([]string{
		"/sd/GX010009.MP4",
		"/sd/GX030009.MP4", // chapter 2 lost
	})

	require.Empty(t, failures)
	require.Len(t, recs, 1)
	require.Len(t, recs[0].Chunks, 2)
	assert.Equal(t, 1, recs[0].Chunks[0].Index)
	assert.Equal(t, 3, recs[0].Chunks[1].Index)
}

func TestGroupNonConventionFilesBecomeSingleChunkRecordings(t *testing.T) {
	g := newTestGrouper(t)

	recs, failures := g.Group([]string{
		"/clips/holiday.mp4",
		"/sd/GX010001.MP4",
	})

	require.Empty(t, failures)
	require.Len(t, recs, 2)
	assert.Equal(t, "0001", recs[0].ID)
	assert.Equal(t, "holiday", recs[1].ID)
	require.Len(t, recs[1].Chunks, 1)
	assert.Equal(t, "/clips/holiday.mp4", recs[1].Chunks[0].Path)
}

func TestGroupIgnoresRepeatedPaths(t *testing.T) {
	g := newTestGrouper(t)

	recs, failures := g.Group([]string{
		"/sd/GX010001.MP4",
		"/sd/GX010001.MP4",
	})

	require.Empty(t, failures)
	require.Len(t, recs, 1)
	assert.Len(t, recs[0].Chunks, 1)
}
