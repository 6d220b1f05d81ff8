// Package trackstore persists track artifacts for the batch CLI: one
// pretty-printed GeoJSON file per recording in a flat output directory,
// which is the layout downstream tooling scans.
package trackstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/skitrax/skitrax-telemetry-service/internal/domain/entity"
	"github.com/skitrax/skitrax-telemetry-service/internal/geojson"
)

// FSStore writes <recording-id>.geojson files under a single directory.
// Writes are temp-file-plus-rename so readers never observe a half-written
// artifact, and reruns simply overwrite.
type FSStore struct {
	dir    string
	logger *zap.Logger
}

// NewFSStore creates the output directory if needed.
func NewFSStore(dir string, logger *zap.Logger) (*FSStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, entity.IOError(fmt.Errorf("create output directory %s: %w", dir, err))
	}
	return &FSStore{dir: dir, logger: logger}, nil
}

func (s *FSStore) Write(ctx context.Context, track entity.GeoTrack) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if track.RecordingID == "" || strings.ContainsAny(track.RecordingID, `/\`) {
		return "", fmt.Errorf("invalid recording id %q", track.RecordingID)
	}

	data, err := geojson.EncodeTrack(track)
	if err != nil {
		return "", err
	}

	path := filepath.Join(s.dir, track.RecordingID+".geojson")
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", entity.IOError(fmt.Errorf("write track %s: %w", tmp, err))
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", entity.IOError(fmt.Errorf("publish track %s: %w", path, err))
	}

	s.logger.Info("track written",
		zap.String("path", path),
		zap.Int("samples", len(track.Samples)),
	)
	return path, nil
}
