package gopro

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

func TestScanDirectoryFindsMP4sRecursively(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "GX010001.MP4"))
	touch(t, filepath.Join(root, "nested", "GX020001.mp4"))
	touch(t, filepath.Join(root, "notes.txt"))
	touch(t, filepath.Join(root, "thumb.THM"))

	paths, err := ScanDirectory(root)
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join(root, "GX010001.MP4"),
		filepath.Join(root, "nested", "GX020001.mp4"),
	}, paths)
}

func TestScanDirectoryMissingRoot(t *testing.T) {
	_, err := ScanDirectory(filepath.Join(t.TempDir(), "absent"))
	assert.Error(t, err)
}
