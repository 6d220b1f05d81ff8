package port

import (
	"context"
	"io"
)

type MediaStorage interface {
	DownloadChunk(ctx context.Context, objectKey string, destPath string) error
	UploadTrack(ctx context.Context, objectKey string, reader io.Reader, size int64) error
}
