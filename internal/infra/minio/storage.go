package minio

import (
	"context"
	"fmt"
	"io"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/skitrax/skitrax-telemetry-service/internal/domain/entity"
)

// Storage moves video chunks and track artifacts between the worker and
// object storage. Chunks live in the video bucket, finished tracks in the
// track bucket.
type Storage struct {
	client      *miniogo.Client
	videoBucket string
	trackBucket string
}

type StorageConfig struct {
	Endpoint    string
	AccessKey   string
	SecretKey   string
	UseSSL      bool
	VideoBucket string
	TrackBucket string
}

func NewStorage(cfg StorageConfig) (*Storage, error) {
	client, err := miniogo.New(cfg.Endpoint, &miniogo.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	return &Storage{
		client:      client,
		videoBucket: cfg.VideoBucket,
		trackBucket: cfg.TrackBucket,
	}, nil
}

func (s *Storage) EnsureBuckets(ctx context.Context) error {
	for _, bucket := range []string{s.videoBucket, s.trackBucket} {
		exists, err := s.client.BucketExists(ctx, bucket)
		if err != nil {
			return fmt.Errorf("check bucket %s: %w", bucket, err)
		}
		if !exists {
			if err := s.client.MakeBucket(ctx, bucket, miniogo.MakeBucketOptions{}); err != nil {
				return fmt.Errorf("create bucket %s: %w", bucket, err)
			}
		}
	}
	return nil
}

// DownloadChunk fetches one chunk object into a local file so the decoder
// can stream it.
func (s *Storage) DownloadChunk(ctx context.Context, objectKey string, destPath string) error {
	if err := s.client.FGetObject(ctx, s.videoBucket, objectKey, destPath, miniogo.GetObjectOptions{}); err != nil {
		return entity.IOError(fmt.Errorf("download chunk %s: %w", objectKey, err))
	}
	return nil
}

// UploadTrack stores a finished track artifact.
func (s *Storage) UploadTrack(ctx context.Context, objectKey string, reader io.Reader, size int64) error {
	_, err := s.client.PutObject(ctx, s.trackBucket, objectKey, reader, size, miniogo.PutObjectOptions{
		ContentType: "application/geo+json",
	})
	if err != nil {
		return entity.IOError(fmt.Errorf("upload track %s: %w", objectKey, err))
	}
	return nil
}
