package storage

import (
	"context"
	"errors"
	"time"
)

// PresignedURLDuration is how long a download link handed to a client stays valid.
const PresignedURLDuration = 5 * time.Minute

// ErrNotConfigured is returned by NewBlobStore when no bucket is set.
var ErrNotConfigured = errors.New("blob storage is not configured")

// ServiceConfig holds the configuration required to connect to the storage service.
type ServiceConfig struct {
	S3BucketName      string
	S3Endpoint        string
	S3Region          string
	S3AccessKeyID     string
	S3SecretAccessKey string
}

// Object describes an attachment being offloaded.
type Object struct {
	Key      string
	FileName string
	MimeType string
	Data     []byte
}

// BlobStore holds attachment bytes outside the message store. Messages keep
// only the object key.
type BlobStore interface {
	// Upload stores obj under obj.Key.
	Upload(ctx context.Context, obj Object) error

	// PresignDownload generates a pre-signed URL for downloading key as fileName.
	PresignDownload(ctx context.Context, key, fileName string, duration time.Duration) (string, error)

	// Delete removes the object specified by the given key.
	Delete(ctx context.Context, key string) error
}

// NewBlobStore is the factory function for BlobStore.
// Only S3-compatible implementations are supported.
func NewBlobStore(ctx context.Context, cfg ServiceConfig) (BlobStore, error) {
	if cfg.S3BucketName == "" {
		return nil, ErrNotConfigured
	}
	return newS3Client(ctx, cfg)
}
