package port

import (
	"context"
	"io"
	"time"
)

// UploadInput encapsulates the parameters needed to upload an object.
type UploadInput struct {
	Bucket      string
	Key         string
	Body        io.Reader
	ContentType string
	Size        int64
}

// UploadOutput contains the result of a successful upload.
type UploadOutput struct {
	Location string
	ETag     string
}

// PresignPutInput describes a time-limited upload target for one key.
type PresignPutInput struct {
	Bucket      string
	Key         string
	ContentType string
	Expiry      time.Duration
}

// ObjectInfo is what Stat reports about a stored object.
type ObjectInfo struct {
	Key          string
	Size         int64
	ContentType  string
	ETag         string
	LastModified time.Time
}

// ObjectStorage abstracts cloud object storage operations.
// Stat returns domain.ErrObjectMissing when the key does not exist.
type ObjectStorage interface {
	Upload(ctx context.Context, input UploadInput) (*UploadOutput, error)
	Delete(ctx context.Context, bucket, key string) error
	GetPresignedURL(ctx context.Context, bucket, key string, expirySeconds int64) (string, error)
	PresignPut(ctx context.Context, input PresignPutInput) (string, error)
	Stat(ctx context.Context, bucket, key string) (*ObjectInfo, error)
	Ping(ctx context.Context, bucket string) error
}
