package storage

import (
	"context"
	"time"
)

// UploadOptions carries the bucket and key prefix for archive uploads.
type UploadOptions struct {
	Bucket    string
	KeyPrefix string
}

// ObjectInfo describes a stored archive object.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified *time.Time
}

// Service abstracts the object store used to archive snapshot payloads.
type Service interface {
	UploadPayload(ctx context.Context, opts UploadOptions, key string, body []byte, contentType string) (string, error)
	ListObjects(ctx context.Context, bucket, prefix string) ([]ObjectInfo, error)
	DeletePrefix(ctx context.Context, bucket, prefix string) error
}
