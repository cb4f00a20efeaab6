package storage

import (
	"context"
	"io"
	"time"
)

// ObjectInfo contains basic information about a stored object.
type ObjectInfo struct {
	Key         string
	Size        int64
	ETag        string
	ContentType string
}

// Storage is an S3-compatible object store for clip media.
type Storage interface {
	// Put uploads r under key. size is -1 when unknown.
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (ObjectInfo, error)
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
}

func ClipKey(broadcasterID, clipID string) string {
	return "clips/" + broadcasterID + "/" + clipID + ".mp4"
}
