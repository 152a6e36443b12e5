// Package transport defines how highlight sets travel to and from a sync
// backend. The engine treats the backend as a named-blob service: one blob
// per book, uploaded and downloaded whole.
package transport

import (
	"context"
	"errors"
	"time"
)

// ErrBlobNotFound is returned when the named blob does not exist remotely.
var ErrBlobNotFound = errors.New("blob not found")

// BlobInfo describes a stored blob.
type BlobInfo struct {
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	ModifiedAt time.Time `json:"modifiedAt"`
}

// Transport moves named blobs between the device and the sync backend.
type Transport interface {
	UploadNamedBlob(ctx context.Context, name string, data []byte) error
	DownloadNamedBlob(ctx context.Context, name string) ([]byte, error)
	ListNamedBlobs(ctx context.Context) ([]BlobInfo, error)
}
