// Package blobstore defines the key-addressed blob storage contract the
// service consumes: presigned upload and download URLs, deletion, and
// prefix listing. Upload/download mechanics live behind this interface.
package blobstore

import (
	"context"
	"time"
)

// Upload carries the presigned upload grant for one new object.
type Upload struct {
	UploadURL string `json:"upload_url"`
	FileURL   string `json:"file_url"`
	Key       string `json:"key"`
}

// Store is a key-addressed blob store with presigned-URL capability.
type Store interface {
	// PresignedUpload allocates a key under prefix for fileName and returns
	// a grant the client can PUT the object to.
	PresignedUpload(ctx context.Context, prefix, fileName, mimeType string) (*Upload, error)

	// PresignedDownload returns a retrieval URL valid for ttl.
	PresignedDownload(ctx context.Context, key string, ttl time.Duration) (string, error)

	// Delete removes the object. Deleting a missing key is a no-op.
	Delete(ctx context.Context, key string) error

	// List returns all keys under prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}
