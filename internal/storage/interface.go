package storage

import (
	"context"
	"io"
)

// ObjectStorage is where generated images and rendered plan documents live.
type ObjectStorage interface {
	// Upload stores an object under key.
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error

	// Download opens an object for reading.
	Download(ctx context.Context, key string) (io.ReadCloser, error)

	// GetURL returns the public URL of an object.
	GetURL(key string) string

	// Exists checks if an object exists.
	Exists(ctx context.Context, key string) (bool, error)
}
