package storage

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned by Read when no object exists at the key.
var ErrNotFound = errors.New("object not found")

// Storage defines the object store operations used by the thumbnail pipeline.
// Writes are unconditional: an existing object at the key is replaced.
type Storage interface {
	// Write stores content from the reader with the given key.
	// The size parameter is the expected content size (-1 if unknown).
	// The contentType parameter specifies the MIME type of the content.
	Write(ctx context.Context, key string, r io.Reader, size int64, contentType string) error

	// Read retrieves content for the given key.
	// The caller is responsible for closing the returned ReadCloser.
	Read(ctx context.Context, key string) (io.ReadCloser, error)

	// ObjectURL returns the stable, unsigned URL of the object at key.
	ObjectURL(key string) string
}
