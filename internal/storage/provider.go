// Package storage persists export artifacts, either on the local filesystem
// or in an S3-compatible object store.
package storage

import (
	"context"
	"io"
)

// Provider is the destination for export artifacts.
type Provider interface {
	// StreamToFile returns a WriteCloser whose contents are streamed to the
	// destination under key. The returned channel yields exactly one error
	// (or nil) when the storage side finishes.
	StreamToFile(ctx context.Context, key string) (io.WriteCloser, <-chan error)

	// OpenFile opens a stored artifact for reading.
	OpenFile(ctx context.Context, key string) (io.ReadCloser, error)

	// GetDownloadURL returns a URL callers can use to retrieve the artifact.
	GetDownloadURL(key string) string
}
