// Package storage abstracts the key-addressed object store that receives
// migrated audio files.
package storage

import (
	"context"
	"io"
)

// ObjectStore is the blob interface the pipeline needs: existence check,
// streamed upload with content-type metadata, and streamed download (the
// latter serves verification and the asset-serving collaborator, not the
// migration itself).
type ObjectStore interface {
	// Ping verifies the store is reachable and the bucket exists,
	// creating it when absent.
	Ping(ctx context.Context) error

	// Exists reports whether an object is already stored under key.
	Exists(ctx context.Context, key string) (bool, error)

	// Upload streams the reader into the object under key. size may be -1
	// when unknown; contentType is stored as object metadata. Returns the
	// number of bytes written.
	Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) (int64, error)

	// Download opens a streamed reader over the object under key. The
	// caller closes it.
	Download(ctx context.Context, key string) (io.ReadCloser, error)
}
