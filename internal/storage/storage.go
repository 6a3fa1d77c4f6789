// Package storage provides output sinks for generated datasets. It defines
// the Storage interface (port) and implementations for local disk and S3,
// so a generation run can write examples locally and optionally mirror
// them to a bucket.
package storage

import (
	"context"
	"io"
)

// Storage defines the interface for writing generated example artifacts.
type Storage interface {
	// Save writes one artifact under a relative name (e.g.
	// "run-x/meeting_000001/observation.wav") and returns its local path.
	// Parent directories are created as needed.
	Save(ctx context.Context, name string, data io.Reader) (path string, err error)

	// Open reads a previously saved artifact.
	// The caller is responsible for closing the returned ReadCloser.
	Open(ctx context.Context, path string) (io.ReadCloser, error)

	// Remove deletes the specified artifacts. It keeps going when some
	// files fail to delete and returns the first error encountered.
	Remove(ctx context.Context, paths []string) error

	// UploadToS3 mirrors an artifact to S3 and returns its URL.
	// Returns ErrS3NotConfigured when S3 is not configured.
	UploadToS3(ctx context.Context, key string, data io.Reader) (url string, err error)
}
