package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Static errors for storage operations.
var (
	// ErrS3NotConfigured is returned when S3 operations are attempted
	// without proper configuration.
	ErrS3NotConfigured = errors.New("storage: S3 is not configured")
	// ErrUnsafeName is returned when an artifact name escapes the output
	// directory.
	ErrUnsafeName = errors.New("storage: artifact name escapes output directory")
)

// LocalStorage implements the Storage interface on local disk. Artifacts
// are written under a configurable output directory; S3 operations are not
// supported unless wrapped with S3Storage.
type LocalStorage struct {
	outDir string
}

// NewLocalStorage creates a LocalStorage rooted at outDir. If outDir is
// empty a directory under os.TempDir() is used. The directory is created
// if it does not exist.
func NewLocalStorage(outDir string) (*LocalStorage, error) {
	if outDir == "" {
		outDir = filepath.Join(os.TempDir(), "meetmix")
	}

	if err := os.MkdirAll(outDir, 0750); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	return &LocalStorage{outDir: outDir}, nil
}

// OutDir returns the output directory path.
func (s *LocalStorage) OutDir() string {
	return s.outDir
}

// Save writes one artifact under its relative name and returns the local
// path. Parent directories are created as needed.
func (s *LocalStorage) Save(ctx context.Context, name string, data io.Reader) (string, error) {
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	path := filepath.Join(s.outDir, filepath.FromSlash(name))
	if rel, err := filepath.Rel(s.outDir, path); err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("%w: %s", ErrUnsafeName, name)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return "", fmt.Errorf("create artifact directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create artifact: %w", err)
	}

	if _, err := io.Copy(f, data); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("write artifact: %w", err)
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("close artifact: %w", err)
	}

	return path, nil
}

// Open reads a previously saved artifact.
// The caller is responsible for closing the returned ReadCloser.
func (s *LocalStorage) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	f, err := os.Open(path) // #nosec G304 - path is provided by trusted caller
	if err != nil {
		return nil, fmt.Errorf("open artifact: %w", err)
	}

	return f, nil
}

// Remove deletes the specified artifacts. It keeps going when some files
// fail to delete and returns the first error encountered.
func (s *LocalStorage) Remove(ctx context.Context, paths []string) error {
	var firstErr error
	for _, p := range paths {
		select {
		case <-ctx.Done():
			return fmt.Errorf("context cancelled: %w", ctx.Err())
		default:
		}

		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			if firstErr == nil {
				firstErr = fmt.Errorf("remove artifact %s: %w", p, err)
			}
		}
	}
	return firstErr
}

// UploadToS3 is not supported by LocalStorage and returns ErrS3NotConfigured.
func (s *LocalStorage) UploadToS3(_ context.Context, _ string, _ io.Reader) (string, error) {
	return "", ErrS3NotConfigured
}

// Verify interface implementation at compile time.
var _ Storage = (*LocalStorage)(nil)
