package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrNotFound is returned by Download for a missing object.
var ErrNotFound = errors.New("storage: object not found")

// FileInfo describes a stored object.
type FileInfo struct {
	Path         string
	Size         int64
	LastModified time.Time
}

// Storage is an object store keyed by slash-separated paths.
type Storage interface {
	Upload(ctx context.Context, path string, r io.Reader, contentType string) error
	// Download returns ErrNotFound for a missing object. Callers close the reader.
	Download(ctx context.Context, path string) (io.ReadCloser, error)
	// Delete is a no-op for a missing object.
	Delete(ctx context.Context, path string) error
	Exists(ctx context.Context, path string) (bool, error)
	List(ctx context.Context, prefix string) ([]FileInfo, error)
}
