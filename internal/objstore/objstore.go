// Package objstore wraps the external object storage bucket behind a small
// gateway interface so the rest of the service never touches the storage
// SDK directly.
package objstore

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a referenced object does not exist.
var ErrNotFound = errors.New("object not found")

// ObjectInfo describes one listed object.
type ObjectInfo struct {
	Path         string
	Size         int64
	LastModified time.Time
	Metadata     map[string]string
}

// Gateway is the storage surface the service depends on. Writes and copies
// overwrite unconditionally; there is no optimistic concurrency token, so
// the last writer wins.
type Gateway interface {
	Exists(ctx context.Context, path string) (bool, error)
	Read(ctx context.Context, path string) ([]byte, error)
	Write(ctx context.Context, path string, data []byte, contentType string, metadata map[string]string) error
	Copy(ctx context.Context, sourcePath, destPath string) error
	Delete(ctx context.Context, path string) error
	// ListPrefix returns every object under prefix, in store order.
	ListPrefix(ctx context.Context, prefix string) ([]ObjectInfo, error)
	// ListFolders returns the immediate child folder names under prefix
	// (delimiter-grouped common prefixes, without the trailing slash).
	ListFolders(ctx context.Context, prefix string) ([]string, error)
}
