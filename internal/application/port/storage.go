package port

import (
	"context"
	"errors"
	"io"
)

// ErrFileTooLarge is returned when an upload exceeds the configured limit
var ErrFileTooLarge = errors.New("file exceeds size limit")

// FileStorage stores attachment content under relative paths
type FileStorage interface {
	// Save streams r to path and returns the number of bytes written.
	// Nothing is left behind when maxBytes is exceeded.
	Save(ctx context.Context, path string, r io.Reader, maxBytes int64) (int64, error)
	Open(ctx context.Context, path string) (io.ReadCloser, error)
	Delete(ctx context.Context, path string) error
}
