package ports

import (
	"context"
	"io"
)

type PutInput struct {
	Key         string
	ContentType string
	Reader      io.Reader
	Size        int64
}

type PutOutput struct {
	// localfs echoes the object key. gdrive returns the Drive fileId,
	// which is what later Open/Delete calls must use.
	Key  string
	Size int64
}

// ArchiveStore persists generation artifacts (localfs, gdrive).
type ArchiveStore interface {
	Provider() string

	Put(ctx context.Context, in PutInput) (PutOutput, error)
	Open(ctx context.Context, key string) (rc io.ReadCloser, contentType string, size int64, err error)
	Delete(ctx context.Context, key string) error
}
