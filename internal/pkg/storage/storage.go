// Package storage abstracts blob storage for uploaded files. The only
// implementation today is the local filesystem; paths are always
// relative to the store's root.
package storage

import (
	"context"
	"io"
)

type Storage interface {
	Save(ctx context.Context, path string, content io.Reader) error
	Get(ctx context.Context, path string) (io.ReadCloser, error)
	// Delete removes the blob; deleting a missing blob is not an error.
	Delete(ctx context.Context, path string) error
}
