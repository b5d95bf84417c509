// Package objectstore holds uploaded document and media bytes. Rows in the
// database only carry the storage key.
package objectstore

import (
	"context"
	"io"
)

type Store interface {
	// Save writes r under prefix and returns the new key and the number of
	// bytes written.
	Save(ctx context.Context, prefix, mimeType string, r io.Reader) (key string, size int64, err error)
	Open(ctx context.Context, key string) (io.ReadCloser, string, error)
	Delete(ctx context.Context, key string) error
}
