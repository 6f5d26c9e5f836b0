// Package storage defines the Backend interface the mirror is written to.
package storage

import (
	"context"
	"io"
)

// Backend is the interface for mirror storage backends.
// Keys are slash-separated paths relative to the backend root.
type Backend interface {
	// MakeDir ensures the directory key exists. Backends without
	// directories treat it as a no-op.
	MakeDir(ctx context.Context, key string) error

	// PutObject stores body under key. size is -1 when unknown.
	PutObject(ctx context.Context, key string, body io.Reader, size int64) error

	// Location returns a human readable location for key.
	Location(key string) string

	// Type returns the backend type identifier ("local", "s3").
	Type() string
}
