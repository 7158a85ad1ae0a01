package object

import (
	"context"
	"io"
)

// ObjectStore defines the contract for saving and retrieving archived objects
// under caller-chosen keys.
type ObjectStore interface {
	Put(ctx context.Context, key string, contentType string, r io.Reader) (sizeBytes int64, err error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}
