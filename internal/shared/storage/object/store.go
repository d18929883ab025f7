package object

import (
	"context"
	"io"
)

// ObjectStore defines the contract for saving and retrieving binary objects.
type ObjectStore interface {
	// Save stores an uploaded file under the user's namespace with a random
	// prefix and returns the generated storage key.
	Save(ctx context.Context, userID string, fileName string, r io.Reader) (storageKey string, sizeBytes int64, mimeType string, err error)
	// Put writes data at a caller-chosen storage key, overwriting any
	// previous object.
	Put(ctx context.Context, storageKey string, r io.Reader, contentType string) error
	Open(ctx context.Context, storageKey string) (io.ReadCloser, error)
}
