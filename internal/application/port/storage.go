package port

import (
	"context"
	"errors"

	"github.com/garyjia/timesheet-invoicing/internal/domain/entity"
)

// ErrFileNotFound is returned by FileStorage.Read for missing objects
var ErrFileNotFound = errors.New("file not found")

// FileStorage stores opaque blobs under relative keys
type FileStorage interface {
	Save(ctx context.Context, path string, content []byte) error
	Read(ctx context.Context, path string) ([]byte, error)
	Exists(ctx context.Context, path string) bool
	// Delete succeeds when the object does not exist
	Delete(ctx context.Context, path string) error
}

// DocumentStore keeps rendered invoice documents keyed by invoice identity
type DocumentStore interface {
	Store(ctx context.Context, invoiceID int64, doc *entity.Document) (string, error)
	Retrieve(ctx context.Context, locator string) ([]byte, error)
	Remove(ctx context.Context, locator string) error
}
