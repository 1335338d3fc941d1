package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
)

var (
	// ErrObjectNotFound indicates an exported object was not found
	ErrObjectNotFound = errors.New("object not found")

	// ErrURLUnavailable indicates a store cannot address objects by URL
	ErrURLUnavailable = errors.New("object url not available")
)

// Store persists exported documents
type Store interface {
	Put(ctx context.Context, key string, reader io.Reader, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	URL(ctx context.Context, key string) (string, error)
}

// StorageError represents an error related to export storage operations
type StorageError struct {
	Key string
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("export storage operation %s failed for %s: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// KeyFor returns the object key of an exported entity:
// <type>/<bundle>/<id>.<langcode>.json
func KeyFor(entityType, bundle, id, langcode string) string {
	return fmt.Sprintf("%s/%s/%s.%s.json",
		url.PathEscape(entityType),
		url.PathEscape(bundle),
		url.PathEscape(id),
		url.PathEscape(langcode),
	)
}
