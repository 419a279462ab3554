// Package storage abstracts the remote object store holding the source
// audio. The pipeline only needs download, listing, and (for the
// flattening utility) copy/delete; implementations exist for
// S3-compatible stores and for a local directory used in tests and
// offline development.
package storage

import (
	"context"
)

// ObjectStore is the minimal object-storage surface the pipeline consumes.
//
// Keys are forward-slash separated, relative to the store's bucket or
// root. Implementations must be safe for concurrent use: the ingest
// worker pool downloads many objects at once.
type ObjectStore interface {
	// Download fetches the object at key into localPath, creating parent
	// directories as needed.
	Download(ctx context.Context, key, localPath string) error

	// List returns the keys of all objects under prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)

	// Copy duplicates the object at src to dst within the store.
	Copy(ctx context.Context, src, dst string) error

	// Delete removes the object at key. Deleting an absent key is not an
	// error (idempotent).
	Delete(ctx context.Context, key string) error
}
