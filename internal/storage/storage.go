// Package storage defines the Storage interface and common types for the object
// storage backends that hold promotional media.
//
// New backends are added by implementing the Storage interface and registering
// with the factory via an init() function in the backend's own package:
//
//	func init() {
//	    storage.Register("mybackend", func(cfg *config.Config) (Storage, error) {
//	        return NewMyBackend(cfg)
//	    })
//	}
//
// The main package imports each backend with a blank import to trigger init().
package storage

import (
	"context"
	"errors"
	"io"
)

// ErrObjectExists is returned by Upload when NoOverwrite is set and the key is taken.
var ErrObjectExists = errors.New("object already exists")

// Storage defines the interface for all storage backends
type Storage interface {
	// Upload stores an object. With opts.NoOverwrite an existing key fails with ErrObjectExists.
	Upload(ctx context.Context, path string, reader io.Reader, size int64, opts UploadOptions) (*UploadResult, error)

	// Download retrieves an object and returns a reader
	Download(ctx context.Context, path string) (io.ReadCloser, error)

	// Delete removes an object. Deleting a missing object is not an error.
	Delete(ctx context.Context, path string) error

	// Exists checks if an object exists at the specified path
	Exists(ctx context.Context, path string) (bool, error)

	// PublicURL resolves path to a publicly readable URL. It does not contact the backend.
	PublicURL(path string) string
}

// BucketEnsurer is implemented by backends that can create their bucket on startup.
type BucketEnsurer interface {
	EnsureBucket(ctx context.Context) error
}

// UploadOptions controls how an object is written
type UploadOptions struct {
	ContentType string
	NoOverwrite bool
}

// UploadResult contains information about an uploaded object
type UploadResult struct {
	// Path is the storage path where the object was stored
	Path string

	// Size is the object size in bytes
	Size int64

	// Checksum is the SHA256 hash of the object contents
	Checksum string
}
