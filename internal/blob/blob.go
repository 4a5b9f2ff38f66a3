// Package blob abstracts the object store holding the original PDFs.
package blob

import "context"

// Store fetches and uploads binary blobs addressed by URI.
type Store interface {
	// Fetch downloads the blob at uri.
	Fetch(ctx context.Context, uri string) ([]byte, error)
	// Put uploads data under objectName and returns the blob's URI.
	Put(ctx context.Context, objectName string, data []byte, contentType string) (string, error)
	Close() error
}
