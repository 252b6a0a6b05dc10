package artifact

import (
	"context"
	"errors"
	"io"
)

// Store persists artifacts. Implementations are in infrastructure/storage.
type Store interface {
	// Store saves content and returns its reference.
	Store(ctx context.Context, content io.Reader, opts StoreOptions) (Ref, error)

	// Retrieve opens the content of an artifact. Callers close the reader.
	Retrieve(ctx context.Context, ref Ref) (io.ReadCloser, error)

	// Delete removes an artifact.
	Delete(ctx context.Context, ref Ref) error

	// Exists reports whether an artifact is stored.
	Exists(ctx context.Context, ref Ref) (bool, error)
}

// StoreOptions configures artifact storage.
type StoreOptions struct {
	// Name is an optional human-readable name.
	Name string

	// ContentType is the MIME type of the content.
	ContentType string

	// Metadata contains arbitrary key-value pairs.
	Metadata map[string]string
}

// PNG returns options for a named PNG image.
func PNG(name string) StoreOptions {
	return StoreOptions{Name: name, ContentType: "image/png"}
}

// WithMetadata adds metadata.
func (o StoreOptions) WithMetadata(key, value string) StoreOptions {
	m := make(map[string]string, len(o.Metadata)+1)
	for k, v := range o.Metadata {
		m[k] = v
	}
	m[key] = value
	o.Metadata = m
	return o
}

// NewRefFor returns a fresh reference populated from opts.
func NewRefFor(opts StoreOptions) Ref {
	ref := NewRef()
	ref.Name = opts.Name
	ref.ContentType = opts.ContentType
	if ref.ContentType == "" {
		ref.ContentType = "application/octet-stream"
	}
	if len(opts.Metadata) > 0 {
		ref.Metadata = make(map[string]string, len(opts.Metadata))
		for k, v := range opts.Metadata {
			ref.Metadata[k] = v
		}
	}
	return ref
}

// Domain errors for artifact storage.
var (
	// ErrArtifactNotFound indicates the artifact was not found.
	ErrArtifactNotFound = errors.New("artifact not found")

	// ErrInvalidRef indicates the artifact reference is invalid.
	ErrInvalidRef = errors.New("invalid artifact reference")

	// ErrStoreFailed indicates the backend could not persist the content.
	ErrStoreFailed = errors.New("artifact store failed")
)
