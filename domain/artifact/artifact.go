// Package artifact defines references to stored chart images.
package artifact

import (
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Ref is a stable reference to a stored artifact.
type Ref struct {
	// ID is the unique identifier, also the storage key stem.
	ID string `json:"id"`

	// Name is the human-readable name, usually the chart title.
	Name string `json:"name,omitempty"`

	// ContentType is the MIME type of the artifact.
	ContentType string `json:"content_type,omitempty"`

	// Size is the size of the artifact in bytes.
	Size int64 `json:"size"`

	// Checksum is the hex SHA-256 of the content.
	Checksum string `json:"checksum,omitempty"`

	// Location is where the backend put the content (file path or s3 URI).
	Location string `json:"location,omitempty"`

	// CreatedAt is when the artifact was stored.
	CreatedAt time.Time `json:"created_at"`

	// Metadata contains arbitrary key-value pairs such as the chart kind.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// NewRef creates a reference with a fresh ID.
func NewRef() Ref {
	return Ref{
		ID:        uuid.New().String(),
		CreatedAt: time.Now().UTC(),
	}
}

// IsValid reports whether the reference carries a usable ID.
// IDs are single path segments so they cannot escape a store root.
func (r Ref) IsValid() bool {
	return r.ID != "" && r.ID == path.Base(r.ID) && !strings.ContainsAny(r.ID, `/\`) && r.ID != "." && r.ID != ".."
}

// FileName returns the stored object name, the ID plus an extension
// derived from the content type.
func (r Ref) FileName() string {
	return r.ID + Extension(r.ContentType)
}

// String returns a string representation of the reference.
func (r Ref) String() string {
	if r.Name != "" {
		return r.Name + " (" + r.ID + ")"
	}
	return r.ID
}

// Extension maps a content type to a file extension.
func Extension(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "application/json":
		return ".json"
	default:
		return ".bin"
	}
}
