// Package filesystem provides filesystem-based storage implementations.
package filesystem

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/felixgeelhaar/hoopstats/domain/artifact"
)

// ArtifactStore writes artifacts into a flat directory: <id>.<ext> holds the
// content and <id>.meta.json the reference.
type ArtifactStore struct {
	dir string
}

// NewArtifactStore creates the directory if needed and returns a store over it.
func NewArtifactStore(dir string) (*ArtifactStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create artifact directory: %w", err)
	}
	return &ArtifactStore{dir: dir}, nil
}

// Dir returns the store root.
func (s *ArtifactStore) Dir() string {
	return s.dir
}

// Store writes content to a temporary file and renames it into place so a
// reader never sees a partial image.
func (s *ArtifactStore) Store(ctx context.Context, content io.Reader, opts artifact.StoreOptions) (artifact.Ref, error) {
	if err := ctx.Err(); err != nil {
		return artifact.Ref{}, err
	}

	ref := artifact.NewRefFor(opts)
	final := filepath.Join(s.dir, ref.FileName())

	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return artifact.Ref{}, errors.Join(artifact.ErrStoreFailed, err)
	}
	cleanup := func() {
		_ = tmp.Close()           // #nosec G104 -- best-effort cleanup in error path
		_ = os.Remove(tmp.Name()) // #nosec G104 -- best-effort cleanup in error path
	}

	hasher := sha256.New()
	size, err := io.Copy(io.MultiWriter(tmp, hasher), content)
	if err != nil {
		cleanup()
		return artifact.Ref{}, errors.Join(artifact.ErrStoreFailed, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return artifact.Ref{}, errors.Join(artifact.ErrStoreFailed, err)
	}
	if err := os.Chmod(tmp.Name(), 0o640); err != nil {
		_ = os.Remove(tmp.Name())
		return artifact.Ref{}, errors.Join(artifact.ErrStoreFailed, err)
	}
	if err := os.Rename(tmp.Name(), final); err != nil {
		_ = os.Remove(tmp.Name())
		return artifact.Ref{}, errors.Join(artifact.ErrStoreFailed, err)
	}

	ref.Size = size
	ref.Checksum = hex.EncodeToString(hasher.Sum(nil))
	ref.Location = final

	meta, err := json.MarshalIndent(ref, "", "  ")
	if err != nil {
		return artifact.Ref{}, errors.Join(artifact.ErrStoreFailed, err)
	}
	if err := os.WriteFile(s.metaPath(ref.ID), meta, 0o640); err != nil {
		_ = os.Remove(final)
		return artifact.Ref{}, errors.Join(artifact.ErrStoreFailed, err)
	}

	return ref, nil
}

// Retrieve opens the content for an artifact reference.
func (s *ArtifactStore) Retrieve(ctx context.Context, ref artifact.Ref) (io.ReadCloser, error) {
	ref, err := s.resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(s.dir, ref.FileName())) // #nosec G304 -- ID validated as a single path segment
	if err != nil {
		if os.IsNotExist(err) {
			return nil, artifact.ErrArtifactNotFound
		}
		return nil, fmt.Errorf("open artifact: %w", err)
	}
	return f, nil
}

// Delete removes an artifact and its metadata.
func (s *ArtifactStore) Delete(ctx context.Context, ref artifact.Ref) error {
	ref, err := s.resolve(ctx, ref)
	if err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(s.dir, ref.FileName())); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete artifact: %w", err)
	}
	if err := os.Remove(s.metaPath(ref.ID)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete artifact metadata: %w", err)
	}
	return nil
}

// Exists reports whether an artifact is stored.
func (s *ArtifactStore) Exists(ctx context.Context, ref artifact.Ref) (bool, error) {
	if _, err := s.resolve(ctx, ref); err != nil {
		if errors.Is(err, artifact.ErrArtifactNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Metadata reads the stored reference for an ID.
func (s *ArtifactStore) Metadata(ctx context.Context, id string) (artifact.Ref, error) {
	return s.resolve(ctx, artifact.Ref{ID: id})
}

// resolve validates ref and loads the stored reference, which carries the
// content type needed to find the content file.
func (s *ArtifactStore) resolve(ctx context.Context, ref artifact.Ref) (artifact.Ref, error) {
	if err := ctx.Err(); err != nil {
		return artifact.Ref{}, err
	}
	if !ref.IsValid() {
		return artifact.Ref{}, artifact.ErrInvalidRef
	}

	data, err := os.ReadFile(s.metaPath(ref.ID))
	if err != nil {
		if os.IsNotExist(err) {
			return artifact.Ref{}, artifact.ErrArtifactNotFound
		}
		return artifact.Ref{}, fmt.Errorf("read artifact metadata: %w", err)
	}
	var stored artifact.Ref
	if err := json.Unmarshal(data, &stored); err != nil {
		return artifact.Ref{}, fmt.Errorf("decode artifact metadata: %w", err)
	}
	return stored, nil
}

func (s *ArtifactStore) metaPath(id string) string {
	return filepath.Join(s.dir, id+".meta.json")
}

var _ artifact.Store = (*ArtifactStore)(nil)
