package memory

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"sync"

	"github.com/felixgeelhaar/hoopstats/domain/artifact"
)

type storedArtifact struct {
	ref  artifact.Ref
	data []byte
}

// ArtifactStore keeps artifacts in memory.
type ArtifactStore struct {
	mu    sync.RWMutex
	items map[string]storedArtifact
}

// NewArtifactStore creates an empty in-memory artifact store.
func NewArtifactStore() *ArtifactStore {
	return &ArtifactStore{items: make(map[string]storedArtifact)}
}

// Store saves content and returns its reference.
func (s *ArtifactStore) Store(ctx context.Context, content io.Reader, opts artifact.StoreOptions) (artifact.Ref, error) {
	if err := ctx.Err(); err != nil {
		return artifact.Ref{}, err
	}
	data, err := io.ReadAll(content)
	if err != nil {
		return artifact.Ref{}, fmt.Errorf("%w: %w", artifact.ErrStoreFailed, err)
	}

	ref := artifact.NewRefFor(opts)
	sum := sha256.Sum256(data)
	ref.Size = int64(len(data))
	ref.Checksum = hex.EncodeToString(sum[:])
	ref.Location = "memory://" + ref.FileName()

	s.mu.Lock()
	s.items[ref.ID] = storedArtifact{ref: ref, data: data}
	s.mu.Unlock()
	return ref, nil
}

// Retrieve opens the content of an artifact.
func (s *ArtifactStore) Retrieve(ctx context.Context, ref artifact.Ref) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !ref.IsValid() {
		return nil, artifact.ErrInvalidRef
	}

	s.mu.RLock()
	item, ok := s.items[ref.ID]
	s.mu.RUnlock()
	if !ok {
		return nil, artifact.ErrArtifactNotFound
	}
	return io.NopCloser(bytes.NewReader(item.data)), nil
}

// Delete removes an artifact.
func (s *ArtifactStore) Delete(ctx context.Context, ref artifact.Ref) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !ref.IsValid() {
		return artifact.ErrInvalidRef
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[ref.ID]; !ok {
		return artifact.ErrArtifactNotFound
	}
	delete(s.items, ref.ID)
	return nil
}

// Exists reports whether an artifact is stored.
func (s *ArtifactStore) Exists(ctx context.Context, ref artifact.Ref) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if !ref.IsValid() {
		return false, artifact.ErrInvalidRef
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.items[ref.ID]
	return ok, nil
}

// Len returns the number of stored artifacts.
func (s *ArtifactStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

var _ artifact.Store = (*ArtifactStore)(nil)
