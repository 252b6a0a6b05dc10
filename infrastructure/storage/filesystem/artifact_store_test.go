package filesystem_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/felixgeelhaar/hoopstats/domain/artifact"
	"github.com/felixgeelhaar/hoopstats/infrastructure/storage/filesystem"
)

func newStore(t *testing.T) *filesystem.ArtifactStore {
	t.Helper()
	s, err := filesystem.NewArtifactStore(filepath.Join(t.TempDir(), "outputs"))
	if err != nil {
		t.Fatalf("NewArtifactStore() error = %v", err)
	}
	return s
}

func TestNewArtifactStore_CreatesDir(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	info, err := os.Stat(s.Dir())
	if err != nil || !info.IsDir() {
		t.Fatalf("store dir missing: %v", err)
	}
}

func TestArtifactStore_Roundtrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newStore(t)
	png := []byte("\x89PNG\r\n\x1a\nchart-bytes")

	ref, err := s.Store(ctx, bytes.NewReader(png), artifact.PNG("Giannis vs Jokic").WithMetadata("kind", "bar"))
	if err != nil {
		t.Fatalf("Store() error = %v", err)
	}
	if ref.Size != int64(len(png)) || len(ref.Checksum) != 64 {
		t.Errorf("ref = %+v", ref)
	}
	if filepath.Ext(ref.Location) != ".png" || filepath.Dir(ref.Location) != s.Dir() {
		t.Errorf("Location = %s", ref.Location)
	}

	rc, err := s.Retrieve(ctx, artifact.Ref{ID: ref.ID})
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	got, _ := io.ReadAll(rc)
	_ = rc.Close()
	if !bytes.Equal(got, png) {
		t.Errorf("content = %q", got)
	}

	meta, err := s.Metadata(ctx, ref.ID)
	if err != nil {
		t.Fatalf("Metadata() error = %v", err)
	}
	if meta.Name != "Giannis vs Jokic" || meta.Metadata["kind"] != "bar" || meta.Checksum != ref.Checksum {
		t.Errorf("Metadata() = %+v", meta)
	}

	if ok, err := s.Exists(ctx, ref); err != nil || !ok {
		t.Errorf("Exists() = %v, %v", ok, err)
	}
	if err := s.Delete(ctx, ref); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if ok, _ := s.Exists(ctx, ref); ok {
		t.Error("Exists() after Delete = true")
	}
	if err := s.Delete(ctx, ref); !errors.Is(err, artifact.ErrArtifactNotFound) {
		t.Errorf("second Delete() error = %v", err)
	}

	entries, _ := os.ReadDir(s.Dir())
	if len(entries) != 0 {
		t.Errorf("store dir not empty after delete: %d entries", len(entries))
	}
}

func TestArtifactStore_JSONContentDoesNotClobberMetadata(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newStore(t)
	ref, err := s.Store(ctx, strings.NewReader(`{"labels":[]}`), artifact.StoreOptions{ContentType: "application/json"})
	if err != nil {
		t.Fatal(err)
	}
	rc, err := s.Retrieve(ctx, ref)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	got, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(got) != `{"labels":[]}` {
		t.Errorf("content = %q", got)
	}
}

func TestArtifactStore_InvalidRefs(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newStore(t)
	for _, id := range []string{"", "..", "../../etc/passwd", "a/b"} {
		if _, err := s.Retrieve(ctx, artifact.Ref{ID: id}); !errors.Is(err, artifact.ErrInvalidRef) {
			t.Errorf("Retrieve(%q) error = %v, want ErrInvalidRef", id, err)
		}
	}
	if _, err := s.Retrieve(ctx, artifact.Ref{ID: "unknown"}); !errors.Is(err, artifact.ErrArtifactNotFound) {
		t.Errorf("Retrieve(unknown) error = %v", err)
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("disk on fire") }

func TestArtifactStore_FailedWriteLeavesNothing(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	if _, err := s.Store(context.Background(), failingReader{}, artifact.PNG("x")); !errors.Is(err, artifact.ErrStoreFailed) {
		t.Fatalf("Store() error = %v, want ErrStoreFailed", err)
	}
	entries, _ := os.ReadDir(s.Dir())
	if len(entries) != 0 {
		t.Errorf("failed store left %d files", len(entries))
	}
}
