package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/felixgeelhaar/hoopstats/domain/artifact"
)

type object struct {
	body   []byte
	header http.Header
}

// fakeS3 serves path-style object requests from memory.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string]object
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := strings.TrimPrefix(r.URL.Path, "/")
	switch r.Method {
	case http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		h := http.Header{}
		for k, v := range r.Header {
			if strings.HasPrefix(strings.ToLower(k), "x-amz-meta-") || k == "Content-Type" {
				h[k] = v
			}
		}
		f.objects[key] = object{body: body, header: h}
		w.Header().Set("ETag", `"etag"`)
	case http.MethodGet, http.MethodHead:
		obj, ok := f.objects[key]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		for k, v := range obj.header {
			w.Header()[k] = v
		}
		w.Header().Set("Content-Length", strconv.Itoa(len(obj.body)))
		if r.Method == http.MethodGet {
			_, _ = w.Write(obj.body)
		}
	case http.MethodDelete:
		delete(f.objects, key)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newTestStore(t *testing.T) (*ArtifactStore, *fakeS3) {
	t.Helper()
	fake := &fakeS3{objects: make(map[string]object)}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	client := s3.New(s3.Options{
		Region:                     "us-east-1",
		Credentials:                credentials.NewStaticCredentialsProvider("AKID", "SECRET", ""),
		BaseEndpoint:               aws.String(srv.URL),
		UsePathStyle:               true,
		RequestChecksumCalculation: aws.RequestChecksumCalculationWhenRequired,
		ResponseChecksumValidation: aws.ResponseChecksumValidationWhenRequired,
	})
	return NewArtifactStoreFromClient(client, "charts", "nba"), fake
}

func TestArtifactStore_Roundtrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, fake := newTestStore(t)
	png := []byte("\x89PNG\r\n\x1a\nbars")

	ref, err := s.Store(ctx, bytes.NewReader(png), artifact.PNG("PPG leaders").WithMetadata("kind", "bar"))
	if err != nil {
		t.Fatalf("Store() error = %v", err)
	}
	if ref.Location != "s3://charts/nba/"+ref.ID {
		t.Errorf("Location = %s", ref.Location)
	}
	if _, ok := fake.objects["charts/nba/"+ref.ID]; !ok {
		t.Fatalf("object not uploaded; have %d objects", len(fake.objects))
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

	stat, err := s.Stat(ctx, ref.ID)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if stat.Name != "PPG leaders" || stat.Checksum != ref.Checksum || stat.ContentType != "image/png" {
		t.Errorf("Stat() = %+v", stat)
	}
	if stat.Size != int64(len(png)) || stat.Metadata["kind"] != "bar" || !stat.CreatedAt.Equal(ref.CreatedAt) {
		t.Errorf("Stat() = %+v, want size/metadata/created from %+v", stat, ref)
	}

	if ok, err := s.Exists(ctx, ref); err != nil || !ok {
		t.Errorf("Exists() = %v, %v", ok, err)
	}
	if err := s.Delete(ctx, ref); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if ok, err := s.Exists(ctx, ref); err != nil || ok {
		t.Errorf("Exists() after Delete = %v, %v", ok, err)
	}
}

func TestArtifactStore_NotFound(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, _ := newTestStore(t)

	if _, err := s.Retrieve(ctx, artifact.Ref{ID: "missing"}); !errors.Is(err, artifact.ErrArtifactNotFound) {
		t.Errorf("Retrieve() error = %v, want ErrArtifactNotFound", err)
	}
	if err := s.Delete(ctx, artifact.Ref{ID: "missing"}); !errors.Is(err, artifact.ErrArtifactNotFound) {
		t.Errorf("Delete() error = %v, want ErrArtifactNotFound", err)
	}
	if _, err := s.Retrieve(ctx, artifact.Ref{ID: "../escape"}); !errors.Is(err, artifact.ErrInvalidRef) {
		t.Errorf("Retrieve(../escape) error = %v, want ErrInvalidRef", err)
	}
}

func TestArtifactStore_Key(t *testing.T) {
	t.Parallel()

	if got := NewArtifactStoreFromClient(nil, "b", "").key("id"); got != "id" {
		t.Errorf("key() = %q", got)
	}
	if got := NewArtifactStoreFromClient(nil, "b", "charts/").key("id"); got != "charts/id" {
		t.Errorf("key() = %q", got)
	}
}

func TestNewArtifactStore_RequiresBucket(t *testing.T) {
	t.Parallel()

	if _, err := NewArtifactStore(context.Background(), Config{}); !errors.Is(err, artifact.ErrStoreFailed) {
		t.Errorf("NewArtifactStore() error = %v, want ErrStoreFailed", err)
	}
}
