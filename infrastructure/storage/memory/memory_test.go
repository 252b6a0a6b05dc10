package memory_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/felixgeelhaar/hoopstats/domain/artifact"
	"github.com/felixgeelhaar/hoopstats/domain/cache"
	"github.com/felixgeelhaar/hoopstats/domain/conversation"
	"github.com/felixgeelhaar/hoopstats/infrastructure/storage/memory"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestCache_SetGet(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := memory.NewCache()

	if _, found, err := c.Get(ctx, "missing"); err != nil || found {
		t.Fatalf("Get(missing) = found %v, err %v", found, err)
	}

	value := []byte("- LeBron: 27.1 PPG")
	if err := c.Set(ctx, "k", value, 0); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	value[0] = 'X'

	got, found, err := c.Get(ctx, "k")
	if err != nil || !found {
		t.Fatalf("Get() = found %v, err %v", found, err)
	}
	if string(got) != "- LeBron: 27.1 PPG" {
		t.Errorf("Get() = %q, caller mutation leaked in", got)
	}
	got[0] = 'Y'
	again, _, _ := c.Get(ctx, "k")
	if again[0] != '-' {
		t.Error("Get() returned the stored slice")
	}

	stats := c.Stats()
	if stats.Hits != 2 || stats.Misses != 1 || stats.Size != 1 {
		t.Errorf("Stats() = %+v", stats)
	}
}

func TestCache_InvalidKey(t *testing.T) {
	t.Parallel()

	if err := memory.NewCache().Set(context.Background(), "", []byte("x"), 0); !errors.Is(err, cache.ErrInvalidKey) {
		t.Errorf("Set(\"\") error = %v, want ErrInvalidKey", err)
	}
}

func TestCache_TTL(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)}
	c := memory.NewCache(memory.WithClock(clock.Now))

	_ = c.Set(ctx, "short", []byte("a"), time.Hour)
	_ = c.Set(ctx, "forever", []byte("b"), 0)

	clock.Advance(59 * time.Minute)
	if _, found, _ := c.Get(ctx, "short"); !found {
		t.Error("entry expired early")
	}

	clock.Advance(time.Minute)
	if _, found, _ := c.Get(ctx, "short"); found {
		t.Error("entry survived its TTL")
	}
	if _, found, _ := c.Get(ctx, "forever"); !found {
		t.Error("zero TTL entry expired")
	}
}

func TestCache_Cleanup(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	clock := &fakeClock{now: time.Unix(0, 0)}
	c := memory.NewCache(memory.WithClock(clock.Now))
	_ = c.Set(ctx, "a", []byte("1"), time.Second)
	_ = c.Set(ctx, "b", []byte("2"), time.Second)
	_ = c.Set(ctx, "c", []byte("3"), 0)

	clock.Advance(2 * time.Second)
	if removed := c.Cleanup(); removed != 2 {
		t.Errorf("Cleanup() = %d, want 2", removed)
	}
	if size := c.Stats().Size; size != 1 {
		t.Errorf("Size = %d, want 1", size)
	}
}

func TestCache_LRUEviction(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := memory.NewCache(memory.WithMaxSize(2))
	_ = c.Set(ctx, "a", []byte("1"), 0)
	_ = c.Set(ctx, "b", []byte("2"), 0)
	_, _, _ = c.Get(ctx, "a") // b is now least recently used
	_ = c.Set(ctx, "c", []byte("3"), 0)

	if _, found, _ := c.Get(ctx, "b"); found {
		t.Error("b should have been evicted")
	}
	for _, k := range []string{"a", "c"} {
		if _, found, _ := c.Get(ctx, k); !found {
			t.Errorf("%s was evicted", k)
		}
	}

	// Overwriting an existing key never evicts.
	_ = c.Set(ctx, "a", []byte("updated"), 0)
	if size := c.Stats().Size; size != 2 {
		t.Errorf("Size = %d, want 2", size)
	}
	if v, _, _ := c.Get(ctx, "a"); string(v) != "updated" {
		t.Errorf("a = %q", v)
	}
}

func TestCache_DeleteClear(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := memory.NewCache()
	_ = c.Set(ctx, "a", []byte("1"), 0)
	_ = c.Set(ctx, "b", []byte("2"), 0)

	if err := c.Delete(ctx, "a"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := c.Delete(ctx, "never"); err != nil {
		t.Fatalf("Delete(missing) error = %v", err)
	}
	if _, found, _ := c.Get(ctx, "a"); found {
		t.Error("a still present")
	}
	if err := c.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if c.Stats().Size != 0 {
		t.Error("Clear() left entries")
	}
}

func TestCache_CanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := memory.NewCache()
	if _, _, err := c.Get(ctx, "k"); !errors.Is(err, context.Canceled) {
		t.Errorf("Get() error = %v", err)
	}
	if err := c.Set(ctx, "k", nil, 0); !errors.Is(err, context.Canceled) {
		t.Errorf("Set() error = %v", err)
	}
}

func TestCache_Concurrent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := memory.NewCache(memory.WithMaxSize(16))
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := cache.Key("search", strings.Repeat("q", i+1))
			for j := 0; j < 100; j++ {
				_ = c.Set(ctx, key, []byte("v"), time.Minute)
				_, _, _ = c.Get(ctx, key)
			}
		}(i)
	}
	wg.Wait()
	if size := c.Stats().Size; size != 8 {
		t.Errorf("Size = %d, want 8", size)
	}
}

func TestHistoryStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := memory.NewHistoryStore(0)

	first := conversation.NewTurn("Who won the 2023 Finals?", "Denver Nuggets.")
	second := conversation.NewTurn("Jokic Finals PPG?", "30.2")
	for _, turn := range []conversation.Turn{first, second} {
		if err := s.Append(ctx, turn); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	if err := s.Append(ctx, first); !errors.Is(err, conversation.ErrDuplicateTurn) {
		t.Errorf("Append(duplicate) error = %v", err)
	}
	if err := s.Append(ctx, conversation.Turn{ID: "x"}); !errors.Is(err, conversation.ErrEmptyQuery) {
		t.Errorf("Append(empty query) error = %v", err)
	}

	got, err := s.Get(ctx, first.ID)
	if err != nil || got.Answer != "Denver Nuggets." {
		t.Errorf("Get() = %+v, %v", got, err)
	}
	if _, err := s.Get(ctx, "nope"); !errors.Is(err, conversation.ErrTurnNotFound) {
		t.Errorf("Get(missing) error = %v", err)
	}

	recent, err := s.Recent(ctx, 0)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(recent) != 2 || recent[0].ID != second.ID {
		t.Errorf("Recent(0) = %+v, want newest first", recent)
	}
	if recent, _ := s.Recent(ctx, 1); len(recent) != 1 || recent[0].ID != second.ID {
		t.Errorf("Recent(1) = %+v", recent)
	}

	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if recent, _ := s.Recent(ctx, 0); len(recent) != 0 {
		t.Errorf("Recent() after Clear = %d turns", len(recent))
	}
}

func TestHistoryStore_Limit(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := memory.NewHistoryStore(2)
	var ids []string
	for _, q := range []string{"a", "b", "c"} {
		turn := conversation.NewTurn(q, "answer")
		ids = append(ids, turn.ID)
		if err := s.Append(ctx, turn); err != nil {
			t.Fatal(err)
		}
	}

	recent, _ := s.Recent(ctx, 0)
	if len(recent) != 2 || recent[0].ID != ids[2] || recent[1].ID != ids[1] {
		t.Errorf("Recent() = %+v, want the two newest", recent)
	}
	if _, err := s.Get(ctx, ids[0]); !errors.Is(err, conversation.ErrTurnNotFound) {
		t.Errorf("oldest turn still present: %v", err)
	}
}

func TestArtifactStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := memory.NewArtifactStore()

	ref, err := s.Store(ctx, strings.NewReader("\x89PNG"), artifact.PNG("Top scorers"))
	if err != nil {
		t.Fatalf("Store() error = %v", err)
	}
	if ref.Size != 4 || ref.Checksum == "" || ref.ContentType != "image/png" {
		t.Errorf("ref = %+v", ref)
	}

	rc, err := s.Retrieve(ctx, ref)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	data, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(data) != "\x89PNG" {
		t.Errorf("content = %q", data)
	}

	if ok, _ := s.Exists(ctx, ref); !ok {
		t.Error("Exists() = false")
	}
	if err := s.Delete(ctx, ref); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := s.Delete(ctx, ref); !errors.Is(err, artifact.ErrArtifactNotFound) {
		t.Errorf("second Delete() error = %v", err)
	}
	if _, err := s.Retrieve(ctx, artifact.Ref{ID: "../x"}); !errors.Is(err, artifact.ErrInvalidRef) {
		t.Errorf("Retrieve(invalid) error = %v", err)
	}
	if s.Len() != 0 {
		t.Errorf("Len() = %d", s.Len())
	}
}
