package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/felixgeelhaar/hoopstats/domain/cache"
	"github.com/felixgeelhaar/hoopstats/domain/conversation"
)

func testConfig(t *testing.T) Config {
	t.Helper()
	return Config{
		DSN:         "file:" + filepath.Join(t.TempDir(), "test.db") + "?mode=rwc",
		AutoMigrate: true,
		BusyTimeout: 1000,
	}
}

func newTestCache(t *testing.T, opts ...Option) *Cache {
	t.Helper()
	c, err := NewCache(testConfig(t), opts...)
	if err != nil {
		t.Fatalf("NewCache() error = %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestCache_SetGet(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := newTestCache(t)

	if _, found, err := c.Get(ctx, "missing"); err != nil || found {
		t.Fatalf("Get(missing) = %v, %v", found, err)
	}
	if err := c.Set(ctx, "k", []byte("- Curry: 402 threes"), time.Hour); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := c.Set(ctx, "k", []byte("- Curry: 402 3PM (2015-16)"), time.Hour); err != nil {
		t.Fatalf("Set(overwrite) error = %v", err)
	}

	got, found, err := c.Get(ctx, "k")
	if err != nil || !found {
		t.Fatalf("Get() = %v, %v", found, err)
	}
	if string(got) != "- Curry: 402 3PM (2015-16)" {
		t.Errorf("Get() = %q", got)
	}

	stats := c.Stats()
	if stats.Hits != 1 || stats.Misses != 1 || stats.Size != 1 {
		t.Errorf("Stats() = %+v", stats)
	}

	if err := c.Set(ctx, "", []byte("x"), 0); !errors.Is(err, cache.ErrInvalidKey) {
		t.Errorf("Set(\"\") error = %v", err)
	}
}

func TestCache_Expiry(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := newTestCache(t)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	_ = c.Set(ctx, "short", []byte("a"), time.Minute)
	_ = c.Set(ctx, "other", []byte("b"), time.Minute)
	_ = c.Set(ctx, "forever", []byte("c"), 0)

	now = now.Add(2 * time.Minute)
	if _, found, _ := c.Get(ctx, "short"); found {
		t.Error("expired entry returned")
	}
	if _, found, _ := c.Get(ctx, "forever"); !found {
		t.Error("zero TTL entry expired")
	}

	removed, err := c.Cleanup(ctx)
	if err != nil {
		t.Fatalf("Cleanup() error = %v", err)
	}
	if removed != 1 {
		t.Errorf("Cleanup() = %d, want 1", removed)
	}
}

func TestCache_ClearRespectsPrefix(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cfg := testConfig(t)

	mine, err := NewCache(cfg, WithKeyPrefix("a_"))
	if err != nil {
		t.Fatal(err)
	}
	defer mine.Close()
	theirs, err := NewCache(cfg, WithKeyPrefix("ab"))
	if err != nil {
		t.Fatal(err)
	}
	defer theirs.Close()

	_ = mine.Set(ctx, "k", []byte("1"), 0)
	_ = theirs.Set(ctx, "k", []byte("2"), 0)

	if err := mine.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if _, found, _ := mine.Get(ctx, "k"); found {
		t.Error("own entry survived Clear")
	}
	// "_" must match literally, not as a LIKE wildcard.
	if _, found, _ := theirs.Get(ctx, "k"); !found {
		t.Error("Clear removed another prefix's entry")
	}

	if err := mine.Delete(ctx, "k"); err != nil {
		t.Errorf("Delete(missing) error = %v", err)
	}
}

func TestNewCache_BadDSN(t *testing.T) {
	t.Parallel()

	_, err := NewCache(Config{DSN: "file:" + filepath.Join(t.TempDir(), "missing", "dir", "x.db") + "?mode=ro"})
	if !errors.Is(err, ErrConnectionFailed) && !errors.Is(err, ErrMigrationFailed) {
		t.Errorf("NewCache() error = %v, want connection or migration failure", err)
	}
}

func TestEscapeLike(t *testing.T) {
	t.Parallel()

	if got := escapeLike(`a_b%c\d`); got != `a\_b\%c\\d` {
		t.Errorf("escapeLike() = %q", got)
	}
}

func TestHistoryStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, err := NewHistoryStore(testConfig(t))
	if err != nil {
		t.Fatalf("NewHistoryStore() error = %v", err)
	}
	defer s.Close()

	stamp := time.Date(2024, 5, 1, 20, 0, 0, 0, time.UTC)
	var ids []string
	for i, q := range []string{"first", "second", "third"} {
		turn := conversation.NewTurn(q, "answer "+q)
		turn.CreatedAt = stamp.Add(time.Duration(i) * time.Second)
		turn.Visualization = `{"visualization_type":"bar"}`
		ids = append(ids, turn.ID)
		if err := s.Append(ctx, turn); err != nil {
			t.Fatalf("Append(%s) error = %v", q, err)
		}
	}

	dup := conversation.Turn{ID: ids[0], Query: "again", Answer: "x", CreatedAt: stamp}
	if err := s.Append(ctx, dup); !errors.Is(err, conversation.ErrDuplicateTurn) {
		t.Errorf("Append(duplicate) error = %v", err)
	}

	got, err := s.Get(ctx, ids[1])
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Query != "second" || !got.CreatedAt.Equal(stamp.Add(time.Second)) || got.Visualization == "" {
		t.Errorf("Get() = %+v", got)
	}
	if _, err := s.Get(ctx, "nope"); !errors.Is(err, conversation.ErrTurnNotFound) {
		t.Errorf("Get(missing) error = %v", err)
	}

	recent, err := s.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(recent) != 2 || recent[0].ID != ids[2] || recent[1].ID != ids[1] {
		t.Errorf("Recent(2) = %+v", recent)
	}
	if all, _ := s.Recent(ctx, 0); len(all) != 3 {
		t.Errorf("Recent(0) = %d turns, want 3", len(all))
	}

	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if all, _ := s.Recent(ctx, 0); len(all) != 0 {
		t.Errorf("Recent() after Clear = %d", len(all))
	}
}

func TestHistoryStore_TiesKeepInsertionOrder(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, err := NewHistoryStore(testConfig(t))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	stamp := time.Unix(1700000000, 0).UTC()
	a := conversation.Turn{ID: "z-first", Query: "a", CreatedAt: stamp}
	b := conversation.Turn{ID: "a-second", Query: "b", CreatedAt: stamp}
	_ = s.Append(ctx, a)
	_ = s.Append(ctx, b)

	recent, _ := s.Recent(ctx, 0)
	if len(recent) != 2 || recent[0].ID != "a-second" {
		t.Errorf("Recent() = %+v, want the later insert first", recent)
	}
}
