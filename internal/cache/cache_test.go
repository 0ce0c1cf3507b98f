package cache

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFileCacheRoundTrip(t *testing.T) {
	dir := t.TempDir()
	c, err := NewFileCache(dir, time.Hour)
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	ctx := context.Background()

	if _, ok := c.Get(ctx, "missing"); ok {
		t.Error("expected miss for unknown key")
	}

	payload := []byte(`{"cards":[]}`)
	if err := c.Set(ctx, "abc123", payload); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, ok := c.Get(ctx, "abc123")
	if !ok || string(got) != string(payload) {
		t.Errorf("expected %s, got %s (hit=%v)", payload, got, ok)
	}
}

func TestFileCacheTTL(t *testing.T) {
	dir := t.TempDir()
	c, err := NewFileCache(dir, 30*time.Second)
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	ctx := context.Background()

	current := time.Unix(1_700_000_000, 0)
	c.now = func() time.Time { return current }

	if err := c.Set(ctx, "key", []byte("1")); err != nil {
		t.Fatalf("Set: %v", err)
	}

	current = current.Add(29 * time.Second)
	if _, ok := c.Get(ctx, "key"); !ok {
		t.Error("entry inside TTL should hit")
	}

	current = current.Add(2 * time.Second)
	if _, ok := c.Get(ctx, "key"); ok {
		t.Error("entry past TTL should miss")
	}
}

func TestFileCacheOverwrite(t *testing.T) {
	dir := t.TempDir()
	c, err := NewFileCache(dir, time.Hour)
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	ctx := context.Background()

	if err := c.Set(ctx, "key", []byte(`{"v":"old"}`)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := c.Set(ctx, "key", []byte(`{"v":"new"}`)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, ok := c.Get(ctx, "key")
	if !ok || string(got) != `{"v":"new"}` {
		t.Errorf("last write should win, got %s", got)
	}
}

func TestFileCacheRejectsNonJSONPayload(t *testing.T) {
	dir := t.TempDir()
	c, err := NewFileCache(dir, time.Hour)
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	ctx := context.Background()

	if err := c.Set(ctx, "key", []byte("not json")); err == nil {
		t.Fatal("expected an error for a non-JSON payload")
	}
	if _, ok := c.Get(ctx, "key"); ok {
		t.Error("rejected payload must not leave an entry behind")
	}
}

func TestFileCacheCorruptEntry(t *testing.T) {
	dir := t.TempDir()
	c, err := NewFileCache(dir, time.Hour)
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "bad.json"), []byte("not json"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, ok := c.Get(context.Background(), "bad"); ok {
		t.Error("corrupt entry should read as a miss")
	}
}

func TestFileCacheCreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "cache")
	if _, err := NewFileCache(dir, time.Hour); err != nil {
		t.Fatalf("NewFileCache should create the directory: %v", err)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Errorf("expected cache dir to exist: %v", err)
	}
}
