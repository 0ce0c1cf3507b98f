package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"
)

// Cache stores finished generation payloads under a content-addressed key.
// Payloads are JSON documents; Set rejects anything else. Get reports a
// miss for absent, expired, or unreadable entries; the pipeline
// regenerates on any miss, so cache failures are never fatal.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, payload []byte) error
}

type fileEnvelope struct {
	StoredAt int64           `json:"stored_at"`
	Payload  json.RawMessage `json:"payload"`
}

// FileCache keeps one JSON file per key with a stored_at timestamp checked
// against the TTL on read. Expired files are left in place; a later write
// for the same key overwrites them.
type FileCache struct {
	dir string
	ttl time.Duration
	now func() time.Time
}

func NewFileCache(dir string, ttl time.Duration) (*FileCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache dir %s: %w", dir, err)
	}
	return &FileCache{dir: dir, ttl: ttl, now: time.Now}, nil
}

func (c *FileCache) path(key string) string {
	return filepath.Join(c.dir, key+".json")
}

func (c *FileCache) Get(_ context.Context, key string) ([]byte, bool) {
	data, err := os.ReadFile(c.path(key))
	if err != nil {
		return nil, false
	}
	var envelope fileEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		log.Printf("WARNING: corrupt cache entry %s: %v", key, err)
		return nil, false
	}
	if c.ttl > 0 && c.now().Unix()-envelope.StoredAt > int64(c.ttl.Seconds()) {
		return nil, false
	}
	return envelope.Payload, true
}

func (c *FileCache) Set(_ context.Context, key string, payload []byte) error {
	// The payload is embedded verbatim in the envelope, so it has to be a
	// JSON document of its own.
	if !json.Valid(payload) {
		return fmt.Errorf("cache payload for %s is not valid JSON", key)
	}
	record, err := json.Marshal(fileEnvelope{
		StoredAt: c.now().Unix(),
		Payload:  payload,
	})
	if err != nil {
		return err
	}
	// Write-then-rename keeps concurrent readers off half-written files.
	tmp, err := os.CreateTemp(c.dir, key+".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(record); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), c.path(key))
}
