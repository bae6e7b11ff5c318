// Package diskcache stores JSON documents as flat digest-named files with
// freshness derived from file modification time. There is no index, no
// manifest and no background sweep; a stale entry is simply rewritten on the
// next populating access.
package diskcache

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// ErrNotFound is returned by Load when no entry exists for the key.
var ErrNotFound = errors.New("cache entry not found")

// ErrMalformed is returned by Load when the entry exists but does not parse
// as JSON. It is reported rather than silently treated as a miss; the caller
// decides whether to fall through to a live fetch.
var ErrMalformed = errors.New("cache entry malformed")

// Store is a TTL-bound directory of JSON documents. All methods are safe for
// concurrent use; racing writers for one key resolve as last-writer-wins,
// which is acceptable because content is idempotent per key.
type Store struct {
	dir    string
	ttl    time.Duration
	logger *zap.Logger
}

// NewStore creates a store rooted at dir. The directory tree is created
// lazily here; a creation failure is logged but non-fatal, leaving
// individual writes to fail on their own.
func NewStore(dir string, ttl time.Duration, logger *zap.Logger) *Store {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		logger.Warn("cache directory creation failed", zap.String("dir", dir), zap.Error(err))
	}
	return &Store{dir: dir, ttl: ttl, logger: logger}
}

// Dir returns the directory the store writes into.
func (s *Store) Dir() string { return s.dir }

// Valid reports whether an entry for key exists and is fresh: a file written
// at time T is valid at T+ttl and invalid afterwards. Content is not
// inspected at this stage.
func (s *Store) Valid(key string) bool {
	info, err := os.Stat(s.path(key))
	if err != nil {
		return false
	}
	return time.Since(info.ModTime()) <= s.ttl
}

// Load reads and syntax-checks the document stored for key.
func (s *Store) Load(key string) ([]byte, error) {
	doc, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read cache entry: %w", err)
	}
	if !gjson.ValidBytes(doc) {
		return nil, fmt.Errorf("%w: %s", ErrMalformed, key)
	}
	return doc, nil
}

// Save validates that doc parses as JSON and writes it indented, preserving
// the document's own key order so cache files stay inspectable and
// diff-friendly.
func (s *Store) Save(key string, doc []byte) error {
	if !gjson.ValidBytes(doc) {
		return fmt.Errorf("refusing to cache invalid JSON for %s", key)
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, doc, "", "  "); err != nil {
		return fmt.Errorf("indent cache entry: %w", err)
	}
	if err := os.WriteFile(s.path(key), buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write cache entry: %w", err)
	}
	return nil
}

// Clear removes every cache file in the directory. Administrative
// invalidation only; never run on a schedule.
func (s *Store) Clear() error {
	matches, err := filepath.Glob(filepath.Join(s.dir, "*.json"))
	if err != nil {
		return fmt.Errorf("list cache entries: %w", err)
	}
	for _, m := range matches {
		if err := os.Remove(m); err != nil {
			return fmt.Errorf("remove cache entry: %w", err)
		}
	}
	return nil
}

func (s *Store) path(key string) string {
	return filepath.Join(s.dir, key)
}
