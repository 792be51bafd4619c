// Package cache is a content-addressable store of fetch results keyed by
// (identifier, format). It is a pure performance optimization: a miss is
// always resolvable by redoing the fetch.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/LLLin000/paper-fetcher/internal/identifier"
	"github.com/LLLin000/paper-fetcher/internal/paper"
)

// Cache stores serialized FetchResults as JSON files in a directory.
// Writes are atomic (write-temp-then-rename), so a partially written entry
// is never observable. Entries never expire; callers overwrite by storing
// under the same key again.
type Cache struct {
	dir string
}

// New creates a cache rooted at dir, creating it if needed.
func New(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}
	return &Cache{dir: dir}, nil
}

// Key derives the cache key for an (identifier, format) pair.
func Key(id identifier.Identifier, format paper.Format) string {
	sum := sha256.Sum256([]byte(string(id.Kind) + "|" + id.Value + "|" + string(format)))
	return hex.EncodeToString(sum[:])
}

func (c *Cache) path(key string) string {
	return filepath.Join(c.dir, key+".json")
}

// Lookup returns the cached result for (id, format), or nil on a miss.
// A corrupt entry reads as a miss rather than an error.
func (c *Cache) Lookup(id identifier.Identifier, format paper.Format) (*paper.FetchResult, error) {
	data, err := os.ReadFile(c.path(Key(id, format)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading cache entry: %w", err)
	}

	var result paper.FetchResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, nil // corrupt entry, treat as miss
	}
	return &result, nil
}

// Store writes a result under its (identifier, format) key,
// last-writer-wins.
func (c *Cache) Store(result *paper.FetchResult) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding cache entry: %w", err)
	}

	final := c.path(Key(result.Identifier, result.Format))
	tmp, err := os.CreateTemp(c.dir, ".cache-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing cache entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, final); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("committing cache entry: %w", err)
	}
	return nil
}

// Clear removes every cache entry.
func (c *Cache) Clear() error {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return fmt.Errorf("reading cache dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		if err := os.Remove(filepath.Join(c.dir, e.Name())); err != nil {
			return fmt.Errorf("removing %s: %w", e.Name(), err)
		}
	}
	return nil
}

// Info summarizes the cache contents.
type Info struct {
	Entries   int   `json:"entries"`
	TotalSize int64 `json:"total_size_bytes"`
}

// Stat returns entry count and total size.
func (c *Cache) Stat() (Info, error) {
	var info Info
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return info, fmt.Errorf("reading cache dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue
		}
		info.Entries++
		info.TotalSize += fi.Size()
	}
	return info, nil
}
