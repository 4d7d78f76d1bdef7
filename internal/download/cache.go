// Package download fetches remote media to local files, with a
// content-addressed cache so repeated runs against the same URL skip the
// network.
package download

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/goccy/go-json"
)

const indexFile = "index.json"

// indexEntry records one cached download.
type indexEntry struct {
	URL        string    `json:"url"`
	File       string    `json:"file"` // filename within the cache dir
	Size       int64     `json:"size"`
	StoredAt   time.Time `json:"stored_at"`
	LastAccess time.Time `json:"last_access"`
}

// Cache is a size-bounded download cache keyed by URL hash. Entries are
// pruned oldest-access-first when the total size exceeds the limit.
type Cache struct {
	dir      string
	maxBytes int64
	logger   *slog.Logger

	mu    sync.Mutex
	index map[string]*indexEntry
}

// NewCache opens (or creates) a cache directory bounded at maxSizeGB.
func NewCache(dir string, maxSizeGB float64, logger *slog.Logger) (*Cache, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}

	c := &Cache{
		dir:      dir,
		maxBytes: int64(maxSizeGB * 1024 * 1024 * 1024),
		logger:   logger,
		index:    make(map[string]*indexEntry),
	}
	if err := c.loadIndex(); err != nil {
		return nil, err
	}
	return c, nil
}

// cacheKey derives the entry key from a URL.
func cacheKey(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:])[:16]
}

// Lookup returns the local path for a cached URL, refreshing its access time.
func (c *Cache) Lookup(url string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.index[cacheKey(url)]
	if !ok {
		return "", false
	}

	path := filepath.Join(c.dir, entry.File)
	if _, err := os.Stat(path); err != nil {
		// File vanished behind our back; drop the stale entry.
		delete(c.index, cacheKey(url))
		c.saveIndexLocked()
		return "", false
	}

	entry.LastAccess = time.Now()
	c.saveIndexLocked()

	c.logger.Debug("download_cache_hit", "url", url, "path", path)
	return path, true
}

// Store copies srcPath into the cache under the URL's key and returns the
// cached path. Oversized caches are pruned afterwards.
func (c *Cache) Store(url, srcPath string) (string, error) {
	key := cacheKey(url)
	name := key + filepath.Ext(srcPath)
	dst := filepath.Join(c.dir, name)

	size, err := copyFile(srcPath, dst)
	if err != nil {
		return "", fmt.Errorf("caching download: %w", err)
	}

	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.index[key] = &indexEntry{
		URL:        url,
		File:       name,
		Size:       size,
		StoredAt:   now,
		LastAccess: now,
	}
	c.pruneLocked()
	c.saveIndexLocked()

	c.logger.Debug("download_cached", "url", url, "path", dst, "size", size)
	return dst, nil
}

// Clear removes every cached file and resets the index.
func (c *Cache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, entry := range c.index {
		os.Remove(filepath.Join(c.dir, entry.File))
		delete(c.index, key)
	}
	return c.saveIndexLocked()
}

// Size returns the total bytes of cached content.
func (c *Cache) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	var total int64
	for _, entry := range c.index {
		total += entry.Size
	}
	return total
}

// pruneLocked evicts least-recently-accessed entries until the cache fits.
// Caller holds c.mu.
func (c *Cache) pruneLocked() {
	var total int64
	entries := make([]*indexEntry, 0, len(c.index))
	keys := make(map[*indexEntry]string, len(c.index))
	for key, entry := range c.index {
		total += entry.Size
		entries = append(entries, entry)
		keys[entry] = key
	}
	if total <= c.maxBytes {
		return
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].LastAccess.Before(entries[j].LastAccess)
	})

	for _, entry := range entries {
		if total <= c.maxBytes {
			break
		}
		os.Remove(filepath.Join(c.dir, entry.File))
		delete(c.index, keys[entry])
		total -= entry.Size
		c.logger.Debug("download_cache_evicted", "url", entry.URL, "size", entry.Size)
	}
}

// loadIndex reads the JSON index; a missing index means an empty cache.
func (c *Cache) loadIndex() error {
	data, err := os.ReadFile(filepath.Join(c.dir, indexFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading cache index: %w", err)
	}
	if err := json.Unmarshal(data, &c.index); err != nil {
		return fmt.Errorf("parsing cache index: %w", err)
	}
	return nil
}

// saveIndexLocked persists the index. Caller holds c.mu.
func (c *Cache) saveIndexLocked() error {
	data, err := json.MarshalIndent(c.index, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(c.dir, indexFile), data, 0o644)
}

func copyFile(src, dst string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return 0, err
	}
	defer out.Close()

	n, err := io.Copy(out, in)
	if err != nil {
		return 0, err
	}
	return n, out.Close()
}
