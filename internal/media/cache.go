package media

import (
	"context"
	"log/slog"
	"sync"

	"github.com/huiping192/video-analytics/internal/probe"
)

// MetadataCache memoizes probed metadata per file path so that one probe
// serves every analyzer in a run.
//
// The lock is released while probing, so two concurrent misses for the same
// path may both probe. That duplicates work but never corrupts state; probing
// is idempotent and cheap relative to a full analysis. The analysis engine
// avoids even the duplicate work by populating the cache before fanning out.
type MetadataCache struct {
	mu      sync.RWMutex
	entries map[string]*probe.Metadata
	logger  *slog.Logger
}

// NewMetadataCache creates an empty cache.
func NewMetadataCache(logger *slog.Logger) *MetadataCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &MetadataCache{
		entries: make(map[string]*probe.Metadata),
		logger:  logger,
	}
}

// GetOrLoad returns cached metadata for the file's path, loading and storing
// it on a miss.
func (c *MetadataCache) GetOrLoad(ctx context.Context, f *File) (*probe.Metadata, error) {
	key := f.Path()

	c.mu.RLock()
	meta, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		c.logger.Debug("metadata_cache_hit", "path", key)
		return meta, nil
	}

	meta, err := f.LoadMetadata(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[key] = meta
	c.mu.Unlock()

	c.logger.Debug("metadata_cached", "path", key, "duration", meta.Duration)
	return meta, nil
}

// Clear empties the cache. Always succeeds.
func (c *MetadataCache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]*probe.Metadata)
	c.mu.Unlock()

	c.logger.Debug("metadata_cache_cleared")
}

// Size returns the number of cached entries.
func (c *MetadataCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
